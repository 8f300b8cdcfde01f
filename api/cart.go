package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/preluvia/storefront/pkg/cart"
	"github.com/preluvia/storefront/pkg/models"
)

type cartResponse struct {
	Items    []cart.Item `json:"items"`
	Subtotal string      `json:"subtotal"`
	Currency string      `json:"currency"`
}

func cartJSON(c *cart.Cart) cartResponse {
	return cartResponse{
		Items:    c.Items,
		Subtotal: c.Subtotal().StringFixed(2),
		Currency: "TRY",
	}
}

func (s *Server) getCart(c *gin.Context) {
	claims := claimsFrom(c)
	userCart, err := s.carts.Get(c.Request.Context(), claims.UID)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, cartJSON(userCart))
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Qty       int    `json:"qty" binding:"required,min=1"`
}

// addCartItem snapshots the product's current price onto the line; the
// snapshot is never re-validated against later price edits. Quantity is
// clamped to available stock.
func (s *Server) addCartItem(c *gin.Context) {
	claims := claimsFrom(c)
	var req addCartItemRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	p, err := s.store.Product(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.logger.Error("Failed to get product", zap.String("id", req.ProductID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get product"})
		return
	}
	if p.Hidden && !isAdmin(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if p.Stock < 1 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "product is out of stock"})
		return
	}

	qty := req.Qty
	if qty > p.Stock {
		qty = p.Stock
	}

	userCart, err := s.carts.Get(ctx, claims.UID)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}
	if err := userCart.Add(cart.Item{
		ProductID:     p.ID,
		Qty:           qty,
		SnapshotPrice: p.Price,
		Currency:      p.Currency,
	}); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.carts.Save(ctx, claims.UID, userCart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save cart"})
		return
	}

	c.JSON(http.StatusOK, cartJSON(userCart))
}

func (s *Server) updateCartItem(c *gin.Context) {
	claims := claimsFrom(c)
	productID := c.Param("productId")
	var req struct {
		Qty int `json:"qty" binding:"required,min=1"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	userCart, err := s.carts.Get(ctx, claims.UID)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}
	if err := userCart.UpdateQty(productID, req.Qty); err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart line not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.carts.Save(ctx, claims.UID, userCart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save cart"})
		return
	}

	c.JSON(http.StatusOK, cartJSON(userCart))
}

func (s *Server) removeCartItem(c *gin.Context) {
	claims := claimsFrom(c)
	productID := c.Param("productId")

	ctx := c.Request.Context()
	userCart, err := s.carts.Get(ctx, claims.UID)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}
	userCart.Remove(productID)
	if err := s.carts.Save(ctx, claims.UID, userCart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save cart"})
		return
	}

	c.JSON(http.StatusOK, cartJSON(userCart))
}

func (s *Server) clearCart(c *gin.Context) {
	claims := claimsFrom(c)
	if err := s.carts.Clear(c.Request.Context(), claims.UID); err != nil {
		s.logger.Error("Failed to clear cart", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
