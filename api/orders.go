package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/preluvia/storefront/pkg/models"
	"github.com/preluvia/storefront/pkg/order"
)

type orderResponse struct {
	models.Order
	Items           []models.OrderItem `json:"items"`
	OrderedProducts []string           `json:"ordered_products"`
}

func orderJSON(o models.Order) orderResponse {
	items, _ := o.ItemList()
	return orderResponse{
		Order:           o,
		Items:           items,
		OrderedProducts: o.OrderedProductIDs(),
	}
}

type checkoutRequest struct {
	ClientInfoID string `json:"client_info_id"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	CompanyName  string `json:"company_name"`
	MersisNo     string `json:"mersis_no"`
	TaxNo        string `json:"tax_no"`
	Address      string `json:"address"`
}

// checkout submits the user's cart as a NEW order. Customer fields come from
// a saved profile when client_info_id is set, otherwise from the request
// body.
func (s *Server) checkout(c *gin.Context) {
	claims := claimsFrom(c)
	var req checkoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	in := order.CheckoutInput{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Email:        req.Email,
		CompanyName:  req.CompanyName,
		MersisNo:     req.MersisNo,
		TaxNo:        req.TaxNo,
		Address:      req.Address,
	}
	if req.ClientInfoID != "" {
		info, err := s.store.ClientInfo(ctx, req.ClientInfoID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "client info not found"})
				return
			}
			s.logger.Error("Failed to get client info", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get client info"})
			return
		}
		if info.UserID != claims.UID {
			c.JSON(http.StatusForbidden, gin.H{"error": "client info belongs to a different user"})
			return
		}
		in = order.CheckoutInput{
			CustomerName: info.Name,
			Phone:        info.Phone,
			Email:        info.Email,
			CompanyName:  info.CompanyName,
			MersisNo:     info.MersisNo,
			TaxNo:        info.TaxNo,
			Address:      info.Address,
		}
	}

	o, err := s.orders.Checkout(ctx, claims.UID, in)
	if err != nil {
		s.writeOrderError(c, err)
		return
	}

	// The first order creates the back-office account record.
	if _, err := s.store.User(ctx, claims.UID); errors.Is(err, models.ErrNotFound) {
		now := time.Now()
		u := &models.User{
			ID:          claims.UID,
			Email:       claims.Email,
			Role:        claims.Role,
			DisplayName: o.CustomerName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.UpsertUser(ctx, u); err != nil {
			s.logger.Warn("Failed to record client account",
				zap.String("user_id", claims.UID), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, orderJSON(*o))
}

func (s *Server) listMyOrders(c *gin.Context) {
	claims := claimsFrom(c)
	orders, err := s.orders.OrdersByUser(c.Request.Context(), claims.UID)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.String("user_id", claims.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = orderJSON(o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "total": len(out)})
}

func (s *Server) getOrder(c *gin.Context) {
	claims := claimsFrom(c)
	id := c.Param("id")

	ctx := c.Request.Context()
	o, err := s.orders.Order(ctx, id)
	if err != nil {
		s.writeOrderError(c, err)
		return
	}
	if o.UserID != claims.UID && !isAdmin(c) {
		// Do not leak order existence to other customers.
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	snaps, err := s.store.OrderedProductsByOrder(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load ordered products", zap.String("order_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":            orderJSON(*o),
		"ordered_products": snaps,
	})
}

func (s *Server) cancelOrder(c *gin.Context) {
	claims := claimsFrom(c)
	o, err := s.orders.Cancel(c.Request.Context(), c.Param("id"), claims.UID)
	if err != nil {
		s.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderJSON(*o))
}

func (s *Server) listAllOrders(c *gin.Context) {
	orders, err := s.orders.Orders(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = orderJSON(o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "total": len(out)})
}

func (s *Server) confirmOrder(c *gin.Context) {
	o, err := s.orders.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderJSON(*o))
}

func (s *Server) closeOrder(c *gin.Context) {
	o, err := s.orders.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderJSON(*o))
}

// writeOrderError maps order service errors onto HTTP statuses.
func (s *Server) writeOrderError(c *gin.Context, err error) {
	var validation *order.ValidationError
	var stock *order.InsufficientStockError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "fields": validation.Fields})
	case errors.As(err, &stock):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": stock.Error(), "products": stock.Products})
	case errors.Is(err, order.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case errors.Is(err, order.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "order belongs to a different user"})
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "order status does not allow this transition"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	default:
		s.logger.Error("Order operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order operation failed"})
	}
}
