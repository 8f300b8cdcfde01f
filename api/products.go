package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/preluvia/storefront/pkg/catalog"
	"github.com/preluvia/storefront/pkg/models"
)

// productResponse exposes the image URL list that the model keeps as a JSON
// column.
type productResponse struct {
	models.Product
	ImageURLs []string `json:"image_urls"`
}

func productJSON(p models.Product) productResponse {
	return productResponse{Product: p, ImageURLs: p.ImageURLList()}
}

func (s *Server) listProducts(c *gin.Context) {
	key, err := catalog.ParseSortKey(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	products, err := s.store.Products(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	visible := catalog.Visible(products, isAdmin(c))
	visible = catalog.Search(visible, c.Query("q"))
	s.sorter.Sort(visible, key)

	out := make([]productResponse, len(visible))
	for i, p := range visible {
		out[i] = productJSON(p)
	}
	c.JSON(http.StatusOK, gin.H{"products": out, "total": len(out)})
}

func (s *Server) getProduct(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	p, err := s.cache.GetProductCache(ctx, id)
	if err != nil {
		p, err = s.store.Product(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			s.logger.Error("Failed to get product", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get product"})
			return
		}
		if err := s.cache.CacheProduct(ctx, p, s.config.Catalog.CacheTTL); err != nil {
			s.logger.Warn("Failed to cache product", zap.String("id", id), zap.Error(err))
		}
	}

	// Hidden products stay orderable through admin screens but do not exist
	// for customers.
	if p.Hidden && !isAdmin(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, productJSON(*p))
}

type productRequest struct {
	Name              string          `json:"name" binding:"required"`
	Description       string          `json:"description"`
	Ingredients       string          `json:"ingredients"`
	AllergenInfo      string          `json:"allergen_info"`
	OriginCountry     string          `json:"origin_country"`
	StorageConditions string          `json:"storage_conditions"`
	ImportingCompany  string          `json:"importing_company"`
	Address           string          `json:"address"`
	NetWeight         string          `json:"net_weight"`
	Energy            string          `json:"energy"`
	Nutrition         string          `json:"nutrition"`
	Stock             int             `json:"stock"`
	Price             decimal.Decimal `json:"price"`
	SKU               string          `json:"sku"`
	ImageURLs         []string        `json:"image_urls"`
	Hidden            bool            `json:"hidden"`
}

func (req *productRequest) apply(p *models.Product) error {
	p.Name = req.Name
	p.Description = req.Description
	p.Ingredients = req.Ingredients
	p.AllergenInfo = req.AllergenInfo
	p.OriginCountry = req.OriginCountry
	p.StorageConditions = req.StorageConditions
	p.ImportingCompany = req.ImportingCompany
	p.Address = req.Address
	p.NetWeight = req.NetWeight
	p.Energy = req.Energy
	p.Nutrition = req.Nutrition
	p.Stock = req.Stock
	p.Price = req.Price
	p.SKU = req.SKU
	p.Hidden = req.Hidden
	return p.SetImageURLs(req.ImageURLs)
}

func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Stock < 0 || req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stock and price must be non-negative"})
		return
	}

	now := time.Now()
	p := models.Product{
		ID:        uuid.New().String(),
		Currency:  "TRY",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := req.apply(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.CreateProduct(c.Request.Context(), &p); err != nil {
		s.logger.Error("Failed to create product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
		return
	}

	go s.audit.ProductEvent(context.Background(), "product_created", p.ID, map[string]interface{}{
		"name": p.Name, "sku": p.SKU,
	})

	c.JSON(http.StatusCreated, productJSON(p))
}

func (s *Server) updateProduct(c *gin.Context) {
	id := c.Param("id")
	var req productRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Stock < 0 || req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stock and price must be non-negative"})
		return
	}

	ctx := c.Request.Context()
	p, err := s.store.Product(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.logger.Error("Failed to get product", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get product"})
		return
	}

	if err := req.apply(p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.UpdatedAt = time.Now()

	if err := s.store.SaveProduct(ctx, p); err != nil {
		s.logger.Error("Failed to save product", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save product"})
		return
	}
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.String("id", id), zap.Error(err))
	}

	go s.audit.ProductEvent(context.Background(), "product_updated", p.ID, map[string]interface{}{
		"name": p.Name,
	})

	c.JSON(http.StatusOK, productJSON(*p))
}

// deleteProduct removes the live record outright. Historical orders keep
// their OrderedProduct snapshots.
func (s *Server) deleteProduct(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.logger.Error("Failed to delete product", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
		return
	}
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.String("id", id), zap.Error(err))
	}

	go s.audit.ProductEvent(context.Background(), "product_deleted", id, nil)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) setProductVisibility(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := s.store.SetProductHidden(ctx, id, req.Hidden); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.logger.Error("Failed to update visibility", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update visibility"})
		return
	}
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.String("id", id), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "hidden": req.Hidden})
}
