// Package api is the HTTP surface of the storefront: the public catalog, the
// customer cart/checkout/account routes, and the admin back-office.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/preluvia/storefront/pkg/cart"
	"github.com/preluvia/storefront/pkg/catalog"
	"github.com/preluvia/storefront/pkg/config"
	"github.com/preluvia/storefront/pkg/models"
	"github.com/preluvia/storefront/pkg/order"
	"github.com/preluvia/storefront/pkg/repository"
)

// Store is the entity persistence the handlers use directly; the gorm
// repository satisfies it.
type Store interface {
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	SaveProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	SetProductHidden(ctx context.Context, id string, hidden bool) error
	OrderedProductsByOrder(ctx context.Context, orderID string) ([]models.OrderedProduct, error)
	ClientInfos(ctx context.Context, userID string) ([]models.ClientInfo, error)
	ClientInfo(ctx context.Context, id string) (*models.ClientInfo, error)
	CreateClientInfo(ctx context.Context, info *models.ClientInfo) error
	SaveClientInfo(ctx context.Context, info *models.ClientInfo) error
	DeleteClientInfo(ctx context.Context, id string) error
	UpsertUser(ctx context.Context, u *models.User) error
	User(ctx context.Context, id string) (*models.User, error)
}

// ProductCache is the Redis read-through cache for product detail reads.
type ProductCache interface {
	GetProductCache(ctx context.Context, id string) (*models.Product, error)
	CacheProduct(ctx context.Context, p *models.Product, ttl time.Duration) error
	InvalidateProduct(ctx context.Context, id string) error
}

// Auditor records admin product mutations and serves the back-office audit
// trail.
type Auditor interface {
	ProductEvent(ctx context.Context, action, productID string, data map[string]interface{})
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	router *gin.Engine

	store  Store
	cache  ProductCache
	carts  *cart.Store
	orders *order.Service
	audit  Auditor
	sorter *catalog.Sorter
}

func NewServer(cfg *config.Config, logger *zap.Logger, store Store, cache ProductCache,
	carts *cart.Store, orders *order.Service, audit Auditor) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
		store:  store,
		cache:  cache,
		carts:  carts,
		orders: orders,
		audit:  audit,
		sorter: catalog.NewSorter(cfg.Catalog.Locale),
	}
}

func (s *Server) SetupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")
	{
		// Catalog is public; admins additionally see hidden products.
		v1.GET("/products", s.optionalAuth(), s.listProducts)
		v1.GET("/products/:id", s.optionalAuth(), s.getProduct)

		authed := v1.Group("")
		authed.Use(s.requireAuth())
		{
			authed.GET("/cart", s.getCart)
			authed.POST("/cart/items", s.addCartItem)
			authed.PUT("/cart/items/:productId", s.updateCartItem)
			authed.DELETE("/cart/items/:productId", s.removeCartItem)
			authed.DELETE("/cart", s.clearCart)

			authed.POST("/orders", s.checkout)
			authed.GET("/orders", s.listMyOrders)
			authed.GET("/orders/:id", s.getOrder)
			authed.POST("/orders/:id/cancel", s.cancelOrder)

			authed.GET("/account/infos", s.listClientInfos)
			authed.POST("/account/infos", s.createClientInfo)
			authed.PUT("/account/infos/:id", s.updateClientInfo)
			authed.DELETE("/account/infos/:id", s.deleteClientInfo)
		}

		admin := v1.Group("/admin")
		admin.Use(s.requireAuth(), s.requireAdmin())
		{
			admin.POST("/products", s.createProduct)
			admin.PUT("/products/:id", s.updateProduct)
			admin.DELETE("/products/:id", s.deleteProduct)
			admin.PUT("/products/:id/visibility", s.setProductVisibility)

			admin.GET("/orders", s.listAllOrders)
			admin.POST("/orders/:id/confirm", s.confirmOrder)
			admin.POST("/orders/:id/close", s.closeOrder)

			admin.GET("/clients", s.listClients)
			admin.GET("/clients/:id", s.getClient)
			admin.GET("/stats", s.revenueStats)
			admin.GET("/audit/:id", s.listAuditLogs)
		}
	}

	// Swagger
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("API server starting", zap.String("address", addr))
	return s.router.Run(addr)
}

// Router is exposed for tests driving the handlers through httptest.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
