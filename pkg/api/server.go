package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/onlineshop/pkg/config"
	"github.com/example/onlineshop/pkg/events"
	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
	"github.com/example/onlineshop/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Store is everything the HTTP handlers need from the relational store.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByLogin(ctx context.Context, login string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)

	Categories(ctx context.Context) ([]models.Category, error)
	CategoryByID(ctx context.Context, id uint) (*models.Category, error)
	CategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error

	Products(ctx context.Context) ([]models.Product, error)
	ProductsByCategory(ctx context.Context, categoryID uint) ([]models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]models.Product, error)
	ProductByID(ctx context.Context, id uint) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	SaveProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error

	CartLines(ctx context.Context, userID uint) ([]models.CartItem, error)
	CartLine(ctx context.Context, userID, productID uint) (*models.CartItem, error)
	CartLineByID(ctx context.Context, id uint) (*models.CartItem, error)
	SaveCartLine(ctx context.Context, line *models.CartItem) error
	DeleteCartLine(ctx context.Context, id uint) error

	OrdersForUser(ctx context.Context, userID uint) ([]models.Order, error)
	OrderByID(ctx context.Context, id uint) (*models.Order, error)
	OrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error)
}

// Sessions resolves and maintains the opaque session tokens handed out at
// login. Backed by the cache collaborator.
type Sessions interface {
	SaveSession(ctx context.Context, token string, userID uint, ttl time.Duration) error
	SessionUserID(ctx context.Context, token string) (uint, error)
	TouchSession(ctx context.Context, token string, ttl time.Duration) error
	DeleteSession(ctx context.Context, token string) error
}

// ProductCache is the read-through cache for catalog listings.
type ProductCache interface {
	CachedProducts(ctx context.Context) ([]models.Product, bool)
	CacheProducts(ctx context.Context, products []models.Product, ttl time.Duration) error
	InvalidateProducts(ctx context.Context) error
}

// EventSink publishes catalog and cart events fire-and-forget.
type EventSink interface {
	SendProductEvent(ev *events.ProductEvent)
	SendCartEvent(ev *events.CartEvent)
}

var (
	_ Store        = (*repository.Store)(nil)
	_ Sessions     = (*repository.RedisRepository)(nil)
	_ ProductCache = (*repository.RedisRepository)(nil)
	_ EventSink    = (*events.Producer)(nil)
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	store    Store
	sessions Sessions
	cache    ProductCache
	sink     EventSink
	workflow *order.Workflow
	router   *gin.Engine
}

func NewServer(cfg *config.Config, logger *zap.Logger, store Store, sessions Sessions,
	cache ProductCache, sink EventSink, workflow *order.Workflow) *Server {

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	router.Use(metricsMiddleware())

	return &Server{
		config:   cfg,
		logger:   logger,
		store:    store,
		sessions: sessions,
		cache:    cache,
		sink:     sink,
		workflow: workflow,
		router:   router,
	}
}

func (s *Server) SetupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", s.register)
			auth.POST("/login", s.login)
			auth.POST("/logout", s.requireAuth(), s.logout)
		}

		v1.GET("/categories", s.listCategories)
		v1.POST("/categories", s.requireAuth(), s.requireAdmin(), s.createCategory)

		products := v1.Group("/products")
		{
			products.GET("", s.listProducts)
			products.GET("/category/:id", s.listProductsByCategory)
			products.GET("/search", s.searchProducts)
			products.POST("", s.requireAuth(), s.requireAdmin(), s.createProduct)
			products.PUT("/:id", s.requireAuth(), s.requireAdmin(), s.updateProduct)
			products.DELETE("/:id", s.requireAuth(), s.requireAdmin(), s.deleteProduct)
		}

		cart := v1.Group("/cart", s.requireAuth())
		{
			cart.GET("", s.getCart)
			cart.POST("", s.addToCart)
			cart.PUT("/:id", s.updateCartLine)
			cart.DELETE("/:id", s.removeFromCart)
		}

		orders := v1.Group("/orders", s.requireAuth())
		{
			orders.POST("", s.createOrder)
			orders.GET("", s.listOrders)
			orders.GET("/:id", s.getOrder)
			orders.GET("/:id/items", s.getOrderItems)
			orders.POST("/:id/cancel", s.cancelOrder)
		}

		account := v1.Group("/account", s.requireAuth())
		{
			account.GET("", s.getAccount)
			account.PUT("", s.updateAccount)
			account.PUT("/password", s.changePassword)
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

// Router exposes the underlying engine for tests.
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
