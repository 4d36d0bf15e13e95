package api

import (
	"errors"
	"net/http"

	"github.com/example/onlineshop/pkg/events"
	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.store.Categories(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

type categoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

func (s *Server) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.CategoryByName(ctx, req.Name); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "category_exists"})
		return
	} else if !errors.Is(err, order.ErrNotFound) {
		s.respondError(c, err)
		return
	}

	category := &models.Category{Name: req.Name}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// listProducts serves the catalog through the read-through cache; a miss
// falls back to the store and repopulates the cache.
func (s *Server) listProducts(c *gin.Context) {
	ctx := c.Request.Context()
	if products, ok := s.cache.CachedProducts(ctx); ok {
		c.JSON(http.StatusOK, products)
		return
	}

	products, err := s.store.Products(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.cache.CacheProducts(ctx, products, s.config.Cache.ProductTTL); err != nil {
		s.logger.Warn("failed to cache product list", zap.Error(err))
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) listProductsByCategory(c *gin.Context) {
	categoryID, ok := pathID(c)
	if !ok {
		return
	}
	products, err := s.store.ProductsByCategory(c.Request.Context(), categoryID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) searchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}
	products, err := s.store.SearchProducts(c.Request.Context(), query)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

type productRequest struct {
	Name          string  `json:"name" binding:"required,max=200"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" binding:"required,gte=0"`
	ImageURL      string  `json:"image_url"`
	CategoryID    *uint   `json:"category_id"`
	StockQuantity int     `json:"stock_quantity" binding:"gte=0"`
}

func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	product := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		ImageURL:      req.ImageURL,
		CategoryID:    req.CategoryID,
		StockQuantity: req.StockQuantity,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.cache.InvalidateProducts(ctx); err != nil {
		s.logger.Warn("failed to invalidate product cache", zap.Error(err))
	}
	s.emitProductEvent(c, events.ProductCreated, product)

	c.JSON(http.StatusCreated, product)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	product, err := s.store.ProductByID(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.ImageURL = req.ImageURL
	product.CategoryID = req.CategoryID
	product.StockQuantity = req.StockQuantity
	product.Category = nil
	if err := s.store.SaveProduct(ctx, product); err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.cache.InvalidateProducts(ctx); err != nil {
		s.logger.Warn("failed to invalidate product cache", zap.Error(err))
	}
	s.emitProductEvent(c, events.ProductUpdated, product)

	c.JSON(http.StatusOK, product)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	product, err := s.store.ProductByID(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	// Event first, like the listing invalidation: consumers learn about
	// the removal even if they only see the archived product afterwards.
	s.emitProductEvent(c, events.ProductDeleted, product)

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.cache.InvalidateProducts(ctx); err != nil {
		s.logger.Warn("failed to invalidate product cache", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) emitProductEvent(c *gin.Context, eventType string, product *models.Product) {
	ev := &events.ProductEvent{
		EventType:     eventType,
		ProductID:     product.ID,
		ProductName:   product.Name,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
		CategoryID:    product.CategoryID,
	}
	if product.CategoryID != nil {
		if category, err := s.store.CategoryByID(c.Request.Context(), *product.CategoryID); err == nil {
			ev.CategoryName = category.Name
		}
	}
	s.sink.SendProductEvent(ev)
}
