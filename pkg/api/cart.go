package api

import (
	"errors"
	"net/http"

	"github.com/example/onlineshop/pkg/events"
	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
	"github.com/gin-gonic/gin"
)

func (s *Server) getCart(c *gin.Context) {
	user := currentUser(c)
	lines, err := s.store.CartLines(c.Request.Context(), user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

type addToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// addToCart merges into an existing line for the same product instead of
// creating a duplicate. The stock check here is advisory UX; the
// authoritative check happens when the order is placed.
func (s *Server) addToCart(c *gin.Context) {
	user := currentUser(c)
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	product, err := s.store.ProductByID(ctx, req.ProductID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	line, err := s.store.CartLine(ctx, user.ID, req.ProductID)
	eventType := events.CartAdded
	switch {
	case err == nil:
		line.Quantity += req.Quantity
		eventType = events.CartUpdated
	case errors.Is(err, order.ErrNotFound):
		line = &models.CartItem{
			UserID:    user.ID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
		}
	default:
		s.respondError(c, err)
		return
	}

	if product.StockQuantity < line.Quantity {
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_stock", "product": product.Name})
		return
	}

	if err := s.store.SaveCartLine(ctx, line); err != nil {
		s.respondError(c, err)
		return
	}

	s.emitCartEvent(eventType, user, product, line.Quantity)
	c.JSON(http.StatusOK, line)
}

type updateCartRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

func (s *Server) updateCartLine(c *gin.Context) {
	user := currentUser(c)
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	line, err := s.store.CartLineByID(ctx, id)
	if err != nil || line.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	if line.Product != nil && line.Product.StockQuantity < req.Quantity {
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_stock", "product": line.Product.Name})
		return
	}

	line.Quantity = req.Quantity
	product := line.Product
	line.Product = nil
	if err := s.store.SaveCartLine(ctx, line); err != nil {
		s.respondError(c, err)
		return
	}

	if product != nil {
		s.emitCartEvent(events.CartUpdated, user, product, line.Quantity)
	}
	c.JSON(http.StatusOK, line)
}

func (s *Server) removeFromCart(c *gin.Context) {
	user := currentUser(c)
	id, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	line, err := s.store.CartLineByID(ctx, id)
	if err != nil || line.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	if line.Product != nil {
		s.emitCartEvent(events.CartRemoved, user, line.Product, line.Quantity)
	}

	if err := s.store.DeleteCartLine(ctx, id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) emitCartEvent(eventType string, user *models.User, product *models.Product, quantity int) {
	s.sink.SendCartEvent(&events.CartEvent{
		EventType:   eventType,
		UserID:      user.ID,
		UserLogin:   user.Login,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.Price,
	})
}
