package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/onlineshop/pkg/order"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// respondError maps the workflow error taxonomy onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	var stockErr *order.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "insufficient_stock",
			"product": stockErr.Product,
		})
	case errors.Is(err, order.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart_empty"})
	case errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, order.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_status"})
	case errors.Is(err, order.ErrWouldGoNegative):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_stock"})
	default:
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
