package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	DeliveryAddress string `json:"delivery_address" binding:"required,max=500"`
}

func (s *Server) createOrder(c *gin.Context) {
	user := currentUser(c)
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := s.workflow.CreateOrder(c.Request.Context(), user, req.DeliveryAddress)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) listOrders(c *gin.Context) {
	user := currentUser(c)
	orders, err := s.store.OrdersForUser(c.Request.Context(), user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) getOrder(c *gin.Context) {
	user := currentUser(c)
	id, ok := pathID(c)
	if !ok {
		return
	}

	o, err := s.store.OrderByID(c.Request.Context(), id)
	if err != nil || o.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) getOrderItems(c *gin.Context) {
	user := currentUser(c)
	id, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	o, err := s.store.OrderByID(ctx, id)
	if err != nil || o.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	items, err := s.store.OrderItems(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) cancelOrder(c *gin.Context) {
	user := currentUser(c)
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.workflow.CancelOrder(c.Request.Context(), id, user); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
