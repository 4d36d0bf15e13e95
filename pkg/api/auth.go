package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Login    string `json:"login" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.UserByLogin(ctx, req.Login); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "login_taken"})
		return
	} else if !errors.Is(err, order.ErrNotFound) {
		s.respondError(c, err)
		return
	}
	if _, err := s.store.UserByEmail(ctx, req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		return
	} else if !errors.Is(err, order.ErrNotFound) {
		s.respondError(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.respondError(c, err)
		return
	}

	user := &models.User{
		Login:        req.Login,
		PasswordHash: string(hash),
		Email:        req.Email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Address:      req.Address,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("login", user.Login))
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := s.store.UserByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		s.respondError(c, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		return
	}

	token := uuid.NewString()
	if err := s.sessions.SaveSession(ctx, token, user.ID, s.config.Session.TTL); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("user logged in", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
		"admin": user.IsAdmin(),
	})
}

func (s *Server) logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := s.sessions.DeleteSession(c.Request.Context(), token); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
