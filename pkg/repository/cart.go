package repository

import (
	"context"

	"github.com/example/onlineshop/pkg/models"
)

func (s *Store) CartLines(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var lines []models.CartItem
	if err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).Order("id").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) CartLine(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	var line models.CartItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&line).Error; err != nil {
		return nil, asNotFound(err)
	}
	return &line, nil
}

func (s *Store) CartLineByID(ctx context.Context, id uint) (*models.CartItem, error) {
	var line models.CartItem
	if err := s.db.WithContext(ctx).Preload("Product").First(&line, id).Error; err != nil {
		return nil, asNotFound(err)
	}
	return &line, nil
}

func (s *Store) SaveCartLine(ctx context.Context, line *models.CartItem) error {
	return s.db.WithContext(ctx).Save(line).Error
}

func (s *Store) DeleteCartLine(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.CartItem{}, id).Error
}

func (s *Store) ClearCart(ctx context.Context, userID uint, productIDs []uint) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{}).Error
}
