package repository

import (
	"context"

	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
)

func (s *Store) CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = o.ID
	}
	return s.db.WithContext(ctx).Create(&items).Error
}

func (s *Store) OrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := s.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, asNotFound(err)
	}
	return &o, nil
}

func (s *Store) OrdersForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).Order("order_date DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) OrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := s.db.WithContext(ctx).Preload("Product").
		Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SetOrderStatus transitions the order only when it is still in `from`,
// so two racing transitions cannot both win.
func (s *Store) SetOrderStatus(ctx context.Context, orderID uint, from, to models.OrderStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return order.ErrInvalidState
	}
	return nil
}
