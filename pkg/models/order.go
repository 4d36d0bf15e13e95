package models

import (
	"time"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// CanTransitionTo encodes the order lifecycle:
// Processing -> {Cancelled, Shipped}, Shipped -> Delivered,
// Cancelled and Delivered are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusProcessing:
		return next == StatusCancelled || next == StatusShipped
	case StatusShipped:
		return next == StatusDelivered
	default:
		return false
	}
}

type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	UserID          uint        `gorm:"not null;index" json:"user_id"`
	DeliveryAddress string      `gorm:"type:varchar(500);not null" json:"delivery_address"`
	Status          OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	TotalAmount     float64     `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	OrderDate       time.Time   `gorm:"not null" json:"order_date"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem snapshots a cart line at purchase time. Price is the unit price
// the moment the order was placed and is never recomputed.
type OrderItem struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	OrderID   uint     `gorm:"not null;index" json:"order_id"`
	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Product   *Product `json:"product,omitempty"`
	Quantity  int      `gorm:"not null" json:"quantity"`
	Price     float64  `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
