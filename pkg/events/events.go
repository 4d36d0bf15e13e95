package events

import (
	"time"
)

// Topic per entity kind; events are keyed by entity id so per-entity
// ordering survives partitioning.
const (
	TopicOrders   = "orders"
	TopicProducts = "products"
	TopicUsers    = "users"
	TopicCart     = "cart"
)

const (
	OrderCreated   = "CREATED"
	OrderCancelled = "CANCELLED"
	OrderDelivered = "DELIVERED"

	ProductCreated = "CREATED"
	ProductUpdated = "UPDATED"
	ProductDeleted = "DELETED"

	CartAdded   = "ADDED"
	CartUpdated = "UPDATED"
	CartRemoved = "REMOVED"
)

type OrderEvent struct {
	EventType       string    `json:"eventType"`
	OrderID         uint      `json:"orderId"`
	UserID          uint      `json:"userId"`
	UserLogin       string    `json:"userLogin"`
	TotalAmount     float64   `json:"totalAmount"`
	Status          string    `json:"status"`
	DeliveryAddress string    `json:"deliveryAddress"`
	Timestamp       time.Time `json:"timestamp"`
}

type ProductEvent struct {
	EventType     string    `json:"eventType"`
	ProductID     uint      `json:"productId"`
	ProductName   string    `json:"productName"`
	Price         float64   `json:"price"`
	CategoryID    *uint     `json:"categoryId,omitempty"`
	CategoryName  string    `json:"categoryName,omitempty"`
	StockQuantity int       `json:"stockQuantity"`
	Timestamp     time.Time `json:"timestamp"`
}

type CartEvent struct {
	EventType   string    `json:"eventType"`
	UserID      uint      `json:"userId"`
	UserLogin   string    `json:"userLogin"`
	ProductID   uint      `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	Timestamp   time.Time `json:"timestamp"`
}
