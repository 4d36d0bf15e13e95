package models

import (
	"gorm.io/gorm"
)

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
}

func (Category) TableName() string {
	return "categories"
}

// Product carries a live stock counter. StockQuantity never goes below zero;
// all mutations go through the store's conditional AdjustStock update.
// Products are soft-deleted so historical order lines keep a valid reference.
type Product struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(200);not null" json:"name"`
	Description   string         `gorm:"type:varchar(2000)" json:"description"`
	Price         float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL      string         `gorm:"type:varchar(500)" json:"image_url"`
	CategoryID    *uint          `gorm:"index" json:"category_id,omitempty"`
	Category      *Category      `json:"category,omitempty"`
	StockQuantity int            `gorm:"not null;default:0" json:"stock_quantity"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
