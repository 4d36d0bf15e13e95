package repository

import (
	"context"

	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
	"gorm.io/gorm"
)

func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, asNotFound(err)
	}
	return &category, nil
}

func (s *Store) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, asNotFound(err)
	}
	return &category, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return s.db.WithContext(ctx).Create(category).Error
}

func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Category").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ProductsByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Category").
		Where("category_id = ?", categoryID).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	var products []models.Product
	pattern := "%" + query + "%"
	if err := s.db.WithContext(ctx).Preload("Category").
		Where("name LIKE ? OR description LIKE ?", pattern, pattern).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&product, id).Error; err != nil {
		return nil, asNotFound(err)
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Create(product).Error
}

func (s *Store) SaveProduct(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Save(product).Error
}

// DeleteProduct soft-deletes; the row survives so historical order lines
// keep a resolvable product id.
func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return order.ErrNotFound
	}
	return nil
}

// AdjustStock applies delta in a single conditional update so that the
// check and the write cannot be interleaved by a concurrent order. It is
// unscoped: the stock counter of an archived product still accepts the
// restock from a cancellation.
func (s *Store) AdjustStock(ctx context.Context, productID uint, delta int) error {
	res := s.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
		Where("id = ? AND stock_quantity + ? >= 0", productID, delta).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Unscoped().Model(&models.Product{}).
			Where("id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return order.ErrNotFound
		}
		return order.ErrWouldGoNegative
	}
	return nil
}
