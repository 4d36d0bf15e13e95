package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/onlineshop/pkg/config"
	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Store is the MySQL-backed relational store. It carries every query the
// HTTP layer needs and implements order.Store, whose Transact method is the
// atomic unit the order workflow runs in.
type Store struct {
	db *gorm.DB
}

var _ order.Store = (*Store)(nil)

func NewStore(cfg *config.MySQLConfig) (*Store, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Transact runs fn in one database transaction; fn receives a Store bound
// to that transaction.
func (s *Store) Transact(ctx context.Context, fn func(tx order.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// asNotFound maps gorm's record-miss onto the workflow error taxonomy.
func asNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return order.ErrNotFound
	}
	return err
}
