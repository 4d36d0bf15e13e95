package order

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/example/onlineshop/pkg/events"
	"github.com/example/onlineshop/pkg/models"
	"go.uber.org/zap"
)

// Store is the slice of the relational store the workflow needs. Every
// method invoked from inside Transact runs in the same database transaction.
type Store interface {
	// Transact runs fn inside one atomic unit: either every mutation fn
	// performs commits, or none of them do.
	Transact(ctx context.Context, fn func(tx Store) error) error

	CartLines(ctx context.Context, userID uint) ([]models.CartItem, error)
	ClearCart(ctx context.Context, userID uint, productIDs []uint) error

	ProductByID(ctx context.Context, productID uint) (*models.Product, error)
	// AdjustStock applies delta to the product's stock as one conditional
	// update. It returns ErrWouldGoNegative instead of driving the counter
	// below zero, and ErrNotFound for an unknown product.
	AdjustStock(ctx context.Context, productID uint, delta int) error

	CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem) error
	OrderByID(ctx context.Context, orderID uint) (*models.Order, error)
	OrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	// SetOrderStatus transitions orderID from one status to another and
	// fails with ErrInvalidState when the order is no longer in `from`.
	SetOrderStatus(ctx context.Context, orderID uint, from, to models.OrderStatus) error
}

// EventSink publishes domain events fire-and-forget; implementations log
// delivery failures instead of surfacing them.
type EventSink interface {
	SendOrderEvent(ev *events.OrderEvent)
}

// Auditor records an audit trail entry. Best-effort, like the event sink.
type Auditor interface {
	Record(ctx context.Context, action string, entityID string, data map[string]interface{}) error
}

// Workflow converts a user's cart into an order and reconciles inventory.
// It owns the only multi-step consistency contract in the system: stock
// decrement, order-line creation and cart clearing commit together or not
// at all.
type Workflow struct {
	store  Store
	sink   EventSink
	audit  Auditor
	logger *zap.Logger
	now    func() time.Time
}

func NewWorkflow(store Store, sink EventSink, audit Auditor, logger *zap.Logger) *Workflow {
	return &Workflow{
		store:  store,
		sink:   sink,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// CreateOrder places an order for everything in the user's cart, delivered
// to deliveryAddress. The total is frozen from the unit prices current at
// call time. On any failure the cart, the stock and the order ledger are
// left untouched.
func (w *Workflow) CreateOrder(ctx context.Context, user *models.User, deliveryAddress string) (*models.Order, error) {
	var created *models.Order

	err := w.store.Transact(ctx, func(tx Store) error {
		lines, err := tx.CartLines(ctx, user.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Validate every line against live stock before mutating anything,
		// failing at the first line that cannot be covered.
		products := make([]*models.Product, len(lines))
		var total float64
		for i, line := range lines {
			p, err := tx.ProductByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if p.StockQuantity < line.Quantity {
				return &InsufficientStockError{Product: p.Name}
			}
			products[i] = p
			total += p.Price * float64(line.Quantity)
		}

		o := &models.Order{
			UserID:          user.ID,
			DeliveryAddress: deliveryAddress,
			Status:          models.StatusProcessing,
			TotalAmount:     total,
			OrderDate:       w.now(),
		}
		items := make([]models.OrderItem, len(lines))
		productIDs := make([]uint, len(lines))
		for i, line := range lines {
			items[i] = models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     products[i].Price,
			}
			productIDs[i] = line.ProductID
		}
		if err := tx.CreateOrder(ctx, o, items); err != nil {
			return err
		}

		// The conditional decrement re-checks stock at write time, so a
		// concurrent order for the same product cannot oversell: whoever
		// commits second observes the reduced counter and aborts here.
		for i, line := range lines {
			if err := tx.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
				if errors.Is(err, ErrWouldGoNegative) {
					return &InsufficientStockError{Product: products[i].Name}
				}
				return err
			}
		}

		if err := tx.ClearCart(ctx, user.ID, productIDs); err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("order created",
		zap.Uint("order_id", created.ID),
		zap.Uint("user_id", user.ID),
		zap.Float64("total_amount", created.TotalAmount))

	w.emitOrderEvent(events.OrderCreated, created, user)
	w.recordAudit(created, "create_order", user.ID)

	return created, nil
}

// CancelOrder cancels one of the user's orders while it is still in
// Processing, returning every line's quantity to the product's stock.
func (w *Workflow) CancelOrder(ctx context.Context, orderID uint, user *models.User) error {
	var cancelled *models.Order

	err := w.store.Transact(ctx, func(tx Store) error {
		o, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != user.ID {
			return ErrNotFound
		}
		if o.Status != models.StatusProcessing {
			return ErrInvalidState
		}

		items, err := tx.OrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		// Conditional transition: a racing cancel or fulfillment update
		// loses here and the restock above rolls back with it.
		if err := tx.SetOrderStatus(ctx, orderID, models.StatusProcessing, models.StatusCancelled); err != nil {
			return err
		}

		o.Status = models.StatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return err
	}

	w.logger.Info("order cancelled",
		zap.Uint("order_id", orderID),
		zap.Uint("user_id", user.ID))

	w.emitOrderEvent(events.OrderCancelled, cancelled, user)
	w.recordAudit(cancelled, "cancel_order", user.ID)

	return nil
}

func (w *Workflow) emitOrderEvent(eventType string, o *models.Order, user *models.User) {
	if w.sink == nil {
		return
	}
	w.sink.SendOrderEvent(&events.OrderEvent{
		EventType:       eventType,
		OrderID:         o.ID,
		UserID:          o.UserID,
		UserLogin:       user.Login,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		DeliveryAddress: o.DeliveryAddress,
	})
}

func (w *Workflow) recordAudit(o *models.Order, action string, userID uint) {
	if w.audit == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := w.audit.Record(ctx, action, strconv.FormatUint(uint64(o.ID), 10), map[string]interface{}{
			"order_id":     o.ID,
			"user_id":      userID,
			"total_amount": o.TotalAmount,
			"status":       string(o.Status),
		})
		if err != nil {
			w.logger.Warn("audit record failed", zap.String("action", action), zap.Error(err))
		}
	}()
}
