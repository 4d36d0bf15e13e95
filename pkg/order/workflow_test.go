package order_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/onlineshop/pkg/events"
	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// shopState is the mutable world the fake store operates on.
type shopState struct {
	products   map[uint]*models.Product
	carts      map[uint][]models.CartItem
	orders     map[uint]*models.Order
	orderItems map[uint][]models.OrderItem
	nextOrder  uint
}

func (s *shopState) clone() shopState {
	out := shopState{
		products:   make(map[uint]*models.Product, len(s.products)),
		carts:      make(map[uint][]models.CartItem, len(s.carts)),
		orders:     make(map[uint]*models.Order, len(s.orders)),
		orderItems: make(map[uint][]models.OrderItem, len(s.orderItems)),
		nextOrder:  s.nextOrder,
	}
	for id, p := range s.products {
		cp := *p
		out.products[id] = &cp
	}
	for userID, lines := range s.carts {
		out.carts[userID] = append([]models.CartItem(nil), lines...)
	}
	for id, o := range s.orders {
		cp := *o
		out.orders[id] = &cp
	}
	for id, items := range s.orderItems {
		out.orderItems[id] = append([]models.OrderItem(nil), items...)
	}
	return out
}

// fakeStore serializes transactions with a mutex and rolls the state back
// to a snapshot when the transaction function fails, mirroring what the
// real store gets from database transactions.
type fakeStore struct {
	mu    sync.Mutex
	state shopState
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: shopState{
		products:   make(map[uint]*models.Product),
		carts:      make(map[uint][]models.CartItem),
		orders:     make(map[uint]*models.Order),
		orderItems: make(map[uint][]models.OrderItem),
		nextOrder:  1,
	}}
}

func (f *fakeStore) addProduct(p models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.state.products[p.ID] = &cp
}

func (f *fakeStore) seedCart(userID, productID uint, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.carts[userID] = append(f.state.carts[userID], models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

func (f *fakeStore) stockOf(productID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.products[productID].StockQuantity
}

func (f *fakeStore) Transact(ctx context.Context, fn func(tx order.Store) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := f.state.clone()
	if err := fn(&txView{state: &f.state}); err != nil {
		f.state = saved
		return err
	}
	return nil
}

func (f *fakeStore) CartLines(ctx context.Context, userID uint) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&txView{state: &f.state}).CartLines(ctx, userID)
}

func (f *fakeStore) ClearCart(ctx context.Context, userID uint, productIDs []uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&txView{state: &f.state}).ClearCart(ctx, userID, productIDs)
}

func (f *fakeStore) ProductByID(ctx context.Context, productID uint) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&txView{state: &f.state}).ProductByID(ctx, productID)
}

func (f *fakeStore) AdjustStock(ctx context.Context, productID uint, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&txView{state: &f.state}).AdjustStock(ctx, productID, delta)
}

func (f *fakeStore) CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&txView{state: &f.state}).CreateOrder(ctx, o, items)
}

func (f *fakeStore) OrderByID(ctx context.Context, orderID uint) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&txView{state: &f.state}).OrderByID(ctx, orderID)
}

func (f *fakeStore) OrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&txView{state: &f.state}).OrderItems(ctx, orderID)
}

func (f *fakeStore) SetOrderStatus(ctx context.Context, orderID uint, from, to models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (&txView{state: &f.state}).SetOrderStatus(ctx, orderID, from, to)
}

// txView operates on state already guarded by the owning fakeStore.
type txView struct {
	state *shopState
}

func (t *txView) Transact(ctx context.Context, fn func(tx order.Store) error) error {
	return fn(t)
}

func (t *txView) CartLines(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return append([]models.CartItem(nil), t.state.carts[userID]...), nil
}

func (t *txView) ClearCart(ctx context.Context, userID uint, productIDs []uint) error {
	drop := make(map[uint]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	var kept []models.CartItem
	for _, line := range t.state.carts[userID] {
		if !drop[line.ProductID] {
			kept = append(kept, line)
		}
	}
	t.state.carts[userID] = kept
	return nil
}

func (t *txView) ProductByID(ctx context.Context, productID uint) (*models.Product, error) {
	p, ok := t.state.products[productID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *txView) AdjustStock(ctx context.Context, productID uint, delta int) error {
	p, ok := t.state.products[productID]
	if !ok {
		return order.ErrNotFound
	}
	if p.StockQuantity+delta < 0 {
		return order.ErrWouldGoNegative
	}
	p.StockQuantity += delta
	return nil
}

func (t *txView) CreateOrder(ctx context.Context, o *models.Order, items []models.OrderItem) error {
	o.ID = t.state.nextOrder
	t.state.nextOrder++
	cp := *o
	t.state.orders[o.ID] = &cp
	stored := make([]models.OrderItem, len(items))
	for i, item := range items {
		item.OrderID = o.ID
		stored[i] = item
	}
	t.state.orderItems[o.ID] = stored
	return nil
}

func (t *txView) OrderByID(ctx context.Context, orderID uint) (*models.Order, error) {
	o, ok := t.state.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *txView) OrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	return append([]models.OrderItem(nil), t.state.orderItems[orderID]...), nil
}

func (t *txView) SetOrderStatus(ctx context.Context, orderID uint, from, to models.OrderStatus) error {
	o, ok := t.state.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrInvalidState
	}
	o.Status = to
	return nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []*events.OrderEvent
}

func (s *fakeSink) SendOrderEvent(ev *events.OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *fakeSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.EventType
	}
	return out
}

type fakeAuditor struct {
	mu      sync.Mutex
	actions []string
	done    chan struct{}
}

func (a *fakeAuditor) Record(ctx context.Context, action, entityID string, data map[string]interface{}) error {
	a.mu.Lock()
	a.actions = append(a.actions, action)
	a.mu.Unlock()
	if a.done != nil {
		a.done <- struct{}{}
	}
	return nil
}

func newWorkflow(store order.Store, sink order.EventSink, audit order.Auditor) *order.Workflow {
	return order.NewWorkflow(store, sink, audit, zap.NewNop())
}

func TestCreateOrderSuccess(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: 10})
	store.addProduct(models.Product{ID: 2, Name: "Mouse", Price: 19.90, StockQuantity: 4})
	store.seedCart(7, 1, 2)
	store.seedCart(7, 2, 1)

	sink := &fakeSink{}
	wf := newWorkflow(store, sink, nil)
	user := &models.User{ID: 7, Login: "alice"}

	o, err := wf.CreateOrder(context.Background(), user, "Main St 1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, o.Status)
	assert.InDelta(t, 2*45.50+19.90, o.TotalAmount, 0.001)
	assert.Equal(t, "Main St 1", o.DeliveryAddress)
	assert.False(t, o.OrderDate.IsZero())

	assert.Equal(t, 8, store.stockOf(1))
	assert.Equal(t, 3, store.stockOf(2))

	lines, err := store.CartLines(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, lines)

	items, err := store.OrderItems(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 45.50, items[0].Price)
	assert.Equal(t, 2, items[0].Quantity)

	require.Len(t, sink.events, 1)
	assert.Equal(t, events.OrderCreated, sink.events[0].EventType)
	assert.Equal(t, "alice", sink.events[0].UserLogin)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: 10})
	store.addProduct(models.Product{ID: 2, Name: "Mouse", Price: 19.90, StockQuantity: 1})
	store.seedCart(7, 1, 2)
	store.seedCart(7, 2, 3)

	sink := &fakeSink{}
	wf := newWorkflow(store, sink, nil)

	o, err := wf.CreateOrder(context.Background(), &models.User{ID: 7}, "Main St 1")
	assert.Nil(t, o)

	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Mouse", stockErr.Product)

	// Nothing committed: stock, cart and events all untouched.
	assert.Equal(t, 10, store.stockOf(1))
	assert.Equal(t, 1, store.stockOf(2))
	lines, _ := store.CartLines(context.Background(), 7)
	assert.Len(t, lines, 2)
	assert.Empty(t, sink.types())
}

func TestCreateOrderEmptyCart(t *testing.T) {
	store := newFakeStore()
	wf := newWorkflow(store, &fakeSink{}, nil)

	o, err := wf.CreateOrder(context.Background(), &models.User{ID: 7}, "Main St 1")
	assert.Nil(t, o)
	assert.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestCreateOrderConcurrentOversell(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: 5})
	store.seedCart(1, 1, 3)
	store.seedCart(2, 1, 3)

	wf := newWorkflow(store, &fakeSink{}, nil)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, userID := range []uint{1, 2} {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = wf.CreateOrder(context.Background(), &models.User{ID: userID}, "Main St 1")
		}(i, userID)
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		var stockErr *order.InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, store.stockOf(1))
}

func TestCreateOrderConcurrentDrain(t *testing.T) {
	const buyers = 15
	const stock = 10

	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: stock})
	for userID := uint(1); userID <= buyers; userID++ {
		store.seedCart(userID, 1, 1)
	}

	wf := newWorkflow(store, &fakeSink{}, nil)

	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = wf.CreateOrder(context.Background(), &models.User{ID: uint(i + 1)}, "Main St 1")
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, stock, succeeded)
	assert.Equal(t, 0, store.stockOf(1))
}

func TestCancelOrderRestocks(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: 10})
	store.seedCart(7, 1, 4)

	sink := &fakeSink{}
	wf := newWorkflow(store, sink, nil)
	user := &models.User{ID: 7, Login: "alice"}

	o, err := wf.CreateOrder(context.Background(), user, "Main St 1")
	require.NoError(t, err)
	require.Equal(t, 6, store.stockOf(1))

	require.NoError(t, wf.CancelOrder(context.Background(), o.ID, user))

	assert.Equal(t, 10, store.stockOf(1))
	got, err := store.OrderByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, []string{events.OrderCreated, events.OrderCancelled}, sink.types())
}

func TestCancelOrderTwice(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: 10})
	store.seedCart(7, 1, 4)

	wf := newWorkflow(store, &fakeSink{}, nil)
	user := &models.User{ID: 7}

	o, err := wf.CreateOrder(context.Background(), user, "Main St 1")
	require.NoError(t, err)
	require.NoError(t, wf.CancelOrder(context.Background(), o.ID, user))

	err = wf.CancelOrder(context.Background(), o.ID, user)
	assert.ErrorIs(t, err, order.ErrInvalidState)
	// The failed second cancel must not restock again.
	assert.Equal(t, 10, store.stockOf(1))
}

func TestCancelOrderWrongUser(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: 10})
	store.seedCart(7, 1, 1)

	wf := newWorkflow(store, &fakeSink{}, nil)

	o, err := wf.CreateOrder(context.Background(), &models.User{ID: 7}, "Main St 1")
	require.NoError(t, err)

	err = wf.CancelOrder(context.Background(), o.ID, &models.User{ID: 8})
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.Equal(t, 9, store.stockOf(1))
}

func TestCancelOrderUnknown(t *testing.T) {
	store := newFakeStore()
	wf := newWorkflow(store, &fakeSink{}, nil)

	err := wf.CancelOrder(context.Background(), 999, &models.User{ID: 7})
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestCancelOrderShippedNotCancellable(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: 10})
	store.seedCart(7, 1, 2)

	wf := newWorkflow(store, &fakeSink{}, nil)
	user := &models.User{ID: 7}

	o, err := wf.CreateOrder(context.Background(), user, "Main St 1")
	require.NoError(t, err)
	require.NoError(t, store.SetOrderStatus(context.Background(), o.ID, models.StatusProcessing, models.StatusShipped))

	err = wf.CancelOrder(context.Background(), o.ID, user)
	assert.ErrorIs(t, err, order.ErrInvalidState)
	assert.Equal(t, 8, store.stockOf(1))
}

func TestWorkflowAuditTrail(t *testing.T) {
	store := newFakeStore()
	store.addProduct(models.Product{ID: 1, Name: "Keyboard", Price: 45.50, StockQuantity: 10})
	store.seedCart(7, 1, 1)

	audit := &fakeAuditor{done: make(chan struct{}, 2)}
	wf := newWorkflow(store, &fakeSink{}, audit)
	user := &models.User{ID: 7}

	o, err := wf.CreateOrder(context.Background(), user, "Main St 1")
	require.NoError(t, err)
	require.NoError(t, wf.CancelOrder(context.Background(), o.ID, user))

	for i := 0; i < 2; i++ {
		select {
		case <-audit.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for audit records")
		}
	}

	audit.mu.Lock()
	defer audit.mu.Unlock()
	assert.ElementsMatch(t, []string{"create_order", "cancel_order"}, audit.actions)
}
