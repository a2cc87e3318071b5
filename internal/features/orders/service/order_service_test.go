package service

import (
	"context"
	"errors"
	"testing"

	"silkshop/internal/features/orders/domain"
	"silkshop/internal/features/orders/ports"
	paymentports "silkshop/internal/features/payments/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProduct struct {
	name  string
	price decimal.Decimal
	stock int
}

// fakeStore is an in-memory ports.OrderStore with transactional rollback:
// WithinTx works on a copy of the state and publishes it only on success.
type fakeStore struct {
	users    map[uuid.UUID]bool
	products map[uuid.UUID]*fakeProduct
	orders   map[uuid.UUID]*domain.Order
	byRef    map[int64]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]bool),
		products: make(map[uuid.UUID]*fakeProduct),
		orders:   make(map[uuid.UUID]*domain.Order),
		byRef:    make(map[int64]uuid.UUID),
	}
}

type fakeTx struct {
	store  *fakeStore
	stock  map[uuid.UUID]int
	orders []*domain.Order
}

func (s *fakeStore) WithinTx(_ context.Context, fn func(tx ports.Tx) error) error {
	tx := &fakeTx{store: s, stock: make(map[uuid.UUID]int)}
	for id, p := range s.products {
		tx.stock[id] = p.stock
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, remaining := range tx.stock {
		s.products[id].stock = remaining
	}
	for _, order := range tx.orders {
		s.orders[order.ID] = order
		if order.PaymentTransactionRef != nil {
			s.byRef[*order.PaymentTransactionRef] = order.ID
		}
	}
	return nil
}

func (tx *fakeTx) UserExists(_ context.Context, userID uuid.UUID) (bool, error) {
	return tx.store.users[userID], nil
}

func (tx *fakeTx) Reserve(_ context.Context, productID uuid.UUID, quantity int) (*ports.ProductSnapshot, error) {
	p, ok := tx.store.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if tx.stock[productID] < quantity {
		return nil, &domain.InsufficientStockError{
			ProductName: p.name,
			Requested:   quantity,
			Available:   tx.stock[productID],
		}
	}
	tx.stock[productID] -= quantity
	return &ports.ProductSnapshot{ID: productID, Name: p.name, Price: p.price}, nil
}

func (tx *fakeTx) InsertOrder(_ context.Context, order *domain.Order) error {
	tx.orders = append(tx.orders, order)
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	// Hand out a copy, the way a row scan would.
	cp := *order
	return &cp, nil
}

func (s *fakeStore) FindByTransactionRef(_ context.Context, ref int64) (*domain.Order, error) {
	id, ok := s.byRef[ref]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *s.orders[id]
	return &cp, nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var out []domain.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]domain.Order, error) {
	var out []domain.Order
	for _, order := range s.orders {
		out = append(out, *order)
	}
	return out, nil
}

func (s *fakeStore) TransitionStatus(_ context.Context, orderID uuid.UUID, from, to domain.Status) (bool, error) {
	order, ok := s.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

// fakeGateway serves one payment method with canned responses.
type fakeGateway struct {
	method    domain.PaymentMethod
	url       string
	urlErr    error
	callback  *paymentports.CallbackResult
	verifyErr error
}

func (g *fakeGateway) Method() domain.PaymentMethod { return g.method }

func (g *fakeGateway) BuildPaymentRequest(_ context.Context, _ paymentports.PaymentRequest) (string, error) {
	return g.url, g.urlErr
}

func (g *fakeGateway) VerifyCallback(_ []byte) (*paymentports.CallbackResult, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.callback, nil
}

func seedStore(t *testing.T) (*fakeStore, uuid.UUID, uuid.UUID, uuid.UUID) {
	t.Helper()
	store := newFakeStore()
	userID := uuid.New()
	store.users[userID] = true

	scarfID := uuid.New()
	boxID := uuid.New()
	store.products[scarfID] = &fakeProduct{name: "Silk Scarf", price: decimal.NewFromInt(100000), stock: 10}
	store.products[boxID] = &fakeProduct{name: "Lacquer Box", price: decimal.NewFromInt(50000), stock: 3}
	return store, userID, scarfID, boxID
}

func codInput(scarfID, boxID uuid.UUID) CreateOrderInput {
	return CreateOrderInput{
		ShippingAddress: "123 Hang Gai, Hanoi",
		CustomerPhone:   "0901234567",
		PaymentMethod:   domain.PaymentMethodCOD,
		Items: []CreateOrderItemInput{
			{ProductID: scarfID, Quantity: 2},
			{ProductID: boxID, Quantity: 1},
		},
	}
}

func TestCreateOrder_COD(t *testing.T) {
	store, userID, scarfID, boxID := seedStore(t)
	svc := NewOrderService(store, nil)

	result, err := svc.CreateOrder(context.Background(), userID, codInput(scarfID, boxID))
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Nil(t, order.PaymentTransactionRef)
	assert.Empty(t, result.PaymentURL)

	// 2*100000 + 1*50000 + 30000 shipping.
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(280000)), "got %s", order.TotalAmount)

	// Stock decremented and order persisted.
	assert.Equal(t, 8, store.products[scarfID].stock)
	assert.Equal(t, 2, store.products[boxID].stock)
	stored, err := store.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
}

func TestCreateOrder_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	store, userID, scarfID, boxID := seedStore(t)
	svc := NewOrderService(store, nil)

	result, err := svc.CreateOrder(context.Background(), userID, codInput(scarfID, boxID))
	require.NoError(t, err)

	// The catalog price changes after the order was placed.
	store.products[scarfID].price = decimal.NewFromInt(175000)
	store.products[boxID].price = decimal.NewFromInt(80000)

	reloaded, err := store.FindByID(context.Background(), result.Order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 2)

	// Line prices and the total keep the values captured at reservation time.
	assert.True(t, reloaded.Items[0].Price.Equal(decimal.NewFromInt(100000)), "got %s", reloaded.Items[0].Price)
	assert.True(t, reloaded.Items[1].Price.Equal(decimal.NewFromInt(50000)), "got %s", reloaded.Items[1].Price)
	assert.True(t, reloaded.TotalAmount.Equal(decimal.NewFromInt(280000)), "got %s", reloaded.TotalAmount)
}

func TestCreateOrder_ItemsKeepRequestOrder(t *testing.T) {
	store, userID, scarfID, boxID := seedStore(t)
	svc := NewOrderService(store, nil)

	result, err := svc.CreateOrder(context.Background(), userID, codInput(scarfID, boxID))
	require.NoError(t, err)

	reloaded, err := store.FindByID(context.Background(), result.Order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 2)
	assert.Equal(t, scarfID, reloaded.Items[0].ProductID)
	assert.Equal(t, boxID, reloaded.Items[1].ProductID)
}

func TestCreateOrder_InsufficientStockRollsBack(t *testing.T) {
	store, userID, scarfID, boxID := seedStore(t)
	svc := NewOrderService(store, nil)

	input := codInput(scarfID, boxID)
	input.Items[1].Quantity = 99

	_, err := svc.CreateOrder(context.Background(), userID, input)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Lacquer Box", stockErr.ProductName)

	// The scarf reservation that preceded the failure must not survive.
	assert.Equal(t, 10, store.products[scarfID].stock)
	assert.Equal(t, 3, store.products[boxID].stock)
	assert.Empty(t, store.orders)
}

func TestCreateOrder_UnknownUser(t *testing.T) {
	store, _, scarfID, boxID := seedStore(t)
	svc := NewOrderService(store, nil)

	_, err := svc.CreateOrder(context.Background(), uuid.New(), codInput(scarfID, boxID))
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Empty(t, store.orders)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	store, userID, _, _ := seedStore(t)
	svc := NewOrderService(store, nil)

	input := CreateOrderInput{
		ShippingAddress: "123 Hang Gai, Hanoi",
		CustomerPhone:   "0901234567",
		PaymentMethod:   domain.PaymentMethodCOD,
		Items:           []CreateOrderItemInput{{ProductID: uuid.New(), Quantity: 1}},
	}
	_, err := svc.CreateOrder(context.Background(), userID, input)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	store, userID, _, _ := seedStore(t)
	svc := NewOrderService(store, nil)

	input := CreateOrderInput{
		ShippingAddress: "123 Hang Gai, Hanoi",
		CustomerPhone:   "0901234567",
		PaymentMethod:   domain.PaymentMethodCOD,
	}
	_, err := svc.CreateOrder(context.Background(), userID, input)
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
}

func TestCreateOrder_OnlineReturnsPaymentURL(t *testing.T) {
	store, userID, scarfID, boxID := seedStore(t)
	gw := &fakeGateway{method: domain.PaymentMethodVnpay, url: "https://pay.example/checkout"}
	svc := NewOrderService(store, []paymentports.Gateway{gw})

	input := codInput(scarfID, boxID)
	input.PaymentMethod = domain.PaymentMethodVnpay

	result, err := svc.CreateOrder(context.Background(), userID, input)
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/checkout", result.PaymentURL)
	require.NotNil(t, result.Order.PaymentTransactionRef)
	assert.Positive(t, *result.Order.PaymentTransactionRef)

	// The ref is queryable, which is what reconciliation relies on.
	found, err := store.FindByTransactionRef(context.Background(), *result.Order.PaymentTransactionRef)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, found.ID)
}

func TestCreateOrder_ProviderOutageKeepsOrder(t *testing.T) {
	store, userID, scarfID, boxID := seedStore(t)
	gw := &fakeGateway{method: domain.PaymentMethodPayOS, urlErr: errors.New("provider unreachable")}
	svc := NewOrderService(store, []paymentports.Gateway{gw})

	input := codInput(scarfID, boxID)
	input.PaymentMethod = domain.PaymentMethodPayOS

	result, err := svc.CreateOrder(context.Background(), userID, input)
	require.NoError(t, err)

	// The order is committed even though the payment URL could not be built.
	assert.Empty(t, result.PaymentURL)
	assert.Equal(t, domain.StatusPending, result.Order.Status)
	assert.Len(t, store.orders, 1)
}

// placePendingOnlineOrder creates a pending vnpay order and returns it with
// the gateway whose canned callback the reconciliation tests mutate.
func placePendingOnlineOrder(t *testing.T) (*OrderService, *fakeStore, *fakeGateway, *domain.Order) {
	t.Helper()
	store, userID, scarfID, boxID := seedStore(t)
	gw := &fakeGateway{method: domain.PaymentMethodVnpay, url: "https://pay.example/checkout"}
	svc := NewOrderService(store, []paymentports.Gateway{gw})

	input := codInput(scarfID, boxID)
	input.PaymentMethod = domain.PaymentMethodVnpay

	result, err := svc.CreateOrder(context.Background(), userID, input)
	require.NoError(t, err)
	return svc, store, gw, result.Order
}

func TestReconcilePayment_Confirms(t *testing.T) {
	svc, store, gw, order := placePendingOnlineOrder(t)
	gw.callback = &paymentports.CallbackResult{
		Success:        true,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         order.TotalAmount,
		ResponseCode:   "00",
	}

	result, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.True(t, result.Outcome.Applied())
	assert.Equal(t, domain.StatusProcessing, store.orders[order.ID].Status)
}

func TestReconcilePayment_DuplicateIsNoOp(t *testing.T) {
	svc, store, gw, order := placePendingOnlineOrder(t)
	gw.callback = &paymentports.CallbackResult{
		Success:        true,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         order.TotalAmount,
		ResponseCode:   "00",
	}

	first, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, first.Outcome)

	// Provider retries; the order must stay exactly where the first
	// delivery left it.
	second, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.False(t, second.Outcome.Applied())
	assert.Equal(t, domain.StatusProcessing, store.orders[order.ID].Status)
}

func TestReconcilePayment_FailureCancels(t *testing.T) {
	svc, store, gw, order := placePendingOnlineOrder(t)
	gw.callback = &paymentports.CallbackResult{
		Success:        false,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         order.TotalAmount,
		ResponseCode:   "24",
	}

	result, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)

	assert.Equal(t, OutcomePaymentFailed, result.Outcome)
	assert.Equal(t, domain.StatusCancelled, store.orders[order.ID].Status)
}

func TestReconcilePayment_AmountMismatchCancels(t *testing.T) {
	svc, store, gw, order := placePendingOnlineOrder(t)
	gw.callback = &paymentports.CallbackResult{
		Success:        true,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         decimal.NewFromInt(250000),
		ResponseCode:   "00",
	}

	result, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeAmountMismatch, result.Outcome)
	assert.Equal(t, domain.StatusCancelled, store.orders[order.ID].Status)
}

// staleReadStore serves reconciliation reads from a snapshot taken before
// another writer settled the order, while writes still hit the live store.
// It reproduces two callbacks racing over the same pending order.
type staleReadStore struct {
	*fakeStore
	stale *domain.Order
}

func (s *staleReadStore) FindByTransactionRef(_ context.Context, _ int64) (*domain.Order, error) {
	cp := *s.stale
	return &cp, nil
}

func TestReconcilePayment_LateFailureAfterConfirmIsNoOp(t *testing.T) {
	svc, store, gw, order := placePendingOnlineOrder(t)

	stale, err := store.FindByTransactionRef(context.Background(), *order.PaymentTransactionRef)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stale.Status)

	gw.callback = &paymentports.CallbackResult{
		Success:        true,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         order.TotalAmount,
		ResponseCode:   "00",
	}
	first, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, first.Outcome)

	// A failure callback delivered concurrently still observed the order as
	// pending. Its write must lose to the one that already confirmed.
	gw.callback = &paymentports.CallbackResult{
		Success:        false,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         order.TotalAmount,
		ResponseCode:   "24",
	}
	raced := NewOrderService(&staleReadStore{fakeStore: store, stale: stale}, []paymentports.Gateway{gw})

	second, err := raced.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, domain.StatusProcessing, second.Order.Status)
	assert.Equal(t, domain.StatusProcessing, store.orders[order.ID].Status,
		"a paid order must stay processing when a late failure callback lands")
}

func TestReconcilePayment_LateConfirmAfterCancelIsNoOp(t *testing.T) {
	svc, store, gw, order := placePendingOnlineOrder(t)

	stale, err := store.FindByTransactionRef(context.Background(), *order.PaymentTransactionRef)
	require.NoError(t, err)

	gw.callback = &paymentports.CallbackResult{
		Success:        false,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         order.TotalAmount,
		ResponseCode:   "24",
	}
	first, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, OutcomePaymentFailed, first.Outcome)

	gw.callback = &paymentports.CallbackResult{
		Success:        true,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         order.TotalAmount,
		ResponseCode:   "00",
	}
	raced := NewOrderService(&staleReadStore{fakeStore: store, stale: stale}, []paymentports.Gateway{gw})

	second, err := raced.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, domain.StatusCancelled, store.orders[order.ID].Status)
}

func TestReconcilePayment_UnknownRefIsBenign(t *testing.T) {
	svc, _, gw, _ := placePendingOnlineOrder(t)
	gw.callback = &paymentports.CallbackResult{
		Success:        true,
		TransactionRef: 42,
		Amount:         decimal.NewFromInt(280000),
		ResponseCode:   "00",
	}

	result, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderNotFound, result.Outcome)
}

func TestReconcilePayment_VerificationFailure(t *testing.T) {
	svc, store, gw, order := placePendingOnlineOrder(t)
	gw.verifyErr = errors.New("signature mismatch")

	_, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	assert.ErrorIs(t, err, ErrPaymentVerificationFailed)

	// Nothing changed.
	assert.Equal(t, domain.StatusPending, store.orders[order.ID].Status)
}

func TestReconcilePayment_UnsupportedMethod(t *testing.T) {
	svc := NewOrderService(newFakeStore(), nil)

	_, err := svc.ReconcilePayment(context.Background(), domain.PaymentMethodVnpay, []byte("payload"))
	assert.ErrorIs(t, err, ErrUnsupportedPaymentMethod)
}

func TestGetOrderByID_Ownership(t *testing.T) {
	store, userID, scarfID, boxID := seedStore(t)
	svc := NewOrderService(store, nil)

	result, err := svc.CreateOrder(context.Background(), userID, codInput(scarfID, boxID))
	require.NoError(t, err)

	// Owner sees it.
	got, err := svc.GetOrderByID(context.Background(), result.Order.ID, userID, false)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, got.ID)

	// Another user gets not-found, not forbidden.
	_, err = svc.GetOrderByID(context.Background(), result.Order.ID, uuid.New(), false)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// Admin sees everything.
	got, err = svc.GetOrderByID(context.Background(), result.Order.ID, uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, got.ID)
}

func TestUpdateOrderStatus_GatedByStateMachine(t *testing.T) {
	store, userID, scarfID, boxID := seedStore(t)
	svc := NewOrderService(store, nil)

	result, err := svc.CreateOrder(context.Background(), userID, codInput(scarfID, boxID))
	require.NoError(t, err)

	order, err := svc.UpdateOrderStatus(context.Background(), result.Order.ID, domain.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, order.Status)

	_, err = svc.UpdateOrderStatus(context.Background(), result.Order.ID, domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}
