package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"silkshop/internal/core/logger"
	"silkshop/internal/features/orders/domain"
	"silkshop/internal/features/orders/ports"
	paymentports "silkshop/internal/features/payments/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedPaymentMethod is returned when no gateway serves the method.
	ErrUnsupportedPaymentMethod = errors.New("payment method not supported")
	// ErrPaymentVerificationFailed is returned when a callback payload cannot
	// be authenticated. Nothing is mutated in that case.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")

	// errStatusMoved signals a lost compare-and-set: another writer changed
	// the order status between our read and our write.
	errStatusMoved = errors.New("order status moved concurrently")
)

// ReconcileOutcome classifies how a verified callback was applied.
type ReconcileOutcome string

const (
	// OutcomeConfirmed: payment verified, amount matched, order moved to processing.
	OutcomeConfirmed ReconcileOutcome = "confirmed"
	// OutcomePaymentFailed: provider reported failure, order cancelled.
	OutcomePaymentFailed ReconcileOutcome = "payment_failed"
	// OutcomeAmountMismatch: captured amount differed from the stored total, order cancelled.
	OutcomeAmountMismatch ReconcileOutcome = "amount_mismatch"
	// OutcomeOrderNotFound: no order matches the transaction reference; benign no-op.
	OutcomeOrderNotFound ReconcileOutcome = "order_not_found"
	// OutcomeAlreadyProcessed: the order already left pending; benign no-op.
	OutcomeAlreadyProcessed ReconcileOutcome = "already_processed"
)

// Applied reports whether the outcome moved the order to processing.
func (o ReconcileOutcome) Applied() bool { return o == OutcomeConfirmed }

// CreateOrderItemInput is one requested (product, quantity) pair.
type CreateOrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput is the cart-like request that becomes an order.
type CreateOrderInput struct {
	ShippingAddress string
	CustomerPhone   string
	PaymentMethod   domain.PaymentMethod
	Items           []CreateOrderItemInput
	// ClientIP is the shopper's address, forwarded to redirect gateways.
	ClientIP string
}

// CreateOrderResult is the committed order plus, for online payment methods,
// the provider payment URL. An empty PaymentURL on an online order is a valid
// outcome: the order exists in pending state and the client may retry
// obtaining a link.
type CreateOrderResult struct {
	Order      *domain.Order
	PaymentURL string
}

// ReconcileResult reports how a provider callback was applied.
type ReconcileResult struct {
	Outcome ReconcileOutcome
	Order   *domain.Order
}

// OrderService coordinates stock reservation, order persistence and
// payment-provider interaction.
type OrderService struct {
	store    ports.OrderStore
	gateways []paymentports.Gateway
}

// NewOrderService creates a new OrderService with the given store and gateways.
func NewOrderService(store ports.OrderStore, gateways []paymentports.Gateway) *OrderService {
	return &OrderService{
		store:    store,
		gateways: gateways,
	}
}

// gateway returns the adapter serving the given payment method.
func (s *OrderService) gateway(method domain.PaymentMethod) (paymentports.Gateway, error) {
	for _, gw := range s.gateways {
		if gw.Method() == method {
			return gw, nil
		}
	}
	return nil, ErrUnsupportedPaymentMethod
}

// CreateOrder turns a cart-like request into a persisted pending order.
//
// Stock checks, decrements and the order insert all happen inside one
// transaction; any failure rolls the whole operation back. The payment URL
// for online methods is built only after the transaction commits, so a
// provider outage can never hold a database transaction open - and a failure
// to obtain the URL leaves the committed order in place.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*CreateOrderResult, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
	}

	order, err := domain.New(userID, in.ShippingAddress, in.CustomerPhone, in.PaymentMethod)
	if err != nil {
		return nil, err
	}

	if in.PaymentMethod.Online() {
		// The provider correlation key must exist before the order row is
		// written; a unique index backstops the theoretical collision, which
		// then surfaces as a failed insert rather than a double booking.
		order.AssignTransactionRef(newTransactionRef())
	}

	err = s.store.WithinTx(ctx, func(tx ports.Tx) error {
		exists, err := tx.UserExists(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}
		if !exists {
			return domain.ErrUserNotFound
		}

		// Lines are processed in request order; the first failure aborts the
		// whole order.
		for _, item := range in.Items {
			snap, err := tx.Reserve(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if err := order.AddItem(snap.ID, snap.Name, item.Quantity, snap.Price); err != nil {
				return err
			}
		}

		if err := order.FinalizeTotal(); err != nil {
			return err
		}

		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.TotalAmount.String()),
	)

	result := &CreateOrderResult{Order: order}

	if order.PaymentMethod.Online() {
		url, err := s.buildPaymentURL(ctx, order, in.ClientIP)
		if err != nil {
			// The order is already committed; surface the order without a
			// URL instead of failing the whole request.
			logger.Get().Warn("Failed to build payment URL for committed order",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
			return result, nil
		}
		result.PaymentURL = url
	}

	return result, nil
}

func (s *OrderService) buildPaymentURL(ctx context.Context, order *domain.Order, clientIP string) (string, error) {
	gw, err := s.gateway(order.PaymentMethod)
	if err != nil {
		return "", err
	}

	return gw.BuildPaymentRequest(ctx, paymentports.PaymentRequest{
		OrderID:        order.ID,
		TransactionRef: *order.PaymentTransactionRef,
		Amount:         order.TotalAmount,
		Description:    fmt.Sprintf("silkshop order %d", *order.PaymentTransactionRef),
		ClientIP:       clientIP,
	})
}

// ReconcilePayment applies a provider callback to the matching pending order
// exactly once.
//
// Verification failures return ErrPaymentVerificationFailed without touching
// any order. A missing order or an order that already left pending is a
// benign no-op so the provider stops retrying. Amount comparison is exact;
// a mismatch cancels the order.
func (s *OrderService) ReconcilePayment(ctx context.Context, method domain.PaymentMethod, raw []byte) (*ReconcileResult, error) {
	gw, err := s.gateway(method)
	if err != nil {
		return nil, err
	}

	callback, err := gw.VerifyCallback(raw)
	if err != nil {
		logger.Get().Warn("Payment callback failed verification",
			zap.String("method", string(method)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentVerificationFailed, err)
	}

	order, err := s.store.FindByTransactionRef(ctx, callback.TransactionRef)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Get().Warn("Callback references unknown transaction",
				zap.Int64("transaction_ref", callback.TransactionRef),
				zap.String("method", string(method)),
			)
			return &ReconcileResult{Outcome: OutcomeOrderNotFound}, nil
		}
		return nil, fmt.Errorf("failed to load order for reconciliation: %w", err)
	}

	if order.Status != domain.StatusPending {
		logger.Get().Info("Duplicate callback for settled order",
			zap.String("order_id", order.ID.String()),
			zap.String("status", string(order.Status)),
		)
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Order: order}, nil
	}

	if !callback.Success {
		if err := s.transition(ctx, order, domain.StatusCancelled); err != nil {
			if errors.Is(err, errStatusMoved) {
				return s.settledConcurrently(ctx, order.ID)
			}
			return nil, err
		}
		logger.Get().Info("Payment failed, order cancelled",
			zap.String("order_id", order.ID.String()),
			zap.String("response_code", callback.ResponseCode),
		)
		return &ReconcileResult{Outcome: OutcomePaymentFailed, Order: order}, nil
	}

	if !callback.Amount.Equal(order.TotalAmount) {
		if err := s.transition(ctx, order, domain.StatusCancelled); err != nil {
			if errors.Is(err, errStatusMoved) {
				return s.settledConcurrently(ctx, order.ID)
			}
			return nil, err
		}
		logger.Get().Warn("Callback amount does not match order total",
			zap.String("order_id", order.ID.String()),
			zap.String("expected", order.TotalAmount.String()),
			zap.String("received", callback.Amount.String()),
		)
		return &ReconcileResult{Outcome: OutcomeAmountMismatch, Order: order}, nil
	}

	if err := s.transition(ctx, order, domain.StatusProcessing); err != nil {
		if errors.Is(err, errStatusMoved) {
			return s.settledConcurrently(ctx, order.ID)
		}
		return nil, err
	}
	logger.Get().Info("Payment confirmed",
		zap.String("order_id", order.ID.String()),
		zap.Int64("transaction_ref", callback.TransactionRef),
	)
	return &ReconcileResult{Outcome: OutcomeConfirmed, Order: order}, nil
}

// transition applies a status change to the aggregate and persists it with a
// compare-and-set on the status the order was loaded with. A lost race
// returns errStatusMoved and leaves the aggregate unchanged.
func (s *OrderService) transition(ctx context.Context, order *domain.Order, next domain.Status) error {
	from := order.Status
	if err := order.TransitionTo(next); err != nil {
		return err
	}
	moved, err := s.store.TransitionStatus(ctx, order.ID, from, next)
	if err != nil {
		order.Status = from
		return fmt.Errorf("failed to persist status change: %w", err)
	}
	if !moved {
		order.Status = from
		return errStatusMoved
	}
	return nil
}

// settledConcurrently reports an OutcomeAlreadyProcessed after a callback
// lost the status race, reloading the order so the caller sees who won.
func (s *OrderService) settledConcurrently(ctx context.Context, orderID uuid.UUID) (*ReconcileResult, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order after lost status race: %w", err)
	}
	logger.Get().Info("Concurrent callback already settled order",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Order: order}, nil
}

// GetOrderByID returns an order when the requester owns it or is an admin.
func (s *OrderService) GetOrderByID(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (*domain.Order, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		// Hide other users' orders rather than acknowledging they exist.
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// GetMyOrders returns the requesting user's orders, newest first.
func (s *OrderService) GetMyOrders(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	orders, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetAllOrders returns every order, newest first. Admin only.
func (s *OrderService) GetAllOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus applies an administrative status change, gated by the
// order state machine.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, next domain.Status) (*domain.Order, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, order, next); err != nil {
		if errors.Is(err, errStatusMoved) {
			return nil, fmt.Errorf("%w: order changed concurrently", domain.ErrIllegalTransition)
		}
		return nil, err
	}
	logger.Get().Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(next)),
	)
	return order, nil
}

// newTransactionRef derives a fresh correlation key from the wall clock.
// Nanosecond resolution makes collisions theoretical; the unique index on
// the column turns one into a rolled-back insert instead of a double booking.
func newTransactionRef() int64 {
	return time.Now().UnixNano()
}
