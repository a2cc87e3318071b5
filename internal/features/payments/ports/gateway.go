package ports

import (
	"context"

	"silkshop/internal/features/orders/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest carries everything a gateway needs to build a payment URL
// for a committed order. Gateways never mutate the order.
type PaymentRequest struct {
	// OrderID is the internal order identifier, used for descriptions only.
	OrderID uuid.UUID
	// TransactionRef is the correlation key shared with the provider.
	TransactionRef int64
	// Amount is the order total in VND.
	Amount decimal.Decimal
	// Description is the human-readable payment description.
	Description string
	// ClientIP is the shopper's IP address (required by some providers).
	ClientIP string
}

// CallbackResult is the verified outcome extracted from a provider callback.
// It is the only trusted source of "did payment succeed".
type CallbackResult struct {
	// Success is true only when the provider reports a captured payment.
	Success bool
	// TransactionRef is the correlation key echoed back by the provider.
	TransactionRef int64
	// Amount is the amount the provider actually captured, in VND.
	Amount decimal.Decimal
	// ResponseCode is the raw provider result code, for logging.
	ResponseCode string
}

// Gateway is the payment-provider contract. There are exactly two
// implementations: the VNPay redirect gateway and the PayOS checkout-link
// gateway.
type Gateway interface {
	// Method returns the payment method this gateway serves.
	Method() domain.PaymentMethod

	// BuildPaymentRequest produces a provider-hosted payment URL for a
	// committed order.
	BuildPaymentRequest(ctx context.Context, req PaymentRequest) (string, error)

	// VerifyCallback authenticates a raw callback/webhook payload and
	// extracts the transaction reference and captured amount. Unverifiable
	// payloads fail closed with an error.
	VerifyCallback(raw []byte) (*CallbackResult, error)
}
