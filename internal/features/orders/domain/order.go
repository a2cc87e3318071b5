package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingFee is the fixed per-order surcharge in VND, applied exactly once
// regardless of how many items the order contains.
var ShippingFee = decimal.NewFromInt(30000)

// PaymentMethod identifies how the customer pays for an order.
type PaymentMethod string

const (
	// PaymentMethodCOD settles when the courier hands over the parcel.
	PaymentMethodCOD PaymentMethod = "cod"
	// PaymentMethodVnpay redirects the shopper to the VNPay hosted payment page.
	PaymentMethodVnpay PaymentMethod = "vnpay"
	// PaymentMethodPayOS sends the shopper to a PayOS checkout link.
	PaymentMethodPayOS PaymentMethod = "payos"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodVnpay, PaymentMethodPayOS:
		return true
	}
	return false
}

// Online reports whether the method requires a payment-provider round trip.
func (m PaymentMethod) Online() bool {
	return m == PaymentMethodVnpay || m == PaymentMethodPayOS
}

// Status represents the lifecycle state of an order.
type Status string

const (
	// StatusPending is the initial state; the only state reconciliation acts on.
	StatusPending Status = "pending"
	// StatusProcessing means payment was verified and fulfilment may begin.
	StatusProcessing Status = "processing"
	// StatusShipped means the parcel was handed to the carrier.
	StatusShipped Status = "shipped"
	// StatusDelivered is terminal: the customer received the parcel.
	StatusDelivered Status = "delivered"
	// StatusCancelled is terminal: payment failed, amount mismatched, or admin cancelled.
	StatusCancelled Status = "cancelled"
	// StatusReturned is terminal: the customer sent the parcel back.
	StatusReturned Status = "returned"
)

// Valid reports whether s is one of the known order statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// legalTransitions encodes the order state machine. Cancelled and returned
// are terminal; delivered only allows a return.
var legalTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusReturned},
	StatusDelivered:  {StatusReturned},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is a line item with the unit price captured at order-creation
// time. The price is never re-read from the catalog afterwards, so historical
// orders reprice correctly even when catalog prices change.
type OrderItem struct {
	// ID is the unique identifier of the line item.
	ID uuid.UUID `json:"id"`
	// ProductID references the product by identifier (snapshot, not a live pointer).
	ProductID uuid.UUID `json:"product_id"`
	// ProductName is the product name captured at purchase time.
	ProductName string `json:"product_name"`
	// Quantity is the number of units purchased.
	Quantity int `json:"quantity"`
	// Price is the unit price at the moment the order was created.
	Price decimal.Decimal `json:"price"`
}

// Subtotal returns unit price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the order aggregate: header plus its ordered line items.
type Order struct {
	// ID is the unique identifier of the order.
	ID uuid.UUID `json:"id"`
	// UserID is the identifier of the owning user.
	UserID uuid.UUID `json:"user_id"`
	// OrderDate is when the order was placed.
	OrderDate time.Time `json:"order_date"`
	// ShippingAddress is where the order ships to.
	ShippingAddress string `json:"shipping_address"`
	// CustomerPhone is the contact number for delivery.
	CustomerPhone string `json:"customer_phone"`
	// PaymentMethod is how the customer pays.
	PaymentMethod PaymentMethod `json:"payment_method"`
	// PaymentTransactionRef is the provider-side correlation key.
	// Assigned only for online payment methods.
	PaymentTransactionRef *int64 `json:"payment_transaction_ref,omitempty"`
	// TotalAmount is the sum of line subtotals plus the shipping fee.
	TotalAmount decimal.Decimal `json:"total_amount"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// Items are the order lines in the order they were requested.
	Items []OrderItem `json:"items"`
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the last modification timestamp.
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a pending order with no items yet.
func New(userID uuid.UUID, shippingAddress, customerPhone string, method PaymentMethod) (*Order, error) {
	if shippingAddress == "" {
		return nil, ErrMissingShippingAddress
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	now := time.Now().UTC()
	return &Order{
		ID:              uuid.New(),
		UserID:          userID,
		OrderDate:       now,
		ShippingAddress: shippingAddress,
		CustomerPhone:   customerPhone,
		PaymentMethod:   method,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// AddItem appends a line item with the given price snapshot.
func (o *Order) AddItem(productID uuid.UUID, productName string, quantity int, unitPrice decimal.Decimal) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	o.Items = append(o.Items, OrderItem{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Price:       unitPrice,
	})
	return nil
}

// FinalizeTotal computes the order total: sum of line subtotals plus the
// shipping fee, applied exactly once.
func (o *Order) FinalizeTotal() error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.TotalAmount = total.Add(ShippingFee)
	return nil
}

// AssignTransactionRef sets the provider correlation key for online payment.
func (o *Order) AssignTransactionRef(ref int64) {
	o.PaymentTransactionRef = &ref
}

// TransitionTo moves the order to the next status if the state machine allows it.
func (o *Order) TransitionTo(next Status) error {
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if !CanTransition(o.Status, next) {
		return ErrIllegalTransition
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}
