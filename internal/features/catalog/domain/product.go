package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrMissingName     = errors.New("product name is required")
	ErrInvalidPrice    = errors.New("product price must be positive")
	ErrInvalidStock    = errors.New("product stock cannot be negative")
)

// Product is a sellable catalog entry. Stock is the source of truth the
// order pipeline decrements against.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewProduct creates a new Product and validates it.
func NewProduct(name, description string, price decimal.Decimal, stock int, imageURL string) (*Product, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	now := time.Now()
	return &Product{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// InStock reports whether the requested quantity is currently available.
func (p *Product) InStock(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}
