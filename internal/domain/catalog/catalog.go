// Package catalog defines the product and price resolution contracts the
// evaluation engine and order flow depend on. Implementations live in the
// repository layer.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when a product id is unknown.
	ErrProductNotFound = errors.New("product not found")
	// ErrPriceNotFound is returned when a known product has no usable
	// price for the requested price system and currency.
	ErrPriceNotFound = errors.New("price not found")
)

// Product is a catalog entry available for purchase.
type Product struct {
	ID         int64
	TenantID   int64
	Name       string
	CategoryID int64
	OnSale     bool
}

// ItemQuery identifies the price being resolved: a product (optionally a
// variation) priced under a tenant's price system in a target currency.
type ItemQuery struct {
	TenantID      int64
	ProductID     int64
	VariationID   int64
	PriceSystemID int64
	Currency      string
}

// Resolved is the outcome of a successful price resolution: everything the
// engine needs to scope and price a line item.
type Resolved struct {
	UnitPrice  decimal.Decimal
	Currency   string
	CategoryID int64
	OnSale     bool
}

// PriceResolver resolves a unit price for a product under a price system.
// Implementations return ErrProductNotFound or ErrPriceNotFound to signal
// the two distinct failure modes.
type PriceResolver interface {
	Resolve(ctx context.Context, q ItemQuery) (Resolved, error)
}

// Repository provides read access to the product catalog.
type Repository interface {
	List(ctx context.Context, tenantID int64) ([]Product, error)
	GetByID(ctx context.Context, tenantID, id int64) (*Product, error)
}
