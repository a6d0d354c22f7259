// Package product defines the catalog entity, its persistence port, and the
// catalog domain service.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist or is
	// soft-deleted.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a stock decrement would drive the
	// on-hand quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Deleted     bool
}

// HasStock reports whether at least requested units are on hand.
func (p *Product) HasStock(requested int) bool {
	return p.Quantity >= requested
}

// SearchFilter holds optional catalog search criteria. Zero/nil fields are
// not applied.
type SearchFilter struct {
	Name     string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  *bool
}

// UpdateParams holds optional fields for a partial product update. Nil fields
// keep their current value.
type UpdateParams struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
}

// Repository defines persistence operations for the product catalog.
// Implementations must hide soft-deleted rows from all reads.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Search(ctx context.Context, filter SearchFilter) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	// DecreaseStock subtracts qty from the on-hand quantity in a single
	// conditional statement, failing with ErrInsufficientStock instead of
	// going negative.
	DecreaseStock(ctx context.Context, id int64, qty int) error
}
