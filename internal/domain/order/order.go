// Package order implements order placement: stock-checked line item assembly,
// discount calculation, and proportional discount distribution.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems = errors.New("items required")
	ErrNotFound   = errors.New("order not found")
)

// InvalidQuantityError indicates a line item request with a non-positive
// quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// OutOfStockError indicates a requested quantity exceeds the available stock.
// It carries the product name and availability for display.
type OutOfStockError struct {
	ProductName string
	Available   int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s is out of stock, available: %d", e.ProductName, e.Available)
}

// LineItem is one product entry within an order. TotalPrice is fixed at
// construction; only DiscountApplied is set afterwards, exactly once, during
// discount distribution.
type LineItem struct {
	ID              int64
	ProductID       int64
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountApplied decimal.Decimal
	TotalPrice      decimal.Decimal
}

// NewLineItem builds a line item priced at unitPrice * quantity with a zero
// discount.
func NewLineItem(productID int64, quantity int, unitPrice decimal.Decimal) LineItem {
	return LineItem{
		ProductID:       productID,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountApplied: decimal.Zero,
		TotalPrice:      unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// FinalPrice returns the line total after its discount.
func (li *LineItem) FinalPrice() decimal.Decimal {
	return li.TotalPrice.Sub(li.DiscountApplied)
}

// Order represents a placed customer order. Items keep request order. Once
// persisted (ID assigned) the order is read-only.
type Order struct {
	ID         int64
	UserID     int64
	Items      []LineItem
	OrderTotal decimal.Decimal
	CreatedAt  time.Time
}

// Subtotal returns the sum of line item totals before discounts.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range o.Items {
		sum = sum.Add(o.Items[i].TotalPrice)
	}
	return sum
}

// Repository defines persistence operations for orders. Create assigns the
// order ID, line item IDs, and CreatedAt.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
}
