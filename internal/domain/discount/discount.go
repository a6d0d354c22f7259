// Package discount computes order discounts from a fixed set of pluggable
// strategies. Strategies are stateless and side-effect free; the set applied
// to an order is assembled once at wiring time.
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/user"
)

// Context carries the inputs a strategy may inspect. It is a pure value,
// never persisted.
type Context struct {
	UserRole user.Role
	Subtotal decimal.Decimal
}

// Strategy computes a discount amount for an order context. Implementations
// must return a non-negative amount rounded to 2 decimal places.
type Strategy interface {
	Calculate(ctx Context) decimal.Decimal
}

// Calculator sums the results of an ordered list of strategies. Strategies do
// not interact: a premium user with a high-value order receives both
// discounts additively.
type Calculator struct {
	strategies []Strategy
}

// NewCalculator creates a Calculator over the given strategies. The slice is
// used as-is; callers must not mutate it afterwards.
func NewCalculator(strategies ...Strategy) *Calculator {
	return &Calculator{strategies: strategies}
}

// Calculate returns the sum of every strategy's discount for ctx.
// An empty strategy set yields zero.
func (c *Calculator) Calculate(ctx Context) decimal.Decimal {
	total := decimal.Zero
	for _, s := range c.strategies {
		total = total.Add(s.Calculate(ctx))
	}
	return total
}
