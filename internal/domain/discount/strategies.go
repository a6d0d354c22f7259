package discount

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/user"
)

var (
	premiumRate        = decimal.RequireFromString("0.10")
	highValueRate      = decimal.RequireFromString("0.05")
	highValueThreshold = decimal.RequireFromString("500.00")
)

// PremiumUser grants premium users 10% off the subtotal.
type PremiumUser struct{}

// Calculate returns subtotal * 10% rounded half-up to 2 decimal places for
// premium users, zero for everyone else.
func (PremiumUser) Calculate(ctx Context) decimal.Decimal {
	if ctx.UserRole != user.RolePremium {
		return decimal.Zero
	}
	return ctx.Subtotal.Mul(premiumRate).Round(2)
}

// HighValueOrder grants 5% off orders with a subtotal of at least 500.00.
type HighValueOrder struct{}

// Calculate returns subtotal * 5% rounded half-up to 2 decimal places when
// the subtotal meets the threshold (inclusive), zero otherwise.
func (HighValueOrder) Calculate(ctx Context) decimal.Decimal {
	if ctx.Subtotal.LessThan(highValueThreshold) {
		return decimal.Zero
	}
	return ctx.Subtotal.Mul(highValueRate).Round(2)
}
