package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/discount"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/domain/user"
)

// Inventory provides the product operations order placement needs: price and
// stock lookup, and the stock decrement. The check and the decrement are two
// separate calls with no lock held in between; see Service.PlaceOrder.
type Inventory interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
	DecreaseStock(ctx context.Context, id int64, qty int) error
}

// ItemRequest is one (product, quantity) pair of a placement request, in
// request order.
type ItemRequest struct {
	ProductID int64
	Quantity  int
}

// Service encapsulates order placement business logic.
type Service struct {
	users     user.Repository
	inventory Inventory
	discounts *discount.Calculator
	orders    Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	users user.Repository,
	inventory Inventory,
	discounts *discount.Calculator,
	orders Repository,
) *Service {
	return &Service{
		users:     users,
		inventory: inventory,
		discounts: discounts,
		orders:    orders,
	}
}

// PlaceOrder assembles and persists an order for the acting user.
//
// Items are processed strictly in request order. For each item the product is
// resolved, availability is checked, and stock is decremented immediately.
// A failure part-way aborts the order but does not restore stock already
// decremented for earlier items; inventory mutations are not transactional
// across the order. The availability check and the decrement are also two
// separate repository calls, so concurrent placements for the same product
// can race between them.
func (s *Service) PlaceOrder(ctx context.Context, username string, items []ItemRequest) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}

	lineItems := make([]LineItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		p, err := s.inventory.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, errors.Wrap(err, "get product")
		}

		if !p.HasStock(item.Quantity) {
			return nil, &OutOfStockError{ProductName: p.Name, Available: p.Quantity}
		}

		if err := s.inventory.DecreaseStock(ctx, p.ID, item.Quantity); err != nil {
			return nil, errors.Wrap(err, "decrease stock")
		}

		li := NewLineItem(p.ID, item.Quantity, p.Price)
		lineItems = append(lineItems, li)
		subtotal = subtotal.Add(li.TotalPrice)
	}

	totalDiscount := s.discounts.Calculate(discount.Context{
		UserRole: u.Role,
		Subtotal: subtotal,
	})

	if totalDiscount.IsPositive() && subtotal.IsPositive() {
		distributeDiscount(lineItems, totalDiscount, subtotal)
	}

	o := &Order{
		UserID:     u.ID,
		Items:      lineItems,
		OrderTotal: subtotal.Sub(totalDiscount),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// GetForUser returns the order with the given ID if actingUser owns it or is
// an admin. Anyone else gets ErrNotFound rather than a permission error, so
// order IDs are not probeable.
func (s *Service) GetForUser(ctx context.Context, id int64, actingUser *user.User) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != actingUser.ID && !actingUser.IsAdmin() {
		return nil, ErrNotFound
	}
	return o, nil
}

// distributeDiscount spreads totalDiscount across items proportionally to
// their share of the subtotal, rounding each share half-up to 2 decimal
// places. The last item receives whatever remains instead of its own
// proportional share, so the item discounts always sum to totalDiscount
// exactly. With a single item that means the full discount, verbatim.
//
// A rounded share is capped at the undistributed remainder: when several
// shares land on half-cent ties the rounded sum can exceed totalDiscount,
// and without the cap the last item would absorb a negative discount.
func distributeDiscount(items []LineItem, totalDiscount, subtotal decimal.Decimal) {
	remaining := totalDiscount
	for i := range items {
		if i == len(items)-1 {
			items[i].DiscountApplied = remaining
			return
		}
		share := items[i].TotalPrice.Mul(totalDiscount).Div(subtotal).Round(2)
		if share.GreaterThan(remaining) {
			share = remaining
		}
		items[i].DiscountApplied = share
		remaining = remaining.Sub(share)
	}
}
