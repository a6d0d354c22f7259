package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-management/internal/domain/discount"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/domain/user"
)

type stubUserRepo struct {
	users map[string]*user.User
}

func (r *stubUserRepo) GetByUsername(_ context.Context, username string) (*user.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

// stubInventory keeps mutable stock so tests can observe decrements that
// happened before a placement failed.
type stubInventory struct {
	products   map[int64]*product.Product
	decrements []int64
}

func (inv *stubInventory) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := inv.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (inv *stubInventory) DecreaseStock(_ context.Context, id int64, qty int) error {
	p, ok := inv.products[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Quantity < qty {
		return product.ErrInsufficientStock
	}
	p.Quantity -= qty
	inv.decrements = append(inv.decrements, id)
	return nil
}

type stubOrderRepo struct {
	created []*Order
}

func (r *stubOrderRepo) Create(_ context.Context, o *Order) error {
	o.ID = int64(len(r.created) + 1)
	r.created = append(r.created, o)
	return nil
}

func (r *stubOrderRepo) GetByID(_ context.Context, id int64) (*Order, error) {
	for _, o := range r.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

type fixture struct {
	users     *stubUserRepo
	inventory *stubInventory
	orders    *stubOrderRepo
	svc       *Service
}

func newFixture(strategies ...discount.Strategy) *fixture {
	users := &stubUserRepo{users: map[string]*user.User{
		"alice": {ID: 1, Username: "alice", Role: user.RolePremium},
		"bob":   {ID: 2, Username: "bob", Role: user.RoleUser},
		"root":  {ID: 3, Username: "root", Role: user.RoleAdmin},
	}}
	inventory := &stubInventory{products: map[int64]*product.Product{
		10: {ID: 10, Name: "Widget", Price: decimal.RequireFromString("100.00"), Quantity: 20},
		11: {ID: 11, Name: "Gadget", Price: decimal.RequireFromString("33.33"), Quantity: 5},
		12: {ID: 12, Name: "Gizmo", Price: decimal.RequireFromString("0.99"), Quantity: 1},
	}}
	orders := &stubOrderRepo{}
	return &fixture{
		users:     users,
		inventory: inventory,
		orders:    orders,
		svc:       NewService(users, inventory, discount.NewCalculator(strategies...), orders),
	}
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	t.Run("empty items", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(ctx, "bob", nil)
		assert.ErrorIs(t, err, ErrEmptyItems)
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(ctx, "bob", []ItemRequest{{ProductID: 10, Quantity: 0}})
		var invalidErr *InvalidQuantityError
		require.ErrorAs(t, err, &invalidErr)
		assert.Equal(t, int64(10), invalidErr.ProductID)
	})

	t.Run("negative quantity rejected before any side effect", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(ctx, "bob", []ItemRequest{
			{ProductID: 10, Quantity: 2},
			{ProductID: 11, Quantity: -1},
		})
		var invalidErr *InvalidQuantityError
		require.ErrorAs(t, err, &invalidErr)
		assert.Empty(t, f.inventory.decrements, "validation must run before stock mutation")
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(ctx, "nobody", []ItemRequest{{ProductID: 10, Quantity: 1}})
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(ctx, "bob", []ItemRequest{{ProductID: 999, Quantity: 1}})
		assert.ErrorIs(t, err, product.ErrNotFound)
	})
}

func TestPlaceOrder_OutOfStock(t *testing.T) {
	f := newFixture()

	_, err := f.svc.PlaceOrder(context.Background(), "bob", []ItemRequest{
		{ProductID: 10, Quantity: 2},
		{ProductID: 12, Quantity: 5},
	})

	var oosErr *OutOfStockError
	require.ErrorAs(t, err, &oosErr)
	assert.Equal(t, "Gizmo", oosErr.ProductName)
	assert.Equal(t, 1, oosErr.Available)
	assert.Equal(t, "product Gizmo is out of stock, available: 1", oosErr.Error())

	// The first item's decrement is not rolled back and no order is stored.
	assert.Equal(t, 18, f.inventory.products[10].Quantity)
	assert.Equal(t, []int64{10}, f.inventory.decrements)
	assert.Empty(t, f.orders.created)
}

func TestPlaceOrder_NoDiscount(t *testing.T) {
	f := newFixture()

	o, err := f.svc.PlaceOrder(context.Background(), "bob", []ItemRequest{
		{ProductID: 10, Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), o.UserID)
	require.Len(t, o.Items, 1)
	assertDecimal(t, "100.00", o.Items[0].TotalPrice)
	assert.True(t, o.Items[0].DiscountApplied.IsZero())
	assertDecimal(t, "100.00", o.OrderTotal)
	assert.Equal(t, 19, f.inventory.products[10].Quantity)
	require.Len(t, f.orders.created, 1)
}

func TestPlaceOrder_PremiumDiscount(t *testing.T) {
	f := newFixture(discount.PremiumUser{})

	o, err := f.svc.PlaceOrder(context.Background(), "alice", []ItemRequest{
		{ProductID: 10, Quantity: 1},
	})
	require.NoError(t, err)

	// A single item receives the full discount verbatim.
	assertDecimal(t, "10.00", o.Items[0].DiscountApplied)
	assertDecimal(t, "90.00", o.OrderTotal)
	assertDecimal(t, "90.00", o.Items[0].FinalPrice())
}

func TestPlaceOrder_CombinedDiscounts(t *testing.T) {
	f := newFixture(discount.PremiumUser{}, discount.HighValueOrder{})

	// 10 * 100.00 = 1000.00 subtotal; premium 100.00 plus high-value 50.00.
	o, err := f.svc.PlaceOrder(context.Background(), "alice", []ItemRequest{
		{ProductID: 10, Quantity: 10},
	})
	require.NoError(t, err)

	assertDecimal(t, "1000.00", o.Subtotal())
	assertDecimal(t, "150.00", o.Items[0].DiscountApplied)
	assertDecimal(t, "850.00", o.OrderTotal)
}

func TestPlaceOrder_HighValueForRegularUser(t *testing.T) {
	f := newFixture(discount.PremiumUser{}, discount.HighValueOrder{})
	f.inventory.products[11].Quantity = 20

	// 16 * 33.33 = 533.28 subtotal; 5% = 26.664, rounded half-up to 26.66.
	// Bob is a regular user, so no premium share applies.
	o, err := f.svc.PlaceOrder(context.Background(), "bob", []ItemRequest{
		{ProductID: 11, Quantity: 16},
	})
	require.NoError(t, err)

	assertDecimal(t, "533.28", o.Subtotal())
	assertDecimal(t, "26.66", o.Items[0].DiscountApplied)
	assertDecimal(t, "506.62", o.OrderTotal)
}

func TestPlaceOrder_DiscountDistribution(t *testing.T) {
	f := newFixture(discount.PremiumUser{})

	// Totals 100.00, 99.99, 0.99; subtotal 200.98; discount 20.10.
	o, err := f.svc.PlaceOrder(context.Background(), "alice", []ItemRequest{
		{ProductID: 10, Quantity: 1},
		{ProductID: 11, Quantity: 3},
		{ProductID: 12, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 3)

	// Non-last items get their proportional share rounded half-up; the last
	// item absorbs the remainder so the shares sum exactly.
	assertDecimal(t, "10.00", o.Items[0].DiscountApplied)
	assertDecimal(t, "10.00", o.Items[1].DiscountApplied)
	assertDecimal(t, "0.10", o.Items[2].DiscountApplied)

	sum := decimal.Zero
	for _, li := range o.Items {
		sum = sum.Add(li.DiscountApplied)
	}
	assertDecimal(t, "20.10", sum)
	assertDecimal(t, "180.88", o.OrderTotal)
}

func TestDistributeDiscount_RemainderCanBeZero(t *testing.T) {
	// When earlier shares round up to the whole discount, the last item is
	// left with an exact zero rather than a recomputed share.
	items := []LineItem{
		NewLineItem(1, 1, decimal.RequireFromString("99.995")),
		NewLineItem(2, 1, decimal.RequireFromString("0.005")),
	}
	distributeDiscount(items,
		decimal.RequireFromString("10.00"),
		decimal.RequireFromString("100.00"))

	assertDecimal(t, "10.00", items[0].DiscountApplied)
	assert.True(t, items[1].DiscountApplied.IsZero())
}

func TestDistributeDiscount_HalfCentTiesStayNonNegative(t *testing.T) {
	// Totals 0.15 x3 plus 0.05, subtotal 0.50, discount 0.05. Every non-last
	// proportional share is 0.015 and rounds up to 0.02; uncapped, the rounded
	// shares would sum to 0.06 and push the last item to -0.01.
	items := []LineItem{
		NewLineItem(1, 1, decimal.RequireFromString("0.15")),
		NewLineItem(2, 1, decimal.RequireFromString("0.15")),
		NewLineItem(3, 1, decimal.RequireFromString("0.15")),
		NewLineItem(4, 1, decimal.RequireFromString("0.05")),
	}
	distributeDiscount(items,
		decimal.RequireFromString("0.05"),
		decimal.RequireFromString("0.50"))

	assertDecimal(t, "0.02", items[0].DiscountApplied)
	assertDecimal(t, "0.02", items[1].DiscountApplied)
	assertDecimal(t, "0.01", items[2].DiscountApplied)
	assert.True(t, items[3].DiscountApplied.IsZero())

	sum := decimal.Zero
	for _, li := range items {
		assert.False(t, li.DiscountApplied.IsNegative(),
			"item discount must never be negative, got %s", li.DiscountApplied)
		sum = sum.Add(li.DiscountApplied)
	}
	assertDecimal(t, "0.05", sum)
}

func TestPlaceOrder_TinyItemDiscountsStayNonNegative(t *testing.T) {
	f := newFixture(discount.PremiumUser{})
	f.inventory.products[13] = &product.Product{
		ID: 13, Name: "Sticker", Price: decimal.RequireFromString("0.15"), Quantity: 10,
	}
	f.inventory.products[14] = &product.Product{
		ID: 14, Name: "Clip", Price: decimal.RequireFromString("0.05"), Quantity: 10,
	}

	// Four line items summing to 0.50; premium discount 0.05 lands on
	// half-cent ties for every proportional share.
	o, err := f.svc.PlaceOrder(context.Background(), "alice", []ItemRequest{
		{ProductID: 13, Quantity: 1},
		{ProductID: 13, Quantity: 1},
		{ProductID: 13, Quantity: 1},
		{ProductID: 14, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 4)

	sum := decimal.Zero
	for _, li := range o.Items {
		assert.False(t, li.DiscountApplied.IsNegative(),
			"item discount must never be negative, got %s", li.DiscountApplied)
		sum = sum.Add(li.DiscountApplied)
	}
	assertDecimal(t, "0.05", sum)
	assertDecimal(t, "0.45", o.OrderTotal)
}

func TestGetForUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	placed, err := f.svc.PlaceOrder(ctx, "bob", []ItemRequest{{ProductID: 10, Quantity: 1}})
	require.NoError(t, err)

	owner := &user.User{ID: 2, Username: "bob", Role: user.RoleUser}
	other := &user.User{ID: 1, Username: "alice", Role: user.RolePremium}
	admin := &user.User{ID: 3, Username: "root", Role: user.RoleAdmin}

	t.Run("owner sees own order", func(t *testing.T) {
		o, err := f.svc.GetForUser(ctx, placed.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, placed.ID, o.ID)
	})

	t.Run("admin sees any order", func(t *testing.T) {
		_, err := f.svc.GetForUser(ctx, placed.ID, admin)
		assert.NoError(t, err)
	})

	t.Run("other user gets not found", func(t *testing.T) {
		_, err := f.svc.GetForUser(ctx, placed.ID, other)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := f.svc.GetForUser(ctx, 404, owner)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "expected %s, got %s", want, got)
}
