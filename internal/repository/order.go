package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-management/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, order_total)
		VALUES ($1, $2)
		RETURNING id, created_at`

	createOrderItemSQL = `INSERT INTO order_items
		(order_id, product_id, quantity, unit_price, discount_applied, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	getOrderByIDSQL = `SELECT id, user_id, order_total, created_at
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, product_id, quantity, unit_price, discount_applied, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and its line items in one transaction, assigning
// the order ID, item IDs, and CreatedAt. Line items keep their slice order
// via their serial IDs.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	err = tx.QueryRow(ctx, createOrderSQL, o.UserID, o.OrderTotal).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}

	for i := range o.Items {
		li := &o.Items[i]
		err = tx.QueryRow(ctx, createOrderItemSQL,
			o.ID, li.ProductID, li.Quantity, li.UnitPrice, li.DiscountApplied, li.TotalPrice,
		).Scan(&li.ID)
		if err != nil {
			return fmt.Errorf("creating order item for product %d: %w", li.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %d: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its line items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, getOrderByIDSQL, id).
		Scan(&o.ID, &o.UserID, &o.OrderTotal, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}

	return &o, nil
}

func scanLineItem(row pgx.CollectableRow) (order.LineItem, error) {
	var li order.LineItem
	err := row.Scan(
		&li.ID, &li.ProductID, &li.Quantity,
		&li.UnitPrice, &li.DiscountApplied, &li.TotalPrice,
	)
	return li, err
}
