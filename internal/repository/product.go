package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-management/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, quantity, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE NOT deleted ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1 AND NOT deleted`

	createProductSQL = `INSERT INTO products (name, description, price, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, quantity = $5, updated_at = now()
		WHERE id = $1 AND NOT deleted
		RETURNING updated_at`

	deleteProductSQL = `UPDATE products SET deleted = TRUE, updated_at = now()
		WHERE id = $1 AND NOT deleted`

	// The WHERE guard makes the decrement itself conditional so a lost race
	// between a caller's availability check and this statement surfaces as a
	// zero-row update instead of negative stock.
	decreaseStockSQL = `UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND NOT deleted AND quantity >= $2`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND NOT deleted)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all non-deleted products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Search returns products matching the filter criteria, ordered by ID.
func (r *ProductRepository) Search(ctx context.Context, filter product.SearchFilter) ([]product.Product, error) {
	var (
		conds = []string{"NOT deleted"}
		args  []any
	)
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
	}
	if filter.InStock != nil {
		if *filter.InStock {
			conds = append(conds, "quantity > 0")
		} else {
			conds = append(conds, "quantity = 0")
		}
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product and fills in its ID and timestamps.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.Name, p.Description, p.Price, p.Quantity,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// Update persists the product's mutable fields and refreshes UpdatedAt.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Quantity,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	return nil
}

// Delete soft-deletes a product. Returns product.ErrNotFound for unknown or
// already-deleted IDs.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// DecreaseStock subtracts qty units from the product's inventory.
func (r *ProductRepository) DecreaseStock(ctx context.Context, id int64, qty int) error {
	tag, err := r.pool.Exec(ctx, decreaseStockSQL, id, qty)
	if err != nil {
		return fmt.Errorf("decreasing stock for product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing product from an insufficient balance.
		var exists bool
		if err := r.pool.QueryRow(ctx, productExistsSQL, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking product %d: %w", id, err)
		}
		if !exists {
			return product.ErrNotFound
		}
		return product.ErrInsufficientStock
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
