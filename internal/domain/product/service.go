package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog input validation.
var (
	ErrEmptyName        = errors.New("product name cannot be empty")
	ErrNegativePrice    = errors.New("product price must be non-negative")
	ErrNegativeQuantity = errors.New("product quantity must be non-negative")
)

// Service implements catalog business logic on top of a Repository.
type Service struct {
	repo Repository
}

// NewService creates a catalog Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates the input and stores a new product. The repository assigns
// ID and timestamps.
func (s *Service) Create(ctx context.Context, name, description string, price decimal.Decimal, quantity int) (*Product, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if quantity < 0 {
		return nil, ErrNegativeQuantity
	}

	p := &Product{
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    quantity,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update applies the non-nil fields of params to an existing product.
// Blank names, negative prices, and negative quantities are ignored rather
// than rejected, matching partial-update semantics.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil && *params.Name != "" {
		p.Name = *params.Name
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Price != nil && !params.Price.IsNegative() {
		p.Price = *params.Price
	}
	if params.Quantity != nil && *params.Quantity >= 0 {
		p.Quantity = *params.Quantity
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// GetByID returns a single product or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all non-deleted products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// Search returns products matching the filter.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Product, error) {
	return s.repo.Search(ctx, filter)
}

// Delete soft-deletes a product. Returns ErrNotFound for unknown IDs.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// DecreaseStock subtracts qty units from the product's inventory. The caller
// is expected to have checked availability already; the two calls are
// separate round-trips with no lock in between, so a concurrent decrement can
// still win the race and surface here as ErrInsufficientStock.
func (s *Service) DecreaseStock(ctx context.Context, id int64, qty int) error {
	return s.repo.DecreaseStock(ctx, id, qty)
}
