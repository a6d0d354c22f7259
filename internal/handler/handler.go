// Package handler exposes the domain services over HTTP with JSON bodies.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/xenking/order-management/internal/domain/auth"
	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/domain/user"
)

// Handler holds the domain dependencies behind the HTTP routes.
type Handler struct {
	auth     *auth.Service
	tokens   *auth.TokenProvider
	products *product.Service
	orders   *order.Service
	users    user.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	authSvc *auth.Service,
	tokens *auth.TokenProvider,
	products *product.Service,
	orders *order.Service,
	users user.Repository,
) *Handler {
	return &Handler{
		auth:     authSvc,
		tokens:   tokens,
		products: products,
		orders:   orders,
		users:    users,
	}
}

// Routes builds the API router. Catalog reads and login are public; catalog
// writes require the admin role; order routes require any authenticated user.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/login", h.Login)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth, h.requireAdmin)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/", h.PlaceOrder)
		r.Get("/{id}", h.GetOrder)
	})

	return r
}
