package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-management/internal/domain/auth"
	"github.com/xenking/order-management/internal/domain/order"
	"github.com/xenking/order-management/internal/domain/product"
	"github.com/xenking/order-management/internal/domain/user"
)

// errorResponse is the uniform error body for every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps domain errors to HTTP statuses. Unrecognized errors
// are logged and surfaced as an opaque 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr  *order.InvalidQuantityError
		oosErr *order.OutOfStockError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, product.ErrEmptyName),
		errors.Is(err, product.ErrNegativePrice),
		errors.Is(err, product.ErrNegativeQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &iqErr):
		respondError(w, http.StatusBadRequest, iqErr.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, unwrappedMessage(err))
	case errors.As(err, &oosErr):
		respondError(w, http.StatusConflict, oosErr.Error())
	// A concurrent placement can win the race between the availability check
	// and the decrement; the lost decrement is a conflict, not a server error.
	case errors.Is(err, product.ErrInsufficientStock):
		respondError(w, http.StatusConflict, product.ErrInsufficientStock.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// unwrappedMessage returns the sentinel's own message for wrapped NotFound
// errors, keeping wrap context ("get user: ...") out of client responses.
func unwrappedMessage(err error) string {
	for _, sentinel := range []error{user.ErrNotFound, product.ErrNotFound, order.ErrNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
