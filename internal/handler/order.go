package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/order-management/internal/domain/order"
)

type placeOrderRequest struct {
	Items []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type orderItemResponse struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"productId"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountApplied decimal.Decimal `json:"discountApplied"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
}

type orderResponse struct {
	ID         int64               `json:"id"`
	UserID     int64               `json:"userId"`
	Items      []orderItemResponse `json:"items"`
	OrderTotal decimal.Decimal     `json:"orderTotal"`
	CreatedAt  time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, li := range o.Items {
		items[i] = orderItemResponse{
			ID:              li.ID,
			ProductID:       li.ProductID,
			Quantity:        li.Quantity,
			UnitPrice:       li.UnitPrice,
			DiscountApplied: li.DiscountApplied,
			TotalPrice:      li.TotalPrice,
		}
	}
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		Items:      items,
		OrderTotal: o.OrderTotal,
		CreatedAt:  o.CreatedAt,
	}
}

// PlaceOrder places an order for the authenticated user.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), claims.Username, items)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// GetOrder returns an order to its owner or an admin.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	u, err := h.users.GetByUsername(r.Context(), claims.Username)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	o, err := h.orders.GetForUser(r.Context(), id, u)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(o))
}
