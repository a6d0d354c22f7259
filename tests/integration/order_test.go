//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
)

// assertAmount compares decimal strings numerically so "39" and "39.00" are
// equal.
func assertAmount(t *testing.T, want, got, label string) {
	t.Helper()

	w, err := strconv.ParseFloat(want, 64)
	if err != nil {
		t.Fatalf("parse %q: %v", want, err)
	}
	g, err := strconv.ParseFloat(got, 64)
	if err != nil {
		t.Fatalf("parse %q: %v", got, err)
	}
	if w != g {
		t.Errorf("%s: got %s, want %s", label, got, want)
	}
}

func TestPlaceOrder_RequiresAuth(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", "", map[string]any{
		"items": []map[string]any{{"productId": 1, "quantity": 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_RegularUser(t *testing.T) {
	bob := login(t, "bob", "bob12345")
	stand := findProduct(t, "Laptop Stand")

	resp := doRequest(t, http.MethodPost, "/api/orders", bob, map[string]any{
		"items": []map[string]any{{"productId": stand.ID, "quantity": 2}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if len(o.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(o.Items))
	}
	// 2 * 39.00 = 78.00, below the high-value threshold, no premium role.
	assertAmount(t, "78.00", o.OrderTotal, "order total")
	assertAmount(t, "0", o.Items[0].DiscountApplied, "item discount")

	// Stock is decremented immediately.
	after := findProduct(t, "Laptop Stand")
	if after.Quantity != stand.Quantity-2 {
		t.Errorf("stock: got %d, want %d", after.Quantity, stand.Quantity-2)
	}
}

func TestPlaceOrder_PremiumWithHighValue(t *testing.T) {
	alice := login(t, "alice", "alice123")
	monitor := findProduct(t, `27" Monitor`)
	mouse := findProduct(t, "Wireless Mouse")

	// 2 * 329.00 + 1 * 49.50 = 707.50 subtotal.
	// Premium 10% = 70.75, high-value 5% = 35.38, total discount 106.13.
	resp := doRequest(t, http.MethodPost, "/api/orders", alice, map[string]any{
		"items": []map[string]any{
			{"productId": monitor.ID, "quantity": 2},
			{"productId": mouse.ID, "quantity": 1},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if len(o.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(o.Items))
	}

	// First item gets its proportional share, the last item the remainder.
	assertAmount(t, "98.70", o.Items[0].DiscountApplied, "monitor discount")
	assertAmount(t, "7.43", o.Items[1].DiscountApplied, "mouse discount")
	assertAmount(t, "601.37", o.OrderTotal, "order total")
}

func TestPlaceOrder_OutOfStock(t *testing.T) {
	bob := login(t, "bob", "bob12345")
	dock := findProduct(t, "USB-C Dock")
	webcam := findProduct(t, "Webcam")

	resp := doRequest(t, http.MethodPost, "/api/orders", bob, map[string]any{
		"items": []map[string]any{
			{"productId": dock.ID, "quantity": 1},
			{"productId": webcam.ID, "quantity": webcam.Quantity + 1},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	want := fmt.Sprintf("product Webcam is out of stock, available: %d", webcam.Quantity)
	if body.Message != want {
		t.Errorf("message: got %q, want %q", body.Message, want)
	}

	// The dock decrement from the failed order is not rolled back.
	after := findProduct(t, "USB-C Dock")
	if after.Quantity != dock.Quantity-1 {
		t.Errorf("dock stock: got %d, want %d", after.Quantity, dock.Quantity-1)
	}
}

func TestPlaceOrder_Validation(t *testing.T) {
	bob := login(t, "bob", "bob12345")

	t.Run("empty items", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, "/api/orders", bob, map[string]any{
			"items": []any{},
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, "/api/orders", bob, map[string]any{
			"items": []map[string]any{{"productId": 1, "quantity": 0}},
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, "/api/orders", bob, map[string]any{
			"items": []map[string]any{{"productId": 999999, "quantity": 1}},
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestGetOrder_Visibility(t *testing.T) {
	bob := login(t, "bob", "bob12345")
	alice := login(t, "alice", "alice123")
	admin := login(t, "admin", "admin123")
	stand := findProduct(t, "Laptop Stand")

	resp := doRequest(t, http.MethodPost, "/api/orders", bob, map[string]any{
		"items": []map[string]any{{"productId": stand.ID, "quantity": 1}},
	})
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		t.Fatalf("place: expected 201, got %d", resp.StatusCode)
	}
	placed := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	path := fmt.Sprintf("/api/orders/%d", placed.ID)

	t.Run("owner", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, path, bob, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		o := decodeJSON[orderResponse](t, resp)
		if o.ID != placed.ID {
			t.Errorf("id: got %d, want %d", o.ID, placed.ID)
		}
	})

	t.Run("admin", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, path, admin, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("other user", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, path, alice, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, path, "", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})
}
