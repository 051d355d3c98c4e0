package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-backend/api/middleware"
	cartsvc "github.com/angelmondragon/checkout-backend/internal/cart"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

type stubCartService struct {
	cart *models.Cart
	err  error
	got  cartsvc.AddItemInput
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*models.Cart, error) {
	s.got = input
	return s.cart, s.err
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	return s.cart, s.err
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.cart, s.err
}

func testCart() *models.Cart {
	return &models.Cart{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Status:   enums.CartStatusActive,
		Currency: enums.CurrencyEUR,
		Subtotal: "0.00",
		Total:    "0.00",
	}
}

func asUser(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), uuid.NewString()))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCartGetSuccess(t *testing.T) {
	cart := testCart()
	handler := CartGet(&stubCartService{cart: cart}, nil)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != cart.ID {
		t.Fatalf("unexpected cart id: %s", envelope.Data.ID)
	}
	if envelope.Data.Status != enums.CartStatusActive.String() {
		t.Fatalf("unexpected status: %s", envelope.Data.Status)
	}
}

func TestCartGetMissingIdentity(t *testing.T) {
	handler := CartGet(&stubCartService{cart: testCart()}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestCartAddItemSuccess(t *testing.T) {
	svc := &stubCartService{cart: testCart()}
	handler := CartAddItem(svc, nil)

	body := `{"productId":"laptop-001","name":"Laptop","quantity":1,"unitPrice":"1299.99"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.got.ProductID != "laptop-001" || svc.got.Quantity != 1 {
		t.Fatalf("unexpected service input: %+v", svc.got)
	}
}

func TestCartAddItemRejectsInvalidBody(t *testing.T) {
	handler := CartAddItem(&stubCartService{cart: testCart()}, nil)

	cases := map[string]string{
		"zero quantity":        `{"productId":"p","name":"n","quantity":0,"unitPrice":"1.00"}`,
		"missing product":      `{"name":"n","quantity":1,"unitPrice":"1.00"}`,
		"unsupported currency": `{"productId":"p","name":"n","quantity":1,"unitPrice":"1.00","currency":"JPY"}`,
		"not json":             `{{`,
	}
	for name, body := range cases {
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
	}
}

func TestCartUpdateItemRejectsBadItemID(t *testing.T) {
	handler := CartUpdateItem(&stubCartService{cart: testCart()}, nil)

	req := asUser(httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/nope", strings.NewReader(`{"quantity":2}`)))
	req = withURLParam(req, "itemId", "nope")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartRemoveItemPropagatesNotFound(t *testing.T) {
	handler := CartRemoveItem(&stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")}, nil)

	itemID := uuid.NewString()
	req := asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID, nil))
	req = withURLParam(req, "itemId", itemID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartClearPropagatesStateConflict(t *testing.T) {
	handler := CartClear(&stubCartService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not modifiable")}, nil)

	req := asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
