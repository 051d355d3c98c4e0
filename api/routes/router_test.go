package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	cartsvc "github.com/angelmondragon/checkout-backend/internal/cart"
	ordersvc "github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/metrics"
	"github.com/angelmondragon/checkout-backend/pkg/pagination"
)

var testUserID = uuid.MustParse("5b8b1f7e-8d6c-4f0f-9e51-2f4f0a4f9f10")

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubIdentity struct{}

func (stubIdentity) Resolve(ctx context.Context, headerValue string) (string, error) {
	return testUserID.String(), nil
}

func emptyCart() *models.Cart {
	return &models.Cart{
		UserID:   testUserID,
		Status:   enums.CartStatusActive,
		Currency: enums.CurrencyEUR,
		Subtotal: "0.00",
		Total:    "0.00",
	}
}

type stubCartService struct{}

func (stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return emptyCart(), nil
}

func (stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cartsvc.AddItemInput) (*models.Cart, error) {
	return emptyCart(), nil
}

func (stubCartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	return emptyCart(), nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	return emptyCart(), nil
}

func (stubCartService) Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return emptyCart(), nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(ctx context.Context, userID uuid.UUID, preferredProvider *enums.PaymentProvider) (*models.Order, error) {
	return &models.Order{
		UserID:      userID,
		Status:      enums.OrderStatusAwaitingPayment,
		Subtotal:    "0.00",
		TotalAmount: "0.00",
		Currency:    enums.CurrencyEUR,
	}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ordersvc.OrderList, error) {
	return &ordersvc.OrderList{}, nil
}

func (stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrdersService) Status(ctx context.Context, userID, orderID uuid.UUID) (*ordersvc.StatusView, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type stubPaymentsService struct {
	webhook func(ctx context.Context, provider enums.PaymentProvider, signature string, payload []byte) error
}

func (stubPaymentsService) Initiate(ctx context.Context, userID, orderID uuid.UUID, provider enums.PaymentProvider) (*models.Payment, error) {
	return &models.Payment{
		OrderID:  orderID,
		Provider: provider,
		Status:   enums.PaymentStatusPending,
		Amount:   "0.00",
		Currency: enums.CurrencyEUR,
	}, nil
}

func (stubPaymentsService) ListByOrder(ctx context.Context, userID, orderID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

func (s stubPaymentsService) HandleWebhook(ctx context.Context, provider enums.PaymentProvider, signature string, payload []byte) error {
	if s.webhook != nil {
		return s.webhook(ctx, provider, signature, payload)
	}
	return nil
}

func newTestRouter(payments stubPaymentsService) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	registry := prometheus.NewRegistry()
	return NewRouter(Deps{
		Logger:   logg,
		DB:       stubPinger{},
		Registry: registry,
		Metrics:  metrics.NewHTTPMetrics(registry),
		Identity: stubIdentity{},
		Cart:     stubCartService{},
		Checkout: stubCheckoutService{},
		Orders:   stubOrdersService{},
		Payments: payments,
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(stubPaymentsService{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(stubPaymentsService{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestCartRoutesResolveIdentity(t *testing.T) {
	router := newTestRouter(stubPaymentsService{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, enums.CartStatusActive.String(), envelope.Data.Status)
}

func TestCheckoutAcceptsEmptyBody(t *testing.T) {
	router := newTestRouter(stubPaymentsService{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", nil))
	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestWebhookBypassesIdentity(t *testing.T) {
	var sawProvider enums.PaymentProvider
	router := newTestRouter(stubPaymentsService{
		webhook: func(ctx context.Context, provider enums.PaymentProvider, signature string, payload []byte) error {
			sawProvider = provider
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/stripe", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, enums.PaymentProviderStripe, sawProvider)
	require.JSONEq(t, `{"received":true}`, resp.Body.String())
}

func TestWebhookUnknownProvider(t *testing.T) {
	router := newTestRouter(stubPaymentsService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/bitcoin", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(stubPaymentsService{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	require.Equal(t, http.StatusNotFound, resp.Code)
}
