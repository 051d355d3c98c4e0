package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-backend/api/responses"
	"github.com/angelmondragon/checkout-backend/api/validators"
	paymentsvc "github.com/angelmondragon/checkout-backend/internal/payments"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/metrics"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

const signatureHeader = "X-Webhook-Signature"

type initiatePaymentRequest struct {
	OrderID  uuid.UUID `json:"orderId" validate:"required"`
	Provider string    `json:"provider" validate:"required,oneof=STRIPE PAYPAL MANUAL"`
}

// PaymentInitiate opens a payment attempt against an order.
func PaymentInitiate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, err := enums.ParsePaymentProvider(payload.Provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnsupportedProvider, "unknown payment provider"))
			return
		}

		payment, err := svc.Initiate(r.Context(), userID, payload.OrderID, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentView(payment))
	}
}

// PaymentsByOrder lists an order's payment attempts, newest first.
func PaymentsByOrder(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a valid uuid"))
			return
		}

		payments, err := svc.ListByOrder(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]paymentView, 0, len(payments))
		for i := range payments {
			views = append(views, newPaymentView(&payments[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// PaymentWebhook ingests provider events. The acknowledgement body is fixed
// regardless of whether the event matched a known payment.
func PaymentWebhook(svc paymentsvc.Service, m *metrics.HTTPMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerParam := chi.URLParam(r, "provider")
		provider, err := enums.ParsePaymentProvider(strings.ToUpper(providerParam))
		if err != nil {
			m.IncWebhook(providerParam, "unsupported")
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnsupportedProvider, "unknown payment provider"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			m.IncWebhook(provider.String(), "error")
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook payload"))
			return
		}

		if err := svc.HandleWebhook(r.Context(), provider, r.Header.Get(signatureHeader), payload); err != nil {
			m.IncWebhook(provider.String(), "rejected")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		m.IncWebhook(provider.String(), "ok")
		responses.WriteRaw(w, http.StatusOK, map[string]bool{"received": true})
	}
}

type paymentView struct {
	ID          uuid.UUID     `json:"id"`
	OrderID     uuid.UUID     `json:"orderId"`
	Provider    string        `json:"provider"`
	Status      string        `json:"status"`
	Amount      string        `json:"amount"`
	Currency    string        `json:"currency"`
	ExternalID  *string       `json:"externalId,omitempty"`
	Metadata    types.JSONMap `json:"metadata,omitempty"`
	RawResponse types.JSONMap `json:"rawResponse,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func newPaymentView(payment *models.Payment) paymentView {
	return paymentView{
		ID:          payment.ID,
		OrderID:     payment.OrderID,
		Provider:    payment.Provider.String(),
		Status:      payment.Status.String(),
		Amount:      payment.Amount,
		Currency:    payment.Currency.String(),
		ExternalID:  payment.ExternalID,
		Metadata:    payment.Metadata,
		RawResponse: payment.RawResponse,
		CreatedAt:   payment.CreatedAt,
		UpdatedAt:   payment.UpdatedAt,
	}
}
