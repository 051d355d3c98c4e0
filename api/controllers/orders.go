package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-backend/api/responses"
	"github.com/angelmondragon/checkout-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/checkout-backend/internal/checkout"
	ordersvc "github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/pagination"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

type checkoutRequest struct {
	PreferredPaymentProvider string `json:"preferredPaymentProvider" validate:"omitempty,oneof=STRIPE PAYPAL MANUAL"`
}

// Checkout converts the caller's active cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// the body is optional; EOF means no preference was sent
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil && !errors.Is(err, io.EOF) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var preferred *enums.PaymentProvider
		if payload.PreferredPaymentProvider != "" {
			provider, parseErr := enums.ParsePaymentProvider(payload.PreferredPaymentProvider)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnsupportedProvider, "unknown payment provider"))
				return
			}
			preferred = &provider
		}

		order, err := svc.Execute(r.Context(), userID, preferred)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// OrdersList returns the caller's order history, newest first.
func OrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]orderResponse, 0, len(page.Orders))
		for i := range page.Orders {
			views = append(views, newOrderResponse(&page.Orders[i]))
		}
		responses.WriteSuccess(w, orderListResponse{Orders: views, NextCursor: page.NextCursor})
	}
}

// OrderGet returns a single order with payment history and cart reference.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderStatus is the lightweight status polling endpoint.
func OrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		view, err := svc.Status(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

type orderCartRef struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type orderResponse struct {
	ID                       uuid.UUID           `json:"id"`
	Status                   string              `json:"status"`
	PreferredPaymentProvider *string             `json:"preferredPaymentProvider,omitempty"`
	Subtotal                 string              `json:"subtotal"`
	TotalAmount              string              `json:"totalAmount"`
	Currency                 string              `json:"currency"`
	ItemsSnapshot            types.ItemSnapshots `json:"itemsSnapshot"`
	Payments                 []paymentView       `json:"payments,omitempty"`
	Cart                     *orderCartRef       `json:"cart,omitempty"`
	CreatedAt                time.Time           `json:"createdAt"`
	UpdatedAt                time.Time           `json:"updatedAt"`
}

func newOrderResponse(order *models.Order) orderResponse {
	view := orderResponse{
		ID:            order.ID,
		Status:        order.Status.String(),
		Subtotal:      order.Subtotal,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency.String(),
		ItemsSnapshot: order.ItemsSnapshot,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	if order.PreferredPaymentProvider != nil {
		provider := order.PreferredPaymentProvider.String()
		view.PreferredPaymentProvider = &provider
	}
	if order.Cart != nil {
		view.Cart = &orderCartRef{ID: order.Cart.ID, Status: order.Cart.Status.String()}
	}
	for i := range order.Payments {
		view.Payments = append(view.Payments, newPaymentView(&order.Payments[i]))
	}
	return view
}
