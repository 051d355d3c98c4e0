package providers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// PayPal simulates a buyer-redirect flow: intents start REQUIRES_ACTION with
// an approval URL and settle through capture webhooks.
type PayPal struct {
	webhookSecret string
}

// NewPayPal constructs the paypal-style provider. An empty secret disables
// signature checking.
func NewPayPal(webhookSecret string) *PayPal {
	return &PayPal{webhookSecret: webhookSecret}
}

func (p *PayPal) Name() enums.PaymentProvider {
	return enums.PaymentProviderPaypal
}

func (p *PayPal) CreatePayment(_ context.Context, params CreatePaymentParams) (*PaymentIntent, error) {
	token, err := randomToken(7)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create paypal payment")
	}

	externalID := fmt.Sprintf("PAYPAL-%d-%s", time.Now().UnixMilli(), strings.ToUpper(token))
	return &PaymentIntent{
		ExternalID:  externalID,
		Status:      enums.PaymentStatusRequiresAction,
		Amount:      params.Amount,
		Currency:    params.Currency,
		RedirectURL: fmt.Sprintf("https://www.sandbox.paypal.com/checkoutnow?token=%s", externalID),
		Metadata: types.JSONMap{
			"orderId":   params.OrderID.String(),
			"provider":  "paypal",
			"createdAt": time.Now().UTC().Format(time.RFC3339),
			"flow":      "redirect",
		},
	}, nil
}

func (p *PayPal) VerifyWebhookSignature(signature string, _ []byte) bool {
	if p.webhookSecret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(signature), []byte(p.webhookSecret)) == 1
}

type paypalEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID string `json:"id"`
	} `json:"resource"`
}

func (p *PayPal) ParseWebhook(payload []byte) (*WebhookResult, error) {
	var raw types.JSONMap
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	var event paypalEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	status := enums.PaymentStatusPending
	switch event.EventType {
	case "PAYMENT.CAPTURE.COMPLETED", "CHECKOUT.ORDER.APPROVED":
		status = enums.PaymentStatusCompleted
	case "PAYMENT.CAPTURE.DENIED":
		status = enums.PaymentStatusFailed
	}

	return &WebhookResult{
		ExternalID: event.Resource.ID,
		Status:     status,
		Metadata: types.JSONMap{
			"eventType":   event.EventType,
			"processedAt": time.Now().UTC().Format(time.RFC3339),
		},
		RawResponse: raw,
	}, nil
}

func (p *PayPal) PaymentStatus(_ context.Context, externalID string) (enums.PaymentStatus, error) {
	switch bucket := statusBucket(externalID); {
	case bucket >= 7:
		return enums.PaymentStatusCompleted, nil
	case bucket >= 3:
		return enums.PaymentStatusRequiresAction, nil
	default:
		return enums.PaymentStatusFailed, nil
	}
}
