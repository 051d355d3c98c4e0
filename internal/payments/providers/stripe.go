package providers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// Stripe simulates a card-style payment intent flow: intents start PENDING
// with a client secret and settle through webhook events.
type Stripe struct {
	webhookSecret string
}

// NewStripe constructs the stripe-style provider. An empty secret disables
// signature checking.
func NewStripe(webhookSecret string) *Stripe {
	return &Stripe{webhookSecret: webhookSecret}
}

func (s *Stripe) Name() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

func (s *Stripe) CreatePayment(_ context.Context, params CreatePaymentParams) (*PaymentIntent, error) {
	intentToken, err := randomToken(6)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create stripe payment")
	}
	secretToken, err := randomToken(6)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create stripe payment")
	}

	externalID := fmt.Sprintf("pi_%d_%s", time.Now().UnixMilli(), intentToken)
	return &PaymentIntent{
		ExternalID:   externalID,
		Status:       enums.PaymentStatusPending,
		Amount:       params.Amount,
		Currency:     params.Currency,
		ClientSecret: fmt.Sprintf("%s_secret_%s", externalID, secretToken),
		Metadata: types.JSONMap{
			"orderId":   params.OrderID.String(),
			"provider":  "stripe",
			"createdAt": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (s *Stripe) VerifyWebhookSignature(signature string, _ []byte) bool {
	if s.webhookSecret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(signature), []byte(s.webhookSecret)) == 1
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func (s *Stripe) ParseWebhook(payload []byte) (*WebhookResult, error) {
	var raw types.JSONMap
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	status := enums.PaymentStatusPending
	switch event.Type {
	case "payment_intent.succeeded":
		status = enums.PaymentStatusCompleted
	case "payment_intent.payment_failed":
		status = enums.PaymentStatusFailed
	case "payment_intent.requires_action":
		status = enums.PaymentStatusRequiresAction
	}

	return &WebhookResult{
		ExternalID: event.Data.Object.ID,
		Status:     status,
		Metadata: types.JSONMap{
			"eventType":   event.Type,
			"processedAt": time.Now().UTC().Format(time.RFC3339),
		},
		RawResponse: raw,
	}, nil
}

func (s *Stripe) PaymentStatus(_ context.Context, externalID string) (enums.PaymentStatus, error) {
	switch bucket := statusBucket(externalID); {
	case bucket >= 8:
		return enums.PaymentStatusFailed, nil
	case bucket >= 1:
		return enums.PaymentStatusCompleted, nil
	default:
		return enums.PaymentStatusRequiresAction, nil
	}
}
