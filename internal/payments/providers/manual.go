package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// Manual approves payments instantly with no external step, for demos and
// tests needing guaranteed success.
type Manual struct{}

// NewManual constructs the manual provider.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Name() enums.PaymentProvider {
	return enums.PaymentProviderManual
}

func (m *Manual) CreatePayment(_ context.Context, params CreatePaymentParams) (*PaymentIntent, error) {
	token, err := randomToken(7)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create manual payment")
	}

	return &PaymentIntent{
		ExternalID: fmt.Sprintf("MANUAL-%d-%s", time.Now().UnixMilli(), strings.ToUpper(token)),
		Status:     enums.PaymentStatusCompleted,
		Amount:     params.Amount,
		Currency:   params.Currency,
		Metadata: types.JSONMap{
			"orderId":      params.OrderID.String(),
			"provider":     "manual",
			"createdAt":    time.Now().UTC().Format(time.RFC3339),
			"autoApproved": true,
		},
	}, nil
}

func (m *Manual) VerifyWebhookSignature(_ string, _ []byte) bool {
	return true
}

func (m *Manual) ParseWebhook(payload []byte) (*WebhookResult, error) {
	var raw types.JSONMap
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	externalID := "manual-webhook"
	if id, ok := raw["id"].(string); ok && id != "" {
		externalID = id
	}

	return &WebhookResult{
		ExternalID:  externalID,
		Status:      enums.PaymentStatusCompleted,
		Metadata:    types.JSONMap{"processedAt": time.Now().UTC().Format(time.RFC3339)},
		RawResponse: raw,
	}, nil
}

func (m *Manual) PaymentStatus(_ context.Context, _ string) (enums.PaymentStatus, error) {
	return enums.PaymentStatusCompleted, nil
}
