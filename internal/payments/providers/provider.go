package providers

import (
	"context"
	"crypto/rand"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// CreatePaymentParams carries the order fields a provider needs to open a
// payment intent.
type CreatePaymentParams struct {
	OrderID  uuid.UUID
	Amount   string
	Currency enums.Currency
}

// PaymentIntent is the provider's answer to a create call. ClientSecret and
// RedirectURL are provider-flow specific and may be empty.
type PaymentIntent struct {
	ExternalID   string
	Status       enums.PaymentStatus
	Amount       string
	Currency     enums.Currency
	ClientSecret string
	RedirectURL  string
	Metadata     types.JSONMap
}

// WebhookResult is the canonical form every provider event is mapped into.
type WebhookResult struct {
	ExternalID  string
	Status      enums.PaymentStatus
	Metadata    types.JSONMap
	RawResponse types.JSONMap
}

// Provider is the capability surface each gateway variant implements. Adding
// a gateway means one implementation plus one registry entry; nothing else
// branches on provider identity.
type Provider interface {
	Name() enums.PaymentProvider
	CreatePayment(ctx context.Context, params CreatePaymentParams) (*PaymentIntent, error)
	VerifyWebhookSignature(signature string, payload []byte) bool
	ParseWebhook(payload []byte) (*WebhookResult, error)
	PaymentStatus(ctx context.Context, externalID string) (enums.PaymentStatus, error)
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}

// statusBucket maps an external id onto a stable 0-9 bucket so simulated
// status polls stay deterministic per payment.
func statusBucket(externalID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(externalID))
	return int(h.Sum32() % 10)
}
