package providers

import (
	"fmt"

	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

// Registry holds the fixed provider set built once at startup.
type Registry struct {
	providers map[enums.PaymentProvider]Provider
}

// NewRegistry indexes the given providers by name.
func NewRegistry(list ...Provider) (*Registry, error) {
	providers := make(map[enums.PaymentProvider]Provider, len(list))
	for _, provider := range list {
		if provider == nil {
			return nil, fmt.Errorf("nil payment provider")
		}
		if _, exists := providers[provider.Name()]; exists {
			return nil, fmt.Errorf("duplicate payment provider %s", provider.Name())
		}
		providers[provider.Name()] = provider
	}
	return &Registry{providers: providers}, nil
}

// NewDefaultRegistry wires the three built-in providers from config.
func NewDefaultRegistry(cfg config.PaymentsConfig) (*Registry, error) {
	return NewRegistry(
		NewStripe(cfg.StripeWebhookSecret),
		NewPayPal(cfg.PaypalWebhookSecret),
		NewManual(),
	)
}

// Get resolves a provider by name.
func (r *Registry) Get(name enums.PaymentProvider) (Provider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnsupportedProvider, fmt.Sprintf("payment provider %s is not supported", name))
	}
	return provider, nil
}

// IsSupported reports whether a provider is registered.
func (r *Registry) IsSupported(name enums.PaymentProvider) bool {
	_, ok := r.providers[name]
	return ok
}

// All returns the registered providers in declaration order of the enum.
func (r *Registry) All() []Provider {
	list := make([]Provider, 0, len(r.providers))
	for _, name := range []enums.PaymentProvider{enums.PaymentProviderStripe, enums.PaymentProviderPaypal, enums.PaymentProviderManual} {
		if provider, ok := r.providers[name]; ok {
			list = append(list, provider)
		}
	}
	return list
}
