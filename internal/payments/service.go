package payments

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/internal/payments/providers"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service reconciles order and payment status from two directions: initiation
// results and provider webhooks. Both paths apply the same transition rule,
// COMPLETED moves the order to PAID and FAILED to FAILED; terminal orders are
// never transitioned again.
type Service interface {
	Initiate(ctx context.Context, userID, orderID uuid.UUID, provider enums.PaymentProvider) (*models.Payment, error)
	ListByOrder(ctx context.Context, userID, orderID uuid.UUID) ([]models.Payment, error)
	HandleWebhook(ctx context.Context, provider enums.PaymentProvider, signature string, payload []byte) error
}

type service struct {
	repo     Repository
	orders   orders.Repository
	registry *providers.Registry
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds the payment service with the required dependencies.
func NewService(repo Repository, orderRepo orders.Repository, registry *providers.Registry, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if registry == nil {
		return nil, fmt.Errorf("provider registry required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, orders: orderRepo, registry: registry, tx: tx, logg: logg}, nil
}

func (s *service) Initiate(ctx context.Context, userID, orderID uuid.UUID, providerName enums.PaymentProvider) (*models.Payment, error) {
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)

		order, err := orderRepo.FindByIDAndUser(ctx, orderID, userID)
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		switch order.Status {
		case enums.OrderStatusPaid:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		case enums.OrderStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot pay for a cancelled order")
		}

		provider, err := s.registry.Get(providerName)
		if err != nil {
			return err
		}

		intent, err := provider.CreatePayment(ctx, providers.CreatePaymentParams{
			OrderID:  order.ID,
			Amount:   order.TotalAmount,
			Currency: order.Currency,
		})
		if err != nil {
			return err
		}

		externalID := intent.ExternalID
		payment = &models.Payment{
			OrderID:     order.ID,
			Provider:    provider.Name(),
			Status:      intent.Status,
			Amount:      intent.Amount,
			Currency:    intent.Currency,
			ExternalID:  &externalID,
			Metadata:    intent.Metadata,
			RawResponse: intentDump(intent),
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		return s.applyOrderTransition(ctx, orderRepo, order.ID, intent.Status)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithProvider(s.logg.WithOrderID(ctx, orderID.String()), providerName.String())
		s.logg.Info(lctx, "payment initiated")
	}
	return payment, nil
}

func (s *service) ListByOrder(ctx context.Context, userID, orderID uuid.UUID) ([]models.Payment, error) {
	if _, err := s.orders.FindByIDAndUser(ctx, orderID, userID); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	payments, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return payments, nil
}

func (s *service) HandleWebhook(ctx context.Context, providerName enums.PaymentProvider, signature string, payload []byte) error {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return err
	}

	if !provider.VerifyWebhookSignature(signature, payload) {
		return pkgerrors.New(pkgerrors.CodeSignatureInvalid, "invalid webhook signature")
	}

	result, err := provider.ParseWebhook(payload)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment, err := repo.FindByExternalID(ctx, provider.Name(), result.ExternalID)
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			// providers may deliver events for payments this system never
			// created; drop them without surfacing an error
			if s.logg != nil {
				lctx := s.logg.WithProvider(s.logg.WithField(ctx, "external_id", result.ExternalID), providerName.String())
				s.logg.Warn(lctx, "webhook for unknown payment dropped")
			}
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		payment.Status = result.Status
		payment.RawResponse = result.RawResponse
		payment.Metadata = payment.Metadata.Merge(result.Metadata)
		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}

		return s.applyOrderTransition(ctx, s.orders.WithTx(tx), payment.OrderID, result.Status)
	})
}

func (s *service) applyOrderTransition(ctx context.Context, orderRepo orders.Repository, orderID uuid.UUID, status enums.PaymentStatus) error {
	var next enums.OrderStatus
	switch status {
	case enums.PaymentStatusCompleted:
		next = enums.OrderStatusPaid
	case enums.PaymentStatusFailed:
		next = enums.OrderStatusFailed
	default:
		return nil
	}

	applied, err := orderRepo.UpdateStatus(ctx, orderID, next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !applied && s.logg != nil {
		lctx := s.logg.WithField(s.logg.WithOrderID(ctx, orderID.String()), "target_status", next.String())
		s.logg.Info(lctx, "order already terminal, transition skipped")
	}
	return nil
}

func intentDump(intent *providers.PaymentIntent) types.JSONMap {
	dump := types.JSONMap{
		"externalId": intent.ExternalID,
		"status":     intent.Status.String(),
		"amount":     intent.Amount,
		"currency":   intent.Currency.String(),
	}
	if intent.ClientSecret != "" {
		dump["clientSecret"] = intent.ClientSecret
	}
	if intent.RedirectURL != "" {
		dump["redirectUrl"] = intent.RedirectURL
	}
	return dump
}
