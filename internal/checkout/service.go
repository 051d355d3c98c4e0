package checkout

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/internal/cart"
	"github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts the user's ACTIVE cart into an order. The cart read, the
// order insert and the cart status flip happen in one transaction; a guarded
// update on the cart status keeps concurrent checkouts mutually exclusive.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, preferredProvider *enums.PaymentProvider) (*models.Order, error)
}

type service struct {
	carts  cart.Repository
	orders orders.Repository
	tx     txRunner
	logg   *logger.Logger
}

// NewService builds the checkout service with the required dependencies.
func NewService(carts cart.Repository, orderRepo orders.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{carts: carts, orders: orderRepo, tx: tx, logg: logg}, nil
}

func (s *service) Execute(ctx context.Context, userID uuid.UUID, preferredProvider *enums.PaymentProvider) (*models.Order, error) {
	if preferredProvider != nil && !preferredProvider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnsupportedProvider, "unknown payment provider")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		activeCart, err := cartRepo.FindActiveByUser(ctx, userID)
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no active cart found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
		}
		if len(activeCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot checkout an empty cart")
		}

		order = &models.Order{
			UserID:                   userID,
			CartID:                   activeCart.ID,
			Status:                   enums.OrderStatusAwaitingPayment,
			PreferredPaymentProvider: preferredProvider,
			Subtotal:                 activeCart.Subtotal,
			TotalAmount:              activeCart.Total,
			Currency:                 activeCart.Currency,
			ItemsSnapshot:            snapshotItems(activeCart.Items),
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		flipped, err := cartRepo.MarkCheckedOut(ctx, activeCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cart checked out")
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart was already checked out")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order created from cart")
	}
	return order, nil
}

func snapshotItems(items []models.CartItem) types.ItemSnapshots {
	snapshot := make(types.ItemSnapshots, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, types.OrderItemSnapshot{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
			Currency:  item.Currency.String(),
		})
	}
	return snapshot
}
