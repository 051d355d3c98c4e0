package cart

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/money"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AddItemInput carries a product line submitted for the active cart.
type AddItemInput struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice string
	Currency  string
	Metadata  types.JSONMap
}

// Service implements cart reads and mutations. Every mutation recomputes cart
// totals from the item subtotals inside a single transaction; clients never
// submit totals.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the cart service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		cart, txErr = getOrCreate(ctx, s.repo.WithTx(tx), userID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	if input.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	currency, err := resolveCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	subtotal, err := money.Multiply(input.UnitPrice, input.Quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
	}

	var result *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, txErr := getOrCreate(ctx, repo, userID)
		if txErr != nil {
			return txErr
		}
		if txErr = ensureModifiable(cart); txErr != nil {
			return txErr
		}

		if len(cart.Items) == 0 && cart.Currency != currency {
			if txErr = repo.Update(ctx, cart.ID, map[string]any{"currency": currency}); txErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "set cart currency")
			}
		}

		if existing := findItemByProduct(cart, input.ProductID); existing != nil {
			existing.Quantity += input.Quantity
			merged, mulErr := money.Multiply(existing.UnitPrice, existing.Quantity)
			if mulErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, mulErr, "recompute item subtotal")
			}
			existing.Subtotal = merged
			if txErr = repo.SaveItem(ctx, existing); txErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "merge cart item")
			}
		} else {
			item := &models.CartItem{
				CartID:    cart.ID,
				ProductID: input.ProductID,
				Name:      input.Name,
				Quantity:  input.Quantity,
				UnitPrice: input.UnitPrice,
				Subtotal:  subtotal,
				Currency:  currency,
				Metadata:  input.Metadata,
			}
			if txErr = repo.SaveItem(ctx, item); txErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "add cart item")
			}
		}

		result, txErr = recalculate(ctx, repo, cart.ID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, txErr := getOrCreate(ctx, repo, userID)
		if txErr != nil {
			return txErr
		}
		if txErr = ensureModifiable(cart); txErr != nil {
			return txErr
		}

		item := findItemByID(cart, itemID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		item.Quantity = quantity
		subtotal, mulErr := money.Multiply(item.UnitPrice, quantity)
		if mulErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, mulErr, "recompute item subtotal")
		}
		item.Subtotal = subtotal
		if txErr = repo.SaveItem(ctx, item); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "update cart item")
		}

		result, txErr = recalculate(ctx, repo, cart.ID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, txErr := getOrCreate(ctx, repo, userID)
		if txErr != nil {
			return txErr
		}
		if txErr = ensureModifiable(cart); txErr != nil {
			return txErr
		}

		item := findItemByID(cart, itemID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if txErr = repo.DeleteItem(ctx, item.ID); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "remove cart item")
		}

		result, txErr = recalculate(ctx, repo, cart.ID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, txErr := getOrCreate(ctx, repo, userID)
		if txErr != nil {
			return txErr
		}
		if txErr = ensureModifiable(cart); txErr != nil {
			return txErr
		}

		if txErr = repo.DeleteItemsByCart(ctx, cart.ID); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "clear cart items")
		}

		result, txErr = recalculate(ctx, repo, cart.ID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func getOrCreate(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
	}

	created := &models.Cart{
		UserID:   userID,
		Status:   enums.CartStatusActive,
		Currency: enums.CurrencyEUR,
		Subtotal: money.Zero,
		Total:    money.Zero,
	}
	if createErr := repo.Create(ctx, created); createErr != nil {
		if db.IsUniqueViolation(createErr, "") {
			// concurrent request created the cart first
			return repo.FindActiveByUser(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create cart")
	}
	return created, nil
}

func recalculate(ctx context.Context, repo Repository, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}

	subtotals := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		subtotals = append(subtotals, item.Subtotal)
	}
	subtotal, err := money.Add(subtotals...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum cart items")
	}

	// total equals subtotal until tax/discount/shipping exist
	if err := repo.Update(ctx, cart.ID, map[string]any{"subtotal": subtotal, "total": subtotal}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart totals")
	}
	cart.Subtotal = subtotal
	cart.Total = subtotal
	return cart, nil
}

func ensureModifiable(cart *models.Cart) error {
	if cart.Status != enums.CartStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not modifiable")
	}
	return nil
}

func findItemByProduct(cart *models.Cart, productID string) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i]
		}
	}
	return nil
}

func findItemByID(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func resolveCurrency(value string) (enums.Currency, error) {
	if value == "" {
		return enums.CurrencyEUR, nil
	}
	currency, err := enums.ParseCurrency(value)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	return currency, nil
}
