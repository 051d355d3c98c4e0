package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/internal/cart"
	"github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

type fixture struct {
	svc      Service
	carts    cart.Service
	cartRepo cart.Repository
	conn     *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Cart{}, &models.CartItem{}, &models.Order{}, &models.Payment{}))

	client := db.FromConn(conn)
	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, client, nil)
	require.NoError(t, err)

	svc, err := NewService(cartRepo, orders.NewRepository(conn), client, nil)
	require.NoError(t, err)

	return &fixture{svc: svc, carts: cartSvc, cartRepo: cartRepo, conn: conn}
}

func (f *fixture) fillCart(t *testing.T, userID uuid.UUID) *models.Cart {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{
		ProductID: "laptop-001",
		Name:      "Laptop",
		Quantity:  1,
		UnitPrice: "1299.99",
	})
	require.NoError(t, err)
	filled, err := f.carts.AddItem(ctx, userID, cart.AddItemInput{
		ProductID: "mouse-002",
		Name:      "Mouse",
		Quantity:  2,
		UnitPrice: "49.99",
	})
	require.NoError(t, err)
	return filled
}

func TestExecuteCreatesOrderAndFreezesCart(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()
	filled := f.fillCart(t, userID)

	provider := enums.PaymentProviderStripe
	order, err := f.svc.Execute(ctx, userID, &provider)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusAwaitingPayment, order.Status)
	require.Equal(t, filled.ID, order.CartID)
	require.Equal(t, "1399.97", order.TotalAmount)
	require.Equal(t, "1399.97", order.Subtotal)
	require.Equal(t, enums.PaymentProviderStripe, *order.PreferredPaymentProvider)

	require.Len(t, order.ItemsSnapshot, 2)
	require.Equal(t, "laptop-001", order.ItemsSnapshot[0].ProductID)
	require.Equal(t, "99.98", order.ItemsSnapshot[1].Subtotal)

	var frozen models.Cart
	require.NoError(t, f.conn.First(&frozen, "id = ?", filled.ID).Error)
	require.Equal(t, enums.CartStatusCheckedOut, frozen.Status)
}

func TestExecuteWithoutActiveCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Execute(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestExecuteRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()

	_, err := f.carts.GetCart(ctx, userID)
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, userID, nil)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestExecuteTwiceNeedsNewCart(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()
	f.fillCart(t, userID)

	_, err := f.svc.Execute(ctx, userID, nil)
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, userID, nil)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

// contestedRepo flips the cart out from under the running checkout so the
// guarded status update observes a lost race.
type contestedRepo struct {
	cart.Repository
}

func (c *contestedRepo) WithTx(tx *gorm.DB) cart.Repository {
	return &contestedRepo{Repository: c.Repository.WithTx(tx)}
}

func (c *contestedRepo) MarkCheckedOut(ctx context.Context, cartID uuid.UUID) (bool, error) {
	// the competing checkout wins first
	if _, err := c.Repository.MarkCheckedOut(ctx, cartID); err != nil {
		return false, err
	}
	return c.Repository.MarkCheckedOut(ctx, cartID)
}

func TestExecuteLosingTheRaceRollsBack(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()
	f.fillCart(t, userID)

	contested, err := NewService(&contestedRepo{Repository: f.cartRepo}, orders.NewRepository(f.conn), db.FromConn(f.conn), nil)
	require.NoError(t, err)

	_, err = contested.Execute(ctx, userID, nil)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Where("user_id = ?", userID).Count(&count).Error)
	require.Zero(t, count)
}
