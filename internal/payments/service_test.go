package payments

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/internal/payments/providers"
	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

const (
	stripeSecret = "whsec_simulated"
	paypalSecret = "paypal_simulated"
)

type fixture struct {
	svc  Service
	conn *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Cart{}, &models.Order{}, &models.Payment{}))

	registry, err := providers.NewDefaultRegistry(config.PaymentsConfig{
		StripeWebhookSecret: stripeSecret,
		PaypalWebhookSecret: paypalSecret,
	})
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), orders.NewRepository(conn), registry, db.FromConn(conn), nil)
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn}
}

func (f *fixture) seedOrder(t *testing.T, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:      userID,
		CartID:      uuid.New(),
		Status:      status,
		Subtotal:    "1399.97",
		TotalAmount: "1399.97",
		Currency:    enums.CurrencyEUR,
		ItemsSnapshot: types.ItemSnapshots{{
			ProductID: "laptop-001",
			Name:      "Laptop",
			Quantity:  1,
			UnitPrice: "1399.97",
			Subtotal:  "1399.97",
			Currency:  "EUR",
		}},
	}
	require.NoError(t, f.conn.Create(order).Error)
	return order
}

func (f *fixture) orderStatus(t *testing.T, orderID uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", orderID).Error)
	return order.Status
}

func TestInitiateManualPaysOrderImmediately(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(t, userID, enums.OrderStatusAwaitingPayment)

	payment, err := f.svc.Initiate(context.Background(), userID, order.ID, enums.PaymentProviderManual)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	require.Equal(t, "1399.97", payment.Amount)
	require.NotNil(t, payment.ExternalID)
	require.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))
}

func TestInitiateStripeLeavesOrderAwaiting(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(t, userID, enums.OrderStatusAwaitingPayment)

	payment, err := f.svc.Initiate(context.Background(), userID, order.ID, enums.PaymentProviderStripe)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPending, payment.Status)
	require.Contains(t, payment.RawResponse, "clientSecret")
	require.Equal(t, enums.OrderStatusAwaitingPayment, f.orderStatus(t, order.ID))
}

func TestInitiateGuards(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, userID, uuid.New(), enums.PaymentProviderManual)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	otherOrder := f.seedOrder(t, uuid.New(), enums.OrderStatusAwaitingPayment)
	_, err = f.svc.Initiate(ctx, userID, otherOrder.ID, enums.PaymentProviderManual)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	paid := f.seedOrder(t, userID, enums.OrderStatusPaid)
	_, err = f.svc.Initiate(ctx, userID, paid.ID, enums.PaymentProviderManual)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	cancelled := f.seedOrder(t, userID, enums.OrderStatusCancelled)
	_, err = f.svc.Initiate(ctx, userID, cancelled.ID, enums.PaymentProviderManual)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	open := f.seedOrder(t, userID, enums.OrderStatusAwaitingPayment)
	_, err = f.svc.Initiate(ctx, userID, open.ID, enums.PaymentProvider("BITCOIN"))
	require.Equal(t, pkgerrors.CodeUnsupportedProvider, pkgerrors.As(err).Code())
}

func TestStripeWebhookCompletesPayment(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()
	order := f.seedOrder(t, userID, enums.OrderStatusAwaitingPayment)

	payment, err := f.svc.Initiate(ctx, userID, order.ID, enums.PaymentProviderStripe)
	require.NoError(t, err)

	payload := fmt.Sprintf(`{"type":"payment_intent.succeeded","data":{"object":{"id":%q}}}`, *payment.ExternalID)
	require.NoError(t, f.svc.HandleWebhook(ctx, enums.PaymentProviderStripe, stripeSecret, []byte(payload)))

	var updated models.Payment
	require.NoError(t, f.conn.First(&updated, "id = ?", payment.ID).Error)
	require.Equal(t, enums.PaymentStatusCompleted, updated.Status)
	require.Equal(t, "payment_intent.succeeded", updated.Metadata["eventType"])
	// initiation metadata survives the merge
	require.Equal(t, "stripe", updated.Metadata["provider"])
	require.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))

	// replaying the terminal webhook re-asserts the same state without error
	require.NoError(t, f.svc.HandleWebhook(ctx, enums.PaymentProviderStripe, stripeSecret, []byte(payload)))
	require.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))
}

func TestPayPalDeniedThenRetryWithManual(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()
	order := f.seedOrder(t, userID, enums.OrderStatusAwaitingPayment)

	payment, err := f.svc.Initiate(ctx, userID, order.ID, enums.PaymentProviderPaypal)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusRequiresAction, payment.Status)
	require.Contains(t, payment.RawResponse, "redirectUrl")

	payload := fmt.Sprintf(`{"event_type":"PAYMENT.CAPTURE.DENIED","resource":{"id":%q}}`, *payment.ExternalID)
	require.NoError(t, f.svc.HandleWebhook(ctx, enums.PaymentProviderPaypal, paypalSecret, []byte(payload)))
	require.Equal(t, enums.OrderStatusFailed, f.orderStatus(t, order.ID))

	// FAILED is retryable: a second attempt with another provider can settle
	retry, err := f.svc.Initiate(ctx, userID, order.ID, enums.PaymentProviderManual)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusCompleted, retry.Status)
	require.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))

	history, err := f.svc.ListByOrder(ctx, userID, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestWebhookNeverDemotesPaidOrder(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()
	order := f.seedOrder(t, userID, enums.OrderStatusAwaitingPayment)

	pending, err := f.svc.Initiate(ctx, userID, order.ID, enums.PaymentProviderStripe)
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, userID, order.ID, enums.PaymentProviderManual)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))

	// a late failure for the first attempt updates that payment only
	payload := fmt.Sprintf(`{"type":"payment_intent.payment_failed","data":{"object":{"id":%q}}}`, *pending.ExternalID)
	require.NoError(t, f.svc.HandleWebhook(ctx, enums.PaymentProviderStripe, stripeSecret, []byte(payload)))

	var stale models.Payment
	require.NoError(t, f.conn.First(&stale, "id = ?", pending.ID).Error)
	require.Equal(t, enums.PaymentStatusFailed, stale.Status)
	require.Equal(t, enums.OrderStatusPaid, f.orderStatus(t, order.ID))
}

func TestWebhookSignatureAndUnknownPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.HandleWebhook(ctx, enums.PaymentProviderStripe, "forged", []byte(`{}`))
	require.Equal(t, pkgerrors.CodeSignatureInvalid, pkgerrors.As(err).Code())

	err = f.svc.HandleWebhook(ctx, enums.PaymentProvider("BITCOIN"), "", []byte(`{}`))
	require.Equal(t, pkgerrors.CodeUnsupportedProvider, pkgerrors.As(err).Code())

	// unknown external id is logged and dropped
	payload := `{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_unknown"}}}`
	require.NoError(t, f.svc.HandleWebhook(ctx, enums.PaymentProviderStripe, stripeSecret, []byte(payload)))
}

func TestListByOrderRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	order := f.seedOrder(t, userID, enums.OrderStatusAwaitingPayment)

	_, err := f.svc.ListByOrder(context.Background(), uuid.New(), order.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
