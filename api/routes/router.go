package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/checkout-backend/api/controllers"
	"github.com/angelmondragon/checkout-backend/api/middleware"
	cartsvc "github.com/angelmondragon/checkout-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/checkout-backend/internal/checkout"
	ordersvc "github.com/angelmondragon/checkout-backend/internal/orders"
	paymentsvc "github.com/angelmondragon/checkout-backend/internal/payments"
	"github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/checkout-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *pkgredis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.HTTPMetrics
	Identity middleware.IdentityResolver
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service
	Payments paymentsvc.Service
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	logg := deps.Logger

	// nil *Client must not leak into interface params as a typed nil
	var cache db.Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		cache = deps.Redis
		idempotencyStore = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.DB, cache, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// webhooks authenticate by signature, not by user identity
	r.Post("/api/v1/payments/webhook/{provider}", controllers.PaymentWebhook(deps.Payments, deps.Metrics, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(deps.Identity, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.Get("/", controllers.OrdersList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderGet(deps.Orders, logg))
			r.Get("/{orderId}/status", controllers.OrderStatus(deps.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", controllers.PaymentInitiate(deps.Payments, logg))
			r.Get("/order/{orderId}", controllers.PaymentsByOrder(deps.Payments, logg))
		})
	})

	return r
}
