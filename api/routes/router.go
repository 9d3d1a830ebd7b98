package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bakery-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/bakery-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/bakery-backend/api/controllers/orders"
	"github.com/angelmondragon/bakery-backend/api/middleware"
	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/notifications"
	"github.com/angelmondragon/bakery-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/bakery-backend/pkg/auth"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

// Cache is the Redis surface the HTTP layer needs directly.
type Cache interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	IdempotencyKey(scope, id string) string
	RateLimitKey(policy, scope, id string) string
}

type guestSessions interface {
	Issue() (string, error)
	SessionKey(token string) (string, error)
}

type checkoutCoordinator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
}

// Params carries the router dependencies. Cache may be nil; idempotency and
// rate limiting are then skipped.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            interface{ Ping(context.Context) error }
	Cache         Cache
	Tokens        middleware.TokenVerifier
	GuestSessions *pkgAuth.GuestSessions
	Carts         cart.Service
	Checkout      checkoutCoordinator
	Orders        orders.Service
	Notifications notifications.Service
	Gatherer      prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	var (
		idempotencyStore middleware.IdempotencyStore
		cachePinger      interface{ Ping(context.Context) error }
		limiter          interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
			RateLimitKey(policy, scope, id string) string
		}
	)
	if p.Cache != nil {
		idempotencyStore, cachePinger, limiter = p.Cache, p.Cache, p.Cache
	}
	var sessions guestSessions
	if p.GuestSessions != nil {
		sessions = p.GuestSessions
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.API.CORSOrigins, cfg.Cart.GuestSessionHeader),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, p.DB, cachePinger, logg))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	idempotent := middleware.Idempotency(idempotencyStore, cfg.API.IdempotencyTTL, logg)
	checkoutTTL := cfg.API.CheckoutIdempotencyTTL
	if checkoutTTL <= 0 {
		checkoutTTL = cfg.API.IdempotencyTTL
	}
	idempotentCheckout := middleware.Idempotency(idempotencyStore, checkoutTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(p.Tokens, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.GuestSession(sessions, middleware.GuestSessionOptions{
				Header: cfg.Cart.GuestSessionHeader,
				Issue:  true,
			}, logg))
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(p.Carts, logg))
				r.Delete("/", cartcontrollers.CartClear(p.Carts, logg))
				r.Post("/items", cartcontrollers.CartAddItem(p.Carts, logg))
				r.Patch("/items", cartcontrollers.CartUpdateItem(p.Carts, logg))
				r.Delete("/items", cartcontrollers.CartRemoveItem(p.Carts, logg))
				r.Post("/refresh", cartcontrollers.CartRefresh(p.Carts, logg))
				r.Get("/validate", cartcontrollers.CartValidate(p.Carts, logg))
				r.With(idempotent).Post("/merge", cartcontrollers.CartMerge(p.Carts, logg))
				r.Put("/guest-info", cartcontrollers.CartGuestInfo(p.Carts, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(
				middleware.GuestSession(sessions, middleware.GuestSessionOptions{Header: cfg.Cart.GuestSessionHeader}, logg),
				idempotentCheckout,
			).Post("/", ordercontrollers.Checkout(p.Checkout, logg))

			r.With(middleware.RateLimit(middleware.RateLimitPolicy{
				Name:       "track",
				Window:     cfg.API.TrackRateWindow,
				Limit:      cfg.API.TrackRateLimit,
				QueryParam: "order_number",
			}, limiter, logg)).Get("/track", ordercontrollers.Track(p.Orders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(pkgAuth.RoleStaff, logg))
			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.AdminOrderDetail(p.Orders, logg))
				r.With(idempotent).Post("/status", ordercontrollers.AdminOrderStatus(p.Orders, logg))
				r.With(idempotent).Post("/payment", ordercontrollers.AdminOrderPayment(p.Orders, logg))
				r.With(idempotentCheckout).Post("/cancel", ordercontrollers.AdminOrderCancel(p.Orders, logg))
			})
			r.Get("/notifications", controllers.AdminNotificationsList(p.Notifications, logg))
			r.Post("/notifications/{notificationId}/sent", controllers.AdminNotificationMarkSent(p.Notifications, logg))
		})
	})

	return r
}
