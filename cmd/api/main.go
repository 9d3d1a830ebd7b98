package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/api/routes"
	"github.com/angelmondragon/bakery-backend/internal/accounts"
	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/catalog"
	"github.com/angelmondragon/bakery-backend/internal/notifications"
	"github.com/angelmondragon/bakery-backend/internal/ordernumber"
	"github.com/angelmondragon/bakery-backend/internal/orders"
	"github.com/angelmondragon/bakery-backend/internal/promo"
	pkgAuth "github.com/angelmondragon/bakery-backend/pkg/auth"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/db"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/instance"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/metrics"
	"github.com/angelmondragon/bakery-backend/pkg/migrate"
	"github.com/angelmondragon/bakery-backend/pkg/outbox"
)

type orderNumbers interface {
	Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := connectRedis(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(newCartStore(cfg, redisClient, checkoutMetrics, logg), catalogRepo, cart.Options{
		GuestTTL: cfg.Cart.GuestTTL,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	tokens, err := pkgAuth.NewVerifier(cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create token verifier", err)
		os.Exit(1)
	}
	guestSessions, err := pkgAuth.NewGuestSessions(cfg.JWT.Secret + ":" + cfg.Cart.GuestSessionKeySalt)
	if err != nil {
		logg.Error(context.Background(), "failed to create guest sessions", err)
		os.Exit(1)
	}

	loc, err := cfg.Orders.Location()
	if err != nil {
		logg.Error(context.Background(), "failed to resolve order timezone", err)
		os.Exit(1)
	}
	var numberGen orderNumbers = ordernumber.NewDBGenerator(cfg.Orders.NumberPrefix, loc)
	if strings.EqualFold(cfg.Orders.NumberBackend, config.OrderNumberBackendRedis) {
		if redisClient == nil {
			logg.Error(context.Background(), "redis order numbering requires redis", errors.New("redis unavailable"))
			os.Exit(1)
		}
		numberGen = ordernumber.NewRedisGenerator(redisClient, cfg.Orders.NumberPrefix, loc)
	}

	machine := orders.NewStateMachine()
	if cfg.FeatureFlags.RestockOnCancel {
		machine.OnEnter(enums.OrderStatusCancelled, orders.NewRestockCompensator(catalogRepo))
	}

	dispatcher, err := notifications.NewDispatcher(dbClient, outbox.NewService(outbox.NewRepository(dbClient.DB()), logg), cfg.Notifications.DispatchTimeout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orderRepo, dbClient, machine, dispatcher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	coordinator, err := orders.NewCoordinator(orders.CoordinatorDeps{
		Tx:        dbClient,
		Repo:      orderRepo,
		Carts:     cartService,
		Catalog:   catalogRepo,
		Inventory: catalogRepo,
		Promo:     promo.NewEngine(promo.NewRepository(dbClient.DB())),
		Numbers:   numberGen,
		Accounts:  accounts.NewRepository(dbClient.DB()),
		Notifier:  dispatcher,
		Metrics:   checkoutMetrics,
		Logger:    logg,
		Policy:    promo.Policy(cfg.Orders.PromoPolicy),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout coordinator", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	params := routes.Params{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Tokens:        tokens,
		GuestSessions: guestSessions,
		Carts:         cartService,
		Checkout:      coordinator,
		Orders:        orderService,
		Notifications: notificationService,
		Gatherer:      registry,
	}
	if redisClient != nil {
		params.Cache = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.GetID(),
		"cart_store": cfg.Cart.StoreDriver,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: cfg.API.ReadHeaderTimeout,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	// Notifications enqueued by in-flight checkouts finish before the pool closes.
	dispatcher.Wait()
	logg.Info(ctx, "api server stopped")
}
