package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bakery-backend/internal/cron"
	"github.com/angelmondragon/bakery-backend/internal/notifications"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/db"
	"github.com/angelmondragon/bakery-backend/pkg/instance"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/metrics"
	"github.com/angelmondragon/bakery-backend/pkg/migrate"
	"github.com/angelmondragon/bakery-backend/pkg/outbox"
	"github.com/angelmondragon/bakery-backend/pkg/redis"
)

const serviceKind = "cron-worker"

type options struct {
	once bool
	jobs string
}

func main() {
	var opts options
	flag.BoolVar(&opts.once, "once", false, "run a single cycle and exit")
	flag.StringVar(&opts.jobs, "jobs", "", "comma-separated job names to run; empty runs all")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.GetID(),
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeQuietly(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeQuietly(logg, "redis", redisClient.Close)

	jobs, err := buildJobs(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(jobs...)
	if err == nil {
		registry, err = registry.Select(opts.jobs)
	}
	if err != nil {
		return fmt.Errorf("cron registry: %w", err)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), 0)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	ctx = logg.WithField(ctx, "jobs", registry.Names())
	if opts.once {
		return service.RunOnce(ctx)
	}
	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) ([]cron.Job, error) {
	sweep, err := cron.NewGuestCartSweepJob(cron.GuestCartSweepJobParams{
		Logger:    logg,
		Store:     redisClient,
		BatchSize: cfg.Cron.SweepBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("guest cart sweep job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(logg, outbox.NewRepository(dbClient.DB()), cfg.Outbox.Retention)
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	cleanup, err := cron.NewNotificationCleanupJob(logg, notifications.NewRepository(dbClient.DB()), cfg.Notifications.Retention)
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	return []cron.Job{sweep, retention, cleanup}, nil
}

// lockKey scopes the cycle lock per environment so staging and prod workers
// sharing a Redis never block each other.
func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return serviceKind + ":" + env
}

func closeQuietly(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
