package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/outbox"
)

const (
	defaultBatchSize     = 50
	defaultPollInterval  = 500 * time.Millisecond
	defaultHandleTimeout = 15 * time.Second
	defaultMaxAttempts   = 10
	defaultMaxBackoff    = 10 * time.Second
	jitterWindow         = 250 * time.Millisecond
	eventSavepoint       = "outbox_event"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

// eventHandler applies one outbox row inside the publisher's transaction.
type eventHandler interface {
	Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Handler    eventHandler
}

// Service drains outbox_events into the notification consumer. Each row is
// handled under a savepoint so one bad row never poisons the batch.
type Service struct {
	logg          *logger.Logger
	db            dbClient
	repo          outboxRepository
	handler       eventHandler
	batchSize     int
	maxAttempts   int
	pollInterval  time.Duration
	maxBackoff    time.Duration
	handleTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Handler == nil:
		return nil, errors.New("event handler is required")
	}

	cfg := params.Config.Outbox
	s := &Service{
		logg:          params.Logger,
		db:            params.DB,
		repo:          params.Repository,
		handler:       params.Handler,
		batchSize:     orDefault(cfg.BatchSize, defaultBatchSize),
		maxAttempts:   orDefault(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:  orDefault(time.Duration(cfg.PollIntervalMS)*time.Millisecond, defaultPollInterval),
		maxBackoff:    orDefault(cfg.MaxBackoff, defaultMaxBackoff),
		handleTimeout: defaultHandleTimeout,
	}
	return s, nil
}

// Run polls until ctx is cancelled. Busy batches loop immediately, idle ones
// sleep one poll interval, and failed ones back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var failures retry.Backoff
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		summary, err := s.processBatch(ctx)
		switch {
		case err != nil:
			if failures == nil {
				failures = s.backoff()
			}
			wait, _ := failures.Next()
			s.logg.Error(s.logg.WithField(ctx, "retry_in", wait.String()), "outbox publisher batch error", err)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		case summary.empty():
			failures = nil
			if err := sleep(ctx, s.pollInterval+rand.N(jitterWindow)); err != nil {
				return err
			}
		default:
			failures = nil
			s.logg.Info(s.logg.WithFields(ctx, summary.fields()), "outbox batch processed")
		}
	}
}

func (s *Service) backoff() retry.Backoff {
	return retry.WithJitter(jitterWindow, retry.WithCappedDuration(s.maxBackoff, retry.NewExponential(s.pollInterval)))
}

type outcome int

const (
	delivered outcome = iota
	retried
	parked
)

type batchSummary struct {
	delivered, retried, parked int
}

func (b *batchSummary) add(o outcome) {
	switch o {
	case delivered:
		b.delivered++
	case retried:
		b.retried++
	case parked:
		b.parked++
	}
}

func (b batchSummary) empty() bool { return b.delivered+b.retried+b.parked == 0 }

func (b batchSummary) fields() map[string]any {
	return map[string]any{"delivered": b.delivered, "retried": b.retried, "parked": b.parked}
}

// processBatch handles one locked page of rows in a single transaction. Only
// bookkeeping failures abort it; handler failures are recorded per row.
func (s *Service) processBatch(ctx context.Context) (batchSummary, error) {
	var summary batchSummary
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch pending events: %w", err)
		}
		for _, event := range events {
			result, err := s.deliver(ctx, tx, event)
			if err != nil {
				return err
			}
			summary.add(result)
		}
		return nil
	})
	if err != nil {
		return batchSummary{}, err
	}
	return summary, nil
}

func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	logCtx := s.logg.WithFields(ctx, eventFields(event))
	handleErr, err := s.handleInSavepoint(ctx, tx, event)
	if err != nil {
		return 0, err
	}

	if handleErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return 0, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Debug(logCtx, "outbox event delivered")
		return delivered, nil
	}

	logCtx = s.logg.WithFields(logCtx, map[string]any{"error": handleErr.Error(), "attempt": event.AttemptCount + 1})
	var nonRetry outbox.NonRetryableError
	switch {
	case errors.As(handleErr, &nonRetry):
		return parked, s.park(logCtx, tx, event, handleErr, "non_retryable")
	case event.AttemptsLeft(s.maxAttempts) <= 1:
		return parked, s.park(logCtx, tx, event, fmt.Errorf("max delivery attempts reached: %w", handleErr), "max_attempts")
	}

	s.logg.Warn(logCtx, "outbox delivery failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, handleErr); err != nil {
		return 0, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return retried, nil
}

// handleInSavepoint returns the handler's error first and a savepoint failure
// second; only the latter aborts the batch.
func (s *Service) handleInSavepoint(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (error, error) {
	handleCtx, cancel := context.WithTimeout(ctx, s.handleTimeout)
	defer cancel()

	if tx == nil {
		return s.handler.Handle(handleCtx, tx, event), nil
	}
	if err := tx.SavePoint(eventSavepoint).Error; err != nil {
		return nil, fmt.Errorf("savepoint %s: %w", event.ID, err)
	}
	handleErr := s.handler.Handle(handleCtx, tx, event)
	if handleErr == nil {
		return nil, nil
	}
	if err := tx.RollbackTo(eventSavepoint).Error; err != nil {
		return handleErr, fmt.Errorf("rollback to savepoint %s: %w", event.ID, err)
	}
	return handleErr, nil
}

// park stops retrying the row. There is no dead-letter table; the row keeps
// its last error and the log line is the alert.
func (s *Service) park(logCtx context.Context, tx *gorm.DB, event models.OutboxEvent, err error, reason string) error {
	s.logg.Warn(s.logg.WithField(logCtx, "terminal_reason", reason), "outbox event will not be retried")
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func orDefault[T int | time.Duration](value, fallback T) T {
	if value <= 0 {
		return fallback
	}
	return value
}
