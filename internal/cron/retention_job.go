package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

const defaultRetention = 30 * 24 * time.Hour

type publishedEventPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type sentNotificationPurger interface {
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob deletes published outbox rows older than retention.
// Unpublished rows are never touched.
func NewOutboxRetentionJob(logg *logger.Logger, repo publishedEventPurger, retention time.Duration) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	return newRetentionJob("outbox-retention", logg, repo.DeletePublishedBefore, retention)
}

// NewNotificationCleanupJob drops notifications the sender acknowledged more
// than retention ago. Pending rows are kept regardless of age.
func NewNotificationCleanupJob(logg *logger.Logger, repo sentNotificationPurger, retention time.Duration) (Job, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", logg, repo.DeleteSentBefore, retention)
}

type retentionJob struct {
	name      string
	logg      *logger.Logger
	purge     func(ctx context.Context, cutoff time.Time) (int64, error)
	retention time.Duration
	now       func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, purge func(context.Context, time.Time) (int64, error), retention time.Duration) (*retentionJob, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &retentionJob{name: name, logg: logg, purge: purge, retention: retention, now: time.Now}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"job":          j.name,
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention purge complete")
	return nil
}
