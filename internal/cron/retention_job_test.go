package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/outbox"
)

func TestOutboxRetentionJobDeletesOldPublishedRows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)

	seed := func(publishedAt *time.Time) uuid.UUID {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     old,
			PublishedAt:   publishedAt,
		}
		require.NoError(t, conn.Create(&row).Error)
		return row.ID
	}
	seed(&old)
	keptRecent := seed(&recent)
	keptPending := seed(nil)

	jobIface, err := NewOutboxRetentionJob(testLogger(), outbox.NewRepository(conn), 0)
	require.NoError(t, err)
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	var ids []uuid.UUID
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Pluck("id", &ids).Error)
	assert.ElementsMatch(t, []uuid.UUID{keptRecent, keptPending}, ids)
}

type fakeRetentionRepo struct {
	lastCutoff time.Time
	err        error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return 0, f.err
}

func (f *fakeRetentionRepo) DeleteSentBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return 0, f.err
}

func TestRetentionJobsPropagateErrors(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("boom")}
	outboxJob, err := NewOutboxRetentionJob(testLogger(), repo, time.Hour)
	require.NoError(t, err)
	require.Error(t, outboxJob.Run(context.Background()))

	notificationJob, err := NewNotificationCleanupJob(testLogger(), repo, time.Hour)
	require.NoError(t, err)
	err = notificationJob.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification-cleanup")
}

func TestRetentionJobsRequireRepository(t *testing.T) {
	_, err := NewOutboxRetentionJob(testLogger(), nil, time.Hour)
	require.Error(t, err)
	_, err = NewNotificationCleanupJob(testLogger(), nil, time.Hour)
	require.Error(t, err)
	_, err = NewNotificationCleanupJob(nil, &fakeRetentionRepo{}, time.Hour)
	require.Error(t, err)
}

func TestNotificationCleanupCutoff(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{}
	jobIface, err := NewNotificationCleanupJob(testLogger(), repo, 7*24*time.Hour)
	require.NoError(t, err)
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-7*24*time.Hour), repo.lastCutoff)
}
