package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/outbox"
	"github.com/angelmondragon/bakery-backend/pkg/outbox/payloads"
)

const defaultDispatchTimeout = 5 * time.Second

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

// Dispatcher queues order notifications on the outbox. Each Enqueue runs on its
// own goroutine and transaction, detached from the request that triggered it.
type Dispatcher struct {
	tx      txRunner
	emitter eventEmitter
	timeout time.Duration
	logg    *logger.Logger
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher writing through emitter. A non-positive
// timeout falls back to five seconds.
func NewDispatcher(tx txRunner, emitter eventEmitter, timeout time.Duration, logg *logger.Logger) (*Dispatcher, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{tx: tx, emitter: emitter, timeout: timeout, logg: logg}, nil
}

// Enqueue returns immediately. Failures are logged and never reach the caller.
func (d *Dispatcher) Enqueue(ctx context.Context, event payloads.OrderNotificationEvent) {
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		dctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		if err := d.Dispatch(dctx, event); err != nil {
			lctx := d.logg.WithFields(d.logg.WithOrderID(base, event.OrderID.String()), map[string]any{
				"notification_type": event.Type,
			})
			d.logg.Error(lctx, "notification dispatch failed", err)
		}
	}()
}

// Dispatch writes the outbox row synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, event payloads.OrderNotificationEvent) error {
	eventType, err := eventTypeFor(event.Type)
	if err != nil {
		return err
	}
	if event.Recipient.Email == nil && event.Recipient.Phone == nil {
		return errors.New("notification recipient has no contact")
	}
	return d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := d.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   event.OrderID,
			Data:          event,
		})
		return err
	})
}

// Wait blocks until every in-flight Enqueue has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func eventTypeFor(kind enums.NotificationType) (enums.OutboxEventType, error) {
	switch kind {
	case enums.NotificationTypeOrderConfirmation:
		return enums.EventOrderConfirmationRequested, nil
	case enums.NotificationTypeOrderStatus:
		return enums.EventOrderStatusChanged, nil
	case enums.NotificationTypeOrderCancelled:
		return enums.EventOrderCancelled, nil
	default:
		return "", fmt.Errorf("unsupported notification type %q", kind)
	}
}
