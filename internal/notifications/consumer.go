package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/outbox"
	"github.com/angelmondragon/bakery-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bakery-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type eventClaimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (*idempotency.Claim, error)
}

// Consumer turns order notification outbox rows into notification records for
// the external sender.
type Consumer struct {
	repo        Repository
	claims      eventClaimer
	decoders    *outbox.DecoderRegistry
	logg        *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo Repository, claims eventClaimer, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if claims == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := outbox.NewDecoderRegistry()
	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderConfirmationRequested,
		enums.EventOrderStatusChanged,
		enums.EventOrderCancelled,
	} {
		decoders.Register(eventType, 1, outbox.JSONDecoder[payloads.OrderNotificationEvent]())
	}
	return &Consumer{
		repo:        repo,
		claims:      claims,
		decoders:    decoders,
		logg:        logg,
	}, nil
}

// Handle records the notification carried by event inside tx. Errors wrapping
// outbox.NonRetryableError mean the row can never succeed.
func (c *Consumer) Handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	fields := map[string]any{
		"outbox_id":  event.ID.String(),
		"event_type": event.EventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	envelope, eventID, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return err
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	claim, err := c.claims.Claim(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		return fmt.Errorf("idempotency claim: %w", err)
	}
	if claim.Duplicate() {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	// Any failure below rolls the caller's savepoint back, so the claim must
	// not outlive it or the retry would be skipped.
	if err := c.apply(logCtx, tx, event, envelope, eventID); err != nil {
		if releaseErr := claim.Release(ctx); releaseErr != nil {
			c.logg.Warn(c.logg.WithField(logCtx, "error", releaseErr.Error()), "idempotency claim not released")
		}
		return err
	}
	return nil
}

func (c *Consumer) apply(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, envelope outbox.PayloadEnvelope, eventID uuid.UUID) error {
	decoded, err := c.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return err
	}
	payload, ok := decoded.(*payloads.OrderNotificationEvent)
	if !ok {
		return outbox.NewNonRetryableError(fmt.Errorf("unexpected payload %T", decoded))
	}

	ctx = c.logg.WithOrderID(ctx, payload.OrderID.String())
	notification, err := buildNotification(eventID, payload)
	if err != nil {
		return outbox.NewNonRetryableError(err)
	}
	if err := c.repo.WithTx(tx).Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(ctx, "order notification recorded")
	return nil
}

func buildNotification(eventID uuid.UUID, payload *payloads.OrderNotificationEvent) (*models.Notification, error) {
	if payload.OrderID == uuid.Nil {
		return nil, errors.New("order id missing")
	}
	if payload.Recipient.Email == nil && payload.Recipient.Phone == nil {
		return nil, errors.New("recipient contact missing")
	}

	var title, message string
	switch payload.Type {
	case enums.NotificationTypeOrderConfirmation:
		title = fmt.Sprintf("Order %s received", payload.OrderNumber)
		message = fmt.Sprintf("Thanks %s, we received order %s totaling %s.", payload.Recipient.Name, payload.OrderNumber, payload.TotalAmount.StringFixed(2))
	case enums.NotificationTypeOrderStatus:
		title = fmt.Sprintf("Order %s updated", payload.OrderNumber)
		message = fmt.Sprintf("Order %s is now %s.", payload.OrderNumber, strings.ReplaceAll(string(payload.Status), "_", " "))
	case enums.NotificationTypeOrderCancelled:
		title = fmt.Sprintf("Order %s cancelled", payload.OrderNumber)
		message = fmt.Sprintf("Order %s was cancelled.", payload.OrderNumber)
		if reason, ok := payload.Context["reason"].(string); ok && strings.TrimSpace(reason) != "" {
			message = fmt.Sprintf("Order %s was cancelled. Reason: %s", payload.OrderNumber, strings.TrimSpace(reason))
		}
	default:
		return nil, fmt.Errorf("unsupported notification type %q", payload.Type)
	}

	renderContext := map[string]any{
		"order_number": payload.OrderNumber,
		"status":       payload.Status,
		"total_amount": payload.TotalAmount.StringFixed(2),
	}
	for key, value := range payload.Context {
		renderContext[key] = value
	}
	raw, err := json.Marshal(renderContext)
	if err != nil {
		return nil, err
	}

	return &models.Notification{
		ID:             uuid.New(),
		EventID:        eventID,
		OrderID:        payload.OrderID,
		Type:           payload.Type,
		RecipientName:  payload.Recipient.Name,
		RecipientEmail: payload.Recipient.Email,
		RecipientPhone: payload.Recipient.Phone,
		Title:          title,
		Message:        strings.TrimSpace(message),
		Context:        json.RawMessage(raw),
	}, nil
}
