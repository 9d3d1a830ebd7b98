package orders

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

// Service exposes order reads and lifecycle changes after checkout.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Track(ctx context.Context, orderNumber, contact string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	machine  *StateMachine
	notifier Notifier
	logg     *logger.Logger
}

// NewService builds the order lifecycle service. notifier may be nil.
func NewService(repo Repository, tx txRunner, machine *StateMachine, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if machine == nil {
		machine = NewStateMachine()
	}
	return &service{repo: repo, tx: tx, machine: machine, notifier: notifier, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, nil, id, false)
}

// Track finds an order by number for a customer who proves who they are with
// the email (case-insensitive) or phone on the order. A mismatch looks the
// same as a missing order.
func (s *service) Track(ctx context.Context, orderNumber, contact string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	contact = strings.TrimSpace(contact)
	if orderNumber == "" || contact == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number and contact are required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil || order == nil {
		return nil, err
	}
	if matchesContact(order, contact) {
		return order, nil
	}
	return nil, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if status == enums.OrderStatusCancelled {
		return s.Cancel(ctx, id, "")
	}
	order, err := s.mutate(ctx, id, func(tx *gorm.DB, order *models.Order) error {
		return s.machine.Transition(ctx, tx, order, status)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, order, enums.NotificationTypeOrderStatus, nil)
	return order, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (*models.Order, error) {
	confirmed := false
	order, err := s.mutate(ctx, id, func(tx *gorm.DB, order *models.Order) error {
		var err error
		confirmed, err = s.machine.SetPayment(ctx, tx, order, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	if confirmed {
		s.notify(ctx, order, enums.NotificationTypeOrderStatus, map[string]any{"payment_status": order.PaymentStatus})
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	order, err := s.mutate(ctx, id, func(tx *gorm.DB, order *models.Order) error {
		if err := s.machine.Transition(ctx, tx, order, enums.OrderStatusCancelled); err != nil {
			return err
		}
		if reason != "" {
			order.CancellationReason = &reason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	var extra map[string]any
	if reason != "" {
		extra = map[string]any{"reason": reason}
	}
	s.notify(ctx, order, enums.NotificationTypeOrderCancelled, extra)
	return order, nil
}

// mutate loads the order for update, applies fn and saves it in one transaction.
func (s *service) mutate(ctx context.Context, id uuid.UUID, fn func(tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.FindByID(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(tx, order); err != nil {
			return err
		}
		if err := s.repo.SaveLifecycle(ctx, tx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		return nil, err
	}
	if s.logg != nil {
		lctx := s.logg.WithFields(s.logg.WithOrderID(ctx, result.ID.String()), map[string]any{
			"status":         result.Status,
			"payment_status": result.PaymentStatus,
		})
		s.logg.Info(lctx, "order updated")
	}
	return result, nil
}

func (s *service) notify(ctx context.Context, order *models.Order, kind enums.NotificationType, extra map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ctx, notificationFor(order, kind, extra))
}

func matchesContact(order *models.Order, contact string) bool {
	if order.CustomerEmail != nil && strings.EqualFold(strings.TrimSpace(*order.CustomerEmail), contact) {
		return true
	}
	if order.CustomerPhone != nil {
		want := digits(*order.CustomerPhone)
		return want != "" && want == digits(contact)
	}
	return false
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
