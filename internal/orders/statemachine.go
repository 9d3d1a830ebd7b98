package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing: {enums.OrderStatusReady, enums.OrderStatusCancelled},
	enums.OrderStatusReady:     {enums.OrderStatusPickedUp, enums.OrderStatusNoShow, enums.OrderStatusCancelled},
}

// Payment methods settled outside the card flow; marking them paid confirms a pending order.
var autoConfirmMethods = map[enums.PaymentMethod]bool{
	enums.PaymentMethodManual:       true,
	enums.PaymentMethodCashOnPickup: true,
	enums.PaymentMethodBankTransfer: true,
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status enums.OrderStatus) bool {
	return len(transitions[status]) == 0
}

func InvalidTransition(from, to enums.OrderStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

// TransitionHook runs inside the transaction that persists a status change.
// Returning an error aborts the change.
type TransitionHook interface {
	OnTransition(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus) error
}

// StateMachine applies lifecycle changes to an order loaded for update.
type StateMachine struct {
	hooks map[enums.OrderStatus][]TransitionHook
	now   func() time.Time
}

func NewStateMachine() *StateMachine {
	return &StateMachine{hooks: map[enums.OrderStatus][]TransitionHook{}, now: time.Now}
}

// OnEnter registers hook for every transition into status.
func (m *StateMachine) OnEnter(status enums.OrderStatus, hook TransitionHook) {
	m.hooks[status] = append(m.hooks[status], hook)
}

// Transition moves order to status and stamps the matching timestamp. The
// order is left untouched when the edge is not allowed.
func (m *StateMachine) Transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}
	from := order.Status
	if !CanTransition(from, to) {
		return InvalidTransition(from, to)
	}

	now := m.now().UTC()
	order.Status = to
	switch to {
	case enums.OrderStatusConfirmed:
		order.ConfirmedAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	case enums.OrderStatusPickedUp, enums.OrderStatusNoShow:
		order.CompletedAt = &now
	}

	for _, hook := range m.hooks[to] {
		if err := hook.OnTransition(ctx, tx, order, from); err != nil {
			return err
		}
	}
	return nil
}

// SetPayment records a payment status. Paid orders settled by a non-card
// method advance from pending to confirmed; the result reports whether they did.
func (m *StateMachine) SetPayment(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.PaymentStatus) (bool, error) {
	if !status.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment status %q", status))
	}
	order.PaymentStatus = status
	if status != enums.PaymentStatusPaid || order.Status != enums.OrderStatusPending || !autoConfirmMethods[order.PaymentMethod] {
		return false, nil
	}
	if err := m.Transition(ctx, tx, order, enums.OrderStatusConfirmed); err != nil {
		return false, err
	}
	return true, nil
}
