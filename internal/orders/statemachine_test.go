package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

func TestTransitionTable(t *testing.T) {
	all := []enums.OrderStatus{
		enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.OrderStatusReady,
		enums.OrderStatusPickedUp, enums.OrderStatusNoShow, enums.OrderStatusCancelled,
	}
	allowed := map[[2]enums.OrderStatus]bool{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed}:   true,
		{enums.OrderStatusPending, enums.OrderStatusCancelled}:   true,
		{enums.OrderStatusConfirmed, enums.OrderStatusPreparing}: true,
		{enums.OrderStatusConfirmed, enums.OrderStatusCancelled}: true,
		{enums.OrderStatusPreparing, enums.OrderStatusReady}:     true,
		{enums.OrderStatusPreparing, enums.OrderStatusCancelled}: true,
		{enums.OrderStatusReady, enums.OrderStatusPickedUp}:      true,
		{enums.OrderStatusReady, enums.OrderStatusNoShow}:        true,
		{enums.OrderStatusReady, enums.OrderStatusCancelled}:     true,
	}
	for _, from := range all {
		for _, to := range all {
			if got, want := CanTransition(from, to), allowed[[2]enums.OrderStatus{from, to}]; got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
	for _, terminal := range []enums.OrderStatus{enums.OrderStatusPickedUp, enums.OrderStatusNoShow, enums.OrderStatusCancelled} {
		if !IsTerminal(terminal) {
			t.Errorf("%s should be terminal", terminal)
		}
	}
	if IsTerminal(enums.OrderStatusReady) {
		t.Error("ready is not terminal")
	}
}

func fixedMachine() *StateMachine {
	m := NewStateMachine()
	m.now = func() time.Time { return checkoutDay }
	return m
}

func TestTransitionRejectsInvalidEdgeAndLeavesOrder(t *testing.T) {
	m := fixedMachine()
	order := &models.Order{Status: enums.OrderStatusPickedUp}

	err := m.Transition(context.Background(), nil, order, enums.OrderStatusPreparing)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if order.Status != enums.OrderStatusPickedUp {
		t.Fatalf("rejected transition changed status to %s", order.Status)
	}

	if err := m.Transition(context.Background(), nil, order, "baking"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestTransitionStampsLifecycleTimes(t *testing.T) {
	m := fixedMachine()
	ctx := context.Background()
	order := &models.Order{Status: enums.OrderStatusPending}

	if err := m.Transition(ctx, nil, order, enums.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if order.ConfirmedAt == nil {
		t.Fatal("confirmed_at not stamped")
	}
	for _, next := range []enums.OrderStatus{enums.OrderStatusPreparing, enums.OrderStatusReady, enums.OrderStatusNoShow} {
		if err := m.Transition(ctx, nil, order, next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if order.CompletedAt == nil || !order.CompletedAt.Equal(checkoutDay) {
		t.Fatalf("completed_at = %v, want %v", order.CompletedAt, checkoutDay)
	}
	if order.CancelledAt != nil {
		t.Fatal("no-show must not stamp cancelled_at")
	}
}

type hookFunc func(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus) error

func (f hookFunc) OnTransition(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus) error {
	return f(ctx, tx, order, from)
}

func TestTransitionRunsEnterHooks(t *testing.T) {
	m := fixedMachine()
	var seenFrom enums.OrderStatus
	m.OnEnter(enums.OrderStatusCancelled, hookFunc(func(_ context.Context, _ *gorm.DB, _ *models.Order, from enums.OrderStatus) error {
		seenFrom = from
		return nil
	}))
	order := &models.Order{Status: enums.OrderStatusReady}
	if err := m.Transition(context.Background(), nil, order, enums.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if seenFrom != enums.OrderStatusReady {
		t.Fatalf("hook saw from=%s, want ready", seenFrom)
	}

	boom := errors.New("boom")
	m.OnEnter(enums.OrderStatusConfirmed, hookFunc(func(context.Context, *gorm.DB, *models.Order, enums.OrderStatus) error {
		return boom
	}))
	err := m.Transition(context.Background(), nil, &models.Order{Status: enums.OrderStatusPending}, enums.OrderStatusConfirmed)
	if !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
}

func TestSetPaymentAutoConfirm(t *testing.T) {
	cases := []struct {
		method  enums.PaymentMethod
		status  enums.OrderStatus
		payment enums.PaymentStatus
		confirm bool
	}{
		{enums.PaymentMethodManual, enums.OrderStatusPending, enums.PaymentStatusPaid, true},
		{enums.PaymentMethodCashOnPickup, enums.OrderStatusPending, enums.PaymentStatusPaid, true},
		{enums.PaymentMethodBankTransfer, enums.OrderStatusPending, enums.PaymentStatusPaid, true},
		{enums.PaymentMethodCard, enums.OrderStatusPending, enums.PaymentStatusPaid, false},
		{enums.PaymentMethodManual, enums.OrderStatusPending, enums.PaymentStatusFailed, false},
		{enums.PaymentMethodManual, enums.OrderStatusPreparing, enums.PaymentStatusPaid, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.method)+"/"+string(tc.status)+"/"+string(tc.payment), func(t *testing.T) {
			order := &models.Order{Status: tc.status, PaymentMethod: tc.method, PaymentStatus: enums.PaymentStatusPending}
			confirmed, err := fixedMachine().SetPayment(context.Background(), nil, order, tc.payment)
			if err != nil {
				t.Fatalf("set payment: %v", err)
			}
			if confirmed != tc.confirm {
				t.Fatalf("confirmed = %v, want %v", confirmed, tc.confirm)
			}
			if order.PaymentStatus != tc.payment {
				t.Fatalf("payment status = %s, want %s", order.PaymentStatus, tc.payment)
			}
			want := tc.status
			if tc.confirm {
				want = enums.OrderStatusConfirmed
			}
			if order.Status != want {
				t.Fatalf("order status = %s, want %s", order.Status, want)
			}
		})
	}

	if _, err := fixedMachine().SetPayment(context.Background(), nil, &models.Order{}, "settled"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
