package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-backend/internal/promo"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

type lifecycleFixture struct {
	*checkoutFixture
	svc     Service
	product models.Product
	order   *models.Order
}

func newLifecycleFixture(t *testing.T, restock bool, method enums.PaymentMethod) *lifecycleFixture {
	t.Helper()
	f := newCheckoutFixture(t, promo.PolicySoft)
	product := f.seedProduct(t, "Chocolate Cake", "25.99", 10)

	machine := fixedMachine()
	if restock {
		machine.OnEnter(enums.OrderStatusCancelled, NewRestockCompensator(f.products))
	}
	svc, err := NewService(NewRepository(f.conn), f.client, machine, f.notifier, nil)
	require.NoError(t, err)

	order, err := f.coordinator.CreateOrder(context.Background(), CreateOrderInput{
		Guest:         &GuestContact{Name: "Ivy", Email: strPtr("Ivy@Example.com"), Phone: strPtr("+1 (555) 010-0199")},
		Items:         []DirectItem{{ProductID: product.ID, Quantity: 2}, {ProductID: product.ID, Quantity: 1}},
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return &lifecycleFixture{checkoutFixture: f, svc: svc, product: product, order: order}
}

func TestUpdateStatusWalksLifecycle(t *testing.T) {
	f := newLifecycleFixture(t, false, enums.PaymentMethodCard)
	ctx := context.Background()

	for _, next := range []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.OrderStatusReady, enums.OrderStatusPickedUp} {
		updated, err := f.svc.UpdateStatus(ctx, f.order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err := f.svc.UpdateStatus(ctx, f.order.ID, enums.OrderStatusPreparing)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	stored, err := f.svc.Get(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPickedUp, stored.Status)
	assert.NotNil(t, stored.ConfirmedAt)
	assert.NotNil(t, stored.CompletedAt)
	require.Len(t, stored.Items, 2, "line items are untouched by lifecycle changes")

	// confirmation plus four status changes
	assert.Len(t, f.notifier.all(), 5)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	f := newLifecycleFixture(t, false, enums.PaymentMethodCard)
	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatusConfirmed)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdatePaymentStatusAutoConfirms(t *testing.T) {
	f := newLifecycleFixture(t, false, enums.PaymentMethodBankTransfer)
	updated, err := f.svc.UpdatePaymentStatus(context.Background(), f.order.ID, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, updated.Status)

	card := newLifecycleFixture(t, false, enums.PaymentMethodCard)
	updated, err = card.svc.UpdatePaymentStatus(context.Background(), card.order.ID, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, updated.Status)
}

func TestCancelWithoutCompensatorKeepsStock(t *testing.T) {
	f := newLifecycleFixture(t, false, enums.PaymentMethodCard)
	assert.Equal(t, 7, f.stockOf(t, f.product.ID))

	cancelled, err := f.svc.Cancel(context.Background(), f.order.ID, "customer called")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "customer called", *cancelled.CancellationReason)
	assert.Equal(t, 7, f.stockOf(t, f.product.ID))

	events := f.notifier.all()
	assert.Equal(t, enums.NotificationTypeOrderCancelled, events[len(events)-1].Type)

	_, err = f.svc.Cancel(context.Background(), f.order.ID, "again")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCancelWithCompensatorRestocks(t *testing.T) {
	f := newLifecycleFixture(t, true, enums.PaymentMethodCard)
	_, err := f.svc.UpdateStatus(context.Background(), f.order.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stockOf(t, f.product.ID))
}

func TestTrack(t *testing.T) {
	f := newLifecycleFixture(t, false, enums.PaymentMethodCard)
	ctx := context.Background()
	number := f.order.OrderNumber

	for _, contact := range []string{"ivy@example.com", " IVY@EXAMPLE.COM ", "15550100199", "+1 555 010 0199"} {
		got, err := f.svc.Track(ctx, number, contact)
		require.NoError(t, err)
		require.NotNil(t, got, contact)
		assert.Equal(t, f.order.ID, got.ID)
	}

	got, err := f.svc.Track(ctx, number, "someone@else.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.svc.Track(ctx, "BK19990101001", "ivy@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.svc.Track(ctx, "", "ivy@example.com")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
