package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-backend/internal/catalog"
	"github.com/angelmondragon/bakery-backend/internal/identity"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

type stubCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.Product
}

func newStubCatalog(products ...*catalog.Product) *stubCatalog {
	c := &stubCatalog{products: map[uuid.UUID]*catalog.Product{}}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *stubCatalog) GetProduct(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (c *stubCatalog) set(p *catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *stubCatalog) drop(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

type fixture struct {
	svc     Service
	store   *MemoryStore
	catalog *stubCatalog
	now     time.Time
	cake    *catalog.Product
	bread   *catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: NewMemoryStore(),
		now:   time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
		cake:  &catalog.Product{ID: uuid.New(), Name: "Chocolate Cake", Price: decimal.RequireFromString("25.99"), Stock: 10},
		bread: &catalog.Product{ID: uuid.New(), Name: "Sourdough", Price: decimal.RequireFromString("6.50"), Stock: 3},
	}
	f.catalog = newStubCatalog(f.cake, f.bread)
	svc, err := NewService(f.store, f.catalog, Options{
		GuestTTL: 7 * 24 * time.Hour,
		Now:      func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func guest() identity.Identity { return identity.Guest{SessionID: uuid.NewString()} }

func TestGetOrCreateGuestCartGetsExpiry(t *testing.T) {
	f := newFixture(t)
	id := guest()

	c, err := f.svc.GetOrCreate(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c.ExpiresAt)
	assert.Equal(t, f.now.Add(7*24*time.Hour), *c.ExpiresAt)
	assert.Empty(t, c.Items)
	assert.True(t, c.TotalAmount.IsZero())

	again, err := f.svc.GetOrCreate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
}

func TestGetOrCreateUserCartNeverExpires(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.GetOrCreate(context.Background(), identity.User{UserID: uuid.New()})
	require.NoError(t, err)
	assert.Nil(t, c.ExpiresAt)
}

func TestExpiredGuestCartIsReplaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := guest()

	first, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
	require.NoError(t, err)

	f.now = f.now.Add(8 * 24 * time.Hour)
	fresh, err := f.svc.GetOrCreate(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Empty(t, fresh.Items)
}

func TestGuestExpirySlidesOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := guest()

	_, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
	require.NoError(t, err)
	f.now = f.now.Add(6 * 24 * time.Hour)
	c, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(7*24*time.Hour), *c.ExpiresAt)
}

func TestAddItemMergesFungibleLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := guest()

	_, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 2})
	require.NoError(t, err)

	want := []LineItem{{
		ProductID: f.cake.ID,
		Name:      "Chocolate Cake",
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("25.99"),
		Subtotal:  decimal.RequireFromString("77.97"),
	}}
	if diff := cmp.Diff(want, c.Items, decimalEqual); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
	assert.Equal(t, "77.97", c.TotalAmount.StringFixed(2))
}

func TestAddItemCustomLinesNeverMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity.User{UserID: uuid.New()}
	custom := &CustomConfig{Flavor: "vanilla", Size: "large", Frosting: "buttercream"}

	_, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1, Custom: custom})
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1, Custom: custom})
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	for _, line := range c.Items {
		assert.Equal(t, "38.99", line.UnitPrice.StringFixed(2))
	}
	assert.Equal(t, "77.98", c.TotalAmount.StringFixed(2))
}

func TestAddItemStockFailuresLeaveCartUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := guest()

	before, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.bread.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.bread.ID, Quantity: 2})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	// custom lines draw from the same stock.
	_, err = f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.bread.ID, Quantity: 2, Custom: &CustomConfig{Size: "small"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	after, err := f.svc.GetOrCreate(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(before.Items, after.Items, decimalEqual); diff != "" {
		t.Fatalf("cart changed after failed add (-before +after):\n%s", diff)
	}
}

func TestAddItemProductErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, guest(), AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProductNotFound))

	soldOut := &catalog.Product{ID: uuid.New(), Name: "Croissant", Price: decimal.NewFromInt(3), Stock: 0}
	f.catalog.set(soldOut)
	_, err = f.svc.AddItem(ctx, guest(), AddItemInput{ProductID: soldOut.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock))

	_, err = f.svc.AddItem(ctx, guest(), AddItemInput{ProductID: f.cake.ID, Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AddItem(ctx, nil, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIdentity))
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := guest()

	_, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1, Custom: &CustomConfig{Size: "small"}})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
	require.NoError(t, err)

	c, err := f.svc.UpdateItem(ctx, id, ForProduct(f.cake.ID), 4)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[0].Quantity, "product ref must skip the custom line")
	assert.Equal(t, 4, c.Items[1].Quantity)

	c, err = f.svc.UpdateItem(ctx, id, AtIndex(0), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "181.93", c.TotalAmount.StringFixed(2))

	_, err = f.svc.UpdateItem(ctx, id, AtIndex(1), 8)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	c, err = f.svc.UpdateItem(ctx, id, AtIndex(0), 0)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Nil(t, c.Items[0].CustomConfig)
}

func TestRemoveItemAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := guest()

	_, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.bread.ID, Quantity: 1})
	require.NoError(t, err)

	c, err := f.svc.RemoveItem(ctx, id, ForProduct(f.cake.ID))
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, f.bread.ID, c.Items[0].ProductID)
	assert.Equal(t, "6.50", c.TotalAmount.StringFixed(2))

	_, err = f.svc.RemoveItem(ctx, id, ForProduct(f.cake.ID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, f.svc.ClearCart(ctx, id))
	loaded, err := f.svc.Load(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRefreshCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity.User{UserID: uuid.New()}

	_, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.bread.ID, Quantity: 2})
	require.NoError(t, err)

	_, changed, err := f.svc.RefreshCart(ctx, id)
	require.NoError(t, err)
	assert.False(t, changed)

	f.catalog.set(&catalog.Product{ID: f.cake.ID, Name: "Chocolate Cake", Price: decimal.RequireFromString("27.50"), Stock: 2})
	f.catalog.drop(f.bread.ID)

	c, changed, err := f.svc.RefreshCart(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	want := []LineItem{{
		ProductID: f.cake.ID,
		Name:      "Chocolate Cake",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("27.50"),
		Subtotal:  decimal.RequireFromString("55.00"),
	}}
	if diff := cmp.Diff(want, c.Items, decimalEqual); diff != "" {
		t.Fatalf("unexpected refreshed lines (-want +got):\n%s", diff)
	}
	assert.Equal(t, "55.00", c.TotalAmount.StringFixed(2))
}

func TestValidateCartIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := guest()

	_, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.cake.ID, Quantity: 4})
	require.NoError(t, err)
	before, err := f.svc.AddItem(ctx, id, AddItemInput{ProductID: f.bread.ID, Quantity: 1})
	require.NoError(t, err)

	f.catalog.set(&catalog.Product{ID: f.cake.ID, Name: "Chocolate Cake", Price: decimal.RequireFromString("24.00"), Stock: 3})
	f.catalog.set(&catalog.Product{ID: f.bread.ID, Name: "Sourdough", Price: decimal.RequireFromString("6.50"), Stock: 0})

	issues, err := f.svc.ValidateCart(ctx, id)
	require.NoError(t, err)

	got := make([]enums.CartIssueType, 0, len(issues))
	for _, issue := range issues {
		got = append(got, issue.Type)
		assert.NotEmpty(t, issue.Message)
	}
	want := []enums.CartIssueType{enums.CartIssuePriceChanged, enums.CartIssueInsufficientStock, enums.CartIssueProductRemoved}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b enums.CartIssueType) bool { return a < b })); diff != "" {
		t.Fatalf("unexpected issues (-want +got):\n%s", diff)
	}

	after, err := f.svc.Load(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(before, after, decimalEqual); diff != "" {
		t.Fatalf("validate mutated the cart:\n%s", diff)
	}
}

func TestMergeGuestCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sessionID := uuid.NewString()
	guestID := identity.Guest{SessionID: sessionID}
	userID := uuid.New()
	user := identity.User{UserID: userID}

	_, err := f.svc.AddItem(ctx, user, AddItemInput{ProductID: f.bread.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, guestID, AddItemInput{ProductID: f.cake.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guestID, AddItemInput{ProductID: f.bread.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guestID, AddItemInput{ProductID: f.cake.ID, Quantity: 1, Custom: &CustomConfig{Size: "medium"}})
	require.NoError(t, err)

	merged, err := f.svc.MergeGuestCart(ctx, sessionID, userID)
	require.NoError(t, err)

	// bread would exceed stock (2 + 2 > 3) and is skipped; the rest lands.
	require.Len(t, merged.Items, 3)
	assert.Equal(t, 2, merged.QuantityOf(f.bread.ID))
	assert.Equal(t, 3, merged.QuantityOf(f.cake.ID))
	assert.NotNil(t, merged.Items[2].CustomConfig)

	leftover, err := f.svc.Load(ctx, guestID)
	require.NoError(t, err)
	assert.Nil(t, leftover, "guest cart must be removed after merge")
}

func TestMergeGuestCartSkipsRemovedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sessionID := uuid.NewString()
	guestID := identity.Guest{SessionID: sessionID}
	userID := uuid.New()

	_, err := f.svc.AddItem(ctx, guestID, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guestID, AddItemInput{ProductID: f.bread.ID, Quantity: 1})
	require.NoError(t, err)
	f.catalog.drop(f.bread.ID)

	merged, err := f.svc.MergeGuestCart(ctx, sessionID, userID)
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, f.cake.ID, merged.Items[0].ProductID)
	assert.Zero(t, merged.QuantityOf(f.bread.ID))

	leftover, err := f.svc.Load(ctx, guestID)
	require.NoError(t, err)
	assert.Nil(t, leftover, "guest cart must be removed even when a line is skipped")
}

func TestMergeGuestCartIgnoresLineOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	custom := &CustomConfig{Flavor: "lemon", Size: "large", Frosting: "buttercream"}
	lines := []AddItemInput{
		{ProductID: f.cake.ID, Quantity: 2},
		{ProductID: f.bread.ID, Quantity: 1},
		{ProductID: f.cake.ID, Quantity: 1, Custom: custom},
	}
	reversed := []AddItemInput{lines[2], lines[1], lines[0]}

	// Each user already holds one plain cake, so merging also sums into an existing line.
	merge := func(order []AddItemInput) *Cart {
		t.Helper()
		sessionID := uuid.NewString()
		userID := uuid.New()
		_, err := f.svc.AddItem(ctx, identity.User{UserID: userID}, AddItemInput{ProductID: f.cake.ID, Quantity: 1})
		require.NoError(t, err)
		for _, in := range order {
			_, err := f.svc.AddItem(ctx, identity.Guest{SessionID: sessionID}, in)
			require.NoError(t, err)
		}
		merged, err := f.svc.MergeGuestCart(ctx, sessionID, userID)
		require.NoError(t, err)
		return merged
	}

	type lineKey struct {
		product uuid.UUID
		custom  bool
	}
	summarize := func(c *Cart) map[lineKey]int {
		out := map[lineKey]int{}
		for _, item := range c.Items {
			out[lineKey{item.ProductID, item.IsCustom()}] += item.Quantity
		}
		return out
	}

	forward := merge(lines)
	backward := merge(reversed)
	if diff := cmp.Diff(summarize(forward), summarize(backward), cmp.AllowUnexported(lineKey{})); diff != "" {
		t.Fatalf("merge depends on line order (-forward +backward):\n%s", diff)
	}
	assert.Len(t, forward.Items, 3)
	assert.Len(t, backward.Items, 3)
	assert.Equal(t, 3, summarize(forward)[lineKey{f.cake.ID, false}])
	assert.True(t, forward.TotalAmount.Equal(backward.TotalAmount), "%s vs %s", forward.TotalAmount, backward.TotalAmount)
}

func TestMergeGuestCartWithoutGuestCart(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.MergeGuestCart(context.Background(), uuid.NewString(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = f.svc.MergeGuestCart(context.Background(), "s", uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIdentity))
}

func TestSetGuestInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	email := "ana@example.com"

	c, err := f.svc.SetGuestInfo(ctx, guest(), GuestInfo{Name: "Ana", Email: &email})
	require.NoError(t, err)
	require.NotNil(t, c.GuestInfo)
	assert.Equal(t, "Ana", c.GuestInfo.Name)

	_, err = f.svc.SetGuestInfo(ctx, guest(), GuestInfo{Name: "Ana"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.SetGuestInfo(ctx, identity.User{UserID: uuid.New()}, GuestInfo{Name: "Ana", Email: &email})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
