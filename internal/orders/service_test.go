package orders

import (
	"context"
	"math"
	"testing"

	"github.com/angelmondragon/stockdesk-backend/internal/inventory"
	"github.com/angelmondragon/stockdesk-backend/internal/testutil"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubAlerts struct {
	calls [][]uuid.UUID
}

func (s *stubAlerts) Evaluate(_ context.Context, _ *gorm.DB, _ uuid.UUID, ids []uuid.UUID) error {
	s.calls = append(s.calls, append([]uuid.UUID(nil), ids...))
	return nil
}

type fixture struct {
	conn   *gorm.DB
	svc    Service
	alerts *stubAlerts
	actor  auth.Actor
	client *models.Client
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	alerts := &stubAlerts{}
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     db.FromGorm(conn),
		Ledger: inventory.NewLedger(nil),
		Alerts: alerts,
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	actor := auth.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: enums.RoleStaff}
	return fixture{
		conn:   conn,
		svc:    svc,
		alerts: alerts,
		actor:  actor,
		client: testutil.SeedClient(t, conn, actor.TenantID),
	}
}

func (f fixture) draft(t *testing.T, items ...ItemInput) *OrderDTO {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{ClientID: f.client.ID, Items: items})
	require.NoError(t, err)
	return order
}

func (f fixture) move(t *testing.T, orderID uuid.UUID, to enums.OrderStatus) error {
	t.Helper()
	_, err := f.svc.UpdateOrderStatus(context.Background(), f.actor, orderID, UpdateStatusInput{Status: to})
	return err
}

func countEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func intPtr(v int) *int { return &v }

func TestCreateOrderComputesTotalAndMergesLines(t *testing.T) {
	f := newFixture(t)
	phone := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Price: 45900, Total: 10})
	cable := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Price: 1500, Total: 10})

	order := f.draft(t,
		ItemInput{ProductID: phone.ID, Quantity: 1},
		ItemInput{ProductID: cable.ID, Quantity: 2, UnitPriceCents: intPtr(1200)},
		ItemInput{ProductID: phone.ID, Quantity: 2},
	)

	assert.Equal(t, enums.OrderStatusDraft, order.Status)
	assert.Equal(t, enums.OrderSourceBackOffice, order.Source)
	require.Len(t, order.Items, 2)
	sum := 0
	for _, item := range order.Items {
		assert.Equal(t, item.Quantity*item.UnitPriceCents, item.LineTotalCents)
		sum += item.LineTotalCents
	}
	assert.Equal(t, 3*45900+2*1200, order.TotalPriceCents)
	assert.Equal(t, sum, order.TotalPriceCents)
	assert.Equal(t, "1401.00", order.TotalPrice)
	assert.ElementsMatch(t, []enums.OrderStatus{enums.OrderStatusReserved, enums.OrderStatusDelivered, enums.OrderStatusCanceled}, order.AllowedTransitions)
	assert.EqualValues(t, 1, countEvents(t, f.conn, enums.EventOrderCreated))

	assert.Equal(t, 10, testutil.ReloadProduct(t, f.conn, phone.ID).TotalStock, "drafts hold no stock")
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 1})
	inactive := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Inactive: true})
	foreign := testutil.SeedProduct(t, f.conn, uuid.New(), testutil.ProductOpts{})

	cases := map[string]struct {
		input CreateOrderInput
		code  pkgerrors.Code
	}{
		"no items":         {CreateOrderInput{ClientID: f.client.ID}, pkgerrors.CodeValidation},
		"zero quantity":    {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: product.ID}}}, pkgerrors.CodeValidation},
		"negative price":   {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: product.ID, Quantity: 1, UnitPriceCents: intPtr(-1)}}}, pkgerrors.CodeValidation},
		"conflicting dup":  {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: product.ID, Quantity: 1, UnitPriceCents: intPtr(1)}, {ProductID: product.ID, Quantity: 1, UnitPriceCents: intPtr(2)}}}, pkgerrors.CodeValidation},
		"inactive product": {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: inactive.ID, Quantity: 1}}}, pkgerrors.CodeValidation},
		"foreign product":  {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: foreign.ID, Quantity: 1}}}, pkgerrors.CodeNotFound},
		"unknown client":   {CreateOrderInput{ClientID: uuid.New(), Items: []ItemInput{{ProductID: product.ID, Quantity: 1}}}, pkgerrors.CodeNotFound},
		"missing client":   {CreateOrderInput{Items: []ItemInput{{ProductID: product.ID, Quantity: 1}}}, pkgerrors.CodeValidation},
		"huge quantity":    {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: product.ID, Quantity: 100001}}}, pkgerrors.CodeValidation},
		"merged quantity":  {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: product.ID, Quantity: 60000}, {ProductID: product.ID, Quantity: 60000}}}, pkgerrors.CodeValidation},
		"huge unit price":  {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: product.ID, Quantity: 1, UnitPriceCents: intPtr(1 << 31)}}}, pkgerrors.CodeValidation},
		"line overflow":    {CreateOrderInput{ClientID: f.client.ID, Items: []ItemInput{{ProductID: product.ID, Quantity: 100000, UnitPriceCents: intPtr(50000)}}}, pkgerrors.CodeValidation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(ctx, f.actor, tc.input)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
	assert.EqualValues(t, 0, countEvents(t, f.conn, enums.EventOrderCreated))
}

func TestCreateOrderRejectsTotalAboveColumnRange(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Price: 1_500_000_000, Total: 1})
	b := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Price: 1_000_000_000, Total: 1})

	_, err := f.svc.CreateOrder(context.Background(), f.actor, CreateOrderInput{
		ClientID: f.client.ID,
		Items:    []ItemInput{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	assert.Equal(t, math.MaxInt32, pkgerrors.As(err).Details().(map[string]any)["max_cents"])

	order := f.draft(t, ItemInput{ProductID: a.ID, Quantity: 1})
	assert.Equal(t, 1_500_000_000, order.TotalPriceCents)
}

func TestOrderLifecycleMovesStock(t *testing.T) {
	f := newFixture(t)
	product := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 10})
	order := f.draft(t, ItemInput{ProductID: product.ID, Quantity: 3})

	require.NoError(t, f.move(t, order.ID, enums.OrderStatusReserved))
	p := testutil.ReloadProduct(t, f.conn, product.ID)
	assert.Equal(t, 10, p.TotalStock)
	assert.Equal(t, 3, p.ReservedStock)

	require.NoError(t, f.move(t, order.ID, enums.OrderStatusDelivered))
	p = testutil.ReloadProduct(t, f.conn, product.ID)
	assert.Equal(t, 7, p.TotalStock)
	assert.Equal(t, 0, p.ReservedStock)

	require.NoError(t, f.move(t, order.ID, enums.OrderStatusClosed))
	p = testutil.ReloadProduct(t, f.conn, product.ID)
	assert.Equal(t, 7, p.TotalStock)
	assert.Equal(t, 0, p.ReservedStock)

	detail, err := f.svc.GetOrder(context.Background(), f.actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusClosed, detail.Status)
	require.Len(t, detail.History, 3)
	assert.Equal(t, enums.OrderStatusDraft, detail.History[0].From)
	assert.Equal(t, enums.OrderStatusClosed, detail.History[2].To)
	assert.EqualValues(t, 3, countEvents(t, f.conn, enums.EventOrderStatusChanged))
	assert.Len(t, f.alerts.calls, 2, "closing moves no stock")
}

func TestReversalsRestoreCounters(t *testing.T) {
	f := newFixture(t)
	product := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 6, Reserved: 1})
	order := f.draft(t, ItemInput{ProductID: product.ID, Quantity: 2})

	path := []enums.OrderStatus{
		enums.OrderStatusDelivered,
		enums.OrderStatusDraft,
		enums.OrderStatusReserved,
		enums.OrderStatusDelivered,
		enums.OrderStatusReserved,
		enums.OrderStatusDraft,
	}
	for _, to := range path {
		require.NoError(t, f.move(t, order.ID, to), "to %s", to)
	}
	p := testutil.ReloadProduct(t, f.conn, product.ID)
	assert.Equal(t, 6, p.TotalStock)
	assert.Equal(t, 1, p.ReservedStock)
}

func TestInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	plenty := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 50})
	scarce := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 3, Reserved: 2})
	order := f.draft(t,
		ItemInput{ProductID: plenty.ID, Quantity: 5},
		ItemInput{ProductID: scarce.ID, Quantity: 2},
	)

	err := f.move(t, order.ID, enums.OrderStatusReserved)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	shortfalls, ok := details["shortfalls"].([]inventory.Shortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, scarce.ID, shortfalls[0].ProductID)
	assert.Equal(t, 2, shortfalls[0].Requested)
	assert.Equal(t, 1, shortfalls[0].Available)

	assert.Equal(t, 0, testutil.ReloadProduct(t, f.conn, plenty.ID).ReservedStock)
	detail, err := f.svc.GetOrder(context.Background(), f.actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDraft, detail.Status)
	assert.Empty(t, detail.History)
	assert.EqualValues(t, 0, countEvents(t, f.conn, enums.EventOrderStatusChanged))
	assert.Empty(t, f.alerts.calls)
}

func TestDisallowedTransition(t *testing.T) {
	f := newFixture(t)
	product := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 5})
	order := f.draft(t, ItemInput{ProductID: product.ID, Quantity: 1})

	err := f.move(t, order.ID, enums.OrderStatusClosed)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	err = f.move(t, order.ID, enums.OrderStatusDraft)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	err = f.move(t, order.ID, enums.OrderStatus("shipped"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	err = f.move(t, uuid.New(), enums.OrderStatusReserved)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCancelReleasesReservation(t *testing.T) {
	f := newFixture(t)
	product := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 5})
	order := f.draft(t, ItemInput{ProductID: product.ID, Quantity: 4})

	require.NoError(t, f.move(t, order.ID, enums.OrderStatusReserved))
	require.NoError(t, f.move(t, order.ID, enums.OrderStatusCanceled))
	assert.Equal(t, 0, testutil.ReloadProduct(t, f.conn, product.ID).ReservedStock)

	require.NoError(t, f.svc.DeleteOrder(context.Background(), f.actor, order.ID))
	_, err := f.svc.GetOrder(context.Background(), f.actor, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.EqualValues(t, 1, countEvents(t, f.conn, enums.EventOrderDeleted))
}

func TestReturnsBlockStockReversal(t *testing.T) {
	f := newFixture(t)
	product := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 5})
	order := f.draft(t, ItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, f.move(t, order.ID, enums.OrderStatusDelivered))

	require.NoError(t, f.conn.Create(&models.Return{
		TenantID: f.actor.TenantID, OrderID: order.ID, OrderItemID: order.Items[0].ID, ProductID: product.ID,
		Quantity: 1, Reason: enums.ReturnReasonDefective,
	}).Error)

	err := f.move(t, order.ID, enums.OrderStatusDraft)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	require.NoError(t, f.move(t, order.ID, enums.OrderStatusClosed))
}

func TestReplaceItemsOnlyOnDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Price: 100, Total: 5})
	b := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Price: 250, Total: 5})
	order := f.draft(t, ItemInput{ProductID: a.ID, Quantity: 1})

	updated, err := f.svc.ReplaceItems(ctx, f.actor, order.ID, []ItemInput{{ProductID: b.ID, Quantity: 3}})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, b.ID, updated.Items[0].ProductID)
	assert.Equal(t, 750, updated.TotalPriceCents)

	require.NoError(t, f.move(t, order.ID, enums.OrderStatusReserved))
	_, err = f.svc.ReplaceItems(ctx, f.actor, order.ID, []ItemInput{{ProductID: a.ID, Quantity: 1}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	err = f.svc.DeleteOrder(ctx, f.actor, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestPortalClientSeesOwnOrdersOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 5})
	mine := f.draft(t, ItemInput{ProductID: product.ID, Quantity: 1})

	other := testutil.SeedClient(t, f.conn, f.actor.TenantID)
	theirs, err := f.svc.CreateOrder(ctx, f.actor, CreateOrderInput{ClientID: other.ID, Items: []ItemInput{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)

	portal := auth.Actor{UserID: uuid.New(), TenantID: f.actor.TenantID, Role: enums.RoleClient, ClientID: &f.client.ID}
	page, err := f.svc.ListOrders(ctx, portal, ListOrdersInput{Filters: ListFilters{ClientID: &other.ID}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)

	_, err = f.svc.GetOrder(ctx, portal, theirs.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	unlinked := portal
	unlinked.ClientID = nil
	_, err = f.svc.ListOrders(ctx, unlinked, ListOrdersInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestListOrdersFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, f.conn, f.actor.TenantID, testutil.ProductOpts{Total: 20})
	for i := 0; i < 3; i++ {
		f.draft(t, ItemInput{ProductID: product.ID, Quantity: 1})
	}
	reserved := f.draft(t, ItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, f.move(t, reserved.ID, enums.OrderStatusReserved))

	status := enums.OrderStatusReserved
	page, err := f.svc.ListOrders(ctx, f.actor, ListOrdersInput{Filters: ListFilters{Status: &status}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, reserved.ID, page.Items[0].ID)

	first, err := f.svc.ListOrders(ctx, f.actor, ListOrdersInput{Pagination: pagination.Params{Limit: 3}})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	second, err := f.svc.ListOrders(ctx, f.actor, ListOrdersInput{Pagination: pagination.Params{Limit: 3, Cursor: first.NextCursor}})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
}
