package returns

import (
	"context"
	"testing"

	"github.com/angelmondragon/stockdesk-backend/internal/inventory"
	"github.com/angelmondragon/stockdesk-backend/internal/orders"
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

type countingAlerts struct{ products []uuid.UUID }

func (c *countingAlerts) Evaluate(_ context.Context, _ *gorm.DB, _ uuid.UUID, ids []uuid.UUID) error {
	c.products = append(c.products, ids...)
	return nil
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	alerts  *countingAlerts
	actor   auth.Actor
	product *models.Product
	order   *models.Order
}

// newFixture seeds an order in the given status with four units at 2500 each.
func newFixture(t *testing.T, status enums.OrderStatus) fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	alerts := &countingAlerts{}
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Orders: orders.NewRepository(conn),
		DB:     db.FromGorm(conn),
		Ledger: inventory.NewLedger(nil),
		Alerts: alerts,
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	actor := auth.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: enums.RoleStaff}
	product := testutil.SeedProduct(t, conn, actor.TenantID, testutil.ProductOpts{Price: 2500, Total: 6})
	client := testutil.SeedClient(t, conn, actor.TenantID)
	order := &models.Order{
		TenantID: actor.TenantID, ClientID: client.ID, Status: status, Source: enums.OrderSourceBackOffice, TotalPriceCents: 10000,
		Items: []models.OrderItem{{ProductID: product.ID, ProductName: product.Name, SKU: product.SKU, Quantity: 4, UnitPriceCents: 2500, LineTotalCents: 10000}},
	}
	require.NoError(t, conn.Create(order).Error)
	return fixture{conn: conn, svc: svc, alerts: alerts, actor: actor, product: product, order: order}
}

func (f fixture) input(qty int) CreateReturnInput {
	return CreateReturnInput{OrderItemID: f.order.Items[0].ID, Quantity: qty, Reason: enums.ReturnReasonDefective}
}

func TestCreateReturnRestocks(t *testing.T) {
	f := newFixture(t, enums.OrderStatusDelivered)
	ctx := context.Background()

	in := f.input(2)
	in.Restock = true
	in.RefundCents = 5000
	ret, err := f.svc.CreateReturn(ctx, f.actor, f.order.ID, in)
	require.NoError(t, err)
	assert.True(t, ret.Restocked)
	assert.Equal(t, "50.00", ret.Refund)
	assert.Equal(t, 8, testutil.ReloadProduct(t, f.conn, f.product.ID).TotalStock)
	assert.Equal(t, []uuid.UUID{f.product.ID}, f.alerts.products)

	_, err = f.svc.CreateReturn(ctx, f.actor, f.order.ID, f.input(2))
	require.NoError(t, err)
	assert.Equal(t, 8, testutil.ReloadProduct(t, f.conn, f.product.ID).TotalStock, "unrestocked returns leave stock alone")

	_, err = f.svc.CreateReturn(ctx, f.actor, f.order.ID, f.input(1))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]any{"returnable": 0}, pkgerrors.As(err).Details())

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventReturnCreated).Count(&events).Error)
	assert.EqualValues(t, 2, events)
}

func TestRestockedReturnPinsDeliveredOrder(t *testing.T) {
	f := newFixture(t, enums.OrderStatusDelivered)
	ctx := context.Background()
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:   orders.NewRepository(f.conn),
		Tx:     db.FromGorm(f.conn),
		Ledger: inventory.NewLedger(nil),
		Alerts: f.alerts,
		Outbox: outbox.NewService(outbox.NewRepository(f.conn), nil),
	})
	require.NoError(t, err)

	in := f.input(2)
	in.Restock = true
	_, err = f.svc.CreateReturn(ctx, f.actor, f.order.ID, in)
	require.NoError(t, err)

	for _, to := range []enums.OrderStatus{enums.OrderStatusDraft, enums.OrderStatusReserved} {
		_, err = orderSvc.UpdateOrderStatus(ctx, f.actor, f.order.ID, orders.UpdateStatusInput{Status: to})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "to %s: got %v", to, err)
	}

	p := testutil.ReloadProduct(t, f.conn, f.product.ID)
	assert.Equal(t, 8, p.TotalStock)
	assert.Equal(t, 0, p.ReservedStock)
	detail, err := orderSvc.GetOrder(ctx, f.actor, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, detail.Status)
	assert.Empty(t, detail.History)
}

func TestCreateReturnValidation(t *testing.T) {
	f := newFixture(t, enums.OrderStatusClosed)
	ctx := context.Background()

	tooMuch := f.input(1)
	tooMuch.RefundCents = 2501
	_, err := f.svc.CreateReturn(ctx, f.actor, f.order.ID, tooMuch)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	badReason := f.input(1)
	badReason.Reason = "meh"
	_, err = f.svc.CreateReturn(ctx, f.actor, f.order.ID, badReason)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	unknownItem := f.input(1)
	unknownItem.OrderItemID = uuid.New()
	_, err = f.svc.CreateReturn(ctx, f.actor, f.order.ID, unknownItem)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.CreateReturn(ctx, f.actor, uuid.New(), f.input(1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateReturnRequiresDeliveredOrder(t *testing.T) {
	f := newFixture(t, enums.OrderStatusReserved)
	_, err := f.svc.CreateReturn(context.Background(), f.actor, f.order.ID, f.input(1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestListReturns(t *testing.T) {
	f := newFixture(t, enums.OrderStatusDelivered)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateReturn(ctx, f.actor, f.order.ID, f.input(1))
		require.NoError(t, err)
	}

	page, err := f.svc.ListReturns(ctx, f.actor.TenantID, ListReturnsInput{OrderID: &f.order.ID, Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)

	all, err := f.svc.ListReturns(ctx, f.actor.TenantID, ListReturnsInput{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)

	missing := uuid.New()
	_, err = f.svc.ListReturns(ctx, f.actor.TenantID, ListReturnsInput{OrderID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
