package clients

import (
	"context"
	"testing"

	"github.com/angelmondragon/stockdesk-backend/internal/testutil"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, Service, auth.Actor) {
	t.Helper()
	conn := testutil.NewDB(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), DB: db.FromGorm(conn)})
	require.NoError(t, err)
	return conn, svc, auth.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: enums.RoleStaff}
}

func strPtr(v string) *string { return &v }

func TestCreateAndUpdateClient(t *testing.T) {
	_, svc, actor := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateClient(ctx, actor, CreateClientInput{
		Name:  "  Ana Lopez ",
		Email: strPtr(" Ana@Example.COM "),
		Phone: strPtr(" "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lopez", created.Name)
	require.NotNil(t, created.Email)
	assert.Equal(t, "ana@example.com", *created.Email)
	assert.Nil(t, created.Phone)

	_, err = svc.CreateClient(ctx, actor, CreateClientInput{Name: "   "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	updated, err := svc.UpdateClient(ctx, actor, created.ID, UpdateClientInput{Phone: strPtr("+52 55 1234 5678")})
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+52 55 1234 5678", *updated.Phone)
	assert.Equal(t, "Ana Lopez", updated.Name)

	_, err = svc.UpdateClient(ctx, actor, created.ID, UpdateClientInput{Name: strPtr("")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	other := actor
	other.TenantID = uuid.New()
	_, err = svc.GetClient(ctx, other.TenantID, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.UpdateClient(ctx, other, created.ID, UpdateClientInput{Name: strPtr("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListClientsSearchAndPaging(t *testing.T) {
	_, svc, actor := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"Maria Perez", "Mario Ruiz", "Jorge Diaz"} {
		_, err := svc.CreateClient(ctx, actor, CreateClientInput{Name: name})
		require.NoError(t, err)
	}

	page, err := svc.ListClients(ctx, actor.TenantID, "MARI", pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	first, err := svc.ListClients(ctx, actor.TenantID, "", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListClients(ctx, actor.TenantID, "", pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)
}

func TestDeleteClientWithOrders(t *testing.T) {
	conn, svc, actor := newTestService(t)
	ctx := context.Background()
	idle := testutil.SeedClient(t, conn, actor.TenantID)
	busy := testutil.SeedClient(t, conn, actor.TenantID)
	require.NoError(t, conn.Create(&models.Order{TenantID: actor.TenantID, ClientID: busy.ID, Status: enums.OrderStatusDraft, Source: enums.OrderSourceBackOffice}).Error)

	require.NoError(t, svc.DeleteClient(ctx, actor, idle.ID))
	err := svc.DeleteClient(ctx, actor, busy.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	err = svc.DeleteClient(ctx, actor, idle.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSummaryBalance(t *testing.T) {
	conn, svc, actor := newTestService(t)
	ctx := context.Background()
	client := testutil.SeedClient(t, conn, actor.TenantID)

	orders := []*models.Order{
		{TenantID: actor.TenantID, ClientID: client.ID, Status: enums.OrderStatusDelivered, Source: enums.OrderSourceBackOffice, TotalPriceCents: 50000},
		{TenantID: actor.TenantID, ClientID: client.ID, Status: enums.OrderStatusReserved, Source: enums.OrderSourceBackOffice, TotalPriceCents: 12000},
		{TenantID: actor.TenantID, ClientID: client.ID, Status: enums.OrderStatusCanceled, Source: enums.OrderSourceBackOffice, TotalPriceCents: 99900},
		{TenantID: actor.TenantID, ClientID: client.ID, Status: enums.OrderStatusDraft, Source: enums.OrderSourceBackOffice, TotalPriceCents: 700},
	}
	for _, o := range orders {
		require.NoError(t, conn.Create(o).Error)
	}
	require.NoError(t, conn.Create(&models.Payment{TenantID: actor.TenantID, OrderID: orders[0].ID, AmountCents: 20000, Method: enums.PaymentMethodCash, PaidAt: orders[0].CreatedAt}).Error)
	require.NoError(t, conn.Create(&models.Return{
		TenantID: actor.TenantID, OrderID: orders[0].ID, OrderItemID: uuid.New(), ProductID: uuid.New(),
		Quantity: 1, Reason: enums.ReturnReasonDefective, RefundCents: 5000,
	}).Error)

	summary, err := svc.Summary(ctx, actor.TenantID, client.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, summary.OrderCount)
	assert.EqualValues(t, 62000, summary.BilledCents)
	assert.EqualValues(t, 20000, summary.PaidCents)
	assert.EqualValues(t, 5000, summary.RefundedCents)
	assert.EqualValues(t, 37000, summary.BalanceCents)
	assert.Equal(t, "370.00", summary.Balance)

	_, err = svc.Summary(ctx, actor.TenantID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
