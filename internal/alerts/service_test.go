package alerts

import (
	"context"
	"testing"

	"github.com/angelmondragon/stockdesk-backend/internal/testutil"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:             NewRepository(conn),
		DB:               db.FromGorm(conn),
		Outbox:           outbox.NewService(outbox.NewRepository(conn), nil),
		DefaultThreshold: 3,
	})
	require.NoError(t, err)
	return svc
}

func evaluate(t *testing.T, conn *gorm.DB, svc Service, tenant uuid.UUID, ids ...uuid.UUID) {
	t.Helper()
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Evaluate(context.Background(), tx, tenant, ids)
	}))
}

func activeAlerts(t *testing.T, conn *gorm.DB, productID uuid.UUID) []models.Alert {
	t.Helper()
	var rows []models.Alert
	require.NoError(t, conn.Where("product_id = ? AND status <> ?", productID, enums.AlertStatusResolved).Find(&rows).Error)
	return rows
}

func setStock(t *testing.T, conn *gorm.DB, productID uuid.UUID, total, reserved int) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", productID).
		Updates(map[string]any{"total_stock": total, "reserved_stock": reserved}).Error)
}

func TestEvaluateOpensEscalatesAndResolves(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	tenant := uuid.New()
	product := testutil.SeedProduct(t, conn, tenant, testutil.ProductOpts{Total: 10, Threshold: 4})

	evaluate(t, conn, svc, tenant, product.ID)
	assert.Empty(t, activeAlerts(t, conn, product.ID))

	setStock(t, conn, product.ID, 10, 7)
	evaluate(t, conn, svc, tenant, product.ID)
	rows := activeAlerts(t, conn, product.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.AlertTypeLowStock, rows[0].Type)
	assert.Equal(t, 3, rows[0].AvailableStock)
	assert.Equal(t, 4, rows[0].Threshold)

	setStock(t, conn, product.ID, 10, 10)
	evaluate(t, conn, svc, tenant, product.ID)
	rows = activeAlerts(t, conn, product.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.AlertTypeOutOfStock, rows[0].Type)

	setStock(t, conn, product.ID, 20, 0)
	evaluate(t, conn, svc, tenant, product.ID)
	assert.Empty(t, activeAlerts(t, conn, product.ID))

	var events []models.OutboxEvent
	require.NoError(t, conn.Order("created_at").Find(&events).Error)
	types := make([]enums.OutboxEventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.ElementsMatch(t, []enums.OutboxEventType{
		enums.EventAlertOpened, enums.EventAlertResolved, enums.EventAlertOpened, enums.EventAlertResolved,
	}, types)
}

func TestEvaluateUsesDefaultThreshold(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	tenant := uuid.New()
	product := testutil.SeedProduct(t, conn, tenant, testutil.ProductOpts{Total: 3})

	evaluate(t, conn, svc, tenant, product.ID)
	rows := activeAlerts(t, conn, product.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Threshold)
}

func TestEvaluateIgnoresOtherTenantsAndInactiveProducts(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	tenant := uuid.New()
	foreign := testutil.SeedProduct(t, conn, uuid.New(), testutil.ProductOpts{Total: 0})
	inactive := testutil.SeedProduct(t, conn, tenant, testutil.ProductOpts{Total: 0, Inactive: true})

	evaluate(t, conn, svc, tenant, foreign.ID, inactive.ID)
	assert.Empty(t, activeAlerts(t, conn, foreign.ID))
	assert.Empty(t, activeAlerts(t, conn, inactive.ID))
}

func TestAcknowledge(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	tenant := uuid.New()
	product := testutil.SeedProduct(t, conn, tenant, testutil.ProductOpts{Total: 0})
	evaluate(t, conn, svc, tenant, product.ID)
	alert := activeAlerts(t, conn, product.ID)[0]

	actor := auth.Actor{UserID: uuid.New(), TenantID: tenant, Role: enums.RoleStaff}
	dto, err := svc.Acknowledge(context.Background(), actor, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AlertStatusAcknowledged, dto.Status)
	require.NotNil(t, dto.AcknowledgedBy)
	assert.Equal(t, actor.UserID, *dto.AcknowledgedBy)

	// still active, so a second evaluation does not open a duplicate
	evaluate(t, conn, svc, tenant, product.ID)
	assert.Len(t, activeAlerts(t, conn, product.ID), 1)

	_, err = svc.Acknowledge(context.Background(), auth.Actor{TenantID: uuid.New()}, alert.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	setStock(t, conn, product.ID, 10, 0)
	evaluate(t, conn, svc, tenant, product.ID)
	_, err = svc.Acknowledge(context.Background(), actor, alert.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListAlertsPaginates(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	tenant := uuid.New()
	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		ids = append(ids, testutil.SeedProduct(t, conn, tenant, testutil.ProductOpts{Total: 0}).ID)
	}
	evaluate(t, conn, svc, tenant, ids...)

	open := enums.AlertStatusOpen
	page, err := svc.ListAlerts(context.Background(), tenant, ListInput{Status: &open, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.ListAlerts(context.Background(), tenant, ListInput{Status: &open, Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)

	bad := enums.AlertStatus("nope")
	_, err = svc.ListAlerts(context.Background(), tenant, ListInput{Status: &bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestScanAll(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	testutil.SeedProduct(t, conn, uuid.New(), testutil.ProductOpts{Total: 0})
	testutil.SeedProduct(t, conn, uuid.New(), testutil.ProductOpts{Total: 50})

	result, err := svc.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Tenants)
	assert.Equal(t, 2, result.Products)
	assert.Equal(t, 1, result.Opened)

	again, err := svc.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Opened)
}
