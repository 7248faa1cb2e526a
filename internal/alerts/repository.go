package alerts

import (
	"context"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ProductsForTenant loads the given products, ignoring ids from other tenants.
func (r *Repository) ProductsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&products).Error
	return products, err
}

// ActiveByProduct returns the unresolved alert of each product, keyed by product id.
func (r *Repository) ActiveByProduct(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]models.Alert, error) {
	var rows []models.Alert
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id IN ? AND status <> ?", tenantID, productIDs, enums.AlertStatusResolved).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Alert, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *Repository) Save(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}

func (r *Repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.WithContext(ctx).First(&alert, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

type listQuery struct {
	TenantID uuid.UUID
	Status   *enums.AlertStatus
	Type     *enums.AlertType
	Cursor   *pagination.Cursor
	Limit    int
}

func (r *Repository) List(ctx context.Context, q listQuery) ([]models.Alert, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("tenant_id = ?", q.TenantID).
		Scopes(pagination.Seek("alerts", q.Cursor))
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.Type != nil {
		query = query.Where("type = ?", *q.Type)
	}

	var rows []models.Alert
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	return rows, err
}

// TenantIDs lists every tenant that owns at least one product.
func (r *Repository) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error
	return ids, err
}

// ProductIDs lists the ids of every product of a tenant.
func (r *Repository) ProductIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("tenant_id = ?", tenantID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}
