package returns

import (
	"context"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
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

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, ret *models.Return) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

// ReturnedQuantity sums the units already returned for an order line.
func (r *Repository) ReturnedQuantity(ctx context.Context, orderItemID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("order_item_id = ?", orderItemID).
		Scan(&total).Error
	return total, err
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, orderID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Return, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Scopes(pagination.Seek("returns", cursor))
	if orderID != nil {
		q = q.Where("order_id = ?", *orderID)
	}
	var rows []models.Return
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}
