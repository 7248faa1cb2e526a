package deals

import (
	"context"
	"time"

	"github.com/angelmondragon/stockdesk-backend/pkg/db"
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

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

func tiersAscending(q *gorm.DB) *gorm.DB {
	return q.Order("min_quantity ASC")
}

func (r *Repository) FindByID(ctx context.Context, tenantID, dealID uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Preload("Tiers", tiersAscending).
		Where("id = ? AND tenant_id = ?", dealID, tenantID).
		First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, tenantID, dealID uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id = ? AND tenant_id = ?", dealID, tenantID).
		First(&deal).Error
	if err != nil {
		return nil, err
	}
	var tiers []models.DealTier
	if err := tiersAscending(r.db.WithContext(ctx)).Where("deal_id = ?", deal.ID).Find(&tiers).Error; err != nil {
		return nil, err
	}
	deal.Tiers = tiers
	return &deal, nil
}

func (r *Repository) ProductExists(ctx context.Context, tenantID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", productID, tenantID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, status *enums.DealStatus, productID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Deal, error) {
	q := r.db.WithContext(ctx).
		Preload("Tiers", tiersAscending).
		Where("tenant_id = ?", tenantID).
		Scopes(pagination.Seek("deals", cursor))
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if productID != nil {
		q = q.Where("product_id = ?", *productID)
	}
	var rows []models.Deal
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

// TransitionStatus moves a deal between statuses only if it is still in one
// of the expected source statuses. It reports whether a row changed.
func (r *Repository) TransitionStatus(ctx context.Context, dealID uuid.UUID, from []enums.DealStatus, to enums.DealStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ? AND status IN ?", dealID, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

// Decrement takes qty units off an active deal. Zero rows means the deal ran
// out or is no longer active.
func (r *Repository) Decrement(ctx context.Context, dealID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ? AND status = ? AND quantity_remaining >= ?", dealID, enums.DealStatusActive, qty).
		Update("quantity_remaining", gorm.Expr("quantity_remaining - ?", qty))
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) Remaining(ctx context.Context, dealID uuid.UUID) (int, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).Select("quantity_remaining").Where("id = ?", dealID).Take(&deal).Error
	return deal.QuantityRemaining, err
}

// DueForExpiry lists active deals of every tenant whose window has closed.
func (r *Repository) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.Deal, error) {
	var rows []models.Deal
	err := r.db.WithContext(ctx).
		Where("status = ? AND ends_at IS NOT NULL AND ends_at <= ?", enums.DealStatusActive, now).
		Order("ends_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
