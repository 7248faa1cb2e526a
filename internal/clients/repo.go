package clients

import (
	"context"
	"strings"

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

func (r *Repository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *Repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *Repository) UpdateFields(ctx context.Context, tenantID, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields).Error
}

func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Delete(&models.Client{}, "id = ?", id).Error
}

func (r *Repository) CountOrders(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, query string, cursor *pagination.Cursor, limit int) ([]models.Client, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Scopes(pagination.Seek("clients", cursor))
	if term := strings.TrimSpace(query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(COALESCE(phone, '')) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)", like, like, like)
	}
	var rows []models.Client
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

type balanceRow struct {
	OrderCount    int64
	BilledCents   int64
	PaidCents     int64
	RefundedCents int64
}

// Balance sums what the client was billed, paid and refunded across orders
// that hold or consumed stock.
func (r *Repository) Balance(ctx context.Context, tenantID, clientID uuid.UUID) (balanceRow, error) {
	billable := []enums.OrderStatus{enums.OrderStatusReserved, enums.OrderStatusDelivered, enums.OrderStatusClosed}
	var row balanceRow

	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("tenant_id = ? AND client_id = ?", tenantID, clientID).
		Count(&row.OrderCount).Error; err != nil {
		return row, err
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total_price_cents), 0)").
		Where("tenant_id = ? AND client_id = ? AND status IN ?", tenantID, clientID, billable).
		Scan(&row.BilledCents).Error; err != nil {
		return row, err
	}
	if err := r.db.WithContext(ctx).
		Table("payments").
		Select("COALESCE(SUM(payments.amount_cents), 0)").
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.tenant_id = ? AND orders.client_id = ? AND orders.status IN ?", tenantID, clientID, billable).
		Scan(&row.PaidCents).Error; err != nil {
		return row, err
	}
	if err := r.db.WithContext(ctx).
		Table("returns").
		Select("COALESCE(SUM(returns.refund_cents), 0)").
		Joins("JOIN orders ON orders.id = returns.order_id").
		Where("orders.tenant_id = ? AND orders.client_id = ? AND orders.status IN ?", tenantID, clientID, billable).
		Scan(&row.RefundedCents).Error; err != nil {
		return row, err
	}
	return row, nil
}
