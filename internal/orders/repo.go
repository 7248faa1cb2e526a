package orders

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

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC").Order("id ASC") }).
		Where("id = ? AND tenant_id = ?", orderID, tenantID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id = ? AND tenant_id = ?", orderID, tenantID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ?", tenantID).
		Scopes(pagination.Seek("orders", cursor))
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.ClientID != nil {
		q = q.Where("client_id = ?", *filters.ClientID)
	}
	if filters.DealID != nil {
		q = q.Where("deal_id = ?", *filters.DealID)
	}

	var rows []models.Order
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) UpdateTotal(ctx context.Context, orderID uuid.UUID, totalCents int) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("total_price_cents", totalCents).Error
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":            status,
			"status_changed_at": at,
		}).Error
}

func (r *repository) CreateHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// Delete removes the order with its lines and history.
func (r *repository) Delete(ctx context.Context, orderID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("order_id = ?", orderID).Delete(&models.OrderStatusHistory{}).Error; err != nil {
		return err
	}
	if err := conn.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return conn.Delete(&models.Order{}, "id = ?", orderID).Error
}

func (r *repository) FindProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, productIDs).
		Find(&products).Error
	return products, err
}

func (r *repository) ClientExists(ctx context.Context, tenantID, clientID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("id = ? AND tenant_id = ?", clientID, tenantID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Totals(ctx context.Context, orderID uuid.UUID) (Totals, error) {
	var totals Totals
	conn := r.db.WithContext(ctx)

	var paid struct {
		Count int64
		Sum   int64
	}
	if err := conn.Model(&models.Payment{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS sum").
		Where("order_id = ?", orderID).
		Scan(&paid).Error; err != nil {
		return totals, err
	}
	var refunded struct {
		Count int64
		Sum   int64
	}
	if err := conn.Model(&models.Return{}).
		Select("COUNT(*) AS count, COALESCE(SUM(refund_cents), 0) AS sum").
		Where("order_id = ?", orderID).
		Scan(&refunded).Error; err != nil {
		return totals, err
	}

	totals.PaidCents = paid.Sum
	totals.PaymentCount = paid.Count
	totals.RefundedCents = refunded.Sum
	totals.ReturnCount = refunded.Count
	return totals, nil
}
