package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	UpdateTotal(ctx context.Context, orderID uuid.UUID, totalCents int) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, at time.Time) error
	CreateHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
	FindProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]models.Product, error)
	ClientExists(ctx context.Context, tenantID, clientID uuid.UUID) (bool, error)
	Totals(ctx context.Context, orderID uuid.UUID) (Totals, error)
}

// Totals aggregates money received and refunded against one order.
type Totals struct {
	PaidCents     int64
	RefundedCents int64
	PaymentCount  int64
	ReturnCount   int64
}
