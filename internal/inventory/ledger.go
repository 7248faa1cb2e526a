package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shortfall describes a product that could not absorb an adjustment.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Ledger applies stock adjustments with guarded conditional updates. It must
// be called with a transaction so a partial failure rolls back every row.
type Ledger struct {
	metrics *metrics.StockMetrics
}

func NewLedger(m *metrics.StockMetrics) *Ledger {
	return &Ledger{metrics: m}
}

// ApplyTransition plans and applies the stock movement for an order changing
// status. It returns the ids of the products whose counters changed.
func (l *Ledger) ApplyTransition(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, from, to enums.OrderStatus, lines []Line) ([]uuid.UUID, error) {
	adjustments, err := Plan(from, to, lines)
	if err != nil {
		l.metrics.ObserveTransition(string(from), string(to), "rejected")
		return nil, err
	}
	touched, err := l.Apply(ctx, tx, tenantID, adjustments)
	if err != nil {
		result := "error"
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficient) {
			result = "insufficient"
		}
		l.metrics.ObserveTransition(string(from), string(to), result)
		return nil, err
	}
	l.metrics.ObserveTransition(string(from), string(to), "applied")
	return touched, nil
}

// Apply mutates product counters. Each UPDATE only matches when the new
// totals stay non-negative and reserved stays within total, so Postgres
// takes the row lock and checks the invariant in one statement.
func (l *Ledger) Apply(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, adjustments []Adjustment) ([]uuid.UUID, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	ordered := append([]Adjustment(nil), adjustments...)
	sortByProduct(ordered)

	touched := make([]uuid.UUID, 0, len(ordered))
	var shortfalls []Shortfall
	now := time.Now().UTC()

	for _, adj := range ordered {
		if adj.IsZero() {
			continue
		}
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND tenant_id = ?", adj.ProductID, tenantID).
			Where("total_stock + ? >= 0", adj.Total).
			Where("reserved_stock + ? >= 0", adj.Reserved).
			Where("(total_stock + ?) - (reserved_stock + ?) >= 0", adj.Total, adj.Reserved).
			Updates(map[string]any{
				"total_stock":    gorm.Expr("total_stock + ?", adj.Total),
				"reserved_stock": gorm.Expr("reserved_stock + ?", adj.Reserved),
				"updated_at":     now,
			})
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update product stock")
		}
		if res.RowsAffected == 0 {
			shortfall, err := diagnose(ctx, tx, tenantID, adj)
			if err != nil {
				return nil, err
			}
			shortfalls = append(shortfalls, shortfall)
			continue
		}
		touched = append(touched, adj.ProductID)
	}

	if len(shortfalls) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient stock").
			WithDetails(map[string]any{"shortfalls": shortfalls})
	}

	for _, adj := range ordered {
		l.metrics.ObserveUnits("total_stock", adj.Total)
		l.metrics.ObserveUnits("reserved_stock", adj.Reserved)
	}
	return touched, nil
}

func diagnose(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, adj Adjustment) (Shortfall, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Select("id", "sku", "total_stock", "reserved_stock").
		Where("id = ? AND tenant_id = ?", adj.ProductID, tenantID).
		Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Shortfall{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": adj.ProductID})
		}
		return Shortfall{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}
	return Shortfall{
		ProductID: product.ID,
		SKU:       product.SKU,
		Requested: adj.Quantity,
		Available: product.AvailableStock(),
	}, nil
}
