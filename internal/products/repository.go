package product

import (
	"context"
	"strings"

	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a tenant's product.
func (r *Repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads the product and row-locks it for the rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&product, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpdateFields writes the catalog columns of a product. Stock counters are
// only ever changed by the inventory ledger.
func (r *Repository) UpdateFields(ctx context.Context, tenantID, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields).Error
}

// DeleteProduct removes the product row.
func (r *Repository) DeleteProduct(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Delete(&models.Product{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// CountReferences reports how many order lines and deals point at the product.
func (r *Repository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var items, deals int64
	if err := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&items).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Deal{}).Where("product_id = ?", id).Count(&deals).Error; err != nil {
		return 0, err
	}
	return items + deals, nil
}

// CreateAdjustment appends a stock adjustment row.
func (r *Repository) CreateAdjustment(ctx context.Context, adj *models.StockAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

// ListAdjustments returns the newest adjustments of a product first.
func (r *Repository) ListAdjustments(ctx context.Context, tenantID, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.StockAdjustment, error) {
	var rows []models.StockAdjustment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Scopes(pagination.Seek("stock_adjustments", cursor)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	return rows, err
}

type productListQuery struct {
	TenantID uuid.UUID
	Filters  ProductListFilters
	Cursor   *pagination.Cursor
	Limit    int
	// DefaultThreshold applies to products without a threshold of their own.
	DefaultThreshold int
}

// ListProducts returns a page of products newest first.
func (r *Repository) ListProducts(ctx context.Context, q productListQuery) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("tenant_id = ?", q.TenantID).
		Scopes(pagination.Seek("products", q.Cursor))

	if term := strings.TrimSpace(q.Filters.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("(LOWER(sku) LIKE ? OR LOWER(name) LIKE ? OR LOWER(COALESCE(brand, '')) LIKE ?)", like, like, like)
	}
	if q.Filters.Active != nil {
		query = query.Where("is_active = ?", *q.Filters.Active)
	}
	if category := strings.TrimSpace(q.Filters.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if q.Filters.LowStock {
		query = query.Where(
			"(total_stock - reserved_stock) <= CASE WHEN low_stock_threshold > 0 THEN low_stock_threshold ELSE ? END",
			q.DefaultThreshold,
		)
	}

	var rows []models.Product
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	return rows, err
}
