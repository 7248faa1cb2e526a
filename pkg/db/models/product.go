package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
)

// Product is a sellable device or accessory together with its stock counters.
// TotalStock counts units on hand; ReservedStock counts units promised to
// reserved orders and never exceeds TotalStock.
type Product struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null;index:idx_products_tenant_sku,unique"`
	SKU               string                 `gorm:"column:sku;not null;index:idx_products_tenant_sku,unique"`
	Name              string                 `gorm:"column:name;not null"`
	Brand             *string                `gorm:"column:brand"`
	Model             *string                `gorm:"column:model"`
	Category          *string                `gorm:"column:category"`
	Condition         enums.ProductCondition `gorm:"column:item_condition;type:product_condition;not null;default:'new'"`
	PriceCents        int                    `gorm:"column:price_cents;not null"`
	CostCents         *int                   `gorm:"column:cost_cents"`
	TotalStock        int                    `gorm:"column:total_stock;not null;default:0"`
	ReservedStock     int                    `gorm:"column:reserved_stock;not null;default:0"`
	LowStockThreshold int                    `gorm:"column:low_stock_threshold;not null;default:0"`
	IsActive          bool                   `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// AvailableStock is what can still be reserved or sold.
func (p Product) AvailableStock() int {
	return p.TotalStock - p.ReservedStock
}
