package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
)

// Deal is a limited quantity offer on a product with quantity based tiers.
type Deal struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index"`
	ProductID         uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Title             string           `gorm:"column:title;not null"`
	Description       *string          `gorm:"column:description"`
	BasePriceCents    int              `gorm:"column:base_price_cents;not null"`
	QuantityTotal     int              `gorm:"column:quantity_total;not null"`
	QuantityRemaining int              `gorm:"column:quantity_remaining;not null"`
	Status            enums.DealStatus `gorm:"column:status;type:deal_status;not null;default:'draft'"`
	StartsAt          *time.Time       `gorm:"column:starts_at"`
	EndsAt            *time.Time       `gorm:"column:ends_at"`
	Tiers             []DealTier       `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Deal) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// DealTier is a quantity breakpoint: claims of at least MinQuantity units pay
// UnitPriceCents per unit.
type DealTier struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DealID         uuid.UUID `gorm:"column:deal_id;type:uuid;not null;index"`
	MinQuantity    int       `gorm:"column:min_quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (t *DealTier) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}
