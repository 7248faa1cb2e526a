package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
)

// Order is a client order. TotalPriceCents always equals the sum of its
// items' line totals.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TenantID        uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	ClientID        uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	DealID          *uuid.UUID        `gorm:"column:deal_id;type:uuid"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'draft'"`
	Source          enums.OrderSource `gorm:"column:source;type:order_source;not null;default:'back_office'"`
	TotalPriceCents int               `gorm:"column:total_price_cents;not null;default:0"`
	Notes           *string           `gorm:"column:notes"`
	CreatedBy       *uuid.UUID        `gorm:"column:created_by;type:uuid"`
	StatusChangedAt time.Time         `gorm:"column:status_changed_at;not null"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	if o.StatusChangedAt.IsZero() {
		o.StatusChangedAt = time.Now().UTC()
	}
	return nil
}
