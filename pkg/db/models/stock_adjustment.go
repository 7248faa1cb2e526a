package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
)

// StockAdjustment records a manual change to a product's on-hand stock.
type StockAdjustment struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID                   `gorm:"column:tenant_id;type:uuid;not null"`
	ProductID   uuid.UUID                   `gorm:"column:product_id;type:uuid;not null;index"`
	Delta       int                         `gorm:"column:delta;not null"`
	Reason      enums.StockAdjustmentReason `gorm:"column:reason;type:stock_adjustment_reason;not null"`
	Note        *string                     `gorm:"column:note"`
	ActorID     *uuid.UUID                  `gorm:"column:actor_id;type:uuid"`
	StockBefore int                         `gorm:"column:stock_before;not null"`
	StockAfter  int                         `gorm:"column:stock_after;not null"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (s *StockAdjustment) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
