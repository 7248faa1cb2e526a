package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
)

// Return records delivered units coming back from a client.
type Return struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID uuid.UUID          `gorm:"column:order_item_id;type:uuid;not null;index"`
	ProductID   uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	Quantity    int                `gorm:"column:quantity;not null"`
	Reason      enums.ReturnReason `gorm:"column:reason;type:return_reason;not null"`
	Restocked   bool               `gorm:"column:restocked;not null;default:false"`
	RefundCents int                `gorm:"column:refund_cents;not null;default:0"`
	Note        *string            `gorm:"column:note"`
	CreatedBy   *uuid.UUID         `gorm:"column:created_by;type:uuid"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (r *Return) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
