package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
)

// Payment is money received against an order.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	AmountCents int                 `gorm:"column:amount_cents;not null"`
	Method      enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Reference   *string             `gorm:"column:reference"`
	PaidAt      time.Time           `gorm:"column:paid_at;not null"`
	RecordedBy  *uuid.UUID          `gorm:"column:recorded_by;type:uuid"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
