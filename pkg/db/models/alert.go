package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
)

// Alert flags a product whose available stock dropped to or below its threshold.
type Alert struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TenantID       uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	Type           enums.AlertType   `gorm:"column:type;type:alert_type;not null"`
	Status         enums.AlertStatus `gorm:"column:status;type:alert_status;not null;default:'open'"`
	Message        string            `gorm:"column:message;not null"`
	AvailableStock int               `gorm:"column:available_stock;not null"`
	Threshold      int               `gorm:"column:threshold;not null"`
	AcknowledgedBy *uuid.UUID        `gorm:"column:acknowledged_by;type:uuid"`
	AcknowledgedAt *time.Time        `gorm:"column:acknowledged_at"`
	ResolvedAt     *time.Time        `gorm:"column:resolved_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Alert) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
