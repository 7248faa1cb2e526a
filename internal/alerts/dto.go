package alerts

import (
	"time"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/google/uuid"
)

type AlertDTO struct {
	ID             uuid.UUID         `json:"id"`
	ProductID      uuid.UUID         `json:"product_id"`
	Type           enums.AlertType   `json:"type"`
	Status         enums.AlertStatus `json:"status"`
	Message        string            `json:"message"`
	AvailableStock int               `json:"available_stock"`
	Threshold      int               `json:"threshold"`
	AcknowledgedBy *uuid.UUID        `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func NewAlertDTO(a models.Alert) AlertDTO {
	return AlertDTO{
		ID:             a.ID,
		ProductID:      a.ProductID,
		Type:           a.Type,
		Status:         a.Status,
		Message:        a.Message,
		AvailableStock: a.AvailableStock,
		Threshold:      a.Threshold,
		AcknowledgedBy: a.AcknowledgedBy,
		AcknowledgedAt: a.AcknowledgedAt,
		ResolvedAt:     a.ResolvedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// ListInput filters the alert list.
type ListInput struct {
	Status *enums.AlertStatus
	Type   *enums.AlertType
	Limit  int
	Cursor string
}

// ScanResult summarises a full re-evaluation pass.
type ScanResult struct {
	Tenants  int
	Products int
	Opened   int
	Resolved int
}
