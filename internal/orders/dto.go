package orders

import (
	"time"

	"github.com/angelmondragon/stockdesk-backend/internal/inventory"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/money"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ListFilters narrows the orders list. Portal callers always have ClientID set.
type ListFilters struct {
	Status   *enums.OrderStatus
	ClientID *uuid.UUID
	DealID   *uuid.UUID
}

// ListOrdersInput bundles filters and cursor parameters.
type ListOrdersInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ItemInput is one requested order line. UnitPriceCents defaults to the
// product's current price.
type ItemInput struct {
	ProductID      uuid.UUID
	Quantity       int
	UnitPriceCents *int
}

type CreateOrderInput struct {
	ClientID uuid.UUID
	Items    []ItemInput
	Notes    *string
	Source   enums.OrderSource
	DealID   *uuid.UUID
}

type UpdateStatusInput struct {
	Status enums.OrderStatus
	Note   *string
}

type OrderItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	SKU            string    `json:"sku"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
}

type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	ClientID           uuid.UUID           `json:"client_id"`
	DealID             *uuid.UUID          `json:"deal_id,omitempty"`
	Status             enums.OrderStatus   `json:"status"`
	Source             enums.OrderSource   `json:"source"`
	TotalPriceCents    int                 `json:"total_price_cents"`
	TotalPrice         string              `json:"total_price"`
	Notes              *string             `json:"notes,omitempty"`
	CreatedBy          *uuid.UUID          `json:"created_by,omitempty"`
	StatusChangedAt    time.Time           `json:"status_changed_at"`
	AllowedTransitions []enums.OrderStatus `json:"allowed_transitions"`
	Items              []OrderItemDTO      `json:"items"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// SummaryDTO is the money position of a single order.
type SummaryDTO struct {
	PaidCents     int64  `json:"paid_cents"`
	RefundedCents int64  `json:"refunded_cents"`
	BalanceCents  int64  `json:"balance_cents"`
	Balance       string `json:"balance"`
}

type StatusHistoryDTO struct {
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ActorID   *uuid.UUID        `json:"actor_id,omitempty"`
	Note      *string           `json:"note,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderDetailDTO is returned by GetOrder.
type OrderDetailDTO struct {
	OrderDTO
	Summary SummaryDTO         `json:"summary"`
	History []StatusHistoryDTO `json:"history"`
}

func NewOrderDTO(order *models.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return &OrderDTO{
		ID:                 order.ID,
		ClientID:           order.ClientID,
		DealID:             order.DealID,
		Status:             order.Status,
		Source:             order.Source,
		TotalPriceCents:    order.TotalPriceCents,
		TotalPrice:         money.FormatCents(order.TotalPriceCents),
		Notes:              order.Notes,
		CreatedBy:          order.CreatedBy,
		StatusChangedAt:    order.StatusChangedAt,
		AllowedTransitions: inventory.AllowedTargets(order.Status),
		Items:              items,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}

func newSummaryDTO(totalCents int, totals Totals) SummaryDTO {
	balance := int64(totalCents) - totals.RefundedCents - totals.PaidCents
	return SummaryDTO{
		PaidCents:     totals.PaidCents,
		RefundedCents: totals.RefundedCents,
		BalanceCents:  balance,
		Balance:       money.FormatCents(int(balance)),
	}
}

func newHistoryDTOs(rows []models.OrderStatusHistory) []StatusHistoryDTO {
	out := make([]StatusHistoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, StatusHistoryDTO{
			From:      row.FromStatus,
			To:        row.ToStatus,
			ActorID:   row.ActorID,
			Note:      row.Note,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}
