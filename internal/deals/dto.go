package deals

import (
	"time"

	"github.com/angelmondragon/stockdesk-backend/internal/orders"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/money"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateDealInput struct {
	ProductID      uuid.UUID
	Title          string
	Description    *string
	BasePriceCents int
	QuantityTotal  int
	Tiers          []TierInput
	StartsAt       *time.Time
	EndsAt         *time.Time
	Activate       bool
}

type ListDealsInput struct {
	Status     *enums.DealStatus
	ProductID  *uuid.UUID
	Pagination pagination.Params
}

// ClaimInput is a request for deal units. ClientID is taken from the caller
// on the portal and is required from back-office callers.
type ClaimInput struct {
	ClientID *uuid.UUID
	Quantity int
	Notes    *string
}

type TierDTO struct {
	MinQuantity     int             `json:"min_quantity"`
	UnitPriceCents  int             `json:"unit_price_cents"`
	UnitPrice       string          `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type DealDTO struct {
	ID                uuid.UUID        `json:"id"`
	ProductID         uuid.UUID        `json:"product_id"`
	Title             string           `json:"title"`
	Description       *string          `json:"description,omitempty"`
	BasePriceCents    int              `json:"base_price_cents"`
	BasePrice         string           `json:"base_price"`
	QuantityTotal     int              `json:"quantity_total"`
	QuantityRemaining int              `json:"quantity_remaining"`
	Status            enums.DealStatus `json:"status"`
	StartsAt          *time.Time       `json:"starts_at,omitempty"`
	EndsAt            *time.Time       `json:"ends_at,omitempty"`
	Tiers             []TierDTO        `json:"tiers"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ClaimResult bundles the claimed deal state, the price paid and the draft
// order that holds the units.
type ClaimResult struct {
	Deal  DealDTO         `json:"deal"`
	Quote Quote           `json:"quote"`
	Order orders.OrderDTO `json:"order"`
}

func NewDealDTO(deal *models.Deal) *DealDTO {
	tiers := make([]TierDTO, 0, len(deal.Tiers))
	for _, tier := range deal.Tiers {
		tiers = append(tiers, TierDTO{
			MinQuantity:     tier.MinQuantity,
			UnitPriceCents:  tier.UnitPriceCents,
			UnitPrice:       money.FormatCents(tier.UnitPriceCents),
			DiscountPercent: money.DiscountPercent(deal.BasePriceCents, tier.UnitPriceCents),
		})
	}
	return &DealDTO{
		ID:                deal.ID,
		ProductID:         deal.ProductID,
		Title:             deal.Title,
		Description:       deal.Description,
		BasePriceCents:    deal.BasePriceCents,
		BasePrice:         money.FormatCents(deal.BasePriceCents),
		QuantityTotal:     deal.QuantityTotal,
		QuantityRemaining: deal.QuantityRemaining,
		Status:            deal.Status,
		StartsAt:          deal.StartsAt,
		EndsAt:            deal.EndsAt,
		Tiers:             tiers,
		CreatedAt:         deal.CreatedAt,
		UpdatedAt:         deal.UpdatedAt,
	}
}
