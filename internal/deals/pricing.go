package deals

import (
	"sort"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TierInput is a requested quantity breakpoint.
type TierInput struct {
	MinQuantity    int `json:"min_quantity"`
	UnitPriceCents int `json:"unit_price_cents"`
}

// Quote is the price of buying quantity units of a deal.
type Quote struct {
	DealID          uuid.UUID       `json:"deal_id"`
	Quantity        int             `json:"quantity"`
	BasePriceCents  int             `json:"base_price_cents"`
	UnitPriceCents  int             `json:"unit_price_cents"`
	UnitPrice       string          `json:"unit_price"`
	TotalCents      int             `json:"total_cents"`
	Total           string          `json:"total"`
	SavingsCents    int             `json:"savings_cents"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TierMinQuantity *int            `json:"tier_min_quantity,omitempty"`
}

// ValidateTiers enforces strictly ascending breakpoints whose prices never
// go up and never exceed the base price.
func ValidateTiers(basePriceCents int, tiers []TierInput) error {
	prevMin, prevPrice := 0, basePriceCents
	for i, tier := range tiers {
		if tier.MinQuantity < 1 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "tiers[%d].min_quantity must be at least 1", i)
		}
		if tier.UnitPriceCents < 1 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "tiers[%d].unit_price_cents must be positive", i)
		}
		if tier.MinQuantity <= prevMin {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "tiers[%d].min_quantity must be greater than the previous tier", i)
		}
		if tier.UnitPriceCents > prevPrice {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "tiers[%d].unit_price_cents must not exceed the previous tier or base price", i)
		}
		prevMin, prevPrice = tier.MinQuantity, tier.UnitPriceCents
	}
	return nil
}

// TierFor returns the tier with the largest min_quantity not above qty.
func TierFor(tiers []models.DealTier, qty int) *models.DealTier {
	sorted := append([]models.DealTier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinQuantity < sorted[j].MinQuantity })

	var match *models.DealTier
	for i := range sorted {
		if sorted[i].MinQuantity > qty {
			break
		}
		match = &sorted[i]
	}
	return match
}

// PriceQuote prices qty units of the deal. Without a matching tier the base
// price applies.
func PriceQuote(deal *models.Deal, qty int) (Quote, error) {
	if qty <= 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	unit := deal.BasePriceCents
	var tierMin *int
	if tier := TierFor(deal.Tiers, qty); tier != nil {
		unit = tier.UnitPriceCents
		minQty := tier.MinQuantity
		tierMin = &minQty
	}
	total := unit * qty
	return Quote{
		DealID:          deal.ID,
		Quantity:        qty,
		BasePriceCents:  deal.BasePriceCents,
		UnitPriceCents:  unit,
		UnitPrice:       money.FormatCents(unit),
		TotalCents:      total,
		Total:           money.FormatCents(total),
		SavingsCents:    deal.BasePriceCents*qty - total,
		DiscountPercent: money.DiscountPercent(deal.BasePriceCents, unit),
		TierMinQuantity: tierMin,
	}, nil
}
