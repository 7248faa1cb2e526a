package enums

import "fmt"

// StockAdjustmentReason labels a manual change to on-hand stock.
type StockAdjustmentReason string

const (
	StockAdjustmentReasonPurchase   StockAdjustmentReason = "purchase"
	StockAdjustmentReasonRecount    StockAdjustmentReason = "recount"
	StockAdjustmentReasonDamage     StockAdjustmentReason = "damage"
	StockAdjustmentReasonCorrection StockAdjustmentReason = "correction"
)

var validStockAdjustmentReasons = []StockAdjustmentReason{
	StockAdjustmentReasonPurchase,
	StockAdjustmentReasonRecount,
	StockAdjustmentReasonDamage,
	StockAdjustmentReasonCorrection,
}

// String implements fmt.Stringer.
func (r StockAdjustmentReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StockAdjustmentReason.
func (r StockAdjustmentReason) IsValid() bool {
	for _, candidate := range validStockAdjustmentReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStockAdjustmentReason converts raw input into a StockAdjustmentReason.
func ParseStockAdjustmentReason(value string) (StockAdjustmentReason, error) {
	for _, candidate := range validStockAdjustmentReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock adjustment reason %q", value)
}
