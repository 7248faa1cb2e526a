package enums

import "fmt"

// OrderSource records which surface created an order.
type OrderSource string

const (
	OrderSourceBackOffice OrderSource = "back_office"
	OrderSourcePortal     OrderSource = "portal"
	OrderSourceDeal       OrderSource = "deal"
)

var validOrderSources = []OrderSource{
	OrderSourceBackOffice,
	OrderSourcePortal,
	OrderSourceDeal,
}

// String implements fmt.Stringer.
func (s OrderSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderSource.
func (s OrderSource) IsValid() bool {
	for _, candidate := range validOrderSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderSource converts raw input into a OrderSource.
func ParseOrderSource(value string) (OrderSource, error) {
	for _, candidate := range validOrderSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order source %q", value)
}
