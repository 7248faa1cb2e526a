package enums

import "fmt"

// DealStatus tracks whether a deal can be claimed.
type DealStatus string

const (
	DealStatusDraft   DealStatus = "draft"
	DealStatusActive  DealStatus = "active"
	DealStatusSoldOut DealStatus = "sold_out"
	DealStatusExpired DealStatus = "expired"
)

var validDealStatuses = []DealStatus{
	DealStatusDraft,
	DealStatusActive,
	DealStatusSoldOut,
	DealStatusExpired,
}

// String implements fmt.Stringer.
func (s DealStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DealStatus.
func (s DealStatus) IsValid() bool {
	for _, candidate := range validDealStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDealStatus converts raw input into a DealStatus.
func ParseDealStatus(value string) (DealStatus, error) {
	for _, candidate := range validDealStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal status %q", value)
}
