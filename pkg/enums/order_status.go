package enums

import "fmt"

// OrderStatus tracks where an order sits in the fulfilment lifecycle.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusReserved  OrderStatus = "reserved"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusReserved,
	OrderStatusDelivered,
	OrderStatusClosed,
	OrderStatusCanceled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusClosed
}

// AcceptsPayments reports whether payments may be recorded against the order.
func (s OrderStatus) AcceptsPayments() bool {
	return s == OrderStatusReserved || s == OrderStatusDelivered || s == OrderStatusClosed
}

// HasConsumedStock reports whether the order's units have left total stock.
func (s OrderStatus) HasConsumedStock() bool {
	return s == OrderStatusDelivered || s == OrderStatusClosed
}
