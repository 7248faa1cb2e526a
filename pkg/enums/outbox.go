package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateProduct OutboxAggregateType = "product"
	AggregateDeal    OutboxAggregateType = "deal"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateReturn  OutboxAggregateType = "return"
	AggregateAlert   OutboxAggregateType = "alert"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateProduct,
	AggregateDeal,
	AggregatePayment,
	AggregateReturn,
	AggregateAlert,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderItemsReplaced OutboxEventType = "order_items_replaced"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderDeleted       OutboxEventType = "order_deleted"
	EventStockAdjusted      OutboxEventType = "stock_adjusted"
	EventPaymentRecorded    OutboxEventType = "payment_recorded"
	EventPaymentDeleted     OutboxEventType = "payment_deleted"
	EventReturnCreated      OutboxEventType = "return_created"
	EventDealClaimed        OutboxEventType = "deal_claimed"
	EventDealStatusChanged  OutboxEventType = "deal_status_changed"
	EventAlertOpened        OutboxEventType = "alert_opened"
	EventAlertResolved      OutboxEventType = "alert_resolved"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderItemsReplaced,
	EventOrderStatusChanged,
	EventOrderDeleted,
	EventStockAdjusted,
	EventPaymentRecorded,
	EventPaymentDeleted,
	EventReturnCreated,
	EventDealClaimed,
	EventDealStatusChanged,
	EventAlertOpened,
	EventAlertResolved,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
