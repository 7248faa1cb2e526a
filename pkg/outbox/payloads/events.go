package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
)

// StockMovement is the net counter change applied to one product.
type StockMovement struct {
	ProductID     uuid.UUID `json:"product_id"`
	TotalDelta    int       `json:"total_delta"`
	ReservedDelta int       `json:"reserved_delta"`
}

// OrderCreatedEvent is emitted when an order is first stored as draft.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID         `json:"order_id"`
	ClientID        uuid.UUID         `json:"client_id"`
	Source          enums.OrderSource `json:"source"`
	TotalPriceCents int               `json:"total_price_cents"`
	ItemCount       int               `json:"item_count"`
}

// OrderItemsReplacedEvent is emitted when a draft order's lines are rewritten.
type OrderItemsReplacedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	TotalPriceCents int       `json:"total_price_cents"`
	ItemCount       int       `json:"item_count"`
}

// OrderStatusChangedEvent carries the transition and the stock it moved.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	ClientID  uuid.UUID         `json:"client_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	Movements []StockMovement   `json:"movements"`
}

// OrderDeletedEvent is emitted when a draft or canceled order is removed.
type OrderDeletedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
}

// StockAdjustedEvent is emitted for manual stock corrections.
type StockAdjustedEvent struct {
	ProductID  uuid.UUID                   `json:"product_id"`
	Delta      int                         `json:"delta"`
	Reason     enums.StockAdjustmentReason `json:"reason"`
	TotalStock int                         `json:"total_stock"`
}

// PaymentRecordedEvent is emitted when money is received against an order.
type PaymentRecordedEvent struct {
	PaymentID    uuid.UUID           `json:"payment_id"`
	OrderID      uuid.UUID           `json:"order_id"`
	AmountCents  int                 `json:"amount_cents"`
	Method       enums.PaymentMethod `json:"method"`
	BalanceCents int                 `json:"balance_cents"`
}

// PaymentDeletedEvent is emitted when a payment entry is voided.
type PaymentDeletedEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	AmountCents int       `json:"amount_cents"`
}

// ReturnCreatedEvent is emitted when delivered units come back.
type ReturnCreatedEvent struct {
	ReturnID    uuid.UUID `json:"return_id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	Restocked   bool      `json:"restocked"`
	RefundCents int       `json:"refund_cents"`
}

// DealClaimedEvent is emitted when a client claims units of a deal.
type DealClaimedEvent struct {
	DealID            uuid.UUID `json:"deal_id"`
	OrderID           uuid.UUID `json:"order_id"`
	ClientID          uuid.UUID `json:"client_id"`
	Quantity          int       `json:"quantity"`
	UnitPriceCents    int       `json:"unit_price_cents"`
	QuantityRemaining int       `json:"quantity_remaining"`
}

// DealStatusChangedEvent is emitted on activation, expiry and sell-out.
type DealStatusChangedEvent struct {
	DealID uuid.UUID        `json:"deal_id"`
	From   enums.DealStatus `json:"from"`
	To     enums.DealStatus `json:"to"`
}

// AlertOpenedEvent is emitted when a product crosses its stock threshold.
type AlertOpenedEvent struct {
	AlertID        uuid.UUID       `json:"alert_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	Type           enums.AlertType `json:"type"`
	AvailableStock int             `json:"available_stock"`
	Threshold      int             `json:"threshold"`
}

// AlertResolvedEvent is emitted when stock recovers above the threshold.
type AlertResolvedEvent struct {
	AlertID   uuid.UUID       `json:"alert_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Type      enums.AlertType `json:"type"`
}
