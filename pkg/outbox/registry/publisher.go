package registry

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockdesk-backend/pkg/config"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.EventTopic == "" {
		return nil, fmt.Errorf("event topic is required")
	}
	if cfg.AlertTopic == "" {
		return nil, fmt.Errorf("alert topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	events := cfg.EventTopic
	alerts := cfg.AlertTopic

	for _, desc := range []EventDescriptor{
		{enums.EventOrderCreated, enums.AggregateOrder, events, func() any { return &payloads.OrderCreatedEvent{} }},
		{enums.EventOrderItemsReplaced, enums.AggregateOrder, events, func() any { return &payloads.OrderItemsReplacedEvent{} }},
		{enums.EventOrderStatusChanged, enums.AggregateOrder, events, func() any { return &payloads.OrderStatusChangedEvent{} }},
		{enums.EventOrderDeleted, enums.AggregateOrder, events, func() any { return &payloads.OrderDeletedEvent{} }},
		{enums.EventStockAdjusted, enums.AggregateProduct, events, func() any { return &payloads.StockAdjustedEvent{} }},
		{enums.EventPaymentRecorded, enums.AggregatePayment, events, func() any { return &payloads.PaymentRecordedEvent{} }},
		{enums.EventPaymentDeleted, enums.AggregatePayment, events, func() any { return &payloads.PaymentDeletedEvent{} }},
		{enums.EventReturnCreated, enums.AggregateReturn, events, func() any { return &payloads.ReturnCreatedEvent{} }},
		{enums.EventDealClaimed, enums.AggregateDeal, events, func() any { return &payloads.DealClaimedEvent{} }},
		{enums.EventDealStatusChanged, enums.AggregateDeal, events, func() any { return &payloads.DealStatusChangedEvent{} }},
		{enums.EventAlertOpened, enums.AggregateAlert, alerts, func() any { return &payloads.AlertOpenedEvent{} }},
		{enums.EventAlertResolved, enums.AggregateAlert, alerts, func() any { return &payloads.AlertResolvedEvent{} }},
	} {
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Topics lists every topic the registry may publish to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	topics := []string{}
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		topics = append(topics, desc.Topic)
	}
	return topics
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
