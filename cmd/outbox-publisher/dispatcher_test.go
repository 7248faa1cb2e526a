package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/config"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
	"github.com/angelmondragon/stockdesk-backend/pkg/metrics"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox/registry"
	"github.com/angelmondragon/stockdesk-backend/pkg/pubsub"
)

type memoryRows struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	retried   []uuid.UUID
	terminal  []uuid.UUID
	failMark  error
}

func (m *memoryRows) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

func (m *memoryRows) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if m.failMark != nil {
		return m.failMark
	}
	m.published = append(m.published, id)
	return nil
}

func (m *memoryRows) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.retried = append(m.retried, id)
	return nil
}

func (m *memoryRows) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	m.terminal = append(m.terminal, id)
	return nil
}

type parked struct {
	row    models.OutboxEvent
	reason enums.OutboxDLQErrorReason
	cause  error
}

type memoryDeadLetters struct {
	entries []parked
}

func (m *memoryDeadLetters) Park(_ *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, _ time.Time) error {
	m.entries = append(m.entries, parked{row: row, reason: reason, cause: cause})
	return nil
}

type passthroughDB struct{}

func (passthroughDB) Ping(context.Context) error { return nil }

func (passthroughDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type topicSender struct {
	outcomes map[uuid.UUID]error
	topics   []string
	messages []*gcppubsub.Message
}

func (s *topicSender) Ping(context.Context) error { return nil }

func (s *topicSender) Send(_ context.Context, topic string, msg *gcppubsub.Message) error {
	s.topics = append(s.topics, topic)
	s.messages = append(s.messages, msg)
	id, _ := uuid.Parse(msg.Attributes["aggregate_id"])
	return s.outcomes[id]
}

func envelopeFor(t *testing.T, actor *outbox.ActorRef) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Actor:      actor,
		Data:       json.RawMessage(`{"orderId":"` + uuid.NewString() + `"}`),
	})
	require.NoError(t, err)
	return raw
}

func orderRow(t *testing.T, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, nil),
		AttemptCount:  attempts,
	}
}

type harness struct {
	rows    *memoryRows
	letters *memoryDeadLetters
	sender  *topicSender
	reg     *prometheus.Registry
	d       *Dispatcher
}

func newHarness(t *testing.T, maxAttempts int, rows ...models.OutboxEvent) *harness {
	t.Helper()
	eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{EventTopic: "stockdesk-events", AlertTopic: "stock-alerts"})
	require.NoError(t, err)

	h := &harness{
		rows:    &memoryRows{pending: rows},
		letters: &memoryDeadLetters{},
		sender:  &topicSender{outcomes: map[uuid.UUID]error{}},
		reg:     prometheus.NewRegistry(),
	}
	h.d, err = NewDispatcher(DispatcherParams{
		Config:      config.OutboxConfig{BatchSize: 10, PollIntervalMS: 5, MaxAttempts: maxAttempts},
		Logger:      logger.Nop(),
		DB:          passthroughDB{},
		Rows:        h.rows,
		DeadLetters: h.letters,
		Registry:    eventRegistry,
		Sender:      h.sender,
		Metrics:     metrics.NewOutboxMetrics(h.reg),
	})
	require.NoError(t, err)
	return h
}

func (h *harness) dispatched(t *testing.T, result string) float64 {
	t.Helper()
	families, err := h.reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != "stockdesk_outbox_dispatch_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					total += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func TestDrainRetriesTransientFailureAndPublishesRest(t *testing.T) {
	first := orderRow(t, 0)
	second := orderRow(t, 0)
	h := newHarness(t, 5, first, second)
	h.sender.outcomes[first.AggregateID] = errors.New("deadline exceeded")

	claimed, err := h.d.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, claimed)
	assert.Equal(t, []uuid.UUID{first.ID}, h.rows.retried)
	assert.Equal(t, []uuid.UUID{second.ID}, h.rows.published)
	assert.Empty(t, h.letters.entries)
	assert.Equal(t, float64(1), h.dispatched(t, metrics.DispatchRetry))
	assert.Equal(t, float64(1), h.dispatched(t, metrics.DispatchPublished))
}

func TestDrainRoutesByEventTypeAndCopiesAttributes(t *testing.T) {
	actor := &outbox.ActorRef{UserID: uuid.New(), TenantID: uuid.New(), Role: "system"}
	alert := models.OutboxEvent{
		ID:            uuid.New(),
		TenantID:      actor.TenantID,
		EventType:     enums.EventAlertOpened,
		AggregateType: enums.AggregateAlert,
		AggregateID:   uuid.New(),
		Payload:       envelopeFor(t, actor),
	}
	order := orderRow(t, 0)
	h := newHarness(t, 5, alert, order)

	_, err := h.d.drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"stock-alerts", "stockdesk-events"}, h.sender.topics)
	msg := h.sender.messages[0]
	assert.Equal(t, alert.TenantID.String(), msg.Attributes["tenant_id"])
	assert.Equal(t, string(enums.EventAlertOpened), msg.Attributes["event_type"])
	assert.Equal(t, "system", msg.Attributes["actor_role"])
	assert.Equal(t, "2026-03-01T12:00:00Z", msg.Attributes["occurred_at"])
	assert.Equal(t, alert.AggregateID.String(), msg.OrderingKey)
	assert.JSONEq(t, string(alert.Payload), string(msg.Data))

	_, hasRole := h.sender.messages[1].Attributes["actor_role"]
	assert.False(t, hasRole)
}

func TestDrainDeadLettersUndecodableRows(t *testing.T) {
	broken := orderRow(t, 0)
	broken.Payload = json.RawMessage(`{"version":1,"data":null}`)
	unknown := orderRow(t, 0)
	unknown.EventType = enums.OutboxEventType("order_teleported")
	h := newHarness(t, 5, broken, unknown)

	_, err := h.d.drain(context.Background())
	require.NoError(t, err)

	require.Len(t, h.letters.entries, 2)
	for _, entry := range h.letters.entries {
		assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.reason)
	}
	assert.ElementsMatch(t, []uuid.UUID{broken.ID, unknown.ID}, h.rows.terminal)
	assert.Empty(t, h.sender.messages)
	assert.Equal(t, float64(2), h.dispatched(t, metrics.DispatchDeadLettered))
}

func TestDrainDeadLettersOnLastAttempt(t *testing.T) {
	row := orderRow(t, 2)
	h := newHarness(t, 3, row)
	h.sender.outcomes[row.AggregateID] = errors.New("unavailable")

	_, err := h.d.drain(context.Background())
	require.NoError(t, err)

	require.Len(t, h.letters.entries, 1)
	entry := h.letters.entries[0]
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, entry.reason)
	assert.Equal(t, row.ID, entry.row.ID)
	assert.Contains(t, entry.cause.Error(), "3 attempts")
	assert.Empty(t, h.rows.retried)
}

func TestDrainDeadLettersUnknownTopic(t *testing.T) {
	row := orderRow(t, 0)
	h := newHarness(t, 5, row)
	h.sender.outcomes[row.AggregateID] = fmt.Errorf("%w: %q", pubsub.ErrUnknownTopic, "stockdesk-events")

	_, err := h.d.drain(context.Background())
	require.NoError(t, err)

	require.Len(t, h.letters.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonUnroutable, h.letters.entries[0].reason)
}

func TestDrainAbortsOnStorageFailure(t *testing.T) {
	row := orderRow(t, 0)
	h := newHarness(t, 5, row)
	h.rows.failMark = errors.New("connection reset")

	_, err := h.d.drain(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), row.ID.String())
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	h := newHarness(t, 5)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := h.d.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewDispatcherRequiresCollaborators(t *testing.T) {
	_, err := NewDispatcher(DispatcherParams{Logger: logger.Nop()})
	assert.Error(t, err)

	h := newHarness(t, 0)
	assert.Equal(t, 10, h.d.maxAttempts)
	assert.Equal(t, 5*time.Millisecond, h.d.poll)
}
