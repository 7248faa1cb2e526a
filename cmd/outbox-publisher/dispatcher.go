package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockdesk-backend/pkg/config"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
	"github.com/angelmondragon/stockdesk-backend/pkg/metrics"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox/registry"
	"github.com/angelmondragon/stockdesk-backend/pkg/pubsub"
)

const (
	publishTimeout = 15 * time.Second
	idleCeiling    = 10 * time.Second
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type rowStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
}

type deadLetterStore interface {
	Park(tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, at time.Time) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// sender delivers one message to a topic and waits for the broker ack.
type sender interface {
	Ping(context.Context) error
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) error
}

type DispatcherParams struct {
	Config      config.OutboxConfig
	Logger      *logger.Logger
	DB          txRunner
	Rows        rowStore
	DeadLetters deadLetterStore
	Registry    resolver
	Sender      sender
	Metrics     *metrics.OutboxMetrics
	Now         func() time.Time
}

// Dispatcher drains outbox_events to Pub/Sub. Each poll claims a batch with
// SKIP LOCKED and settles every row inside the same transaction.
type Dispatcher struct {
	logg        *logger.Logger
	db          txRunner
	rows        rowStore
	deadLetters deadLetterStore
	registry    resolver
	sender      sender
	metrics     *metrics.OutboxMetrics
	now         func() time.Time

	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Rows == nil:
		return nil, errors.New("outbox repository is required")
	case params.DeadLetters == nil:
		return nil, errors.New("dead letter repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.Sender == nil:
		return nil, errors.New("sender is required")
	}

	d := &Dispatcher{
		logg:        params.Logger,
		db:          params.DB,
		rows:        params.Rows,
		deadLetters: params.DeadLetters,
		registry:    params.Registry,
		sender:      params.Sender,
		metrics:     params.Metrics,
		now:         params.Now,
		batchSize:   orDefault(params.Config.BatchSize, 50),
		maxAttempts: orDefault(params.Config.MaxAttempts, 10),
		poll:        time.Duration(orDefault(params.Config.PollIntervalMS, 500)) * time.Millisecond,
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run polls until ctx is canceled. A full batch triggers an immediate
// re-poll; an empty one or an error waits, doubling up to idleCeiling on
// consecutive errors.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := d.sender.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	wait := d.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		handled, err := d.drain(ctx)
		switch {
		case err != nil:
			d.logg.Error(ctx, "outbox.drain.failed", err)
			wait = min(wait*2, idleCeiling)
		case handled >= d.batchSize:
			wait = d.poll
			continue
		default:
			wait = d.poll
		}

		if err := pause(ctx, wait+rand.N(wait/4+1)); err != nil {
			return err
		}
	}
}

// drain claims one batch and settles each row. It returns the number of
// rows claimed.
func (d *Dispatcher) drain(ctx context.Context) (int, error) {
	var claimed int
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := d.rows.FetchUnpublishedForPublish(tx, d.batchSize, d.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim rows: %w", err)
		}
		claimed = len(rows)
		d.metrics.ObserveBatch(claimed)

		for _, row := range rows {
			result, err := d.dispatch(ctx, tx, row)
			if err != nil {
				return err
			}
			d.metrics.ObserveDispatch(string(row.EventType), result)
		}
		return nil
	})
	return claimed, err
}

// dispatch publishes a single row and records the outcome on it. The
// returned error is a storage failure that must abort the batch.
func (d *Dispatcher) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (string, error) {
	rowCtx := d.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	resolved, err := d.registry.Resolve(row)
	if err != nil {
		return metrics.DispatchDeadLettered, d.deadLetter(rowCtx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	rowCtx = d.logg.WithField(rowCtx, "topic", resolved.Descriptor.Topic)

	sendErr := d.send(ctx, row, resolved)
	switch {
	case sendErr == nil:
		if err := d.rows.MarkPublishedTx(tx, row.ID); err != nil {
			return "", fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		d.logg.Debug(rowCtx, "outbox.published")
		return metrics.DispatchPublished, nil
	case errors.Is(sendErr, pubsub.ErrUnknownTopic):
		return metrics.DispatchDeadLettered, d.deadLetter(rowCtx, tx, row, enums.OutboxDLQReasonUnroutable, sendErr)
	case errors.As(sendErr, new(registry.NonRetryableError)):
		return metrics.DispatchDeadLettered, d.deadLetter(rowCtx, tx, row, enums.OutboxDLQReasonNonRetryable, sendErr)
	case row.AttemptCount+1 >= d.maxAttempts:
		cause := fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, sendErr)
		return metrics.DispatchDeadLettered, d.deadLetter(rowCtx, tx, row, enums.OutboxDLQReasonMaxAttempts, cause)
	}

	d.logg.Warn(d.logg.WithField(rowCtx, "error", sendErr.Error()), "outbox.publish.retry")
	if err := d.rows.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return "", fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	return metrics.DispatchRetry, nil
}

func (d *Dispatcher) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
		"reason": reason,
		"error":  cause.Error(),
	}), "outbox.dead_lettered")

	if err := d.deadLetters.Park(tx, row, reason, cause, d.now()); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	if err := d.rows.MarkTerminalTx(tx, row.ID, cause, d.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return d.sender.Send(sendCtx, resolved.Descriptor.Topic, buildMessage(row, resolved))
}

// buildMessage forwards the stored envelope untouched; attributes carry the
// routing keys subscribers filter on.
func buildMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"tenant_id":      row.TenantID.String(),
		"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if actor := resolved.Envelope.Actor; actor != nil && actor.Role != "" {
		attrs["actor_role"] = actor.Role
	}
	return &gcppubsub.Message{
		Data:        row.Payload,
		Attributes:  attrs,
		OrderingKey: row.AggregateID.String(),
	}
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
