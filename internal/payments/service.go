package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockdesk-backend/internal/orders"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/money"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines operations that record money received against orders.
type Service interface {
	RecordPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input RecordPaymentInput) (*PaymentDTO, error)
	ListPayments(ctx context.Context, tenantID, orderID uuid.UUID) ([]PaymentDTO, error)
	DeletePayment(ctx context.Context, actor auth.Actor, orderID, paymentID uuid.UUID) error
}

// RecordPaymentInput captures a payment entry. PaidAt defaults to now.
type RecordPaymentInput struct {
	AmountCents int
	Method      enums.PaymentMethod
	Reference   *string
	PaidAt      *time.Time
}

type PaymentDTO struct {
	ID          uuid.UUID           `json:"id"`
	OrderID     uuid.UUID           `json:"order_id"`
	AmountCents int                 `json:"amount_cents"`
	Amount      string              `json:"amount"`
	Method      enums.PaymentMethod `json:"method"`
	Reference   *string             `json:"reference,omitempty"`
	PaidAt      time.Time           `json:"paid_at"`
	RecordedBy  *uuid.UUID          `json:"recorded_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func NewPaymentDTO(p *models.Payment) *PaymentDTO {
	return &PaymentDTO{
		ID:          p.ID,
		OrderID:     p.OrderID,
		AmountCents: p.AmountCents,
		Amount:      money.FormatCents(p.AmountCents),
		Method:      p.Method,
		Reference:   p.Reference,
		PaidAt:      p.PaidAt,
		RecordedBy:  p.RecordedBy,
		CreatedAt:   p.CreatedAt,
	}
}

type ServiceParams struct {
	Repo   Repository
	Orders orders.Repository
	Tx     txRunner
	Outbox outbox.Emitter
	Now    func() time.Time
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	outbox outbox.Emitter
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, orders: params.Orders, tx: params.Tx, outbox: params.Outbox, now: now}, nil
}

// RecordPayment stores a payment while the order row is locked, so two
// concurrent payments cannot both fit into the same remaining balance.
func (s *service) RecordPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input RecordPaymentInput) (*PaymentDTO, error) {
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount_cents must be positive")
	}
	if !money.FitsCents(input.AmountCents) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount_cents is too large")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	paidAt := s.now()
	if input.PaidAt != nil && !input.PaidAt.IsZero() {
		paidAt = input.PaidAt.UTC()
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByIDForUpdate(ctx, actor.TenantID, orderID)
		if err != nil {
			return orderNotFoundOr(err)
		}
		if !order.Status.AcceptsPayments() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order does not accept payments").
				WithDetails(map[string]any{"status": order.Status})
		}
		totals, err := s.orders.WithTx(tx).Totals(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum order payments")
		}
		balance := int64(order.TotalPriceCents) - totals.RefundedCents - totals.PaidCents
		if int64(input.AmountCents) > balance {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment exceeds order balance").
				WithDetails(map[string]any{"balance_cents": balance})
		}

		payment = &models.Payment{
			TenantID:    actor.TenantID,
			OrderID:     order.ID,
			AmountCents: input.AmountCents,
			Method:      input.Method,
			Reference:   trimmed(input.Reference),
			PaidAt:      paidAt,
			RecordedBy:  actor.UserRef(),
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      actor.TenantID,
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.PaymentRecordedEvent{
				PaymentID:    payment.ID,
				OrderID:      order.ID,
				AmountCents:  payment.AmountCents,
				Method:       payment.Method,
				BalanceCents: int(balance) - payment.AmountCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return NewPaymentDTO(payment), nil
}

func (s *service) ListPayments(ctx context.Context, tenantID, orderID uuid.UUID) ([]PaymentDTO, error) {
	if _, err := s.orders.FindByID(ctx, tenantID, orderID); err != nil {
		return nil, orderNotFoundOr(err)
	}
	rows, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	out := make([]PaymentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewPaymentDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) DeletePayment(ctx context.Context, actor auth.Actor, orderID, paymentID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.orders.WithTx(tx).FindByIDForUpdate(ctx, actor.TenantID, orderID); err != nil {
			return orderNotFoundOr(err)
		}
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, actor.TenantID, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.OrderID != orderID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		if err := repo.Delete(ctx, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      actor.TenantID,
			EventType:     enums.EventPaymentDeleted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.PaymentDeletedEvent{
				PaymentID:   payment.ID,
				OrderID:     orderID,
				AmountCents: payment.AmountCents,
			},
		})
	})
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func orderNotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
