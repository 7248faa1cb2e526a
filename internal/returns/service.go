package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockdesk-backend/internal/inventory"
	"github.com/angelmondragon/stockdesk-backend/internal/orders"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/money"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service interface {
	CreateReturn(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input CreateReturnInput) (*ReturnDTO, error)
	ListReturns(ctx context.Context, tenantID uuid.UUID, input ListReturnsInput) (*pagination.Page[ReturnDTO], error)
}

type CreateReturnInput struct {
	OrderItemID uuid.UUID
	Quantity    int
	Reason      enums.ReturnReason
	Restock     bool
	RefundCents int
	Note        *string
}

// ListReturnsInput lists a tenant's returns, optionally for one order.
type ListReturnsInput struct {
	OrderID    *uuid.UUID
	Pagination pagination.Params
}

type ReturnDTO struct {
	ID          uuid.UUID          `json:"id"`
	OrderID     uuid.UUID          `json:"order_id"`
	OrderItemID uuid.UUID          `json:"order_item_id"`
	ProductID   uuid.UUID          `json:"product_id"`
	Quantity    int                `json:"quantity"`
	Reason      enums.ReturnReason `json:"reason"`
	Restocked   bool               `json:"restocked"`
	RefundCents int                `json:"refund_cents"`
	Refund      string             `json:"refund"`
	Note        *string            `json:"note,omitempty"`
	CreatedBy   *uuid.UUID         `json:"created_by,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func NewReturnDTO(r *models.Return) *ReturnDTO {
	return &ReturnDTO{
		ID:          r.ID,
		OrderID:     r.OrderID,
		OrderItemID: r.OrderItemID,
		ProductID:   r.ProductID,
		Quantity:    r.Quantity,
		Reason:      r.Reason,
		Restocked:   r.Restocked,
		RefundCents: r.RefundCents,
		Refund:      money.FormatCents(r.RefundCents),
		Note:        r.Note,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}

type alertEvaluator interface {
	Evaluate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, productIDs []uuid.UUID) error
}

type ServiceParams struct {
	Repo   *Repository
	Orders orders.Repository
	DB     *db.Client
	Ledger *inventory.Ledger
	Alerts alertEvaluator
	Outbox outbox.Emitter
}

type service struct {
	repo   *Repository
	orders orders.Repository
	db     *db.Client
	ledger *inventory.Ledger
	alerts alertEvaluator
	outbox outbox.Emitter
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("returns repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("stock ledger required")
	case params.Alerts == nil:
		return nil, fmt.Errorf("alert evaluator required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:   params.Repo,
		orders: params.Orders,
		db:     params.DB,
		ledger: params.Ledger,
		alerts: params.Alerts,
		outbox: params.Outbox,
	}, nil
}

// CreateReturn records units of a delivered line coming back. Restocked units
// go back onto total_stock in the same transaction.
func (s *service) CreateReturn(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input CreateReturnInput) (*ReturnDTO, error) {
	if input.OrderItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_item_id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return reason")
	}
	if input.RefundCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund_cents must not be negative")
	}

	var created *models.Return
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByIDForUpdate(ctx, actor.TenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.HasConsumedStock() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered or closed orders accept returns").
				WithDetails(map[string]any{"status": order.Status})
		}

		item := findItem(order.Items, input.OrderItemID)
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}

		repo := s.repo.WithTx(tx)
		returned, err := repo.ReturnedQuantity(ctx, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum returned quantity")
		}
		remaining := item.Quantity - returned
		if input.Quantity > remaining {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds units left to return").
				WithDetails(map[string]any{"returnable": remaining})
		}
		if maxRefund := input.Quantity * item.UnitPriceCents; input.RefundCents > maxRefund {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds the price of the returned units").
				WithDetails(map[string]any{"max_refund_cents": maxRefund})
		}

		if input.Restock {
			touched, err := s.ledger.Apply(ctx, tx, actor.TenantID, []inventory.Adjustment{inventory.Restock(item.ProductID, input.Quantity)})
			if err != nil {
				return err
			}
			if err := s.alerts.Evaluate(ctx, tx, actor.TenantID, touched); err != nil {
				return err
			}
		}

		created = &models.Return{
			TenantID:    actor.TenantID,
			OrderID:     order.ID,
			OrderItemID: item.ID,
			ProductID:   item.ProductID,
			Quantity:    input.Quantity,
			Reason:      input.Reason,
			Restocked:   input.Restock,
			RefundCents: input.RefundCents,
			Note:        trimmed(input.Note),
			CreatedBy:   actor.UserRef(),
		}
		if err := repo.Create(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      actor.TenantID,
			EventType:     enums.EventReturnCreated,
			AggregateType: enums.AggregateReturn,
			AggregateID:   created.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.ReturnCreatedEvent{
				ReturnID:    created.ID,
				OrderID:     order.ID,
				ProductID:   item.ProductID,
				Quantity:    created.Quantity,
				Restocked:   created.Restocked,
				RefundCents: created.RefundCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return NewReturnDTO(created), nil
}

func (s *service) ListReturns(ctx context.Context, tenantID uuid.UUID, input ListReturnsInput) (*pagination.Page[ReturnDTO], error) {
	if input.OrderID != nil {
		if _, err := s.orders.FindByID(ctx, tenantID, *input.OrderID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, tenantID, input.OrderID, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}
	rows, next := pagination.Trim(rows, input.Pagination.Limit, func(r models.Return) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	items := make([]ReturnDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *NewReturnDTO(&rows[i]))
	}
	return &pagination.Page[ReturnDTO]{Items: items, NextCursor: next}, nil
}

func findItem(items []models.OrderItem, id uuid.UUID) *models.OrderItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
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
