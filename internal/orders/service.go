package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockdesk-backend/internal/inventory"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	ApplyTransition(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, from, to enums.OrderStatus, lines []inventory.Line) ([]uuid.UUID, error)
}

type alertEvaluator interface {
	Evaluate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, productIDs []uuid.UUID) error
}

// Service defines order operations for the back office and the portal.
type Service interface {
	CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderDTO, error)
	CreateOrderInTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetailDTO, error)
	ListOrders(ctx context.Context, actor auth.Actor, input ListOrdersInput) (*pagination.Page[OrderDTO], error)
	ReplaceItems(ctx context.Context, actor auth.Actor, orderID uuid.UUID, items []ItemInput) (*OrderDTO, error)
	UpdateOrderStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	DeleteOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) error
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Ledger stockLedger
	Alerts alertEvaluator
	Outbox outbox.Emitter
	Now    func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger stockLedger
	alerts alertEvaluator
	outbox outbox.Emitter
	now    func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert evaluator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		ledger: params.Ledger,
		alerts: params.Alerts,
		outbox: params.Outbox,
		now:    now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderDTO, error) {
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = s.CreateOrderInTx(ctx, tx, actor, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(created), nil
}

// CreateOrderInTx stores a draft order inside the caller's transaction. Deal
// claims use it so the order and the deal decrement commit together.
func (s *service) CreateOrderInTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, input CreateOrderInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client_id is required")
	}
	source := input.Source
	if source == "" {
		source = enums.OrderSourceBackOffice
	}
	if !source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order source")
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.ClientExists(ctx, actor.TenantID, input.ClientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}

	items, total, err := s.buildItems(ctx, repo, actor.TenantID, input.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		TenantID:        actor.TenantID,
		ClientID:        input.ClientID,
		DealID:          input.DealID,
		Status:          enums.OrderStatusDraft,
		Source:          source,
		TotalPriceCents: total,
		Notes:           trimmed(input.Notes),
		CreatedBy:       actor.UserRef(),
		StatusChangedAt: s.now(),
		Items:           items,
	}
	if err := repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	event := outbox.DomainEvent{
		TenantID:      actor.TenantID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor.OutboxRef(),
		Data: payloads.OrderCreatedEvent{
			OrderID:         order.ID,
			ClientID:        order.ClientID,
			Source:          order.Source,
			TotalPriceCents: order.TotalPriceCents,
			ItemCount:       len(order.Items),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDetailDTO, error) {
	order, err := s.repo.FindByID(ctx, actor.TenantID, orderID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !visibleTo(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	totals, err := s.repo.Totals(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum order payments")
	}
	history, err := s.repo.ListHistory(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	return &OrderDetailDTO{
		OrderDTO: *NewOrderDTO(order),
		Summary:  newSummaryDTO(order.TotalPriceCents, totals),
		History:  newHistoryDTOs(history),
	}, nil
}

func (s *service) ListOrders(ctx context.Context, actor auth.Actor, input ListOrdersInput) (*pagination.Page[OrderDTO], error) {
	filters := input.Filters
	if actor.Role == enums.RoleClient {
		if actor.ClientID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no client linked to user")
		}
		clientID := *actor.ClientID
		filters.ClientID = &clientID
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, actor.TenantID, filters, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows, next := pagination.Trim(rows, input.Pagination.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *NewOrderDTO(&rows[i]))
	}
	return &pagination.Page[OrderDTO]{Items: items, NextCursor: next}, nil
}

// ReplaceItems rewrites the lines of a draft order and recomputes its total.
func (s *service) ReplaceItems(ctx context.Context, actor auth.Actor, orderID uuid.UUID, inputs []ItemInput) (*OrderDTO, error) {
	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, actor.TenantID, orderID)
		if err != nil {
			return notFoundOr(err)
		}
		if order.Status != enums.OrderStatusDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only draft orders can be edited").
				WithDetails(map[string]any{"status": order.Status})
		}

		items, total, err := s.buildItems(ctx, repo, actor.TenantID, inputs)
		if err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, order.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order items")
		}
		if err := repo.UpdateTotal(ctx, order.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order total")
		}

		event := outbox.DomainEvent{
			TenantID:      actor.TenantID,
			EventType:     enums.EventOrderItemsReplaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.OrderItemsReplacedEvent{
				OrderID:         order.ID,
				TotalPriceCents: total,
				ItemCount:       len(items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		out, err = repo.FindByID(ctx, actor.TenantID, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(out), nil
}

// UpdateOrderStatus moves an order to a new status and applies the stock
// movement of that transition. The order row stays locked until commit so
// concurrent transitions of the same order serialize.
func (s *service) UpdateOrderStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, actor.TenantID, orderID)
		if err != nil {
			return notFoundOr(err)
		}
		from, to := order.Status, input.Status
		if !inventory.CanTransition(from, to) {
			_, err := inventory.Plan(from, to, nil)
			return err
		}
		if len(order.Items) == 0 && to != enums.OrderStatusCanceled && to != enums.OrderStatusDraft {
			return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
		}
		if from.HasConsumedStock() && !to.HasConsumedStock() {
			totals, err := repo.Totals(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order returns")
			}
			if totals.ReturnCount > 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has returns and cannot give its stock back")
			}
		}

		lines := linesOf(order.Items)
		touched, err := s.ledger.ApplyTransition(ctx, tx, actor.TenantID, from, to, lines)
		if err != nil {
			return err
		}

		now := s.now()
		if err := repo.UpdateStatus(ctx, order.ID, to, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.CreateHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			ActorID:    actor.UserRef(),
			Note:       trimmed(input.Note),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}

		plan, _ := inventory.Plan(from, to, lines)
		event := outbox.DomainEvent{
			TenantID:      actor.TenantID,
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				ClientID:  order.ClientID,
				From:      from,
				To:        to,
				Movements: movementsOf(plan),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if len(touched) > 0 {
			if err := s.alerts.Evaluate(ctx, tx, actor.TenantID, touched); err != nil {
				return err
			}
		}

		out = order
		out.Status = to
		out.StatusChangedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(out), nil
}

// DeleteOrder removes draft and canceled orders that carry no money entries.
func (s *service) DeleteOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, actor.TenantID, orderID)
		if err != nil {
			return notFoundOr(err)
		}
		if order.Status != enums.OrderStatusDraft && order.Status != enums.OrderStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only draft or canceled orders can be deleted").
				WithDetails(map[string]any{"status": order.Status})
		}
		totals, err := repo.Totals(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order payments")
		}
		if totals.PaymentCount > 0 || totals.ReturnCount > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order has payments or returns")
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      actor.TenantID,
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor.OutboxRef(),
			Data:          payloads.OrderDeletedEvent{OrderID: order.ID, Status: order.Status},
		})
	})
}

// buildItems validates the requested lines, merges repeated products and
// snapshots name, sku and price. It returns the lines and their total.
func (s *service) buildItems(ctx context.Context, repo Repository, tenantID uuid.UUID, inputs []ItemInput) ([]models.OrderItem, int, error) {
	if len(inputs) == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	type merged struct {
		quantity int
		price    *int
	}
	order := make([]uuid.UUID, 0, len(inputs))
	byProduct := map[uuid.UUID]*merged{}
	for i, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].product_id is required", i)
		}
		if in.Quantity <= 0 || in.Quantity > money.MaxQuantity {
			return nil, 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].quantity must be between 1 and %d", i, money.MaxQuantity)
		}
		if in.UnitPriceCents != nil && !money.FitsCents(*in.UnitPriceCents) {
			return nil, 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].unit_price_cents is out of range", i)
		}
		entry, ok := byProduct[in.ProductID]
		if !ok {
			entry = &merged{}
			byProduct[in.ProductID] = entry
			order = append(order, in.ProductID)
		}
		entry.quantity += in.Quantity
		if entry.quantity > money.MaxQuantity {
			return nil, 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d] brings the product quantity above %d", i, money.MaxQuantity)
		}
		if in.UnitPriceCents != nil {
			if entry.price != nil && *entry.price != *in.UnitPriceCents {
				return nil, 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d] repeats a product with a different price", i)
			}
			price := *in.UnitPriceCents
			entry.price = &price
		}
	}

	products, err := repo.FindProducts(ctx, tenantID, order)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	catalog := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	var missing, inactive []uuid.UUID
	items := make([]models.OrderItem, 0, len(order))
	total := 0
	for _, id := range order {
		product, ok := catalog[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if !product.IsActive {
			inactive = append(inactive, id)
			continue
		}
		entry := byProduct[id]
		unit := product.PriceCents
		if entry.price != nil {
			unit = *entry.price
		}
		line := entry.quantity * unit
		total += line
		if !money.FitsCents(line) || !money.FitsCents(total) {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "order total is too large").
				WithDetails(map[string]any{"product_id": id, "max_cents": money.MaxCents})
		}
		items = append(items, models.OrderItem{
			ProductID:      id,
			ProductName:    product.Name,
			SKU:            product.SKU,
			Quantity:       entry.quantity,
			UnitPriceCents: unit,
			LineTotalCents: line,
		})
	}
	if len(missing) > 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_ids": missing})
	}
	if len(inactive) > 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product is not active").
			WithDetails(map[string]any{"product_ids": inactive})
	}
	return items, total, nil
}

func linesOf(items []models.OrderItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func movementsOf(plan []inventory.Adjustment) []payloads.StockMovement {
	out := make([]payloads.StockMovement, 0, len(plan))
	for _, adj := range plan {
		if adj.IsZero() {
			continue
		}
		out = append(out, payloads.StockMovement{
			ProductID:     adj.ProductID,
			TotalDelta:    adj.Total,
			ReservedDelta: adj.Reserved,
		})
	}
	return out
}

func visibleTo(actor auth.Actor, order *models.Order) bool {
	if actor.Role != enums.RoleClient {
		return true
	}
	return actor.ClientID != nil && *actor.ClientID == order.ClientID
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

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
