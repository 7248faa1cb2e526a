package deals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockdesk-backend/internal/orders"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/config"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
	"github.com/angelmondragon/stockdesk-backend/pkg/metrics"
	"github.com/angelmondragon/stockdesk-backend/pkg/money"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const expiryBatchSize = 100

// Service manages tiered deals and their claims.
type Service interface {
	CreateDeal(ctx context.Context, actor auth.Actor, input CreateDealInput) (*DealDTO, error)
	GetDeal(ctx context.Context, tenantID, dealID uuid.UUID) (*DealDTO, error)
	ListDeals(ctx context.Context, tenantID uuid.UUID, input ListDealsInput) (*pagination.Page[DealDTO], error)
	ActivateDeal(ctx context.Context, actor auth.Actor, dealID uuid.UUID) (*DealDTO, error)
	ExpireDeal(ctx context.Context, actor auth.Actor, dealID uuid.UUID) (*DealDTO, error)
	Quote(ctx context.Context, tenantID, dealID uuid.UUID, quantity int) (*Quote, error)
	QuoteActive(ctx context.Context, tenantID, dealID uuid.UUID, quantity int) (*Quote, error)
	ClaimDeal(ctx context.Context, actor auth.Actor, dealID uuid.UUID, input ClaimInput) (*ClaimResult, error)
	ExpireDue(ctx context.Context) (int, error)
}

type orderCreator interface {
	CreateOrderInTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, input orders.CreateOrderInput) (*models.Order, error)
}

type claimLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type ServiceParams struct {
	Repo    *Repository
	DB      *db.Client
	Orders  orderCreator
	Outbox  outbox.Emitter
	Cache   hashStore
	Limiter claimLimiter
	Metrics *metrics.StockMetrics
	Logger  *logger.Logger
	Config  config.DealsConfig
	Now     func() time.Time
}

type service struct {
	repo    *Repository
	db      *db.Client
	orders  orderCreator
	outbox  outbox.Emitter
	cache   *quoteCache
	limiter claimLimiter
	metrics *metrics.StockMetrics
	logg    *logger.Logger
	cfg     config.DealsConfig
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("deal repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	var cache *quoteCache
	if params.Cache != nil {
		cache = &quoteCache{store: params.Cache, ttl: params.Config.QuoteCacheTTL}
	}
	return &service{
		repo:    params.Repo,
		db:      params.DB,
		orders:  params.Orders,
		outbox:  params.Outbox,
		cache:   cache,
		limiter: params.Limiter,
		metrics: params.Metrics,
		logg:    logg,
		cfg:     params.Config,
		now:     now,
	}, nil
}

func (s *service) CreateDeal(ctx context.Context, actor auth.Actor, input CreateDealInput) (*DealDTO, error) {
	title := strings.TrimSpace(input.Title)
	switch {
	case input.ProductID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	case title == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case input.BasePriceCents <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base_price_cents must be positive")
	case !money.FitsCents(input.BasePriceCents):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base_price_cents is too large")
	case input.QuantityTotal <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_total must be positive")
	case input.QuantityTotal > money.MaxQuantity:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity_total must be at most %d", money.MaxQuantity)
	}
	if err := ValidateTiers(input.BasePriceCents, input.Tiers); err != nil {
		return nil, err
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.EndsAt.After(*input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ends_at must be after starts_at")
	}
	status := enums.DealStatusDraft
	if input.Activate {
		if input.EndsAt != nil && !input.EndsAt.After(s.now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot activate a deal that already ended")
		}
		status = enums.DealStatusActive
	}

	tiers := make([]models.DealTier, 0, len(input.Tiers))
	for _, tier := range input.Tiers {
		tiers = append(tiers, models.DealTier{MinQuantity: tier.MinQuantity, UnitPriceCents: tier.UnitPriceCents})
	}
	deal := &models.Deal{
		TenantID:          actor.TenantID,
		ProductID:         input.ProductID,
		Title:             title,
		Description:       trimmed(input.Description),
		BasePriceCents:    input.BasePriceCents,
		QuantityTotal:     input.QuantityTotal,
		QuantityRemaining: input.QuantityTotal,
		Status:            status,
		StartsAt:          utc(input.StartsAt),
		EndsAt:            utc(input.EndsAt),
		Tiers:             tiers,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.ProductExists(ctx, actor.TenantID, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if err := repo.Create(ctx, deal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deal")
		}
		if status == enums.DealStatusActive {
			return s.emitStatus(ctx, tx, actor, deal.ID, enums.DealStatusDraft, enums.DealStatusActive)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewDealDTO(deal), nil
}

func (s *service) GetDeal(ctx context.Context, tenantID, dealID uuid.UUID) (*DealDTO, error) {
	deal, err := s.repo.FindByID(ctx, tenantID, dealID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return NewDealDTO(deal), nil
}

func (s *service) ListDeals(ctx context.Context, tenantID uuid.UUID, input ListDealsInput) (*pagination.Page[DealDTO], error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, tenantID, input.Status, input.ProductID, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deals")
	}
	rows, next := pagination.Trim(rows, input.Pagination.Limit, func(d models.Deal) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	items := make([]DealDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *NewDealDTO(&rows[i]))
	}
	return &pagination.Page[DealDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) ActivateDeal(ctx context.Context, actor auth.Actor, dealID uuid.UUID) (*DealDTO, error) {
	return s.changeStatus(ctx, actor, dealID, enums.DealStatusActive, func(deal *models.Deal) error {
		if deal.Status != enums.DealStatusDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only draft deals can be activated").
				WithDetails(map[string]any{"status": deal.Status})
		}
		if deal.EndsAt != nil && !deal.EndsAt.After(s.now()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deal already ended")
		}
		if deal.QuantityRemaining <= 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deal has no units left")
		}
		return nil
	})
}

func (s *service) ExpireDeal(ctx context.Context, actor auth.Actor, dealID uuid.UUID) (*DealDTO, error) {
	return s.changeStatus(ctx, actor, dealID, enums.DealStatusExpired, func(deal *models.Deal) error {
		if deal.Status != enums.DealStatusDraft && deal.Status != enums.DealStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deal cannot be expired").
				WithDetails(map[string]any{"status": deal.Status})
		}
		return nil
	})
}

func (s *service) changeStatus(ctx context.Context, actor auth.Actor, dealID uuid.UUID, to enums.DealStatus, check func(*models.Deal) error) (*DealDTO, error) {
	var out *models.Deal
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		deal, err := repo.FindByIDForUpdate(ctx, actor.TenantID, dealID)
		if err != nil {
			return notFoundOr(err)
		}
		if err := check(deal); err != nil {
			return err
		}
		from := deal.Status
		if _, err := repo.TransitionStatus(ctx, deal.ID, []enums.DealStatus{from}, to); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update deal status")
		}
		if err := s.emitStatus(ctx, tx, actor, deal.ID, from, to); err != nil {
			return err
		}
		deal.Status = to
		out = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID, dealID)
	return NewDealDTO(out), nil
}

// Quote prices a quantity, serving repeat requests from the redis cache.
func (s *service) Quote(ctx context.Context, tenantID, dealID uuid.UUID, quantity int) (*Quote, error) {
	return s.quote(ctx, tenantID, dealID, quantity, nil)
}

// QuoteActive prices a quantity for portal clients. Drafts read as missing
// and deals outside their active window are rejected before any price is
// served, cached or not.
func (s *service) QuoteActive(ctx context.Context, tenantID, dealID uuid.UUID, quantity int) (*Quote, error) {
	return s.quote(ctx, tenantID, dealID, quantity, s.published)
}

func (s *service) published(deal *models.Deal) error {
	if deal.Status == enums.DealStatusDraft {
		return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
	}
	return s.claimable(deal)
}

func (s *service) quote(ctx context.Context, tenantID, dealID uuid.UUID, quantity int, check func(*models.Deal) error) (*Quote, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var deal *models.Deal
	if check != nil {
		loaded, err := s.repo.FindByID(ctx, tenantID, dealID)
		if err != nil {
			return nil, notFoundOr(err)
		}
		if err := check(loaded); err != nil {
			return nil, err
		}
		deal = loaded
	}

	if s.cache.enabled() {
		quote, ok, err := s.cache.get(ctx, tenantID, dealID, quantity)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "deal quote cache read failed")
		}
		if ok {
			return &quote, nil
		}
	}

	if deal == nil {
		loaded, err := s.repo.FindByID(ctx, tenantID, dealID)
		if err != nil {
			return nil, notFoundOr(err)
		}
		deal = loaded
	}
	quote, err := PriceQuote(deal, quantity)
	if err != nil {
		return nil, err
	}
	if s.cache.enabled() {
		if err := s.cache.put(ctx, tenantID, quote); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "deal quote cache write failed")
		}
	}
	return &quote, nil
}

// ClaimDeal takes units off an active deal and opens a draft order for them
// at the quoted tier price. The decrement and the order commit together.
func (s *service) ClaimDeal(ctx context.Context, actor auth.Actor, dealID uuid.UUID, input ClaimInput) (*ClaimResult, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	clientID, err := claimantOf(actor, input)
	if err != nil {
		return nil, err
	}
	if err := s.allowClaim(ctx, clientID); err != nil {
		s.metrics.ObserveDealClaim("rate_limited")
		return nil, err
	}

	var (
		result  ClaimResult
		soldOut bool
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		deal, err := repo.FindByIDForUpdate(ctx, actor.TenantID, dealID)
		if err != nil {
			return notFoundOr(err)
		}
		if err := s.claimable(deal); err != nil {
			return err
		}
		if input.Quantity > deal.QuantityRemaining {
			return pkgerrors.New(pkgerrors.CodeInsufficient, "not enough deal units left").
				WithDetails(map[string]any{"requested": input.Quantity, "remaining": deal.QuantityRemaining})
		}
		quote, err := PriceQuote(deal, input.Quantity)
		if err != nil {
			return err
		}

		ok, err := repo.Decrement(ctx, deal.ID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement deal quantity")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficient, "not enough deal units left")
		}
		remaining, err := repo.Remaining(ctx, deal.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload deal quantity")
		}
		deal.QuantityRemaining = remaining

		unit := quote.UnitPriceCents
		order, err := s.orders.CreateOrderInTx(ctx, tx, actor, orders.CreateOrderInput{
			ClientID: clientID,
			Items:    []orders.ItemInput{{ProductID: deal.ProductID, Quantity: input.Quantity, UnitPriceCents: &unit}},
			Notes:    input.Notes,
			Source:   enums.OrderSourceDeal,
			DealID:   &deal.ID,
		})
		if err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      actor.TenantID,
			EventType:     enums.EventDealClaimed,
			AggregateType: enums.AggregateDeal,
			AggregateID:   deal.ID,
			Actor:         actor.OutboxRef(),
			Data: payloads.DealClaimedEvent{
				DealID:            deal.ID,
				OrderID:           order.ID,
				ClientID:          clientID,
				Quantity:          input.Quantity,
				UnitPriceCents:    unit,
				QuantityRemaining: remaining,
			},
		}); err != nil {
			return err
		}

		if remaining == 0 {
			if _, err := repo.TransitionStatus(ctx, deal.ID, []enums.DealStatus{enums.DealStatusActive}, enums.DealStatusSoldOut); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark deal sold out")
			}
			if err := s.emitStatus(ctx, tx, actor, deal.ID, enums.DealStatusActive, enums.DealStatusSoldOut); err != nil {
				return err
			}
			deal.Status = enums.DealStatusSoldOut
			soldOut = true
		}

		result = ClaimResult{Deal: *NewDealDTO(deal), Quote: quote, Order: *orders.NewOrderDTO(order)}
		return nil
	})
	if err != nil {
		s.metrics.ObserveDealClaim(claimOutcome(err))
		return nil, err
	}
	s.metrics.ObserveDealClaim("claimed")
	if soldOut {
		s.invalidate(ctx, actor.TenantID, dealID)
	}
	return &result, nil
}

// ExpireDue expires active deals whose end time has passed, across tenants.
func (s *service) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.repo.DueForExpiry(ctx, s.now(), expiryBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired deals")
	}
	expired := 0
	for _, deal := range due {
		var changed bool
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			changed, err = s.repo.WithTx(tx).TransitionStatus(ctx, deal.ID, []enums.DealStatus{enums.DealStatusActive}, enums.DealStatusExpired)
			if err != nil || !changed {
				return err
			}
			system := auth.Actor{TenantID: deal.TenantID}
			return s.emitStatus(ctx, tx, system, deal.ID, enums.DealStatusActive, enums.DealStatusExpired)
		})
		if err != nil {
			return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire deal")
		}
		if changed {
			expired++
			s.invalidate(ctx, deal.TenantID, deal.ID)
		}
	}
	return expired, nil
}

func (s *service) claimable(deal *models.Deal) error {
	if deal.Status != enums.DealStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "deal is not active").
			WithDetails(map[string]any{"status": deal.Status})
	}
	now := s.now()
	if deal.StartsAt != nil && now.Before(*deal.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "deal has not started")
	}
	if deal.EndsAt != nil && !now.Before(*deal.EndsAt) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "deal has ended")
	}
	return nil
}

// allowClaim applies the per-client claim window. Limiter failures let the
// claim through; the guarded decrement still protects the deal.
func (s *service) allowClaim(ctx context.Context, clientID uuid.UUID) error {
	if s.limiter == nil || s.cfg.ClaimLimitPerWin <= 0 {
		return nil
	}
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "deal_claim:"+clientID.String(), int64(s.cfg.ClaimLimitPerWin), s.cfg.ClaimWindow)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "deal claim rate limiter unavailable")
		return nil
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many deal claims, try again later")
	}
	return nil
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, actor auth.Actor, dealID uuid.UUID, from, to enums.DealStatus) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		TenantID:      actor.TenantID,
		EventType:     enums.EventDealStatusChanged,
		AggregateType: enums.AggregateDeal,
		AggregateID:   dealID,
		Actor:         actor.OutboxRef(),
		Data:          payloads.DealStatusChangedEvent{DealID: dealID, From: from, To: to},
	})
}

func (s *service) invalidate(ctx context.Context, tenantID, dealID uuid.UUID) {
	if !s.cache.enabled() {
		return
	}
	if err := s.cache.invalidate(ctx, tenantID, dealID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "deal quote cache invalidation failed")
	}
}

func claimantOf(actor auth.Actor, input ClaimInput) (uuid.UUID, error) {
	if actor.Role == enums.RoleClient {
		if actor.ClientID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "no client linked to user")
		}
		return *actor.ClientID, nil
	}
	if input.ClientID == nil || *input.ClientID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "client_id is required")
	}
	return *input.ClientID, nil
}

func claimOutcome(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficient):
		return "insufficient"
	case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		return "unavailable"
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound), pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return "rejected"
	default:
		return "error"
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
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
		return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deal")
}
