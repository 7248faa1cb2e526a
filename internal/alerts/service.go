package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/db"
	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service keeps stock alerts in line with product counters.
type Service interface {
	Evaluate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, productIDs []uuid.UUID) error
	ListAlerts(ctx context.Context, tenantID uuid.UUID, input ListInput) (*pagination.Page[AlertDTO], error)
	Acknowledge(ctx context.Context, actor auth.Actor, alertID uuid.UUID) (*AlertDTO, error)
	ScanAll(ctx context.Context) (ScanResult, error)
}

type ServiceParams struct {
	Repo             *Repository
	DB               *db.Client
	Outbox           outbox.Emitter
	Logger           *logger.Logger
	DefaultThreshold int
}

type service struct {
	repo             *Repository
	db               *db.Client
	outbox           outbox.Emitter
	logg             *logger.Logger
	defaultThreshold int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("alert repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.DefaultThreshold < 0 {
		return nil, fmt.Errorf("default threshold must not be negative")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:             params.Repo,
		db:               params.DB,
		outbox:           params.Outbox,
		logg:             logg,
		defaultThreshold: params.DefaultThreshold,
	}, nil
}

// Evaluate opens, updates or resolves the alert of each product. It runs in
// the caller's transaction so alerts always match the committed counters.
func (s *service) Evaluate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, productIDs []uuid.UUID) error {
	_, _, err := s.evaluate(ctx, tx, tenantID, productIDs)
	return err
}

func (s *service) evaluate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, productIDs []uuid.UUID) (int, int, error) {
	if tx == nil {
		return 0, 0, errors.New("transaction required")
	}
	if len(productIDs) == 0 {
		return 0, 0, nil
	}
	repo := s.repo.WithTx(tx)

	products, err := repo.ProductsForTenant(ctx, tenantID, productIDs)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products for alerts")
	}
	active, err := repo.ActiveByProduct(ctx, tenantID, productIDs)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active alerts")
	}

	now := time.Now().UTC()
	opened, resolved := 0, 0
	for _, product := range products {
		threshold := s.thresholdFor(product)
		available := product.AvailableStock()
		want, alerting := classify(product, available, threshold)

		current, hasCurrent := active[product.ID]
		switch {
		case hasCurrent && (!alerting || current.Type != want):
			if err := s.resolve(ctx, tx, repo, &current, now); err != nil {
				return opened, resolved, err
			}
			resolved++
			hasCurrent = false
		case hasCurrent && current.AvailableStock != available:
			current.AvailableStock = available
			current.Threshold = threshold
			current.Message = alertMessage(product, want, available)
			if err := repo.Save(ctx, &current); err != nil {
				return opened, resolved, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh alert")
			}
		}

		if alerting && !hasCurrent {
			if err := s.open(ctx, tx, repo, product, want, available, threshold); err != nil {
				return opened, resolved, err
			}
			opened++
		}
	}
	return opened, resolved, nil
}

func (s *service) thresholdFor(product models.Product) int {
	if product.LowStockThreshold > 0 {
		return product.LowStockThreshold
	}
	return s.defaultThreshold
}

func classify(product models.Product, available, threshold int) (enums.AlertType, bool) {
	if !product.IsActive {
		return "", false
	}
	if available <= 0 {
		return enums.AlertTypeOutOfStock, true
	}
	if available <= threshold {
		return enums.AlertTypeLowStock, true
	}
	return "", false
}

func alertMessage(product models.Product, alertType enums.AlertType, available int) string {
	if alertType == enums.AlertTypeOutOfStock {
		return fmt.Sprintf("%s (%s) is out of stock", product.Name, product.SKU)
	}
	return fmt.Sprintf("%s (%s) is running low: %d available", product.Name, product.SKU, available)
}

func (s *service) open(ctx context.Context, tx *gorm.DB, repo *Repository, product models.Product, alertType enums.AlertType, available, threshold int) error {
	alert := models.Alert{
		TenantID:       product.TenantID,
		ProductID:      product.ID,
		Type:           alertType,
		Status:         enums.AlertStatusOpen,
		Message:        alertMessage(product, alertType, available),
		AvailableStock: available,
		Threshold:      threshold,
	}
	if err := repo.Create(ctx, &alert); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open alert")
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		TenantID:      product.TenantID,
		EventType:     enums.EventAlertOpened,
		AggregateType: enums.AggregateAlert,
		AggregateID:   alert.ID,
		Data: payloads.AlertOpenedEvent{
			AlertID:        alert.ID,
			ProductID:      product.ID,
			Type:           alertType,
			AvailableStock: available,
			Threshold:      threshold,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit alert opened")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"alert_id":   alert.ID.String(),
		"product_id": product.ID.String(),
		"alert_type": alertType,
		"available":  available,
	}), "stock alert opened")
	return nil
}

func (s *service) resolve(ctx context.Context, tx *gorm.DB, repo *Repository, alert *models.Alert, now time.Time) error {
	alert.Status = enums.AlertStatusResolved
	alert.ResolvedAt = &now
	if err := repo.Save(ctx, alert); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve alert")
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		TenantID:      alert.TenantID,
		EventType:     enums.EventAlertResolved,
		AggregateType: enums.AggregateAlert,
		AggregateID:   alert.ID,
		Data: payloads.AlertResolvedEvent{
			AlertID:   alert.ID,
			ProductID: alert.ProductID,
			Type:      alert.Type,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit alert resolved")
	}
	return nil
}

func (s *service) ListAlerts(ctx context.Context, tenantID uuid.UUID, input ListInput) (*pagination.Page[AlertDTO], error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid alert status")
	}
	if input.Type != nil && !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid alert type")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listQuery{
		TenantID: tenantID,
		Status:   input.Status,
		Type:     input.Type,
		Cursor:   cursor,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list alerts")
	}
	rows, next := pagination.Trim(rows, input.Limit, func(a models.Alert) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})

	items := make([]AlertDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewAlertDTO(row))
	}
	return &pagination.Page[AlertDTO]{Items: items, NextCursor: next}, nil
}

// Acknowledge marks an open alert as seen. Acknowledged alerts stay active
// until stock recovers.
func (s *service) Acknowledge(ctx context.Context, actor auth.Actor, alertID uuid.UUID) (*AlertDTO, error) {
	var out AlertDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		alert, err := repo.FindByID(ctx, actor.TenantID, alertID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alert")
		}
		switch alert.Status {
		case enums.AlertStatusResolved:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "alert already resolved")
		case enums.AlertStatusAcknowledged:
			out = NewAlertDTO(*alert)
			return nil
		}

		now := time.Now().UTC()
		alert.Status = enums.AlertStatusAcknowledged
		alert.AcknowledgedBy = actor.UserRef()
		alert.AcknowledgedAt = &now
		if err := repo.Save(ctx, alert); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acknowledge alert")
		}
		out = NewAlertDTO(*alert)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ScanAll re-evaluates every product of every tenant, one transaction per tenant.
func (s *service) ScanAll(ctx context.Context) (ScanResult, error) {
	var result ScanResult
	tenants, err := s.repo.TenantIDs(ctx)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenants")
	}

	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			ids, err := s.repo.WithTx(tx).ProductIDs(ctx, tenantID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenant products")
			}
			opened, resolved, err := s.evaluate(ctx, tx, tenantID, ids)
			if err != nil {
				return err
			}
			result.Products += len(ids)
			result.Opened += opened
			result.Resolved += resolved
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("scan tenant %s: %w", tenantID, err)
		}
		result.Tenants++
	}
	return result, nil
}
