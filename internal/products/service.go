package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/stockdesk-backend/internal/inventory"
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

const skuUniqueIndex = "idx_products_tenant_sku"

// Service exposes back-office product management operations.
type Service interface {
	CreateProduct(ctx context.Context, actor auth.Actor, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, tenantID uuid.UUID, input ListProductsInput) (*pagination.Page[ProductDTO], error)
	UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error
	AdjustStock(ctx context.Context, actor auth.Actor, productID uuid.UUID, input AdjustStockInput) (*AdjustStockResult, error)
	ListAdjustments(ctx context.Context, tenantID, productID uuid.UUID, params pagination.Params) (*pagination.Page[StockAdjustmentDTO], error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU               string
	Name              string
	Brand             *string
	Model             *string
	Category          *string
	Condition         enums.ProductCondition
	PriceCents        int
	CostCents         *int
	InitialStock      int
	LowStockThreshold int
	IsActive          bool
}

// UpdateProductInput holds optional mutation values for a product. Stock
// counters are not editable here; use AdjustStock.
type UpdateProductInput struct {
	SKU               *string
	Name              *string
	Brand             *string
	Model             *string
	Category          *string
	Condition         *enums.ProductCondition
	PriceCents        *int
	CostCents         *int
	LowStockThreshold *int
	IsActive          *bool
}

// AdjustStockInput is a manual change to on-hand stock.
type AdjustStockInput struct {
	Delta  int
	Reason enums.StockAdjustmentReason
	Note   *string
}

type alertEvaluator interface {
	Evaluate(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, productIDs []uuid.UUID) error
}

type ServiceParams struct {
	Repo             *Repository
	DB               *db.Client
	Ledger           *inventory.Ledger
	Alerts           alertEvaluator
	Outbox           outbox.Emitter
	DefaultThreshold int
}

// service implements the product service.
type service struct {
	repo             *Repository
	dbClient         *db.Client
	ledger           *inventory.Ledger
	alerts           alertEvaluator
	outbox           outbox.Emitter
	defaultThreshold int
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert evaluator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:             params.Repo,
		dbClient:         params.DB,
		ledger:           params.Ledger,
		alerts:           params.Alerts,
		outbox:           params.Outbox,
		defaultThreshold: params.DefaultThreshold,
	}, nil
}

// CreateProduct stores the product with its opening stock.
func (s *service) CreateProduct(ctx context.Context, actor auth.Actor, input CreateProductInput) (*ProductDTO, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and name are required")
	}
	if err := validatePrices(input.PriceCents, input.CostCents); err != nil {
		return nil, err
	}
	if input.InitialStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial_stock cannot be negative")
	}
	if err := validateLowStockThreshold(input.LowStockThreshold); err != nil {
		return nil, err
	}
	condition := input.Condition
	if condition == "" {
		condition = enums.ProductConditionNew
	}
	if !condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid condition")
	}

	product := &models.Product{
		TenantID:          actor.TenantID,
		SKU:               sku,
		Name:              name,
		Brand:             trimmed(input.Brand),
		Model:             trimmed(input.Model),
		Category:          trimmed(input.Category),
		Condition:         condition,
		PriceCents:        input.PriceCents,
		CostCents:         input.CostCents,
		TotalStock:        input.InitialStock,
		LowStockThreshold: input.LowStockThreshold,
		IsActive:          true,
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, skuUniqueIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		// bool zero values are skipped on insert, so deactivation is a second write
		if !input.IsActive {
			if err := repo.UpdateFields(ctx, actor.TenantID, product.ID, map[string]any{"is_active": false}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
			}
			product.IsActive = false
		}
		return s.alerts.Evaluate(ctx, tx, actor.TenantID, []uuid.UUID{product.ID})
	})
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, tenantID, productID)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, tenantID uuid.UUID, input ListProductsInput) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListProducts(ctx, productListQuery{
		TenantID:         tenantID,
		Filters:          input.Filters,
		Cursor:           cursor,
		Limit:            input.Pagination.Limit,
		DefaultThreshold: s.defaultThreshold,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	rows, next := pagination.Trim(rows, input.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *NewProductDTO(&rows[i]))
	}
	return &pagination.Page[ProductDTO]{Items: items, NextCursor: next}, nil
}

// UpdateProduct applies catalog changes and re-evaluates alerts when the
// threshold or active flag moves.
func (s *service) UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	fields, err := buildUpdateFields(input)
	if err != nil {
		return nil, err
	}

	var updated *models.Product
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, actor.TenantID, productID)
		if err != nil {
			return notFoundOr(err, "load product")
		}
		if input.PriceCents != nil || input.CostCents != nil {
			price, cost := current.PriceCents, current.CostCents
			if input.PriceCents != nil {
				price = *input.PriceCents
			}
			if input.CostCents != nil {
				cost = input.CostCents
			}
			if err := validatePrices(price, cost); err != nil {
				return err
			}
		}
		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, actor.TenantID, productID, fields); err != nil {
				if db.IsUniqueViolation(err, skuUniqueIndex) {
					return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
			}
		}
		if input.LowStockThreshold != nil || input.IsActive != nil {
			if err := s.alerts.Evaluate(ctx, tx, actor.TenantID, []uuid.UUID{productID}); err != nil {
				return err
			}
		}
		updated, err = repo.FindByID(ctx, actor.TenantID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewProductDTO(updated), nil
}

// DeleteProduct removes a product that no order or deal refers to.
func (s *service) DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByIDForUpdate(ctx, actor.TenantID, productID); err != nil {
			return notFoundOr(err, "load product")
		}
		refs, err := repo.CountReferences(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count product references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by orders or deals; deactivate it instead")
		}
		if _, err := repo.DeleteProduct(ctx, actor.TenantID, productID); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "product is still referenced")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		return nil
	})
}

// AdjustStock changes on-hand stock by hand. The ledger guard keeps
// total_stock at or above reserved_stock.
func (s *service) AdjustStock(ctx context.Context, actor auth.Actor, productID uuid.UUID, input AdjustStockInput) (*AdjustStockResult, error) {
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reason")
	}

	var result AdjustStockResult
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		before, err := repo.FindByIDForUpdate(ctx, actor.TenantID, productID)
		if err != nil {
			return notFoundOr(err, "load product")
		}
		if _, err := s.ledger.Apply(ctx, tx, actor.TenantID, []inventory.Adjustment{inventory.Manual(productID, input.Delta)}); err != nil {
			return err
		}
		after, err := repo.FindByID(ctx, actor.TenantID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
		}

		adj := &models.StockAdjustment{
			TenantID:    actor.TenantID,
			ProductID:   productID,
			Delta:       input.Delta,
			Reason:      input.Reason,
			Note:        trimmed(input.Note),
			ActorID:     actor.UserRef(),
			StockBefore: before.TotalStock,
			StockAfter:  after.TotalStock,
		}
		if err := repo.CreateAdjustment(ctx, adj); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock adjustment")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      actor.TenantID,
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Actor:         actor.OutboxRef(),
			Data: payloads.StockAdjustedEvent{
				ProductID:  productID,
				Delta:      input.Delta,
				Reason:     input.Reason,
				TotalStock: after.TotalStock,
			},
		}); err != nil {
			return err
		}
		if err := s.alerts.Evaluate(ctx, tx, actor.TenantID, []uuid.UUID{productID}); err != nil {
			return err
		}

		result = AdjustStockResult{Adjustment: NewStockAdjustmentDTO(adj), Product: NewProductDTO(after)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) ListAdjustments(ctx context.Context, tenantID, productID uuid.UUID, params pagination.Params) (*pagination.Page[StockAdjustmentDTO], error) {
	if _, err := s.repo.FindByID(ctx, tenantID, productID); err != nil {
		return nil, notFoundOr(err, "load product")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListAdjustments(ctx, tenantID, productID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock adjustments")
	}
	rows, next := pagination.Trim(rows, params.Limit, func(a models.StockAdjustment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})
	items := make([]StockAdjustmentDTO, 0, len(rows))
	for i := range rows {
		items = append(items, NewStockAdjustmentDTO(&rows[i]))
	}
	return &pagination.Page[StockAdjustmentDTO]{Items: items, NextCursor: next}, nil
}

func buildUpdateFields(input UpdateProductInput) (map[string]any, error) {
	fields := map[string]any{}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		fields["sku"] = sku
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	if input.Brand != nil {
		fields["brand"] = trimmed(input.Brand)
	}
	if input.Model != nil {
		fields["model"] = trimmed(input.Model)
	}
	if input.Category != nil {
		fields["category"] = trimmed(input.Category)
	}
	if input.Condition != nil {
		if !input.Condition.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid condition")
		}
		fields["item_condition"] = *input.Condition
	}
	if input.PriceCents != nil {
		fields["price_cents"] = *input.PriceCents
	}
	if input.CostCents != nil {
		fields["cost_cents"] = *input.CostCents
	}
	if input.LowStockThreshold != nil {
		if err := validateLowStockThreshold(*input.LowStockThreshold); err != nil {
			return nil, err
		}
		fields["low_stock_threshold"] = *input.LowStockThreshold
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	return fields, nil
}

func validatePrices(price int, cost *int) error {
	if !money.FitsCents(price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_cents must be between 0 and 2147483647")
	}
	if cost != nil && !money.FitsCents(*cost) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cost_cents must be between 0 and 2147483647")
	}
	return nil
}

func validateLowStockThreshold(value int) error {
	if value < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "low_stock_threshold cannot be negative")
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

func notFoundOr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
