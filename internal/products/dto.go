package product

import (
	"time"

	"github.com/angelmondragon/stockdesk-backend/pkg/db/models"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/money"
	"github.com/google/uuid"
)

// ProductDTO represents the product payload returned to back-office clients.
type ProductDTO struct {
	ID                uuid.UUID              `json:"id"`
	SKU               string                 `json:"sku"`
	Name              string                 `json:"name"`
	Brand             *string                `json:"brand,omitempty"`
	Model             *string                `json:"model,omitempty"`
	Category          *string                `json:"category,omitempty"`
	Condition         enums.ProductCondition `json:"condition"`
	PriceCents        int                    `json:"price_cents"`
	Price             string                 `json:"price"`
	CostCents         *int                   `json:"cost_cents,omitempty"`
	TotalStock        int                    `json:"total_stock"`
	ReservedStock     int                    `json:"reserved_stock"`
	AvailableStock    int                    `json:"available_stock"`
	LowStockThreshold int                    `json:"low_stock_threshold"`
	IsActive          bool                   `json:"is_active"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:                product.ID,
		SKU:               product.SKU,
		Name:              product.Name,
		Brand:             product.Brand,
		Model:             product.Model,
		Category:          product.Category,
		Condition:         product.Condition,
		PriceCents:        product.PriceCents,
		Price:             money.FormatCents(product.PriceCents),
		CostCents:         product.CostCents,
		TotalStock:        product.TotalStock,
		ReservedStock:     product.ReservedStock,
		AvailableStock:    product.AvailableStock(),
		LowStockThreshold: product.LowStockThreshold,
		IsActive:          product.IsActive,
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
}

// StockAdjustmentDTO exposes one manual stock correction.
type StockAdjustmentDTO struct {
	ID          uuid.UUID                   `json:"id"`
	ProductID   uuid.UUID                   `json:"product_id"`
	Delta       int                         `json:"delta"`
	Reason      enums.StockAdjustmentReason `json:"reason"`
	Note        *string                     `json:"note,omitempty"`
	ActorID     *uuid.UUID                  `json:"actor_id,omitempty"`
	StockBefore int                         `json:"stock_before"`
	StockAfter  int                         `json:"stock_after"`
	CreatedAt   time.Time                   `json:"created_at"`
}

func NewStockAdjustmentDTO(adj *models.StockAdjustment) StockAdjustmentDTO {
	return StockAdjustmentDTO{
		ID:          adj.ID,
		ProductID:   adj.ProductID,
		Delta:       adj.Delta,
		Reason:      adj.Reason,
		Note:        adj.Note,
		ActorID:     adj.ActorID,
		StockBefore: adj.StockBefore,
		StockAfter:  adj.StockAfter,
		CreatedAt:   adj.CreatedAt,
	}
}

// AdjustStockResult pairs the adjustment row with the refreshed product.
type AdjustStockResult struct {
	Adjustment StockAdjustmentDTO `json:"adjustment"`
	Product    *ProductDTO        `json:"product"`
}
