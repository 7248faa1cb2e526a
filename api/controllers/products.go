package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/stockdesk-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/stockdesk-backend/api/responses"
	"github.com/angelmondragon/stockdesk-backend/api/validators"
	productsvc "github.com/angelmondragon/stockdesk-backend/internal/products"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

type createProductRequest struct {
	SKU               string  `json:"sku" validate:"required,max=64"`
	Name              string  `json:"name" validate:"required,max=200"`
	Brand             *string `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model             *string `json:"model,omitempty" validate:"omitempty,max=100"`
	Category          *string `json:"category,omitempty" validate:"omitempty,max=100"`
	Condition         string  `json:"condition" validate:"required"`
	PriceCents        int     `json:"price_cents" validate:"gte=0,lte=2147483647"`
	CostCents         *int    `json:"cost_cents,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
	InitialStock      int     `json:"initial_stock" validate:"gte=0"`
	LowStockThreshold int     `json:"low_stock_threshold" validate:"gte=0"`
	IsActive          *bool   `json:"is_active,omitempty"`
}

func (req createProductRequest) toInput() (productsvc.CreateProductInput, error) {
	condition, err := enums.ParseProductCondition(strings.TrimSpace(req.Condition))
	if err != nil {
		return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return productsvc.CreateProductInput{
		SKU:               req.SKU,
		Name:              req.Name,
		Brand:             req.Brand,
		Model:             req.Model,
		Category:          req.Category,
		Condition:         condition,
		PriceCents:        req.PriceCents,
		CostCents:         req.CostCents,
		InitialStock:      req.InitialStock,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          active,
	}, nil
}

type updateProductRequest struct {
	SKU               *string `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	Name              *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Brand             *string `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model             *string `json:"model,omitempty" validate:"omitempty,max=100"`
	Category          *string `json:"category,omitempty" validate:"omitempty,max=100"`
	Condition         *string `json:"condition,omitempty"`
	PriceCents        *int    `json:"price_cents,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
	CostCents         *int    `json:"cost_cents,omitempty" validate:"omitempty,gte=0,lte=2147483647"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	IsActive          *bool   `json:"is_active,omitempty"`
}

func (req updateProductRequest) toInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		SKU:               req.SKU,
		Name:              req.Name,
		Brand:             req.Brand,
		Model:             req.Model,
		Category:          req.Category,
		PriceCents:        req.PriceCents,
		CostCents:         req.CostCents,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          req.IsActive,
	}
	if req.Condition != nil {
		condition, err := enums.ParseProductCondition(strings.TrimSpace(*req.Condition))
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
		input.Condition = &condition
	}
	return input, nil
}

type stockAdjustmentRequest struct {
	Delta  int     `json:"delta" validate:"required"`
	Reason string  `json:"reason" validate:"required"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseProductFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListProducts(r.Context(), actor.TenantID, productsvc.ListProductsInput{Filters: filters, Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseProductFilters(r *http.Request) (productsvc.ProductListFilters, error) {
	query := r.URL.Query()
	filters := productsvc.ProductListFilters{
		Query:    validators.SanitizeString(query.Get("q"), 100),
		Category: validators.SanitizeString(query.Get("category"), 100),
	}
	if raw := strings.TrimSpace(query.Get("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "active must be true or false")
		}
		filters.Active = &active
	}
	if raw := strings.TrimSpace(query.Get("low_stock")); raw != "" {
		lowStock, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "low_stock must be true or false")
		}
		filters.LowStock = lowStock
	}
	return filters, nil
}

func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, product)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), actor.TenantID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), actor, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), actor, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdjustStock records a manual on-hand change such as a recount or damage.
func AdjustStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload stockAdjustmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason, err := enums.ParseStockAdjustmentReason(strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason"))
			return
		}
		result, err := svc.AdjustStock(r.Context(), actor, productID, productsvc.AdjustStockInput{
			Delta:  payload.Delta,
			Reason: reason,
			Note:   payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

func ListStockAdjustments(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListAdjustments(r.Context(), actor.TenantID, productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
