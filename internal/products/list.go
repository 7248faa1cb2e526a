package product

import (
	"github.com/angelmondragon/stockdesk-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the catalog list.
type ProductListFilters struct {
	Query    string `json:"q,omitempty"`
	Active   *bool  `json:"active,omitempty"`
	LowStock bool   `json:"low_stock,omitempty"`
	Category string `json:"category,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter products for a tenant.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}
