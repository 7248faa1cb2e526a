package deals

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockdesk-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/stockdesk-backend/api/responses"
	"github.com/angelmondragon/stockdesk-backend/api/validators"
	internaldeals "github.com/angelmondragon/stockdesk-backend/internal/deals"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

type tierRequest struct {
	MinQuantity    int `json:"min_quantity" validate:"gt=0"`
	UnitPriceCents int `json:"unit_price_cents" validate:"gt=0"`
}

type createDealRequest struct {
	ProductID      string        `json:"product_id" validate:"required,uuid"`
	Title          string        `json:"title" validate:"required,max=200"`
	Description    *string       `json:"description,omitempty" validate:"omitempty,max=2000"`
	BasePriceCents int           `json:"base_price_cents" validate:"gt=0,lte=2147483647"`
	QuantityTotal  int           `json:"quantity_total" validate:"gt=0,lte=100000"`
	Tiers          []tierRequest `json:"tiers" validate:"omitempty,dive"`
	StartsAt       *time.Time    `json:"starts_at,omitempty"`
	EndsAt         *time.Time    `json:"ends_at,omitempty"`
	Activate       bool          `json:"activate"`
}

func (req createDealRequest) toInput() internaldeals.CreateDealInput {
	tiers := make([]internaldeals.TierInput, 0, len(req.Tiers))
	for _, tier := range req.Tiers {
		tiers = append(tiers, internaldeals.TierInput{MinQuantity: tier.MinQuantity, UnitPriceCents: tier.UnitPriceCents})
	}
	return internaldeals.CreateDealInput{
		ProductID:      uuid.MustParse(req.ProductID),
		Title:          req.Title,
		Description:    req.Description,
		BasePriceCents: req.BasePriceCents,
		QuantityTotal:  req.QuantityTotal,
		Tiers:          tiers,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Activate:       req.Activate,
	}
}

type claimRequest struct {
	ClientID *string `json:"client_id,omitempty" validate:"omitempty,uuid"`
	Quantity int     `json:"quantity" validate:"gt=0"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (req claimRequest) toInput() internaldeals.ClaimInput {
	input := internaldeals.ClaimInput{Quantity: req.Quantity, Notes: req.Notes}
	if req.ClientID != nil {
		id := uuid.MustParse(*req.ClientID)
		input.ClientID = &id
	}
	return input
}

func List(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "status", enums.ParseDealStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listDeals(svc, logg, w, r, actor, status)
	}
}

func listDeals(svc internaldeals.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request, actor auth.Actor, status *enums.DealStatus) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	productID, err := validators.ParseQueryUUID(r, "product_id")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	page, err := svc.ListDeals(r.Context(), actor.TenantID, internaldeals.ListDealsInput{
		Status:     status,
		ProductID:  productID,
		Pagination: params,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, page)
}

func Create(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createDealRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deal, err := svc.CreateDeal(r.Context(), actor, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, deal)
	}
}

func Detail(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealID, err := validators.PathUUID(r, "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deal, err := svc.GetDeal(r.Context(), actor.TenantID, dealID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deal)
	}
}

func Activate(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, svc.ActivateDeal)
}

func Expire(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, svc.ExpireDeal)
}

func transition(logg *logger.Logger, apply func(ctx context.Context, actor auth.Actor, dealID uuid.UUID) (*internaldeals.DealDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealID, err := validators.PathUUID(r, "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deal, err := apply(r.Context(), actor, dealID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deal)
	}
}

// Claim lets staff claim a deal on behalf of the client named in the body.
func Claim(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		claim(svc, logg, w, r, actor)
	}
}

func claim(svc internaldeals.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request, actor auth.Actor) {
	dealID, err := validators.PathUUID(r, "dealId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	var payload claimRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	result, err := svc.ClaimDeal(r.Context(), actor, dealID, payload.toInput())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteCreated(w, result)
}
