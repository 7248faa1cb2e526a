package deals

import (
	"net/http"

	"github.com/angelmondragon/stockdesk-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/stockdesk-backend/api/responses"
	"github.com/angelmondragon/stockdesk-backend/api/validators"
	internaldeals "github.com/angelmondragon/stockdesk-backend/internal/deals"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

const maxQuoteQuantity = 100000

// PortalList shows clients the deals that are currently active.
func PortalList(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolvePortalActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active := enums.DealStatusActive
		listDeals(svc, logg, w, r, actor, &active)
	}
}

// PortalQuote prices ?quantity= units against an active deal's tiers.
func PortalQuote(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolvePortalActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealID, err := validators.PathUUID(r, "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := validators.ParseQueryInt(r, "quantity", 1, 1, maxQuoteQuantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.QuoteActive(r.Context(), actor.TenantID, dealID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// PortalClaim claims units for the calling client. Any client_id in the body is ignored.
func PortalClaim(svc internaldeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolvePortalActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		claim(svc, logg, w, r, actor)
	}
}
