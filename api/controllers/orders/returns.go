package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockdesk-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/stockdesk-backend/api/responses"
	"github.com/angelmondragon/stockdesk-backend/api/validators"
	"github.com/angelmondragon/stockdesk-backend/internal/returns"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

func CreateReturn(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ret, err := svc.CreateReturn(r.Context(), actor, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, ret)
	}
}

// ListOrderReturns lists the returns of the order in the path.
func ListOrderReturns(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return listReturns(svc, logg, func(r *http.Request) (*uuid.UUID, error) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		return &orderID, nil
	})
}

// ListReturns lists tenant returns, optionally filtered by ?order_id=.
func ListReturns(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return listReturns(svc, logg, func(r *http.Request) (*uuid.UUID, error) {
		return validators.ParseQueryUUID(r, "order_id")
	})
}

func listReturns(svc returns.Service, logg *logger.Logger, orderFilter func(*http.Request) (*uuid.UUID, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListReturns(r.Context(), actor.TenantID, returns.ListReturnsInput{OrderID: orderID, Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
