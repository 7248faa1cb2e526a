package controllers

import (
	"net/http"

	"github.com/angelmondragon/stockdesk-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/stockdesk-backend/api/responses"
	"github.com/angelmondragon/stockdesk-backend/api/validators"
	"github.com/angelmondragon/stockdesk-backend/internal/alerts"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

// ListAlerts filters by ?status=open|acknowledged|resolved and ?type=.
func ListAlerts(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
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
		status, err := validators.ParseQueryEnum(r, "status", enums.ParseAlertStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		alertType, err := validators.ParseQueryEnum(r, "type", enums.ParseAlertType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListAlerts(r.Context(), actor.TenantID, alerts.ListInput{
			Status: status,
			Type:   alertType,
			Limit:  params.Limit,
			Cursor: params.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AcknowledgeAlert(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		alertID, err := validators.PathUUID(r, "alertId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		alert, err := svc.Acknowledge(r.Context(), actor, alertID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, alert)
	}
}
