package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockdesk-backend/api/controllers/tenantcontext"
	"github.com/angelmondragon/stockdesk-backend/api/responses"
	"github.com/angelmondragon/stockdesk-backend/api/validators"
	"github.com/angelmondragon/stockdesk-backend/internal/clients"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
	"github.com/angelmondragon/stockdesk-backend/pkg/logger"
)

type clientRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	UserID  *string `json:"user_id,omitempty" validate:"omitempty,uuid"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func (req clientRequest) userID() (*uuid.UUID, error) {
	if req.UserID == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*req.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id")
	}
	return &id, nil
}

type clientDetailResponse struct {
	*clients.ClientDTO
	Summary *clients.SummaryDTO `json:"summary"`
}

func ListClients(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
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
		query := validators.SanitizeString(r.URL.Query().Get("q"), 100)
		page, err := svc.ListClients(r.Context(), actor.TenantID, query, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func CreateClient(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload clientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Name == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"name": "is required"}))
			return
		}
		userID, err := payload.userID()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		client, err := svc.CreateClient(r.Context(), actor, clients.CreateClientInput{
			Name:    *payload.Name,
			UserID:  userID,
			Phone:   payload.Phone,
			Email:   payload.Email,
			Address: payload.Address,
			Notes:   payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, client)
	}
}

// GetClient returns the client with its billed, paid and outstanding totals.
func GetClient(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.PathUUID(r, "clientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		client, err := svc.GetClient(r.Context(), actor.TenantID, clientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), actor.TenantID, clientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, clientDetailResponse{ClientDTO: client, Summary: summary})
	}
}

func UpdateClient(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.PathUUID(r, "clientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload clientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := payload.userID()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		client, err := svc.UpdateClient(r.Context(), actor, clientID, clients.UpdateClientInput{
			Name:    payload.Name,
			UserID:  userID,
			Phone:   payload.Phone,
			Email:   payload.Email,
			Address: payload.Address,
			Notes:   payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, client)
	}
}

func DeleteClient(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := tenantcontext.ResolveActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clientID, err := validators.PathUUID(r, "clientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteClient(r.Context(), actor, clientID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
