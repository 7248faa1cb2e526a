package tenantcontext

import (
	"net/http"

	"github.com/angelmondragon/stockdesk-backend/api/middleware"
	"github.com/angelmondragon/stockdesk-backend/pkg/auth"
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockdesk-backend/pkg/errors"
)

// ResolveActor returns the authenticated caller or an unauthorized error.
func ResolveActor(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return actor, nil
}

// ResolvePortalActor additionally requires a client-linked token.
func ResolvePortalActor(r *http.Request) (auth.Actor, error) {
	actor, err := ResolveActor(r)
	if err != nil {
		return auth.Actor{}, err
	}
	if actor.Role != enums.RoleClient || actor.ClientID == nil {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "client access required")
	}
	return actor, nil
}
