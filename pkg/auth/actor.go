package auth

import (
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/angelmondragon/stockdesk-backend/pkg/outbox"
	"github.com/google/uuid"
)

// Actor is the authenticated caller a service operation runs on behalf of.
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	ClientID *uuid.UUID
	Role     enums.Role
}

// ActorFromClaims maps verified token claims onto an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		ClientID: claims.ClientID,
		Role:     claims.Role,
	}
}

// UserRef returns the user id for nullable audit columns.
func (a Actor) UserRef() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// OutboxRef is the actor block stored in event envelopes.
func (a Actor) OutboxRef() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, TenantID: a.TenantID, Role: string(a.Role)}
}
