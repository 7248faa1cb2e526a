package auth

import (
	"github.com/angelmondragon/stockdesk-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	ClientID *uuid.UUID
	Role     enums.Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by back-office staff and portal clients.
type AccessTokenClaims struct {
	UserID   uuid.UUID  `json:"user_id"`
	TenantID uuid.UUID  `json:"tenant_id"`
	ClientID *uuid.UUID `json:"client_id,omitempty"`
	Role     enums.Role `json:"role"`
	jwt.RegisteredClaims
}
