package auth

import (
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Org    string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. Org is
// embedded so every request carries its tenant without a DB lookup.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Org    string         `json:"org"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
