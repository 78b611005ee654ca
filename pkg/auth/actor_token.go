package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// ActorClaims identify who is acting on a case and with which role. The
// role claim feeds the FSM validator's role gating.
type ActorClaims struct {
	jwt.RegisteredClaims
	Role           string `json:"role"`
	OrganizationID string `json:"org"`
}

type TokenManager struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenManager(signingKey []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{signingKey: signingKey, ttl: ttl}
}

func (m *TokenManager) Generate(actorID, role, organizationID string) (string, error) {
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   actorID,
			Issuer:    "caseflow",
		},
		Role:           role,
		OrganizationID: organizationID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *TokenManager) Validate(tokenString string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
