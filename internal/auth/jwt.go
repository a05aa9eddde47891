// Package auth issues and validates the HS256 tokens that carry actor identity.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/garyjia/asset-registry/internal/domain/entity"
)

// DefaultTokenTTL is the lifetime of issued tokens when none is configured
const DefaultTokenTTL = 24 * time.Hour

// Claims represents the JWT claims. Subject is the actor ID.
type Claims struct {
	Role       string `json:"role"`
	AgencyID   string `json:"agency_id,omitempty"`
	MinistryID string `json:"ministry_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts validated claims into the explicit actor passed to services
func (c *Claims) Actor() entity.Actor {
	return entity.Actor{
		ID:         c.Subject,
		Role:       c.Role,
		AgencyID:   c.AgencyID,
		MinistryID: c.MinistryID,
	}
}

// TokenManager signs and verifies actor tokens with a shared secret
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager. A zero ttl uses DefaultTokenTTL.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token for actor
func (m *TokenManager) Issue(actor entity.Actor) (string, error) {
	if actor.ID == "" {
		return "", errors.New("actor id is required")
	}
	if !entity.IsValidRole(actor.Role) {
		return "", fmt.Errorf("unknown role %q", actor.Role)
	}

	now := m.now()
	claims := Claims{
		Role:       actor.Role,
		AgencyID:   actor.AgencyID,
		MinistryID: actor.MinistryID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning its claims
func (m *TokenManager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if !entity.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("token has unknown role %q", claims.Role)
	}

	return claims, nil
}

// ExtractBearer returns the token from an Authorization header value
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
