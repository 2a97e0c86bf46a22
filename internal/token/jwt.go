// Package token issues and validates the API's access tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"chaintrace/internal/platform/middleware"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
)

// Claims are the JWT claims carried by chaintrace access tokens.
type Claims struct {
	ActorID  string `json:"actor_id"`
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and validates access tokens. It implements
// middleware.JWTValidator.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

// NewService constructs a token Service.
func NewService(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken issues a signed token for an actor, optionally bound
// to a device.
func (s *Service) GenerateAccessToken(actorID id.ActorID, deviceID string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorID:  actorID.String(),
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning the middleware
// claims the auth layer consumes.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if _, err := id.ParseActorID(claims.ActorID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	return &middleware.JWTClaims{
		ActorID:  claims.ActorID,
		DeviceID: claims.DeviceID,
	}, nil
}
