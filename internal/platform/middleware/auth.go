package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	ActorID  string
	DeviceID string
}

type contextKeyActorID struct{}
type contextKeyDeviceID struct{}

// GetActorID retrieves the authenticated actor ID from the context.
func GetActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(contextKeyActorID{}).(string); ok {
		return actorID
	}
	return ""
}

// WithActorID injects an actor ID into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID{}, actorID)
}

// GetDeviceID retrieves the scanning device ID from the context.
func GetDeviceID(ctx context.Context) string {
	if deviceID, ok := ctx.Value(contextKeyDeviceID{}).(string); ok {
		return deviceID
	}
	return ""
}

// WithDeviceID injects a device ID into a context.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, contextKeyDeviceID{}, deviceID)
}

// RequireAuth validates the bearer token and stores the actor identity in
// the request context. Requests without a valid token get 401.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			ctx = WithActorID(ctx, claims.ActorID)
			if claims.DeviceID != "" {
				ctx = WithDeviceID(ctx, claims.DeviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
