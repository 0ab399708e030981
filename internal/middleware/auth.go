package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjordbank/core/internal/auth"
)

// ContextKey is the type for context keys to avoid collisions
type ContextKey string

// ActorKey is the context key for the authenticated actor
const ActorKey ContextKey = "actor"

// AuthMiddleware validates bearer tokens and adds the actor to the context
type AuthMiddleware struct {
	verifier *auth.Verifier
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier *auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth is middleware that requires a valid access token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "Missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeUnauthorized(w, "Invalid authorization header format")
			return
		}

		actor, err := m.verifier.Verify(parts[1])
		if err != nil {
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ActorKey, *actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActor extracts the authenticated actor from the request context.
// The zero Actor is returned when RequireAuth did not run.
func GetActor(ctx context.Context) auth.Actor {
	actor, ok := ctx.Value(ActorKey).(auth.Actor)
	if !ok {
		return auth.Actor{}
	}
	return actor
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "` + message + `"}`))
}
