// Package authctx resolves an inbound bearer token to an opaque user id
// and carries it on the request context. Issuing and validating sessions
// is an external identity provider's responsibility; this package only
// consumes the already-authenticated result the way the spec's "Authorization
// bearer token resolved by the identity provider to a user_id" contract
// describes.
package authctx

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// Resolver turns a bearer token into a user id, or reports it invalid.
// The concrete implementation (the external identity provider's
// validation call) is injected at startup; a process running without one
// configured rejects every request needing auth.
type Resolver interface {
	Resolve(ctx context.Context, bearerToken string) (userID string, ok bool)
}

// RequireAuth is chi-compatible middleware that resolves the Authorization
// header via r and stores the resulting user id on the request context. A
// missing or unresolvable token yields a 401, written here as bare JSON
// because auth failure happens before the request reaches any handler
// that could build the full error envelope.
func RequireAuth(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}

			userID, ok := resolver.Resolve(r.Context(), token)
			if !ok {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required","code":"AuthError"}`))
}

// UserID extracts the resolved user id from a request context populated
// by RequireAuth. The empty string means no user was resolved.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// StaticResolver resolves any non-empty token to itself, useful for local
// development and for deployments that front this service with a
// reverse proxy that already validated the token and forwards the
// resulting user id verbatim as the bearer value.
type StaticResolver struct{}

func (StaticResolver) Resolve(ctx context.Context, bearerToken string) (string, bool) {
	if bearerToken == "" {
		return "", false
	}
	return bearerToken, true
}
