// Package actor carries the acting user of a request. Identity is taken from headers as is;
// authentication happens upstream.
package actor

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
)

const (
	HeaderID   = "X-Actor-Id"
	HeaderRole = "X-Actor-Role"
)

// ManagerRoles may read and generate reports.
var ManagerRoles = []string{"manager", "admin", "owner"}

// Actor is the user on whose behalf a request runs.
type Actor struct {
	ID   string
	Role string
}

type ctxKey struct{}

// Middleware stores the actor headers in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := Actor{
			ID:   strings.TrimSpace(r.Header.Get(HeaderID)),
			Role: strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRole))),
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
	})
}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor of ctx, zero if none.
func FromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(ctxKey{}).(Actor)

	return a
}

// RequireRole rejects requests whose actor has none of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := FromContext(r.Context())
			if a.ID == "" {
				response.Fail(w, r, http.StatusUnauthorized, response.KindForbidden, "actor is required")

				return
			}
			if !slices.Contains(roles, a.Role) {
				response.Fail(w, r, http.StatusForbidden, response.KindForbidden, "role "+a.Role+" may not access this resource")

				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
