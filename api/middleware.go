package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/sparelink/gig-engine/auth"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	bearerKey   contextKey = "bearer"
)

// RequireIdentity verifies the Authorization bearer token and stores the
// resulting identity plus the raw token (for forwarding to peer services) in
// the request context. Missing or invalid credentials get a 401.
func RequireIdentity(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				respondError(w, auth.ErrInvalidToken)
				return
			}
			id, err := verifier.Verify(raw)
			if err != nil {
				respondError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			ctx = context.WithValue(ctx, bearerKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identityFrom returns the verified identity stored by RequireIdentity.
func identityFrom(r *http.Request) *auth.Identity {
	id, _ := r.Context().Value(identityKey).(*auth.Identity)
	return id
}

// bearerFrom returns the raw bearer token for forwarding.
func bearerFrom(r *http.Request) string {
	raw, _ := r.Context().Value(bearerKey).(string)
	return raw
}
