package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cartageapp/cartage/internal/apperr"
	"github.com/cartageapp/cartage/internal/auth"
)

type identityContextKey struct{}

func withIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

func identityFromContext(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*auth.Identity)
	return identity
}

// identityFromRequest resolves the caller without enforcing anything.
// Used by middleware that runs before Authenticate.
func (h *Handlers) identityFromRequest(r *http.Request) *auth.Identity {
	if identity := identityFromContext(r.Context()); identity != nil {
		return identity
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}
	identity, err := h.tokenVerifier.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	return identity
}

// Authenticate resolves a Bearer token into a caller identity. A request
// without an Authorization header passes through unauthenticated so
// handlers can decide whether the route needs a caller; a present but
// invalid token is rejected outright.
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			h.writeError(w, r, apperr.New(apperr.KindUnauthorized, "authorization header must use Bearer scheme"))
			return
		}

		identity, err := h.tokenVerifier.Verify(strings.TrimSpace(token))
		if err != nil {
			h.loggerFromContext(r.Context()).Warn("rejected bearer token", "error", err)
			h.writeError(w, r, apperr.New(apperr.KindUnauthorized, "invalid bearer token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}
