package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/theranostics-labs/portal-api/internal/platform/httpx"
)

// Authenticator guards routes with staff session tokens.
type Authenticator struct {
	verifier *TokenVerifier
}

// NewAuthenticator constructs an Authenticator over the supplied verifier.
func NewAuthenticator(verifier *TokenVerifier) (*Authenticator, error) {
	if verifier == nil {
		return nil, errors.New("auth: token verifier is required")
	}
	return &Authenticator{verifier: verifier}, nil
}

// RequireStaffAuth validates the bearer token and stores the staff identity on the context.
func (a *Authenticator) RequireStaffAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw, ok := bearerToken(r)
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
				return
			}

			identity, err := a.verifier.Verify(raw)
			if err != nil {
				message := "invalid session token"
				if errors.Is(err, ErrExpiredToken) {
					message = "session token expired"
				}
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", message, http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// RequireRoles restricts the route to identities carrying one of the supplied roles.
// It must run after RequireStaffAuth.
func RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, ok := IdentityFromContext(ctx)
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
				return
			}
			if len(roles) > 0 && !identity.HasRole(roles...) {
				httpx.WriteError(ctx, w, httpx.NewError("forbidden", "insufficient permissions", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
