package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is unexported so no other package can read or overwrite the
// claims with context.WithValue.
type contextKey string

const claimsKey contextKey = "claims"

// RevocationChecker reports whether a token ID was revoked at logout.
// repository.RevocationStore satisfies it.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator turns an "Authorization: Bearer <jwt>" header into Claims on
// the request context.
//
// A request is authenticated only when all three checks pass, in this order:
//
//  1. the header is a well-formed Bearer header,
//  2. TokenService.Validate accepts the signature, issuer and expiry,
//  3. the token's jti is not in the revocation store.
//
// The first two are pure. The third hits the store on every request, which is
// what makes logout take effect before the token expires.
type Authenticator struct {
	tokens  *TokenService
	revoked RevocationChecker
	logger  *slog.Logger
}

func NewAuthenticator(tokens *TokenService, revoked RevocationChecker, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, revoked: revoked, logger: logger}
}

// RequireAuth rejects the request with 401 unless it carries a valid,
// unrevoked token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := a.authenticate(r)
		if !ok {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// OptionalAuth attaches Claims when a valid token is present and lets the
// request through either way. GET /api/user uses it to answer
// {"authenticated": false} instead of 401.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := a.authenticate(r); ok {
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate runs the checks described on Authenticator. It never returns
// an error: every failure is logged and reported as "not authenticated", so
// RequireAuth answers 401 and OptionalAuth treats the caller as anonymous.
//
// If the revocation store cannot be read the token is refused even though its
// signature is good. A logged-out token must never work again, and the store
// being down is indistinguishable from the token having been revoked.
func (a *Authenticator) authenticate(r *http.Request) (*Claims, bool) {
	raw, ok := BearerToken(r)
	if !ok {
		return nil, false
	}

	claims, err := a.tokens.Validate(raw)
	if err != nil {
		a.logger.Debug("rejected token", "error", err)
		return nil, false
	}

	revoked, err := a.revoked.IsRevoked(r.Context(), claims.TokenID)
	if err != nil {
		a.logger.Error("checking token revocation", "error", err)
		return nil, false
	}
	if revoked {
		return nil, false
	}
	return claims, true
}

// BearerToken extracts the token from the Authorization header. The scheme is
// matched case-insensitively; an empty token counts as absent.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by RequireAuth or OptionalAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.UserID == "" {
		return "", false
	}
	return c.UserID, true
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "Authentication required",
		"code":  "unauthorized",
	})
}
