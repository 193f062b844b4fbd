// Package session classifies the request credential into a per-request
// authentication verdict.
//
// Possession of a non-empty token is treated as sufficient for route gating;
// no local validation happens here. The token is only ever validated by the
// upstream API when a proxied call actually uses it.
package session

import (
	"context"
	"net/http"
	"strings"
)

// CookieName is the session cookie carrying the upstream access token.
const CookieName = "token"

const bearerPrefix = "Bearer "

type contextKey int

const (
	verdictKey contextKey = iota
	tokenKey
)

// Verdict is the authentication state computed once per request.
type Verdict struct {
	IsAuthenticated bool `json:"isAuthenticated"`
}

// TokenFromRequest returns the credential token for the request. The cookie
// is the canonical source; the Authorization header is the fallback.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	return ""
}

// Classify derives the verdict for the request.
func Classify(r *http.Request) Verdict {
	return Verdict{IsAuthenticated: TokenFromRequest(r) != ""}
}

// VerdictFromContext extracts the verdict from the request context.
// A request that never passed through Middleware is unauthenticated.
func VerdictFromContext(ctx context.Context) Verdict {
	if v, ok := ctx.Value(verdictKey).(Verdict); ok {
		return v
	}
	return Verdict{}
}

// TokenFromContext extracts the raw credential token from the request context.
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey).(string); ok {
		return v
	}
	return ""
}

// Middleware classifies each request exactly once and stores the verdict and
// token in the request context for the gate and the proxies downstream.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		ctx := context.WithValue(r.Context(), verdictKey, Verdict{IsAuthenticated: token != ""})
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
