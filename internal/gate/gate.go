// Package gate redirects unauthenticated page requests to the login page.
//
// The gate is a UX redirect, not a security boundary: it trusts token
// presence and lets the upstream API reject invalid tokens when they are
// actually used.
package gate

import (
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/session"
)

// PublicPrefixes are path prefixes reachable without a session: the login
// page, static assets, the API surface, operational endpoints, and dev
// tooling.
var PublicPrefixes = []string{
	"/login",
	"/favicon.ico",
	"/assets",
	"/api",
	"/metrics",
	"/_vite",
	"/@fs",
}

// IsPublic reports whether the path matches the public allow-list.
func IsPublic(path string) bool {
	for _, prefix := range PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// LoginRedirectURL builds the redirect target preserving the original URL
// (path plus query) in the next parameter.
func LoginRedirectURL(r *http.Request) string {
	original := r.URL.Path
	if r.URL.RawQuery != "" {
		original += "?" + r.URL.RawQuery
	}
	return "/login?next=" + url.QueryEscape(original)
}

// Middleware evaluates the allow-list and the session verdict exactly once
// per request. Public paths always pass; everything else requires an
// authenticated verdict or is redirected to the login page.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !session.VerdictFromContext(r.Context()).IsAuthenticated {
			http.Redirect(w, r, LoginRedirectURL(r), http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}
