// Package auth proxies login and logout to the upstream identity API and
// owns the session cookie lifecycle.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront/internal/httpx"
	"storefront/internal/session"
	"storefront/internal/upstream"
)

const sessionMaxAge = time.Hour

// Handler serves the auth proxy endpoints.
type Handler struct {
	client *upstream.Client
	secure bool // set Secure on cookies (production / TLS)
}

// NewHandler creates the auth handler. secure controls the cookie Secure flag.
func NewHandler(client *upstream.Client, secure bool) *Handler {
	return &Handler{client: client, secure: secure}
}

// RegisterRoutes mounts the auth endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/logout", h.Logout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login validates the credentials, forwards them upstream, and on success
// sets the HTTP-only session cookie. Upstream detail is never echoed back;
// any rejection is a generic 401.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		httpx.Message(w, http.StatusBadRequest, "email and password required")
		return
	}

	var resp loginResponse
	err := h.client.Do(r.Context(), http.MethodPost, "/auth/login", nil, "", req, &resp)
	if err != nil {
		var ue *upstream.Error
		if errors.As(err, &ue) {
			httpx.Message(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("Login upstream call failed", "error", err)
		httpx.Message(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    resp.AccessToken,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		Expires:  time.Now().Add(sessionMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})

	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Logout clears the session cookie and always succeeds, session or not.
// The cookie is cleared twice: once expired and once with an empty value.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})

	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
