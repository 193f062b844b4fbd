package products

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storefront/internal/httpx"
	"storefront/internal/session"
	"storefront/internal/upstream"
)

// Handler serves the product CRUD proxy endpoints. Each endpoint requires a
// session token, validates the minimal required fields locally, and forwards
// the call upstream with the bearer credential attached. Upstream rejections
// are re-surfaced with the upstream status code.
type Handler struct {
	client *upstream.Client
}

// NewHandler creates the CRUD proxy handler.
func NewHandler(client *upstream.Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes mounts the CRUD endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Put("/products/{id}", h.Update)
	r.Delete("/delete", h.Delete)
	r.Post("/products/new", h.Create)
}

// Update forwards a partial product update. Safe to retry.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromContext(r.Context())
	if token == "" {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		httpx.Error(w, http.StatusBadRequest, "Missing product id")
		return
	}

	var update map[string]interface{}
	if err := httpx.DecodeJSON(r, &update); err != nil || len(update) == 0 {
		httpx.Error(w, http.StatusBadRequest, "No update data provided")
		return
	}

	var updated json.RawMessage
	err := h.client.Do(r.Context(), http.MethodPut, "/products/"+id, nil, token, update, &updated)
	if err != nil {
		h.proxyError(w, "update", err)
		return
	}

	writeRaw(w, http.StatusOK, updated)
}

type deleteRequest struct {
	ID interface{} `json:"id"`
}

// Delete forwards a product deletion. The id arrives in the body because
// that is the client contract; it may be a string or a number.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromContext(r.Context())
	if token == "" {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	var req deleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Missing product id")
		return
	}
	id, ok := idString(req.ID)
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Missing product id")
		return
	}

	err := h.client.Do(r.Context(), http.MethodDelete, "/products/"+id, nil, token, nil, nil)
	if err != nil {
		h.proxyError(w, "delete", err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

type createRequest struct {
	Title       string      `json:"title"`
	Price       interface{} `json:"price"`
	Description string      `json:"description"`
	CategoryID  interface{} `json:"categoryId"`
	Images      []string    `json:"images"`
}

// Create forwards a new product. Price and categoryId arrive as strings from
// the form and are coerced to numbers; images defaults to an empty list.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromContext(r.Context())
	if token == "" {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized: No token provided")
		return
	}

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	// Zero counts as missing, same as an absent field.
	price, priceOK := toNumber(req.Price)
	categoryID, categoryOK := toNumber(req.CategoryID)
	if req.Title == "" || req.Description == "" || !priceOK || price == 0 || !categoryOK || categoryID == 0 {
		httpx.Error(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	images := req.Images
	if images == nil {
		images = []string{}
	}

	payload := map[string]interface{}{
		"title":       req.Title,
		"price":       price,
		"description": req.Description,
		"categoryId":  int(categoryID),
		"images":      images,
	}

	var created json.RawMessage
	err := h.client.Do(r.Context(), http.MethodPost, "/products", nil, token, payload, &created)
	if err != nil {
		var ue *upstream.Error
		if errors.As(err, &ue) {
			// The create form surfaces the upstream message text, not the body.
			httpx.Error(w, ue.Status, ue.Message())
			return
		}
		slog.Error("Product create failed", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeRaw(w, http.StatusCreated, created)
}

func (h *Handler) proxyError(w http.ResponseWriter, op string, err error) {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		httpx.JSON(w, ue.Status, map[string]json.RawMessage{"error": ue.Body})
		return
	}
	slog.Error("Product "+op+" failed", "error", err)
	httpx.Error(w, http.StatusInternalServerError, "Internal server error")
}

func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Failed to write proxied body", "error", err)
	}
}

// idString renders a JSON id value (string or number) as a path segment.
func idString(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}

// toNumber coerces a JSON value (number or numeric string) to a float.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if n == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
