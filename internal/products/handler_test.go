package products

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront/internal/session"
	"storefront/internal/upstream"
)

func newTestRouter(t *testing.T, upstreamHandler http.HandlerFunc) chi.Router {
	t.Helper()
	srv := httptest.NewServer(upstreamHandler)
	t.Cleanup(srv.Close)

	r := chi.NewRouter()
	r.Use(session.Middleware)
	NewHandler(upstream.New(srv.URL, 5*time.Second)).RegisterRoutes(r)
	return r
}

func doRequest(r chi.Router, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateRequiresToken(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("Upstream must not be called without a token")
	})

	w := doRequest(r, http.MethodPut, "/products/7", `{"title":"New"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestUpdateRejectsEmptyBody(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("Upstream must not be called for invalid input")
	})

	w := doRequest(r, http.MethodPut, "/products/7", `{}`, "tok")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestUpdateForwardsWithBearer(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPut || req.URL.Path != "/products/7" {
			t.Errorf("Unexpected upstream call %s %s", req.Method, req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		w.Write([]byte(`{"id":7,"title":"New"}`))
	})

	w := doRequest(r, http.MethodPut, "/products/7", `{"title":"New"}`, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"title":"New"`) {
		t.Errorf("Expected updated product passthrough, got %s", w.Body.String())
	}
}

func TestUpdateProxiesUpstreamError(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"product not found"}`))
	})

	w := doRequest(r, http.MethodPut, "/products/999", `{"title":"New"}`, "tok")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected upstream 404 proxied, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "product not found") {
		t.Errorf("Expected upstream body surfaced, got %s", w.Body.String())
	}
}

func TestDelete(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodDelete || req.URL.Path != "/products/7" {
			t.Errorf("Unexpected upstream call %s %s", req.Method, req.URL.Path)
		}
		w.Write([]byte(`true`))
	})

	w := doRequest(r, http.MethodDelete, "/delete", `{"id":"7"}`, "tok")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Product deleted successfully") {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestDeleteNumericID(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/products/7" {
			t.Errorf("Expected numeric id in path, got %s", req.URL.Path)
		}
		w.Write([]byte(`true`))
	})

	w := doRequest(r, http.MethodDelete, "/delete", `{"id":7}`, "tok")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestDeleteMissingID(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("Upstream must not be called without an id")
	})

	for _, body := range []string{`{}`, `{"id":""}`, `{"id":null}`} {
		w := doRequest(r, http.MethodDelete, "/delete", body, "tok")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestDeleteRequiresToken(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("Upstream must not be called without a token")
	})

	w := doRequest(r, http.MethodDelete, "/delete", `{"id":"7"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestCreate(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost || req.URL.Path != "/products" {
			t.Errorf("Unexpected upstream call %s %s", req.Method, req.URL.Path)
		}
		body, _ := io.ReadAll(req.Body)
		got := string(body)
		// Form values arrive as strings and must be coerced.
		if !strings.Contains(got, `"price":49.5`) || !strings.Contains(got, `"categoryId":3`) {
			t.Errorf("Expected coerced numbers, got %s", got)
		}
		if !strings.Contains(got, `"images":[]`) {
			t.Errorf("Expected images defaulted to empty list, got %s", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":101,"title":"Sandal"}`))
	})

	body := `{"title":"Sandal","price":"49.5","description":"Light","categoryId":"3"}`
	w := doRequest(r, http.MethodPost, "/products/new", body, "tok")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"id":101`) {
		t.Errorf("Expected created product passthrough, got %s", w.Body.String())
	}
}

func TestCreateMissingFields(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		t.Error("Upstream must not be called for invalid input")
	})

	bodies := []string{
		`{"price":"10","description":"d","categoryId":"1"}`,
		`{"title":"T","description":"d","categoryId":"1"}`,
		`{"title":"T","price":"10","categoryId":"1"}`,
		`{"title":"T","price":"10","description":"d"}`,
		`{"title":"T","price":"abc","description":"d","categoryId":"1"}`,
		`{"title":"T","price":"0","description":"d","categoryId":"1"}`,
		`{"title":"T","price":0,"description":"d","categoryId":"1"}`,
		`{"title":"T","price":"10","description":"d","categoryId":"0"}`,
	}
	for _, body := range bodies {
		w := doRequest(r, http.MethodPost, "/products/new", body, "tok")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestCreateSurfacesUpstreamMessage(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"category does not exist"}`))
	})

	body := `{"title":"T","price":"10","description":"d","categoryId":"999"}`
	w := doRequest(r, http.MethodPost, "/products/new", body, "tok")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 proxied, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "category does not exist") {
		t.Errorf("Expected upstream message, got %s", w.Body.String())
	}
}
