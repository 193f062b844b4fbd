package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{name: "no credential", want: ""},
		{name: "cookie only", cookie: "abc123", want: "abc123"},
		{name: "bearer only", header: "Bearer xyz", want: "xyz"},
		{name: "cookie wins over header", cookie: "abc", header: "Bearer xyz", want: "abc"},
		{name: "empty cookie falls back to header", cookie: "", header: "Bearer xyz", want: "xyz"},
		{name: "non-bearer header ignored", header: "Basic dXNlcg==", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/products", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if Classify(r).IsAuthenticated {
		t.Error("Expected unauthenticated without credential")
	}

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "tok"})
	if !Classify(r).IsAuthenticated {
		t.Error("Expected authenticated with cookie")
	}
}

func TestMiddlewarePopulatesContext(t *testing.T) {
	var verdict Verdict
	var token string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verdict = VerdictFromContext(r.Context())
		token = TokenFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/products", nil)
	r.Header.Set("Authorization", "Bearer tok-1")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if !verdict.IsAuthenticated {
		t.Error("Expected authenticated verdict in context")
	}
	if token != "tok-1" {
		t.Errorf("Expected token tok-1 in context, got %q", token)
	}
}

func TestVerdictFromContextDefault(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if VerdictFromContext(r.Context()).IsAuthenticated {
		t.Error("Expected fail-closed default verdict")
	}
}
