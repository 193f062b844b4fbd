package view

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"storefront/internal/prefetch"
	"storefront/internal/products"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateRenderer renders the route table with html/template.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses the embedded page templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	t, err := template.New("view").Funcs(template.FuncMap{
		"until": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"inc": func(n int) int { return n + 1 },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse view templates: %w", err)
	}
	return &TemplateRenderer{templates: t}, nil
}

// Render resolves the route and streams the page markup. Chunks follow the
// template engine's write granularity; the sentinel is always the final
// chunk of a completed stream.
func (tr *TemplateRenderer) Render(ctx context.Context, req Request) (*Stream, error) {
	name, data := tr.route(req)
	tmpl := tr.templates.Lookup(name)
	if tmpl == nil {
		return nil, fmt.Errorf("no template for route %q", req.Path)
	}

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Chunk, 16)
	s := NewStream(ch, cancel)

	go func() {
		defer close(ch)
		w := &chunkWriter{ctx: ctx, ch: ch}

		if err := tmpl.Execute(w, data); err != nil {
			if ctx.Err() != nil {
				return
			}
			select {
			case ch <- Chunk{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case ch <- Chunk{Data: []byte(Sentinel)}:
		case <-ctx.Done():
		}
	}()

	return s, nil
}

func (tr *TemplateRenderer) route(req Request) (string, interface{}) {
	switch {
	case req.Path == "/login":
		return "login.tmpl", loginData{Next: req.Query.Get("next")}
	case req.Path == "/products":
		return "products.tmpl", tr.productsData(req)
	case req.Path == "/products/new":
		return "product_new.tmpl", nil
	case strings.HasPrefix(req.Path, "/products/"):
		return "product_details.tmpl", detailsData{ID: strings.TrimPrefix(req.Path, "/products/")}
	default:
		return "not_found.tmpl", notFoundData{Path: req.Path}
	}
}

type loginData struct {
	Next string
}

type detailsData struct {
	ID string
}

type notFoundData struct {
	Path string
}

type productsData struct {
	Page        *products.Page
	CurrentPage int
	TotalPages  int
	Title       string
	CategoryID  string
	PriceMin    string
	PriceMax    string
}

// productsData reads the listing from the prefetched cache. A missing entry
// (failed prefetch) renders the placeholder state; the client retries the
// query after hydration.
func (tr *TemplateRenderer) productsData(req Request) productsData {
	data := productsData{
		CurrentPage: 1,
		Title:       req.Query.Get(products.FilterTitle),
		CategoryID:  req.Query.Get(products.FilterCategoryID),
		PriceMin:    req.Query.Get(products.FilterPriceMin),
		PriceMax:    req.Query.Get(products.FilterPriceMax),
	}
	if page := req.Query.Get(products.FilterPage); page != "" {
		fmt.Sscanf(page, "%d", &data.CurrentPage)
		if data.CurrentPage < 1 {
			data.CurrentPage = 1
		}
	}

	if req.Cache == nil {
		return data
	}
	cached, ok := req.Cache.Get(prefetch.ProductsKey(req.Query))
	if !ok {
		return data
	}
	page, ok := cached.(*products.Page)
	if !ok {
		return data
	}

	data.Page = page
	data.TotalPages = (page.ProductsCount + products.PerPageDefault - 1) / products.PerPageDefault
	if data.TotalPages < 1 {
		data.TotalPages = 1
	}
	return data
}

// chunkWriter turns template writes into stream chunks. A cancelled context
// surfaces as a write error, which stops template execution mid-stream.
type chunkWriter struct {
	ctx context.Context
	ch  chan<- Chunk
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(p))
	copy(buf, p)

	select {
	case w.ch <- Chunk{Data: buf}:
		return len(p), nil
	case <-w.ctx.Done():
		return 0, w.ctx.Err()
	}
}
