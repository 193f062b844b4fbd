// Package prefetch populates the request-scoped query cache with the data
// the first paint needs, before streaming render begins.
package prefetch

import (
	"context"
	"net/url"

	"storefront/internal/products"
	"storefront/internal/querycache"
)

// ProductsKey builds the cache key for a products listing query. The second
// segment is the normalized query string, which is exactly what the client
// uses, so hydration hits without a refetch.
func ProductsKey(params url.Values) querycache.Key {
	return querycache.Key{"products", products.BuildQueryString(params, false)}
}

// Orchestrator fills a per-request cache from the upstream API.
type Orchestrator struct {
	fetcher *products.Fetcher
}

// New creates an orchestrator backed by the given fetcher.
func New(fetcher *products.Fetcher) *Orchestrator {
	return &Orchestrator{fetcher: fetcher}
}

// Populate runs every prefetch the initial view depends on. It must finish
// before rendering starts: the cache is immutable input to the render, and
// strict sequencing is what rules out a prefetch/render race for a key.
//
// Today that is the single products listing query derived from the incoming
// query parameters.
func (o *Orchestrator) Populate(ctx context.Context, cache *querycache.Cache, rawQuery string) error {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		// An unparseable query degrades to the unfiltered first page.
		params = url.Values{}
	}

	return cache.Prefetch(ctx, ProductsKey(params), func(ctx context.Context) (interface{}, error) {
		return o.fetcher.FetchPage(ctx, params)
	})
}
