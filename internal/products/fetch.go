package products

import (
	"context"
	"net/url"

	"golang.org/x/sync/errgroup"

	"storefront/internal/upstream"
)

// Fetcher loads product listings from the upstream API.
type Fetcher struct {
	client *upstream.Client
}

// NewFetcher creates a Fetcher backed by the given upstream client.
func NewFetcher(client *upstream.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchPage loads one listing page for the given filter parameters.
//
// The upstream API does not report a total count for a filtered query, so
// the filtered set is fetched twice, concurrently: once with pagination for
// the page items and once without to count the matches.
func (f *Fetcher) FetchPage(ctx context.Context, params url.Values) (*Page, error) {
	paginated := BuildQueryString(params, false)
	unpaginated := BuildQueryString(params, true)

	var items, all []Product

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.client.Get(ctx, productsPath(paginated), nil, &items)
	})
	g.Go(func() error {
		return f.client.Get(ctx, productsPath(unpaginated), nil, &all)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []Product{}
	}
	return &Page{Products: items, ProductsCount: len(all)}, nil
}

func productsPath(query string) string {
	if query == "" {
		return "/products"
	}
	return "/products?" + query
}
