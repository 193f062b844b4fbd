package products

import (
	"net/url"
	"strconv"
	"strings"
)

// PerPageDefault is the listing page size.
const PerPageDefault = 12

// Recognized filter parameters. Anything else in the incoming query string
// is dropped before the query reaches the upstream API.
const (
	FilterTitle      = "title"
	FilterPriceMin   = "price_min"
	FilterPriceMax   = "price_max"
	FilterCategoryID = "categoryId"
	FilterOffset     = "offset"
	FilterPage       = "page"
	FilterLimit      = "limit"
)

// BuildQueryString validates the incoming filter parameters and builds the
// upstream query string. Parameters appear in a fixed order (title, price
// bounds, category, offset, limit) because the result doubles as a cache key
// segment and must be reproducible byte for byte.
//
// The price bounds are only kept as a pair: both must be positive and max
// must not be below min, otherwise both are dropped. Pagination is expressed
// as offset/limit, with page N translating to offset (N-1)*PerPageDefault.
func BuildQueryString(params url.Values, withoutPagination bool) string {
	var parts []string
	add := func(key, value string) {
		parts = append(parts, key+"="+url.QueryEscape(value))
	}

	if title := strings.TrimSpace(params.Get(FilterTitle)); title != "" {
		add(FilterTitle, title)
	}

	priceMin, minErr := strconv.ParseFloat(params.Get(FilterPriceMin), 64)
	priceMax, maxErr := strconv.ParseFloat(params.Get(FilterPriceMax), 64)
	if minErr == nil && maxErr == nil && priceMin > 0 && priceMax > 0 && priceMax >= priceMin {
		add(FilterPriceMin, formatNumber(priceMin))
		add(FilterPriceMax, formatNumber(priceMax))
	}

	if categoryID := strings.TrimSpace(params.Get(FilterCategoryID)); categoryID != "" {
		add(FilterCategoryID, categoryID)
	}

	if !withoutPagination {
		offset := 0
		if page, err := strconv.Atoi(params.Get(FilterPage)); err == nil && page > 0 {
			offset = (page - 1) * PerPageDefault
		}
		add(FilterOffset, strconv.Itoa(offset))

		limit := PerPageDefault
		if l, err := strconv.Atoi(params.Get(FilterLimit)); err == nil && l > 0 {
			limit = l
		}
		add(FilterLimit, strconv.Itoa(limit))
	}

	return strings.Join(parts, "&")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
