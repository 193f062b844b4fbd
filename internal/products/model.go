// Package products holds the product model, the upstream fetch helpers, and
// the CRUD proxy endpoints.
package products

// Category is a product category as the upstream API returns it.
type Category struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Image      string `json:"image"`
	CreationAt string `json:"creationAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// Product is a catalog record as the upstream API returns it.
type Product struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Images      []string `json:"images"`
	CreationAt  string   `json:"creationAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// Page is one page of the filtered listing plus the total count of records
// matching the filters without pagination.
type Page struct {
	Products      []Product `json:"products"`
	ProductsCount int       `json:"productsCount"`
}
