// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"time"
)

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindAll returns one page of the products that match the query, in insertion order.
	FindAll(ctx context.Context, query ListQuery) (*Page, error)

	// Search returns every product whose name or description contains term, case-insensitively.
	// Returns a bad request error if term is empty.
	Search(ctx context.Context, term string) ([]Product, error)

	// Stats returns aggregate statistics over the whole catalog.
	Stats(ctx context.Context) (*Stats, error)

	// Create appends a new product with a fresh ID and creation timestamp.
	Create(ctx context.Context, product NewProduct) (*Product, error)

	// Update merges the fields present in patch over an existing product and stamps UpdatedAt.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id string, patch Patch) (*Product, error)

	// DeleteByID removes a product by its ID and returns the removed record.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) (*Product, error)
}

// Product represents a product entity in the store.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Category    string
	InStock     bool
	CreatedAt   time.Time
	UpdatedAt   *time.Time // nil until the first update
}

// NewProduct holds the client-supplied attributes of a product being created.
type NewProduct struct {
	Name        string
	Description string
	Price       float64
	Category    string
	InStock     bool
}

// Patch holds a partial update. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	InStock     *bool
}

// apply returns a copy of p with the fields present in the patch replaced.
func (patch Patch) apply(p Product) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.InStock != nil {
		p.InStock = *patch.InStock
	}
	return p
}

// ListQuery holds the filters and pagination of a list request.
// Empty filters are not applied; non-positive Page or Limit fall back to the defaults.
type ListQuery struct {
	Search   string
	Category string
	InStock  string
	Page     int
	Limit    int
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRef points at a neighbouring page.
type PageRef struct {
	Page  int
	Limit int
}

// Page is one slice of a filtered product list.
type Page struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	Next       *PageRef
	Previous   *PageRef
	Products   []Product
}

// Stats holds aggregate figures over the catalog.
type Stats struct {
	TotalProducts int
	InStock       int
	OutOfStock    int
	Categories    map[string]int
	AveragePrice  float64
}

// Fixtures returns the products the catalog is seeded with at start-up.
func Fixtures(createdAt time.Time) []Product {
	return []Product{
		{
			ID:          "1",
			Name:        "Laptop",
			Description: "High-performance laptop for developers",
			Price:       999.99,
			Category:    "Electronics",
			InStock:     true,
			CreatedAt:   createdAt,
		},
		{
			ID:          "2",
			Name:        "Coffee Mug",
			Description: "Ceramic coffee mug with company logo",
			Price:       12.99,
			Category:    "Kitchen",
			InStock:     true,
			CreatedAt:   createdAt,
		},
	}
}
