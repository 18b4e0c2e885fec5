// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/catalog/internal/product/store"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*ProductDto, error)

	// FindAll returns one page of products matching the filters.
	FindAll(ctx context.Context, params ListParams) (*PageDto, error)

	// Search returns every product whose name or description contains the term.
	// Returns a bad request error if the term is empty.
	Search(ctx context.Context, term string) (*SearchResultDto, error)

	// Stats returns aggregate statistics over the catalog.
	Stats(ctx context.Context) (*StatsDto, error)

	// Create adds a new product to the catalog.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// Update applies a partial update to an existing product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id string, product ProductUpdateDto) (*ProductDto, error)

	// DeleteByID removes a product by its ID and returns it.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) (*ProductDto, error)
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
}

// NewService creates a new instance of ProductService with the provided repository.
func NewService(repo store.ProductStore) *Service {
	return &Service{
		repository: repo,
	}
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	InStock     bool       `json:"inStock"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	InStock     bool    `json:"inStock"`
}

// ProductUpdateDto represents a partial update. Nil fields are left unchanged.
type ProductUpdateDto struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    *string  `json:"category,omitempty"`
	InStock     *bool    `json:"inStock,omitempty"`
}

// ListParams holds the filters and pagination of a list request.
type ListParams struct {
	Search   string
	Category string
	InStock  string
	Page     int
	Limit    int
}

// PageRefDto points at a neighbouring page.
type PageRefDto struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PageDto represents one page of a product listing.
type PageDto struct {
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
	Next       *PageRefDto  `json:"next,omitempty"`
	Previous   *PageRefDto  `json:"previous,omitempty"`
	Products   []ProductDto `json:"products"`
}

// SearchResultDto represents the result of a free-text search.
type SearchResultDto struct {
	Query   string       `json:"query"`
	Results []ProductDto `json:"results"`
	Count   int          `json:"count"`
}

// StatsDto represents aggregate catalog statistics.
type StatsDto struct {
	TotalProducts int            `json:"totalProducts"`
	InStock       int            `json:"inStock"`
	OutOfStock    int            `json:"outOfStock"`
	Categories    map[string]int `json:"categories"`
	AveragePrice  float64        `json:"averagePrice"`
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id string) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}

	return toDto(product), nil
}

// FindAll retrieves one page of products and returns it as a PageDto.
func (s *Service) FindAll(ctx context.Context, params ListParams) (*PageDto, error) {
	page, err := s.repository.FindAll(ctx, store.ListQuery{
		Search:   params.Search,
		Category: params.Category,
		InStock:  params.InStock,
		Page:     params.Page,
		Limit:    params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	return &PageDto{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Next:       toPageRefDto(page.Next),
		Previous:   toPageRefDto(page.Previous),
		Products:   toDtos(page.Products),
	}, nil
}

// Search returns all products matching the term.
func (s *Service) Search(ctx context.Context, term string) (*SearchResultDto, error) {
	results, err := s.repository.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	return &SearchResultDto{
		Query:   term,
		Results: toDtos(results),
		Count:   len(results),
	}, nil
}

// Stats returns aggregate statistics over the catalog.
func (s *Service) Stats(ctx context.Context) (*StatsDto, error) {
	stats, err := s.repository.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute product stats: %w", err)
	}

	return &StatsDto{
		TotalProducts: stats.TotalProducts,
		InStock:       stats.InStock,
		OutOfStock:    stats.OutOfStock,
		Categories:    stats.Categories,
		AveragePrice:  stats.AveragePrice,
	}, nil
}

// Create creates a new product and returns it as a ProductDto.
// Returns an error if the product cannot be created.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	p, err := s.repository.Create(ctx, store.NewProduct{
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    product.Category,
		InStock:     product.InStock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return toDto(p), nil
}

// Update applies a partial update and returns the updated product as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) Update(ctx context.Context, id string, product ProductUpdateDto) (*ProductDto, error) {
	updated, err := s.repository.Update(ctx, id, store.Patch{
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    product.Category,
		InStock:     product.InStock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}

	return toDto(updated), nil
}

// DeleteByID deletes a product by its ID and returns the removed product.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DeleteByID(ctx context.Context, id string) (*ProductDto, error) {
	removed, err := s.repository.DeleteByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}

	return toDto(removed), nil
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    product.Category,
		InStock:     product.InStock,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i, item := range products {
		dtos[i] = *toDto(&item)
	}
	return dtos
}

func toPageRefDto(ref *store.PageRef) *PageRefDto {
	if ref == nil {
		return nil
	}
	return &PageRefDto{Page: ref.Page, Limit: ref.Limit}
}
