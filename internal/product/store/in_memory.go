package store

import (
	"context"
	"slices"
	"sync"
	"time"

	apperrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/google/uuid"
)

// inMemory implements ProductStore using an ordered slice.
// Insertion order is the natural list order.
type inMemory struct {
	mu       sync.RWMutex
	products []Product
	now      func() time.Time
	newID    func() string
}

// Option configures the in-memory store.
type Option func(*inMemory)

// WithClock overrides the source of creation and update timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *inMemory) {
		s.now = now
	}
}

// WithIDGenerator overrides how product IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *inMemory) {
		s.newID = newID
	}
}

// WithSeed preloads the store with products, kept in the given order.
func WithSeed(products ...Product) Option {
	return func(s *inMemory) {
		s.products = append(s.products, products...)
	}
}

// NewInMemoryStore creates a new instance of ProductStore
func NewInMemoryStore(opts ...Option) ProductStore {
	s := &inMemory{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FindByID retrieves a product by its ID.
func (s *inMemory) FindByID(_ context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, apperrors.ErrProductNotFound
	}
	p := s.products[i]
	return &p, nil
}

// FindAll filters and paginates the catalog.
func (s *inMemory) FindAll(_ context.Context, query ListQuery) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := paginate(filterProducts(s.products, query), query.Page, query.Limit)
	return &page, nil
}

// Search returns all products matching term, without pagination.
func (s *inMemory) Search(_ context.Context, term string) ([]Product, error) {
	if term == "" {
		return nil, apperrors.BadRequest(`Search query parameter "q" is required`)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filterProducts(s.products, ListQuery{Search: term}), nil
}

// Stats computes aggregate statistics.
func (s *inMemory) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := computeStats(s.products)
	return &stats, nil
}

// Create creates a new product and returns it.
func (s *inMemory) Create(_ context.Context, np NewProduct) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := Product{
		ID:          s.newID(),
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Category:    np.Category,
		InStock:     np.InStock,
		CreatedAt:   s.now(),
	}
	if s.indexOf(product.ID) >= 0 {
		return nil, apperrors.ErrDuplicateKey
	}
	s.products = append(s.products, product)

	return &product, nil
}

// Update merges patch into the product and replaces it at its original position.
func (s *inMemory) Update(_ context.Context, id string, patch Patch) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, apperrors.ErrProductNotFound
	}
	updated := patch.apply(s.products[i])
	ts := s.now()
	updated.UpdatedAt = &ts
	s.products[i] = updated

	return &updated, nil
}

// DeleteByID deletes a product by its ID.
func (s *inMemory) DeleteByID(_ context.Context, id string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, apperrors.ErrProductNotFound
	}
	removed := s.products[i]
	s.products = slices.Delete(s.products, i, i+1)

	return &removed, nil
}

// indexOf returns the position of the product with the given ID, or -1. Callers hold the lock.
func (s *inMemory) indexOf(id string) int {
	return slices.IndexFunc(s.products, func(p Product) bool { return p.ID == id })
}
