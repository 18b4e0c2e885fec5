package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns strictly increasing timestamps.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) (ProductStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	seq := 0
	s := NewInMemoryStore(
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("gen-%d", seq)
		}),
		WithSeed(Fixtures(clock.Now())...),
	)
	return s, clock
}

func ptr[T any](v T) *T { return &v }

func Test_InMemory_CreateAndFindByID(t *testing.T) {
	// given
	s, _ := newTestStore(t)
	ctx := context.Background()
	toCreate := NewProduct{Name: "Desk", Description: "Standing desk", Price: 350, Category: "Furniture", InStock: false}

	// when
	created, err := s.Create(ctx, toCreate)

	// then
	require.NoError(t, err)
	assert.Equal(t, "gen-1", created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Nil(t, created.UpdatedAt)

	found, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
	assert.Equal(t, toCreate.Name, found.Name)
	assert.Equal(t, toCreate.Description, found.Description)
	assert.Equal(t, toCreate.Price, found.Price)
	assert.Equal(t, toCreate.Category, found.Category)
	assert.Equal(t, toCreate.InStock, found.InStock)

	page, err := s.FindAll(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "gen-1"}, ids(page.Products), "new products are appended")
}

func Test_InMemory_FindByID_NotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.FindByID(context.Background(), "missing")

	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
}

func Test_InMemory_Create_DuplicateID(t *testing.T) {
	// given an ID generator that collides with a fixture
	s := NewInMemoryStore(
		WithIDGenerator(func() string { return "1" }),
		WithSeed(Fixtures(time.Now())...),
	)

	// when
	_, err := s.Create(context.Background(), NewProduct{Name: "Clash"})

	// then
	assert.ErrorIs(t, err, apperrors.ErrDuplicateKey)
	page, _ := s.FindAll(context.Background(), ListQuery{})
	assert.Equal(t, 2, page.Total)
}

func Test_InMemory_Update(t *testing.T) {
	// given
	s, _ := newTestStore(t)
	ctx := context.Background()
	before, err := s.FindByID(ctx, "2")
	require.NoError(t, err)

	// when
	updated, err := s.Update(ctx, "2", Patch{Price: ptr(14.5), InStock: ptr(false)})

	// then
	require.NoError(t, err)
	assert.Equal(t, 14.5, updated.Price)
	assert.False(t, updated.InStock)
	assert.Equal(t, before.Name, updated.Name)
	assert.Equal(t, before.Description, updated.Description)
	assert.Equal(t, before.Category, updated.Category)
	assert.Equal(t, before.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, updated.UpdatedAt.After(before.CreatedAt))

	page, err := s.FindAll(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(page.Products), "order is preserved")

	again, err := s.Update(ctx, "2", Patch{})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(*updated.UpdatedAt), "every update refreshes UpdatedAt")
}

func Test_InMemory_Update_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, "missing", Patch{Name: ptr("x")})

	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	page, _ := s.FindAll(ctx, ListQuery{})
	assert.Equal(t, Fixtures(time.Time{})[0].Name, page.Products[0].Name)
	assert.Equal(t, 2, page.Total)
}

func Test_InMemory_DeleteByID(t *testing.T) {
	testCases := []struct {
		name          string
		id            string
		expectError   error
		expectedTotal int
	}{
		{name: "Success - product deleted", id: "1", expectedTotal: 1},
		{name: "Error - product not found", id: "404", expectError: apperrors.ErrProductNotFound, expectedTotal: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s, _ := newTestStore(t)
			ctx := context.Background()
			// when
			removed, err := s.DeleteByID(ctx, tc.id)
			// then
			page, _ := s.FindAll(ctx, ListQuery{})
			assert.Equal(t, tc.expectedTotal, page.Total)
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, removed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.id, removed.ID)
			_, err = s.FindByID(ctx, tc.id)
			assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
		})
	}
}

func Test_InMemory_Search(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	results, err := s.Search(ctx, "MUG")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(results))

	results, err = s.Search(ctx, "nothing-like-this")
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = s.Search(ctx, "")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindBadRequest, appErr.Kind)
}

func Test_InMemory_FindAll_CategoryFixture(t *testing.T) {
	s, _ := newTestStore(t)

	page, err := s.FindAll(context.Background(), ListQuery{Category: "kitchen"})

	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Coffee Mug", page.Products[0].Name)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)
}

func Test_InMemory_Stats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 506.49, stats.AveragePrice)
	assert.Equal(t, map[string]int{"Electronics": 1, "Kitchen": 1}, stats.Categories)

	_, _ = s.DeleteByID(ctx, "1")
	_, _ = s.DeleteByID(ctx, "2")
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalProducts)
	assert.Zero(t, stats.AveragePrice)
}

func Test_InMemory_ConcurrentUpdates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, "1", Patch{Price: ptr(float64(i))})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, "1", Patch{Name: ptr(fmt.Sprintf("Laptop %d", i))})
		}()
	}
	wg.Wait()

	got, err := s.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "High-performance laptop for developers", got.Description)
	assert.Equal(t, "Electronics", got.Category)
}
