package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() []Product {
	return []Product{
		{ID: "1", Name: "Laptop", Description: "High-performance laptop for developers", Price: 999.99, Category: "Electronics", InStock: true},
		{ID: "2", Name: "Coffee Mug", Description: "Ceramic coffee mug with company logo", Price: 12.99, Category: "Kitchen", InStock: true},
		{ID: "3", Name: "Headphones", Description: "Noise cancelling, great for coffee shops", Price: 199.5, Category: "electronics", InStock: false},
		{ID: "4", Name: "Teapot", Description: "Cast iron teapot", Price: 45, Category: "Kitchen", InStock: false},
	}
}

func ids(products []Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func Test_filterProducts(t *testing.T) {
	testCases := []struct {
		name     string
		query    ListQuery
		expected []string
	}{
		{name: "no filters keeps everything in order", query: ListQuery{}, expected: []string{"1", "2", "3", "4"}},
		{name: "search matches name case-insensitively", query: ListQuery{Search: "LAPTOP"}, expected: []string{"1"}},
		{name: "search matches description", query: ListQuery{Search: "coffee"}, expected: []string{"2", "3"}},
		{name: "category is case-insensitive equality", query: ListQuery{Category: "kitchen"}, expected: []string{"2", "4"}},
		{name: "category does not match substrings", query: ListQuery{Category: "kitch"}, expected: []string{}},
		{name: "inStock true", query: ListQuery{InStock: "true"}, expected: []string{"1", "2"}},
		{name: "inStock false", query: ListQuery{InStock: "false"}, expected: []string{"3", "4"}},
		{name: "inStock other string means false", query: ListQuery{InStock: "yes"}, expected: []string{"3", "4"}},
		{name: "inStock TRUE is not the literal true", query: ListQuery{InStock: "TRUE"}, expected: []string{"3", "4"}},
		{name: "filters combine", query: ListQuery{Search: "coffee", Category: "ELECTRONICS", InStock: "false"}, expected: []string{"3"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			catalog := sampleCatalog()
			// when
			got := filterProducts(catalog, tc.query)
			// then
			assert.Equal(t, tc.expected, ids(got))
			assert.Equal(t, sampleCatalog(), catalog, "input must not be modified")
		})
	}
}

func Test_paginate(t *testing.T) {
	catalog := make([]Product, 25)
	for i := range catalog {
		catalog[i] = Product{ID: fmt.Sprintf("%d", i+1)}
	}

	testCases := []struct {
		name             string
		page, limit      int
		expectedIDs      []string
		expectedNext     *PageRef
		expectedPrevious *PageRef
		expectedPages    int
	}{
		{
			name: "first page", page: 1, limit: 10,
			expectedIDs:   []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
			expectedNext:  &PageRef{Page: 2, Limit: 10},
			expectedPages: 3,
		},
		{
			name: "last partial page", page: 3, limit: 10,
			expectedIDs:      []string{"21", "22", "23", "24", "25"},
			expectedPrevious: &PageRef{Page: 2, Limit: 10},
			expectedPages:    3,
		},
		{
			name: "page past the end is empty but keeps previous", page: 5, limit: 10,
			expectedIDs:      []string{},
			expectedPrevious: &PageRef{Page: 4, Limit: 10},
			expectedPages:    3,
		},
		{
			name: "defaults replace non-positive values", page: 0, limit: -1,
			expectedIDs:   []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
			expectedNext:  &PageRef{Page: 2, Limit: 10},
			expectedPages: 3,
		},
		{
			name: "exact fit has no next", page: 1, limit: 25,
			expectedIDs:   ids(catalog),
			expectedPages: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			got := paginate(catalog, tc.page, tc.limit)
			// then
			assert.Equal(t, 25, got.Total)
			assert.Equal(t, tc.expectedPages, got.TotalPages)
			assert.Equal(t, tc.expectedIDs, ids(got.Products))
			assert.Equal(t, tc.expectedNext, got.Next)
			assert.Equal(t, tc.expectedPrevious, got.Previous)
		})
	}
}

func Test_paginate_PagesCoverTotal(t *testing.T) {
	for total := 0; total <= 23; total++ {
		for limit := 1; limit <= 7; limit++ {
			catalog := make([]Product, total)
			first := paginate(catalog, 1, limit)
			require.Equal(t, (total+limit-1)/limit, first.TotalPages)

			seen := 0
			for page := 1; page <= first.TotalPages; page++ {
				got := paginate(catalog, page, limit)
				seen += len(got.Products)
				assert.Equal(t, page*limit < total, got.Next != nil, "next for total=%d limit=%d page=%d", total, limit, page)
				assert.Equal(t, page > 1, got.Previous != nil, "previous for total=%d limit=%d page=%d", total, limit, page)
			}
			assert.Equal(t, total, seen, "total=%d limit=%d", total, limit)
		}
	}
}

func Test_computeStats(t *testing.T) {
	t.Run("fixtures", func(t *testing.T) {
		// when
		stats := computeStats(Fixtures(time.Now()))
		// then
		assert.Equal(t, Stats{
			TotalProducts: 2,
			InStock:       2,
			OutOfStock:    0,
			Categories:    map[string]int{"Electronics": 1, "Kitchen": 1},
			AveragePrice:  506.49,
		}, stats)
	})

	t.Run("empty catalog has zero average", func(t *testing.T) {
		stats := computeStats(nil)
		assert.Equal(t, 0, stats.TotalProducts)
		assert.Zero(t, stats.AveragePrice)
		assert.Empty(t, stats.Categories)
	})

	t.Run("counts add up", func(t *testing.T) {
		stats := computeStats(sampleCatalog())

		assert.Equal(t, stats.TotalProducts, stats.InStock+stats.OutOfStock)
		sum := 0
		for _, n := range stats.Categories {
			sum += n
		}
		assert.Equal(t, stats.TotalProducts, sum)
		// category keys keep their original spelling
		assert.Equal(t, map[string]int{"Electronics": 1, "electronics": 1, "Kitchen": 2}, stats.Categories)
		assert.Equal(t, 314.37, stats.AveragePrice)
	})
}

func Test_computeStats_AverageRoundsToCents(t *testing.T) {
	testCases := []struct {
		name     string
		prices   []float64
		expected float64
	}{
		{name: "mean stored just above half a cent rounds up", prices: []float64{20.01, 0}, expected: 10.01},
		{name: "sum stored just below half a cent rounds down", prices: []float64{10.00, 10.01}, expected: 10},
		{name: "half a cent below the binary tie rounds down", prices: []float64{0.01, 0.02}, expected: 0.01},
		{name: "exact binary half rounds up", prices: []float64{0.125}, expected: 0.13},
		{name: "exact binary half from a mean", prices: []float64{0.5, 0.75}, expected: 0.63},
		{name: "decimal half stored just below", prices: []float64{1.005}, expected: 1},
		{name: "decimal half stored just below, larger", prices: []float64{2.675}, expected: 2.67},
		{name: "already whole cents", prices: []float64{999.99, 12.99}, expected: 506.49},
		{name: "free products", prices: []float64{0, 0}, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			products := make([]Product, len(tc.prices))
			for i, price := range tc.prices {
				products[i] = Product{ID: fmt.Sprint(i), Price: price, Category: "c"}
			}

			// when
			stats := computeStats(products)

			// then
			assert.Equal(t, tc.expected, stats.AveragePrice)
		})
	}
}
