package store

import (
	"math/big"
	"strings"
)

// filterProducts applies the search, category and stock filters of q, in that order.
// The input slice is never modified.
func filterProducts(products []Product, q ListQuery) []Product {
	filtered := products
	if q.Search != "" {
		term := strings.ToLower(q.Search)
		filtered = keep(filtered, func(p Product) bool { return matchesTerm(p, term) })
	}
	if q.Category != "" {
		filtered = keep(filtered, func(p Product) bool { return strings.EqualFold(p.Category, q.Category) })
	}
	if q.InStock != "" {
		// only the literal "true" selects in-stock products, anything else selects the rest
		inStock := q.InStock == "true"
		filtered = keep(filtered, func(p Product) bool { return p.InStock == inStock })
	}
	return filtered
}

// matchesTerm reports whether the lower-cased term occurs in the product name or description.
func matchesTerm(p Product, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(p.Name), lowerTerm) ||
		strings.Contains(strings.ToLower(p.Description), lowerTerm)
}

func keep(products []Product, pred func(Product) bool) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// paginate cuts the page-th window of size limit out of filtered.
func paginate(filtered []Product, page, limit int) Page {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	total := len(filtered)
	start := (page - 1) * limit
	end := page * limit

	result := Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	if end < total {
		result.Next = &PageRef{Page: page + 1, Limit: limit}
	}
	if start > 0 {
		result.Previous = &PageRef{Page: page - 1, Limit: limit}
	}

	lo, hi := min(start, total), min(end, total)
	result.Products = append(make([]Product, 0, hi-lo), filtered[lo:hi]...)
	return result
}

// computeStats aggregates counts per stock state and category, and the mean price rounded to cents.
func computeStats(products []Product) Stats {
	stats := Stats{
		TotalProducts: len(products),
		Categories:    make(map[string]int),
	}
	var totalPrice float64
	for _, p := range products {
		if p.InStock {
			stats.InStock++
		} else {
			stats.OutOfStock++
		}
		stats.Categories[p.Category]++
		totalPrice += p.Price
	}
	if len(products) > 0 {
		stats.AveragePrice = roundCents(totalPrice / float64(len(products)))
	}
	return stats
}

// roundCents rounds a non-negative amount to two decimals from its exact binary value,
// so 10.005000000000000782 becomes 10.01 and 0.014999999999999999 becomes 0.01.
// Exact halves round up.
func roundCents(amount float64) float64 {
	exact := new(big.Rat).SetFloat64(amount)
	if exact == nil {
		return amount
	}
	exact.Mul(exact, big.NewRat(100, 1))
	exact.Add(exact, big.NewRat(1, 2))
	cents := new(big.Int).Quo(exact.Num(), exact.Denom())
	rounded, _ := new(big.Rat).SetFrac(cents, big.NewInt(100)).Float64()
	return rounded
}
