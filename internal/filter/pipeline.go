package filter

import (
	"github.com/HerbHall/artiscatalog/pkg/models"
)

// Searcher narrows a product list to its fuzzy matches for query, best match
// first. Queries below the searcher's minimum length return the input as is.
type Searcher interface {
	Search(products []models.Product, query string) []models.Product
}

// Apply runs the filter pipeline: matched filter, catalog membership,
// category membership, text search, then a stable sort. The input slice is
// never modified and the result is a fresh slice; an empty result is valid.
func Apply(products []models.Product, snap Snapshot, searcher Searcher) []models.Product {
	working := make([]models.Product, 0, len(products))
	catalogs := setOf(snap.Catalogs)
	categories := setOf(snap.Categories)

	for i := range products {
		p := &products[i]
		if !snap.ShowUnmatched && !p.Matched {
			continue
		}
		if len(catalogs) > 0 {
			if _, ok := catalogs[p.Catalog]; !ok {
				continue
			}
		}
		if len(categories) > 0 {
			if _, ok := categories[p.Category]; !ok {
				continue
			}
		}
		working = append(working, *p)
	}

	if snap.SearchQuery != "" && searcher != nil {
		working = searcher.Search(working, snap.SearchQuery)
	}

	return Sort(working, snap.SortBy, snap.SortOrder)
}

// Apply runs the pipeline against the state's current snapshot.
func (s *State) Apply(products []models.Product, searcher Searcher) []models.Product {
	return Apply(products, s.snap, searcher)
}

func setOf[T comparable](items []T) map[T]struct{} {
	m := make(map[T]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
