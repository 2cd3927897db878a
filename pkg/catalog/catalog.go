// Package catalog exposes the immutable laminate product dataset and the
// read-only views derived from it.
package catalog

import (
	"sort"

	"github.com/HerbHall/artiscatalog/pkg/models"
)

// Stats holds counts derived from the full dataset.
type Stats struct {
	Total      int            `json:"total"`
	Matched    int            `json:"matched"`
	ByCatalog  map[string]int `json:"by_catalog"`
	ByCategory map[string]int `json:"by_category"`
}

// Products returns a copy of every product in source order.
func (c *Catalog) Products() ([]models.Product, error) {
	if err := c.Load(); err != nil {
		return nil, err
	}
	cp := make([]models.Product, len(c.products))
	copy(cp, c.products)
	return cp, nil
}

// ByCode returns the product whose code equals code exactly.
func (c *Catalog) ByCode(code string) (models.Product, error) {
	if err := c.Load(); err != nil {
		return models.Product{}, err
	}
	i, ok := c.byCode[code]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return c.products[i], nil
}

// Matched returns the verified products in source order.
func (c *Catalog) Matched() ([]models.Product, error) {
	return c.where(func(p *models.Product) bool { return p.Matched })
}

// ByCatalog returns the products belonging to the named collection.
func (c *Catalog) ByCatalog(name models.Catalog) ([]models.Product, error) {
	return c.where(func(p *models.Product) bool { return p.Catalog == name })
}

// ByCategory returns the products carrying the given category label.
func (c *Catalog) ByCategory(category string) ([]models.Product, error) {
	return c.where(func(p *models.Product) bool { return p.Category == category })
}

// UniqueCategories returns the distinct non-empty categories, sorted.
func (c *Catalog) UniqueCategories() ([]string, error) {
	if err := c.Load(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range c.products {
		cat := c.products[i].Category
		if cat == "" {
			continue
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	sort.Strings(out)
	return out, nil
}

// Stats recomputes the dataset counts on every call.
func (c *Catalog) Stats() (Stats, error) {
	if err := c.Load(); err != nil {
		return Stats{}, err
	}
	s := Stats{
		Total:      len(c.products),
		ByCatalog:  make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for i := range c.products {
		p := &c.products[i]
		if p.Matched {
			s.Matched++
		}
		s.ByCatalog[string(p.Catalog)]++
		if p.Category != "" {
			s.ByCategory[p.Category]++
		}
	}
	return s, nil
}

// Related returns up to limit other products ranked in three tiers: same
// catalog and category, then same category in any catalog, then same catalog
// in any category. A product appears at most once and the source product is
// never included.
func (c *Catalog) Related(product models.Product, limit int) ([]models.Product, error) {
	if err := c.Load(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []models.Product{}, nil
	}

	tiers := []func(p *models.Product) bool{
		func(p *models.Product) bool {
			return p.Catalog == product.Catalog && p.Category == product.Category
		},
		func(p *models.Product) bool { return p.Category == product.Category },
		func(p *models.Product) bool { return p.Catalog == product.Catalog },
	}

	picked := map[string]struct{}{product.Code: {}}
	out := make([]models.Product, 0, limit)
	for _, match := range tiers {
		for i := range c.products {
			p := &c.products[i]
			if _, ok := picked[p.Code]; ok || !match(p) {
				continue
			}
			picked[p.Code] = struct{}{}
			out = append(out, *p)
			if len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (c *Catalog) where(keep func(p *models.Product) bool) ([]models.Product, error) {
	if err := c.Load(); err != nil {
		return nil, err
	}
	out := make([]models.Product, 0)
	for i := range c.products {
		if keep(&c.products[i]) {
			out = append(out, c.products[i])
		}
	}
	return out, nil
}
