// Package search provides typo-tolerant, weighted, multi-field product search
// over the laminate catalog.
package search

import (
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/HerbHall/artiscatalog/pkg/models"
)

const (
	// MinQueryLength is the shortest query, in runes, that triggers a search.
	// Shorter queries leave the input untouched.
	MinQueryLength = 2

	// DefaultThreshold is the highest normalized field score that still
	// counts as a match. 0 is exact; 1 matches anything.
	DefaultThreshold = 0.3
)

// Field is one searchable product attribute and its relative importance.
type Field struct {
	Name   string
	Weight float64
	Value  func(p *models.Product) string
}

// DefaultFields ranks a code hit highest, then name, supplier code, category
// and collection.
var DefaultFields = []Field{
	{Name: "code", Weight: 3, Value: func(p *models.Product) string { return p.Code }},
	{Name: "name", Weight: 2, Value: func(p *models.Product) string { return p.Name }},
	{Name: "supplier_code", Weight: 1.5, Value: func(p *models.Product) string { return p.SupplierCode }},
	{Name: "category", Weight: 1, Value: func(p *models.Product) string { return p.Category }},
	{Name: "catalog", Weight: 0.5, Value: func(p *models.Product) string { return string(p.Catalog) }},
}

// Source supplies the full product list the index is built from.
// *catalog.Catalog satisfies it.
type Source interface {
	Products() ([]models.Product, error)
}

// Index is a lazily built search index over the whole catalog. It is built
// once, on the first query of at least MinQueryLength runes, and never
// rebuilt. Queries are then restricted to whatever working set the caller
// passes in. An Index is safe for concurrent use.
type Index struct {
	source    Source
	fields    []Field
	threshold float64
	matcher   Matcher

	once    sync.Once
	built   atomic.Bool
	err     error
	corpus  [][]string
	weights []float64
	byCode  map[string]int
}

// Option configures an Index.
type Option func(*Index)

// WithFields replaces the searchable fields and their weights.
func WithFields(fields []Field) Option {
	return func(ix *Index) { ix.fields = fields }
}

// WithThreshold replaces the match threshold.
func WithThreshold(t float64) Option {
	return func(ix *Index) { ix.threshold = t }
}

// WithMatcher replaces the scoring engine.
func WithMatcher(m Matcher) Option {
	return func(ix *Index) { ix.matcher = m }
}

// NewIndex returns an unbuilt index over src.
func NewIndex(src Source, opts ...Option) *Index {
	ix := &Index{
		source:    src,
		fields:    DefaultFields,
		threshold: DefaultThreshold,
		matcher:   EditDistanceMatcher{},
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Built reports whether the index has been constructed.
func (ix *Index) Built() bool {
	return ix.built.Load()
}

// Err returns the error from building the index, if any.
func (ix *Index) Err() error {
	ix.once.Do(ix.build)
	return ix.err
}

func (ix *Index) build() {
	products, err := ix.source.Products()
	if err != nil {
		ix.err = err
		return
	}

	var total float64
	for _, f := range ix.fields {
		total += f.Weight
	}
	weights := make([]float64, len(ix.fields))
	for i, f := range ix.fields {
		if total > 0 {
			weights[i] = f.Weight / total
		}
	}

	corpus := make([][]string, len(products))
	byCode := make(map[string]int, len(products))
	for i := range products {
		p := &products[i]
		doc := make([]string, len(ix.fields))
		for f, field := range ix.fields {
			doc[f] = strings.ToLower(field.Value(p))
		}
		corpus[i] = doc
		byCode[p.Code] = i
	}

	ix.corpus = corpus
	ix.weights = weights
	ix.byCode = byCode
	ix.built.Store(true)
}

// Search returns the products of the working set that match query, best match
// first, ties in working-set order. Matching ignores case and where in a
// field the query occurs. Surrounding whitespace is ignored. A query shorter
// than MinQueryLength runes returns products unchanged, as does an index that failed to build. The result never
// contains a product that was not in products.
func (ix *Index) Search(products []models.Product, query string) []models.Product {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return products
	}
	if err := ix.Err(); err != nil {
		return products
	}

	docs := make([][]string, 0, len(products))
	positions := make([]int, 0, len(products))
	for i := range products {
		d, ok := ix.byCode[products[i].Code]
		if !ok {
			continue
		}
		docs = append(docs, ix.corpus[d])
		positions = append(positions, i)
	}

	matches := ix.matcher.Match(docs, ix.weights, strings.ToLower(query), ix.threshold)
	out := make([]models.Product, 0, len(matches))
	for _, m := range matches {
		out = append(out, products[positions[m.Index]])
	}
	return out
}
