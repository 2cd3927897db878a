// Package catalog serves the laminate catalog over REST: the filter pipeline
// for one-shot queries, product detail, related designs, reference data, and
// the caller's persisted view preferences.
package catalog

import (
	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/search"
	pkgcatalog "github.com/HerbHall/artiscatalog/pkg/catalog"
	"github.com/HerbHall/artiscatalog/pkg/models"
)

// DefaultRelatedLimit is the number of related designs shown on a detail page.
const DefaultRelatedLimit = 6

// Engine runs the filter pipeline over the embedded catalog. It is shared by
// every surface (REST, live sessions, MCP) and is safe for concurrent use.
type Engine struct {
	cat     *pkgcatalog.Catalog
	index   *search.Index
	metrics *metrics.Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	searchOpts []search.Option
	metrics    *metrics.Metrics
}

// WithSearchOptions tunes the search index.
func WithSearchOptions(opts ...search.Option) EngineOption {
	return func(c *engineConfig) { c.searchOpts = append(c.searchOpts, opts...) }
}

// WithEngineMetrics records pipeline runs in m.
func WithEngineMetrics(m *metrics.Metrics) EngineOption {
	return func(c *engineConfig) { c.metrics = m }
}

// NewEngine creates a new engine backed by the given catalog. The search
// index is built lazily on the first real search.
func NewEngine(cat *pkgcatalog.Catalog, opts ...EngineOption) *Engine {
	var cfg engineConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		cat:     cat,
		index:   search.NewIndex(cat, cfg.searchOpts...),
		metrics: cfg.metrics,
	}
}

// Catalog returns the underlying dataset.
func (e *Engine) Catalog() *pkgcatalog.Catalog { return e.cat }

// Searcher returns the shared search index.
func (e *Engine) Searcher() filter.Searcher { return e.index }

// Query runs the full pipeline for snap over the whole catalog.
func (e *Engine) Query(snap filter.Snapshot) ([]models.Product, error) {
	all, err := e.cat.Products()
	if err != nil {
		return nil, err
	}
	out := filter.Apply(all, snap, e.index)
	e.metrics.ObserveQuery(snap.SearchQuery != "", len(out))
	return out, nil
}

// Detail is a product plus the views derived from it for a detail page.
type Detail struct {
	models.Product
	Textures        []models.Texture            `json:"textures"`
	EstimatedSheets *int                        `json:"estimated_sheets,omitempty"`
	Consumption     []models.MonthlyConsumption `json:"consumption"`
}

// Product looks up a single design by exact code.
func (e *Engine) Product(code string) (models.Product, error) {
	return e.cat.ByCode(code)
}

// Detail returns the product with its textures resolved and its stock figures
// derived.
func (e *Engine) Detail(code string) (Detail, error) {
	p, err := e.cat.ByCode(code)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{
		Product:     p,
		Textures:    make([]models.Texture, 0, len(p.Lamital.Textures)),
		Consumption: pkgcatalog.ActiveConsumption(p.ConsumptionHistory),
	}
	for _, t := range p.Lamital.Textures {
		d.Textures = append(d.Textures, models.LookupTexture(t))
	}
	if p.StockData != nil && p.StockData.CurrentStock != nil {
		n := pkgcatalog.EstimatedSheets(*p.StockData.CurrentStock)
		d.EstimatedSheets = &n
	}
	return d, nil
}

// Related returns up to limit designs related to the product with code.
func (e *Engine) Related(code string, limit int) ([]models.Product, error) {
	p, err := e.cat.ByCode(code)
	if err != nil {
		return nil, err
	}
	return e.cat.Related(p, limit)
}

// Categories returns the distinct non-empty categories, sorted.
func (e *Engine) Categories() ([]string, error) {
	return e.cat.UniqueCategories()
}

// Stats returns the dataset counts.
func (e *Engine) Stats() (pkgcatalog.Stats, error) {
	return e.cat.Stats()
}

// Suggest returns type-ahead completions over the whole catalog.
func (e *Engine) Suggest(query string, limit int) ([]search.Suggestion, error) {
	all, err := e.cat.Products()
	if err != nil {
		return nil, err
	}
	return search.Suggest(all, query, limit), nil
}
