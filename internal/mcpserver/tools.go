// Package mcpserver exposes the catalog to MCP clients as a set of read-only
// tools over streamable HTTP.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/catalog"
	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/version"
	pkgcatalog "github.com/HerbHall/artiscatalog/pkg/catalog"
	"github.com/HerbHall/artiscatalog/pkg/models"
)

const (
	defaultSearchLimit = 25
	maxSearchLimit     = 200
)

// Engine is the catalog surface the tools read from.
type Engine interface {
	Query(snap filter.Snapshot) ([]models.Product, error)
	Detail(code string) (catalog.Detail, error)
	Related(code string, limit int) ([]models.Product, error)
	Stats() (pkgcatalog.Stats, error)
}

// ProductSummary is the compact product form returned by list tools.
type ProductSummary struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Catalog      string `json:"catalog"`
	Category     string `json:"category"`
	SupplierCode string `json:"supplier_code,omitempty"`
	Matched      bool   `json:"matched"`
	ImageURL     string `json:"image_url,omitempty"`
}

func summarize(products []models.Product) []ProductSummary {
	out := make([]ProductSummary, len(products))
	for i, p := range products {
		out[i] = ProductSummary{
			Code:         p.Code,
			Name:         p.Name,
			Catalog:      string(p.Catalog),
			Category:     p.Category,
			SupplierCode: p.SupplierCode,
			Matched:      p.Matched,
			ImageURL:     p.Lamital.ImageURL,
		}
	}
	return out
}

// SearchInput is the argument of search_products.
type SearchInput struct {
	Query            string   `json:"query,omitempty" jsonschema:"free text matched against code, name, supplier code, category and catalog; typos are tolerated"`
	Catalogs         []string `json:"catalogs,omitempty" jsonschema:"restrict to these catalogs (Artis 1MM, Artvio, Woodrica)"`
	Categories       []string `json:"categories,omitempty" jsonschema:"restrict to these categories"`
	IncludeUnmatched bool     `json:"include_unmatched,omitempty" jsonschema:"include designs without a Lamital match"`
	SortBy           string   `json:"sort_by,omitempty" jsonschema:"name, code or category; defaults to name"`
	SortOrder        string   `json:"sort_order,omitempty" jsonschema:"asc or desc; defaults to asc"`
	Limit            int      `json:"limit,omitempty" jsonschema:"maximum products to return; defaults to 25"`
}

// SearchOutput is the result of search_products.
type SearchOutput struct {
	Count    int              `json:"count"`
	Products []ProductSummary `json:"products"`
}

// CodeInput names one product.
type CodeInput struct {
	Code string `json:"code" jsonschema:"the product code, e.g. 1318"`
}

// RelatedInput is the argument of related_products.
type RelatedInput struct {
	Code  string `json:"code" jsonschema:"the product code"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum related designs; defaults to 6"`
}

// ProductOutput is the result of get_product.
type ProductOutput struct {
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	Catalog         string   `json:"catalog"`
	Category        string   `json:"category"`
	SupplierCode    string   `json:"supplier_code,omitempty"`
	Matched         bool     `json:"matched"`
	ImageURL        string   `json:"image_url,omitempty"`
	Supplier        string   `json:"supplier,omitempty"`
	DetailURL       string   `json:"detail_url,omitempty"`
	Textures        []string `json:"textures"`
	CurrentStock    *float64 `json:"current_stock,omitempty"`
	EstimatedSheets *int     `json:"estimated_sheets,omitempty"`
	StockStatus     string   `json:"stock_status,omitempty"`
}

// RelatedOutput is the result of related_products.
type RelatedOutput struct {
	Code     string           `json:"code"`
	Products []ProductSummary `json:"products"`
}

// StatsOutput is the result of catalog_stats.
type StatsOutput struct {
	Total      int            `json:"total"`
	Matched    int            `json:"matched"`
	ByCatalog  map[string]int `json:"by_catalog"`
	ByCategory map[string]int `json:"by_category"`
}

type tools struct {
	engine  Engine
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewServer builds the MCP server with every catalog tool registered.
func NewServer(engine Engine, logger *zap.Logger, m *metrics.Metrics) *mcp.Server {
	t := &tools{engine: engine, logger: logger, metrics: m}
	s := mcp.NewServer(&mcp.Implementation{Name: "artiscatalog", Title: version.Name, Version: version.Short()}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "search_products",
		Description: "Search and filter the laminate catalog. Results are sorted, not ranked.",
	}, t.searchProducts)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_product",
		Description: "Look up one laminate design by exact code, with textures and stock.",
	}, t.getProduct)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "related_products",
		Description: "Designs related to a product: same category and catalog first, then same category, then same catalog.",
	}, t.relatedProducts)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "catalog_stats",
		Description: "Product counts overall and per catalog and category.",
	}, t.catalogStats)
	return s
}

func (t *tools) searchProducts(_ context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	t.metrics.IncToolCall("search_products")

	snap := filter.DefaultSnapshot()
	snap.SearchQuery = in.Query
	snap.ShowUnmatched = in.IncludeUnmatched
	for _, c := range in.Catalogs {
		snap.Catalogs = append(snap.Catalogs, models.Catalog(c))
	}
	snap.Categories = append(snap.Categories, in.Categories...)
	if in.SortBy != "" {
		k, err := filter.ParseSortKey(in.SortBy)
		if err != nil {
			return nil, SearchOutput{}, err
		}
		snap.SortBy = k
	}
	if in.SortOrder != "" {
		o, err := filter.ParseSortOrder(in.SortOrder)
		if err != nil {
			return nil, SearchOutput{}, err
		}
		snap.SortOrder = o
	}

	products, err := t.engine.Query(snap)
	if err != nil {
		t.logger.Error("search_products failed", zap.Error(err))
		return nil, SearchOutput{}, fmt.Errorf("catalog unavailable")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)
	out := SearchOutput{Count: len(products)}
	if len(products) > limit {
		products = products[:limit]
	}
	out.Products = summarize(products)
	return nil, out, nil
}

func (t *tools) getProduct(_ context.Context, _ *mcp.CallToolRequest, in CodeInput) (*mcp.CallToolResult, ProductOutput, error) {
	t.metrics.IncToolCall("get_product")

	d, err := t.engine.Detail(in.Code)
	if err != nil {
		return nil, ProductOutput{}, fmt.Errorf("product %q: %w", in.Code, err)
	}
	out := ProductOutput{
		Code:            d.Code,
		Name:            d.Name,
		Catalog:         string(d.Catalog),
		Category:        d.Category,
		SupplierCode:    d.SupplierCode,
		Matched:         d.Matched,
		ImageURL:        d.Lamital.ImageURL,
		Supplier:        d.Supplier,
		DetailURL:       d.Lamital.URL,
		Textures:        make([]string, 0, len(d.Textures)),
		CurrentStock:    d.CurrentStock,
		EstimatedSheets: d.EstimatedSheets,
	}
	for _, tx := range d.Textures {
		out.Textures = append(out.Textures, tx.Name)
	}
	if d.StockData != nil {
		out.StockStatus = string(d.StockData.StockStatus)
	}
	return nil, out, nil
}

func (t *tools) relatedProducts(_ context.Context, _ *mcp.CallToolRequest, in RelatedInput) (*mcp.CallToolResult, RelatedOutput, error) {
	t.metrics.IncToolCall("related_products")

	limit := in.Limit
	if limit <= 0 {
		limit = catalog.DefaultRelatedLimit
	}
	related, err := t.engine.Related(in.Code, limit)
	if err != nil {
		return nil, RelatedOutput{}, fmt.Errorf("product %q: %w", in.Code, err)
	}
	return nil, RelatedOutput{Code: in.Code, Products: summarize(related)}, nil
}

func (t *tools) catalogStats(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, StatsOutput, error) {
	t.metrics.IncToolCall("catalog_stats")

	s, err := t.engine.Stats()
	if err != nil {
		t.logger.Error("catalog_stats failed", zap.Error(err))
		return nil, StatsOutput{}, fmt.Errorf("catalog unavailable")
	}
	return nil, StatsOutput{
		Total:      s.Total,
		Matched:    s.Matched,
		ByCatalog:  s.ByCatalog,
		ByCategory: s.ByCategory,
	}, nil
}
