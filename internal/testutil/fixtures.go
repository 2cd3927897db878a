package testutil

import (
	"github.com/HerbHall/artiscatalog/pkg/models"
)

// NewProduct returns a matched Product with sensible defaults, suitable for
// test fixtures. Override individual fields with the With* options.
func NewProduct(code string, opts ...func(*models.Product)) models.Product {
	p := models.Product{
		Code:         code,
		Name:         "TEST DESIGN " + code,
		Catalog:      models.CatalogArtvio,
		Category:     "Wooden",
		Supplier:     "Test Supplier",
		SupplierCode: "TS-" + code,
		Matched:      true,
		Lamital: models.Lamital{
			URL:      "https://lamital.in/product/" + code,
			ImageURL: "https://lamital.in/public/storage/product/" + code + ".jpg",
			Textures: []string{"SMT"},
		},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithName sets the product display name.
func WithName(name string) func(*models.Product) {
	return func(p *models.Product) { p.Name = name }
}

// WithCatalog sets the product's collection.
func WithCatalog(c models.Catalog) func(*models.Product) {
	return func(p *models.Product) { p.Catalog = c }
}

// WithCategory sets the product category. Pass "" for an uncategorized product.
func WithCategory(category string) func(*models.Product) {
	return func(p *models.Product) { p.Category = category }
}

// WithSupplierCode sets the supplier's reference code.
func WithSupplierCode(code string) func(*models.Product) {
	return func(p *models.Product) { p.SupplierCode = code }
}

// Unmatched marks the product as a new, unverified design.
func Unmatched() func(*models.Product) {
	return func(p *models.Product) { p.Matched = false }
}
