package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/artiscatalog/pkg/models"
)

//go:embed products.yaml
var productsRawData []byte

// ErrNotFound is returned when no product carries the requested code.
var ErrNotFound = errors.New("product not found")

// productsFile is the top-level structure of the embedded YAML.
type productsFile struct {
	Products []models.Product `yaml:"products"`
}

// Catalog provides lazy-loaded, read-only access to the product dataset.
// The dataset never changes after it has been parsed.
type Catalog struct {
	raw []byte

	once     sync.Once
	products []models.Product
	byCode   map[string]int
	err      error
}

// NewCatalog creates a Catalog that will parse the embedded YAML on first access.
func NewCatalog() *Catalog {
	return &Catalog{raw: productsRawData}
}

// FromYAML creates a Catalog backed by the given YAML document instead of the
// embedded dataset.
func FromYAML(data []byte) *Catalog {
	return &Catalog{raw: data}
}

// FromProducts creates a Catalog over an in-memory product slice. The slice is
// copied and validated immediately.
func FromProducts(products []models.Product) (*Catalog, error) {
	c := &Catalog{}
	c.once.Do(func() {
		c.setProducts(append([]models.Product(nil), products...))
	})
	if c.err != nil {
		return nil, c.err
	}
	return c, nil
}

// Load forces the dataset to be parsed and validated, returning any error.
func (c *Catalog) Load() error {
	c.once.Do(c.load)
	return c.err
}

// Len returns the number of products, or zero if the dataset failed to load.
func (c *Catalog) Len() int {
	if err := c.Load(); err != nil {
		return 0
	}
	return len(c.products)
}

// load parses the raw YAML product data.
func (c *Catalog) load() {
	var f productsFile
	if err := yaml.Unmarshal(c.raw, &f); err != nil {
		c.err = fmt.Errorf("catalog: parse yaml: %w", err)
		return
	}
	c.setProducts(f.Products)
}

func (c *Catalog) setProducts(products []models.Product) {
	byCode := make(map[string]int, len(products))
	for i := range products {
		p := &products[i]
		if p.Code == "" {
			c.err = fmt.Errorf("catalog: product %d has no code", i)
			return
		}
		if !p.Catalog.Valid() {
			c.err = fmt.Errorf("catalog: product %q has unknown catalog %q", p.Code, p.Catalog)
			return
		}
		if _, dup := byCode[p.Code]; dup {
			c.err = fmt.Errorf("catalog: duplicate product code %q", p.Code)
			return
		}
		byCode[p.Code] = i
	}
	c.products = products
	c.byCode = byCode
}
