package filter

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/HerbHall/artiscatalog/pkg/models"
)

// sortLocale is the collation locale for names and categories.
var sortLocale = language.English

// Sort returns a stably sorted copy of products. Codes compare with numeric
// collation, so each run of digits orders by value ("A9" < "A10",
// "A2B9" < "A2B10"). Names and categories use locale collation, with a
// missing category ordering as the empty string. Descending order negates the
// comparison only; equal keys keep their input order either way. An unknown
// key sorts by name.
func Sort(products []models.Product, key SortKey, order SortOrder) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)

	cmp := comparator(key)
	sign := 1
	if order == SortDesc {
		sign = -1
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sign*cmp(&out[i], &out[j]) < 0
	})
	return out
}

// comparator builds a fresh collator per call: collate.Collator keeps
// internal buffers and is not safe for concurrent use.
func comparator(key SortKey) func(a, b *models.Product) int {
	switch key {
	case SortByCode:
		c := collate.New(sortLocale, collate.Numeric)
		return func(a, b *models.Product) int { return c.CompareString(a.Code, b.Code) }
	case SortByCategory:
		c := collate.New(sortLocale)
		return func(a, b *models.Product) int { return c.CompareString(a.Category, b.Category) }
	default:
		c := collate.New(sortLocale)
		return func(a, b *models.Product) int { return c.CompareString(a.Name, b.Name) }
	}
}
