package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/HerbHall/artiscatalog/pkg/models"
)

// Suggestion is a type-ahead completion for a partially typed query.
type Suggestion struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// suggestSource adapts a product slice to fuzzy.Source, matching on
// "code name".
type suggestSource []models.Product

func (s suggestSource) String(i int) string {
	return strings.ToLower(s[i].Code + " " + s[i].Name)
}

func (s suggestSource) Len() int { return len(s) }

// Suggest returns up to limit completions for a prefix-style query, using
// in-order character matching rather than edit distance. It is meant for
// type-ahead and never affects the filtered product list.
func Suggest(products []models.Product, query string, limit int) []Suggestion {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return []Suggestion{}
	}

	matches := fuzzy.FindFrom(query, suggestSource(products))
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Suggestion, 0, len(matches))
	for _, m := range matches {
		p := products[m.Index]
		out = append(out, Suggestion{Code: p.Code, Name: p.Name, Score: m.Score})
	}
	return out
}
