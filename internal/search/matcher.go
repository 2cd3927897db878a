package search

import (
	"math"
	"sort"
	"unicode/utf8"
)

// Match is one ranked hit from a Matcher. Lower scores are better.
type Match struct {
	Index int
	Score float64
}

// Matcher performs a weighted approximate search over a corpus of documents,
// each document being one lowercased string per field. weights holds one
// weight per field. Only documents with at least one field scoring at or
// below threshold are returned, best first; ties keep corpus order.
type Matcher interface {
	Match(corpus [][]string, weights []float64, query string, threshold float64) []Match
}

// EditDistanceMatcher scores a field by the fewest edits (insertions,
// deletions, substitutions, adjacent transpositions) needed to turn the query
// into any substring of the field, divided by the query length. Where the
// match sits inside the field does not matter.
//
// A document's score is the product over its matching fields of
// fieldScore^weight, with an exact field match counted as the smallest
// positive float so that weight still ranks it.
type EditDistanceMatcher struct{}

// Compile-time interface guard.
var _ Matcher = EditDistanceMatcher{}

// exactScore stands in for a zero field score.
const exactScore = 2.220446049250313e-16

// Match implements Matcher.
func (EditDistanceMatcher) Match(corpus [][]string, weights []float64, query string, threshold float64) []Match {
	q := []rune(query)
	if len(q) == 0 {
		return nil
	}
	maxErrors := int(math.Floor(threshold*float64(len(q)) + 1e-9))

	out := make([]Match, 0)
	for i, doc := range corpus {
		total := 1.0
		matched := false
		for f, field := range doc {
			if field == "" || f >= len(weights) {
				continue
			}
			dist := substringDistance(q, field, maxErrors)
			if dist > maxErrors {
				continue
			}
			matched = true
			score := float64(dist) / float64(len(q))
			if score == 0 {
				score = exactScore
			}
			total *= math.Pow(score, weights[f])
		}
		if matched {
			out = append(out, Match{Index: i, Score: total})
		}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score < out[b].Score })
	return out
}

// substringDistance returns the optimal-string-alignment distance between q
// and the closest substring of text. Scanning stops as soon as every partial
// alignment exceeds limit, so values above limit only mean "too far".
func substringDistance(q []rune, text string, limit int) int {
	t := make([]rune, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		t = append(t, r)
	}
	m, n := len(q), len(t)
	if n == 0 {
		return m
	}

	// Rows of the DP table: prev2 = i-2, prev = i-1, cur = i. Column 0 is
	// the cost of matching against an empty prefix; row 0 is free because a
	// match may start anywhere in the text.
	prev2 := make([]int, n+1)
	prev := make([]int, n+1)
	cur := make([]int, n+1)

	for i := 1; i <= m; i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= n; j++ {
			cost := 1
			if q[i-1] == t[j-1] {
				cost = 0
			}
			v := min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && q[i-1] == t[j-2] && q[i-2] == t[j-1] {
				v = min(v, prev2[j-2]+1)
			}
			cur[j] = v
			rowMin = min(rowMin, v)
		}
		// Distances never shrink from one row to the next.
		if rowMin > limit {
			return rowMin
		}
		prev2, prev, cur = prev, cur, prev2
	}

	best := prev[0]
	for j := 1; j <= n; j++ {
		best = min(best, prev[j])
	}
	return best
}
