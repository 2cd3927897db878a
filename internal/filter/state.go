// Package filter holds the catalog browsing state machine and the pure
// pipeline that turns the product list plus that state into the list a
// client sees.
package filter

import (
	"fmt"
	"net/url"

	"github.com/HerbHall/artiscatalog/pkg/models"
)

// SortKey selects the product field the pipeline orders by.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByCode     SortKey = "code"
	SortByCategory SortKey = "category"
)

// SortOrder is the direction of the final sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ViewMode is the client's presentational layout choice.
type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// ParseSortKey validates a sort key from an external source.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortByName, SortByCode, SortByCategory:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseSortOrder validates a sort order from an external source.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortAsc, SortDesc:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// ParseViewMode validates a view mode from an external source.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewGrid, ViewList:
		return m, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Preferences is the persisted subset of the state. Everything else resets
// with each session.
type Preferences struct {
	ViewMode      ViewMode `json:"view_mode"`
	ShowUnmatched bool     `json:"show_unmatched"`
}

// DefaultPreferences returns the preferences of a first visit.
func DefaultPreferences() Preferences {
	return Preferences{ViewMode: ViewGrid}
}

// PreferenceSink receives the persisted subset whenever a transition changes
// it. Implementations must not call back into the State.
type PreferenceSink interface {
	SavePreferences(p Preferences)
}

// Snapshot is a value copy of every state field.
type Snapshot struct {
	Catalogs      []models.Catalog `json:"catalogs"`
	Categories    []string         `json:"categories"`
	ShowUnmatched bool             `json:"show_unmatched"`
	SearchQuery   string           `json:"search_query"`
	SortBy        SortKey          `json:"sort_by"`
	SortOrder     SortOrder        `json:"sort_order"`
	ViewMode      ViewMode         `json:"view_mode"`
}

// DefaultSnapshot returns the startup value of every field.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Catalogs:   []models.Catalog{},
		Categories: []string{},
		SortBy:     SortByName,
		SortOrder:  SortAsc,
		ViewMode:   ViewGrid,
	}
}

// Preferences extracts the persisted subset.
func (s Snapshot) Preferences() Preferences {
	return Preferences{ViewMode: s.ViewMode, ShowUnmatched: s.ShowUnmatched}
}

func (s Snapshot) clone() Snapshot {
	s.Catalogs = append([]models.Catalog{}, s.Catalogs...)
	s.Categories = append([]string{}, s.Categories...)
	return s
}

// State is one client's mutable browsing state. It is mutated only through
// its intent methods, every one of which is synchronous and total. A State is
// not safe for concurrent use; callers serialize access.
type State struct {
	snap Snapshot
	sink PreferenceSink
}

// Option configures a State at construction.
type Option func(*State)

// WithPreferences merges previously persisted preferences over the defaults.
func WithPreferences(p Preferences) Option {
	return func(s *State) {
		if _, err := ParseViewMode(string(p.ViewMode)); err == nil {
			s.snap.ViewMode = p.ViewMode
		}
		s.snap.ShowUnmatched = p.ShowUnmatched
	}
}

// WithSink writes the persisted subset through to sink on every change.
func WithSink(sink PreferenceSink) Option {
	return func(s *State) { s.sink = sink }
}

// NewState returns a State at its defaults, with any options applied.
func NewState(opts ...Option) *State {
	s := &State{snap: DefaultSnapshot()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current field values.
func (s *State) Snapshot() Snapshot {
	return s.snap.clone()
}

// Preferences returns the persisted subset of the current state.
func (s *State) Preferences() Preferences {
	return s.snap.Preferences()
}

// ToggleCatalog removes c from the selection if present, appends it otherwise.
func (s *State) ToggleCatalog(c models.Catalog) {
	s.snap.Catalogs = toggle(s.snap.Catalogs, c)
}

// ToggleCategory removes c from the selection if present, appends it otherwise.
func (s *State) ToggleCategory(c string) {
	s.snap.Categories = toggle(s.snap.Categories, c)
}

// SetShowUnmatched controls whether unverified designs are listed.
func (s *State) SetShowUnmatched(show bool) {
	before := s.snap.Preferences()
	s.snap.ShowUnmatched = show
	s.persist(before)
}

// SetSearchQuery replaces the committed search text.
func (s *State) SetSearchQuery(q string) {
	s.snap.SearchQuery = q
}

// SetViewMode switches the layout. Unknown modes are ignored.
func (s *State) SetViewMode(m ViewMode) {
	if _, err := ParseViewMode(string(m)); err != nil {
		return
	}
	before := s.snap.Preferences()
	s.snap.ViewMode = m
	s.persist(before)
}

// SetSortBy replaces the sort key. Unknown keys are ignored.
func (s *State) SetSortBy(k SortKey) {
	if _, err := ParseSortKey(string(k)); err != nil {
		return
	}
	s.snap.SortBy = k
}

// ToggleSortOrder flips between ascending and descending.
func (s *State) ToggleSortOrder() {
	if s.snap.SortOrder == SortAsc {
		s.snap.SortOrder = SortDesc
		return
	}
	s.snap.SortOrder = SortAsc
}

// Reset restores every field, view mode included, to its startup default.
func (s *State) Reset() {
	before := s.snap.Preferences()
	s.snap = DefaultSnapshot()
	s.persist(before)
}

// ApplyURLParams applies the q, catalog and category query parameters as a
// one-time initialization. When any of them is present the previous
// selections and search text are cleared first.
func (s *State) ApplyURLParams(v url.Values) {
	q, catalog, category := v.Get("q"), v.Get("catalog"), v.Get("category")
	if q == "" && catalog == "" && category == "" {
		return
	}

	s.snap.Catalogs = []models.Catalog{}
	s.snap.Categories = []string{}
	s.snap.SearchQuery = ""

	if q != "" {
		s.SetSearchQuery(q)
	}
	if catalog != "" {
		s.ToggleCatalog(models.Catalog(catalog))
	}
	if category != "" {
		s.ToggleCategory(category)
	}
}

// ActiveFilterCount is the number of selections that narrow the list, as
// shown on the reset control.
func (s *State) ActiveFilterCount() int {
	n := len(s.snap.Catalogs) + len(s.snap.Categories)
	if s.snap.ShowUnmatched {
		n++
	}
	return n
}

func (s *State) persist(before Preferences) {
	if s.sink == nil {
		return
	}
	if after := s.snap.Preferences(); after != before {
		s.sink.SavePreferences(after)
	}
}

func toggle[T comparable](set []T, v T) []T {
	for i := range set {
		if set[i] == v {
			out := make([]T, 0, len(set)-1)
			out = append(out, set[:i]...)
			return append(out, set[i+1:]...)
		}
	}
	return append(append(make([]T, 0, len(set)+1), set...), v)
}
