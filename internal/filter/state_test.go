package filter_test

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/pkg/models"
)

type recordingSink struct {
	saved []filter.Preferences
}

func (r *recordingSink) SavePreferences(p filter.Preferences) {
	r.saved = append(r.saved, p)
}

func TestNewState_Defaults(t *testing.T) {
	s := filter.NewState()
	if diff := cmp.Diff(filter.DefaultSnapshot(), s.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if got := s.ActiveFilterCount(); got != 0 {
		t.Errorf("ActiveFilterCount() = %d, want 0", got)
	}
}

func TestWithPreferences(t *testing.T) {
	s := filter.NewState(filter.WithPreferences(filter.Preferences{
		ViewMode:      filter.ViewList,
		ShowUnmatched: true,
	}))
	snap := s.Snapshot()
	if snap.ViewMode != filter.ViewList || !snap.ShowUnmatched {
		t.Errorf("snapshot = %+v, want list view with unmatched shown", snap)
	}

	s = filter.NewState(filter.WithPreferences(filter.Preferences{ViewMode: "carousel"}))
	if got := s.Snapshot().ViewMode; got != filter.ViewGrid {
		t.Errorf("ViewMode = %q, want grid for an unknown stored value", got)
	}
}

func TestToggleCatalog(t *testing.T) {
	s := filter.NewState()

	s.ToggleCatalog(models.CatalogWoodrica)
	s.ToggleCatalog(models.CatalogArtvio)
	want := []models.Catalog{models.CatalogWoodrica, models.CatalogArtvio}
	if diff := cmp.Diff(want, s.Snapshot().Catalogs); diff != "" {
		t.Errorf("catalogs mismatch (-want +got):\n%s", diff)
	}

	s.ToggleCatalog(models.CatalogWoodrica)
	want = []models.Catalog{models.CatalogArtvio}
	if diff := cmp.Diff(want, s.Snapshot().Catalogs); diff != "" {
		t.Errorf("catalogs after second toggle mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleCategory_TwiceRestores(t *testing.T) {
	s := filter.NewState()
	s.ToggleCategory("Marble")
	s.ToggleCategory("Marble")
	if got := s.Snapshot().Categories; len(got) != 0 {
		t.Errorf("Categories = %v, want empty", got)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := filter.NewState()
	s.ToggleCategory("Stone")

	snap := s.Snapshot()
	snap.Categories[0] = "Mutated"

	if got := s.Snapshot().Categories[0]; got != "Stone" {
		t.Errorf("state changed through snapshot: %q", got)
	}
}

func TestSortTransitions(t *testing.T) {
	s := filter.NewState()

	s.SetSortBy(filter.SortByCode)
	s.SetSortBy("price")
	if got := s.Snapshot().SortBy; got != filter.SortByCode {
		t.Errorf("SortBy = %q, want code (unknown keys ignored)", got)
	}

	s.ToggleSortOrder()
	if got := s.Snapshot().SortOrder; got != filter.SortDesc {
		t.Errorf("SortOrder = %q, want desc", got)
	}
	s.ToggleSortOrder()
	if got := s.Snapshot().SortOrder; got != filter.SortAsc {
		t.Errorf("SortOrder = %q, want asc", got)
	}
}

func TestReset_RestoresEveryDefault(t *testing.T) {
	sink := &recordingSink{}
	s := filter.NewState(filter.WithSink(sink))

	s.ToggleCatalog(models.CatalogArtis1MM)
	s.ToggleCategory("Wooden")
	s.SetShowUnmatched(true)
	s.SetSearchQuery("oak")
	s.SetSortBy(filter.SortByCategory)
	s.ToggleSortOrder()
	s.SetViewMode(filter.ViewList)

	s.Reset()

	if diff := cmp.Diff(filter.DefaultSnapshot(), s.Snapshot()); diff != "" {
		t.Errorf("snapshot after reset mismatch (-want +got):\n%s", diff)
	}
	last := sink.saved[len(sink.saved)-1]
	if last != filter.DefaultPreferences() {
		t.Errorf("last saved = %+v, want defaults", last)
	}
}

func TestSink_WritesOnlyOnChange(t *testing.T) {
	sink := &recordingSink{}
	s := filter.NewState(filter.WithSink(sink))

	s.SetViewMode(filter.ViewList)
	s.SetViewMode(filter.ViewList)
	s.SetViewMode("carousel")
	s.ToggleCatalog(models.CatalogArtvio)
	s.SetSearchQuery("teak")
	s.SetShowUnmatched(true)

	want := []filter.Preferences{
		{ViewMode: filter.ViewList},
		{ViewMode: filter.ViewList, ShowUnmatched: true},
	}
	if diff := cmp.Diff(want, sink.saved); diff != "" {
		t.Errorf("saved mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyURLParams(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		before func(s *filter.State)
		want   func() filter.Snapshot
	}{
		{
			name:  "no params leaves state alone",
			query: "",
			before: func(s *filter.State) {
				s.ToggleCategory("Marble")
				s.SetSearchQuery("old")
			},
			want: func() filter.Snapshot {
				w := filter.DefaultSnapshot()
				w.Categories = []string{"Marble"}
				w.SearchQuery = "old"
				return w
			},
		},
		{
			name:  "search param clears previous selections",
			query: "q=oak",
			before: func(s *filter.State) {
				s.ToggleCategory("Marble")
				s.ToggleCatalog(models.CatalogArtvio)
			},
			want: func() filter.Snapshot {
				w := filter.DefaultSnapshot()
				w.SearchQuery = "oak"
				return w
			},
		},
		{
			name:  "all three",
			query: "q=teak&catalog=Artvio&category=Wooden",
			want: func() filter.Snapshot {
				w := filter.DefaultSnapshot()
				w.SearchQuery = "teak"
				w.Catalogs = []models.Catalog{models.CatalogArtvio}
				w.Categories = []string{"Wooden"}
				return w
			},
		},
		{
			name:  "unknown catalog is kept",
			query: "catalog=Formica",
			want: func() filter.Snapshot {
				w := filter.DefaultSnapshot()
				w.Catalogs = []models.Catalog{"Formica"}
				return w
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := filter.NewState()
			if tt.before != nil {
				tt.before(s)
			}
			v, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			s.ApplyURLParams(v)
			if diff := cmp.Diff(tt.want(), s.Snapshot()); diff != "" {
				t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActiveFilterCount(t *testing.T) {
	s := filter.NewState()
	s.ToggleCatalog(models.CatalogArtvio)
	s.ToggleCategory("Wooden")
	s.ToggleCategory("Stone")
	s.SetShowUnmatched(true)
	s.SetSearchQuery("not counted")

	if got := s.ActiveFilterCount(); got != 4 {
		t.Errorf("ActiveFilterCount() = %d, want 4", got)
	}
}

func TestParse(t *testing.T) {
	if _, err := filter.ParseSortKey("code"); err != nil {
		t.Errorf("ParseSortKey(code): %v", err)
	}
	if _, err := filter.ParseSortKey("price"); err == nil {
		t.Error("ParseSortKey(price) should fail")
	}
	if _, err := filter.ParseSortOrder("desc"); err != nil {
		t.Errorf("ParseSortOrder(desc): %v", err)
	}
	if _, err := filter.ParseSortOrder("up"); err == nil {
		t.Error("ParseSortOrder(up) should fail")
	}
	if _, err := filter.ParseViewMode("list"); err != nil {
		t.Errorf("ParseViewMode(list): %v", err)
	}
	if _, err := filter.ParseViewMode("table"); err == nil {
		t.Error("ParseViewMode(table) should fail")
	}
}
