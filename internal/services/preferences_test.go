package services_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/services"
	"github.com/HerbHall/artiscatalog/internal/testutil"
)

func newPreferencesRepo(t *testing.T) *services.SQLitePreferencesRepository {
	t.Helper()
	store := testutil.NewStore(t)
	repo, err := services.NewSQLitePreferencesRepository(context.Background(), store)
	if err != nil {
		t.Fatalf("NewSQLitePreferencesRepository: %v", err)
	}
	return repo
}

func TestSQLitePreferencesRepository_SaveAndGet(t *testing.T) {
	repo := newPreferencesRepo(t)
	ctx := context.Background()

	want := filter.Preferences{ViewMode: filter.ViewList, ShowUnmatched: true}
	if err := repo.Save(ctx, "client-a", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Get(ctx, "client-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	want.ShowUnmatched = false
	if err := repo.Save(ctx, "client-a", want); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, _ = repo.Get(ctx, "client-a")
	if got != want {
		t.Errorf("Get after overwrite = %+v, want %+v", got, want)
	}
}

func TestSQLitePreferencesRepository_Isolation(t *testing.T) {
	repo := newPreferencesRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, "a", filter.Preferences{ViewMode: filter.ViewList}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := repo.Get(ctx, "b"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Get(b) = %v, want ErrNotFound", err)
	}
}

func TestSQLitePreferencesRepository_RejectsUnknownViewMode(t *testing.T) {
	repo := newPreferencesRepo(t)
	if err := repo.Save(context.Background(), "a", filter.Preferences{ViewMode: "table"}); err == nil {
		t.Error("Save with unknown view mode should fail")
	}
}

func TestSQLitePreferencesRepository_Delete(t *testing.T) {
	repo := newPreferencesRepo(t)
	ctx := context.Background()

	if err := repo.Delete(ctx, "ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Delete missing = %v, want ErrNotFound", err)
	}
	_ = repo.Save(ctx, "a", filter.DefaultPreferences())
	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "a"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestLoadPreferences_DefaultsForNewClient(t *testing.T) {
	repo := newPreferencesRepo(t)

	p, err := services.LoadPreferences(context.Background(), repo, "new")
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if p != filter.DefaultPreferences() {
		t.Errorf("LoadPreferences = %+v, want defaults", p)
	}
}

func TestPreferenceSink_WritesThrough(t *testing.T) {
	repo := newPreferencesRepo(t)
	sink := services.NewPreferenceSink(repo, "client-x", zaptest.NewLogger(t), nil)

	state := filter.NewState(filter.WithSink(sink))
	state.SetViewMode(filter.ViewList)
	state.SetShowUnmatched(true)

	got, err := repo.Get(context.Background(), "client-x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := filter.Preferences{ViewMode: filter.ViewList, ShowUnmatched: true}
	if got != want {
		t.Errorf("stored = %+v, want %+v", got, want)
	}

	// A fresh state for the same client starts from what was stored.
	restored := filter.NewState(filter.WithPreferences(got))
	if restored.Snapshot().ViewMode != filter.ViewList {
		t.Error("restored state lost the view mode")
	}
}
