package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/store"
)

// PreferencesRepository stores each client's persisted browsing preferences
// (view mode and the show-unmatched toggle), keyed by client ID.
type PreferencesRepository interface {
	// Get returns the stored preferences, or ErrNotFound for a new client.
	Get(ctx context.Context, clientID string) (filter.Preferences, error)

	// Save creates or replaces the client's preferences.
	Save(ctx context.Context, clientID string, p filter.Preferences) error

	// Delete forgets the client.
	Delete(ctx context.Context, clientID string) error
}

// Compile-time interface guard.
var _ PreferencesRepository = (*SQLitePreferencesRepository)(nil)

// SQLitePreferencesRepository implements PreferencesRepository using SQLite.
type SQLitePreferencesRepository struct {
	db *sql.DB
}

// NewSQLitePreferencesRepository creates a PreferencesRepository and runs the
// client_preferences migration.
func NewSQLitePreferencesRepository(ctx context.Context, st store.Store) (*SQLitePreferencesRepository, error) {
	if err := st.Migrate(ctx, "preferences", preferencesMigrations); err != nil {
		return nil, fmt.Errorf("preferences migrations: %w", err)
	}
	return &SQLitePreferencesRepository{db: st.DB()}, nil
}

func (r *SQLitePreferencesRepository) Get(ctx context.Context, clientID string) (filter.Preferences, error) {
	var (
		mode string
		show bool
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT view_mode, show_unmatched FROM client_preferences WHERE client_id = ?`, clientID,
	).Scan(&mode, &show)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filter.Preferences{}, ErrNotFound
		}
		return filter.Preferences{}, fmt.Errorf("get preferences %q: %w", clientID, err)
	}

	p := filter.DefaultPreferences()
	if vm, err := filter.ParseViewMode(mode); err == nil {
		p.ViewMode = vm
	}
	p.ShowUnmatched = show
	return p, nil
}

func (r *SQLitePreferencesRepository) Save(ctx context.Context, clientID string, p filter.Preferences) error {
	if _, err := filter.ParseViewMode(string(p.ViewMode)); err != nil {
		return fmt.Errorf("save preferences %q: %w", clientID, err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO client_preferences (client_id, view_mode, show_unmatched, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			view_mode = excluded.view_mode,
			show_unmatched = excluded.show_unmatched,
			updated_at = excluded.updated_at`,
		clientID, string(p.ViewMode), p.ShowUnmatched, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save preferences %q: %w", clientID, err)
	}
	return nil
}

func (r *SQLitePreferencesRepository) Delete(ctx context.Context, clientID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM client_preferences WHERE client_id = ?`, clientID)
	if err != nil {
		return fmt.Errorf("delete preferences %q: %w", clientID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadPreferences returns the client's stored preferences, falling back to
// the defaults for a new client or an unreadable row. The error is only
// reported so the caller can log it.
func LoadPreferences(ctx context.Context, repo PreferencesRepository, clientID string) (filter.Preferences, error) {
	p, err := repo.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return filter.DefaultPreferences(), nil
		}
		return filter.DefaultPreferences(), err
	}
	return p, nil
}

// preferenceSink writes a state's preference changes through to the
// repository. Write failures are logged and otherwise ignored.
type preferenceSink struct {
	repo     PreferencesRepository
	clientID string
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewPreferenceSink returns a filter.PreferenceSink bound to one client. m may
// be nil.
func NewPreferenceSink(repo PreferencesRepository, clientID string, logger *zap.Logger, m *metrics.Metrics) filter.PreferenceSink {
	return &preferenceSink{repo: repo, clientID: clientID, timeout: 5 * time.Second, logger: logger, metrics: m}
}

func (s *preferenceSink) SavePreferences(p filter.Preferences) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.repo.Save(ctx, s.clientID, p); err != nil {
		s.metrics.IncPreferenceFailure()
		s.logger.Warn("failed to persist preferences",
			zap.String("client_id", s.clientID),
			zap.Error(err),
		)
	}
}

// preferencesMigrations defines the database schema for client_preferences.
var preferencesMigrations = []store.Migration{
	{
		Version:     1,
		Description: "create client_preferences table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE client_preferences (
					client_id      TEXT PRIMARY KEY,
					view_mode      TEXT NOT NULL DEFAULT 'grid',
					show_unmatched INTEGER NOT NULL DEFAULT 0,
					updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
}
