package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/plugin"
	"github.com/HerbHall/artiscatalog/internal/services"
)

// Compile-time interface guard.
var _ plugin.Plugin = (*Module)(nil)

// Module mounts the catalog REST API under /api/v1/catalog.
type Module struct {
	engine  *Engine
	prefs   services.PreferencesRepository
	handler *Handler
}

// New creates the catalog module. prefs may be nil.
func New(engine *Engine, prefs services.PreferencesRepository) *Module {
	return &Module{engine: engine, prefs: prefs}
}

func (m *Module) Name() string    { return "catalog" }
func (m *Module) Version() string { return "1.0.0" }

// Init validates the dataset and applies the plugins.catalog settings.
func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	if err := m.engine.Catalog().Load(); err != nil {
		return fmt.Errorf("load product dataset: %w", err)
	}
	h := NewHandler(m.engine, m.prefs, logger)
	if n := config.GetInt("related_limit"); n > 0 {
		h.relatedLimit = n
	}
	if n := config.GetInt("suggest_limit"); n > 0 {
		h.suggestLimit = n
	}
	m.handler = h
	logger.Info("catalog loaded", zap.Int("products", m.engine.Catalog().Len()))
	return nil
}

func (m *Module) Start(context.Context) error { return nil }
func (m *Module) Stop() error                 { return nil }

func (m *Module) Routes() []plugin.Route {
	if m.handler == nil {
		return nil
	}
	return m.handler.Routes()
}
