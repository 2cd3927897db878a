package live

import (
	"context"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/plugin"
	"github.com/HerbHall/artiscatalog/internal/services"
)

// Compile-time interface guard.
var _ plugin.Plugin = (*Module)(nil)

// Module mounts live sessions under /api/v1/live.
type Module struct {
	handler *Handler
	cancel  context.CancelFunc
}

// New creates the live module. prefs and m may be nil.
func New(engine Querier, prefs services.PreferencesRepository, m *metrics.Metrics) *Module {
	return &Module{handler: NewHandler(engine, prefs, zap.NewNop(), m)}
}

func (m *Module) Name() string    { return "live" }
func (m *Module) Version() string { return "1.0.0" }

// Init applies the plugins.live settings.
func (m *Module) Init(config *viper.Viper, logger *zap.Logger) error {
	h := m.handler
	h.logger = logger
	if d := config.GetDuration("debounce"); d > 0 {
		h.window = d
	}
	h.pageSize = config.GetInt("page_size")
	h.originPatterns = config.GetStringSlice("origin_patterns")
	logger.Debug("live sessions configured",
		zap.Duration("debounce", h.window),
		zap.Int("page_size", h.pageSize),
	)
	return nil
}

// Start scopes every session to ctx and to Stop.
func (m *Module) Start(ctx context.Context) error {
	m.handler.base, m.cancel = context.WithCancel(ctx)
	return nil
}

// Stop closes open sessions and waits for their handlers to return.
func (m *Module) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.handler.wg.Wait()
	return nil
}

func (m *Module) Routes() []plugin.Route {
	return m.handler.Routes()
}
