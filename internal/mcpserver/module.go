package mcpserver

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/plugin"
)

// Compile-time interface guard.
var _ plugin.Plugin = (*Module)(nil)

// Module serves the MCP endpoint at /api/v1/mcp.
type Module struct {
	engine  Engine
	metrics *metrics.Metrics
	handler http.Handler
}

// New creates the MCP module. m may be nil.
func New(engine Engine, m *metrics.Metrics) *Module {
	return &Module{engine: engine, metrics: m}
}

func (m *Module) Name() string    { return "mcp" }
func (m *Module) Version() string { return "1.0.0" }

// Init builds the tool server. Every request shares one server; the
// streamable transport keeps a session per client.
func (m *Module) Init(_ *viper.Viper, logger *zap.Logger) error {
	srv := NewServer(m.engine, logger, m.metrics)
	m.handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
	logger.Debug("mcp tools registered")
	return nil
}

func (m *Module) Start(context.Context) error { return nil }
func (m *Module) Stop() error                 { return nil }

func (m *Module) Routes() []plugin.Route {
	if m.handler == nil {
		return nil
	}
	return []plugin.Route{
		{Path: "", Handler: m.handler.ServeHTTP},
	}
}
