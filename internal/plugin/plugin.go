// Package plugin defines the module contract the server composes at compile
// time and the registry that drives module lifecycles.
package plugin

import (
	"context"
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Route represents an HTTP route exposed by a module. Path is relative to
// /api/v1/{module}. An empty Method matches every method.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Plugin defines the interface that every catalog module implements.
type Plugin interface {
	// Name returns the module's unique identifier (e.g., "catalog", "live").
	Name() string

	// Version returns the module's semantic version.
	Version() string

	// Init configures the module from its plugins.{name} subtree.
	Init(config *viper.Viper, logger *zap.Logger) error

	// Start begins the module's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the module.
	Stop() error

	// Routes returns the HTTP routes this module exposes.
	Routes() []Route
}
