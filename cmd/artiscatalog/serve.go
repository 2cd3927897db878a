package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/artiscatalog/internal/auth"
	"github.com/HerbHall/artiscatalog/internal/catalog"
	"github.com/HerbHall/artiscatalog/internal/config"
	"github.com/HerbHall/artiscatalog/internal/live"
	"github.com/HerbHall/artiscatalog/internal/mcpserver"
	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/plugin"
	"github.com/HerbHall/artiscatalog/internal/search"
	"github.com/HerbHall/artiscatalog/internal/server"
	"github.com/HerbHall/artiscatalog/internal/services"
	"github.com/HerbHall/artiscatalog/internal/store"
	"github.com/HerbHall/artiscatalog/internal/version"
	pkgcatalog "github.com/HerbHall/artiscatalog/pkg/catalog"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.New(v)

	logger, err := newLogger(cfg.GetString("log.level"), cfg.GetString("log.format"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

// serve wires every component and blocks until ctx is canceled or the HTTP
// server fails.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Artis Catalog starting", zap.String("version", version.Short()))

	st, err := store.New(cfg.GetString("database.path"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	settings, err := services.NewSQLiteSettingsRepository(ctx, st)
	if err != nil {
		return err
	}
	prefs, err := services.NewSQLitePreferencesRepository(ctx, st)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var m *metrics.Metrics
	if cfg.GetBool("metrics.enabled") {
		m = metrics.New(promReg)
	}

	cat, err := loadCatalog(cfg.GetString("catalog.data_file"))
	if err != nil {
		return err
	}
	engine := catalog.NewEngine(cat,
		catalog.WithSearchOptions(search.WithThreshold(cfg.GetFloat64("plugins.catalog.search_threshold"))),
		catalog.WithEngineMetrics(m),
	)

	registry := plugin.NewRegistry(logger)
	for _, p := range []plugin.Plugin{
		catalog.New(engine, prefs),
		live.New(engine, prefs, m),
		mcpserver.New(engine, m),
	} {
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("register plugin: %w", err)
		}
	}
	if err := registry.InitAll(cfg.Viper()); err != nil {
		return err
	}

	gate, err := newGate(ctx, cfg, settings, logger.Named("auth"), m)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithTimeouts(
			cfg.GetDuration("server.read_timeout"),
			cfg.GetDuration("server.write_timeout"),
			cfg.GetDuration("server.idle_timeout"),
		),
		server.WithGate(gate.Middleware()),
		server.WithRoute("POST /api/v1/auth", http.HandlerFunc(gate.HandleLogin)),
		server.WithRoute("POST /api/v1/auth/logout", http.HandlerFunc(gate.HandleLogout)),
	}
	if m != nil {
		opts = append(opts, server.WithMetrics(m, promReg))
	}
	addr := net.JoinHostPort(cfg.GetString("server.host"), cfg.GetString("server.port"))
	srv := server.New(addr, registry, logger, opts...)

	if err := registry.StartAll(ctx); err != nil {
		return err
	}
	defer registry.StopAll()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("Artis Catalog ready", zap.String("addr", addr))
	err = g.Wait()
	logger.Info("Artis Catalog stopped")
	return err
}

func loadCatalog(path string) (*pkgcatalog.Catalog, error) {
	if path == "" {
		return pkgcatalog.NewCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog data: %w", err)
	}
	return pkgcatalog.FromYAML(data), nil
}

// newGate builds the password gate. Without a configured secret the signing
// key is generated once and kept in the settings table, so sessions survive
// restarts.
func newGate(ctx context.Context, cfg *config.Config, settings *services.SQLiteSettingsRepository, logger *zap.Logger, m *metrics.Metrics) (*auth.Gate, error) {
	verifier, err := auth.NewVerifier(cfg.GetString("auth.password"), cfg.GetString("auth.password_hash"))
	if err != nil {
		return nil, err
	}
	if cfg.GetString("auth.password_hash") == "" && cfg.GetString("auth.password") == config.DefaultPassword {
		logger.Warn("using the default catalog password; set auth.password or auth.password_hash")
	}

	secret := cfg.GetString("auth.jwt_secret")
	if secret == "" {
		secret, err = settings.GetOrInit(ctx, services.SettingJWTSecret, randomSecret)
		if err != nil {
			return nil, fmt.Errorf("load jwt secret: %w", err)
		}
	}
	if len(secret) < 32 {
		return nil, errors.New("auth.jwt_secret must be at least 32 characters")
	}

	return auth.NewGate(auth.Config{
		Enabled:       cfg.GetBool("auth.enabled"),
		CookieName:    cfg.GetString("auth.cookie_name"),
		TTL:           cfg.GetDuration("auth.session_ttl"),
		SecureCookie:  cfg.GetBool("auth.secure_cookie"),
		RatePerMinute: cfg.GetInt("auth.login_rate_per_minute"),
		Burst:         cfg.GetInt("auth.login_burst"),
	}, []byte(secret), verifier, logger, auth.WithMetrics(m)), nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
