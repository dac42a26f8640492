package runtime

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"hooktrap/internal/application/captures"
	"hooktrap/internal/application/hooks"
	"hooktrap/internal/application/ports"
	"hooktrap/internal/infrastructure/configfile"
	"hooktrap/internal/infrastructure/repository/memory"
	"hooktrap/internal/infrastructure/repository/sqlstore"
	"hooktrap/internal/observability"
	"hooktrap/internal/transport/httpapi"
)

type Options struct {
	Addr       string
	ConfigPath string
	Debug      bool
	Verbose    bool
	Version    string
}

const envPrefix = "HOOKTRAP_"

func Run(ctx context.Context, opts Options) error {
	_ = godotenv.Load()

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(envPrefix); err != nil {
		return fmt.Errorf("apply env config: %w", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, err := observability.NewLogger(level, opts.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	otelShutdown, err := observability.SetupFromEnv(ctx, "hooktrap", opts.Version)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	hookRepo, requestRepo, closeStore, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer closeStore()

	app, err := httpapi.NewApp(httpapi.Deps{
		Version:  opts.Version,
		Config:   cfg,
		Hooks:    hooks.NewService(hookRepo),
		Captures: captures.NewService(hookRepo, requestRepo),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	// Fiber wants an addr string, but we validate it to fail early with a good error.
	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	logger.Info("listening",
		zap.String("addr", addr),
		zap.String("version", opts.Version),
		zap.String("db_driver", cfg.DB.Driver),
	)

	// Shutdown on signals or parent context cancellation.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-ctx.Done():
	case <-sigs:
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func loadConfig(path string) (configfile.Config, error) {
	cfg, err := configfile.ParseFile(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		log.Printf("config file %q not found; starting with defaults", path)
		return configfile.Default(), nil
	}
	return configfile.Config{}, fmt.Errorf("parse config: %w", err)
}

func openStore(ctx context.Context, cfg configfile.DBConfig) (ports.HookRepository, ports.RequestRepository, func(), error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Driver), "memory") {
		return memory.NewHooksRepo(), memory.NewRequestsRepo(), func() {}, nil
	}

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeSeconds) * time.Second,
		Pragmas:         cfg.SQLitePragmas,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	return store.Hooks(), store.Requests(), func() { _ = store.Close() }, nil
}
