package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rmax-ai/pathlord/pkg/api"
	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/logging"
	"github.com/rmax-ai/pathlord/pkg/observability"
	"github.com/rmax-ai/pathlord/pkg/seed"
	"github.com/rmax-ai/pathlord/pkg/store"
	"github.com/rmax-ai/pathlord/pkg/store/memory"
	"github.com/rmax-ai/pathlord/pkg/store/neo4j"
	rediscache "github.com/rmax-ai/pathlord/pkg/store/redis"
	"github.com/rmax-ai/pathlord/web"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "pathlord-d: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pathlord-d: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	logger.Info("system_started", zap.String("component", "pathlord-d"), zap.String("version", version))

	if err := run(cfg, logger); err != nil {
		logger.Error("daemon_failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown_complete")
}

func run(cfg Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, "pathlord-d", version, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("store_initialized", zap.String("store", cfg.Store), zap.String("path", storeLocation(cfg)))
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed_to_close_store", zap.Error(err))
			return
		}
		logger.Info("store_closed")
	}()

	opts := []engine.Option{engine.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		cache := rediscache.NewPathCache(goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr}), cfg.CacheTTL, logger)
		defer cache.Close()
		if err := cache.Ping(ctx); err != nil {
			// The service recomputes on cache failures, so an unreachable
			// Redis only costs latency.
			logger.Warn("path_cache_unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			logger.Info("path_cache_enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
		}
		opts = append(opts, engine.WithCache(cache))
	}

	svc := engine.NewService(repo, opts...)

	if cfg.SeedPath != "" {
		g, err := seed.ParseFile(cfg.SeedPath)
		if err != nil {
			return fmt.Errorf("failed to load seed: %w", err)
		}
		report, err := seed.Apply(ctx, svc, g)
		if err != nil {
			return fmt.Errorf("failed to apply seed: %w", err)
		}
		logger.Info("seed_applied",
			zap.String("path", cfg.SeedPath),
			zap.Int("nodes_created", report.NodesCreated),
			zap.Int("nodes_skipped", report.NodesSkipped),
			zap.Int("edges_created", report.EdgesCreated),
		)
	}

	srv := api.NewServer(svc, api.Config{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})
	staticFS, err := webAssets(cfg)
	if err != nil {
		return err
	}
	if staticFS != nil {
		srv.SetStaticFS(staticFS)
		logger.Info("web_assets_enabled", zap.String("mode", cfg.WebAssetsMode))
	}
	if cfg.TLSCertFile != "" {
		srv.SetTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_initiated")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", zap.Error(err))
	}
	return nil
}

func openRepository(ctx context.Context, cfg Config) (engine.Repository, error) {
	switch cfg.Store {
	case "memory":
		return memory.NewStore(), nil
	case "neo4j":
		client, err := neo4j.NewClient(ctx, neo4j.Options{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
		}
		st := neo4j.NewStore(client)
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to ensure neo4j schema: %w", err)
		}
		return st, nil
	default:
		st, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to init store: %w", err)
		}
		return st, nil
	}
}

func storeLocation(cfg Config) string {
	switch cfg.Store {
	case "sqlite":
		return cfg.DBPath
	case "neo4j":
		return cfg.Neo4j.URI
	}
	return ""
}

func webAssets(cfg Config) (fs.FS, error) {
	switch cfg.WebAssetsMode {
	case "embedded":
		assets, err := web.Assets()
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded web assets: %w", err)
		}
		return assets, nil
	case "fs":
		return os.DirFS(cfg.WebDir), nil
	}
	return nil, nil
}
