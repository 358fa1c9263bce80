package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/logyard/queuedash/internal/annotate"
	"github.com/logyard/queuedash/internal/auth"
	"github.com/logyard/queuedash/internal/config"
	"github.com/logyard/queuedash/internal/files"
	"github.com/logyard/queuedash/internal/lifecycle"
	"github.com/logyard/queuedash/internal/mcp"
	"github.com/logyard/queuedash/internal/ratelimit"
	"github.com/logyard/queuedash/internal/reload"
	"github.com/logyard/queuedash/internal/server"
	"github.com/logyard/queuedash/internal/service/dashboard"
	"github.com/logyard/queuedash/internal/storage"
	"github.com/logyard/queuedash/internal/telemetry"
	"github.com/logyard/queuedash/web"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	Long:  "Serves the JSON API, the web client and the reload stream. Configuration comes from QUEUEDASH_* environment variables and an optional .env file.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("queuedash starting", "version", version, "port", cfg.Port, "driver", cfg.DBDriver)

	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
		ServiceName: cfg.ServiceName,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	catalog := config.DefaultCatalog()
	if cfg.CatalogPath != "" {
		if catalog, err = config.LoadCatalog(cfg.CatalogPath); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
	}

	db, err := storage.New(ctx, storage.Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DatabaseURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(ctx); err != nil {
		// The orchestrator may not have created the store yet.
		logger.Warn("backing store not reachable yet", "error", err)
	}

	svc := dashboard.New(db, dashboard.Options{
		Catalog:           catalog,
		StaleAfter:        cfg.StaleAfter,
		RecentWindow:      cfg.RecentWindow,
		AnnouncementLimit: cfg.AnnouncementLimit,
	}, logger)

	viewer, err := files.NewViewer(cfg.ProjectRoot)
	if err != nil {
		return fmt.Errorf("files: %w", err)
	}

	broker := reload.NewBroker(logger)
	if cfg.Watch {
		roots := make([]string, 0, len(cfg.WatchDirs))
		for _, d := range cfg.WatchDirs {
			if !filepath.IsAbs(d) {
				d = filepath.Join(cfg.ProjectRoot, d)
			}
			roots = append(roots, d)
		}
		watcher, err := reload.NewWatcher(roots, broker, logger)
		if err != nil {
			return fmt.Errorf("reload watcher: %w", err)
		}
		defer func() { _ = watcher.Close() }()
		go watcher.Run(ctx)
		logger.Info("reload watcher enabled", "dirs", roots)
	}

	var verifier *auth.Verifier
	if cfg.JWTPublicKeyPath != "" {
		if verifier, err = auth.LoadVerifier(cfg.JWTPublicKeyPath); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		logger.Info("operator auth enabled for agent start/stop")
	}

	var limiter ratelimit.Limiter
	if cfg.ActionRatePerMinute > 0 {
		buckets := ratelimit.NewBuckets(cfg.ActionRatePerMinute, cfg.ActionBurst)
		defer func() { _ = buckets.Close() }()
		limiter = buckets
	}

	var mcpSrv *mcpserver.MCPServer
	if cfg.MCPEnabled {
		mcpSrv = mcp.New(svc, logger, version).MCPServer()
	}

	static, err := web.StaticFS()
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}

	srv, err := server.New(server.ServerConfig{
		Dashboard:     svc,
		Annotator:     annotate.New(annotate.DefaultPolicy(cfg.RepoURL)),
		Logger:        logger,
		Files:         viewer,
		Broker:        broker,
		Launcher:      lifecycle.NewScriptLauncher(catalog, cfg.ScriptsDir, cfg.LogDir, db, logger),
		Verifier:      verifier,
		MCPServer:     mcpSrv,
		ActionLimiter: limiter,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		Version:       version,
		StaticFS:      static,
	})
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	ln, err := server.Listen(ctx, cfg.Port, logger)
	if err != nil {
		return err
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		logger.Info("dashboard ready", "url", fmt.Sprintf("http://localhost:%d", addr.Port))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("queuedash shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("queuedash stopped")
	return nil
}
