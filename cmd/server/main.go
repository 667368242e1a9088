// CodeBench Server
//
// Features:
// - In-memory virtual file tree with immutable snapshots
// - Auto-saving file editing session with debounce
// - Builtin terminal over the virtual tree with bounded history
// - SSE real-time workspace events
// - Optional PostgreSQL persistence and S3/local snapshot archives
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codebench/codebench/internal/api"
	"github.com/codebench/codebench/internal/auth"
	"github.com/codebench/codebench/internal/config"
	"github.com/codebench/codebench/internal/events"
	"github.com/codebench/codebench/internal/logging"
	"github.com/codebench/codebench/internal/metadata/postgres"
	"github.com/codebench/codebench/internal/metrics"
	"github.com/codebench/codebench/internal/session"
	"github.com/codebench/codebench/internal/storage"
	"github.com/codebench/codebench/internal/terminal"
	"github.com/codebench/codebench/internal/vfs"
	"github.com/codebench/codebench/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("CodeBench server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional PostgreSQL persistence
	var metaStore *postgres.Store
	if cfg.DatabaseURL != "" {
		logging.Info("connecting to PostgreSQL...")
		metaStore, err = postgres.New(cfg.DatabaseURL)
		if err != nil {
			logging.Fatal("database connection failed", zap.Error(err))
		}
		defer metaStore.Close()
		if err := metaStore.InitSchema(ctx); err != nil {
			logging.Fatal("schema init failed", zap.Error(err))
		}
	}

	// Build the initial tree: persisted snapshot first, seed project as
	// fallback.
	tree := vfs.New()
	switch {
	case metaStore != nil:
		root, err := metaStore.LoadTree(ctx)
		if err == nil {
			tree, err = vfs.Import(root)
			if err != nil {
				logging.Fatal("import persisted tree failed", zap.Error(err))
			}
			logging.Info("workspace tree loaded from database", zap.Int("nodes", tree.Len()))
		} else if errors.Is(err, postgres.ErrNoSnapshot) {
			if cfg.SeedWorkspace {
				tree = vfs.Seed()
			}
			logging.Info("no persisted tree, starting fresh", zap.Int("nodes", tree.Len()))
		} else {
			logging.Fatal("load persisted tree failed", zap.Error(err))
		}
	case cfg.SeedWorkspace:
		tree = vfs.Seed()
	}

	broadcaster := events.NewBroadcaster()

	var persister workspace.Persister
	if metaStore != nil {
		persister = metaStore
	}
	ws := workspace.New(tree, broadcaster, persister)

	fileSession := session.New(ws, cfg.AutoSaveDelay, broadcaster)
	defer fileSession.Close()

	var historyStore terminal.HistoryStore
	if metaStore != nil {
		historyStore = metaStore
	}
	term := terminal.NewSession(ws, broadcaster, historyStore, cfg.TerminalHistory)
	if metaStore != nil {
		if records, err := metaStore.LoadHistory(ctx, cfg.TerminalHistory); err != nil {
			logging.Error("load terminal history failed", zap.Error(err))
		} else if len(records) > 0 {
			term.Restore(records)
			logging.Info("terminal history restored", zap.Int("commands", len(records)))
		}
	}

	// Snapshot archive backend
	snapshots, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		logging.Fatal("snapshot backend init failed", zap.Error(err))
	}
	defer snapshots.Close()
	logging.Info("snapshot backend ready", zap.String("type", snapshots.Type()))

	// Optional auth
	var authHandler *auth.Auth
	if cfg.AuthEnabled() {
		authHandler = auth.New(cfg.JWTSecret, cfg.AuthUser, cfg.AuthPassHash)
		logging.Info("authentication enabled", zap.String("user", cfg.AuthUser))
	} else {
		logging.Warn("authentication disabled, API is open")
	}

	srv := api.NewServer(ws, fileSession, term, authHandler, broadcaster, snapshots, cfg)

	// Metrics server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")

		// Flush any pending editor state before closing
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := fileSession.Save(saveCtx); err != nil && !errors.Is(err, session.ErrNoActiveFile) {
			logging.Error("final save failed", zap.Error(err))
		}
		saveCancel()

		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Close()
	}()

	// Periodic DB connection gauge refresh
	if metaStore != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					metaStore.UpdateConnectionMetrics()
				}
			}
		}()
	}

	logging.Info("server listening", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
}
