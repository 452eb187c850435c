package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mcp_analyzer/ai"
	"mcp_analyzer/analyzer"
	"mcp_analyzer/core"
	"mcp_analyzer/db"
	"mcp_analyzer/logging"
	"mcp_analyzer/monitoring"
	"mcp_analyzer/shutdown"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Service control commands (install/uninstall/start/stop/...) exit here.
	if len(os.Args) > 1 {
		if handled, err := HandleServiceCommand(os.Args[1]); handled {
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(core.ExitCodeError)
			}
			os.Exit(core.ExitCodeSuccess)
		}
	}

	// When launched by a service manager, hand control to it; run() is then
	// driven through the service lifecycle instead.
	if asService, err := RunAsService(); asService {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Service error: %v\n", err)
			os.Exit(core.ExitCodeError)
		}
		os.Exit(core.ExitCodeSuccess)
	}

	os.Exit(run())
}

// run starts the analyzer server and blocks until shutdown completes.
// Returns the process exit code.
func run() int {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return core.ExitCodeError
	}

	isDevelopment := cfg.IsDevelopment() || os.Getenv("DEV_MODE") == "true"
	logger, err := logging.NewLogger(isDevelopment, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}

	logger.Info("Configuration loaded",
		zap.String("addr", cfg.Addr()),
		zap.String("environment", cfg.Environment),
		zap.String("database", cfg.DatabasePath),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.String("version", core.GetVersion()),
		zap.Bool("dev_mode", isDevelopment),
	)

	// Database: run migrations first, then open the long-lived connection.
	if err := db.MigratePath(cfg.DatabasePath); err != nil {
		logger.Error("Failed to run database migrations", zap.Error(err))
		return core.ExitCodeError
	}
	conn, err := db.OpenWithDefaults(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return core.ExitCodeError
	}
	repo := db.NewRepository(conn)

	// Monitoring backend. The hybrid wrapper routes events to the current
	// monitor, the legacy logger, or both, per MONITORING_USE_NEW/USE_OLD.
	hybridCfg := monitoring.HybridConfigFromEnv()
	monCfg := monitoring.ConfigForEnvironment(cfg.Environment, filepath.Join("logs", "monitoring.ndjson")).OverlayEnv()

	var monitor *monitoring.Monitor
	if hybridCfg.UseNew {
		monitor, err = monitoring.New(monCfg, logger)
		if err != nil {
			logger.Error("Failed to start monitoring", zap.Error(err))
			_ = conn.Close()
			return core.ExitCodeError
		}
	}
	var legacy *monitoring.LegacyLogger
	if hybridCfg.UseOld {
		legacy = monitoring.NewLegacyLogger(logger, nil)
	}
	hybrid := monitoring.NewHybrid(hybridCfg, logger, monitor, legacy)
	var backend monitoring.Backend = hybrid

	// The analytics endpoint only shows the stack comparison when it is
	// actually being collected.
	var reportSource *monitoring.Hybrid
	if hybridCfg.Compare {
		reportSource = hybrid
	}

	aiManager := ai.ManagerFromEnv(logger)
	if !aiManager.HasProviders() {
		logger.Warn("No AI providers configured, explanations use the offline fallback")
	}

	guard := shutdown.NewManager(logger, shutdown.WithTimeout(cfg.ShutdownTimeout))

	server := NewServer(logger, backend, reportSource, analyzer.New(logger), aiManager, repo, guard)
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	guard.Register("http-server", 10, httpServer.Shutdown)
	guard.Register("monitoring", 20, backend.Shutdown)
	guard.Register("database", 30, func(ctx context.Context) error {
		return conn.Close()
	})
	guard.Register("logger-sync", 40, func(ctx context.Context) error {
		// Sync can fail on stderr sinks; nothing actionable.
		_ = logger.Sync()
		return nil
	})
	guard.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	exitCode := core.ExitCodeSuccess
	select {
	case <-guard.Context().Done():
		logger.Info("Shutdown requested")
	case err := <-errCh:
		logger.Error("HTTP server failed", zap.Error(err))
		exitCode = core.ExitCodeError
	}

	if err := guard.Shutdown(); err != nil {
		logger.Error("Graceful shutdown finished with errors", zap.Error(err))
		if exitCode == core.ExitCodeSuccess {
			exitCode = core.ExitCodeError
		}
	}
	return exitCode
}
