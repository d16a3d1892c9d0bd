package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arkraven000/CrusadeTracker-sub002/internal/config"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/server"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/session"
	"github.com/arkraven000/CrusadeTracker-sub002/internal/snapshot"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting campaign server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sessionMgr := session.NewManager(logger)
	logger.Info("session manager initialized")

	restored := restoreCampaigns(cfg.Campaign.SnapshotDir, sessionMgr, logger)
	logger.Info("campaign snapshots restored", zap.Int("count", restored))

	srv := server.New(cfg.Server.HTTP, cfg.Campaign.MaxTokensPerHex, sessionMgr, logger)

	go func() {
		if serveErr := srv.Start(); serveErr != nil {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	autosaveCtx, stopAutosave := context.WithCancel(context.Background())
	go autosaveLoop(autosaveCtx, cfg.Campaign, sessionMgr, logger)

	logger.Info("campaign server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.Int("max_tokens_per_hex", cfg.Campaign.MaxTokensPerHex),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	stopAutosave()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down HTTP server", zap.Error(err))
	}

	if err := sessionMgr.SaveAll(cfg.Campaign.SnapshotDir); err != nil {
		logger.Error("failed to save campaigns on shutdown", zap.Error(err))
	}

	logger.Info("campaign server stopped")
}

// restoreCampaigns loads every campaign snapshot found in the directory.
func restoreCampaigns(directory string, sessions *session.Manager, logger *zap.Logger) int {
	entries, err := os.ReadDir(directory)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read snapshot directory", zap.String("dir", directory), zap.Error(err))
		}
		return 0
	}
	restored := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(directory, entry.Name()))
		if err != nil {
			logger.Warn("failed to read snapshot", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		c, err := snapshot.Decode(data)
		if err != nil {
			logger.Warn("failed to decode snapshot", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if err := sessions.Register(c); err != nil {
			logger.Warn("failed to register campaign", zap.String("campaign_id", c.ID), zap.Error(err))
			continue
		}
		restored++
	}
	return restored
}

// autosaveLoop periodically snapshots every campaign to disk.
func autosaveLoop(ctx context.Context, cfg config.CampaignConfig, sessions *session.Manager, logger *zap.Logger) {
	if cfg.AutosaveInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.AutosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.SaveAll(cfg.SnapshotDir); err != nil {
				logger.Warn("autosave failed", zap.Error(err))
			} else {
				logger.Debug("autosave complete", zap.String("dir", cfg.SnapshotDir))
			}
		}
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
