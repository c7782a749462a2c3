package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moor/internal/adapters"
	"moor/internal/config"
	"moor/internal/core/services"
	"moor/internal/supervisor"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("FATAL: bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	logger.Info("🚀 Booting moor...")

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using process environment")
	}

	cfg, err := config.Resolve()
	if err != nil {
		return err
	}
	if cfg.GeneratedID {
		logger.Info("Generated client id", slog.String("uuid", cfg.ClientID))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer := adapters.NewAcmeIssuer(cfg.ACMEDirectory, cfg.WebRoot, logger)
	listener := adapters.NewChallengeServer(cfg.HTTPPort, cfg.WebRoot, logger)
	certs := services.NewCertService(cfg.CertDir, cfg.WebRoot, issuer, listener, 2*time.Second, logger)
	renewal := services.NewRenewalService(issuer, certs, cfg.CertDir, cfg.RenewLogPath, logger)
	datasets := adapters.NewDatasetFetcher(adapters.DefaultDatasetBaseURL, cfg.DataDir, logger)

	boot := services.NewBootstrapService(cfg, certs, renewal, datasets, logger)
	if err := boot.Run(ctx); err != nil {
		return err
	}

	// Handoff: from here on the supervisor owns the process lifetime.
	logger.Info("🌐 Handing off to the process supervisor",
		slog.String("domain", cfg.Domain), slog.Int("port", cfg.Port))

	tree := supervisor.Tree(logger,
		&supervisor.Process{Name: "xray", Path: cfg.XrayBin, Args: []string{"run", "-c", cfg.XrayConfigPath}},
		&supervisor.Process{Name: "nginx", Path: cfg.NginxBin, Args: []string{"-g", "daemon off;"}},
	)

	err = tree.Serve(ctx)
	if ctx.Err() != nil {
		logger.Info("🛑 Shutting down...")
		renewal.Stop()
		return nil
	}
	return err
}
