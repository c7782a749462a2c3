package services

import (
	"context"
	"log/slog"

	"moor/internal/config"
	"moor/internal/core/domain"
	"moor/internal/render"
)

// DatasetRefresher is the best-effort dataset source; its failures are
// warnings by contract.
type DatasetRefresher interface {
	RefreshAll(ctx context.Context) []error
}

// BootstrapService runs the startup pipeline: certificate, rendered configs,
// renewal job, datasets. Every stage blocks until complete; nothing runs
// concurrently.
type BootstrapService struct {
	cfg      *config.Config
	certs    *CertService
	renewal  *RenewalService
	datasets DatasetRefresher
	logger   *slog.Logger
}

func NewBootstrapService(
	cfg *config.Config,
	certs *CertService,
	renewal *RenewalService,
	datasets DatasetRefresher,
	logger *slog.Logger,
) *BootstrapService {
	return &BootstrapService{
		cfg:      cfg,
		certs:    certs,
		renewal:  renewal,
		datasets: datasets,
		logger:   logger,
	}
}

// Run executes the sequence up to (not including) the supervisor handoff.
func (b *BootstrapService) Run(ctx context.Context) error {
	bundle, err := b.certs.Ensure(ctx, b.cfg.Domain, b.cfg.Email)
	if err != nil {
		return err
	}

	xrayDoc, err := render.Xray(b.cfg, bundle)
	if err != nil {
		return err
	}
	if err := render.WriteFile(b.cfg.XrayConfigPath, xrayDoc); err != nil {
		return &domain.TemplateRenderError{Target: b.cfg.XrayConfigPath, Err: err}
	}

	nginxDoc, err := render.Nginx(b.cfg)
	if err != nil {
		return err
	}
	if err := render.WriteFile(b.cfg.NginxConfPath, nginxDoc); err != nil {
		return &domain.TemplateRenderError{Target: b.cfg.NginxConfPath, Err: err}
	}
	b.logger.Info("Service configs rendered",
		slog.String("xray", b.cfg.XrayConfigPath), slog.String("nginx", b.cfg.NginxConfPath))

	if err := b.renewal.Register(b.cfg.Domain, b.cfg.Email); err != nil {
		if domain.IsFatal(err) {
			return err
		}
		b.logger.Warn("Renewal job not installed", slog.Any("error", err))
	} else {
		b.renewal.Start()
	}

	// Warnings are already logged at the fetcher; they never abort the boot.
	_ = b.datasets.RefreshAll(ctx)

	return nil
}
