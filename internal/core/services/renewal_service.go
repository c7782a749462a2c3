package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"moor/internal/core/domain"
)

// renewSchedule fires once a day at 03:17, off the top-of-the-hour herd.
const renewSchedule = "17 3 * * *"

// RenewalService re-runs issuance on a fixed daily schedule. By renewal time
// the live front server answers the challenge path from the same webroot, so
// no bootstrap listener is involved.
type RenewalService struct {
	issuer  domain.CertificateIssuer
	install func(*domain.IssuedCertificate, domain.CertificateBundle) error
	certDir string
	logPath string
	logger  *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

func NewRenewalService(
	issuer domain.CertificateIssuer,
	certs *CertService,
	certDir, logPath string,
	logger *slog.Logger,
) *RenewalService {
	return &RenewalService{
		issuer:  issuer,
		install: certs.Install,
		certDir: certDir,
		logPath: logPath,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Register installs the daily renewal job. Calling it again replaces the
// existing entry instead of stacking a second one.
func (s *RenewalService) Register(domainName, email string) error {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}

	id, err := s.cron.AddFunc(renewSchedule, func() {
		s.RenewNow(context.Background(), domainName, email)
	})
	if err != nil {
		return &domain.RenewalInstallError{Err: err}
	}
	s.entryID = id

	s.logger.Info("Renewal job registered",
		slog.String("schedule", renewSchedule), slog.String("domain", domainName))
	return nil
}

// Entries reports how many jobs are currently installed.
func (s *RenewalService) Entries() int { return len(s.cron.Entries()) }

// Start begins the cron runner; it lives for the rest of the process.
func (s *RenewalService) Start() { s.cron.Start() }

// Stop halts the runner, letting an in-flight renewal finish.
func (s *RenewalService) Stop() { s.cron.Stop() }

// RenewNow re-obtains and installs the certificate immediately. The cron job
// calls it on schedule; operators can trigger it out-of-band.
func (s *RenewalService) RenewNow(ctx context.Context, domainName, email string) {
	issued, err := s.issuer.Issue(ctx, domainName, email)
	if err != nil {
		s.logger.Error("Renewal failed", slog.String("domain", domainName), slog.Any("error", err))
		s.appendLog(fmt.Sprintf("renew %s: FAILED: %v", domainName, err))
		return
	}

	bundle := domain.NewCertificateBundle(s.certDir, domainName)
	if err := s.install(issued, bundle); err != nil {
		s.logger.Error("Renewed certificate install failed",
			slog.String("domain", domainName), slog.Any("error", err))
		s.appendLog(fmt.Sprintf("renew %s: INSTALL FAILED: %v", domainName, err))
		return
	}

	s.logger.Info("✅ Certificate renewed", slog.String("domain", domainName))
	s.appendLog(fmt.Sprintf("renew %s: OK", domainName))
}

// appendLog mirrors the outcome into the renewal log file for operators who
// only have the container volume, not the stdout stream.
func (s *RenewalService) appendLog(line string) {
	if err := os.MkdirAll(filepath.Dir(s.logPath), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(s.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", time.Now().UTC().Format(time.RFC3339), line)
}
