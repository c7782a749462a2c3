package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"moor/internal/core/domain"
)

// CertService decides between the cached and issuance paths and owns the
// bootstrap listener for the duration of issuance.
type CertService struct {
	certDir  string
	webRoot  string
	issuer   domain.CertificateIssuer
	listener domain.ChallengeListener
	settle   time.Duration
	logger   *slog.Logger
}

func NewCertService(
	certDir, webRoot string,
	issuer domain.CertificateIssuer,
	listener domain.ChallengeListener,
	settle time.Duration,
	logger *slog.Logger,
) *CertService {
	return &CertService{
		certDir:  certDir,
		webRoot:  webRoot,
		issuer:   issuer,
		listener: listener,
		settle:   settle,
		logger:   logger,
	}
}

// Ensure returns a bundle for domainName, obtaining one from the CA when the
// cache misses. The bootstrap listener never survives this call, on either
// the success or the failure path.
func (s *CertService) Ensure(ctx context.Context, domainName, email string) (domain.CertificateBundle, error) {
	bundle := domain.NewCertificateBundle(s.certDir, domainName)
	if bundle.Exists() {
		s.logger.Info("Certificate cache hit, skipping issuance", slog.String("domain", domainName))
		return bundle, nil
	}

	s.logger.Info("No cached certificate, starting issuance", slog.String("domain", domainName))

	challengeDir := filepath.Join(s.webRoot, ".well-known", "acme-challenge")
	if err := os.MkdirAll(challengeDir, 0o755); err != nil {
		return domain.CertificateBundle{}, &domain.CertificateIssuanceError{Domain: domainName, Err: err}
	}

	if err := s.listener.Start(ctx); err != nil {
		return domain.CertificateBundle{}, &domain.CertificateIssuanceError{Domain: domainName, Err: err}
	}

	// Give the listener a moment to settle before pointing the CA at it.
	time.Sleep(s.settle)

	issued, issueErr := s.issuer.Issue(ctx, domainName, email)

	// A surviving listener would collide with the front server on the same
	// port, so a failed stop escalates over whatever issuance did.
	if stopErr := s.listener.Stop(ctx); stopErr != nil {
		return domain.CertificateBundle{}, &domain.CertificateIssuanceError{
			Domain: domainName,
			Err:    fmt.Errorf("failed to stop bootstrap listener: %w", stopErr),
		}
	}

	if issueErr != nil {
		return domain.CertificateBundle{}, &domain.CertificateIssuanceError{Domain: domainName, Err: issueErr}
	}

	if err := s.Install(issued, bundle); err != nil {
		return domain.CertificateBundle{}, &domain.CertificateIssuanceError{Domain: domainName, Err: err}
	}

	s.logger.Info("✅ Certificate installed",
		slog.String("domain", domainName), slog.String("cert", bundle.CertFile))
	return bundle, nil
}

// Install writes the PEM material into the certificate directory. Each file
// lands via a temp path and rename, so a crash mid-write cannot leave a
// half-written certificate behind.
func (s *CertService) Install(issued *domain.IssuedCertificate, bundle domain.CertificateBundle) error {
	if err := os.MkdirAll(s.certDir, 0o755); err != nil {
		return err
	}

	files := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{bundle.CertFile, issued.CertPEM, 0o644},
		{bundle.FullchainFile, issued.FullchainPEM, 0o644},
		{bundle.KeyFile, issued.KeyPEM, 0o600},
	}
	for _, f := range files {
		if err := replaceFile(f.path, f.data, f.mode); err != nil {
			return fmt.Errorf("failed to install %s: %w", f.path, err)
		}
	}
	return nil
}

func replaceFile(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
