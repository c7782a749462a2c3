package adapters

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"moor/internal/core/domain"
)

// acmeUser satisfies lego's registration.User.
type acmeUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *acmeUser) GetEmail() string                        { return u.email }
func (u *acmeUser) GetRegistration() *registration.Resource { return u.registration }
func (u *acmeUser) GetPrivateKey() crypto.PrivateKey        { return u.key }

// webrootProvider answers the HTTP-01 challenge by dropping the keyAuth file
// where the challenge listener (or the live front server, during renewal)
// serves it from.
type webrootProvider struct {
	webRoot string
}

func (p *webrootProvider) Present(domainName, token, keyAuth string) error {
	fullPath := filepath.Join(p.webRoot, http01.ChallengePath(token))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, []byte(keyAuth), 0o644)
}

func (p *webrootProvider) CleanUp(domainName, token, keyAuth string) error {
	return os.Remove(filepath.Join(p.webRoot, http01.ChallengePath(token)))
}

// AcmeIssuer obtains certificates from the configured CA over the HTTP-01
// challenge. It implements domain.CertificateIssuer.
type AcmeIssuer struct {
	directoryURL string
	webRoot      string
	logger       *slog.Logger
}

func NewAcmeIssuer(directoryURL, webRoot string, logger *slog.Logger) *AcmeIssuer {
	return &AcmeIssuer{
		directoryURL: directoryURL,
		webRoot:      webRoot,
		logger:       logger,
	}
}

func (i *AcmeIssuer) Issue(ctx context.Context, domainName, email string) (*domain.IssuedCertificate, error) {
	i.logger.Info("Starting ACME certificate provision", slog.String("domain", domainName))

	// Fresh account key per issuance; the CA treats each run as a new
	// account, which is fine at once-a-day renewal volume.
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate account key: %w", err)
	}

	user := acmeUser{email: email, key: privateKey}

	cfg := lego.NewConfig(&user)
	cfg.CADirURL = i.directoryURL
	cfg.Certificate.KeyType = certcrypto.EC256

	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create lego client: %w", err)
	}

	provider := &webrootProvider{webRoot: i.webRoot}
	if err := client.Challenge.SetHTTP01Provider(provider); err != nil {
		return nil, fmt.Errorf("failed to set http01 provider: %w", err)
	}

	reg, err := client.Registration.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		return nil, fmt.Errorf("failed to register ACME account: %w", err)
	}
	user.registration = reg

	request := certificate.ObtainRequest{
		Domains: []string{domainName},
		Bundle:  true,
	}
	certs, err := client.Certificate.Obtain(request)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain certificate for %s: %w", domainName, err)
	}

	i.logger.Info("✅ Certificate obtained from CA", slog.String("domain", domainName))
	return &domain.IssuedCertificate{
		Domain:       domainName,
		CertPEM:      leafPEM(certs.Certificate),
		FullchainPEM: certs.Certificate,
		KeyPEM:       certs.PrivateKey,
	}, nil
}

// leafPEM extracts the first certificate block from a bundled chain.
func leafPEM(bundle []byte) []byte {
	block, _ := pem.Decode(bundle)
	if block == nil {
		return bundle
	}
	return pem.EncodeToMemory(block)
}
