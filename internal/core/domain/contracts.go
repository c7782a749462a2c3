package domain

import "context"

// IssuedCertificate carries the PEM material returned by the CA.
type IssuedCertificate struct {
	Domain       string
	CertPEM      []byte // leaf only
	FullchainPEM []byte
	KeyPEM       []byte
}

// CertificateIssuer negotiates issuance with a certificate authority via the
// HTTP-01 domain-validation challenge.
type CertificateIssuer interface {
	Issue(ctx context.Context, domainName, email string) (*IssuedCertificate, error)
}

// ChallengeListener is the short-lived HTTP responder that satisfies the
// domain-validation probe while the real front server is not running yet.
type ChallengeListener interface {
	// Start returns only once the listener is bound and serving.
	Start(ctx context.Context) error

	// Stop shuts the listener down gracefully. It must not leave the port
	// held: the front server binds the same port right after.
	Stop(ctx context.Context) error
}
