package domain

import (
	"errors"
	"fmt"
)

// MissingRequiredInputError aborts the boot before any side effect happens.
type MissingRequiredInputError struct {
	Field string
}

func (e *MissingRequiredInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Field)
}

// CertificateIssuanceError is fatal: the proxy cannot terminate TLS without
// a certificate, and there is no retry within a single boot.
type CertificateIssuanceError struct {
	Domain string
	Err    error
}

func (e *CertificateIssuanceError) Error() string {
	return fmt.Sprintf("certificate issuance failed for %s: %v", e.Domain, e.Err)
}

func (e *CertificateIssuanceError) Unwrap() error { return e.Err }

// TemplateRenderError should be unreachable when the certificate stage ran
// first; it is enforced anyway.
type TemplateRenderError struct {
	Target string
	Err    error
}

func (e *TemplateRenderError) Error() string {
	return fmt.Sprintf("failed to render %s config: %v", e.Target, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }

// AuxiliaryFetchError is a warning: a stale routing dataset is better than a
// dead container.
type AuxiliaryFetchError struct {
	Dataset string
	Err     error
}

func (e *AuxiliaryFetchError) Error() string {
	return fmt.Sprintf("failed to refresh dataset %s: %v", e.Dataset, e.Err)
}

func (e *AuxiliaryFetchError) Unwrap() error { return e.Err }

// RenewalInstallError is a warning: the current certificate still has weeks
// of validity when the job fails to install.
type RenewalInstallError struct {
	Err error
}

func (e *RenewalInstallError) Error() string {
	return fmt.Sprintf("failed to install renewal job: %v", e.Err)
}

func (e *RenewalInstallError) Unwrap() error { return e.Err }

// IsFatal reports whether the boot sequence must abort on err. Everything is
// fatal except the two explicitly degradable kinds.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var fetchErr *AuxiliaryFetchError
	var renewErr *RenewalInstallError
	if errors.As(err, &fetchErr) || errors.As(err, &renewErr) {
		return false
	}
	return true
}
