package domain

import (
	"os"
	"path/filepath"
)

// CertificateBundle points at the on-disk PEM material for one domain. The
// files are created by the certificate service, refreshed by the renewal
// job, and never deleted by anything in this system.
type CertificateBundle struct {
	Domain        string
	CertFile      string
	KeyFile       string
	FullchainFile string
}

func NewCertificateBundle(dir, domainName string) CertificateBundle {
	return CertificateBundle{
		Domain:        domainName,
		CertFile:      filepath.Join(dir, domainName+".crt"),
		KeyFile:       filepath.Join(dir, domainName+".key"),
		FullchainFile: filepath.Join(dir, domainName+".fullchain.crt"),
	}
}

// Exists reports whether the leaf certificate and the private key are both
// present on disk.
func (b CertificateBundle) Exists() bool {
	for _, p := range []string{b.CertFile, b.KeyFile} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}
