package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moor/internal/core/domain"
	"moor/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeIssuer struct {
	issued *domain.IssuedCertificate
	err    error
	calls  int
}

func (f *fakeIssuer) Issue(_ context.Context, domainName, _ string) (*domain.IssuedCertificate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.issued != nil {
		return f.issued, nil
	}
	return &domain.IssuedCertificate{
		Domain:       domainName,
		CertPEM:      []byte("leaf"),
		FullchainPEM: []byte("leaf+chain"),
		KeyPEM:       []byte("key"),
	}, nil
}

type fakeListener struct {
	started int
	stopped int
	running bool
	stopErr error
}

func (f *fakeListener) Start(context.Context) error {
	f.started++
	f.running = true
	return nil
}

func (f *fakeListener) Stop(context.Context) error {
	f.stopped++
	f.running = false
	return f.stopErr
}

func TestEnsure_CacheHit(t *testing.T) {
	certDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(certDir, "example.com.crt"), []byte("cert"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(certDir, "example.com.key"), []byte("key"), 0o600))

	issuer := &fakeIssuer{}
	listener := &fakeListener{}
	svc := services.NewCertService(certDir, t.TempDir(), issuer, listener, 0, testLogger())

	bundle, err := svc.Ensure(context.Background(), "example.com", "admin@example.com")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(certDir, "example.com.crt"), bundle.CertFile)
	assert.Equal(t, 0, issuer.calls, "cache hit must not touch the network")
	assert.Equal(t, 0, listener.started, "cache hit must not start the bootstrap listener")
}

func TestEnsure_IssuesOnCacheMiss(t *testing.T) {
	certDir := t.TempDir()
	webRoot := t.TempDir()
	issuer := &fakeIssuer{}
	listener := &fakeListener{}
	svc := services.NewCertService(certDir, webRoot, issuer, listener, 0, testLogger())

	bundle, err := svc.Ensure(context.Background(), "example.com", "admin@example.com")
	require.NoError(t, err)

	cert, err := os.ReadFile(bundle.CertFile)
	require.NoError(t, err)
	assert.Equal(t, "leaf", string(cert))

	fullchain, err := os.ReadFile(bundle.FullchainFile)
	require.NoError(t, err)
	assert.Equal(t, "leaf+chain", string(fullchain))

	info, err := os.Stat(bundle.KeyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Equal(t, 1, issuer.calls)
	assert.Equal(t, 1, listener.started)
	assert.Equal(t, 1, listener.stopped)
	assert.False(t, listener.running, "bootstrap listener must not survive Ensure")

	// The challenge directory is created before the listener starts.
	_, err = os.Stat(filepath.Join(webRoot, ".well-known", "acme-challenge"))
	assert.NoError(t, err)
}

func TestEnsure_IssuanceFailure(t *testing.T) {
	certDir := t.TempDir()
	issuer := &fakeIssuer{err: errors.New("CA said no")}
	listener := &fakeListener{}
	svc := services.NewCertService(certDir, t.TempDir(), issuer, listener, 0, testLogger())

	_, err := svc.Ensure(context.Background(), "example.com", "admin@example.com")
	require.Error(t, err)

	var issueErr *domain.CertificateIssuanceError
	require.True(t, errors.As(err, &issueErr))
	assert.Equal(t, "example.com", issueErr.Domain)
	assert.True(t, domain.IsFatal(err))

	assert.False(t, listener.running, "listener must be stopped on the failure path")
	assert.Equal(t, 1, listener.stopped)

	_, statErr := os.Stat(filepath.Join(certDir, "example.com.crt"))
	assert.True(t, os.IsNotExist(statErr), "no certificate files may be written on failure")
	_, statErr = os.Stat(filepath.Join(certDir, "example.com.key"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnsure_ListenerStopFailureIsFatal(t *testing.T) {
	issuer := &fakeIssuer{}
	listener := &fakeListener{stopErr: errors.New("port held")}
	svc := services.NewCertService(t.TempDir(), t.TempDir(), issuer, listener, 0, testLogger())

	_, err := svc.Ensure(context.Background(), "example.com", "admin@example.com")
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
	assert.Contains(t, err.Error(), "bootstrap listener")
}
