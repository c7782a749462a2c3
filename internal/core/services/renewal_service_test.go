package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moor/internal/core/services"
)

func newRenewalFixture(t *testing.T, issuer *fakeIssuer) (*services.RenewalService, string, string) {
	t.Helper()
	certDir := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "renew.log")
	certs := services.NewCertService(certDir, t.TempDir(), issuer, &fakeListener{}, 0, testLogger())
	return services.NewRenewalService(issuer, certs, certDir, logPath, testLogger()), certDir, logPath
}

func TestRegister_Idempotent(t *testing.T) {
	svc, _, _ := newRenewalFixture(t, &fakeIssuer{})

	require.NoError(t, svc.Register("example.com", "admin@example.com"))
	require.NoError(t, svc.Register("example.com", "admin@example.com"))

	assert.Equal(t, 1, svc.Entries(), "re-registering must replace, not duplicate")
}

func TestRenewNow_InstallsBundle(t *testing.T) {
	issuer := &fakeIssuer{}
	svc, certDir, logPath := newRenewalFixture(t, issuer)

	svc.RenewNow(context.Background(), "example.com", "admin@example.com")

	key, err := os.ReadFile(filepath.Join(certDir, "example.com.key"))
	require.NoError(t, err)
	assert.Equal(t, "key", string(key))

	logData, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "renew example.com: OK")
}

func TestRenewNow_FailureLeavesNoFiles(t *testing.T) {
	issuer := &fakeIssuer{err: errors.New("CA unreachable")}
	svc, certDir, logPath := newRenewalFixture(t, issuer)

	svc.RenewNow(context.Background(), "example.com", "admin@example.com")

	_, statErr := os.Stat(filepath.Join(certDir, "example.com.crt"))
	assert.True(t, os.IsNotExist(statErr))

	logData, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "FAILED")
}
