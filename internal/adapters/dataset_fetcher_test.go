package adapters

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastFetcher(baseURL, dataDir string) *DatasetFetcher {
	f := NewDatasetFetcher(baseURL, dataDir, testLogger())
	f.retryInterval = time.Millisecond
	return f
}

func TestRefreshAll_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload for " + r.URL.Path))
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	warnings := fastFetcher(srv.URL, dataDir).RefreshAll(context.Background())
	assert.Empty(t, warnings)

	for _, name := range []string{"geoip.dat", "geosite.dat"} {
		data, err := os.ReadFile(filepath.Join(dataDir, name))
		require.NoError(t, err)
		assert.Equal(t, "payload for /"+name, string(data))
	}
}

func TestRefreshAll_FailureKeepsCachedCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "geoip.dat"), []byte("old but good"), 0o644))

	warnings := fastFetcher(srv.URL, dataDir).RefreshAll(context.Background())
	assert.Len(t, warnings, 2, "each dataset fails independently")

	data, err := os.ReadFile(filepath.Join(dataDir, "geoip.dat"))
	require.NoError(t, err)
	assert.Equal(t, "old but good", string(data), "a failed fetch must not clobber the cached copy")

	leftovers, err := filepath.Glob(filepath.Join(dataDir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "no partial temp files may remain")
}

func TestRefreshAll_PartialBodyKeepsCachedCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1024")
		w.Write([]byte("trunc")) // lie about the length, then cut the body short
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "geosite.dat"), []byte("old but good"), 0o644))

	warnings := fastFetcher(srv.URL, dataDir).RefreshAll(context.Background())
	assert.Len(t, warnings, 2)

	data, err := os.ReadFile(filepath.Join(dataDir, "geosite.dat"))
	require.NoError(t, err)
	assert.Equal(t, "old but good", string(data))
}
