package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"moor/internal/core/domain"
)

// DefaultDatasetBaseURL hosts the routing/classification datasets consumed
// by the proxy's geoip/geosite rules.
const DefaultDatasetBaseURL = "https://github.com/Loyalsoldier/v2ray-rules-dat/releases/latest/download"

var datasetNames = []string{"geoip.dat", "geosite.dat"}

// DatasetFetcher refreshes the routing datasets best-effort. A failed or
// partial download never clobbers a previously cached copy.
type DatasetFetcher struct {
	baseURL string
	dataDir string
	client  *http.Client
	logger  *slog.Logger

	maxRetries    uint64
	retryInterval time.Duration
}

func NewDatasetFetcher(baseURL, dataDir string, logger *slog.Logger) *DatasetFetcher {
	return &DatasetFetcher{
		baseURL: baseURL,
		dataDir: dataDir,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,

		maxRetries:    2,
		retryInterval: 500 * time.Millisecond,
	}
}

// RefreshAll fetches every dataset independently and reports failures as
// warnings. Callers never abort on the returned slice.
func (f *DatasetFetcher) RefreshAll(ctx context.Context) []error {
	var warnings []error
	for _, name := range datasetNames {
		if err := f.refresh(ctx, name); err != nil {
			warnings = append(warnings, &domain.AuxiliaryFetchError{Dataset: name, Err: err})
			f.logger.Warn("Dataset refresh failed, keeping cached copy",
				slog.String("dataset", name), slog.Any("error", err))
			continue
		}
		f.logger.Info("Dataset refreshed", slog.String("dataset", name))
	}
	return warnings
}

func (f *DatasetFetcher) refresh(ctx context.Context, name string) error {
	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		return err
	}

	// A couple of quick retries covers transient CDN hiccups; anything
	// worse waits for the next container start.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, f.maxRetries), ctx)

	return backoff.Retry(func() error {
		return f.download(ctx, name)
	}, policy)
}

func (f *DatasetFetcher) download(ctx context.Context, name string) error {
	url := fmt.Sprintf("%s/%s", f.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	// Stage into a temp file in the same directory so the final rename is
	// atomic and a mid-transfer failure leaves the old file alone.
	tmp, err := os.CreateTemp(f.dataDir, name+".*.tmp")
	if err != nil {
		return backoff.Permanent(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(f.dataDir, name))
}
