package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcess_ExitPropagates(t *testing.T) {
	p := &Process{Name: "failing", Path: "sh", Args: []string{"-c", "exit 3"}, Logger: testLogger()}
	err := p.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing exited")
}

func TestProcess_CleanExitStillErrors(t *testing.T) {
	// A managed service returning cleanly is a restart condition, not success.
	p := &Process{Name: "oneshot", Path: "true", Logger: testLogger()}
	err := p.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited cleanly")
}

func TestProcess_ContextCancelStopsChild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	p := &Process{Name: "sleeper", Path: "sleep", Args: []string{"30"}, Logger: testLogger()}

	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
