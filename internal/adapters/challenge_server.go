package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
)

// ChallengeServer is the bootstrap listener: it exists only long enough for
// the CA to fetch the validation token, then gets torn down so the real
// front server can take the port. It implements domain.ChallengeListener.
type ChallengeServer struct {
	addr    string
	webRoot string
	logger  *slog.Logger

	server *http.Server
	errCh  chan error
}

func NewChallengeServer(httpPort int, webRoot string, logger *slog.Logger) *ChallengeServer {
	return &ChallengeServer{
		addr:    fmt.Sprintf(":%d", httpPort),
		webRoot: webRoot,
		logger:  logger,
	}
}

// Start binds the port and begins serving. It returns only after the
// listener is bound, so a nil error means the CA can already reach us.
func (s *ChallengeServer) Start(ctx context.Context) error {
	challengeDir := filepath.Join(s.webRoot, ".well-known", "acme-challenge")

	r := chi.NewRouter()
	r.Handle("/.well-known/acme-challenge/*", http.StripPrefix(
		"/.well-known/acme-challenge/",
		http.FileServer(http.Dir(challengeDir)),
	))
	// Everything else answers a bare 200: the CA probes the root, and
	// scanners should see a boring empty site.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind challenge listener on %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()

	s.server = &http.Server{
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.errCh = make(chan error, 1)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()

	s.logger.Info("Bootstrap challenge listener up", slog.String("addr", s.addr))
	return nil
}

// Stop shuts the listener down and waits for the serve loop to drain. The
// port must be free when Stop returns.
func (s *ChallengeServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		// Last resort: rip the listener out so the front server can bind.
		if closeErr := s.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to stop challenge listener: %w", closeErr)
		}
	}
	<-s.errCh
	s.server = nil

	s.logger.Info("Bootstrap challenge listener stopped")
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *ChallengeServer) Addr() string { return s.addr }
