// Package supervisor keeps the two long-running services alive after the
// bootstrap sequence hands control over.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/thejerf/suture/v4"
)

// Process is one supervised long-running service. Serve blocks for the life
// of the child; returning hands the restart decision to suture.
type Process struct {
	Name string
	Path string
	Args []string

	Logger *slog.Logger
}

// Serve implements suture.Service.
func (p *Process) Serve(ctx context.Context) error {
	p.Logger.Info("Starting managed process",
		slog.String("name", p.Name), slog.String("path", p.Path))

	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s exited: %w", p.Name, err)
	}
	// Long-running services are not supposed to return at all; a clean exit
	// still gets restarted.
	return fmt.Errorf("%s exited cleanly", p.Name)
}

func (p *Process) String() string { return p.Name }

// Tree builds the supervision tree over the given processes. Serve on the
// returned supervisor blocks until the context is cancelled.
func Tree(logger *slog.Logger, procs ...*Process) *suture.Supervisor {
	sup := suture.New("moor", suture.Spec{
		EventHook: func(ev suture.Event) {
			logger.Warn("Supervisor event", slog.String("event", ev.String()))
		},
	})
	for _, p := range procs {
		if p.Logger == nil {
			p.Logger = logger
		}
		sup.Add(p)
	}
	return sup
}
