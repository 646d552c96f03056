package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trax/internal/services"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/store"
	"github.com/desertthunder/trax/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config       *shared.Config
	store        *store.Store
	orchestrator *tasks.Orchestrator
	auth         services.Authorizer
	catalog      services.Catalog
	logger       *log.Logger
	output       io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config       *shared.Config
	Store        *store.Store
	Orchestrator *tasks.Orchestrator
	Auth         services.Authorizer
	Catalog      services.Catalog
	Logger       *log.Logger
	Output       io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:       opts.Config,
		store:        opts.Store,
		orchestrator: opts.Orchestrator,
		auth:         opts.Auth,
		catalog:      opts.Catalog,
		logger:       opts.Logger,
		output:       opts.Output,
	}
}

// SetLogger replaces the runner and orchestrator logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, searchCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureSession restores and validates a persisted token, blocking until the
// auth slice settles. Returns an error when no valid session exists.
func (r *Runner) ensureSession(ctx context.Context) error {
	r.orchestrator.Dispatch(ctx, tasks.CheckSession{})
	r.orchestrator.Wait()

	auth := r.store.State().Auth
	if !auth.Authenticated {
		if auth.Err != "" {
			return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, auth.Err)
		}
		return fmt.Errorf("%w: run 'trax auth login' first", shared.ErrNotAuthenticated)
	}

	return nil
}

// waitFor blocks until a store snapshot satisfies the predicate or the timeout
// elapses. The current snapshot is checked first, so a condition that already
// holds returns immediately.
func (r *Runner) waitFor(pred func(store.State) bool, timeout time.Duration) (store.State, error) {
	updates := r.store.Subscribe()

	snapshot := r.store.State()
	if pred(snapshot) {
		return snapshot, nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case snapshot = <-updates:
			if pred(snapshot) {
				return snapshot, nil
			}
		case <-deadline.C:
			return snapshot, fmt.Errorf("%w: state did not settle within %v", shared.ErrTimeout, timeout)
		}
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
