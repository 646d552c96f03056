package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trax/internal/server"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/tasks"
	"github.com/desertthunder/trax/internal/ui"
	"github.com/urfave/cli/v3"
)

// callbackRelay serves authorization callbacks for the lifetime of a TUI
// session. Each captured result is forwarded to the orchestrator and the
// one-shot handler is replaced, so a failed login can be retried.
type callbackRelay struct {
	ctx          context.Context
	state        string
	orchestrator *tasks.Orchestrator

	mu      sync.Mutex
	handler *server.CallbackHandler
}

func newCallbackRelay(ctx context.Context, state string, orchestrator *tasks.Orchestrator) *callbackRelay {
	relay := &callbackRelay{ctx: ctx, state: state, orchestrator: orchestrator}
	relay.arm()
	return relay
}

func (c *callbackRelay) arm() {
	c.mu.Lock()
	c.handler = server.NewCallbackHandler(c.state)
	handler := c.handler
	c.mu.Unlock()

	go func() {
		result, ok := <-handler.Result()
		if !ok {
			return
		}

		if err := result.Err(); err != nil {
			c.orchestrator.Dispatch(c.ctx, tasks.AuthorizationDenied{Reason: err.Error()})
		} else {
			c.orchestrator.Dispatch(c.ctx, tasks.ExchangeCode{Code: result.Code})
		}

		c.arm()
	}()
}

func (c *callbackRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	handler.ServeHTTP(w, r)
}

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/trax-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	relay := newCallbackRelay(ctx, r.auth.State(), r.orchestrator)
	mux := http.NewServeMux()
	mux.Handle("/callback", relay)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{Addr: serverAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fileLogger.Error("callback server failed", "error", err)
		}
	}()
	defer httpServer.Close()

	model := ui.NewModel(ctx, r.orchestrator, r.store)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
