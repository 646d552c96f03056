package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/trax/internal/server"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/tasks"
	"github.com/urfave/cli/v3"
)

const authTimeout = 2 * time.Minute

// AuthLogin performs the PKCE authorization flow with a local HTTP server.
//
// Starts a callback server, opens the browser for user authorization, and
// hands the captured code to the orchestrator for exchange.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	handler := server.NewCallbackHandler(r.auth.State())
	mux := http.NewServeMux()
	mux.Handle(handler.Route(), handler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	r.orchestrator.Dispatch(ctx, tasks.Login{})

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.CallbackResult

	select {
	case result = <-handler.Result():
		// Got the redirect
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if err := result.Err(); err != nil {
		r.orchestrator.Dispatch(ctx, tasks.AuthorizationDenied{Reason: err.Error()})
		r.orchestrator.Wait()
		return fmt.Errorf("authorization failed: %w", err)
	}

	r.orchestrator.Dispatch(ctx, tasks.ExchangeCode{Code: result.Code})
	r.orchestrator.Wait()

	auth := r.store.State().Auth
	if !auth.Authenticated {
		return fmt.Errorf("login failed: %s", auth.Err)
	}

	r.writePlainln("✓ Authorization successful")
	if auth.User != nil {
		r.writePlain("✓ Logged in as %s\n\n", userLabel(auth.User.DisplayName, auth.User.ID))
	}
	r.writePlain("You can now use: trax playlists list\n")

	return nil
}

// AuthStatus restores and validates the persisted session, then reports it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.orchestrator.Dispatch(ctx, tasks.CheckSession{})
	r.orchestrator.Wait()

	auth := r.store.State().Auth

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated": auth.Authenticated,
			"user":          auth.User,
			"error":         auth.Err,
		}, true)
	}

	if !auth.Authenticated {
		if auth.Err != "" {
			r.writePlain("✗ Not authenticated: %s\n", auth.Err)
		} else {
			r.writePlain("✗ Not authenticated\n")
		}
		r.writePlain("Run 'trax auth login' to authorize.\n")
		return nil
	}

	r.writePlain("✓ Authenticated\n")
	if auth.User != nil {
		r.writePlain("User: %s\n", userLabel(auth.User.DisplayName, auth.User.ID))
		if auth.User.Product != "" {
			r.writePlain("Plan: %s\n", auth.User.Product)
		}
	}

	return nil
}

// AuthLogout clears the persisted session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.orchestrator.Dispatch(ctx, tasks.Logout{})
	r.orchestrator.Wait()

	return r.writePlain("✓ Logged out\n")
}

func userLabel(displayName, id string) string {
	if displayName != "" {
		return displayName
	}
	return id
}
