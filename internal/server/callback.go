// package server receives the OAuth authorization redirect for CLI flows.
package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/trax/internal/shared"
)

// CallbackResult carries the authorization code captured from the redirect, or
// the reason the provider refused.
type CallbackResult struct {
	Code string
	err  error
}

func (r CallbackResult) Err() error {
	return r.err
}

// CallbackHandler captures the `code`/`error` query parameters of the
// authorization callback and forwards them through a one-shot channel.
//
// The handler deliberately does not exchange the code itself: the exchange
// runs in the orchestrator under its latest-wins policy, and an inline
// exchange here would bypass that.
type CallbackHandler struct {
	state      string
	resultChan chan CallbackResult
	once       sync.Once
	mu         sync.Mutex
	handled    bool
}

// NewCallbackHandler creates a handler expecting the given CSRF state token.
func NewCallbackHandler(state string) *CallbackHandler {
	return &CallbackHandler{
		state:      state,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Route returns the path the handler serves.
func (h *CallbackHandler) Route() string {
	return "/callback"
}

// ServeHTTP handles the authorization redirect.
//
// Validates the state parameter and forwards the code or denial through the
// result channel. Only the first callback is processed; replays are rejected.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.handled {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.handled = true
	h.mu.Unlock()

	query := r.URL.Query()

	if state := query.Get("state"); state != h.state {
		h.send(CallbackResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if errParam := query.Get("error"); errParam != "" {
		h.send(CallbackResult{err: fmt.Errorf("%w: %s", shared.ErrAuthDenied, errParam)})
		http.Error(w, "Authorization denied", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.send(CallbackResult{err: fmt.Errorf("callback carried no authorization code")})
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	h.send(CallbackResult{Code: code})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// send forwards the result through the channel (only once).
func (h *CallbackHandler) send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving callback completion.
//
// The channel receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}
