package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")

	// Authentication errors
	ErrAuthDenied      = fmt.Errorf("authorization denied")
	ErrMissingVerifier = fmt.Errorf("code verifier not found")
	ErrExchangeFailed  = fmt.Errorf("token exchange failed")
	// ErrSessionExpired is the user-facing failure for a stored token that no
	// longer validates; its text is rendered verbatim and is distinct from any
	// fresh-login failure.
	ErrSessionExpired   = fmt.Errorf("Session expired")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest = fmt.Errorf("API request failed")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// RemoteError represents a non-success response from the catalog service.
//
// The status text is surfaced verbatim in slice error fields, matching what the
// remote reported rather than a locally invented message.
type RemoteError struct {
	StatusCode int
	Status     string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%v: %s", ErrAPIRequest, e.Status)
}

func (e *RemoteError) Unwrap() error {
	return ErrAPIRequest
}

// Unauthorized reports whether the remote rejected the bearer token.
func (e *RemoteError) Unauthorized() bool {
	return e.StatusCode == 401
}
