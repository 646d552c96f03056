package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/desertthunder/trax/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Session keys for the persisted verifier and access token.
const (
	SessionKeyVerifier = "code_verifier"
	SessionKeyToken    = "access_token"
)

const (
	verifierLength   = 64
	verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
)

// SessionStore persists session-scoped values (the PKCE verifier and the
// access token). It is single-writer: only the auth lifecycle touches it.
type SessionStore interface {
	Get(key string) (string, error)
	Put(key, value string) error
	Delete(key string) error
}

// Authorizer is the auth lifecycle interface the orchestrator depends on.
type Authorizer interface {
	// BeginAuthorization generates PKCE material, persists the verifier, and
	// returns the authorization URL the user must be navigated to.
	BeginAuthorization(ctx context.Context) (string, error)
	// CompleteAuthorization exchanges an authorization code and the previously
	// persisted verifier for an access token. The verifier is single-use.
	CompleteAuthorization(ctx context.Context, code string) (string, error)
	// RestoreSession returns the persisted access token, or "" without error
	// when none is stored. Pure lookup; no network access.
	RestoreSession() (string, error)
	PersistToken(token string) error
	ClearToken() error
	// State returns the CSRF state token attached to the authorize URL.
	State() string
}

// Authenticator owns the PKCE login lifecycle: challenge generation,
// authorization URL construction, code exchange, and session-scoped token
// persistence. Only an access token is ever persisted; refresh tokens are not
// part of this flow, so an expired token requires re-authorization.
type Authenticator struct {
	config   *oauth2.Config
	sessions SessionStore
	state    string
}

// NewAuthenticator creates an auth lifecycle manager from the Spotify client
// configuration and a session store.
func NewAuthenticator(cfg shared.SpotifyConfig, sessions SessionStore) (*Authenticator, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	scopes := strings.Fields(cfg.Scopes)

	return &Authenticator{
		config: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
				// Spotify's PKCE flow wants client_id in the form body, not
				// basic auth with an empty secret.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		sessions: sessions,
		state:    state,
	}, nil
}

// SetEndpoint overrides the authorization and token endpoints. Used by tests
// to point the exchange at a local server.
func (a *Authenticator) SetEndpoint(authURL, tokenURL string) {
	a.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}
}

// State returns the CSRF state token for callback validation.
func (a *Authenticator) State() string {
	return a.state
}

// GenerateVerifier produces a cryptographically random PKCE verifier using the
// unreserved URL-safe alphabet of RFC 7636.
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verifier: %w", err)
	}
	for i, b := range buf {
		buf[i] = verifierAlphabet[int(b)%len(verifierAlphabet)]
	}
	return string(buf), nil
}

// ChallengeS256 derives the PKCE challenge: the URL-safe base64 encoding
// (unpadded) of the SHA-256 digest of the verifier.
func ChallengeS256(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// BeginAuthorization implements [Authorizer].
//
// Fails with [shared.ErrMissingConfig] when the client identifier or redirect
// target is absent; this is a configuration error, not a network error.
func (a *Authenticator) BeginAuthorization(ctx context.Context) (string, error) {
	if a.config.ClientID == "" || a.config.RedirectURL == "" {
		return "", fmt.Errorf("%w: Spotify client_id and redirect_uri must be set", shared.ErrMissingConfig)
	}

	verifier, err := GenerateVerifier()
	if err != nil {
		return "", err
	}

	if err := a.sessions.Put(SessionKeyVerifier, verifier); err != nil {
		return "", fmt.Errorf("failed to persist verifier: %w", err)
	}

	authURL := a.config.AuthCodeURL(a.state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", ChallengeS256(verifier)),
	)

	return authURL, nil
}

// CompleteAuthorization implements [Authorizer].
//
// Requires a previously persisted verifier; fails with
// [shared.ErrMissingVerifier] when none exists (e.g. the callback URL was
// opened directly). The verifier is deleted after the exchange regardless of
// outcome. The token is returned, not persisted; persisting is the caller's
// decision so a superseded exchange never writes partial state.
func (a *Authenticator) CompleteAuthorization(ctx context.Context, code string) (string, error) {
	verifier, err := a.sessions.Get(SessionKeyVerifier)
	if err != nil || verifier == "" {
		return "", shared.ErrMissingVerifier
	}

	token, err := a.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))

	if delErr := a.sessions.Delete(SessionKeyVerifier); delErr != nil && err == nil {
		err = fmt.Errorf("failed to discard verifier: %w", delErr)
	}

	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}

	return token.AccessToken, nil
}

// RestoreSession implements [Authorizer].
func (a *Authenticator) RestoreSession() (string, error) {
	return a.sessions.Get(SessionKeyToken)
}

// PersistToken implements [Authorizer].
func (a *Authenticator) PersistToken(token string) error {
	return a.sessions.Put(SessionKeyToken, token)
}

// ClearToken implements [Authorizer].
func (a *Authenticator) ClearToken() error {
	return a.sessions.Delete(SessionKeyToken)
}
