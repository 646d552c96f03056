// package testing contains shared testing utilities
package testing

import (
	"context"
	"net/http"
	"sync"

	"github.com/desertthunder/trax/internal/services"
)

// MemorySessionStore is an in-memory [services.SessionStore] for tests.
type MemorySessionStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{values: map[string]string{}}
}

func (m *MemorySessionStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemorySessionStore) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySessionStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// MockCatalog is a test double for [services.Catalog] with per-method hooks
// and call recording.
type MockCatalog struct {
	mu    sync.Mutex
	calls map[string]int

	CurrentUserFunc    func(ctx context.Context, token string) (*services.User, error)
	PlaylistsFunc      func(ctx context.Context, token string, offset, limit int) (*services.Page[services.Playlist], error)
	PlaylistTracksFunc func(ctx context.Context, token, playlistID string, offset, limit int) (*services.Page[services.PlaylistEntry], error)
	SearchTracksFunc   func(ctx context.Context, token, query string, offset, limit int) (*services.SearchResult, error)
	AddTrackFunc       func(ctx context.Context, token, playlistID, trackURI string) error
	RemoveTrackFunc    func(ctx context.Context, token, playlistID, trackURI string) error
	CreatePlaylistFunc func(ctx context.Context, token, userID, name, description string) (*services.Playlist, error)
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{calls: map[string]int{}}
}

// Calls returns how many times the named method was invoked.
func (m *MockCatalog) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockCatalog) record(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *MockCatalog) CurrentUser(ctx context.Context, token string) (*services.User, error) {
	m.record("CurrentUser")
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, token)
	}
	return &services.User{ID: "user"}, nil
}

func (m *MockCatalog) Playlists(ctx context.Context, token string, offset, limit int) (*services.Page[services.Playlist], error) {
	m.record("Playlists")
	if m.PlaylistsFunc != nil {
		return m.PlaylistsFunc(ctx, token, offset, limit)
	}
	return &services.Page[services.Playlist]{}, nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, token, playlistID string, offset, limit int) (*services.Page[services.PlaylistEntry], error) {
	m.record("PlaylistTracks")
	if m.PlaylistTracksFunc != nil {
		return m.PlaylistTracksFunc(ctx, token, playlistID, offset, limit)
	}
	return &services.Page[services.PlaylistEntry]{}, nil
}

func (m *MockCatalog) SearchTracks(ctx context.Context, token, query string, offset, limit int) (*services.SearchResult, error) {
	m.record("SearchTracks")
	if m.SearchTracksFunc != nil {
		return m.SearchTracksFunc(ctx, token, query, offset, limit)
	}
	return &services.SearchResult{}, nil
}

func (m *MockCatalog) AddTrack(ctx context.Context, token, playlistID, trackURI string) error {
	m.record("AddTrack")
	if m.AddTrackFunc != nil {
		return m.AddTrackFunc(ctx, token, playlistID, trackURI)
	}
	return nil
}

func (m *MockCatalog) RemoveTrack(ctx context.Context, token, playlistID, trackURI string) error {
	m.record("RemoveTrack")
	if m.RemoveTrackFunc != nil {
		return m.RemoveTrackFunc(ctx, token, playlistID, trackURI)
	}
	return nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, token, userID, name, description string) (*services.Playlist, error) {
	m.record("CreatePlaylist")
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, token, userID, name, description)
	}
	return &services.Playlist{Name: name}, nil
}

// MockAuthorizer is a test double for [services.Authorizer].
type MockAuthorizer struct {
	mu    sync.Mutex
	calls map[string]int

	Sessions *MemorySessionStore

	BeginFunc    func(ctx context.Context) (string, error)
	CompleteFunc func(ctx context.Context, code string) (string, error)
}

func NewMockAuthorizer() *MockAuthorizer {
	return &MockAuthorizer{
		calls:    map[string]int{},
		Sessions: NewMemorySessionStore(),
	}
}

func (m *MockAuthorizer) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockAuthorizer) record(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *MockAuthorizer) BeginAuthorization(ctx context.Context) (string, error) {
	m.record("BeginAuthorization")
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return "https://accounts.spotify.com/authorize?client_id=test", nil
}

func (m *MockAuthorizer) CompleteAuthorization(ctx context.Context, code string) (string, error) {
	m.record("CompleteAuthorization")
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, code)
	}
	return "token-" + code, nil
}

func (m *MockAuthorizer) RestoreSession() (string, error) {
	m.record("RestoreSession")
	return m.Sessions.Get(services.SessionKeyToken)
}

func (m *MockAuthorizer) PersistToken(token string) error {
	m.record("PersistToken")
	return m.Sessions.Put(services.SessionKeyToken, token)
}

func (m *MockAuthorizer) ClearToken() error {
	m.record("ClearToken")
	return m.Sessions.Delete(services.SessionKeyToken)
}

func (m *MockAuthorizer) State() string { return "test-state" }

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
