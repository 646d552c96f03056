// Spotify Web API client for the playlist manager.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/trax/internal/shared"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

const (
	// DefaultPageLimit is the page size for playlist and track listings.
	DefaultPageLimit = 50
	// DefaultSearchLimit is the page size for track search.
	DefaultSearchLimit = 20
)

type followers struct {
	Total int `json:"total"`
}

// User represents a Spotify user profile.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
	Images      []Image   `json:"images"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ReleaseDate string   `json:"release_date"`
	Images      []Image  `json:"images"`
	Artists     []Artist `json:"artists"`
	URI         string   `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	URI        string   `json:"uri"`
}

// PlaylistEntry represents a track within a playlist context.
type PlaylistEntry struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// Owner identifies the user a playlist belongs to.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// Playlist represents a Spotify playlist snapshot. Playlists are owned by the
// remote service, mirrored locally, and replaced wholesale on refetch.
type Playlist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
	Images      []Image        `json:"images"`
	URI         string         `json:"uri"`
}

// Page represents a paginated response envelope.
//
// Next is the server's continuation indicator: a nil Next means the listing is
// exhausted for the current query.
type Page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SearchResult wraps the track container of a search response, which mirrors
// the standard pagination shape nested under "tracks".
type SearchResult struct {
	Tracks Page[Track] `json:"tracks"`
}

// TrackURI constructs a Spotify track URI from a bare track identifier.
func TrackURI(trackID string) string {
	return fmt.Sprintf("spotify:track:%s", trackID)
}

// Catalog is the interface the orchestrator depends on for catalog access.
// Every call carries the bearer token explicitly; the client holds no session
// state of its own.
type Catalog interface {
	CurrentUser(ctx context.Context, token string) (*User, error)
	Playlists(ctx context.Context, token string, offset, limit int) (*Page[Playlist], error)
	PlaylistTracks(ctx context.Context, token, playlistID string, offset, limit int) (*Page[PlaylistEntry], error)
	SearchTracks(ctx context.Context, token, query string, offset, limit int) (*SearchResult, error)
	AddTrack(ctx context.Context, token, playlistID, trackURI string) error
	RemoveTrack(ctx context.Context, token, playlistID, trackURI string) error
	CreatePlaylist(ctx context.Context, token, userID, name, description string) (*Playlist, error)
}

// SpotifyClient implements [Catalog] against the Spotify Web API.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// SpotifyClientOpts contains construction options for [SpotifyClient].
type SpotifyClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	// RequestsPerSecond paces outbound calls; zero disables pacing.
	RequestsPerSecond float64
}

// NewSpotifyClient creates a catalog client with the given options.
func NewSpotifyClient(opts SpotifyClientOpts) *SpotifyClient {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &SpotifyClient{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    limiter,
	}
}

// doRequest performs an authenticated HTTP request against the catalog service.
//
// Non-2xx responses become a [shared.RemoteError] carrying the status text.
func (c *SpotifyClient) doRequest(ctx context.Context, token, method, endpoint string, body, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &shared.RemoteError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CurrentUser retrieves the authenticated user's profile.
func (c *SpotifyClient) CurrentUser(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.doRequest(ctx, token, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlists retrieves the current user's playlists with pagination.
func (c *SpotifyClient) Playlists(ctx context.Context, token string, offset, limit int) (*Page[Playlist], error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	endpoint := fmt.Sprintf("/me/playlists?offset=%d&limit=%d", offset, limit)

	var page Page[Playlist]
	if err := c.doRequest(ctx, token, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PlaylistTracks retrieves one page of a playlist's tracks.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, token, playlistID string, offset, limit int) (*Page[PlaylistEntry], error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?offset=%d&limit=%d", playlistID, offset, limit)

	var page Page[PlaylistEntry]
	if err := c.doRequest(ctx, token, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchTracks performs a track search with pagination.
func (c *SpotifyClient) SearchTracks(ctx context.Context, token, query string, offset, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&offset=%d&limit=%d", url.QueryEscape(query), offset, limit)

	var result SearchResult
	if err := c.doRequest(ctx, token, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddTrack appends a track to a playlist.
func (c *SpotifyClient) AddTrack(ctx context.Context, token, playlistID, trackURI string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	body := map[string]any{"uris": []string{trackURI}}
	return c.doRequest(ctx, token, http.MethodPost, endpoint, body, nil)
}

// RemoveTrack removes all occurrences of a track from a playlist.
func (c *SpotifyClient) RemoveTrack(ctx context.Context, token, playlistID, trackURI string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	body := map[string]any{
		"tracks": []map[string]string{{"uri": trackURI}},
	}
	return c.doRequest(ctx, token, http.MethodDelete, endpoint, body, nil)
}

// CreatePlaylist creates a private playlist for the given user.
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, token, userID, name, description string) (*Playlist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", userID)
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var playlist Playlist
	if err := c.doRequest(ctx, token, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}
