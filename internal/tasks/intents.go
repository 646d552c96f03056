// package tasks implements the effect orchestration core: it maps UI intents
// to workflows, runs each workflow under a per-intent concurrency policy, and
// translates outcomes into state-store events.
//
// Policies:
//   - unrestricted: every dispatch launches an independent workflow; no
//     deduplication, no cancellation. The last response to arrive wins, which
//     may not match dispatch order. Accepted limitation.
//   - latest-wins: a new dispatch supersedes any pending instance of the same
//     intent; a stale instance's outcome is never applied.
//   - debounced: only the trailing dispatch within a quiet window executes.
package tasks

import "github.com/desertthunder/trax/internal/services"

// Intent is the closed set of events the orchestrator accepts.
type Intent interface{ intent() }

// Login starts the authorization redirect flow. Unrestricted: each dispatch
// independently navigates, there is no shared state to race.
type Login struct{}

// AuthorizationDenied reports an error parameter on the provider callback; an
// aborted login, not a system failure.
type AuthorizationDenied struct{ Reason string }

// ExchangeCode exchanges an authorization code for a token. Latest-wins: only
// one code is ever valid, a stale exchange must not overwrite a newer one.
type ExchangeCode struct{ Code string }

// CheckSession validates a persisted token at startup. Latest-wins.
type CheckSession struct{}

// Logout clears the persisted token and resets the auth slice.
type Logout struct{}

// FetchPlaylists retrieves the first page of the user's playlists, replacing
// the cached collection wholesale.
type FetchPlaylists struct{}

// SelectPlaylist switches the tracked playlist, resetting its track collection
// before the first page fetch begins.
type SelectPlaylist struct{ Playlist services.Playlist }

// FetchTracks retrieves one page of the selected playlist's tracks.
type FetchTracks struct {
	PlaylistID string
	Offset     int
}

// LoadMoreTracks continues the track listing. A no-op when a fetch is already
// in flight, the listing is exhausted, or no playlist is selected.
type LoadMoreTracks struct{}

// AddTrack adds a track to a playlist. On success the orchestrator re-issues a
// fresh page-0 fetch of the playlist's tracks rather than inserting locally.
type AddTrack struct {
	PlaylistID string
	TrackURI   string
}

// RemoveTrack removes a track from a playlist. On success the track is
// filtered out of the cached collection by URI; no refetch.
type RemoveTrack struct {
	PlaylistID string
	TrackURI   string
}

// CreatePlaylist creates a private playlist for the current user.
type CreatePlaylist struct {
	Name        string
	Description string
}

// QueryChanged records a keystroke in the search box. Debounced: only the last
// query within the quiet window reaches the network. A blank query clears the
// results synchronously with no network call.
type QueryChanged struct{ Query string }

// LoadMoreSearch continues the search listing under the same preconditions as
// [LoadMoreTracks]. It bypasses the debounce window: scroll continuation has
// no burst to collapse and is already gated by the in-flight check.
type LoadMoreSearch struct{}

func (Login) intent()               {}
func (AuthorizationDenied) intent() {}
func (ExchangeCode) intent()        {}
func (CheckSession) intent()        {}
func (Logout) intent()              {}
func (FetchPlaylists) intent()      {}
func (SelectPlaylist) intent()      {}
func (FetchTracks) intent()         {}
func (LoadMoreTracks) intent()      {}
func (AddTrack) intent()            {}
func (RemoveTrack) intent()         {}
func (CreatePlaylist) intent()      {}
func (QueryChanged) intent()        {}
func (LoadMoreSearch) intent()      {}
