// package store holds the application state as three independent,
// event-driven slices: auth, playlist, and search.
//
// Slices transition only in response to orchestrator-emitted events; nothing
// else mutates state. Each transition is a pure function from the previous
// slice value and an event to the next slice value.
package store

import (
	"strings"

	"github.com/desertthunder/trax/internal/services"
)

// AuthState tracks the login session.
//
// Authenticated implies AccessToken and User are set; Loading is true only
// while an auth workflow is in flight.
type AuthState struct {
	Authenticated bool
	AccessToken   string
	User          *services.User
	Loading       bool
	Err           string
}

// PlaylistState tracks the playlist collection, the selected playlist, and the
// paginated track listing for that selection.
//
// Offset is the cumulative count of track entries retrieved for the current
// selection; HasMore=false is terminal until a different playlist is selected.
type PlaylistState struct {
	Playlists []services.Playlist
	Selected  *services.Playlist
	Tracks    []services.PlaylistEntry
	Loading   bool
	Err       string
	HasMore   bool
	Offset    int
}

// SearchState tracks the live query and its paginated results. An empty query
// means no search is active and the collection is logically absent.
type SearchState struct {
	Query   string
	Results []services.Track
	Loading bool
	Err     string
	HasMore bool
	Offset  int
}

// State is the complete application state.
type State struct {
	Auth     AuthState
	Playlist PlaylistState
	Search   SearchState
}

// Event is the closed set of state transitions. Each event is consumed by
// exactly one slice.
type Event interface{ event() }

// Auth slice events.

type LoginRequested struct{}

type LoginSucceeded struct {
	AccessToken string
	User        *services.User
}

type LoginFailed struct{ Message string }

// SessionAbsent reports a session check that found no stored token.
type SessionAbsent struct{}

type LoggedOut struct{}

// Playlist slice events.

type PlaylistsRequested struct{}

type PlaylistsLoaded struct{ Playlists []services.Playlist }

type PlaylistsFailed struct{ Message string }

// PlaylistSelected resets the track collection before the first page fetch, so
// stale tracks from a previous selection are never visible.
type PlaylistSelected struct{ Playlist services.Playlist }

type TracksRequested struct{ Offset int }

type TracksLoaded struct {
	Tracks  []services.PlaylistEntry
	HasMore bool
	Offset  int
}

type TracksFailed struct{ Message string }

type TrackAddRequested struct{}

type TrackAdded struct{}

type TrackAddFailed struct{ Message string }

type TrackRemoveRequested struct{}

// TrackRemoved reconciles a successful removal locally by URI; no refetch.
type TrackRemoved struct{ TrackURI string }

type TrackRemoveFailed struct{ Message string }

type PlaylistCreateRequested struct{}

type PlaylistCreated struct{ Playlist services.Playlist }

type PlaylistCreateFailed struct{ Message string }

// Search slice events.

// QueryChanged records the live input string. A blank query synchronously
// clears the results with no network call.
type QueryChanged struct{ Query string }

type SearchRequested struct{ Offset int }

type SearchLoaded struct {
	Tracks  []services.Track
	HasMore bool
	Offset  int
}

type SearchFailed struct{ Message string }

type SearchCleared struct{}

func (LoginRequested) event()          {}
func (LoginSucceeded) event()          {}
func (LoginFailed) event()             {}
func (SessionAbsent) event()           {}
func (LoggedOut) event()               {}
func (PlaylistsRequested) event()      {}
func (PlaylistsLoaded) event()         {}
func (PlaylistsFailed) event()         {}
func (PlaylistSelected) event()        {}
func (TracksRequested) event()         {}
func (TracksLoaded) event()            {}
func (TracksFailed) event()            {}
func (TrackAddRequested) event()       {}
func (TrackAdded) event()              {}
func (TrackAddFailed) event()          {}
func (TrackRemoveRequested) event()    {}
func (TrackRemoved) event()            {}
func (TrackRemoveFailed) event()       {}
func (PlaylistCreateRequested) event() {}
func (PlaylistCreated) event()         {}
func (PlaylistCreateFailed) event()    {}
func (QueryChanged) event()            {}
func (SearchRequested) event()         {}
func (SearchLoaded) event()            {}
func (SearchFailed) event()            {}
func (SearchCleared) event()           {}

// reduce applies an event to the state, returning the next state.
func reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case LoginRequested:
		s.Auth.Loading = true
		s.Auth.Err = ""

	case LoginSucceeded:
		s.Auth = AuthState{
			Authenticated: true,
			AccessToken:   ev.AccessToken,
			User:          ev.User,
		}

	case LoginFailed:
		s.Auth = AuthState{Err: ev.Message}

	case SessionAbsent:
		s.Auth.Loading = false

	case LoggedOut:
		s.Auth = AuthState{}

	case PlaylistsRequested:
		s.Playlist.Loading = true
		s.Playlist.Err = ""

	case PlaylistsLoaded:
		s.Playlist.Loading = false
		s.Playlist.Playlists = ev.Playlists
		s.Playlist.Err = ""

	case PlaylistsFailed:
		s.Playlist.Loading = false
		s.Playlist.Err = ev.Message

	case PlaylistSelected:
		selected := ev.Playlist
		s.Playlist.Selected = &selected
		s.Playlist.Tracks = nil
		s.Playlist.Offset = 0
		s.Playlist.HasMore = true

	case TracksRequested:
		if ev.Offset == 0 {
			s.Playlist.Tracks = nil
		}
		s.Playlist.Loading = true
		s.Playlist.Err = ""

	case TracksLoaded:
		s.Playlist.Loading = false
		if ev.Offset == len(ev.Tracks) {
			// Page zero replaces; the new offset for a fresh fetch equals the
			// page length.
			s.Playlist.Tracks = ev.Tracks
		} else {
			s.Playlist.Tracks = appendPage(s.Playlist.Tracks, ev.Tracks)
		}
		s.Playlist.HasMore = ev.HasMore
		s.Playlist.Offset = ev.Offset
		s.Playlist.Err = ""

	case TracksFailed:
		s.Playlist.Loading = false
		s.Playlist.Err = ev.Message

	case TrackAddRequested:
		s.Playlist.Loading = true
		s.Playlist.Err = ""

	case TrackAdded:
		s.Playlist.Loading = false
		s.Playlist.Err = ""

	case TrackAddFailed:
		s.Playlist.Loading = false
		s.Playlist.Err = ev.Message

	case TrackRemoveRequested:
		s.Playlist.Loading = true
		s.Playlist.Err = ""

	case TrackRemoved:
		s.Playlist.Loading = false
		s.Playlist.Tracks = filterTracks(s.Playlist.Tracks, ev.TrackURI)
		s.Playlist.Err = ""

	case TrackRemoveFailed:
		s.Playlist.Loading = false
		s.Playlist.Err = ev.Message

	case PlaylistCreateRequested:
		s.Playlist.Loading = true
		s.Playlist.Err = ""

	case PlaylistCreated:
		s.Playlist.Loading = false
		playlists := make([]services.Playlist, 0, len(s.Playlist.Playlists)+1)
		playlists = append(playlists, ev.Playlist)
		playlists = append(playlists, s.Playlist.Playlists...)
		s.Playlist.Playlists = playlists
		s.Playlist.Err = ""

	case PlaylistCreateFailed:
		s.Playlist.Loading = false
		s.Playlist.Err = ev.Message

	case QueryChanged:
		s.Search.Query = ev.Query
		if isBlank(ev.Query) {
			s.Search.Results = nil
			s.Search.HasMore = false
			s.Search.Offset = 0
		}

	case SearchRequested:
		if ev.Offset == 0 {
			s.Search.Results = nil
		}
		s.Search.Loading = true
		s.Search.Err = ""

	case SearchLoaded:
		s.Search.Loading = false
		if ev.Offset == len(ev.Tracks) {
			s.Search.Results = ev.Tracks
		} else {
			s.Search.Results = appendPage(s.Search.Results, ev.Tracks)
		}
		s.Search.HasMore = ev.HasMore
		s.Search.Offset = ev.Offset
		s.Search.Err = ""

	case SearchFailed:
		s.Search.Loading = false
		s.Search.Err = ev.Message

	case SearchCleared:
		s.Search = SearchState{}
	}

	return s
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// appendPage merges a page into the existing items, preserving arrival order.
// A fresh slice keeps previously served snapshots immutable.
func appendPage[T any](items, page []T) []T {
	merged := make([]T, 0, len(items)+len(page))
	merged = append(merged, items...)
	merged = append(merged, page...)
	return merged
}

// filterTracks drops every entry whose track URI matches the removed URI.
func filterTracks(tracks []services.PlaylistEntry, trackURI string) []services.PlaylistEntry {
	kept := make([]services.PlaylistEntry, 0, len(tracks))
	for _, entry := range tracks {
		if services.TrackURI(entry.Track.ID) != trackURI {
			kept = append(kept, entry)
		}
	}
	return kept
}
