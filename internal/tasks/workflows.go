package tasks

import (
	"context"
	"strings"

	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/store"
)

// login begins the authorization redirect. The workflow ends once navigation
// starts; the auth slice stays loading until the callback's code exchange
// settles it.
func (o *Orchestrator) login(ctx context.Context) {
	authURL, err := o.auth.BeginAuthorization(ctx)
	if err != nil {
		o.store.Apply(store.LoginFailed{Message: err.Error()})
		return
	}

	o.logger.Info("redirecting to authorization endpoint")
	if err := o.open(authURL); err != nil {
		o.store.Apply(store.LoginFailed{Message: err.Error()})
	}
}

// exchangeCode drives code exchange then profile fetch. Either both the token
// persists and the success event applies, or neither does: a superseded
// instance stops before persisting.
func (o *Orchestrator) exchangeCode(ctx context.Context, gen uint64, code string) {
	token, err := o.auth.CompleteAuthorization(ctx, code)
	if err != nil {
		o.emitLatest(kindExchange, gen, store.LoginFailed{Message: err.Error()})
		return
	}

	user, err := o.catalog.CurrentUser(ctx, token)
	if err != nil {
		o.emitLatest(kindExchange, gen, store.LoginFailed{Message: err.Error()})
		return
	}

	if !o.current(kindExchange, gen) {
		return
	}

	if err := o.auth.PersistToken(token); err != nil {
		o.emitLatest(kindExchange, gen, store.LoginFailed{Message: err.Error()})
		return
	}

	o.logger.Info("login complete", "user", user.ID)
	o.emitLatest(kindExchange, gen, store.LoginSucceeded{AccessToken: token, User: user})
}

// checkSession restores a persisted token and validates it against the profile
// endpoint. Any validation failure clears the token and surfaces the session
// as expired rather than propagating the transport error.
func (o *Orchestrator) checkSession(ctx context.Context, gen uint64) {
	token, err := o.auth.RestoreSession()
	if err != nil || token == "" {
		o.emitLatest(kindSession, gen, store.SessionAbsent{})
		return
	}

	user, err := o.catalog.CurrentUser(ctx, token)
	if err != nil {
		o.logger.Info("stored token failed validation", "error", err)
		if clearErr := o.auth.ClearToken(); clearErr != nil {
			o.logger.Warn("failed to clear expired token", "error", clearErr)
		}
		o.emitLatest(kindSession, gen, store.LoginFailed{Message: shared.ErrSessionExpired.Error()})
		return
	}

	o.emitLatest(kindSession, gen, store.LoginSucceeded{AccessToken: token, User: user})
}

// fetchPlaylists replaces the playlist collection with the first page.
func (o *Orchestrator) fetchPlaylists(ctx context.Context) {
	token := o.token()
	if token == "" {
		o.store.Apply(store.PlaylistsFailed{Message: shared.ErrNotAuthenticated.Error()})
		return
	}

	page, err := o.catalog.Playlists(ctx, token, 0, 0)
	if err != nil {
		o.store.Apply(store.PlaylistsFailed{Message: err.Error()})
		return
	}

	o.store.Apply(store.PlaylistsLoaded{Playlists: page.Items})
}

// fetchTracks retrieves one page of playlist tracks. The updated offset equals
// the requested offset plus the number of items received; hasMore comes from
// the server's continuation indicator, never from page size.
func (o *Orchestrator) fetchTracks(ctx context.Context, playlistID string, offset int) {
	token := o.token()
	if token == "" {
		o.store.Apply(store.TracksFailed{Message: shared.ErrNotAuthenticated.Error()})
		return
	}

	page, err := o.catalog.PlaylistTracks(ctx, token, playlistID, offset, 0)
	if err != nil {
		o.store.Apply(store.TracksFailed{Message: err.Error()})
		return
	}

	o.store.Apply(store.TracksLoaded{
		Tracks:  page.Items,
		HasMore: page.Next != nil,
		Offset:  offset + len(page.Items),
	})
}

// addTrack applies the remote mutation, then re-issues a fresh page-0 fetch so
// the visible list is a true reflection of server state. No local insert.
func (o *Orchestrator) addTrack(ctx context.Context, playlistID, trackURI string) {
	token := o.token()
	if token == "" {
		o.store.Apply(store.TrackAddFailed{Message: shared.ErrNotAuthenticated.Error()})
		return
	}

	if err := o.catalog.AddTrack(ctx, token, playlistID, trackURI); err != nil {
		o.store.Apply(store.TrackAddFailed{Message: err.Error()})
		return
	}

	o.store.Apply(store.TrackAdded{})
	o.Dispatch(ctx, FetchTracks{PlaylistID: playlistID})
}

// removeTrack applies the remote mutation and reconciles locally by URI. The
// result is fully known locally, so no refetch.
func (o *Orchestrator) removeTrack(ctx context.Context, playlistID, trackURI string) {
	token := o.token()
	if token == "" {
		o.store.Apply(store.TrackRemoveFailed{Message: shared.ErrNotAuthenticated.Error()})
		return
	}

	if err := o.catalog.RemoveTrack(ctx, token, playlistID, trackURI); err != nil {
		o.store.Apply(store.TrackRemoveFailed{Message: err.Error()})
		return
	}

	o.store.Apply(store.TrackRemoved{TrackURI: trackURI})
}

// createPlaylist creates a private playlist owned by the current user and
// prepends it to the cached collection.
func (o *Orchestrator) createPlaylist(ctx context.Context, name, description string) {
	snapshot := o.store.State().Auth
	if snapshot.AccessToken == "" || snapshot.User == nil {
		o.store.Apply(store.PlaylistCreateFailed{Message: shared.ErrNotAuthenticated.Error()})
		return
	}

	playlist, err := o.catalog.CreatePlaylist(ctx, snapshot.AccessToken, snapshot.User.ID, name, description)
	if err != nil {
		o.store.Apply(store.PlaylistCreateFailed{Message: err.Error()})
		return
	}

	o.store.Apply(store.PlaylistCreated{Playlist: *playlist})
}

// search performs one page of track search. A blank query short-circuits to an
// empty success without touching the network.
func (o *Orchestrator) search(ctx context.Context, query string, offset int) {
	if strings.TrimSpace(query) == "" {
		o.store.Apply(store.SearchLoaded{HasMore: false, Offset: 0})
		return
	}

	token := o.token()
	if token == "" {
		o.store.Apply(store.SearchFailed{Message: shared.ErrNotAuthenticated.Error()})
		return
	}

	result, err := o.catalog.SearchTracks(ctx, token, query, offset, 0)
	if err != nil {
		o.store.Apply(store.SearchFailed{Message: err.Error()})
		return
	}

	o.store.Apply(store.SearchLoaded{
		Tracks:  result.Tracks.Items,
		HasMore: result.Tracks.Next != nil,
		Offset:  offset + len(result.Tracks.Items),
	})
}
