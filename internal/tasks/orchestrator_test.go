package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/trax/internal/services"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/store"
	traxtest "github.com/desertthunder/trax/internal/testing"
)

const testDebounce = 30 * time.Millisecond

type fixture struct {
	orchestrator *Orchestrator
	store        *store.Store
	catalog      *traxtest.MockCatalog
	auth         *traxtest.MockAuthorizer
	opened       []string
	mu           sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   store.NewStore(),
		catalog: traxtest.NewMockCatalog(),
		auth:    traxtest.NewMockAuthorizer(),
	}

	f.orchestrator = NewOrchestrator(Opts{
		Store:   f.store,
		Auth:    f.auth,
		Catalog: f.catalog,
		OpenURL: func(url string) error {
			f.mu.Lock()
			f.opened = append(f.opened, url)
			f.mu.Unlock()
			return nil
		},
		Debounce: testDebounce,
	})

	return f
}

func (f *fixture) authenticate() {
	f.store.Apply(store.LoginSucceeded{
		AccessToken: "tok",
		User:        &services.User{ID: "me"},
	})
}

// settleDebounce waits past the quiet window, then joins the launched workflow.
func (f *fixture) settleDebounce() {
	time.Sleep(5 * testDebounce)
	f.orchestrator.Wait()
}

func TestLoginFlow(t *testing.T) {
	t.Run("Login Opens The Authorization URL", func(t *testing.T) {
		f := newFixture(t)
		f.orchestrator.Dispatch(context.Background(), Login{})
		f.orchestrator.Wait()

		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.opened) != 1 {
			t.Fatalf("expected 1 navigation, got %d", len(f.opened))
		}
		if f.auth.Calls("BeginAuthorization") != 1 {
			t.Error("expected authorization to begin")
		}
	})

	t.Run("Begin Failure Surfaces On The Auth Slice", func(t *testing.T) {
		f := newFixture(t)
		f.auth.BeginFunc = func(ctx context.Context) (string, error) {
			return "", errors.New("no client id")
		}

		f.orchestrator.Dispatch(context.Background(), Login{})
		f.orchestrator.Wait()

		auth := f.store.State().Auth
		if auth.Err != "no client id" {
			t.Errorf("expected begin error, got %q", auth.Err)
		}
		if auth.Loading {
			t.Error("expected loading cleared")
		}
	})

	t.Run("Denied Authorization Fails Without Exchange", func(t *testing.T) {
		f := newFixture(t)
		f.orchestrator.Dispatch(context.Background(), AuthorizationDenied{Reason: "access_denied"})
		f.orchestrator.Wait()

		auth := f.store.State().Auth
		if auth.Err == "" {
			t.Error("expected a failure message")
		}
		if f.auth.Calls("CompleteAuthorization") != 0 {
			t.Error("expected no exchange after denial")
		}
	})

	t.Run("Exchange Persists Token And Loads Profile", func(t *testing.T) {
		f := newFixture(t)
		f.orchestrator.Dispatch(context.Background(), ExchangeCode{Code: "abc"})
		f.orchestrator.Wait()

		auth := f.store.State().Auth
		if !auth.Authenticated {
			t.Fatal("expected authenticated")
		}
		if auth.AccessToken != "token-abc" {
			t.Errorf("expected exchanged token, got %q", auth.AccessToken)
		}

		stored, _ := f.auth.Sessions.Get(services.SessionKeyToken)
		if stored != "token-abc" {
			t.Errorf("expected token persisted, got %q", stored)
		}
	})

	t.Run("Logout Clears Token And State", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.auth.Sessions.Put(services.SessionKeyToken, "tok")

		f.orchestrator.Dispatch(context.Background(), Logout{})
		f.orchestrator.Wait()

		if f.store.State().Auth.Authenticated {
			t.Error("expected unauthenticated")
		}
		stored, _ := f.auth.Sessions.Get(services.SessionKeyToken)
		if stored != "" {
			t.Error("expected persisted token cleared")
		}
	})
}

func TestExchangeLatestWins(t *testing.T) {
	f := newFixture(t)

	// The first exchange blocks until it is superseded; the second completes
	// immediately. The first instance's late outcome must never apply.
	f.auth.CompleteFunc = func(ctx context.Context, code string) (string, error) {
		if code == "stale" {
			<-ctx.Done()
		}
		return "token-" + code, nil
	}

	f.orchestrator.Dispatch(context.Background(), ExchangeCode{Code: "stale"})
	f.orchestrator.Dispatch(context.Background(), ExchangeCode{Code: "fresh"})
	f.orchestrator.Wait()

	auth := f.store.State().Auth
	if auth.AccessToken != "token-fresh" {
		t.Errorf("expected the fresh exchange to win, got %q", auth.AccessToken)
	}

	stored, _ := f.auth.Sessions.Get(services.SessionKeyToken)
	if stored != "token-fresh" {
		t.Errorf("expected only the fresh token persisted, got %q", stored)
	}
}

func TestCheckSession(t *testing.T) {
	t.Run("No Stored Token Settles Quietly", func(t *testing.T) {
		f := newFixture(t)
		f.orchestrator.Dispatch(context.Background(), CheckSession{})
		f.orchestrator.Wait()

		auth := f.store.State().Auth
		if auth.Authenticated {
			t.Error("expected unauthenticated")
		}
		if auth.Loading {
			t.Error("expected loading cleared")
		}
		if auth.Err != "" {
			t.Errorf("expected no error for an absent session, got %q", auth.Err)
		}
		if f.catalog.Calls("CurrentUser") != 0 {
			t.Error("expected no validation call without a token")
		}
	})

	t.Run("Valid Stored Token Restores The Session", func(t *testing.T) {
		f := newFixture(t)
		f.auth.Sessions.Put(services.SessionKeyToken, "stored")

		f.orchestrator.Dispatch(context.Background(), CheckSession{})
		f.orchestrator.Wait()

		auth := f.store.State().Auth
		if !auth.Authenticated {
			t.Fatal("expected authenticated")
		}
		if auth.AccessToken != "stored" {
			t.Errorf("expected stored token, got %q", auth.AccessToken)
		}
	})

	t.Run("Rejected Token Is Cleared And Reported As Expired", func(t *testing.T) {
		f := newFixture(t)
		f.auth.Sessions.Put(services.SessionKeyToken, "stale")
		f.catalog.CurrentUserFunc = func(ctx context.Context, token string) (*services.User, error) {
			return nil, &shared.RemoteError{StatusCode: 401, Status: "401 Unauthorized"}
		}

		f.orchestrator.Dispatch(context.Background(), CheckSession{})
		f.orchestrator.Wait()

		auth := f.store.State().Auth
		if auth.Authenticated {
			t.Error("expected unauthenticated")
		}
		if auth.Err != "Session expired" {
			t.Errorf("expected expiry message, got %q", auth.Err)
		}

		stored, _ := f.auth.Sessions.Get(services.SessionKeyToken)
		if stored != "" {
			t.Error("expected the rejected token to be cleared")
		}
	})
}

func TestPlaylistWorkflows(t *testing.T) {
	t.Run("Fetch Requires A Session", func(t *testing.T) {
		f := newFixture(t)
		f.orchestrator.Dispatch(context.Background(), FetchPlaylists{})
		f.orchestrator.Wait()

		if f.store.State().Playlist.Err == "" {
			t.Error("expected failure without a token")
		}
		if f.catalog.Calls("Playlists") != 0 {
			t.Error("expected no request without a token")
		}
	})

	t.Run("Fetch Replaces The Collection", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.catalog.PlaylistsFunc = func(ctx context.Context, token string, offset, limit int) (*services.Page[services.Playlist], error) {
			return &services.Page[services.Playlist]{Items: []services.Playlist{{ID: "a"}, {ID: "b"}}}, nil
		}

		f.orchestrator.Dispatch(context.Background(), FetchPlaylists{})
		f.orchestrator.Wait()

		pl := f.store.State().Playlist
		if len(pl.Playlists) != 2 {
			t.Errorf("expected 2 playlists, got %d", len(pl.Playlists))
		}
	})

	t.Run("Select Fetches The First Page", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		var gotOffset int
		f.catalog.PlaylistTracksFunc = func(ctx context.Context, token, playlistID string, offset, limit int) (*services.Page[services.PlaylistEntry], error) {
			gotOffset = offset
			next := "next-page"
			return &services.Page[services.PlaylistEntry]{
				Items: []services.PlaylistEntry{{Track: services.Track{ID: "t1"}}},
				Next:  &next,
			}, nil
		}

		f.orchestrator.Dispatch(context.Background(), SelectPlaylist{Playlist: services.Playlist{ID: "pl"}})
		f.orchestrator.Wait()

		pl := f.store.State().Playlist
		if gotOffset != 0 {
			t.Errorf("expected first page at offset 0, got %d", gotOffset)
		}
		if len(pl.Tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(pl.Tracks))
		}
		if !pl.HasMore {
			t.Error("expected hasMore from server continuation")
		}
		if pl.Offset != 1 {
			t.Errorf("expected offset advanced to 1, got %d", pl.Offset)
		}
	})

	t.Run("Full Page Without Continuation Is Terminal", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.catalog.PlaylistTracksFunc = func(ctx context.Context, token, playlistID string, offset, limit int) (*services.Page[services.PlaylistEntry], error) {
			items := make([]services.PlaylistEntry, services.DefaultPageLimit)
			return &services.Page[services.PlaylistEntry]{Items: items, Next: nil}, nil
		}

		f.orchestrator.Dispatch(context.Background(), SelectPlaylist{Playlist: services.Playlist{ID: "pl"}})
		f.orchestrator.Wait()

		if f.store.State().Playlist.HasMore {
			t.Error("expected hasMore false when the server reports no continuation")
		}
	})
}

func TestLoadMoreTracks(t *testing.T) {
	t.Run("Continues From The Current Offset", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		var offsets []int
		next := "next"
		f.catalog.PlaylistTracksFunc = func(ctx context.Context, token, playlistID string, offset, limit int) (*services.Page[services.PlaylistEntry], error) {
			offsets = append(offsets, offset)
			return &services.Page[services.PlaylistEntry]{
				Items: []services.PlaylistEntry{{Track: services.Track{ID: "t"}}},
				Next:  &next,
			}, nil
		}

		f.orchestrator.Dispatch(context.Background(), SelectPlaylist{Playlist: services.Playlist{ID: "pl"}})
		f.orchestrator.Wait()
		f.orchestrator.Dispatch(context.Background(), LoadMoreTracks{})
		f.orchestrator.Wait()

		if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 1 {
			t.Errorf("expected offsets [0 1], got %v", offsets)
		}
	})

	t.Run("No Op Without A Selection", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		f.orchestrator.Dispatch(context.Background(), LoadMoreTracks{})
		f.orchestrator.Wait()

		if f.catalog.Calls("PlaylistTracks") != 0 {
			t.Error("expected no request without a selection")
		}
	})

	t.Run("No Op When The Listing Is Exhausted", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.catalog.PlaylistTracksFunc = func(ctx context.Context, token, playlistID string, offset, limit int) (*services.Page[services.PlaylistEntry], error) {
			return &services.Page[services.PlaylistEntry]{
				Items: []services.PlaylistEntry{{Track: services.Track{ID: "t"}}},
			}, nil
		}

		f.orchestrator.Dispatch(context.Background(), SelectPlaylist{Playlist: services.Playlist{ID: "pl"}})
		f.orchestrator.Wait()

		f.orchestrator.Dispatch(context.Background(), LoadMoreTracks{})
		f.orchestrator.Dispatch(context.Background(), LoadMoreTracks{})
		f.orchestrator.Wait()

		if calls := f.catalog.Calls("PlaylistTracks"); calls != 1 {
			t.Errorf("expected exactly 1 request, got %d", calls)
		}
	})
}

func TestMutations(t *testing.T) {
	t.Run("Add Refetches The First Page", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		var offsets []int
		f.catalog.PlaylistTracksFunc = func(ctx context.Context, token, playlistID string, offset, limit int) (*services.Page[services.PlaylistEntry], error) {
			offsets = append(offsets, offset)
			return &services.Page[services.PlaylistEntry]{}, nil
		}

		f.orchestrator.Dispatch(context.Background(), AddTrack{PlaylistID: "pl", TrackURI: services.TrackURI("t1")})
		f.orchestrator.Wait()

		if f.catalog.Calls("AddTrack") != 1 {
			t.Error("expected the mutation to run")
		}
		if len(offsets) != 1 || offsets[0] != 0 {
			t.Errorf("expected exactly one page-0 refetch, got %v", offsets)
		}
	})

	t.Run("Failed Add Skips The Refetch", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.catalog.AddTrackFunc = func(ctx context.Context, token, playlistID, trackURI string) error {
			return &shared.RemoteError{StatusCode: 403, Status: "403 Forbidden"}
		}

		f.orchestrator.Dispatch(context.Background(), AddTrack{PlaylistID: "pl", TrackURI: services.TrackURI("t1")})
		f.orchestrator.Wait()

		if f.catalog.Calls("PlaylistTracks") != 0 {
			t.Error("expected no refetch after a failed add")
		}
		if f.store.State().Playlist.Err == "" {
			t.Error("expected the failure recorded")
		}
	})

	t.Run("Remove Reconciles Locally Without Refetch", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.store.Apply(store.TracksLoaded{
			Tracks: []services.PlaylistEntry{
				{Track: services.Track{ID: "x"}},
				{Track: services.Track{ID: "y"}},
			},
			HasMore: false,
			Offset:  2,
		})

		f.orchestrator.Dispatch(context.Background(), RemoveTrack{PlaylistID: "pl", TrackURI: services.TrackURI("x")})
		f.orchestrator.Wait()

		pl := f.store.State().Playlist
		if len(pl.Tracks) != 1 || pl.Tracks[0].Track.ID != "y" {
			t.Error("expected the removed track filtered out")
		}
		if f.catalog.Calls("PlaylistTracks") != 0 {
			t.Error("expected no refetch after a removal")
		}
	})

	t.Run("Create Prepends The New Playlist", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.store.Apply(store.PlaylistsLoaded{Playlists: []services.Playlist{{ID: "old"}}})
		f.catalog.CreatePlaylistFunc = func(ctx context.Context, token, userID, name, description string) (*services.Playlist, error) {
			return &services.Playlist{ID: "new", Name: name}, nil
		}

		f.orchestrator.Dispatch(context.Background(), CreatePlaylist{Name: "Mix"})
		f.orchestrator.Wait()

		pl := f.store.State().Playlist
		if len(pl.Playlists) != 2 || pl.Playlists[0].ID != "new" {
			t.Error("expected the new playlist prepended")
		}
	})

	t.Run("Create Requires A Profile", func(t *testing.T) {
		f := newFixture(t)

		f.orchestrator.Dispatch(context.Background(), CreatePlaylist{Name: "Mix"})
		f.orchestrator.Wait()

		if f.catalog.Calls("CreatePlaylist") != 0 {
			t.Error("expected no request without a session")
		}
		if f.store.State().Playlist.Err == "" {
			t.Error("expected the failure recorded")
		}
	})
}

func TestDebouncedSearch(t *testing.T) {
	t.Run("A Burst Collapses To One Request", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		var queries []string
		var mu sync.Mutex
		f.catalog.SearchTracksFunc = func(ctx context.Context, token, query string, offset, limit int) (*services.SearchResult, error) {
			mu.Lock()
			queries = append(queries, query)
			mu.Unlock()
			return &services.SearchResult{}, nil
		}

		ctx := context.Background()
		f.orchestrator.Dispatch(ctx, QueryChanged{Query: "m"})
		f.orchestrator.Dispatch(ctx, QueryChanged{Query: "mu"})
		f.orchestrator.Dispatch(ctx, QueryChanged{Query: "muse"})
		f.settleDebounce()

		mu.Lock()
		defer mu.Unlock()
		if len(queries) != 1 {
			t.Fatalf("expected 1 request, got %d", len(queries))
		}
		if queries[0] != "muse" {
			t.Errorf("expected the trailing query, got %q", queries[0])
		}
	})

	t.Run("Each Keystroke Resets The Window", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		var queries []string
		var mu sync.Mutex
		f.catalog.SearchTracksFunc = func(ctx context.Context, token, query string, offset, limit int) (*services.SearchResult, error) {
			mu.Lock()
			queries = append(queries, query)
			mu.Unlock()
			return &services.SearchResult{}, nil
		}

		// Keystrokes land inside the window, so the timer restarts each
		// time and only the trailing value reaches the catalog.
		ctx := context.Background()
		for _, q := range []string{"m", "mu", "mus", "muse"} {
			f.orchestrator.Dispatch(ctx, QueryChanged{Query: q})
			time.Sleep(testDebounce / 2)
		}
		f.settleDebounce()

		mu.Lock()
		defer mu.Unlock()
		if len(queries) != 1 {
			t.Fatalf("expected 1 request, got %d", len(queries))
		}
		if queries[0] != "muse" {
			t.Errorf("expected the trailing query, got %q", queries[0])
		}
	})

	t.Run("Spaced Queries Each Fire", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		ctx := context.Background()
		f.orchestrator.Dispatch(ctx, QueryChanged{Query: "first"})
		f.settleDebounce()
		f.orchestrator.Dispatch(ctx, QueryChanged{Query: "second"})
		f.settleDebounce()

		if calls := f.catalog.Calls("SearchTracks"); calls != 2 {
			t.Errorf("expected 2 requests, got %d", calls)
		}
	})

	t.Run("Blank Query Clears Without A Request", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.store.Apply(store.SearchLoaded{
			Tracks: []services.Track{{ID: "1"}}, HasMore: true, Offset: 1,
		})

		f.orchestrator.Dispatch(context.Background(), QueryChanged{Query: "  "})
		f.settleDebounce()

		if f.catalog.Calls("SearchTracks") != 0 {
			t.Error("expected no request for a blank query")
		}
		if len(f.store.State().Search.Results) != 0 {
			t.Error("expected results cleared synchronously")
		}
	})

	t.Run("Blank Query Disarms A Pending Burst", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		ctx := context.Background()
		f.orchestrator.Dispatch(ctx, QueryChanged{Query: "muse"})
		f.orchestrator.Dispatch(ctx, QueryChanged{Query: ""})
		f.settleDebounce()

		if f.catalog.Calls("SearchTracks") != 0 {
			t.Error("expected the pending search cancelled")
		}
	})
}

func TestLoadMoreSearch(t *testing.T) {
	t.Run("Continues From The Current Offset Without Debounce", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.store.Apply(store.QueryChanged{Query: "muse"})
		f.store.Apply(store.SearchLoaded{
			Tracks: []services.Track{{ID: "1"}, {ID: "2"}}, HasMore: true, Offset: 2,
		})

		var gotOffset int
		f.catalog.SearchTracksFunc = func(ctx context.Context, token, query string, offset, limit int) (*services.SearchResult, error) {
			gotOffset = offset
			return &services.SearchResult{Tracks: services.Page[services.Track]{
				Items: []services.Track{{ID: "3"}},
			}}, nil
		}

		f.orchestrator.Dispatch(context.Background(), LoadMoreSearch{})
		f.orchestrator.Wait()

		if gotOffset != 2 {
			t.Errorf("expected continuation at offset 2, got %d", gotOffset)
		}
		if results := f.store.State().Search.Results; len(results) != 3 {
			t.Errorf("expected 3 accumulated results, got %d", len(results))
		}
	})

	t.Run("No Op Without An Active Query", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()

		f.orchestrator.Dispatch(context.Background(), LoadMoreSearch{})
		f.orchestrator.Wait()

		if f.catalog.Calls("SearchTracks") != 0 {
			t.Error("expected no request without a query")
		}
	})

	t.Run("No Op When Exhausted", func(t *testing.T) {
		f := newFixture(t)
		f.authenticate()
		f.store.Apply(store.QueryChanged{Query: "muse"})
		f.store.Apply(store.SearchLoaded{
			Tracks: []services.Track{{ID: "1"}}, HasMore: false, Offset: 1,
		})

		f.orchestrator.Dispatch(context.Background(), LoadMoreSearch{})
		f.orchestrator.Wait()

		if f.catalog.Calls("SearchTracks") != 0 {
			t.Error("expected no request when the listing is exhausted")
		}
	})
}
