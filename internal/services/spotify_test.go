package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/trax/internal/shared"
)

// recordedRequest captures what the client sent for assertions.
type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   []byte
}

func newCatalogServer(t *testing.T, status int, payload string) (*SpotifyClient, *recordedRequest, func()) {
	t.Helper()

	rec := &recordedRequest{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		rec.body, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))

	client := NewSpotifyClient(SpotifyClientOpts{BaseURL: ts.URL})
	return client, rec, ts.Close
}

func TestCurrentUser(t *testing.T) {
	client, rec, closeFn := newCatalogServer(t, http.StatusOK, `{"id":"me","display_name":"Tester"}`)
	defer closeFn()

	user, err := client.CurrentUser(context.Background(), "tok")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if user.ID != "me" || user.DisplayName != "Tester" {
		t.Errorf("unexpected profile: %+v", user)
	}
	if rec.path != "/me" {
		t.Errorf("expected /me, got %s", rec.path)
	}
	if rec.auth != "Bearer tok" {
		t.Errorf("expected bearer header, got %q", rec.auth)
	}
}

func TestPlaylists(t *testing.T) {
	t.Run("Requests The Given Page", func(t *testing.T) {
		client, rec, closeFn := newCatalogServer(t, http.StatusOK,
			`{"items":[{"id":"a","name":"A"}],"total":1,"next":null}`)
		defer closeFn()

		page, err := client.Playlists(context.Background(), "tok", 10, 25)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if rec.path != "/me/playlists" {
			t.Errorf("expected /me/playlists, got %s", rec.path)
		}
		if rec.query != "offset=10&limit=25" {
			t.Errorf("unexpected query %q", rec.query)
		}
		if len(page.Items) != 1 || page.Items[0].ID != "a" {
			t.Errorf("unexpected page: %+v", page)
		}
		if page.Next != nil {
			t.Error("expected nil continuation")
		}
	})

	t.Run("Defaults The Page Limit", func(t *testing.T) {
		client, rec, closeFn := newCatalogServer(t, http.StatusOK, `{"items":[]}`)
		defer closeFn()

		if _, err := client.Playlists(context.Background(), "tok", 0, 0); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.query != "offset=0&limit=50" {
			t.Errorf("expected default limit, got %q", rec.query)
		}
	})
}

func TestPlaylistTracks(t *testing.T) {
	client, rec, closeFn := newCatalogServer(t, http.StatusOK,
		`{"items":[{"added_at":"2024-01-01","track":{"id":"t1","name":"One"}}],"next":"https://api.spotify.com/v1/next"}`)
	defer closeFn()

	page, err := client.PlaylistTracks(context.Background(), "tok", "pl123", 50, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.path != "/playlists/pl123/tracks" {
		t.Errorf("unexpected path %s", rec.path)
	}
	if rec.query != "offset=50&limit=50" {
		t.Errorf("unexpected query %q", rec.query)
	}
	if len(page.Items) != 1 || page.Items[0].Track.ID != "t1" {
		t.Errorf("unexpected page: %+v", page)
	}
	if page.Next == nil {
		t.Error("expected continuation link")
	}
}

func TestSearchTracks(t *testing.T) {
	client, rec, closeFn := newCatalogServer(t, http.StatusOK,
		`{"tracks":{"items":[{"id":"t1","name":"Hit"}],"total":1,"next":null}}`)
	defer closeFn()

	result, err := client.SearchTracks(context.Background(), "tok", "muse plug in baby", 0, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.path != "/search" {
		t.Errorf("unexpected path %s", rec.path)
	}
	if rec.query != "q=muse+plug+in+baby&type=track&offset=0&limit=20" {
		t.Errorf("unexpected query %q", rec.query)
	}
	if len(result.Tracks.Items) != 1 || result.Tracks.Items[0].Name != "Hit" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestAddTrack(t *testing.T) {
	client, rec, closeFn := newCatalogServer(t, http.StatusCreated, `{"snapshot_id":"snap"}`)
	defer closeFn()

	err := client.AddTrack(context.Background(), "tok", "pl123", "spotify:track:t1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.method != http.MethodPost {
		t.Errorf("expected POST, got %s", rec.method)
	}
	if rec.path != "/playlists/pl123/tracks" {
		t.Errorf("unexpected path %s", rec.path)
	}

	var body map[string][]string
	if err := json.Unmarshal(rec.body, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body["uris"]) != 1 || body["uris"][0] != "spotify:track:t1" {
		t.Errorf("unexpected body: %s", rec.body)
	}
}

func TestRemoveTrack(t *testing.T) {
	client, rec, closeFn := newCatalogServer(t, http.StatusOK, `{"snapshot_id":"snap"}`)
	defer closeFn()

	err := client.RemoveTrack(context.Background(), "tok", "pl123", "spotify:track:t1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.method != http.MethodDelete {
		t.Errorf("expected DELETE, got %s", rec.method)
	}

	var body map[string][]map[string]string
	if err := json.Unmarshal(rec.body, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body["tracks"]) != 1 || body["tracks"][0]["uri"] != "spotify:track:t1" {
		t.Errorf("unexpected body: %s", rec.body)
	}
}

func TestCreatePlaylist(t *testing.T) {
	client, rec, closeFn := newCatalogServer(t, http.StatusCreated,
		`{"id":"new","name":"Mix","public":false}`)
	defer closeFn()

	playlist, err := client.CreatePlaylist(context.Background(), "tok", "me", "Mix", "late nights")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if rec.path != "/users/me/playlists" {
		t.Errorf("unexpected path %s", rec.path)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.body, &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["name"] != "Mix" || body["description"] != "late nights" {
		t.Errorf("unexpected body: %s", rec.body)
	}
	if public, ok := body["public"].(bool); !ok || public {
		t.Error("expected playlists to be created private")
	}

	if playlist.ID != "new" {
		t.Errorf("unexpected playlist: %+v", playlist)
	}
}

func TestRemoteErrors(t *testing.T) {
	t.Run("Non 2xx Carries The Status Text", func(t *testing.T) {
		client, _, closeFn := newCatalogServer(t, http.StatusNotFound, `{"error":{"status":404}}`)
		defer closeFn()

		_, err := client.CurrentUser(context.Background(), "tok")
		if err == nil {
			t.Fatal("expected an error")
		}

		var remoteErr *shared.RemoteError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("expected RemoteError, got %T", err)
		}
		if remoteErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", remoteErr.StatusCode)
		}
		if remoteErr.Status != "404 Not Found" {
			t.Errorf("expected verbatim status text, got %q", remoteErr.Status)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("expected RemoteError to wrap ErrAPIRequest")
		}
	})

	t.Run("Unauthorized Is Recognizable", func(t *testing.T) {
		client, _, closeFn := newCatalogServer(t, http.StatusUnauthorized, `{}`)
		defer closeFn()

		_, err := client.CurrentUser(context.Background(), "expired")

		var remoteErr *shared.RemoteError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("expected RemoteError, got %T", err)
		}
		if !remoteErr.Unauthorized() {
			t.Error("expected 401 to report Unauthorized")
		}
	})
}
