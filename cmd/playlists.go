package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/trax/internal/services"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/store"
	"github.com/desertthunder/trax/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList lists the current user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureSession(ctx); err != nil {
		return err
	}

	r.orchestrator.Dispatch(ctx, tasks.FetchPlaylists{})
	r.orchestrator.Wait()

	pl := r.store.State().Playlist
	if pl.Err != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, pl.Err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(pl.Playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(pl.Playlists))
	for i, p := range pl.Playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.Tracks.Total)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// PlaylistTracks lists one page of a playlist's tracks, or every page with
// --all by following the continuation until the server reports the end.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(ctx); err != nil {
		return err
	}

	r.orchestrator.Dispatch(ctx, tasks.SelectPlaylist{Playlist: services.Playlist{ID: playlistID}})
	r.orchestrator.Wait()

	if cmd.Bool("all") {
		for {
			pl := r.store.State().Playlist
			if pl.Err != "" || !pl.HasMore {
				break
			}
			r.orchestrator.Dispatch(ctx, tasks.LoadMoreTracks{})
			r.orchestrator.Wait()
		}
	}

	pl := r.store.State().Playlist
	if pl.Err != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, pl.Err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(pl.Tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Tracks: %d\n\n", len(pl.Tracks))
	for i, entry := range pl.Tracks {
		r.writePlain("%d. %s - %s\n", i+1, artistNames(entry.Track.Artists), entry.Track.Name)
		if entry.Track.Album.Name != "" {
			r.writePlain("   Album: %s\n", entry.Track.Album.Name)
		}
	}

	if pl.HasMore {
		r.writePlain("\nMore tracks available; rerun with --all to fetch everything.\n")
	}

	return nil
}

// PlaylistCreate creates a new private playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(ctx); err != nil {
		return err
	}

	before := len(r.store.State().Playlist.Playlists)

	r.orchestrator.Dispatch(ctx, tasks.CreatePlaylist{
		Name:        name,
		Description: cmd.String("description"),
	})
	r.orchestrator.Wait()

	pl := r.store.State().Playlist
	if pl.Err != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, pl.Err)
	}

	if len(pl.Playlists) > before {
		created := pl.Playlists[0]
		r.writePlain("✓ Created playlist '%s'\n", created.Name)
		r.writePlain("  ID: %s\n", created.ID)
	}

	return nil
}

// PlaylistAdd adds a track to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("playlist")
	trackID := cmd.StringArg("track")
	if playlistID == "" || trackID == "" {
		return fmt.Errorf("%w: playlist id and track id are required", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(ctx); err != nil {
		return err
	}

	// Select first so the post-add refetch lands in the right listing.
	r.orchestrator.Dispatch(ctx, tasks.SelectPlaylist{Playlist: services.Playlist{ID: playlistID}})
	r.orchestrator.Wait()

	r.orchestrator.Dispatch(ctx, tasks.AddTrack{
		PlaylistID: playlistID,
		TrackURI:   services.TrackURI(trackID),
	})

	// The add triggers a follow-up refetch; wait for the listing to settle.
	snapshot, err := r.waitFor(func(s store.State) bool {
		return !s.Playlist.Loading
	}, 30*time.Second)
	if err != nil {
		return err
	}
	r.orchestrator.Wait()
	snapshot = r.store.State()

	if snapshot.Playlist.Err != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, snapshot.Playlist.Err)
	}

	return r.writePlain("✓ Track added (%d tracks in playlist)\n", len(snapshot.Playlist.Tracks))
}

// PlaylistRemove removes a track from a playlist.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("playlist")
	trackID := cmd.StringArg("track")
	if playlistID == "" || trackID == "" {
		return fmt.Errorf("%w: playlist id and track id are required", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(ctx); err != nil {
		return err
	}

	r.orchestrator.Dispatch(ctx, tasks.RemoveTrack{
		PlaylistID: playlistID,
		TrackURI:   services.TrackURI(trackID),
	})
	r.orchestrator.Wait()

	pl := r.store.State().Playlist
	if pl.Err != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, pl.Err)
	}

	return r.writePlain("✓ Track removed\n")
}

func artistNames(artists []services.Artist) string {
	names := make([]string, len(artists))
	for i, artist := range artists {
		names[i] = artist.Name
	}
	return strings.Join(names, ", ")
}
