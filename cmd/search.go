package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/store"
	"github.com/desertthunder/trax/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Search runs a track search for the given query.
//
// The query goes through the same debounced path the interactive UI uses, so
// the command waits for the quiet window to elapse before the request fires.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	if err := r.ensureSession(ctx); err != nil {
		return err
	}

	r.orchestrator.Dispatch(ctx, tasks.QueryChanged{Query: query})

	if _, err := r.waitFor(func(s store.State) bool {
		return s.Search.Loading || s.Search.Err != ""
	}, 10*time.Second); err != nil {
		return err
	}
	r.orchestrator.Wait()

	s := r.store.State().Search
	if s.Err != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, s.Err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(s.Results, cmd.Bool("pretty"))
	}

	if len(s.Results) == 0 {
		return r.writePlain("No tracks found for '%s'\n", query)
	}

	r.writePlain("Found %d tracks:\n\n", len(s.Results))
	for i, track := range s.Results {
		r.writePlain("%d. %s - %s\n", i+1, artistNames(track.Artists), track.Name)
		if track.Album.Name != "" {
			r.writePlain("   Album: %s\n", track.Album.Name)
		}
		r.writePlain("   ID: %s\n", track.ID)
	}

	if s.HasMore {
		r.writePlain("\nMore results available.\n")
	}

	return nil
}
