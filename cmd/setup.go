package main

import (
	"context"

	"github.com/desertthunder/trax/internal/repositories"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates a starter config file and initializes the session database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		r.logger.Warnf("skipping config creation: %v", err)
	} else {
		r.writePlain("✓ Created %s\n", configPath)
		r.writePlain("  Fill in your Spotify client_id before logging in.\n")
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := repositories.NewSessionRepository(db); err != nil {
		return err
	}

	return r.writePlain("✓ Session database ready at %s\n", r.config.Database.Path)
}
