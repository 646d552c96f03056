package main

import (
	"context"
	"os"

	"github.com/desertthunder/trax/internal/repositories"
	"github.com/desertthunder/trax/internal/services"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/store"
	"github.com/desertthunder/trax/internal/tasks"
	"github.com/urfave/cli/v3"
)

func main() {
	shared.LoadDotenv()

	logger := shared.WithLogger(shared.NewLogger(nil), "run", shared.GenerateID())

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		logger.Fatalf("failed to open session database: %v", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	sessions, err := repositories.NewSessionRepository(db)
	if err != nil {
		logger.Fatalf("failed to initialize session store: %v", err)
	}

	auth, err := services.NewAuthenticator(config.Credentials.Spotify, sessions)
	if err != nil {
		logger.Fatalf("failed to initialize authenticator: %v", err)
	}

	catalog := services.NewSpotifyClient(services.SpotifyClientOpts{RequestsPerSecond: 10})

	st := store.NewStore()
	orchestrator := tasks.NewOrchestrator(tasks.Opts{
		Store:   st,
		Auth:    auth,
		Catalog: catalog,
		Logger:  logger,
	})

	runner := NewRunner(RunnerOpts{
		Config:       config,
		Store:        st,
		Orchestrator: orchestrator,
		Auth:         auth,
		Catalog:      catalog,
		Logger:       logger,
	})

	app := &cli.Command{
		Name:     "trax",
		Usage:    "Manage Spotify playlists from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
