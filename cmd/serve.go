package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/tidalwav/recast/internal/repositories"
	"github.com/tidalwav/recast/internal/server"
	"github.com/tidalwav/recast/internal/services"
	"github.com/tidalwav/recast/internal/shared"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Action: r.Serve,
	}
}

// Serve assembles the service, repositories and handlers, then runs the
// HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.config
	if path := cmd.String("config"); path != "" {
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		config = loaded
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	spotify, err := services.NewSpotifyAuthService(config.Spotify)
	if err != nil {
		return fmt.Errorf("failed to create spotify client: %w", err)
	}

	users := repositories.NewUserRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	recommendations := repositories.NewRecommendationRepository(db)

	srv := server.New(config, r.logger,
		server.NewAuthHandler(spotify, users, config.Frontend.URI, shared.WithLogger(r.logger, "component", "auth")),
		server.NewPlaylistHandler(playlists, shared.WithLogger(r.logger, "component", "playlist")),
		server.NewRecommendationHandler(recommendations, shared.WithLogger(r.logger, "component", "recommendation")),
		server.NewHistoryHandler(recommendations, shared.WithLogger(r.logger, "component", "history")),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
