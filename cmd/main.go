package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/ncx/internal/auth"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	sink := shared.NewFileSink(config.Logging)
	defer sink.Close()
	logger := shared.NewRunLogger(config.Logging, sink)

	netease := services.NewNeteaseService(config.Netease.BaseURL)

	var spotify *services.SpotifyService
	var manager *auth.Manager
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
		if err != nil {
			logger.Fatalf("invalid spotify credentials: %v", err)
		}
		spotify = svc

		server := config.Server
		authorizer := auth.NewBrowserAuthorizer(svc.OAuthConfig(), server.Host, server.Port, logger)
		manager = auth.NewManager(auth.ManagerOpts{
			Store:      auth.NewFileStore(config.Credentials.Spotify.TokenPath),
			Refresher:  svc,
			Authorizer: authorizer,
			Margin:     auth.SafetyMargin,
			Logger:     logger,
		})
		svc.SetTokenSource(manager)
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Netease: netease,
		Spotify: spotify,
		Manager: manager,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "ncx",
		Usage:    "Migrate NetEase Cloud Music playlists to Spotify",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrAuthExpired) {
			logger.Error("authorization expired, run 'ncx auth login'")
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
