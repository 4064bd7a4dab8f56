package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/ncx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig creates a config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlain("Fill in your Spotify client credentials and NetEase playlist IDs.\n")
	return nil
}

// SetupDatabase initializes the history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		if config, err := shared.LoadConfig(configPath); err == nil {
			r.config = config
		} else {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}

// SetupNetease saves a NetEase session parsed from a browser cURL command.
//
// Public playlists work without a session; private ones need the MUSIC_U
// cookie from a logged-in browser.
func (r *Runner) SetupNetease(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	r.logger.Info("parsing cURL command for NetEase session")

	var session *shared.CurlSession
	var err error

	if curlFile != "" {
		session, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		session, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	if !session.HasSession() {
		r.logger.Warn("cookie has no MUSIC_U value, private playlists will not be accessible")
	}

	path := r.config.Netease.CookiePath
	if path == "" {
		return fmt.Errorf("%w: netease.cookie_path is not set", shared.ErrInvalidConfig)
	}

	if err := session.SaveSession(path); err != nil {
		return err
	}

	r.logger.Info("netease session saved", "path", path)
	r.writePlain("✓ NetEase session saved to %s\n", path)
	return nil
}
