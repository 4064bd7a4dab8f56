package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifySearch searches the Spotify catalog for tracks.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if query == "" {
		return fmt.Errorf("%w: a search query is required", shared.ErrMissingArgument)
	}
	if r.spotify == nil {
		return fmt.Errorf("%w: set spotify client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}

	r.logger.Info("searching spotify", "query", query, "limit", limit)

	candidates, err := r.spotify.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if len(candidates) == 0 {
		return r.writePlain("No results for %q\n", query)
	}

	if useJSON {
		return r.writeJSON(candidates, pretty)
	}

	return r.writePlain("%s", formatter.CandidatesToText(candidates))
}
