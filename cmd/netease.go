package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/urfave/cli/v3"
)

// NeteaseTracks fetches and prints a NetEase playlist's track listing.
func (r *Runner) NeteaseTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	r.loadNeteaseSession()
	r.logger.Info("fetching netease playlist", "id", playlistID)

	playlist, err := r.netease.FetchPlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(playlist, pretty)
	}

	return r.writePlain("%s", formatter.PlaylistToText(playlist))
}
