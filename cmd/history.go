package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/repositories"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList lists recorded migration runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	state := cmd.String("state")
	useJSON := cmd.Bool("json")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := map[string]any{}
	if state != "" {
		criteria["state"] = state
	}

	runs, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		return r.writePlain("No recorded runs\n")
	}

	if useJSON {
		out := make([]map[string]any, 0, len(runs))
		for _, run := range runs {
			out = append(out, map[string]any{
				"id":                   run.ID(),
				"source_playlist_id":   run.SourcePlaylistID(),
				"target_playlist_id":   run.TargetPlaylistID(),
				"target_playlist_name": run.TargetPlaylistName(),
				"state":                run.State(),
				"matched":              run.Matched(),
				"unmatched":            run.Unmatched(),
				"skipped":              run.Skipped(),
				"failure_reason":       run.FailureReason(),
				"created_at":           run.CreatedAt(),
			})
		}
		return r.writeJSON(out, true)
	}

	return r.writePlain("%s", formatter.RunsToText(runs))
}

// HistoryShow prints the per-track outcomes of a recorded run.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	runID := cmd.StringArg("id")
	if runID == "" {
		return fmt.Errorf("%w: a run ID is required", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)

	run, err := repo.Get(runID)
	if err != nil {
		return err
	}

	outcomes, err := repo.Outcomes(runID)
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Run %s (%s)", run.ID(), run.State()))
	r.writePlain("Source playlist: %s\n", run.SourcePlaylistID())
	if run.TargetPlaylistName() != "" {
		r.writePlain("Created: %s (%s)\n", run.TargetPlaylistName(), run.TargetPlaylistID())
	}
	if run.FailureReason() != "" {
		r.writePlain("Failure: %s\n", run.FailureReason())
	}
	r.writePlain("Matched: %d  Unmatched: %d  Skipped: %d\n\n", run.Matched(), run.Unmatched(), run.Skipped())

	for _, o := range outcomes {
		line := fmt.Sprintf("%d. [%s] %s - %s", o.Position+1, o.Status, o.Artist, o.Title)
		if o.Status == "matched" {
			line += fmt.Sprintf(" (%.2f)", o.Confidence)
		} else if o.Reason != "" {
			line += fmt.Sprintf(" (%s)", o.Reason)
		}
		r.writePlain("%s\n", line)
	}

	return nil
}

// HistoryClear deletes recorded runs and optionally the match cache.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	clearCache := cmd.Bool("cache")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := repositories.NewRunRepository(db).Clear()
	if err != nil {
		return err
	}
	r.logger.Info("cleared migration history", "runs", deleted)
	r.writePlain("✓ Deleted %d recorded run(s)\n", deleted)

	if clearCache {
		entries, err := repositories.NewMatchCacheRepository(db).Clear()
		if err != nil {
			return err
		}
		r.logger.Info("cleared match cache", "entries", entries)
		r.writePlain("✓ Deleted %d cached match(es)\n", entries)
	}

	return nil
}
