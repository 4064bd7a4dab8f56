package main

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ncx/internal/formatter"
	"github.com/desertthunder/ncx/internal/repositories"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/tasks"
	"github.com/desertthunder/ncx/internal/ui"
	"github.com/urfave/cli/v3"
)

// MigrateRun migrates the configured NetEase playlists (or a single --id) to Spotify.
func (r *Runner) MigrateRun(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	exportBase := cmd.String("export")
	noHistory := cmd.Bool("no-history")

	if r.spotify == nil {
		return fmt.Errorf("%w: set spotify client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}

	jobs, err := r.configuredJobs(cmd)
	if err != nil {
		return err
	}

	if err := r.preflightAuth(ctx); err != nil {
		return err
	}

	var recorder *repositories.HistoryRecorder
	if !noHistory {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		recorder = repositories.NewHistoryRecorder(db, r.logger)
	}

	r.loadNeteaseSession()
	engine := r.buildEngine(recorder)

	r.logger.Info("starting migration", "playlists", len(jobs))
	r.writePlain("Migrating %d playlist(s) to Spotify...\n\n", len(jobs))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ResolveTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.CreatePlaylist:
				r.writePlain("\n📝 %s\n", update.Message)
			case tasks.AppendTracks:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	summary, runErr := engine.RunAll(ctx, jobs, progressCh)
	close(progressCh)
	wg.Wait()

	r.writePlain("\n")
	r.writePlainHeader("Migration Summary")
	for _, report := range summary.Reports {
		if useJSON {
			data, err := formatter.ReportToJSON(report)
			if err != nil {
				return err
			}
			r.writePlain("%s\n", data)
		} else {
			r.writePlain("%s", formatter.ReportToText(report))
			r.writePlain("\n")
		}

		if exportBase != "" {
			base := exportBase
			if len(summary.Reports) > 1 {
				base = fmt.Sprintf("%s_%s", exportBase, report.SourcePlaylistID)
			}
			result, err := formatter.WriteReportExport(report, base)
			if err != nil {
				r.logger.Warn("report export failed", "error", err)
			} else {
				r.writePlain("Report written to %s and %s\n", result.MarkdownFile, result.OutcomesFile)
			}
		}
	}

	if runErr != nil {
		return fmt.Errorf("migration halted after %d of %d playlist(s): %w",
			len(summary.Reports), len(jobs), runErr)
	}

	r.writePlain("Completed %d/%d playlist(s)\n", summary.CompletedJobs(), len(jobs))
	return nil
}

// MigrateUI runs the migration in an interactive terminal UI.
func (r *Runner) MigrateUI(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: set spotify client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}

	jobs, err := r.configuredJobs(cmd)
	if err != nil {
		return err
	}

	if err := r.preflightAuth(ctx); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	// Send logs to the file sink only so they don't corrupt the TUI
	sink := shared.NewFileSink(r.config.Logging)
	defer sink.Close()
	r.SetLogger(shared.NewLogger(sink))

	r.loadNeteaseSession()
	engine := r.buildEngine(repositories.NewHistoryRecorder(db, r.logger))

	model := ui.NewModel(ctx, engine, jobs)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
