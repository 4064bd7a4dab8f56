package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ncx/internal/auth"
	"github.com/desertthunder/ncx/internal/match"
	"github.com/desertthunder/ncx/internal/repositories"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	netease *services.NeteaseService
	spotify *services.SpotifyService
	manager *auth.Manager
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Netease *services.NeteaseService
	Spotify *services.SpotifyService
	Manager *auth.Manager
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		netease: opts.Netease,
		spotify: opts.Spotify,
		manager: opts.Manager,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, neteaseCommand, spotifyCommand, migrateCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the runner's logger, used when the TUI takes over the terminal
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// openDatabase opens the history database and applies pending migrations
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// loadNeteaseSession attaches a saved NetEase session to the source
// service when one exists. Public playlists work without one.
func (r *Runner) loadNeteaseSession() {
	path := r.config.Netease.CookiePath
	if path == "" {
		return
	}

	session, err := shared.LoadSession(path)
	if err != nil {
		r.logger.Debug("no netease session loaded", "path", path, "error", err)
		return
	}
	r.netease.SetSession(session)
}

// preflightAuth fetches a usable access token before any job starts,
// so revoked or missing credentials halt the run up front instead of
// failing the first job midway.
func (r *Runner) preflightAuth(ctx context.Context) error {
	if r.manager == nil {
		return fmt.Errorf("%w: set spotify client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}
	if _, err := r.manager.Token(ctx); err != nil {
		return fmt.Errorf("spotify authorization check failed: %w", err)
	}
	return nil
}

// buildEngine assembles the migration engine over the given recorder
func (r *Runner) buildEngine(recorder *repositories.HistoryRecorder) *tasks.Engine {
	resolver := match.NewResolver(match.ResolverOpts{
		Searcher:    r.spotify,
		Threshold:   r.config.Migration.MatchThreshold,
		SearchLimit: r.config.Migration.SearchLimit,
		RateLimit:   r.config.Migration.RateLimit,
		Logger:      r.logger,
	})

	builder := tasks.NewBuilder(r.spotify, r.logger)

	opts := tasks.EngineOpts{}
	if recorder != nil {
		opts.Recorder = recorder
		opts.Cache = recorder
	}

	return tasks.NewEngine(r.netease, resolver, builder, r.logger, opts)
}

// configuredJobs converts the configured playlist entries into migration jobs
func (r *Runner) configuredJobs(cmd *cli.Command) ([]tasks.Job, error) {
	prefix := r.config.Migration.PlaylistPrefix
	cover := r.config.Migration.CoverImagePath

	if id := cmd.String("id"); id != "" {
		return []tasks.Job{{
			SourcePlaylistID: id,
			Limit:            cmd.Int("limit"),
			Prefix:           prefix,
			CoverImagePath:   cover,
		}}, nil
	}

	if len(r.config.Netease.Playlists) == 0 {
		return nil, fmt.Errorf("%w: no playlists configured and no --id given", shared.ErrMissingArgument)
	}

	jobs := make([]tasks.Job, 0, len(r.config.Netease.Playlists))
	for _, entry := range r.config.Netease.Playlists {
		jobs = append(jobs, tasks.Job{
			SourcePlaylistID: entry.ID,
			Limit:            entry.Limit,
			Prefix:           prefix,
			CoverImagePath:   cover,
		})
	}
	return jobs, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
