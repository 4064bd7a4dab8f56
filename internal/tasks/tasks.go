package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ncx/internal/match"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
)

// Job describes a single playlist migration.
type Job struct {
	ID               string // Run identifier, generated when empty
	SourcePlaylistID string // NetEase playlist id
	Limit            int    // Max tracks to migrate, 0 means all
	Prefix           string // Prepended to the target playlist name
	CoverImagePath   string // Local fallback cover image
}

// Job state enumeration
type JobState int

const (
	Pending JobState = iota
	Fetching
	Resolving
	Building
	Completed
	Failed
)

func (s JobState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fetching:
		return "fetching"
	case Resolving:
		return "resolving"
	case Building:
		return "building"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Report is the result of a migration job. Outcomes appear in source
// playlist order.
type Report struct {
	JobID              string
	SourcePlaylistID   string
	SourcePlaylistName string
	TargetPlaylistID   string
	TargetPlaylistName string
	State              JobState
	Outcomes           []match.Outcome
	Appended           int
	FailureReason      string
	StartedAt          time.Time
	FinishedAt         time.Time
}

func (r *Report) Matched() int   { return r.count(match.Matched) }
func (r *Report) Unmatched() int { return r.count(match.Unmatched) }
func (r *Report) Skipped() int   { return r.count(match.Skipped) }

func (r *Report) count(status match.Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (r *Report) Summary() string {
	return fmt.Sprintf("%s: %d matched, %d unmatched, %d skipped (%s)",
		r.SourcePlaylistName, r.Matched(), r.Unmatched(), r.Skipped(), r.State)
}

// RunSummary aggregates the reports of a multi-playlist run.
type RunSummary struct {
	Reports []*Report
	Halted  bool // True when the run stopped early on expired authorization
}

func (s *RunSummary) CompletedJobs() int {
	n := 0
	for _, r := range s.Reports {
		if r.State == Completed {
			n++
		}
	}
	return n
}

// TrackResolver matches a source track against the target catalog.
type TrackResolver interface {
	Resolve(ctx context.Context, track services.SourceTrack) (match.Outcome, error)
}

// ReportRecorder persists migration reports. Optional.
type ReportRecorder interface {
	RecordReport(report *Report) error
}

// MatchCache stores previously resolved matches keyed by source track
// id. Optional.
type MatchCache interface {
	Lookup(sourceID string) (*match.Outcome, bool)
	Store(outcome match.Outcome) error
}

// Engine orchestrates playlist migrations: it fetches the source
// playlist, resolves each track, builds the target playlist and
// reports the result. Jobs run one at a time.
type Engine struct {
	source   services.SourceCatalog
	resolver TrackResolver
	builder  *Builder
	recorder ReportRecorder
	cache    MatchCache
	logger   *log.Logger
	now      func() time.Time
}

type EngineOpts struct {
	Recorder ReportRecorder
	Cache    MatchCache
	Now      func() time.Time
}

func NewEngine(source services.SourceCatalog, resolver TrackResolver, builder *Builder, logger *log.Logger, opts EngineOpts) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		source:   source,
		resolver: resolver,
		builder:  builder,
		recorder: opts.Recorder,
		cache:    opts.Cache,
		logger:   logger,
		now:      now,
	}
}

// RunJob executes a single migration job through its full lifecycle.
// The returned report is always non-nil. The error is non-nil only
// when authorization expired, which halts any surrounding run; all
// other failures are recorded on the report with state Failed.
func (e *Engine) RunJob(ctx context.Context, job Job, updates chan<- ProgressUpdate) (*Report, error) {
	if job.ID == "" {
		job.ID = shared.GenerateID()
	}

	report := &Report{
		JobID:            job.ID,
		SourcePlaylistID: job.SourcePlaylistID,
		State:            Pending,
		StartedAt:        e.now(),
	}
	defer func() {
		report.FinishedAt = e.now()
		e.record(report)
		sendUpdate(updates, summaryUpdate(report))
	}()

	report.State = Fetching
	sendUpdate(updates, fetchingSourceUpdate(job.SourcePlaylistID))

	playlist, err := e.source.FetchPlaylist(ctx, job.SourcePlaylistID)
	if err != nil {
		return e.fail(report, fmt.Errorf("fetching source playlist: %w", err))
	}
	report.SourcePlaylistName = playlist.Name

	tracks := playlist.Tracks
	if job.Limit > 0 && job.Limit < len(tracks) {
		tracks = tracks[:job.Limit]
	}
	sendUpdate(updates, foundPlaylistUpdate(playlist, len(tracks)))

	report.State = Resolving
	outcomes, err := e.resolveAll(ctx, tracks, updates)
	report.Outcomes = outcomes
	if err != nil {
		return e.fail(report, err)
	}

	uris := matchedURIs(outcomes)
	if len(uris) == 0 {
		e.logger.Warn("no tracks matched, skipping playlist creation", "playlist", playlist.Name)
		report.State = Completed
		return report, nil
	}

	report.State = Building
	report.TargetPlaylistName = job.Prefix + playlist.Name
	sendUpdate(updates, creatingPlaylistUpdate(report.TargetPlaylistName))

	targetID, err := e.builder.CreatePlaylist(ctx, report.TargetPlaylistName)
	if err != nil {
		return e.fail(report, err)
	}
	report.TargetPlaylistID = targetID

	e.builder.SetCover(ctx, targetID, playlist.CoverURL, job.CoverImagePath)

	appended, err := e.builder.AppendTracks(ctx, targetID, uris, updates)
	report.Appended = appended
	if err != nil {
		// The playlist keeps whatever batches landed before the
		// failure so the user can resume by hand.
		return e.fail(report, fmt.Errorf("playlist populated with %d of %d tracks: %w", appended, len(uris), err))
	}

	report.State = Completed
	return report, nil
}

// RunAll migrates the given jobs sequentially. A job failure is
// recorded and the run moves on; expired authorization stops the run
// because every remaining job would fail the same way.
func (e *Engine) RunAll(ctx context.Context, jobs []Job, updates chan<- ProgressUpdate) (*RunSummary, error) {
	summary := &RunSummary{}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		report, err := e.RunJob(ctx, job, updates)
		summary.Reports = append(summary.Reports, report)
		if err != nil {
			summary.Halted = true
			return summary, err
		}
	}

	return summary, nil
}

func (e *Engine) resolveAll(ctx context.Context, tracks []services.SourceTrack, updates chan<- ProgressUpdate) ([]match.Outcome, error) {
	outcomes := make([]match.Outcome, 0, len(tracks))
	seen := make(map[string]int, len(tracks))

	for i, track := range tracks {
		sendUpdate(updates, resolvingUpdate(i+1, len(tracks), track))

		outcome, err := e.resolveOne(ctx, track)
		if err != nil {
			return outcomes, err
		}

		if outcome.Status == match.Matched {
			if prev, ok := seen[outcome.TargetID]; ok {
				outcome.Status = match.Skipped
				outcome.Reason = fmt.Sprintf("duplicate of track %d", prev+1)
				outcome.TargetURI = ""
			} else {
				seen[outcome.TargetID] = i
			}
		}

		outcomes = append(outcomes, outcome)
		sendUpdate(updates, resolvedUpdate(i+1, len(tracks), outcome))
	}

	return outcomes, nil
}

func (e *Engine) resolveOne(ctx context.Context, track services.SourceTrack) (match.Outcome, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Lookup(track.SourceID); ok {
			e.logger.Debug("match cache hit", "source_id", track.SourceID, "target_id", cached.TargetID)
			cached.Track = track
			return *cached, nil
		}
	}

	outcome, err := e.resolver.Resolve(ctx, track)
	if err != nil {
		return match.Outcome{}, err
	}

	if outcome.Status == match.Matched && e.cache != nil {
		if err := e.cache.Store(outcome); err != nil {
			e.logger.Warn("match cache store failed", "source_id", track.SourceID, "error", err)
		}
	}
	return outcome, nil
}

// fail marks the report Failed. Expired authorization is also returned
// to the caller so the surrounding run halts, no matter which phase it
// surfaced in; every other error stays absorbed into the report.
func (e *Engine) fail(report *Report, err error) (*Report, error) {
	e.logger.Error("migration job failed", "job_id", report.JobID, "error", err)
	report.State = Failed
	report.FailureReason = err.Error()
	if errors.Is(err, shared.ErrAuthExpired) || errors.Is(err, shared.ErrNotAuthorized) {
		return report, err
	}
	return report, nil
}

func (e *Engine) record(report *Report) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordReport(report); err != nil {
		e.logger.Warn("recording migration report failed", "job_id", report.JobID, "error", err)
	}
}

func matchedURIs(outcomes []match.Outcome) []string {
	uris := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == match.Matched {
			uris = append(uris, o.TargetURI)
		}
	}
	return uris
}
