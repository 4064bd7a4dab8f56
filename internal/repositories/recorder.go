package repositories

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ncx/internal/match"
	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/tasks"
)

// HistoryRecorder persists migration reports and caches resolved
// matches. It satisfies the engine's ReportRecorder and MatchCache
// interfaces over the sqlite repositories.
type HistoryRecorder struct {
	runs   *RunRepository
	cache  *MatchCacheRepository
	logger *log.Logger
}

// NewHistoryRecorder creates a recorder backed by the given database connection
func NewHistoryRecorder(db *sql.DB, logger *log.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		runs:   NewRunRepository(db),
		cache:  NewMatchCacheRepository(db),
		logger: logger,
	}
}

// Runs exposes the underlying run repository for history queries
func (h *HistoryRecorder) Runs() *RunRepository { return h.runs }

// Matches exposes the underlying cache repository
func (h *HistoryRecorder) Matches() *MatchCacheRepository { return h.cache }

// RecordReport persists a finished migration report with its per-track outcomes
func (h *HistoryRecorder) RecordReport(report *tasks.Report) error {
	run := models.NewMigrationRun(report.SourcePlaylistID)
	run.SetID(report.JobID)
	run.SetTargetPlaylistID(report.TargetPlaylistID)
	run.SetTargetPlaylistName(report.TargetPlaylistName)
	run.SetState(report.State.String())
	run.SetCounts(report.Matched(), report.Unmatched(), report.Skipped())
	run.SetFailureReason(report.FailureReason)
	run.SetCreatedAt(report.StartedAt)
	run.SetUpdatedAt(report.FinishedAt)

	if err := h.runs.Create(run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	outcomes := make([]models.OutcomeRow, 0, len(report.Outcomes))
	for i, o := range report.Outcomes {
		outcomes = append(outcomes, models.OutcomeRow{
			RunID:      run.ID(),
			Position:   i,
			SourceID:   o.Track.SourceID,
			Title:      o.Track.Title,
			Artist:     o.Track.PrimaryArtist(),
			Status:     o.Status.String(),
			TargetID:   o.TargetID,
			Confidence: o.Confidence,
			Reason:     o.Reason,
		})
	}

	if err := h.runs.SaveOutcomes(run.ID(), outcomes); err != nil {
		return fmt.Errorf("recording outcomes: %w", err)
	}
	return nil
}

// Lookup returns a cached outcome for the source track id when present
func (h *HistoryRecorder) Lookup(sourceID string) (*match.Outcome, bool) {
	entry, err := h.cache.Get(sourceID)
	if err != nil {
		return nil, false
	}

	return &match.Outcome{
		Status:     match.Matched,
		TargetID:   entry.TargetID(),
		TargetURI:  "spotify:track:" + entry.TargetID(),
		Confidence: entry.Confidence(),
		Reason:     "cached",
	}, true
}

// Store caches a matched outcome for reuse by later runs
func (h *HistoryRecorder) Store(outcome match.Outcome) error {
	if outcome.Status != match.Matched {
		return nil
	}

	entry := models.NewCachedMatch(outcome.Track.SourceID, outcome.TargetID, outcome.Confidence)
	entry.SetTitle(outcome.Track.Title)
	entry.SetArtist(outcome.Track.PrimaryArtist())

	if err := h.cache.Create(entry); err != nil {
		return fmt.Errorf("caching match: %w", err)
	}
	return nil
}
