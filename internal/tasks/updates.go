package tasks

import (
	"fmt"

	"github.com/desertthunder/ncx/internal/match"
	"github.com/desertthunder/ncx/internal/services"
)

// ProgressUpdate represents a progress event during a migration.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	ResolveTracks
	CreatePlaylist
	UploadCover
	AppendTracks
	JobSummary
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case ResolveTracks:
		return "resolve_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case UploadCover:
		return "upload_cover"
	case AppendTracks:
		return "append_tracks"
	case JobSummary:
		return "job_summary"
	default:
		return ""
	}
}

func fetchingSourceUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching NetEase playlist %s...", playlistID),
	}
}

func foundPlaylistUpdate(playlist *services.SourcePlaylist, kept int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d of %d tracks)", playlist.Name, kept, len(playlist.Tracks)),
		Data:    playlist,
	}
}

func resolvingUpdate(step, total int, track services.SourceTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, track.PrimaryArtist(), track.Title),
	}
}

func resolvedUpdate(step, total int, outcome match.Outcome) ProgressUpdate {
	var msg string
	switch outcome.Status {
	case match.Matched:
		msg = fmt.Sprintf("[%d/%d] ✓ %s (%.2f)", step, total, outcome.Track.Title, outcome.Confidence)
	case match.Skipped:
		msg = fmt.Sprintf("[%d/%d] - %s (%s)", step, total, outcome.Track.Title, outcome.Reason)
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s (%s)", step, total, outcome.Track.Title, outcome.Reason)
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    outcome,
	}
}

func creatingPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating Spotify playlist: %s", name),
	}
}

func appendBatchUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AppendTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[batch %d/%d] Adding %d tracks...", step, total, count),
	}
}

func summaryUpdate(report *Report) ProgressUpdate {
	return ProgressUpdate{
		Phase:   JobSummary,
		Step:    1,
		Total:   1,
		Message: report.Summary(),
		Data:    report,
	}
}
