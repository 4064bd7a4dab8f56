// package formatter renders migration reports and playlist listings to various formats (text, Markdown, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/ncx/internal/match"
	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/tasks"
)

// statusGlyph maps a resolution status to its single-character marker
func statusGlyph(status match.Status) string {
	switch status {
	case match.Matched:
		return "✓"
	case match.Skipped:
		return "-"
	default:
		return "✗"
	}
}

// formatDuration renders a millisecond duration as M:SS
func formatDuration(ms int) string {
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// ReportToText converts a migration report to plain text format
func ReportToText(report *tasks.Report) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", report.SourcePlaylistName))
	if report.TargetPlaylistName != "" {
		buf.WriteString(fmt.Sprintf("Created: %s (%s)\n", report.TargetPlaylistName, report.TargetPlaylistID))
	}
	buf.WriteString(fmt.Sprintf("State: %s\n", report.State))
	if report.FailureReason != "" {
		buf.WriteString(fmt.Sprintf("Failure: %s\n", report.FailureReason))
	}
	buf.WriteString(fmt.Sprintf("Matched: %d  Unmatched: %d  Skipped: %d\n\n",
		report.Matched(), report.Unmatched(), report.Skipped()))

	for i, o := range report.Outcomes {
		line := fmt.Sprintf("%d. %s %s - %s", i+1, statusGlyph(o.Status), o.Track.PrimaryArtist(), o.Track.Title)
		if o.Status == match.Matched {
			line += fmt.Sprintf(" (%.2f)", o.Confidence)
		} else if o.Reason != "" {
			line += fmt.Sprintf(" (%s)", o.Reason)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes()
}

// ReportToMarkdown converts a migration report to Markdown format
func ReportToMarkdown(report *tasks.Report) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", report.SourcePlaylistName))
	if report.TargetPlaylistName != "" {
		buf.WriteString(fmt.Sprintf("**Created**: %s (`%s`)\n\n", report.TargetPlaylistName, report.TargetPlaylistID))
	}
	buf.WriteString(fmt.Sprintf("**State**: %s\n", report.State))
	buf.WriteString(fmt.Sprintf("**Matched**: %d / %d\n\n", report.Matched(), len(report.Outcomes)))
	if report.FailureReason != "" {
		buf.WriteString(fmt.Sprintf("**Failure**: %s\n\n", report.FailureReason))
	}

	buf.WriteString("## Tracks\n\n")
	buf.WriteString("| # | Status | Track | Confidence | Notes |\n")
	buf.WriteString("|---|--------|-------|------------|-------|\n")
	for i, o := range report.Outcomes {
		confidence := ""
		if o.Status == match.Matched {
			confidence = fmt.Sprintf("%.2f", o.Confidence)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s - %s | %s | %s |\n",
			i+1, o.Status, o.Track.PrimaryArtist(), o.Track.Title, confidence, o.Reason))
	}

	return buf.Bytes()
}

// OutcomesToCSV converts a report's per-track outcomes to CSV with columns:
// Position, SourceID, Title, Artist, Status, TargetID, Confidence, Reason
func OutcomesToCSV(report *tasks.Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "SourceID", "Title", "Artist", "Status", "TargetID", "Confidence", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, o := range report.Outcomes {
		record := []string{
			strconv.Itoa(i + 1),
			o.Track.SourceID,
			o.Track.Title,
			o.Track.PrimaryArtist(),
			o.Status.String(),
			o.TargetID,
			strconv.FormatFloat(o.Confidence, 'f', 4, 64),
			o.Reason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

type outcomeJSON struct {
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Status     string  `json:"status"`
	TargetID   string  `json:"target_id,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

type reportJSON struct {
	JobID              string        `json:"job_id"`
	SourcePlaylistID   string        `json:"source_playlist_id"`
	SourcePlaylistName string        `json:"source_playlist_name"`
	TargetPlaylistID   string        `json:"target_playlist_id,omitempty"`
	TargetPlaylistName string        `json:"target_playlist_name,omitempty"`
	State              string        `json:"state"`
	Matched            int           `json:"matched"`
	Unmatched          int           `json:"unmatched"`
	Skipped            int           `json:"skipped"`
	FailureReason      string        `json:"failure_reason,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
	Outcomes           []outcomeJSON `json:"outcomes"`
}

// ReportToJSON generates a pretty-printed JSON representation of a migration report
func ReportToJSON(report *tasks.Report) ([]byte, error) {
	out := reportJSON{
		JobID:              report.JobID,
		SourcePlaylistID:   report.SourcePlaylistID,
		SourcePlaylistName: report.SourcePlaylistName,
		TargetPlaylistID:   report.TargetPlaylistID,
		TargetPlaylistName: report.TargetPlaylistName,
		State:              report.State.String(),
		Matched:            report.Matched(),
		Unmatched:          report.Unmatched(),
		Skipped:            report.Skipped(),
		FailureReason:      report.FailureReason,
		StartedAt:          report.StartedAt,
		FinishedAt:         report.FinishedAt,
		Outcomes:           make([]outcomeJSON, 0, len(report.Outcomes)),
	}

	for _, o := range report.Outcomes {
		out.Outcomes = append(out.Outcomes, outcomeJSON{
			SourceID:   o.Track.SourceID,
			Title:      o.Track.Title,
			Artist:     o.Track.PrimaryArtist(),
			Status:     o.Status.String(),
			TargetID:   o.TargetID,
			Confidence: o.Confidence,
			Reason:     o.Reason,
		})
	}

	return shared.MarshalJSON(out, true)
}

// ReportExportResult contains the paths of files created by WriteReportExport
type ReportExportResult struct {
	MarkdownFile string
	OutcomesFile string
}

// WriteReportExport writes a migration report to disk as Markdown with an
// accompanying outcomes CSV.
//
// Defaults to the job ID as the base filename & creates {base}_report.md
// and {base}_outcomes.csv
func WriteReportExport(report *tasks.Report, baseFilepath string) (*ReportExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = report.JobID
	}

	mdFile := baseFilepath + "_report.md"
	if err := os.WriteFile(mdFile, ReportToMarkdown(report), 0644); err != nil {
		return nil, fmt.Errorf("failed to write report file: %w", err)
	}

	csvData, err := OutcomesToCSV(report)
	if err != nil {
		return nil, fmt.Errorf("failed to generate outcomes CSV: %w", err)
	}

	csvFile := baseFilepath + "_outcomes.csv"
	if err := os.WriteFile(csvFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write outcomes file: %w", err)
	}

	return &ReportExportResult{
		MarkdownFile: mdFile,
		OutcomesFile: csvFile,
	}, nil
}

// PlaylistToText converts a source playlist to plain text format
func PlaylistToText(playlist *services.SourcePlaylist) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s (%s)\n", playlist.Name, playlist.ID))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(playlist.Tracks)))

	for i, track := range playlist.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n",
			i+1, track.PrimaryArtist(), track.Title, formatDuration(track.DurationMS)))
	}

	return buf.Bytes()
}

// CandidatesToText converts search candidates to plain text format
func CandidatesToText(candidates []services.Candidate) []byte {
	var buf bytes.Buffer

	for i, c := range candidates {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s] (popularity %d)\n",
			i+1, c.PrimaryArtist(), c.Title, formatDuration(c.DurationMS), c.Popularity))
	}

	return buf.Bytes()
}

// RunsToText converts persisted migration runs to plain text format, one per line
func RunsToText(runs []*models.MigrationRun) []byte {
	var buf bytes.Buffer

	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("%s  %s  %-9s  %d/%d matched",
			run.CreatedAt().Format("2006-01-02 15:04"),
			run.ID(),
			run.State(),
			run.Matched(),
			run.Matched()+run.Unmatched()+run.Skipped(),
		))
		if run.TargetPlaylistName() != "" {
			buf.WriteString("  → " + run.TargetPlaylistName())
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}
