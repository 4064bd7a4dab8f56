package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/ncx/internal/match"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
)

type mockSource struct {
	playlists map[string]*services.SourcePlaylist
	fetchErr  error
}

func (m *mockSource) Name() string {
	return "NetEase Cloud Music"
}

func (m *mockSource) FetchPlaylist(ctx context.Context, playlistID string) (*services.SourcePlaylist, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if playlist, ok := m.playlists[playlistID]; ok {
		return playlist, nil
	}
	return nil, fmt.Errorf("%w: playlist %s", shared.ErrSourceNotFound, playlistID)
}

type mockResolver struct {
	outcomes map[string]match.Outcome // keyed by source id
	errOnID  string
	err      error
	calls    []string
}

func (m *mockResolver) Resolve(ctx context.Context, track services.SourceTrack) (match.Outcome, error) {
	m.calls = append(m.calls, track.SourceID)
	if m.err != nil && (m.errOnID == "" || m.errOnID == track.SourceID) {
		return match.Outcome{}, m.err
	}
	if outcome, ok := m.outcomes[track.SourceID]; ok {
		outcome.Track = track
		return outcome, nil
	}
	return match.Outcome{Track: track, Status: match.Unmatched, Reason: "no search results"}, nil
}

type mockTarget struct {
	createdName  string
	createErr    error
	coverImages  [][]byte
	coverErr     error
	batches      [][]string
	appendErr    error
	appendErrOn  int // 1-based batch number that fails, 0 disables
	searchResult []services.Candidate
}

func (m *mockTarget) Name() string {
	return "Spotify"
}

func (m *mockTarget) Search(ctx context.Context, query string, limit int) ([]services.Candidate, error) {
	return m.searchResult, nil
}

func (m *mockTarget) CreatePlaylist(ctx context.Context, name string) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.createdName = name
	return "target_playlist", nil
}

func (m *mockTarget) UploadCover(ctx context.Context, playlistID string, image []byte) error {
	if m.coverErr != nil {
		return m.coverErr
	}
	m.coverImages = append(m.coverImages, image)
	return nil
}

func (m *mockTarget) AppendTracks(ctx context.Context, playlistID string, uris []string) error {
	if m.appendErr != nil && (m.appendErrOn == 0 || m.appendErrOn == len(m.batches)+1) {
		return m.appendErr
	}
	batch := make([]string, len(uris))
	copy(batch, uris)
	m.batches = append(m.batches, batch)
	return nil
}

func sourceTracks(n int) []services.SourceTrack {
	tracks := make([]services.SourceTrack, 0, n)
	for i := range n {
		tracks = append(tracks, services.SourceTrack{
			SourceID: fmt.Sprintf("src%d", i+1),
			Title:    fmt.Sprintf("Song %d", i+1),
			Artists:  []string{fmt.Sprintf("Artist %d", i+1)},
		})
	}
	return tracks
}

func matchedOutcomes(ids ...string) map[string]match.Outcome {
	outcomes := make(map[string]match.Outcome, len(ids))
	for i, id := range ids {
		outcomes[id] = match.Outcome{
			Status:     match.Matched,
			TargetID:   fmt.Sprintf("sp%d", i+1),
			TargetURI:  fmt.Sprintf("spotify:track:sp%d", i+1),
			Confidence: 0.95,
		}
	}
	return outcomes
}

func newTestEngine(source *mockSource, resolver *mockResolver, target *mockTarget, opts EngineOpts) *Engine {
	logger := shared.NewLogger(nil)
	return NewEngine(source, resolver, NewBuilder(target, logger), logger, opts)
}

func TestEngine_RunJob(t *testing.T) {
	tests := []struct {
		name          string
		job           Job
		source        *mockSource
		resolver      *mockResolver
		target        *mockTarget
		wantState     JobState
		wantMatched   int
		wantUnmatched int
		wantSkipped   int
		wantErr       bool
	}{
		{
			name: "all tracks matched",
			job:  Job{SourcePlaylistID: "pl1"},
			source: &mockSource{playlists: map[string]*services.SourcePlaylist{
				"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(3)},
			}},
			resolver:    &mockResolver{outcomes: matchedOutcomes("src1", "src2", "src3")},
			target:      &mockTarget{},
			wantState:   Completed,
			wantMatched: 3,
		},
		{
			name: "unmatched tracks do not stop the job",
			job:  Job{SourcePlaylistID: "pl1"},
			source: &mockSource{playlists: map[string]*services.SourcePlaylist{
				"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(3)},
			}},
			resolver:      &mockResolver{outcomes: matchedOutcomes("src1", "src3")},
			target:        &mockTarget{},
			wantState:     Completed,
			wantMatched:   2,
			wantUnmatched: 1,
		},
		{
			name: "limit keeps only the first tracks",
			job:  Job{SourcePlaylistID: "pl1", Limit: 2},
			source: &mockSource{playlists: map[string]*services.SourcePlaylist{
				"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(5)},
			}},
			resolver:    &mockResolver{outcomes: matchedOutcomes("src1", "src2", "src3", "src4", "src5")},
			target:      &mockTarget{},
			wantState:   Completed,
			wantMatched: 2,
		},
		{
			name: "limit larger than playlist keeps everything",
			job:  Job{SourcePlaylistID: "pl1", Limit: 10},
			source: &mockSource{playlists: map[string]*services.SourcePlaylist{
				"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(3)},
			}},
			resolver:    &mockResolver{outcomes: matchedOutcomes("src1", "src2", "src3")},
			target:      &mockTarget{},
			wantState:   Completed,
			wantMatched: 3,
		},
		{
			name:      "missing source playlist fails the job",
			job:       Job{SourcePlaylistID: "missing"},
			source:    &mockSource{playlists: map[string]*services.SourcePlaylist{}},
			resolver:  &mockResolver{},
			target:    &mockTarget{},
			wantState: Failed,
		},
		{
			name: "no matches completes without creating a playlist",
			job:  Job{SourcePlaylistID: "pl1"},
			source: &mockSource{playlists: map[string]*services.SourcePlaylist{
				"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(2)},
			}},
			resolver:      &mockResolver{},
			target:        &mockTarget{},
			wantState:     Completed,
			wantUnmatched: 2,
		},
		{
			name: "expired authorization halts with an error",
			job:  Job{SourcePlaylistID: "pl1"},
			source: &mockSource{playlists: map[string]*services.SourcePlaylist{
				"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(2)},
			}},
			resolver:  &mockResolver{err: shared.ErrAuthExpired},
			target:    &mockTarget{},
			wantState: Failed,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.source, tt.resolver, tt.target, EngineOpts{})

			report, err := engine.RunJob(context.Background(), tt.job, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunJob() error = %v, wantErr %v", err, tt.wantErr)
			}

			if report.State != tt.wantState {
				t.Errorf("state = %v, want %v", report.State, tt.wantState)
			}
			if report.Matched() != tt.wantMatched {
				t.Errorf("matched = %d, want %d", report.Matched(), tt.wantMatched)
			}
			if report.Unmatched() != tt.wantUnmatched {
				t.Errorf("unmatched = %d, want %d", report.Unmatched(), tt.wantUnmatched)
			}
			if report.Skipped() != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", report.Skipped(), tt.wantSkipped)
			}
		})
	}
}

func TestEngine_RunJob_PreservesOrder(t *testing.T) {
	source := &mockSource{playlists: map[string]*services.SourcePlaylist{
		"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(4)},
	}}
	resolver := &mockResolver{outcomes: matchedOutcomes("src1", "src2", "src3", "src4")}
	target := &mockTarget{}
	engine := newTestEngine(source, resolver, target, EngineOpts{})

	report, err := engine.RunJob(context.Background(), Job{SourcePlaylistID: "pl1"}, nil)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	for i, o := range report.Outcomes {
		want := fmt.Sprintf("src%d", i+1)
		if o.Track.SourceID != want {
			t.Errorf("outcome %d source = %s, want %s", i, o.Track.SourceID, want)
		}
	}

	if len(target.batches) != 1 {
		t.Fatalf("expected 1 append batch, got %d", len(target.batches))
	}
	wantURIs := []string{"spotify:track:sp1", "spotify:track:sp2", "spotify:track:sp3", "spotify:track:sp4"}
	for i, uri := range target.batches[0] {
		if uri != wantURIs[i] {
			t.Errorf("uri %d = %s, want %s", i, uri, wantURIs[i])
		}
	}
	if report.Appended != 4 {
		t.Errorf("appended = %d, want 4", report.Appended)
	}
}

func TestEngine_RunJob_DeduplicatesTargets(t *testing.T) {
	source := &mockSource{playlists: map[string]*services.SourcePlaylist{
		"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(3)},
	}}

	// src1 and src3 resolve to the same Spotify track
	dup := match.Outcome{Status: match.Matched, TargetID: "sp1", TargetURI: "spotify:track:sp1", Confidence: 0.9}
	resolver := &mockResolver{outcomes: map[string]match.Outcome{
		"src1": dup,
		"src2": {Status: match.Matched, TargetID: "sp2", TargetURI: "spotify:track:sp2", Confidence: 0.9},
		"src3": dup,
	}}
	target := &mockTarget{}
	engine := newTestEngine(source, resolver, target, EngineOpts{})

	report, err := engine.RunJob(context.Background(), Job{SourcePlaylistID: "pl1"}, nil)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	if report.Matched() != 2 || report.Skipped() != 1 {
		t.Fatalf("matched = %d skipped = %d, want 2 matched 1 skipped", report.Matched(), report.Skipped())
	}
	if report.Outcomes[2].Status != match.Skipped {
		t.Errorf("third outcome status = %v, want Skipped", report.Outcomes[2].Status)
	}
	if len(target.batches[0]) != 2 {
		t.Errorf("appended %d uris, want 2", len(target.batches[0]))
	}
}

func TestEngine_RunJob_PlaylistNamePrefix(t *testing.T) {
	source := &mockSource{playlists: map[string]*services.SourcePlaylist{
		"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(1)},
	}}
	resolver := &mockResolver{outcomes: matchedOutcomes("src1")}
	target := &mockTarget{}
	engine := newTestEngine(source, resolver, target, EngineOpts{})

	report, err := engine.RunJob(context.Background(), Job{SourcePlaylistID: "pl1", Prefix: "[NCM] "}, nil)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	if target.createdName != "[NCM] Favorites" {
		t.Errorf("created playlist name = %q, want %q", target.createdName, "[NCM] Favorites")
	}
	if report.TargetPlaylistName != "[NCM] Favorites" {
		t.Errorf("report target name = %q", report.TargetPlaylistName)
	}
}

func TestEngine_RunJob_AppendFailureKeepsPartialPlaylist(t *testing.T) {
	source := &mockSource{playlists: map[string]*services.SourcePlaylist{
		"pl1": {ID: "pl1", Name: "Big List", Tracks: sourceTracks(150)},
	}}

	outcomes := make(map[string]match.Outcome, 150)
	for i := range 150 {
		id := fmt.Sprintf("src%d", i+1)
		outcomes[id] = match.Outcome{
			Status:     match.Matched,
			TargetID:   fmt.Sprintf("sp%d", i+1),
			TargetURI:  fmt.Sprintf("spotify:track:sp%d", i+1),
			Confidence: 0.9,
		}
	}
	resolver := &mockResolver{outcomes: outcomes}
	target := &mockTarget{appendErr: errors.New("quota exceeded"), appendErrOn: 2}
	engine := newTestEngine(source, resolver, target, EngineOpts{})

	report, err := engine.RunJob(context.Background(), Job{SourcePlaylistID: "pl1"}, nil)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	if report.State != Failed {
		t.Errorf("state = %v, want Failed", report.State)
	}
	if report.Appended != 100 {
		t.Errorf("appended = %d, want 100", report.Appended)
	}
	if len(target.batches) != 1 {
		t.Errorf("landed batches = %d, want 1", len(target.batches))
	}
}

func TestEngine_RunJob_AuthExpiryDuringBuild(t *testing.T) {
	newSource := func() *mockSource {
		return &mockSource{playlists: map[string]*services.SourcePlaylist{
			"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(2)},
		}}
	}

	t.Run("playlist creation rejection halts the run", func(t *testing.T) {
		target := &mockTarget{createErr: fmt.Errorf("%w: refresh token revoked", shared.ErrAuthExpired)}
		resolver := &mockResolver{outcomes: matchedOutcomes("src1", "src2")}
		engine := newTestEngine(newSource(), resolver, target, EngineOpts{})

		report, err := engine.RunJob(context.Background(), Job{SourcePlaylistID: "pl1"}, nil)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("RunJob() error = %v, want ErrAuthExpired", err)
		}
		if report.State != Failed {
			t.Errorf("state = %v, want Failed", report.State)
		}

		summary, err := engine.RunAll(context.Background(), []Job{{SourcePlaylistID: "pl1"}, {SourcePlaylistID: "pl1"}}, nil)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("RunAll() error = %v, want ErrAuthExpired", err)
		}
		if !summary.Halted {
			t.Error("summary should be marked halted")
		}
		if len(summary.Reports) != 1 {
			t.Errorf("reports = %d, want 1 (second job never ran)", len(summary.Reports))
		}
	})

	t.Run("append rejection halts the run", func(t *testing.T) {
		target := &mockTarget{appendErr: fmt.Errorf("%w: refresh token revoked", shared.ErrAuthExpired)}
		resolver := &mockResolver{outcomes: matchedOutcomes("src1", "src2")}
		engine := newTestEngine(newSource(), resolver, target, EngineOpts{})

		report, err := engine.RunJob(context.Background(), Job{SourcePlaylistID: "pl1"}, nil)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("RunJob() error = %v, want ErrAuthExpired", err)
		}
		if report.State != Failed {
			t.Errorf("state = %v, want Failed", report.State)
		}
		if report.Appended != 0 {
			t.Errorf("appended = %d, want 0", report.Appended)
		}
	})
}

func TestEngine_RunAll(t *testing.T) {
	t.Run("continues after a failed job", func(t *testing.T) {
		source := &mockSource{playlists: map[string]*services.SourcePlaylist{
			"good": {ID: "good", Name: "Good", Tracks: sourceTracks(1)},
		}}
		resolver := &mockResolver{outcomes: matchedOutcomes("src1")}
		engine := newTestEngine(source, resolver, &mockTarget{}, EngineOpts{})

		jobs := []Job{{SourcePlaylistID: "missing"}, {SourcePlaylistID: "good"}}
		summary, err := engine.RunAll(context.Background(), jobs, nil)
		if err != nil {
			t.Fatalf("RunAll() error = %v", err)
		}

		if len(summary.Reports) != 2 {
			t.Fatalf("reports = %d, want 2", len(summary.Reports))
		}
		if summary.Reports[0].State != Failed || summary.Reports[1].State != Completed {
			t.Errorf("states = %v, %v", summary.Reports[0].State, summary.Reports[1].State)
		}
		if summary.CompletedJobs() != 1 {
			t.Errorf("completed = %d, want 1", summary.CompletedJobs())
		}
	})

	t.Run("halts on expired authorization", func(t *testing.T) {
		source := &mockSource{playlists: map[string]*services.SourcePlaylist{
			"pl1": {ID: "pl1", Name: "One", Tracks: sourceTracks(1)},
			"pl2": {ID: "pl2", Name: "Two", Tracks: sourceTracks(1)},
		}}
		resolver := &mockResolver{err: shared.ErrAuthExpired}
		engine := newTestEngine(source, resolver, &mockTarget{}, EngineOpts{})

		jobs := []Job{{SourcePlaylistID: "pl1"}, {SourcePlaylistID: "pl2"}}
		summary, err := engine.RunAll(context.Background(), jobs, nil)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("RunAll() error = %v, want ErrAuthExpired", err)
		}

		if !summary.Halted {
			t.Error("summary should be marked halted")
		}
		if len(summary.Reports) != 1 {
			t.Errorf("reports = %d, want 1 (second job never ran)", len(summary.Reports))
		}
	})

	t.Run("cancelled context stops between jobs", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine := newTestEngine(&mockSource{}, &mockResolver{}, &mockTarget{}, EngineOpts{})
		summary, err := engine.RunAll(ctx, []Job{{SourcePlaylistID: "pl1"}}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("RunAll() error = %v, want context.Canceled", err)
		}
		if len(summary.Reports) != 0 {
			t.Errorf("reports = %d, want 0", len(summary.Reports))
		}
	})
}

type mockRecorder struct {
	reports []*Report
	err     error
}

func (m *mockRecorder) RecordReport(report *Report) error {
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, report)
	return nil
}

type mockCache struct {
	entries map[string]match.Outcome
	stored  []match.Outcome
}

func (m *mockCache) Lookup(sourceID string) (*match.Outcome, bool) {
	if outcome, ok := m.entries[sourceID]; ok {
		return &outcome, true
	}
	return nil, false
}

func (m *mockCache) Store(outcome match.Outcome) error {
	m.stored = append(m.stored, outcome)
	return nil
}

func TestEngine_RunJob_Recording(t *testing.T) {
	source := &mockSource{playlists: map[string]*services.SourcePlaylist{
		"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(2)},
	}}
	resolver := &mockResolver{outcomes: matchedOutcomes("src1", "src2")}
	recorder := &mockRecorder{}
	engine := newTestEngine(source, resolver, &mockTarget{}, EngineOpts{Recorder: recorder})

	if _, err := engine.RunJob(context.Background(), Job{SourcePlaylistID: "pl1"}, nil); err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	if len(recorder.reports) != 1 {
		t.Fatalf("recorded reports = %d, want 1", len(recorder.reports))
	}
	if recorder.reports[0].State != Completed {
		t.Errorf("recorded state = %v, want Completed", recorder.reports[0].State)
	}
}

func TestEngine_RunJob_MatchCache(t *testing.T) {
	source := &mockSource{playlists: map[string]*services.SourcePlaylist{
		"pl1": {ID: "pl1", Name: "Favorites", Tracks: sourceTracks(2)},
	}}

	// src1 is cached, only src2 should hit the resolver
	cache := &mockCache{entries: map[string]match.Outcome{
		"src1": {Status: match.Matched, TargetID: "spc1", TargetURI: "spotify:track:spc1", Confidence: 0.88},
	}}
	resolver := &mockResolver{outcomes: matchedOutcomes("src2")}
	engine := newTestEngine(source, resolver, &mockTarget{}, EngineOpts{Cache: cache})

	report, err := engine.RunJob(context.Background(), Job{SourcePlaylistID: "pl1"}, nil)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}

	if report.Matched() != 2 {
		t.Errorf("matched = %d, want 2", report.Matched())
	}
	if len(resolver.calls) != 1 || resolver.calls[0] != "src2" {
		t.Errorf("resolver calls = %v, want [src2]", resolver.calls)
	}
	if len(cache.stored) != 1 || cache.stored[0].Track.SourceID != "src2" {
		t.Errorf("stored = %v, want one entry for src2", cache.stored)
	}
}

func TestJobState_String(t *testing.T) {
	states := map[JobState]string{
		Pending:   "pending",
		Fetching:  "fetching",
		Resolving: "resolving",
		Building:  "building",
		Completed: "completed",
		Failed:    "failed",
	}
	for state, want := range states {
		if state.String() != want {
			t.Errorf("JobState(%d).String() = %q, want %q", state, state.String(), want)
		}
	}
}
