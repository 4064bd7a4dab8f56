// package match implements the track resolution engine: scoring target-side
// search candidates against a source track and picking the best match.
package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ncx/internal/services"
	"github.com/desertthunder/ncx/internal/shared"
	"golang.org/x/time/rate"
)

// MatchThreshold is the default minimum confidence for a Matched outcome.
const MatchThreshold = 0.72

// DefaultSearchLimit bounds candidates fetched per resolution call.
const DefaultSearchLimit = 10

// Status tags a resolution outcome.
type Status int

const (
	Matched Status = iota
	Unmatched
	Skipped
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Unmatched:
		return "unmatched"
	case Skipped:
		return "skipped"
	default:
		return ""
	}
}

// Outcome is the result of resolving one source track. Exactly one per track,
// accumulated by the orchestrator in source order.
type Outcome struct {
	Track      services.SourceTrack
	Status     Status
	TargetID   string
	TargetURI  string
	Confidence float64
	Reason     string
}

// Weights are the similarity term weights. They are calibration defaults, not
// derived constants, and are exposed so tests and config can vary them.
type Weights struct {
	Title    float64
	Artist   float64
	Duration float64
}

// DefaultWeights returns the calibrated default weighting.
func DefaultWeights() Weights {
	return Weights{Title: 0.5, Artist: 0.3, Duration: 0.2}
}

// Searcher is the slice of the target catalog the resolver needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]services.Candidate, error)
}

// Resolver resolves source tracks against the target catalog.
type Resolver struct {
	searcher    Searcher
	weights     Weights
	threshold   float64
	searchLimit int
	limiter     *rate.Limiter
	retry       shared.RetryPolicy
	logger      *log.Logger
}

// ResolverOpts contains configuration options for creating a Resolver.
type ResolverOpts struct {
	Searcher    Searcher
	Weights     Weights
	Threshold   float64
	SearchLimit int
	RateLimit   float64 // searches per second, 0 disables pacing
	Retry       shared.RetryPolicy
	Logger      *log.Logger
}

// NewResolver creates a Resolver with the provided options.
func NewResolver(opts ResolverOpts) *Resolver {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = MatchThreshold
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = shared.DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	r := &Resolver{
		searcher:    opts.Searcher,
		weights:     opts.Weights,
		threshold:   opts.Threshold,
		searchLimit: opts.SearchLimit,
		retry:       opts.Retry,
		logger:      opts.Logger,
	}
	if opts.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return r
}

// BuildQuery builds the target search query for a source track: title with
// parentheticals stripped plus the primary artist, and a release-year window
// when the source reported a sane publish year.
func BuildQuery(track services.SourceTrack) string {
	var parts []string
	if track.PublishedYear > 0 {
		parts = append(parts, fmt.Sprintf("year:%d-%d", track.PublishedYear-4, track.PublishedYear+4))
	}
	if title := StripParens(track.Title); title != "" {
		parts = append(parts, title)
	}
	if artist := track.PrimaryArtist(); artist != "" {
		parts = append(parts, artist)
	}
	return strings.Join(parts, " ")
}

// Resolve resolves a single source track to its best target candidate.
//
// Search failures are retried with backoff; after exhaustion the outcome is
// Unmatched rather than an error, so one bad track never aborts a job. The
// returned error is non-nil only for revoked authorization, which no amount
// of per-track retrying can fix.
func (r *Resolver) Resolve(ctx context.Context, track services.SourceTrack) (Outcome, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return Outcome{Track: track, Status: Skipped, Reason: "cancelled"}, nil
		}
	}

	query := BuildQuery(track)
	if query == "" {
		return Outcome{Track: track, Status: Skipped, Reason: "no searchable metadata"}, nil
	}

	var candidates []services.Candidate
	err := shared.Retry(ctx, r.retry, func() error {
		var searchErr error
		candidates, searchErr = r.searcher.Search(ctx, query, r.searchLimit)
		return searchErr
	})
	if err != nil {
		if errors.Is(err, shared.ErrAuthExpired) || errors.Is(err, shared.ErrNotAuthorized) {
			return Outcome{}, err
		}
		r.logger.Debug("search failed", "query", query, "error", err)
		return Outcome{Track: track, Status: Unmatched, Reason: "search failed"}, nil
	}

	if len(candidates) == 0 {
		return Outcome{Track: track, Status: Unmatched, Reason: "no search results"}, nil
	}

	best := candidates[0]
	bestScore := r.Score(track, best)
	for _, candidate := range candidates[1:] {
		score := r.Score(track, candidate)
		// ties go to the more popular candidate, then to search order
		if score > bestScore || (score == bestScore && candidate.Popularity > best.Popularity) {
			best = candidate
			bestScore = score
		}
	}

	if bestScore < r.threshold {
		return Outcome{Track: track, Status: Unmatched, Reason: "no candidate above threshold"}, nil
	}

	return Outcome{
		Track:      track,
		Status:     Matched,
		TargetID:   best.TargetID,
		TargetURI:  best.URI,
		Confidence: bestScore,
	}, nil
}

// Score computes the weighted similarity between a source track and one
// candidate, in [0,1]. A source track with no duration drops the duration
// term and renormalizes the remaining weights.
func (r *Resolver) Score(track services.SourceTrack, candidate services.Candidate) float64 {
	title := titleSimilarity(track.Title, candidate.Title)
	artists := artistOverlap(track.Artists, candidate.Artists)

	w := r.weights
	if track.DurationMS == 0 {
		total := w.Title + w.Artist
		if total == 0 {
			return 0
		}
		return (w.Title*title + w.Artist*artists) / total
	}

	duration := durationCloseness(track.DurationMS, candidate.DurationMS)
	total := w.Title + w.Artist + w.Duration
	if total == 0 {
		return 0
	}
	return (w.Title*title + w.Artist*artists + w.Duration*duration) / total
}
