// package services defines interfaces for the two music catalogs
//
// NetEase Cloud Music (source, read-only) and Spotify (target)
package services

import (
	"context"
	"fmt"
	"time"
)

// SourceCatalog is the read-only side of a migration: it produces the ordered
// track metadata for a playlist id.
type SourceCatalog interface {
	// FetchPlaylist retrieves a playlist and its full ordered track list.
	// Returns shared.ErrSourceNotFound (wrapped) on an invalid id.
	FetchPlaylist(ctx context.Context, playlistID string) (*SourcePlaylist, error)

	// Name returns the name of the service (e.g., "NetEase Cloud Music")
	Name() string
}

// TargetCatalog is the write side of a migration.
type TargetCatalog interface {
	// Search issues a bounded-size track search and returns candidates in
	// the order the catalog ranked them.
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)

	// CreatePlaylist creates an empty playlist and returns its id.
	CreatePlaylist(ctx context.Context, name string) (string, error)

	// UploadCover sets the playlist cover from raw JPEG bytes.
	UploadCover(ctx context.Context, playlistID string, image []byte) error

	// AppendTracks appends the given track URIs to the playlist in order.
	// Callers are responsible for batching below the per-request cap.
	AppendTracks(ctx context.Context, playlistID string, uris []string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// SourcePlaylist is a source playlist with its complete ordered track list.
type SourcePlaylist struct {
	ID       string
	Name     string
	CoverURL string
	Tracks   []SourceTrack
}

// SourceTrack is one track's metadata as produced by the source catalog. Immutable.
type SourceTrack struct {
	SourceID      string
	Title         string
	Artists       []string
	Album         string
	DurationMS    int
	PublishedYear int // -1 when unknown or outside the sane window
}

// PrimaryArtist returns the first credited artist, or "" for artistless entries.
func (t SourceTrack) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// Candidate is one target-side search result, scoped to a single resolution call.
type Candidate struct {
	TargetID   string
	URI        string
	Title      string
	Artists    []string
	Album      string
	DurationMS int
	Popularity int
}

// PrimaryArtist returns the first credited artist, or "" for artistless entries.
func (c Candidate) PrimaryArtist() string {
	if len(c.Artists) == 0 {
		return ""
	}
	return c.Artists[0]
}

// APIError is a structured target-catalog error distinguishing client errors
// from transient server failures.
type APIError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("spotify API error: status %d", e.Status)
}

// Transient reports whether the request may succeed on retry (429 or 5xx).
func (e *APIError) Transient() bool {
	return e.Status == 429 || e.Status >= 500
}

// RetryAfterHint returns the server's Retry-After value, zero when absent.
func (e *APIError) RetryAfterHint() time.Duration {
	return e.RetryAfter
}
