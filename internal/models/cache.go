package models

import (
	"fmt"
	"time"
)

// CachedMatch is a previously resolved source-to-target track pairing.
// Keyed by the source track id, so ID returns that key.
type CachedMatch struct {
	sourceID   string
	targetID   string
	confidence float64
	title      string
	artist     string
	createdAt  time.Time
}

// NewCachedMatch creates a cache entry for a resolved match
func NewCachedMatch(sourceID, targetID string, confidence float64) *CachedMatch {
	return &CachedMatch{
		sourceID:   sourceID,
		targetID:   targetID,
		confidence: confidence,
		createdAt:  time.Now(),
	}
}

func (c *CachedMatch) ID() string           { return c.sourceID }
func (c *CachedMatch) SourceID() string     { return c.sourceID }
func (c *CachedMatch) TargetID() string     { return c.targetID }
func (c *CachedMatch) Confidence() float64  { return c.confidence }
func (c *CachedMatch) Title() string        { return c.title }
func (c *CachedMatch) Artist() string       { return c.artist }
func (c *CachedMatch) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the creation time; cache entries are immutable
func (c *CachedMatch) UpdatedAt() time.Time { return c.createdAt }

func (c *CachedMatch) SetTitle(title string)    { c.title = title }
func (c *CachedMatch) SetArtist(artist string)  { c.artist = artist }
func (c *CachedMatch) SetCreatedAt(t time.Time) { c.createdAt = t }

// Validate checks required fields and the confidence range
func (c *CachedMatch) Validate() error {
	if c.sourceID == "" {
		return fmt.Errorf("source id is required")
	}
	if c.targetID == "" {
		return fmt.Errorf("target id is required")
	}
	if c.confidence < 0 || c.confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %f", c.confidence)
	}
	return nil
}
