package models

import (
	"fmt"
	"time"
)

// MigrationRun is the persisted record of one migration job.
type MigrationRun struct {
	id                 string
	sourcePlaylistID   string
	targetPlaylistID   string
	targetPlaylistName string
	state              string
	matched            int
	unmatched          int
	skipped            int
	failureReason      string
	createdAt          time.Time
	updatedAt          time.Time
}

// NewMigrationRun creates a migration run record in its initial state
func NewMigrationRun(sourcePlaylistID string) *MigrationRun {
	now := time.Now()
	return &MigrationRun{
		sourcePlaylistID: sourcePlaylistID,
		state:            "pending",
		createdAt:        now,
		updatedAt:        now,
	}
}

func (m *MigrationRun) ID() string                 { return m.id }
func (m *MigrationRun) SourcePlaylistID() string   { return m.sourcePlaylistID }
func (m *MigrationRun) TargetPlaylistID() string   { return m.targetPlaylistID }
func (m *MigrationRun) TargetPlaylistName() string { return m.targetPlaylistName }
func (m *MigrationRun) State() string              { return m.state }
func (m *MigrationRun) Matched() int               { return m.matched }
func (m *MigrationRun) Unmatched() int             { return m.unmatched }
func (m *MigrationRun) Skipped() int               { return m.skipped }
func (m *MigrationRun) FailureReason() string      { return m.failureReason }
func (m *MigrationRun) CreatedAt() time.Time       { return m.createdAt }
func (m *MigrationRun) UpdatedAt() time.Time       { return m.updatedAt }

func (m *MigrationRun) SetID(id string)                   { m.id = id }
func (m *MigrationRun) SetTargetPlaylistID(id string)     { m.targetPlaylistID = id }
func (m *MigrationRun) SetTargetPlaylistName(name string) { m.targetPlaylistName = name }
func (m *MigrationRun) SetState(state string)             { m.state = state }
func (m *MigrationRun) SetFailureReason(reason string)    { m.failureReason = reason }
func (m *MigrationRun) SetUpdatedAt(t time.Time)          { m.updatedAt = t }
func (m *MigrationRun) SetCreatedAt(t time.Time)          { m.createdAt = t }

// SetCounts records final match tallies for the run
func (m *MigrationRun) SetCounts(matched, unmatched, skipped int) {
	m.matched = matched
	m.unmatched = unmatched
	m.skipped = skipped
}

// Validate checks required fields and count invariants
func (m *MigrationRun) Validate() error {
	if m.sourcePlaylistID == "" {
		return fmt.Errorf("source playlist id is required")
	}
	if m.state == "" {
		return fmt.Errorf("state is required")
	}
	if m.matched < 0 || m.unmatched < 0 || m.skipped < 0 {
		return fmt.Errorf("track counts cannot be negative")
	}
	return nil
}

// OutcomeRow is a per-track resolution result attached to a run.
// Rows are written with their run and read back in position order.
type OutcomeRow struct {
	RunID      string
	Position   int
	SourceID   string
	Title      string
	Artist     string
	Status     string
	TargetID   string
	Confidence float64
	Reason     string
}
