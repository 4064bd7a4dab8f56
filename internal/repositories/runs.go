package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ncx/internal/models"
	"github.com/desertthunder/ncx/internal/shared"
)

// RunRepository implements models.Repository[*models.MigrationRun] for
// migration history tracking. Outcome rows are written and read with
// their parent run.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new migration run into the database, generating an ID when absent
func (r *RunRepository) Create(run *models.MigrationRun) error {
	if run.ID() == "" {
		run.SetID(shared.GenerateID())
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO migration_runs (
			id, source_playlist_id, target_playlist_id, target_playlist_name,
			state, matched, unmatched, skipped, failure_reason,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var targetPlaylistID any = run.TargetPlaylistID()
	if targetPlaylistID == "" {
		targetPlaylistID = nil
	}

	var failureReason any = run.FailureReason()
	if failureReason == "" {
		failureReason = nil
	}

	_, err := r.db.Exec(query,
		run.ID(),
		run.SourcePlaylistID(),
		targetPlaylistID,
		run.TargetPlaylistName(),
		run.State(),
		run.Matched(),
		run.Unmatched(),
		run.Skipped(),
		failureReason,
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert migration run: %w", err)
	}

	return nil
}

// Get retrieves a migration run by ID
func (r *RunRepository) Get(id string) (*models.MigrationRun, error) {
	query := `
		SELECT id, source_playlist_id, target_playlist_id, target_playlist_name,
			state, matched, unmatched, skipped, failure_reason,
			created_at, updated_at
		FROM migration_runs
		WHERE id = ?
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing migration run in the database
func (r *RunRepository) Update(run *models.MigrationRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE migration_runs
		SET target_playlist_id = ?, target_playlist_name = ?, state = ?,
			matched = ?, unmatched = ?, skipped = ?, failure_reason = ?,
			updated_at = ?
		WHERE id = ?
	`

	var targetPlaylistID any = run.TargetPlaylistID()
	if targetPlaylistID == "" {
		targetPlaylistID = nil
	}

	var failureReason any = run.FailureReason()
	if failureReason == "" {
		failureReason = nil
	}

	result, err := r.db.Exec(query,
		targetPlaylistID,
		run.TargetPlaylistName(),
		run.State(),
		run.Matched(),
		run.Unmatched(),
		run.Skipped(),
		failureReason,
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update migration run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("migration run not found: %s", run.ID())
	}

	return nil
}

// Delete removes a migration run and its outcome rows
func (r *RunRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM migration_outcomes WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete outcome rows: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM migration_runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete migration run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// List retrieves migration runs matching the given criteria, newest first.
// Supported criteria keys: state, source_playlist_id.
func (r *RunRepository) List(criteria map[string]any) ([]*models.MigrationRun, error) {
	query := `
		SELECT id, source_playlist_id, target_playlist_id, target_playlist_name,
			state, matched, unmatched, skipped, failure_reason,
			created_at, updated_at
		FROM migration_runs
	`

	var args []any
	if state, ok := criteria["state"]; ok {
		query += " WHERE state = ?"
		args = append(args, state)
	} else if sourceID, ok := criteria["source_playlist_id"]; ok {
		query += " WHERE source_playlist_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list migration runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.MigrationRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Clear removes all migration runs and outcome rows, returning the
// number of runs deleted.
func (r *RunRepository) Clear() (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM migration_outcomes"); err != nil {
		return 0, fmt.Errorf("failed to clear outcome rows: %w", err)
	}

	result, err := tx.Exec("DELETE FROM migration_runs")
	if err != nil {
		return 0, fmt.Errorf("failed to clear migration runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit clear: %w", err)
	}
	return int(deleted), nil
}

// SaveOutcomes replaces the outcome rows for a run
func (r *RunRepository) SaveOutcomes(runID string, outcomes []models.OutcomeRow) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM migration_outcomes WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear previous outcome rows: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO migration_outcomes (
			run_id, position, source_id, title, artist, status,
			target_id, confidence, reason
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		var targetID any = o.TargetID
		if targetID == "" {
			targetID = nil
		}
		var reason any = o.Reason
		if reason == "" {
			reason = nil
		}

		if _, err := stmt.Exec(runID, o.Position, o.SourceID, o.Title, o.Artist, o.Status, targetID, o.Confidence, reason); err != nil {
			return fmt.Errorf("failed to insert outcome row %d: %w", o.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outcome rows: %w", err)
	}
	return nil
}

// Outcomes retrieves the outcome rows for a run in position order
func (r *RunRepository) Outcomes(runID string) ([]models.OutcomeRow, error) {
	query := `
		SELECT run_id, position, source_id, title, artist, status,
			target_id, confidence, reason
		FROM migration_outcomes
		WHERE run_id = ?
		ORDER BY position
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcome rows: %w", err)
	}
	defer rows.Close()

	var outcomes []models.OutcomeRow
	for rows.Next() {
		var o models.OutcomeRow
		var targetID, reason sql.NullString
		if err := rows.Scan(&o.RunID, &o.Position, &o.SourceID, &o.Title, &o.Artist, &o.Status, &targetID, &o.Confidence, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		o.TargetID = targetID.String
		o.Reason = reason.String
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *RunRepository) scanOne(row *sql.Row) (*models.MigrationRun, error) {
	run, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("migration run not found")
	}
	return run, err
}

func (r *RunRepository) scanRow(row scanner) (*models.MigrationRun, error) {
	var (
		id, sourcePlaylistID, targetPlaylistName, state string
		targetPlaylistID, failureReason                 sql.NullString
		matched, unmatched, skipped                     int
		createdAt, updatedAt                            time.Time
	)

	err := row.Scan(&id, &sourcePlaylistID, &targetPlaylistID, &targetPlaylistName,
		&state, &matched, &unmatched, &skipped, &failureReason, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	run := models.NewMigrationRun(sourcePlaylistID)
	run.SetID(id)
	run.SetTargetPlaylistID(targetPlaylistID.String)
	run.SetTargetPlaylistName(targetPlaylistName)
	run.SetState(state)
	run.SetCounts(matched, unmatched, skipped)
	run.SetFailureReason(failureReason.String)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	return run, nil
}
