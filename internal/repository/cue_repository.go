package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/stagehand/showcall/internal/model"
)

// CueRepo provides persistence for cues.  Sequence numbers are unique
// per runsheet, enforced by a composite unique key; the insert maps a
// collision to ErrSequenceTaken.  The scheduled_time column caches the
// derived schedule so list reads do not have to recompute it, but the
// time model remains the source of truth and recomputation is
// idempotent.
//
// Schema:
//   cues(id, runsheet_id, sequence, title, duration_seconds,
//        scheduled_time CHAR(8) NULL, actual_start_time DATETIME NULL,
//        actual_end_time DATETIME NULL, is_locked TINYINT(1),
//        status ENUM('PENDING','STANDBY','GO','COMPLETE','SKIPPED'),
//        created_at, updated_at,
//        UNIQUE KEY (runsheet_id, sequence))
type CueRepo struct {
	db *sql.DB
}

// NewCueRepo returns a new CueRepo bound to the given database.
func NewCueRepo(db *sql.DB) *CueRepo { return &CueRepo{db: db} }

const cueColumns = `id, runsheet_id, sequence, title, duration_seconds,
       scheduled_time, actual_start_time, actual_end_time, is_locked,
       status, created_at, updated_at`

// CreateTx inserts a new cue within the scope of an existing
// transaction and populates the generated ID on the record.  A
// duplicate sequence for the runsheet returns ErrSequenceTaken.
func (r *CueRepo) CreateTx(ctx context.Context, tx *sql.Tx, cue *model.Cue) error {
	const q = `INSERT INTO cues (runsheet_id, sequence, title, duration_seconds,
                                 scheduled_time, is_locked, status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		cue.RunsheetID, cue.Sequence, cue.Title, cue.DurationSeconds,
		nullString(cue.ScheduledTime), cue.IsLocked, cue.Status)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrSequenceTaken
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	cue.ID = uint64(id)
	return nil
}

// ListByRunsheet returns all cues of a runsheet ordered by sequence.
// Ties on sequence (a caller-side integrity violation the engine
// tolerates) fall back to insertion order via the id column.
func (r *CueRepo) ListByRunsheet(ctx context.Context, runsheetID uint64) ([]model.Cue, error) {
	const q = `SELECT ` + cueColumns + ` FROM cues
               WHERE runsheet_id = ? ORDER BY sequence, id`
	rows, err := r.db.QueryContext(ctx, q, runsheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cues := make([]model.Cue, 0)
	for rows.Next() {
		cue, err := scanCue(rows)
		if err != nil {
			return nil, err
		}
		cues = append(cues, *cue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cues, nil
}

// ListByRunsheetTx is ListByRunsheet inside a transaction, used when a
// schedule recomputation must see the cue list it is about to update.
func (r *CueRepo) ListByRunsheetTx(ctx context.Context, tx *sql.Tx, runsheetID uint64) ([]model.Cue, error) {
	const q = `SELECT ` + cueColumns + ` FROM cues
               WHERE runsheet_id = ? ORDER BY sequence, id`
	rows, err := tx.QueryContext(ctx, q, runsheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cues := make([]model.Cue, 0)
	for rows.Next() {
		cue, err := scanCue(rows)
		if err != nil {
			return nil, err
		}
		cues = append(cues, *cue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cues, nil
}

// GetByIDTx loads one cue of a runsheet inside a transaction with a
// row lock.  Concurrent show-call actions on the same cue serialize on
// this lock in addition to the coordinator's in-process mutex.
// ErrCueNotFound is returned when the cue does not exist or belongs to
// a different runsheet.
func (r *CueRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, runsheetID, cueID uint64) (*model.Cue, error) {
	const q = `SELECT ` + cueColumns + ` FROM cues
               WHERE id = ? AND runsheet_id = ? FOR UPDATE`
	cue, err := scanCue(tx.QueryRowContext(ctx, q, cueID, runsheetID))
	if err == sql.ErrNoRows {
		return nil, ErrCueNotFound
	}
	return cue, err
}

// UpdateCallTx persists the show-call relevant fields of a cue (status
// and actual timestamps) within a transaction.  The matching audit
// entry must be appended in the same transaction by the caller.
func (r *CueRepo) UpdateCallTx(ctx context.Context, tx *sql.Tx, cue *model.Cue) error {
	const q = `UPDATE cues
               SET status = ?, actual_start_time = ?, actual_end_time = ?
               WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		cue.Status, nullTime(cue.ActualStartTime), nullTime(cue.ActualEndTime), cue.ID)
	return err
}

// UpdateScheduledTimeTx writes the derived scheduled time of one cue.
// Called after a ripple recomputation; running it again with the same
// inputs is a no-op.
func (r *CueRepo) UpdateScheduledTimeTx(ctx context.Context, tx *sql.Tx, cueID uint64, scheduled string) error {
	const q = `UPDATE cues SET scheduled_time = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, scheduled, cueID)
	return err
}

func scanCue(row rowScanner) (*model.Cue, error) {
	var cue model.Cue
	var scheduled sql.NullString
	var start, end sql.NullTime
	err := row.Scan(
		&cue.ID, &cue.RunsheetID, &cue.Sequence, &cue.Title, &cue.DurationSeconds,
		&scheduled, &start, &end, &cue.IsLocked,
		&cue.Status, &cue.CreatedAt, &cue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if scheduled.Valid {
		s := scheduled.String
		cue.ScheduledTime = &s
	}
	if start.Valid {
		t := start.Time.UTC()
		cue.ActualStartTime = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		cue.ActualEndTime = &t
	}
	return &cue, nil
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
