package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/stagehand/showcall/internal/model"
)

// RunsheetRepo provides persistence for runsheets.  A runsheet is the
// root aggregate of the show-call engine: cues and log entries always
// hang off one.  All timestamp columns are stored in UTC; the
// scheduled_start column holds an HH:MM:SS string within the
// production day.
//
// Schema:
//   runsheets(id, event_ref, stage_ref, name,
//             status ENUM('DRAFT','LIVE','COMPLETED'),
//             paused TINYINT(1), scheduled_start CHAR(8),
//             actual_start DATETIME NULL, actual_end DATETIME NULL,
//             created_at, updated_at)
type RunsheetRepo struct {
	db *sql.DB
}

// NewRunsheetRepo returns a new RunsheetRepo bound to the given database.
func NewRunsheetRepo(db *sql.DB) *RunsheetRepo { return &RunsheetRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning several repositories.
func (r *RunsheetRepo) DB() *sql.DB { return r.db }

const runsheetColumns = `id, event_ref, stage_ref, name, status, paused,
       scheduled_start, actual_start, actual_end, created_at, updated_at`

// Create inserts a new runsheet in DRAFT status and populates the
// generated ID and timestamps on the provided record.
func (r *RunsheetRepo) Create(ctx context.Context, rs *model.Runsheet) error {
	const q = `INSERT INTO runsheets (event_ref, stage_ref, name, status, paused, scheduled_start)
               VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		rs.EventRef, rs.StageRef, rs.Name, rs.Status, rs.Paused, rs.ScheduledStart)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rs.ID = uint64(id)
	// Query back the full row to populate defaults and timestamps.
	fresh, err := r.GetByID(ctx, rs.ID)
	if err != nil {
		return err
	}
	*rs = *fresh
	return nil
}

// GetByID returns a single runsheet.  ErrRunsheetNotFound is returned
// when no row matches.
func (r *RunsheetRepo) GetByID(ctx context.Context, id uint64) (*model.Runsheet, error) {
	const q = `SELECT ` + runsheetColumns + ` FROM runsheets WHERE id = ?`
	return scanRunsheet(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDTx loads a runsheet inside a transaction with a row lock so
// that concurrent show-call actions observe a consistent state.
func (r *RunsheetRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Runsheet, error) {
	const q = `SELECT ` + runsheetColumns + ` FROM runsheets WHERE id = ? FOR UPDATE`
	return scanRunsheet(tx.QueryRowContext(ctx, q, id))
}

// UpdateCallTx persists the show-call relevant fields of a runsheet
// (status, paused flag and actual timestamps) within a transaction.
// The audit entry for the same action must be appended in the same
// transaction by the caller.
func (r *RunsheetRepo) UpdateCallTx(ctx context.Context, tx *sql.Tx, rs *model.Runsheet) error {
	const q = `UPDATE runsheets
               SET status = ?, paused = ?, actual_start = ?, actual_end = ?
               WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		rs.Status, rs.Paused, nullTime(rs.ActualStart), nullTime(rs.ActualEnd), rs.ID)
	return err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRunsheet(row rowScanner) (*model.Runsheet, error) {
	var rs model.Runsheet
	var actualStart, actualEnd sql.NullTime
	err := row.Scan(
		&rs.ID, &rs.EventRef, &rs.StageRef, &rs.Name, &rs.Status, &rs.Paused,
		&rs.ScheduledStart, &actualStart, &actualEnd, &rs.CreatedAt, &rs.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRunsheetNotFound
	}
	if err != nil {
		return nil, err
	}
	if actualStart.Valid {
		t := actualStart.Time.UTC()
		rs.ActualStart = &t
	}
	if actualEnd.Valid {
		t := actualEnd.Time.UTC()
		rs.ActualEnd = &t
	}
	return &rs, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
