package repository

import (
	"context"
	"database/sql"

	"github.com/stagehand/showcall/internal/model"
)

// ShowCallLogRepo provides access to the append-only show-call log.
// Entries are only ever inserted, and only inside the transaction that
// commits the state change they describe, so the log needs no locking
// and can never disagree with the cue and runsheet tables.
//
// Schema:
//   show_call_log(id, runsheet_id, cue_id NULL,
//                 action ENUM('GO','STANDBY','SKIP','COMPLETE',
//                             'PAUSE','RESUME','RESET','NOTE'),
//                 actor_id, actor_name, notes TEXT NULL, created_at)
type ShowCallLogRepo struct {
	db *sql.DB
}

// NewShowCallLogRepo returns a new ShowCallLogRepo bound to the given database.
func NewShowCallLogRepo(db *sql.DB) *ShowCallLogRepo { return &ShowCallLogRepo{db: db} }

// AppendTx inserts one log entry within the scope of an existing
// transaction and populates the generated ID and creation time.
func (r *ShowCallLogRepo) AppendTx(ctx context.Context, tx *sql.Tx, e *model.ShowCallLogEntry) error {
	const q = `INSERT INTO show_call_log (runsheet_id, cue_id, action, actor_id, actor_name, notes)
               VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		e.RunsheetID, nullUint(e.CueID), e.Action, e.ActorID, e.ActorName, nullString(e.Notes))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	const sel = `SELECT created_at FROM show_call_log WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, e.ID).Scan(&e.CreatedAt)
}

// ListRecent returns the newest entries for a runsheet in reverse
// chronological order, bounded by limit.
func (r *ShowCallLogRepo) ListRecent(ctx context.Context, runsheetID uint64, limit int) ([]model.ShowCallLogEntry, error) {
	const q = `SELECT id, runsheet_id, cue_id, action, actor_id, actor_name, notes, created_at
               FROM show_call_log
               WHERE runsheet_id = ?
               ORDER BY id DESC
               LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, runsheetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.ShowCallLogEntry, 0, limit)
	for rows.Next() {
		var e model.ShowCallLogEntry
		var cueID sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(
			&e.ID, &e.RunsheetID, &cueID, &e.Action,
			&e.ActorID, &e.ActorName, &notes, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if cueID.Valid {
			id := uint64(cueID.Int64)
			e.CueID = &id
		}
		if notes.Valid {
			n := notes.String
			e.Notes = &n
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func nullUint(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
