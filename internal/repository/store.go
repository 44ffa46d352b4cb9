package repository

import (
	"context"
	"database/sql"

	"github.com/stagehand/showcall/internal/coordinator"
	"github.com/stagehand/showcall/internal/model"
)

// Store is the MySQL-backed implementation of the coordinator's
// transactional persistence surface.  Each Transact call wraps the
// given function in one sql.Tx so a state change and its audit entry
// commit as a single unit; any error rolls everything back.
type Store struct {
	db        *sql.DB
	runsheets *RunsheetRepo
	cues      *CueRepo
	log       *ShowCallLogRepo
}

// NewStore builds a Store over the shared repositories.
func NewStore(db *sql.DB, runsheets *RunsheetRepo, cues *CueRepo, log *ShowCallLogRepo) *Store {
	return &Store{db: db, runsheets: runsheets, cues: cues, log: log}
}

// Transact opens a transaction, runs fn against it and commits when fn
// succeeds.  On error the transaction is rolled back and the error is
// returned unchanged so callers can match sentinel values.
func (s *Store) Transact(ctx context.Context, fn func(tx coordinator.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{store: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// storeTx adapts the repositories to the coordinator.Tx interface for
// the lifetime of one transaction.
type storeTx struct {
	store *Store
	tx    *sql.Tx
}

func (t *storeTx) RunsheetForCall(ctx context.Context, id uint64) (*model.Runsheet, error) {
	return t.store.runsheets.GetByIDTx(ctx, t.tx, id)
}

func (t *storeTx) CueForCall(ctx context.Context, runsheetID, cueID uint64) (*model.Cue, error) {
	return t.store.cues.GetByIDTx(ctx, t.tx, runsheetID, cueID)
}

func (t *storeTx) SaveRunsheet(ctx context.Context, rs *model.Runsheet) error {
	return t.store.runsheets.UpdateCallTx(ctx, t.tx, rs)
}

func (t *storeTx) SaveCue(ctx context.Context, cue *model.Cue) error {
	return t.store.cues.UpdateCallTx(ctx, t.tx, cue)
}

func (t *storeTx) AppendLog(ctx context.Context, e *model.ShowCallLogEntry) error {
	return t.store.log.AppendTx(ctx, t.tx, e)
}
