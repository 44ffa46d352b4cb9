// Package coordinator serializes concurrent show-call actions, applies
// the state machine against persisted state, commits the transition
// together with its audit entry as one atomic unit and publishes the
// committed change to observers.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stagehand/showcall/internal/broadcast"
	"github.com/stagehand/showcall/internal/model"
	"github.com/stagehand/showcall/internal/showcall"
)

// Actor identifies the operator behind a mutating call.  It is passed
// explicitly with every request; the coordinator has no notion of an
// ambient current user.
type Actor struct {
	ID   string
	Name string
}

// CallRequest is one show-call action.  CueID is nil for
// runsheet-level actions (go-live, finish, pause, resume, note).
type CallRequest struct {
	RunsheetID uint64
	CueID      *uint64
	Action     showcall.Action
	Notes      string
	Actor      Actor
}

// CallResult is the committed outcome of a call: the post-transition
// runsheet, the post-transition cue when the action targeted one, and
// the audit entry written with them.
type CallResult struct {
	Runsheet *model.Runsheet
	Cue      *model.Cue
	Entry    *model.ShowCallLogEntry
}

// Tx is the per-transaction persistence surface the coordinator needs.
// Reads take row locks so the coordinator always validates against the
// current committed state, and all writes of one call either commit
// together or not at all.
type Tx interface {
	RunsheetForCall(ctx context.Context, id uint64) (*model.Runsheet, error)
	CueForCall(ctx context.Context, runsheetID, cueID uint64) (*model.Cue, error)
	SaveRunsheet(ctx context.Context, rs *model.Runsheet) error
	SaveCue(ctx context.Context, cue *model.Cue) error
	AppendLog(ctx context.Context, e *model.ShowCallLogEntry) error
}

// Store runs a function within one atomic transaction.  When fn
// returns an error nothing it did is observable.
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// Coordinator is the single entry point for live mutations of cues and
// runsheets.  Actions on the same cue are serialized by an in-process
// keyed mutex (the row lock inside the transaction covers other
// processes); actions on different cues of the same runsheet proceed
// in parallel.
type Coordinator struct {
	store Store
	hub   *broadcast.Hub

	// Invalidate, when set, is called after every commit with the
	// runsheet ID so cached schedule reads are refreshed.
	Invalidate func(runsheetID uint64)
	// Mirror, when set, receives every committed result for
	// best-effort propagation outside the process (message queue).
	Mirror func(ctx context.Context, res CallResult)
	// Now is the clock used for transition timestamps.
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a Coordinator using the given store and broadcast hub.
func New(store Store, hub *broadcast.Hub) *Coordinator {
	return &Coordinator{
		store: store,
		hub:   hub,
		Now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[string]*sync.Mutex),
	}
}

// Call validates and applies one show-call action.  Illegal transitions
// return showcall.ErrIllegalTransition with nothing persisted and
// nothing published.  On success the transition and its audit entry are
// committed atomically, then the change is broadcast, caches are
// invalidated and the mirror is notified.
func (c *Coordinator) Call(ctx context.Context, req CallRequest) (CallResult, error) {
	lock := c.lockFor(req)
	lock.Lock()
	defer lock.Unlock()

	now := c.Now()
	var res CallResult
	err := c.store.Transact(ctx, func(tx Tx) error {
		rs, err := tx.RunsheetForCall(ctx, req.RunsheetID)
		if err != nil {
			return err
		}
		if req.CueID == nil {
			return c.applyRunsheet(ctx, tx, rs, req, now, &res)
		}
		return c.applyCue(ctx, tx, rs, req, now, &res)
	})
	if err != nil {
		return CallResult{}, err
	}

	c.publish(ctx, res, now)
	return res, nil
}

func (c *Coordinator) applyRunsheet(ctx context.Context, tx Tx, rs *model.Runsheet, req CallRequest, now time.Time, res *CallResult) error {
	next, err := showcall.ApplyRunsheet(*rs, req.Action, now)
	if err != nil {
		return err
	}
	if req.Action != showcall.ActionNote {
		if err := tx.SaveRunsheet(ctx, &next); err != nil {
			return err
		}
	}
	entry := c.logEntry(req, now)
	if err := tx.AppendLog(ctx, entry); err != nil {
		return err
	}
	res.Runsheet = &next
	res.Entry = entry
	return nil
}

func (c *Coordinator) applyCue(ctx context.Context, tx Tx, rs *model.Runsheet, req CallRequest, now time.Time, res *CallResult) error {
	if rs.Status == showcall.RunsheetCompleted {
		return fmt.Errorf("%w: cue call on completed runsheet", showcall.ErrIllegalTransition)
	}
	cue, err := tx.CueForCall(ctx, req.RunsheetID, *req.CueID)
	if err != nil {
		return err
	}
	next, err := showcall.Apply(*cue, req.Action, now)
	if err != nil {
		return err
	}
	if req.Action != showcall.ActionNote {
		if err := tx.SaveCue(ctx, &next); err != nil {
			return err
		}
	}
	entry := c.logEntry(req, now)
	if err := tx.AppendLog(ctx, entry); err != nil {
		return err
	}
	res.Runsheet = rs
	res.Cue = &next
	res.Entry = entry
	return nil
}

func (c *Coordinator) logEntry(req CallRequest, now time.Time) *model.ShowCallLogEntry {
	entry := &model.ShowCallLogEntry{
		RunsheetID: req.RunsheetID,
		CueID:      req.CueID,
		Action:     string(req.Action),
		ActorID:    req.Actor.ID,
		ActorName:  req.Actor.Name,
		CreatedAt:  now,
	}
	if req.Notes != "" {
		n := req.Notes
		entry.Notes = &n
	}
	return entry
}

// publish runs after the transaction committed.  Broadcast delivery is
// decoupled from persistence: a failure here never corrupts server
// state, the persisted records stay authoritative.
func (c *Coordinator) publish(ctx context.Context, res CallResult, now time.Time) {
	change := broadcast.Change{
		Action: res.Entry.Action,
		At:     now,
	}
	if res.Cue != nil {
		change.CueID = &res.Cue.ID
		change.Status = res.Cue.Status
	} else if res.Runsheet != nil {
		change.Status = res.Runsheet.Status
	}
	c.hub.Publish(res.Entry.RunsheetID, change)
	if c.Invalidate != nil {
		c.Invalidate(res.Entry.RunsheetID)
	}
	if c.Mirror != nil {
		c.Mirror(ctx, res)
	}
}

// lockFor returns the serialization mutex for the request.  Cue actions
// lock per cue; runsheet-level actions lock per runsheet.  The map only
// ever holds one mutex per key, bounded by the number of cues called.
func (c *Coordinator) lockFor(req CallRequest) *sync.Mutex {
	key := fmt.Sprintf("rs/%d", req.RunsheetID)
	if req.CueID != nil {
		key = fmt.Sprintf("rs/%d/cue/%d", req.RunsheetID, *req.CueID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}
