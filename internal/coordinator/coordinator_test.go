package coordinator_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stagehand/showcall/internal/broadcast"
	"github.com/stagehand/showcall/internal/coordinator"
	"github.com/stagehand/showcall/internal/model"
	"github.com/stagehand/showcall/internal/repository"
	"github.com/stagehand/showcall/internal/showcall"
)

var base = time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)

var crew = coordinator.Actor{ID: "op-1", Name: "Stage Manager"}

// memStore is an in-memory coordinator.Store with transaction
// semantics: a failed function leaves nothing behind, a successful one
// commits all staged writes at once.
type memStore struct {
	mu        sync.Mutex
	runsheets map[uint64]model.Runsheet
	cues      map[uint64]model.Cue
	log       []model.ShowCallLogEntry
	nextLogID uint64
}

func newMemStore(rs model.Runsheet, cues ...model.Cue) *memStore {
	s := &memStore{
		runsheets: map[uint64]model.Runsheet{rs.ID: rs},
		cues:      make(map[uint64]model.Cue, len(cues)),
	}
	for _, cue := range cues {
		s.cues[cue.ID] = cue
	}
	return s
}

func (s *memStore) Transact(_ context.Context, fn func(tx coordinator.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{
		runsheets: make(map[uint64]model.Runsheet, len(s.runsheets)),
		cues:      make(map[uint64]model.Cue, len(s.cues)),
		log:       append([]model.ShowCallLogEntry(nil), s.log...),
		nextLogID: s.nextLogID,
	}
	for id, rs := range s.runsheets {
		tx.runsheets[id] = rs
	}
	for id, cue := range s.cues {
		tx.cues[id] = cue
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.runsheets = tx.runsheets
	s.cues = tx.cues
	s.log = tx.log
	s.nextLogID = tx.nextLogID
	return nil
}

func (s *memStore) runsheet(id uint64) model.Runsheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runsheets[id]
}

func (s *memStore) cue(id uint64) model.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cues[id]
}

func (s *memStore) entries() []model.ShowCallLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ShowCallLogEntry(nil), s.log...)
}

type memTx struct {
	runsheets map[uint64]model.Runsheet
	cues      map[uint64]model.Cue
	log       []model.ShowCallLogEntry
	nextLogID uint64
}

func (t *memTx) RunsheetForCall(_ context.Context, id uint64) (*model.Runsheet, error) {
	rs, ok := t.runsheets[id]
	if !ok {
		return nil, repository.ErrRunsheetNotFound
	}
	return &rs, nil
}

func (t *memTx) CueForCall(_ context.Context, runsheetID, cueID uint64) (*model.Cue, error) {
	cue, ok := t.cues[cueID]
	if !ok || cue.RunsheetID != runsheetID {
		return nil, repository.ErrCueNotFound
	}
	return &cue, nil
}

func (t *memTx) SaveRunsheet(_ context.Context, rs *model.Runsheet) error {
	t.runsheets[rs.ID] = *rs
	return nil
}

func (t *memTx) SaveCue(_ context.Context, cue *model.Cue) error {
	t.cues[cue.ID] = *cue
	return nil
}

func (t *memTx) AppendLog(_ context.Context, e *model.ShowCallLogEntry) error {
	t.nextLogID++
	e.ID = t.nextLogID
	t.log = append(t.log, *e)
	return nil
}

func liveRunsheet() model.Runsheet {
	start := base
	return model.Runsheet{
		ID: 1, Name: "Main Stage Friday", Status: showcall.RunsheetLive,
		ScheduledStart: "19:00:00", ActualStart: &start,
	}
}

func pendingCue(id uint64, seq int) model.Cue {
	return model.Cue{ID: id, RunsheetID: 1, Sequence: seq, Status: showcall.StatusPending}
}

// newCoordinator wires a coordinator with a deterministic clock that
// advances one second per transition.
func newCoordinator(store *memStore, hub *broadcast.Hub) *coordinator.Coordinator {
	coord := coordinator.New(store, hub)
	var ticks int64
	coord.Now = func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&ticks, 1)-1) * time.Second)
	}
	return coord
}

func cueCall(cueID uint64, action showcall.Action) coordinator.CallRequest {
	id := cueID
	return coordinator.CallRequest{RunsheetID: 1, CueID: &id, Action: action, Actor: crew}
}

func TestGoLiveCommitsTransitionAuditAndBroadcast(t *testing.T) {
	t.Parallel()

	store := newMemStore(model.Runsheet{ID: 1, Name: "Main Stage Friday", Status: showcall.RunsheetDraft})
	hub := broadcast.NewHub()
	coord := newCoordinator(store, hub)
	sub := hub.Subscribe(1)
	defer hub.Unsubscribe(sub)

	res, err := coord.Call(context.Background(), coordinator.CallRequest{
		RunsheetID: 1, Action: showcall.ActionGo, Actor: crew,
	})
	require.NoError(t, err)
	require.Equal(t, showcall.RunsheetLive, res.Runsheet.Status)
	require.NotNil(t, res.Runsheet.ActualStart)

	rs := store.runsheet(1)
	require.Equal(t, showcall.RunsheetLive, rs.Status)

	entries := store.entries()
	require.Len(t, entries, 1)
	require.Equal(t, "GO", entries[0].Action)
	require.Nil(t, entries[0].CueID)
	require.Equal(t, crew.ID, entries[0].ActorID)
	require.Equal(t, crew.Name, entries[0].ActorName)

	change := <-sub.Changes()
	require.Equal(t, uint64(1), change.Seq)
	require.Equal(t, "GO", change.Action)
	require.Equal(t, showcall.RunsheetLive, change.Status)
	require.Nil(t, change.CueID)
}

func TestCueFlowPublishesInCommitOrder(t *testing.T) {
	t.Parallel()

	store := newMemStore(liveRunsheet(), pendingCue(10, 1))
	hub := broadcast.NewHub()
	coord := newCoordinator(store, hub)
	sub := hub.Subscribe(1)
	defer hub.Unsubscribe(sub)

	ctx := context.Background()
	for _, action := range []showcall.Action{showcall.ActionStandby, showcall.ActionGo, showcall.ActionComplete} {
		_, err := coord.Call(ctx, cueCall(10, action))
		require.NoError(t, err)
	}

	cue := store.cue(10)
	require.Equal(t, showcall.StatusComplete, cue.Status)
	require.NotNil(t, cue.ActualStartTime)
	require.NotNil(t, cue.ActualEndTime)
	require.True(t, cue.ActualEndTime.After(*cue.ActualStartTime))
	require.Len(t, store.entries(), 3)

	for i, want := range []string{"STANDBY", "GO", "COMPLETE"} {
		change := <-sub.Changes()
		require.Equal(t, uint64(i+1), change.Seq)
		require.Equal(t, want, change.Action)
		require.NotNil(t, change.CueID)
		require.Equal(t, uint64(10), *change.CueID)
	}
}

func TestConcurrentGoOnDifferentCuesBothSucceed(t *testing.T) {
	t.Parallel()

	store := newMemStore(liveRunsheet(), pendingCue(10, 1), pendingCue(11, 2))
	coord := newCoordinator(store, broadcast.NewHub())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, cueID := range []uint64{10, 11} {
		wg.Add(1)
		go func(i int, cueID uint64) {
			defer wg.Done()
			_, errs[i] = coord.Call(context.Background(), cueCall(cueID, showcall.ActionGo))
		}(i, cueID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NotNil(t, store.cue(10).ActualStartTime)
	require.NotNil(t, store.cue(11).ActualStartTime)
	require.Len(t, store.entries(), 2)
}

func TestConcurrentGoOnSameCueStampsOnce(t *testing.T) {
	t.Parallel()

	store := newMemStore(liveRunsheet(), pendingCue(10, 1))
	coord := newCoordinator(store, broadcast.NewHub())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coord.Call(context.Background(), cueCall(10, showcall.ActionGo))
		}(i)
	}
	wg.Wait()

	// Both calls are accepted (retries are expected live), but only the
	// first accepted one stamps the start time: the clock ticks once
	// per call and the stamp carries the first tick.
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	cue := store.cue(10)
	require.Equal(t, showcall.StatusGo, cue.Status)
	require.NotNil(t, cue.ActualStartTime)
	require.Equal(t, base, *cue.ActualStartTime)

	// The duplicate is still audited; the log tells the whole story.
	entries := store.entries()
	require.Len(t, entries, 2)
	require.Equal(t, "GO", entries[0].Action)
	require.Equal(t, "GO", entries[1].Action)
}

func TestIllegalTransitionPersistsAndPublishesNothing(t *testing.T) {
	t.Parallel()

	done := pendingCue(10, 1)
	done.Status = showcall.StatusComplete
	store := newMemStore(liveRunsheet(), done)
	hub := broadcast.NewHub()
	coord := newCoordinator(store, hub)
	sub := hub.Subscribe(1)
	defer hub.Unsubscribe(sub)

	_, err := coord.Call(context.Background(), cueCall(10, showcall.ActionGo))
	require.ErrorIs(t, err, showcall.ErrIllegalTransition)

	require.Empty(t, store.entries())
	require.Equal(t, showcall.StatusComplete, store.cue(10).Status)
	select {
	case change := <-sub.Changes():
		t.Fatalf("rejected action was broadcast: %+v", change)
	default:
	}
}

func TestCueCallOnCompletedRunsheetRejected(t *testing.T) {
	t.Parallel()

	rs := liveRunsheet()
	rs.Status = showcall.RunsheetCompleted
	store := newMemStore(rs, pendingCue(10, 1))
	coord := newCoordinator(store, broadcast.NewHub())

	_, err := coord.Call(context.Background(), cueCall(10, showcall.ActionGo))
	require.ErrorIs(t, err, showcall.ErrIllegalTransition)
	require.Empty(t, store.entries())
}

func TestResetAfterCompleteClearsTimestamps(t *testing.T) {
	t.Parallel()

	store := newMemStore(liveRunsheet(), pendingCue(10, 1))
	coord := newCoordinator(store, broadcast.NewHub())
	ctx := context.Background()

	for _, action := range []showcall.Action{showcall.ActionGo, showcall.ActionComplete} {
		_, err := coord.Call(ctx, cueCall(10, action))
		require.NoError(t, err)
	}
	require.NotNil(t, store.cue(10).ActualEndTime)

	_, err := coord.Call(ctx, cueCall(10, showcall.ActionReset))
	require.NoError(t, err)

	cue := store.cue(10)
	require.Equal(t, showcall.StatusPending, cue.Status)
	require.Nil(t, cue.ActualStartTime)
	require.Nil(t, cue.ActualEndTime)

	// The cue can run again after the reset.
	_, err = coord.Call(ctx, cueCall(10, showcall.ActionGo))
	require.NoError(t, err)
	require.NotNil(t, store.cue(10).ActualStartTime)
}

func TestNoteIsAuditOnly(t *testing.T) {
	t.Parallel()

	store := newMemStore(liveRunsheet(), pendingCue(10, 1))
	hub := broadcast.NewHub()
	coord := newCoordinator(store, hub)
	sub := hub.Subscribe(1)
	defer hub.Unsubscribe(sub)

	before := store.cue(10)
	res, err := coord.Call(context.Background(), coordinator.CallRequest{
		RunsheetID: 1, Action: showcall.ActionNote, Notes: "pyro cue delayed by weather", Actor: crew,
	})
	require.NoError(t, err)
	require.Equal(t, before, store.cue(10))
	require.NotNil(t, res.Entry.Notes)
	require.Equal(t, "pyro cue delayed by weather", *res.Entry.Notes)
	require.Len(t, store.entries(), 1)

	change := <-sub.Changes()
	require.Equal(t, "NOTE", change.Action)
}

func TestPauseResumeAreAudited(t *testing.T) {
	t.Parallel()

	store := newMemStore(liveRunsheet())
	coord := newCoordinator(store, broadcast.NewHub())
	ctx := context.Background()

	_, err := coord.Call(ctx, coordinator.CallRequest{RunsheetID: 1, Action: showcall.ActionPause, Actor: crew})
	require.NoError(t, err)
	require.True(t, store.runsheet(1).Paused)

	_, err = coord.Call(ctx, coordinator.CallRequest{RunsheetID: 1, Action: showcall.ActionResume, Actor: crew})
	require.NoError(t, err)
	require.False(t, store.runsheet(1).Paused)

	entries := store.entries()
	require.Len(t, entries, 2)
	// Reverse insertion order is the repository's concern; here the
	// slice is append-ordered.
	require.Equal(t, "PAUSE", entries[0].Action)
	require.Equal(t, "RESUME", entries[1].Action)
}

func TestUnknownRunsheetAndCue(t *testing.T) {
	t.Parallel()

	store := newMemStore(liveRunsheet(), pendingCue(10, 1))
	coord := newCoordinator(store, broadcast.NewHub())
	ctx := context.Background()

	_, err := coord.Call(ctx, coordinator.CallRequest{RunsheetID: 99, Action: showcall.ActionPause, Actor: crew})
	require.ErrorIs(t, err, repository.ErrRunsheetNotFound)

	_, err = coord.Call(ctx, cueCall(99, showcall.ActionGo))
	require.ErrorIs(t, err, repository.ErrCueNotFound)
	require.Empty(t, store.entries())
}

func TestMirrorAndInvalidateRunAfterCommit(t *testing.T) {
	t.Parallel()

	store := newMemStore(liveRunsheet(), pendingCue(10, 1))
	coord := newCoordinator(store, broadcast.NewHub())

	var invalidated []uint64
	coord.Invalidate = func(runsheetID uint64) { invalidated = append(invalidated, runsheetID) }
	var mirrored []coordinator.CallResult
	coord.Mirror = func(_ context.Context, res coordinator.CallResult) { mirrored = append(mirrored, res) }

	_, err := coord.Call(context.Background(), cueCall(10, showcall.ActionGo))
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, invalidated)
	require.Len(t, mirrored, 1)
	require.Equal(t, "GO", mirrored[0].Entry.Action)

	// A rejected call triggers neither.
	_, err = coord.Call(context.Background(), cueCall(10, showcall.ActionComplete))
	require.NoError(t, err)
	_, err = coord.Call(context.Background(), cueCall(10, showcall.ActionComplete))
	require.ErrorIs(t, err, showcall.ErrIllegalTransition)
	require.Len(t, mirrored, 2)
	require.Equal(t, []uint64{1, 1}, invalidated)
}
