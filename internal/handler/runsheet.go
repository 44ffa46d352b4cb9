package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stagehand/showcall/internal/coordinator"
	"github.com/stagehand/showcall/internal/model"
	"github.com/stagehand/showcall/internal/repository"
	"github.com/stagehand/showcall/internal/schedule"
	"github.com/stagehand/showcall/internal/showcall"
)

// maxLogLimit bounds how many show-call log entries one query returns.
const maxLogLimit = 200

// RunsheetHandler bundles the repositories and the coordinator needed
// to build runsheets and serve their computed schedules.  Build-time
// mutations (create, add cue) go straight to the repositories; every
// live mutation goes through the coordinator.
type RunsheetHandler struct {
	RunsheetRepo *repository.RunsheetRepo
	CueRepo      *repository.CueRepo
	LogRepo      *repository.ShowCallLogRepo
	Coord        *coordinator.Coordinator
	LogLimit     int // default page size for log queries
}

// NewRunsheetHandler constructs a RunsheetHandler and panics if any
// dependency is nil.
func NewRunsheetHandler(runsheetRepo *repository.RunsheetRepo, cueRepo *repository.CueRepo, logRepo *repository.ShowCallLogRepo, coord *coordinator.Coordinator, logLimit int) *RunsheetHandler {
	if runsheetRepo == nil || cueRepo == nil || logRepo == nil || coord == nil {
		panic("nil dependency passed to NewRunsheetHandler")
	}
	if logLimit <= 0 {
		logLimit = 50
	}
	return &RunsheetHandler{
		RunsheetRepo: runsheetRepo,
		CueRepo:      cueRepo,
		LogRepo:      logRepo,
		Coord:        coord,
		LogLimit:     logLimit,
	}
}

// CreateRunsheet handles POST /v1/runsheets.  Runsheets are created in
// DRAFT status; cues are added afterwards while still in DRAFT.
func (h *RunsheetHandler) CreateRunsheet(c echo.Context) error {
	if _, err := getActor(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		EventRef       string `json:"event_ref"`
		StageRef       string `json:"stage_ref"`
		Name           string `json:"name"`
		ScheduledStart string `json:"scheduled_start"` // HH:MM:SS
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	// Normalize through the clock type: malformed input degrades to
	// 00:00:00 instead of failing, matching the time model's contract.
	start := schedule.ParseClock(body.ScheduledStart).String()
	rs := &model.Runsheet{
		EventRef:       strings.TrimSpace(body.EventRef),
		StageRef:       strings.TrimSpace(body.StageRef),
		Name:           name,
		Status:         showcall.RunsheetDraft,
		ScheduledStart: start,
	}
	if err := h.RunsheetRepo.Create(c.Request().Context(), rs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create runsheet"})
	}
	return c.JSON(http.StatusCreated, runsheetJSON(rs))
}

// GetRunsheet handles GET /v1/runsheets/:id and returns the runsheet
// with its cues and the computed schedule merged per cue.
func (h *RunsheetHandler) GetRunsheet(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runsheet id"})
	}
	ctx := c.Request().Context()
	rs, err := h.RunsheetRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRunsheetNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "runsheet not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	cues, err := h.CueRepo.ListByRunsheet(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	entries := schedule.Compute(cueInputs(cues), schedule.ParseClock(rs.ScheduledStart))
	byCue := make(map[uint64]schedule.Entry, len(entries))
	for _, e := range entries {
		byCue[e.CueID] = e
	}
	out := make([]echo.Map, 0, len(cues))
	for i := range cues {
		m := cueJSON(&cues[i])
		if e, ok := byCue[cues[i].ID]; ok {
			m["scheduled_time"] = e.ScheduledTime
			m["end_time"] = e.EndTime
			m["offset_seconds"] = e.OffsetSeconds
		}
		if cues[i].ActualStartTime != nil && cues[i].ActualEndTime != nil {
			seconds, class := schedule.VarianceBetween(cues[i].DurationSeconds, *cues[i].ActualStartTime, *cues[i].ActualEndTime)
			m["variance_seconds"] = seconds
			m["variance"] = class
		}
		out = append(out, m)
	}
	resp := runsheetJSON(rs)
	resp["cues"] = out
	return c.JSON(http.StatusOK, resp)
}

// AddCue handles POST /v1/runsheets/:id/cues.  Cues can only be added
// while the runsheet is in DRAFT; once the show is live the cue list is
// fixed and corrections happen through reset, never deletion.  The
// insert and the ripple recomputation of every cue's scheduled time
// commit in one transaction.
func (h *RunsheetHandler) AddCue(c echo.Context) error {
	if _, err := getActor(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runsheet id"})
	}
	var body struct {
		Sequence        int    `json:"sequence"`
		Title           string `json:"title"`
		DurationSeconds int    `json:"duration_seconds"`
		IsLocked        bool   `json:"is_locked"`
		ScheduledTime   string `json:"scheduled_time"` // required when is_locked
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if body.Sequence <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sequence must be positive"})
	}
	if body.IsLocked && strings.TrimSpace(body.ScheduledTime) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scheduled_time is required for a locked cue"})
	}

	ctx := c.Request().Context()
	rs, err := h.RunsheetRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRunsheetNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "runsheet not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if rs.Status != showcall.RunsheetDraft {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cues can only be added to a draft runsheet"})
	}

	cue := &model.Cue{
		RunsheetID:      id,
		Sequence:        body.Sequence,
		Title:           title,
		DurationSeconds: body.DurationSeconds, // negative values degrade to 0 in the time model
		IsLocked:        body.IsLocked,
		Status:          showcall.StatusPending,
	}
	if body.IsLocked {
		t := schedule.ParseClock(body.ScheduledTime).String()
		cue.ScheduledTime = &t
	}

	tx, err := h.RunsheetRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.CueRepo.CreateTx(ctx, tx, cue); err != nil {
		if errors.Is(err, repository.ErrSequenceTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "sequence already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create cue"})
	}
	// Ripple: recompute the whole schedule and persist the derived
	// times.  Recomputation is idempotent, so a retry after a failed
	// request settles on the same values.
	cues, err := h.CueRepo.ListByRunsheetTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load cues"})
	}
	entries := schedule.Compute(cueInputs(cues), schedule.ParseClock(rs.ScheduledStart))
	for _, e := range entries {
		if err := h.CueRepo.UpdateScheduledTimeTx(ctx, tx, e.CueID, e.ScheduledTime); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update schedule"})
		}
		if e.CueID == cue.ID {
			s := e.ScheduledTime
			cue.ScheduledTime = &s
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, cueJSON(cue))
}

// GoLive handles POST /v1/runsheets/:id/live.  It routes through the
// coordinator so the status change, the actual start timestamp and the
// audit entry commit together and the change is broadcast.
func (h *RunsheetHandler) GoLive(c echo.Context) error {
	return h.runsheetAction(c, showcall.ActionGo)
}

// Finish handles POST /v1/runsheets/:id/finish and completes a live
// runsheet, stamping its actual end.
func (h *RunsheetHandler) Finish(c echo.Context) error {
	return h.runsheetAction(c, showcall.ActionComplete)
}

func (h *RunsheetHandler) runsheetAction(c echo.Context, action showcall.Action) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runsheet id"})
	}
	res, err := h.Coord.Call(c.Request().Context(), coordinator.CallRequest{
		RunsheetID: id,
		Action:     action,
		Actor:      actor,
	})
	if err != nil {
		return callError(c, err)
	}
	return c.JSON(http.StatusOK, runsheetJSON(res.Runsheet))
}

// Schedule handles GET /v1/runsheets/:id/schedule and returns the
// computed schedule rows.  Responses are cached per runsheet and
// invalidated on every committed change.
func (h *RunsheetHandler) Schedule(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runsheet id"})
	}
	ctx := c.Request().Context()
	rs, err := h.RunsheetRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRunsheetNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "runsheet not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	cues, err := h.CueRepo.ListByRunsheet(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	entries := schedule.Compute(cueInputs(cues), schedule.ParseClock(rs.ScheduledStart))
	return c.JSON(http.StatusOK, echo.Map{
		"runsheet_id":     rs.ID,
		"scheduled_start": rs.ScheduledStart,
		"entries":         entries,
	})
}

// Summary handles GET /v1/runsheets/:id/summary.  It reports planned
// totals for every runsheet and, once the show has both actual
// timestamps, the variance against plan.
func (h *RunsheetHandler) Summary(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runsheet id"})
	}
	ctx := c.Request().Context()
	rs, err := h.RunsheetRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRunsheetNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "runsheet not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	cues, err := h.CueRepo.ListByRunsheet(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	sum := schedule.Summarize(cueInputs(cues), schedule.ParseClock(rs.ScheduledStart))
	resp := echo.Map{
		"runsheet_id": rs.ID,
		"status":      rs.Status,
		"summary":     sum,
	}
	if rs.ActualStart != nil && rs.ActualEnd != nil {
		seconds, class := schedule.VarianceBetween(sum.TotalPlannedSeconds, *rs.ActualStart, *rs.ActualEnd)
		resp["variance_seconds"] = seconds
		resp["variance"] = class
	}
	return c.JSON(http.StatusOK, resp)
}

// Log handles GET /v1/runsheets/:id/log?limit= and returns the newest
// show-call log entries, reverse chronological, bounded by limit.
func (h *RunsheetHandler) Log(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runsheet id"})
	}
	limit := h.LogLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	ctx := c.Request().Context()
	if _, err := h.RunsheetRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRunsheetNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "runsheet not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	entries, err := h.LogRepo.ListRecent(ctx, id, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(entries))
	for i := range entries {
		out = append(out, logEntryJSON(&entries[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}

// callError maps coordinator errors onto HTTP responses.  Illegal
// transitions are explicit 409 rejections so an operator mistake is
// visible live instead of masked; persistence failures are 500 and
// retryable.
func callError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, showcall.ErrIllegalTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrRunsheetNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "runsheet not found"})
	case errors.Is(err, repository.ErrCueNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cue not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to apply action"})
	}
}
