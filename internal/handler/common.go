package handler // handler defines http handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stagehand/showcall/internal/coordinator"
	"github.com/stagehand/showcall/internal/model"
	"github.com/stagehand/showcall/internal/schedule"
)

// getActor extracts the actor identity placed in the context by the JWT
// middleware.  Every mutating endpoint requires one; an empty subject
// means the request is not attributable and is rejected upstream as 401.
func getActor(c echo.Context) (coordinator.Actor, error) {
	id := claimString(c.Get("actor_id"))
	if id == "" {
		return coordinator.Actor{}, errors.New("missing actor identity")
	}
	name := claimString(c.Get("actor_name"))
	if name == "" {
		name = id
	}
	return coordinator.Actor{ID: id, Name: name}, nil
}

// claimString renders a JWT claim value as a string.  Claims arrive as
// whatever type the JSON decoder picked, so numbers are common.
func claimString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case fmt.Stringer:
		return t.String()
	}
	return ""
}

// paramID parses the numeric :id path parameter.
func paramID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// cueInputs converts persisted cues into time-model inputs.
func cueInputs(cues []model.Cue) []schedule.CueInput {
	inputs := make([]schedule.CueInput, 0, len(cues))
	for _, cue := range cues {
		in := schedule.CueInput{
			ID:              cue.ID,
			Sequence:        cue.Sequence,
			DurationSeconds: cue.DurationSeconds,
			Locked:          cue.IsLocked,
		}
		if cue.IsLocked && cue.ScheduledTime != nil {
			t := schedule.ParseClock(*cue.ScheduledTime)
			in.LockedTime = &t
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// runsheetJSON shapes a runsheet for API responses.
func runsheetJSON(rs *model.Runsheet) echo.Map {
	return echo.Map{
		"id":              rs.ID,
		"event_ref":       rs.EventRef,
		"stage_ref":       rs.StageRef,
		"name":            rs.Name,
		"status":          rs.Status,
		"paused":          rs.Paused,
		"scheduled_start": rs.ScheduledStart,
		"actual_start":    timeJSON(rs.ActualStart),
		"actual_end":      timeJSON(rs.ActualEnd),
	}
}

// cueJSON shapes a cue for API responses.
func cueJSON(cue *model.Cue) echo.Map {
	return echo.Map{
		"id":                cue.ID,
		"runsheet_id":       cue.RunsheetID,
		"sequence":          cue.Sequence,
		"title":             cue.Title,
		"duration_seconds":  cue.DurationSeconds,
		"scheduled_time":    cue.ScheduledTime,
		"actual_start_time": timeJSON(cue.ActualStartTime),
		"actual_end_time":   timeJSON(cue.ActualEndTime),
		"is_locked":         cue.IsLocked,
		"status":            cue.Status,
	}
}

// logEntryJSON shapes a show-call log entry for API responses.
func logEntryJSON(e *model.ShowCallLogEntry) echo.Map {
	return echo.Map{
		"id":          e.ID,
		"runsheet_id": e.RunsheetID,
		"cue_id":      e.CueID,
		"action":      e.Action,
		"actor_id":    e.ActorID,
		"actor_name":  e.ActorName,
		"notes":       e.Notes,
		"created_at":  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func timeJSON(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
