// Package showcall defines the cue and runsheet state machines used
// during a live performance.  Transitions are pure: Apply and
// ApplyRunsheet compute the next state from the current one without
// touching storage, so the coordinator can validate and persist them as
// a single unit.
package showcall

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stagehand/showcall/internal/model"
)

// Action is a show-call verb submitted by an operator.
type Action string

// Show-call actions.  GO, STANDBY, SKIP, COMPLETE and RESET target a
// cue; GO, COMPLETE, PAUSE and RESUME also apply at the runsheet level.
// NOTE is audit-only and changes no state.
const (
	ActionGo       Action = "GO"
	ActionStandby  Action = "STANDBY"
	ActionSkip     Action = "SKIP"
	ActionComplete Action = "COMPLETE"
	ActionPause    Action = "PAUSE"
	ActionResume   Action = "RESUME"
	ActionReset    Action = "RESET"
	ActionNote     Action = "NOTE"
)

// Cue statuses.
const (
	StatusPending  = "PENDING"
	StatusStandby  = "STANDBY"
	StatusGo       = "GO"
	StatusComplete = "COMPLETE"
	StatusSkipped  = "SKIPPED"
)

// Runsheet statuses.
const (
	RunsheetDraft     = "DRAFT"
	RunsheetLive      = "LIVE"
	RunsheetCompleted = "COMPLETED"
)

// ErrIllegalTransition is returned when an action is not legal for the
// current persisted state.  Illegal calls are hard errors so that an
// operator mistake is caught live instead of silently ignored.
var ErrIllegalTransition = errors.New("illegal transition")

// ParseAction normalizes a client-provided action string.  Matching is
// case-insensitive; unknown verbs return false.
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionGo, ActionStandby, ActionSkip, ActionComplete,
		ActionPause, ActionResume, ActionReset, ActionNote:
		return a, true
	}
	return "", false
}

// cueTransitions lists the legal cue actions per current status.  GO
// from GO is legal because retries under flaky connectivity are
// expected; the repeated call never overwrites the start timestamp.
// RESET and NOTE are legal from any status and are not listed here.
var cueTransitions = map[string]map[Action]bool{
	StatusPending:  {ActionStandby: true, ActionGo: true, ActionSkip: true},
	StatusStandby:  {ActionStandby: true, ActionGo: true, ActionSkip: true},
	StatusGo:       {ActionGo: true, ActionComplete: true, ActionSkip: true},
	StatusComplete: {},
	StatusSkipped:  {},
}

// Apply computes the next state of a cue for the given action taken at
// the given instant.  The input cue is copied, never mutated.  Side
// effects on timestamps follow the show-call rules: "go" stamps the
// start only if unset, "complete" stamps the end, "skip" stamps
// nothing, "reset" returns the cue to PENDING and clears both.
func Apply(cue model.Cue, action Action, now time.Time) (model.Cue, error) {
	switch action {
	case ActionNote:
		return cue, nil
	case ActionReset:
		cue.Status = StatusPending
		cue.ActualStartTime = nil
		cue.ActualEndTime = nil
		return cue, nil
	}
	allowed, known := cueTransitions[cue.Status]
	if !known || !allowed[action] {
		return cue, fmt.Errorf("%w: %s on %s cue", ErrIllegalTransition, action, cue.Status)
	}
	switch action {
	case ActionStandby:
		cue.Status = StatusStandby
	case ActionGo:
		cue.Status = StatusGo
		if cue.ActualStartTime == nil {
			t := now
			cue.ActualStartTime = &t
		}
	case ActionComplete:
		cue.Status = StatusComplete
		t := now
		cue.ActualEndTime = &t
	case ActionSkip:
		cue.Status = StatusSkipped
	}
	return cue, nil
}

// ApplyRunsheet computes the next state of a runsheet for a
// runsheet-level action.  GO takes a draft live and stamps the actual
// start; COMPLETE finishes a live runsheet and stamps the actual end;
// PAUSE and RESUME toggle the paused flag of a live runsheet without
// touching any cue.  NOTE is always legal and changes nothing.
func ApplyRunsheet(rs model.Runsheet, action Action, now time.Time) (model.Runsheet, error) {
	switch action {
	case ActionNote:
		return rs, nil
	case ActionGo:
		if rs.Status != RunsheetDraft {
			return rs, fmt.Errorf("%w: go on %s runsheet", ErrIllegalTransition, rs.Status)
		}
		rs.Status = RunsheetLive
		if rs.ActualStart == nil {
			t := now
			rs.ActualStart = &t
		}
	case ActionComplete:
		if rs.Status != RunsheetLive {
			return rs, fmt.Errorf("%w: complete on %s runsheet", ErrIllegalTransition, rs.Status)
		}
		rs.Status = RunsheetCompleted
		rs.Paused = false
		t := now
		rs.ActualEnd = &t
	case ActionPause:
		if rs.Status != RunsheetLive || rs.Paused {
			return rs, fmt.Errorf("%w: pause on %s runsheet", ErrIllegalTransition, rs.Status)
		}
		rs.Paused = true
	case ActionResume:
		if rs.Status != RunsheetLive || !rs.Paused {
			return rs, fmt.Errorf("%w: resume on %s runsheet", ErrIllegalTransition, rs.Status)
		}
		rs.Paused = false
	default:
		return rs, fmt.Errorf("%w: %s is not a runsheet action", ErrIllegalTransition, action)
	}
	return rs, nil
}
