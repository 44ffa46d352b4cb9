package model

import "time"

// ShowCallLogEntry records one show-call action taken during a
// performance.  The log is append-only: entries are written in the same
// transaction as the state change they describe and are never updated
// or deleted afterwards.  CueID is nil for runsheet-level actions such
// as pause, resume or a go-live call.
//
// Fields:
//  ID         – primary key identifier.
//  RunsheetID – runsheet the action was taken on.
//  CueID      – cue the action targeted, when any.
//  Action     – what happened (GO, STANDBY, SKIP, COMPLETE, PAUSE,
//               RESUME, RESET, NOTE).
//  ActorID    – identity of the operator who made the call.
//  ActorName  – display name of the operator at the time of the call.
//  Notes      – optional free-text note attached to the entry.
//  CreatedAt  – when the action was committed.
type ShowCallLogEntry struct {
	ID         uint64    // show_call_log.id
	RunsheetID uint64    // show_call_log.runsheet_id
	CueID      *uint64   // show_call_log.cue_id (nullable)
	Action     string    // show_call_log.action
	ActorID    string    // show_call_log.actor_id
	ActorName  string    // show_call_log.actor_name
	Notes      *string   // show_call_log.notes (nullable)
	CreatedAt  time.Time // show_call_log.created_at
}
