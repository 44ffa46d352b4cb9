package model

import "time"

// Cue is one schedulable unit of a runsheet with a planned duration.
// Cues are created PENDING at build time and are mutated only through
// the show-call coordinator during the performance.  A locked cue keeps
// its scheduled time fixed and acts as a ripple anchor: upstream drift
// is absorbed by the anchor instead of moving it.
//
// Fields:
//  ID              – primary key identifier.
//  RunsheetID      – runsheet this cue belongs to.
//  Sequence        – position within the runsheet; unique per runsheet.
//  Title           – human readable cue title.
//  DurationSeconds – planned duration; never negative.
//  ScheduledTime   – derived HH:MM:SS start time within the production day.
//  ActualStartTime – set once by the first accepted "go" call.
//  ActualEndTime   – set by "complete"; cleared only by an explicit reset.
//  IsLocked        – whether the scheduled time is pinned (ripple anchor).
//  Status          – current state (PENDING, STANDBY, GO, COMPLETE, SKIPPED).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Cue struct {
	ID              uint64     // cues.id
	RunsheetID      uint64     // cues.runsheet_id
	Sequence        int        // cues.sequence
	Title           string     // cues.title
	DurationSeconds int        // cues.duration_seconds
	ScheduledTime   *string    // cues.scheduled_time (nullable, HH:MM:SS)
	ActualStartTime *time.Time // cues.actual_start_time (nullable)
	ActualEndTime   *time.Time // cues.actual_end_time (nullable)
	IsLocked        bool       // cues.is_locked
	Status          string     // cues.status
	CreatedAt       time.Time  // cues.created_at
	UpdatedAt       time.Time  // cues.updated_at
}
