package model

import "time"

// Runsheet is an ordered sequence of cues for one production day on a
// given event and stage.  A runsheet is built in DRAFT, taken LIVE for
// the performance and finally COMPLETED.  Times within the production
// day are expressed as zero-padded HH:MM:SS strings; wall-clock
// timestamps recorded during the show use time.Time in UTC.
//
// Fields:
//  ID             – primary key identifier.
//  EventRef       – external reference of the event this runsheet belongs to.
//  StageRef       – external reference of the stage the show runs on.
//  Name           – human readable runsheet name.
//  Status         – current state (DRAFT, LIVE, COMPLETED).
//  Paused         – whether the live show clock is currently paused.
//  ScheduledStart – planned start of show as HH:MM:SS within the day.
//  ActualStart    – set once when the runsheet goes live.
//  ActualEnd      – set once when the runsheet is finished.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Runsheet struct {
	ID             uint64     // runsheets.id
	EventRef       string     // runsheets.event_ref
	StageRef       string     // runsheets.stage_ref
	Name           string     // runsheets.name
	Status         string     // runsheets.status
	Paused         bool       // runsheets.paused
	ScheduledStart string     // runsheets.scheduled_start (HH:MM:SS)
	ActualStart    *time.Time // runsheets.actual_start (nullable)
	ActualEnd      *time.Time // runsheets.actual_end (nullable)
	CreatedAt      time.Time  // runsheets.created_at
	UpdatedAt      time.Time  // runsheets.updated_at
}
