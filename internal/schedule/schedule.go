// Package schedule is the pure time model of the show-call engine.  It
// maps an ordered cue list and a start-of-show time to each cue's
// scheduled time, cumulative offset and end time, and classifies how a
// finished show ran against its plan.  The package is deterministic,
// performs no I/O and never returns an error: malformed numeric input
// is clamped instead of rejected so a live countdown keeps running.
package schedule

import (
	"sort"
	"time"
)

// OnTimeToleranceSeconds is the absolute variance, in seconds, still
// classified as on time.
const OnTimeToleranceSeconds = 30

// Variance classifications.
const (
	VarianceOnTime = "on_time"
	VarianceAhead  = "ahead"
	VarianceBehind = "behind"
)

// CueInput is the slice of cue state the time model needs.  LockedTime
// is only honored when Locked is true; an anchored cue without a
// scheduled time yet behaves like an unlocked one.
type CueInput struct {
	ID              uint64
	Sequence        int
	DurationSeconds int
	Locked          bool
	LockedTime      *Clock
}

// Entry is one row of the computed schedule.
type Entry struct {
	CueID         uint64 `json:"cue_id"`
	Sequence      int    `json:"sequence"`
	Scheduled     Clock  `json:"-"`
	End           Clock  `json:"-"`
	OffsetSeconds int    `json:"offset_seconds"`
	ScheduledTime string `json:"scheduled_time"`
	EndTime       string `json:"end_time"`
}

// Summary aggregates the planned timing of a cue list.
type Summary struct {
	TotalPlannedSeconds int    `json:"total_planned_seconds"`
	EstimatedEnd        string `json:"estimated_end"`
	CueCount            int    `json:"cue_count"`
	AverageCueSeconds   int    `json:"average_cue_seconds"`
}

// Compute derives the schedule for the given cues starting at start.
// Cues are ordered by sequence; ties keep the original list order so
// duplicate sequence numbers (a caller-side integrity violation) never
// crash or reshuffle the plan.  A locked cue with a scheduled time is
// authoritative: upstream drift shifts everything before it, the anchor
// itself never moves, and the accumulator resumes from the anchor so
// everything after shifts by the delta the anchor absorbed.
func Compute(cues []CueInput, start Clock) []Entry {
	ordered := make([]CueInput, len(cues))
	copy(ordered, cues)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	entries := make([]Entry, 0, len(ordered))
	elapsed := 0
	for _, cue := range ordered {
		dur := clampDuration(cue.DurationSeconds)
		var sched Clock
		if cue.Locked && cue.LockedTime != nil {
			sched = *cue.LockedTime
			elapsed = int(sched-start) + dur
		} else {
			sched = start.Add(elapsed)
			elapsed += dur
		}
		end := sched.Add(dur)
		entries = append(entries, Entry{
			CueID:         cue.ID,
			Sequence:      cue.Sequence,
			Scheduled:     sched,
			End:           end,
			OffsetSeconds: int(sched - start),
			ScheduledTime: sched.String(),
			EndTime:       end.String(),
		})
	}
	return entries
}

// Summarize reports total planned duration, estimated end of show, cue
// count and average cue duration.  The estimated end is start plus the
// planned total; anchors do not extend it.
func Summarize(cues []CueInput, start Clock) Summary {
	total := 0
	for _, cue := range cues {
		total += clampDuration(cue.DurationSeconds)
	}
	avg := 0
	if len(cues) > 0 {
		avg = total / len(cues)
	}
	return Summary{
		TotalPlannedSeconds: total,
		EstimatedEnd:        start.Add(total).String(),
		CueCount:            len(cues),
		AverageCueSeconds:   avg,
	}
}

// Variance compares an actual elapsed duration against the plan.  The
// returned seconds are positive when the show ran long.  Within
// OnTimeToleranceSeconds either way the run counts as on time.
func Variance(plannedSeconds, actualSeconds int) (int, string) {
	v := actualSeconds - plannedSeconds
	switch {
	case v > OnTimeToleranceSeconds:
		return v, VarianceBehind
	case v < -OnTimeToleranceSeconds:
		return v, VarianceAhead
	default:
		return v, VarianceOnTime
	}
}

// VarianceBetween is Variance over two wall-clock timestamps.
func VarianceBetween(plannedSeconds int, actualStart, actualEnd time.Time) (int, string) {
	return Variance(plannedSeconds, int(actualEnd.Sub(actualStart)/time.Second))
}

func clampDuration(d int) int {
	if d < 0 {
		return 0
	}
	return d
}
