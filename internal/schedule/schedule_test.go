package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clockPtr(s string) *Clock {
	c := ParseClock(s)
	return &c
}

func TestComputeBackToBack(t *testing.T) {
	t.Parallel()

	cues := []CueInput{
		{ID: 1, Sequence: 1, DurationSeconds: 300},
		{ID: 2, Sequence: 2, DurationSeconds: 600},
		{ID: 3, Sequence: 3, DurationSeconds: 120},
	}
	entries := Compute(cues, ParseClock("19:00:00"))
	require.Len(t, entries, 3)

	// No gaps, no overlaps: each unlocked cue starts where the previous
	// one ends.
	for i := 1; i < len(entries); i++ {
		require.Equal(t, entries[i-1].End, entries[i].Scheduled)
	}
	require.Equal(t, "19:00:00", entries[0].ScheduledTime)
	require.Equal(t, "19:05:00", entries[0].EndTime)
	require.Equal(t, "19:05:00", entries[1].ScheduledTime)
	require.Equal(t, "19:15:00", entries[1].EndTime)
	require.Equal(t, 900, entries[2].OffsetSeconds)
}

func TestComputeLockedAnchor(t *testing.T) {
	t.Parallel()

	// The locked cue absorbs a five minute gap: it stays at 19:10:00
	// and the cues after it resume from its end.
	cues := []CueInput{
		{ID: 1, Sequence: 1, DurationSeconds: 300},
		{ID: 2, Sequence: 2, DurationSeconds: 600, Locked: true, LockedTime: clockPtr("19:10:00")},
		{ID: 3, Sequence: 3, DurationSeconds: 120},
	}
	entries := Compute(cues, ParseClock("19:00:00"))
	require.Len(t, entries, 3)

	require.Equal(t, "19:00:00", entries[0].ScheduledTime)
	require.Equal(t, "19:05:00", entries[0].EndTime)
	require.Equal(t, "19:10:00", entries[1].ScheduledTime)
	require.Equal(t, "19:20:00", entries[1].EndTime)
	require.Equal(t, "19:20:00", entries[2].ScheduledTime)
	require.Equal(t, "19:22:00", entries[2].EndTime)
}

func TestRippleAnchorNeverMoves(t *testing.T) {
	t.Parallel()

	anchor := clockPtr("19:10:00")
	before := Compute([]CueInput{
		{ID: 1, Sequence: 1, DurationSeconds: 300},
		{ID: 2, Sequence: 2, DurationSeconds: 600, Locked: true, LockedTime: anchor},
		{ID: 3, Sequence: 3, DurationSeconds: 120},
	}, ParseClock("19:00:00"))

	// Stretch the upstream cue by 90 seconds.  The anchor must not
	// move, and everything after it keeps the exact same times because
	// the anchor absorbed the whole delta.
	after := Compute([]CueInput{
		{ID: 1, Sequence: 1, DurationSeconds: 390},
		{ID: 2, Sequence: 2, DurationSeconds: 600, Locked: true, LockedTime: anchor},
		{ID: 3, Sequence: 3, DurationSeconds: 120},
	}, ParseClock("19:00:00"))

	require.Equal(t, before[1].Scheduled, after[1].Scheduled)
	require.Equal(t, before[2].Scheduled, after[2].Scheduled)
	require.Equal(t, before[2].End, after[2].End)
	// The upstream cue itself did move.
	require.Equal(t, before[0].End.Add(90), after[0].End)
}

func TestComputeDeterministic(t *testing.T) {
	t.Parallel()

	cues := []CueInput{
		{ID: 4, Sequence: 2, DurationSeconds: 45},
		{ID: 7, Sequence: 1, DurationSeconds: 600},
		{ID: 9, Sequence: 3, DurationSeconds: 0, Locked: true, LockedTime: clockPtr("21:00:00")},
	}
	first := Compute(cues, ParseClock("20:00:00"))
	second := Compute(cues, ParseClock("20:00:00"))
	require.Equal(t, first, second)
}

func TestComputeDuplicateSequencesKeepListOrder(t *testing.T) {
	t.Parallel()

	// Duplicate sequence numbers are a caller-side integrity violation;
	// the model must not crash and breaks the tie by original order.
	cues := []CueInput{
		{ID: 10, Sequence: 1, DurationSeconds: 60},
		{ID: 11, Sequence: 1, DurationSeconds: 60},
		{ID: 12, Sequence: 2, DurationSeconds: 60},
	}
	entries := Compute(cues, ParseClock("10:00:00"))
	require.Equal(t, uint64(10), entries[0].CueID)
	require.Equal(t, uint64(11), entries[1].CueID)
	require.Equal(t, uint64(12), entries[2].CueID)
	require.Equal(t, "10:01:00", entries[1].ScheduledTime)
}

func TestComputeClampsNegativeDurations(t *testing.T) {
	t.Parallel()

	cues := []CueInput{
		{ID: 1, Sequence: 1, DurationSeconds: -120},
		{ID: 2, Sequence: 2, DurationSeconds: 300},
	}
	entries := Compute(cues, ParseClock("09:00:00"))
	// The negative duration degrades to zero instead of erroring or
	// pulling the schedule backwards.
	require.Equal(t, "09:00:00", entries[0].ScheduledTime)
	require.Equal(t, "09:00:00", entries[0].EndTime)
	require.Equal(t, "09:00:00", entries[1].ScheduledTime)

	sum := Summarize(cues, ParseClock("09:00:00"))
	require.Equal(t, 300, sum.TotalPlannedSeconds)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	cues := []CueInput{
		{ID: 1, Sequence: 1, DurationSeconds: 300},
		{ID: 2, Sequence: 2, DurationSeconds: 600},
		{ID: 3, Sequence: 3, DurationSeconds: 120},
	}
	sum := Summarize(cues, ParseClock("19:00:00"))
	// Duration conservation: the reported total is exactly the sum of
	// the per-cue durations.
	require.Equal(t, 1020, sum.TotalPlannedSeconds)
	require.Equal(t, "19:17:00", sum.EstimatedEnd)
	require.Equal(t, 3, sum.CueCount)
	require.Equal(t, 340, sum.AverageCueSeconds)
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	sum := Summarize(nil, ParseClock("19:00:00"))
	require.Equal(t, 0, sum.TotalPlannedSeconds)
	require.Equal(t, "19:00:00", sum.EstimatedEnd)
	require.Equal(t, 0, sum.CueCount)
	require.Equal(t, 0, sum.AverageCueSeconds)
}

func TestVariance(t *testing.T) {
	t.Parallel()

	v, class := Variance(600, 605)
	require.Equal(t, 5, v)
	require.Equal(t, VarianceOnTime, class)

	v, class = Variance(600, 700)
	require.Equal(t, 100, v)
	require.Equal(t, VarianceBehind, class)

	v, class = Variance(600, 500)
	require.Equal(t, -100, v)
	require.Equal(t, VarianceAhead, class)

	// Exactly at the tolerance boundary still counts as on time.
	_, class = Variance(600, 630)
	require.Equal(t, VarianceOnTime, class)
	_, class = Variance(600, 570)
	require.Equal(t, VarianceOnTime, class)
}

func TestVarianceBetween(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)
	v, class := VarianceBetween(600, start, start.Add(700*time.Second))
	require.Equal(t, 100, v)
	require.Equal(t, VarianceBehind, class)
}
