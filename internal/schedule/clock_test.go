package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	require.Equal(t, Clock(68400), ParseClock("19:00:00"))
	require.Equal(t, Clock(0), ParseClock("00:00:00"))
	require.Equal(t, Clock(3661), ParseClock("01:01:01"))
	// HH:MM shorthand
	require.Equal(t, Clock(7*3600+300), ParseClock("7:05"))
	// surrounding whitespace is tolerated
	require.Equal(t, Clock(3600), ParseClock(" 01:00:00 "))
}

func TestParseClockDegradesInsteadOfFailing(t *testing.T) {
	t.Parallel()

	// Malformed input clamps to midnight; a live countdown must keep
	// running on an approximate number rather than halt.
	require.Equal(t, Clock(0), ParseClock(""))
	require.Equal(t, Clock(0), ParseClock("not a time"))
	require.Equal(t, Clock(0), ParseClock("12"))
	require.Equal(t, Clock(0), ParseClock("1:2:3:4"))
	// Bad components degrade to zero individually.
	require.Equal(t, Clock(10*3600+30), ParseClock("10:xx:30"))
	// Negative components clamp to zero.
	require.Equal(t, Clock(5*3600), ParseClock("5:-10:00"))
}

func TestClockString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "19:00:00", Clock(68400).String())
	require.Equal(t, "00:00:07", Clock(7).String())
	require.Equal(t, "00:00:00", Clock(-5).String())
	// Past-midnight totals keep counting instead of wrapping so an
	// over-long plan is visible.
	require.Equal(t, "25:00:00", Clock(25*3600).String())
}

func TestClockAdd(t *testing.T) {
	t.Parallel()

	require.Equal(t, Clock(68700), Clock(68400).Add(300))
	require.Equal(t, Clock(68100), Clock(68400).Add(-300))
	require.Equal(t, Clock(0), Clock(10).Add(-100))
}
