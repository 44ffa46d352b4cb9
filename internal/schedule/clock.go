package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock is a point in the production day expressed as seconds since
// midnight.  The engine models a single production day only, so a Clock
// never wraps: offsets past 24h keep counting up (25:00:00) so that an
// over-long plan is visible instead of silently wrong.
type Clock int

// ParseClock converts a zero-padded "HH:MM:SS" string into a Clock.
// "HH:MM" is accepted as well.  Malformed input degrades to zero
// components rather than returning an error: during a live show an
// approximate countdown beats a halted one.  Negative components are
// clamped to zero.
func ParseClock(s string) Clock {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	units := []int{3600, 60, 1}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			n = 0
		}
		total += n * units[i]
	}
	if total < 0 {
		total = 0
	}
	return Clock(total)
}

// Add returns the clock shifted by the given number of seconds.  The
// result never goes below midnight.
func (c Clock) Add(seconds int) Clock {
	n := c + Clock(seconds)
	if n < 0 {
		return 0
	}
	return n
}

// Seconds returns the clock as plain seconds since midnight.
func (c Clock) Seconds() int { return int(c) }

// String formats the clock as zero-padded HH:MM:SS.
func (c Clock) String() string {
	s := int(c)
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}
