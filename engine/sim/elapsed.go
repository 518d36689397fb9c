package sim

import (
	"fmt"
	"math"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
	secondsPerYear   = 365.25 * secondsPerDay
)

// ElapsedTime formats the simulated time after ticks steps of delta seconds each.
//
// Parameters:
//   - ticks: the number of completed steps
//   - delta: the step size in seconds
//
// Returns:
//   - string: "{years}Y {days}D {hh}:{mm}:{ss} ({ticks} ticks)"
func ElapsedTime(ticks uint64, delta float64) string {
	return FormatDuration(float64(ticks)*delta) + fmt.Sprintf(" (%d ticks)", ticks)
}

// FormatDuration formats a simulated duration in seconds as "{years}Y {days}D {hh}:{mm}:{ss}".
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	years := math.Floor(seconds / secondsPerYear)
	rest := seconds - years*secondsPerYear
	days := math.Floor(rest / secondsPerDay)
	rest -= days * secondsPerDay
	s := uint64(rest)

	return fmt.Sprintf("%dY %dD %02d:%02d:%02d",
		uint64(years), uint64(days), s/secondsPerHour, (s%secondsPerHour)/secondsPerMinute, s%secondsPerMinute)
}
