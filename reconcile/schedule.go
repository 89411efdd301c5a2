package reconcile

import "time"

// Fires reports whether a cadence is due on the given date. Weekly policies
// fire on Mondays, monthly policies on the first of the month. The run is
// expected to be triggered at most once per day by an external scheduler;
// Fires carries no state of its own.
func Fires(frequency Frequency, today time.Time) bool {
	switch frequency {
	case FrequencyWeekly:
		return today.Weekday() == time.Monday
	case FrequencyMonthly:
		return today.Day() == 1
	}
	return false
}
