package reconcile

import (
	"testing"
	"time"
)

func TestFiresWeeklyOnMondays(t *testing.T) {
	start := time.Date(2026, time.January, 1, 8, 0, 0, 0, time.UTC)
	for day := 0; day < 365; day++ {
		date := start.AddDate(0, 0, day)
		want := date.Weekday() == time.Monday
		if got := Fires(FrequencyWeekly, date); got != want {
			t.Fatalf("Fires(weekly, %s) = %v, want %v", date.Format("2006-01-02"), got, want)
		}
	}
}

func TestFiresMonthlyOnFirstOfMonth(t *testing.T) {
	start := time.Date(2026, time.January, 1, 8, 0, 0, 0, time.UTC)
	fired := 0
	for day := 0; day < 365; day++ {
		date := start.AddDate(0, 0, day)
		if Fires(FrequencyMonthly, date) {
			if date.Day() != 1 {
				t.Fatalf("monthly fired on %s", date.Format("2006-01-02"))
			}
			fired++
		}
	}
	if fired != 12 {
		t.Fatalf("monthly fired %d times in a year, want 12", fired)
	}
}

func TestFiresUnknownFrequency(t *testing.T) {
	if Fires(Frequency("daily"), time.Now()) {
		t.Fatal("unknown cadence must never fire")
	}
}
