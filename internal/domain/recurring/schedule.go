package recurring

import (
	"time"

	"github.com/kontor/backend/internal/domain/shared"
)

// Frequency is the repetition interval
type Frequency string

const (
	FrequencyWeekly       Frequency = "weekly"
	FrequencyBiweekly     Frequency = "biweekly"
	FrequencyMonthly      Frequency = "monthly"
	FrequencyQuarterly    Frequency = "quarterly"
	FrequencySemiAnnually Frequency = "semi_annually"
	FrequencyYearly       Frequency = "yearly"
)

func (f Frequency) IsValid() bool {
	return f.days() > 0 || f.months() > 0
}

// IsMonthBased reports whether occurrences are anchored to a day of month
func (f Frequency) IsMonthBased() bool {
	return f.months() > 0
}

func (f Frequency) days() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 14
	}
	return 0
}

func (f Frequency) months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencySemiAnnually:
		return 6
	case FrequencyYearly:
		return 12
	}
	return 0
}

// Schedule describes when a recurring transaction occurs. Dates are calendar
// days at midnight UTC.
type Schedule struct {
	Frequency Frequency
	Start     time.Time
	End       *time.Time
	// AnchorDay is the day of month for month-based frequencies, 1 to 31
	AnchorDay int
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// occurrence returns the k-th occurrence, k = 0 being the first
func (s Schedule) occurrence(k int) time.Time {
	start := shared.DateOnly(s.Start)
	if d := s.Frequency.days(); d > 0 {
		return start.AddDate(0, 0, k*d)
	}
	// month arithmetic on the first of the month never overflows
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, k*s.Frequency.months(), 0)
	day := s.AnchorDay
	if n := daysIn(first.Year(), first.Month()); day > n {
		day = n
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// firstIndex is the index of the first occurrence on or after the start.
// With an anchor day before the start day the start month itself is skipped.
func (s Schedule) firstIndex() int {
	if s.Frequency.IsMonthBased() && s.occurrence(0).Before(shared.DateOnly(s.Start)) {
		return 1
	}
	return 0
}

func (s Schedule) withinEnd(t time.Time) bool {
	return s.End == nil || !t.After(shared.DateOnly(*s.End))
}

// Next returns the first occurrence strictly after after, or the first
// occurrence on or after the start when after lies before the start. The
// boolean is false once the end date has been passed.
func (s Schedule) Next(after time.Time) (time.Time, bool) {
	if !s.Frequency.IsValid() {
		return time.Time{}, false
	}
	after = shared.DateOnly(after)
	start := shared.DateOnly(s.Start)

	k := s.firstIndex()
	if after.Before(start) {
		t := s.occurrence(k)
		return t, s.withinEnd(t)
	}

	// jump close to after, then step forward
	if d := s.Frequency.days(); d > 0 {
		elapsed := int(after.Sub(start).Hours() / 24)
		if j := elapsed / d; j > k {
			k = j
		}
	} else {
		months := (after.Year()-start.Year())*12 + int(after.Month()) - int(start.Month())
		if j := months/s.Frequency.months() - 1; j > k {
			k = j
		}
	}
	for {
		t := s.occurrence(k)
		if t.After(after) {
			return t, s.withinEnd(t)
		}
		k++
	}
}

// First returns the first occurrence on or after the start
func (s Schedule) First() (time.Time, bool) {
	return s.Next(shared.DateOnly(s.Start).AddDate(0, 0, -1))
}

// OnOrAfter returns the first occurrence on or after day
func (s Schedule) OnOrAfter(day time.Time) (time.Time, bool) {
	return s.Next(shared.DateOnly(day).AddDate(0, 0, -1))
}

// Preview lists up to n upcoming occurrences after after
func (s Schedule) Preview(after time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	cur := after
	for len(out) < n {
		t, ok := s.Next(cur)
		if !ok {
			break
		}
		out = append(out, t)
		cur = t
	}
	return out
}
