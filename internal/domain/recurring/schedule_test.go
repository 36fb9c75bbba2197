package recurring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScheduleNext(t *testing.T) {
	tests := []struct {
		name  string
		s     Schedule
		after time.Time
		want  time.Time
	}{
		{"before start returns start", Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 15), AnchorDay: 15}, date(2023, 12, 1), date(2024, 1, 15)},
		{"strictly after", Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 15), AnchorDay: 15}, date(2024, 1, 15), date(2024, 2, 15)},
		{"weekly", Schedule{Frequency: FrequencyWeekly, Start: date(2024, 1, 1)}, date(2024, 1, 1), date(2024, 1, 8)},
		{"weekly mid week", Schedule{Frequency: FrequencyWeekly, Start: date(2024, 1, 1)}, date(2024, 1, 10), date(2024, 1, 15)},
		{"biweekly far ahead", Schedule{Frequency: FrequencyBiweekly, Start: date(2024, 1, 1)}, date(2024, 3, 1), date(2024, 3, 11)},
		{"clamp to april", Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 31), AnchorDay: 31}, date(2024, 3, 31), date(2024, 4, 30)},
		{"clamp to leap february", Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 31), AnchorDay: 31}, date(2024, 1, 31), date(2024, 2, 29)},
		{"clamp to february", Schedule{Frequency: FrequencyMonthly, Start: date(2023, 1, 31), AnchorDay: 31}, date(2023, 1, 31), date(2023, 2, 28)},
		{"no drift after clamp", Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 31), AnchorDay: 31}, date(2024, 2, 29), date(2024, 3, 31)},
		{"quarterly", Schedule{Frequency: FrequencyQuarterly, Start: date(2024, 1, 10), AnchorDay: 10}, date(2024, 1, 10), date(2024, 4, 10)},
		{"quarterly clamp", Schedule{Frequency: FrequencyQuarterly, Start: date(2024, 2, 29), AnchorDay: 31}, date(2024, 3, 1), date(2024, 5, 31)},
		{"semi annually", Schedule{Frequency: FrequencySemiAnnually, Start: date(2024, 3, 31), AnchorDay: 31}, date(2024, 3, 31), date(2024, 9, 30)},
		{"yearly leap day", Schedule{Frequency: FrequencyYearly, Start: date(2024, 2, 29), AnchorDay: 29}, date(2024, 2, 29), date(2025, 2, 28)},
		{"yearly back to leap day", Schedule{Frequency: FrequencyYearly, Start: date(2024, 2, 29), AnchorDay: 29}, date(2027, 3, 1), date(2028, 2, 29)},
		{"anchor before start day skips month", Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 20), AnchorDay: 5}, date(2023, 1, 1), date(2024, 2, 5)},
		{"many years ahead", Schedule{Frequency: FrequencyMonthly, Start: date(2020, 1, 31), AnchorDay: 31}, date(2030, 6, 15), date(2030, 6, 30)},
		{"time of day ignored", Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 15), AnchorDay: 15}, time.Date(2024, 2, 14, 23, 0, 0, 0, time.UTC), date(2024, 2, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.s.Next(tt.after)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleEnd(t *testing.T) {
	end := date(2024, 3, 15)
	s := Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 15), AnchorDay: 15, End: &end}

	got, ok := s.Next(date(2024, 2, 15))
	require.True(t, ok)
	assert.Equal(t, end, got, "end date is inclusive")

	_, ok = s.Next(end)
	assert.False(t, ok)

	_, ok = Schedule{Frequency: "daily", Start: date(2024, 1, 1)}.Next(date(2024, 1, 1))
	assert.False(t, ok)
}

func TestSchedulePreview(t *testing.T) {
	s := Schedule{Frequency: FrequencyMonthly, Start: date(2024, 1, 31), AnchorDay: 31}
	got := s.Preview(date(2024, 1, 1), 5)
	assert.Equal(t, []time.Time{
		date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 31), date(2024, 4, 30), date(2024, 5, 31),
	}, got)

	end := date(2024, 2, 29)
	s.End = &end
	assert.Len(t, s.Preview(date(2024, 1, 1), 5), 2)
}

func TestScheduleFirstAndOnOrAfter(t *testing.T) {
	s := Schedule{Frequency: FrequencyWeekly, Start: date(2024, 1, 3)}
	first, ok := s.First()
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 3), first)

	next, ok := s.OnOrAfter(date(2024, 1, 17))
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 17), next)

	next, ok = s.OnOrAfter(date(2024, 1, 18))
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 24), next)
}
