package csvimport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"31.12.2024", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"1.2.2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"05.03.24", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"05.03.69", time.Date(2069, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"05.03.70", time.Date(1970, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"2024-02-29T10:00:00Z", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"29/02/2024", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{" 15.01.2024 ", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15.01.2024 13:45", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "31.02.2024", "29.02.2023", "13/13/2024", "2024/01/01", "Kontostand", "00.01.2024", "1.13.2024", "2024-12-3155", "2024-12-31x"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDate(in)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}
}
