package csvimport

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned for dates that match no supported layout
var ErrInvalidDate = errors.New("invalid date")

var (
	dottedDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2}|\d{4})$`)
	slashDate  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDate    = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:$|T)`)
)

// twoDigitYearPivot: "69" is 2069, "70" is 1970
const twoDigitYearPivot = 70

// ParseDate parses the date layouts found in German bank exports:
// 31.12.2024, 31.12.24, 1.2.2024, 2024-12-31 and 31/12/2024.
// The result is the calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, ErrInvalidDate
	}
	if i := strings.IndexByte(v, ' '); i > 0 {
		v = v[:i]
	}

	var day, month, year int
	if m := dottedDate.FindStringSubmatch(v); m != nil {
		day, month, year = atoi(m[1]), atoi(m[2]), atoi(m[3])
		if len(m[3]) == 2 {
			if year < twoDigitYearPivot {
				year += 2000
			} else {
				year += 1900
			}
		}
	} else if m := isoDate.FindStringSubmatch(v); m != nil {
		year, month, day = atoi(m[1]), atoi(m[2]), atoi(m[3])
	} else if m := slashDate.FindStringSubmatch(v); m != nil {
		day, month, year = atoi(m[1]), atoi(m[2]), atoi(m[3])
	} else {
		return time.Time{}, ErrInvalidDate
	}

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, ErrInvalidDate
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		// 31.02. rolled over into March
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
