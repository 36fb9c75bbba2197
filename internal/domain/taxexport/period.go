package taxexport

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kontor/backend/internal/domain/shared"
)

// Period is an advance VAT return period. Code is "01" to "12" for months
// and "41" to "44" for quarters.
type Period struct {
	Year int
	Code string
}

// ParsePeriod validates a period code
func ParsePeriod(year int, code string) (Period, error) {
	if year < 2000 || year > 2100 {
		return Period{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Year %d is out of range", year))
	}
	if len(code) == 1 {
		code = "0" + code
	}
	n, err := strconv.Atoi(code)
	if err != nil || len(code) != 2 || !((n >= 1 && n <= 12) || (n >= 41 && n <= 44)) {
		return Period{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Period %q must be 01-12 or 41-44", code))
	}
	return Period{Year: year, Code: code}, nil
}

// MonthPeriod returns the monthly period containing t
func MonthPeriod(t time.Time) Period {
	return Period{Year: t.Year(), Code: fmt.Sprintf("%02d", int(t.Month()))}
}

// QuarterPeriod returns the quarterly period containing t
func QuarterPeriod(t time.Time) Period {
	return Period{Year: t.Year(), Code: fmt.Sprintf("%d", 41+(int(t.Month())-1)/3)}
}

// IsQuarter reports whether the period spans a quarter
func (p Period) IsQuarter() bool {
	return p.Code >= "41"
}

// Range returns the first and last day of the period
func (p Period) Range() (from, to time.Time) {
	n, _ := strconv.Atoi(p.Code)
	if p.IsQuarter() {
		startMonth := time.Month((n-41)*3 + 1)
		from = time.Date(p.Year, startMonth, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 3, -1)
	}
	from = time.Date(p.Year, time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%s", p.Year, p.Code)
}
