package history

import (
	"fmt"
	"time"

	"github.com/assettrack/backend/internal/domain/shared"
)

// Month is a calendar month, the resolution unit for historical totals.
// Callers pass the month explicitly instead of the resolver reading a wall
// clock, so rollover behavior is deterministic under test.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing the given instant, in UTC
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

// ParseMonth parses the "YYYY-MM" form
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, shared.NewDomainError("INVALID_MONTH", fmt.Sprintf("invalid month %q, want YYYY-MM", s))
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String formats the month as YYYY-MM
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Prev returns the preceding month, rolling over year boundaries
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Next returns the following month, rolling over year boundaries
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Start returns the first instant of the month in UTC
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month in UTC
func (m Month) End() time.Time {
	return m.Next().Start()
}

// Contains reports whether the instant falls inside the month
func (m Month) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(m.Start()) && u.Before(m.End())
}

// Before reports whether m precedes other
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}
