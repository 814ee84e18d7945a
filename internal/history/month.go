package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month identifies a calendar month. Two months are equal when their year and
// month match; the day-level position of the source timestamp is discarded.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t, evaluated in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, fmt.Errorf("invalid year in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return Month{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	if m < 1 || m > 12 {
		return Month{}, fmt.Errorf("invalid month %d: must be between 1 and 12", m)
	}
	return Month{Year: y, Month: time.Month(m)}, nil
}

// Start returns the first instant of the month in loc.
func (m Month) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// Equal reports whether both months share year and month.
func (m Month) Equal(other Month) bool {
	return m.Year == other.Year && m.Month == other.Month
}

// Before reports whether m sorts strictly before other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Compare returns -1, 0 or +1, suitable for slices.SortFunc.
func (m Month) Compare(other Month) int {
	switch {
	case m.Before(other):
		return -1
	case other.Before(m):
		return 1
	default:
		return 0
	}
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText encodes the month as "YYYY-MM".
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a "YYYY-MM" month.
func (m *Month) UnmarshalText(text []byte) error {
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MonthGroup is one page ("season") of consecutive months in ascending order.
type MonthGroup []Month

// Contains reports whether the group holds a month equal to target.
func (g MonthGroup) Contains(target Month) bool {
	for _, m := range g {
		if m.Equal(target) {
			return true
		}
	}
	return false
}
