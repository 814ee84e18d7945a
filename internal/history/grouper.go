// Package history derives the paged month selector of the match history
// screen: months are extracted from timestamped records, bucketed into fixed
// size pages ("seasons") and navigated one page at a time.
package history

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultPageSize is the number of months shown per season.
const DefaultPageSize = 3

// ErrInvalidRecord marks a record whose start timestamp cannot be parsed.
var ErrInvalidRecord = errors.New("invalid record")

// Record is anything carrying a start timestamp as delivered by the booking API.
type Record interface {
	StartTimestamp() string
}

// InvalidRecordError describes a record excluded from month derivation.
type InvalidRecordError struct {
	Index int
	Value string
	Err   error
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record at index %d: unparseable start_time %q: %v", e.Index, e.Value, e.Err)
}

func (e *InvalidRecordError) Unwrap() []error {
	return []error{ErrInvalidRecord, e.Err}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values carrying an offset are
// converted to loc; values without one are interpreted in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", value)
}

// Config holds grouper configuration
type Config struct {
	// Location decides which calendar month a timestamp falls into.
	Location *time.Location
	PageSize int
}

// DefaultConfig returns UTC months grouped by three.
func DefaultConfig() Config {
	return Config{
		Location: time.UTC,
		PageSize: DefaultPageSize,
	}
}

// Grouper derives months and seasons from a record collection.
type Grouper[R Record] struct {
	loc      *time.Location
	pageSize int
}

// NewGrouper creates a grouper, filling zero config values with defaults.
func NewGrouper[R Record](cfg Config) *Grouper[R] {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Grouper[R]{loc: cfg.Location, pageSize: cfg.PageSize}
}

// Location returns the location months are evaluated in.
func (g *Grouper[R]) Location() *time.Location { return g.loc }

// PageSize returns the number of months per season.
func (g *Grouper[R]) PageSize() int { return g.pageSize }

// MonthOf returns the month a record belongs to.
func (g *Grouper[R]) MonthOf(r R) (Month, error) {
	t, err := ParseTimestamp(r.StartTimestamp(), g.loc)
	if err != nil {
		return Month{}, err
	}
	return MonthOf(t), nil
}

// ExtractMonths returns the distinct months of records in ascending order.
// Records with unparseable timestamps are skipped.
func (g *Grouper[R]) ExtractMonths(records []R) []Month {
	seen := make(map[Month]struct{}, len(records))
	months := make([]Month, 0, len(records))
	for _, r := range records {
		m, err := g.MonthOf(r)
		if err != nil {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	slices.SortFunc(months, Month.Compare)
	return months
}

// GroupMonths pages months using the grouper's page size.
func (g *Grouper[R]) GroupMonths(months []Month) []MonthGroup {
	return GroupMonths(months, g.pageSize)
}

// FilterByMonth returns the records of month in input order.
func (g *Grouper[R]) FilterByMonth(records []R, month Month) []R {
	out := make([]R, 0)
	for _, r := range records {
		m, err := g.MonthOf(r)
		if err != nil {
			continue
		}
		if m.Equal(month) {
			out = append(out, r)
		}
	}
	return out
}

// Invalid reports every record excluded because of its timestamp.
func (g *Grouper[R]) Invalid(records []R) []*InvalidRecordError {
	var invalid []*InvalidRecordError
	for i, r := range records {
		if _, err := g.MonthOf(r); err != nil {
			invalid = append(invalid, &InvalidRecordError{
				Index: i,
				Value: r.StartTimestamp(),
				Err:   err,
			})
		}
	}
	return invalid
}

// GroupMonths splits sorted months into consecutive pages of pageSize. The
// last page may be shorter. A non-positive pageSize falls back to
// DefaultPageSize.
func GroupMonths(months []Month, pageSize int) []MonthGroup {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	groups := make([]MonthGroup, 0, (len(months)+pageSize-1)/pageSize)
	for i := 0; i < len(months); i += pageSize {
		end := min(i+pageSize, len(months))
		groups = append(groups, MonthGroup(slices.Clone(months[i:end])))
	}
	return groups
}

// LocateGroupContaining returns the index of the first group holding target.
func LocateGroupContaining(groups []MonthGroup, target Month) (int, bool) {
	for i, g := range groups {
		if g.Contains(target) {
			return i, true
		}
	}
	return 0, false
}
