package history

import "time"

// Snapshot is the fully derived state of the history screen for one load of
// the record set.
type Snapshot[R Record] struct {
	Months            []Month
	Groups            []MonthGroup
	CurrentGroupIndex int
	// Reference is the month the view was opened on. It is kept even when no
	// record falls into it so the empty state can name it.
	Reference Month
	// Selected is nil when Reference has no records.
	Selected *Month
	// Records holds the records of Selected in input order.
	Records []R
}

// GroupCount returns the number of seasons.
func (s Snapshot[R]) GroupCount() int { return len(s.Groups) }

// CurrentGroup returns the season at CurrentGroupIndex, or nil when empty.
func (s Snapshot[R]) CurrentGroup() MonthGroup {
	if len(s.Groups) == 0 {
		return nil
	}
	return s.Groups[s.CurrentGroupIndex]
}

// Load derives a snapshot opened on the month containing now.
func (g *Grouper[R]) Load(records []R, now time.Time) Snapshot[R] {
	return g.LoadMonth(records, MonthOf(now.In(g.loc)))
}

// LoadMonth derives a snapshot opened on reference. The current season is the
// one holding reference, or the first season when reference has no records.
func (g *Grouper[R]) LoadMonth(records []R, reference Month) Snapshot[R] {
	months := g.ExtractMonths(records)
	groups := g.GroupMonths(months)

	snap := Snapshot[R]{
		Months:    months,
		Groups:    groups,
		Reference: reference,
		Records:   make([]R, 0),
	}
	if idx, ok := LocateGroupContaining(groups, reference); ok {
		selected := reference
		snap.CurrentGroupIndex = idx
		snap.Selected = &selected
		snap.Records = g.FilterByMonth(records, reference)
	}
	return snap
}
