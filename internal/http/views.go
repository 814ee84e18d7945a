package http

import (
	"matchday/internal/core"
	"matchday/internal/history"
)

type winnerView struct {
	Team  core.Team `json:"team"`
	Label string    `json:"label"`
	Icon  string    `json:"icon"`
}

type venueView struct {
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// matchView is a match prepared for the match card and result screen.
type matchView struct {
	ID        int64         `json:"id"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
	Venue     venueView     `json:"venue"`
	Results   *core.Results `json:"results,omitempty"`
	// Winner is nil when the result was not determined.
	Winner *winnerView `json:"winner,omitempty"`
}

type historyView struct {
	Theme        string               `json:"theme"`
	Reference    history.Month        `json:"reference"`
	Selected     *history.Month       `json:"selected"`
	Months       []history.Month      `json:"months"`
	Groups       []history.MonthGroup `json:"groups"`
	CurrentIndex int                  `json:"current_index"`
	GroupCount   int                  `json:"group_count"`
	CanPrevious  bool                 `json:"can_previous"`
	CanNext      bool                 `json:"can_next"`
	Matches      []matchView          `json:"matches"`
}

type monthMatchesView struct {
	Month   history.Month `json:"month"`
	Matches []matchView   `json:"matches"`
}

func newMatchView(m core.Match, imageProxy string) matchView {
	v := matchView{
		ID:        m.ID,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
		Venue:     venueView{Name: m.VenueName()},
		Results:   m.Results,
	}
	if m.Venue != nil {
		v.Venue.Address = m.Venue.Address
		v.Venue.ImageURL = m.Venue.ProxiedImageURL(imageProxy)
	}
	if m.HasResults() {
		t := m.Results.WinningTeam
		v.Winner = &winnerView{Team: t, Label: t.Label(), Icon: t.Icon()}
	}
	return v
}

func newMatchViews(ms []core.Match, imageProxy string) []matchView {
	out := make([]matchView, 0, len(ms))
	for _, m := range ms {
		out = append(out, newMatchView(m, imageProxy))
	}
	return out
}

func newHistoryView(snap history.Snapshot[core.Match], theme, imageProxy string) historyView {
	groups := snap.Groups
	if groups == nil {
		groups = []history.MonthGroup{}
	}
	months := snap.Months
	if months == nil {
		months = []history.Month{}
	}
	n := snap.GroupCount()
	return historyView{
		Theme:        theme,
		Reference:    snap.Reference,
		Selected:     snap.Selected,
		Months:       months,
		Groups:       groups,
		CurrentIndex: snap.CurrentGroupIndex,
		GroupCount:   n,
		CanPrevious:  n > 0 && snap.CurrentGroupIndex > 0,
		CanNext:      n > 0 && snap.CurrentGroupIndex < n-1,
		Matches:      newMatchViews(snap.Records, imageProxy),
	}
}
