package core

import (
	"errors"
	"strings"
)

type (
	// Match is a completed game as delivered by the booking API. Timestamps
	// are kept as received; they are parsed when the history is grouped so a
	// malformed value only excludes its own match.
	Match struct {
		ID        int64    `json:"id"`
		StartTime string   `json:"start_time"`
		EndTime   string   `json:"end_time"`
		Venue     *Venue   `json:"venue,omitempty"`
		Results   *Results `json:"results,omitempty"`
	}

	Venue struct {
		Name     string `json:"name"`
		Address  string `json:"address"`
		ImageURL string `json:"image_url,omitempty"`
	}

	Results struct {
		WinningTeam      Team   `json:"winning_team"`
		RedTeamScore     int    `json:"red_team_score"`
		GreenTeamScore   int    `json:"green_team_score"`
		BlueTeamScore    int    `json:"blue_team_score"`
		BestPlayerID     *int64 `json:"best_player_id,omitempty"`
		BestGoalPlayerID *int64 `json:"best_goal_player_id,omitempty"`
		BestSavePlayerID *int64 `json:"best_save_player_id,omitempty"`
	}
)

var (
	ErrInvalidMatchID  = errors.New("invalid match id")
	ErrEmptyStartTime  = errors.New("empty start time")
	ErrNegativeScore   = errors.New("negative score")
	ErrVenueNameLength = errors.New("venue name too long (max 200 characters)")
)

// StartTimestamp returns the raw start time.
func (m Match) StartTimestamp() string {
	return m.StartTime
}

// HasResults reports whether the match outcome was recorded.
func (m Match) HasResults() bool {
	return m.Results != nil
}

// VenueName returns the venue name or the generic placeholder.
func (m Match) VenueName() string {
	if m.Venue == nil || strings.TrimSpace(m.Venue.Name) == "" {
		return "Площадка"
	}
	return m.Venue.Name
}

// Validate checks the structural fields of a match. The start time is only
// checked for presence; its format is judged by the history grouper.
func (m Match) Validate() error {
	if m.ID <= 0 {
		return ErrInvalidMatchID
	}
	if strings.TrimSpace(m.StartTime) == "" {
		return ErrEmptyStartTime
	}
	if m.Venue != nil && len(m.Venue.Name) > 200 {
		return ErrVenueNameLength
	}
	if r := m.Results; r != nil {
		if r.RedTeamScore < 0 || r.GreenTeamScore < 0 || r.BlueTeamScore < 0 {
			return ErrNegativeScore
		}
	}
	return nil
}
