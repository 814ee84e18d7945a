package core

import (
	"errors"
	"strings"
	"testing"
)

func TestMatchValidate(t *testing.T) {
	good := Match{
		ID:        7,
		StartTime: "2025-01-15T10:00:00Z",
		EndTime:   "2025-01-15T12:00:00Z",
		Venue:     &Venue{Name: "Арена", Address: "ул. Ленина, 1"},
		Results:   &Results{WinningTeam: TeamRed, RedTeamScore: 3},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		m    Match
		want error
	}{
		{"zero id", Match{StartTime: "2025-01-15T10:00:00Z"}, ErrInvalidMatchID},
		{"blank start", Match{ID: 1, StartTime: "  "}, ErrEmptyStartTime},
		{"long venue", Match{ID: 1, StartTime: "x", Venue: &Venue{Name: strings.Repeat("a", 201)}}, ErrVenueNameLength},
		{"negative score", Match{ID: 1, StartTime: "x", Results: &Results{BlueTeamScore: -1}}, ErrNegativeScore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.m.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMatchAccessors(t *testing.T) {
	m := Match{ID: 1, StartTime: "2025-01-15T10:00:00Z"}
	if m.StartTimestamp() != "2025-01-15T10:00:00Z" {
		t.Fatalf("StartTimestamp = %q", m.StartTimestamp())
	}
	if m.HasResults() {
		t.Fatalf("HasResults without results")
	}
	if m.VenueName() != "Площадка" {
		t.Fatalf("VenueName fallback = %q", m.VenueName())
	}
	m.Venue = &Venue{Name: "Динамо"}
	if m.VenueName() != "Динамо" {
		t.Fatalf("VenueName = %q", m.VenueName())
	}
}

func TestTeamLabels(t *testing.T) {
	tests := []struct {
		team  Team
		label string
		icon  string
		valid bool
	}{
		{TeamRed, "Красные", "🔴", true},
		{TeamGreen, "Зеленые", "🟢", true},
		{TeamBlue, "Синие", "🔵", true},
		{Draw, "Ничья", "🤝", true},
		{Team("purple"), "Неизвестно", "⚽", false},
	}
	for _, tt := range tests {
		if got := tt.team.Label(); got != tt.label {
			t.Errorf("%q.Label() = %q, want %q", tt.team, got, tt.label)
		}
		if got := tt.team.Icon(); got != tt.icon {
			t.Errorf("%q.Icon() = %q, want %q", tt.team, got, tt.icon)
		}
		if got := tt.team.IsValid(); got != tt.valid {
			t.Errorf("%q.IsValid() = %v, want %v", tt.team, got, tt.valid)
		}
	}
}

func TestProxiedImageURL(t *testing.T) {
	var none *Venue
	if got := none.ProxiedImageURL(""); got != "" {
		t.Fatalf("nil venue = %q", got)
	}
	if got := (&Venue{}).ProxiedImageURL(""); got != "" {
		t.Fatalf("venue without image = %q", got)
	}

	v := &Venue{ImageURL: "hhttps://cdn.example.com/arena.jpg"}
	got := v.ProxiedImageURL("")
	want := "https://images.weserv.nl/?fit=cover&h=90&url=https%3A%2F%2Fcdn.example.com%2Farena.jpg&w=120"
	if got != want {
		t.Fatalf("ProxiedImageURL = %q, want %q", got, want)
	}

	got = v.ProxiedImageURL("https://img.local/resize")
	if !strings.HasPrefix(got, "https://img.local/resize?") {
		t.Fatalf("custom proxy ignored: %q", got)
	}
}

func TestFixImageURL(t *testing.T) {
	for in, want := range map[string]string{
		"hhttps://a/b.png": "https://a/b.png",
		"https://a/b.png":  "https://a/b.png",
		" http://a ":       "http://a",
		"":                 "",
	} {
		if got := FixImageURL(in); got != want {
			t.Errorf("FixImageURL(%q) = %q, want %q", in, got, want)
		}
	}
}
