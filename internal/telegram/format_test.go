package telegram

import (
	"strings"
	"testing"
	"time"

	"matchday/internal/core"
	"matchday/internal/history"
)

func TestFormatting(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	tests := []struct{ got, want string }{
		{FormatDate(start), "15 января"},
		{FormatTimeRange(start, end), "10:00-12:00"},
		{FormatTimeRange(start, time.Time{}), "10:00"},
		{MonthTitle(history.Month{Year: 2025, Month: time.December}), "Декабрь 2025"},
		{MonthButton(history.Month{Year: 2024, Month: time.May}), "Май 24"},
		{emptyMonthText(history.Month{Year: 2025, Month: time.August}), "В августе 2025 матчей не было."},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestFormatMatch(t *testing.T) {
	m := core.Match{
		ID:        1,
		StartTime: "2025-01-15T10:00:00Z",
		EndTime:   "2025-01-15T12:00:00Z",
		Venue:     &core.Venue{Name: "<Арена & Ко>"},
		Results:   &core.Results{WinningTeam: core.Draw, RedTeamScore: 2, GreenTeamScore: 2},
	}
	moscow := time.FixedZone("MSK", 3*60*60)

	got := formatMatch(m, moscow)
	for _, want := range []string{"<b>15 января</b>, 13:00-15:00", "&lt;Арена &amp; Ко&gt;", "🤝 Ничья", "(2 : 2 : 0)"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	raw := formatMatch(core.Match{ID: 2, StartTime: "not a date"}, time.UTC)
	if !strings.HasPrefix(raw, "not a date") || !strings.Contains(raw, "Площадка") {
		t.Errorf("unexpected fallback rendering:\n%s", raw)
	}
}
