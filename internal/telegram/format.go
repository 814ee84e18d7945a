package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"matchday/internal/core"
	"matchday/internal/history"
)

var (
	monthNominative = [...]string{"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
		"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь"}
	monthGenitive = [...]string{"января", "февраля", "марта", "апреля", "мая", "июня",
		"июля", "августа", "сентября", "октября", "ноября", "декабря"}
	monthPrepositional = [...]string{"январе", "феврале", "марте", "апреле", "мае", "июне",
		"июле", "августе", "сентябре", "октябре", "ноябре", "декабре"}
	monthShort = [...]string{"Янв", "Фев", "Мар", "Апр", "Май", "Июн",
		"Июл", "Авг", "Сен", "Окт", "Ноя", "Дек"}
)

// MonthTitle renders "Март 2025".
func MonthTitle(m history.Month) string {
	return fmt.Sprintf("%s %d", monthNominative[m.Month-1], m.Year)
}

// MonthButton renders the short selector label, "Мар 25".
func MonthButton(m history.Month) string {
	return fmt.Sprintf("%s %02d", monthShort[m.Month-1], m.Year%100)
}

// FormatDate renders "15 января".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), monthGenitive[t.Month()-1])
}

// FormatTimeRange renders "10:00-12:00", or just the start when end is zero.
func FormatTimeRange(start, end time.Time) string {
	if end.IsZero() {
		return start.Format("15:04")
	}
	return start.Format("15:04") + "-" + end.Format("15:04")
}

// emptyMonthText names the reference month in the empty state.
func emptyMonthText(m history.Month) string {
	return fmt.Sprintf("В %s %d матчей не было.", monthPrepositional[m.Month-1], m.Year)
}

// formatMatch renders one match as an HTML line block.
func formatMatch(m core.Match, loc *time.Location) string {
	var b strings.Builder

	start, err := history.ParseTimestamp(m.StartTime, loc)
	if err != nil {
		b.WriteString(html.EscapeString(m.StartTime))
	} else {
		end, _ := history.ParseTimestamp(m.EndTime, loc)
		fmt.Fprintf(&b, "<b>%s</b>, %s", FormatDate(start), FormatTimeRange(start, end))
	}
	fmt.Fprintf(&b, "\n📍 %s", html.EscapeString(m.VenueName()))

	if !m.HasResults() {
		b.WriteString("\nРезультат не определен")
		return b.String()
	}
	r := m.Results
	fmt.Fprintf(&b, "\n%s %s  (%d : %d : %d)",
		r.WinningTeam.Icon(), r.WinningTeam.Label(),
		r.RedTeamScore, r.GreenTeamScore, r.BlueTeamScore)
	return b.String()
}

// renderText builds the message body for the selected month.
func renderText(selected *history.Month, reference history.Month, records []core.Match, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("<b>История матчей</b>\n")

	if selected == nil {
		fmt.Fprintf(&b, "%s\n\n%s", MonthTitle(reference), emptyMonthText(reference))
		return b.String()
	}

	fmt.Fprintf(&b, "%s\n", MonthTitle(*selected))
	for _, m := range records {
		b.WriteString("\n")
		b.WriteString(formatMatch(m, loc))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
