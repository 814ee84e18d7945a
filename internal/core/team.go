package core

// Team is the colour of a side in a three-team match, or "draw".
type Team string

const (
	TeamRed   Team = "red"
	TeamGreen Team = "green"
	TeamBlue  Team = "blue"
	Draw      Team = "draw"
)

// Label returns the name shown to players.
func (t Team) Label() string {
	switch t {
	case TeamRed:
		return "Красные"
	case TeamGreen:
		return "Зеленые"
	case TeamBlue:
		return "Синие"
	case Draw:
		return "Ничья"
	default:
		return "Неизвестно"
	}
}

// Icon returns the emoji shown next to the label.
func (t Team) Icon() string {
	switch t {
	case TeamRed:
		return "🔴"
	case TeamGreen:
		return "🟢"
	case TeamBlue:
		return "🔵"
	case Draw:
		return "🤝"
	default:
		return "⚽"
	}
}

// IsValid reports whether t is a known outcome.
func (t Team) IsValid() bool {
	switch t {
	case TeamRed, TeamGreen, TeamBlue, Draw:
		return true
	default:
		return false
	}
}
