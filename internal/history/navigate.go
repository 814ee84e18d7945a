package history

import (
	"fmt"
	"strings"
)

// Direction is a season navigation gesture.
type Direction int

const (
	Previous Direction = iota + 1
	Next
)

func (d Direction) String() string {
	switch d {
	case Previous:
		return "previous"
	case Next:
		return "next"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts "previous"/"prev"/"left" and "next"/"right".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "previous", "prev", "left":
		return Previous, nil
	case "next", "right":
		return Next, nil
	default:
		return 0, fmt.Errorf("invalid direction %q: must be previous or next", s)
	}
}

// Navigate returns the group index reached from current in direction. Moving
// past either end is a no-op; the result is always a valid index when
// groupCount > 0 and 0 otherwise.
func Navigate(direction Direction, current, groupCount int) int {
	if groupCount <= 0 {
		return 0
	}
	current = clampIndex(current, groupCount)
	switch direction {
	case Previous:
		if current > 0 {
			return current - 1
		}
	case Next:
		if current < groupCount-1 {
			return current + 1
		}
	}
	return current
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
