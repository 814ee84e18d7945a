package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"matchday/internal/history"
	"matchday/internal/middleware/trace"
)

var errPartialMonth = errors.New("year and month must be given together")

// parseYearMonth extracts year and month from query parameters. ok is false
// when neither is present so callers can fall back to the current month.
func parseYearMonth(r *http.Request) (m history.Month, ok bool, err error) {
	q := r.URL.Query()
	ys := strings.TrimSpace(q.Get("year"))
	ms := strings.TrimSpace(q.Get("month"))

	if ys == "" && ms == "" {
		return history.Month{}, false, nil
	}
	if ys == "" || ms == "" {
		return history.Month{}, false, errPartialMonth
	}

	year, err := strconv.Atoi(ys)
	if err != nil || year < 1 || year > 9999 {
		return history.Month{}, false, fmt.Errorf("invalid year %q", ys)
	}
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return history.Month{}, false, fmt.Errorf("invalid month %q: must be between 1 and 12", ms)
	}
	return history.Month{Year: year, Month: time.Month(month)}, true, nil
}

// parseNonNegative reads an optional non-negative integer query parameter.
func parseNonNegative(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, v)
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func requestIDOf(r *http.Request) string {
	if r == nil {
		return ""
	}
	return trace.GetRequestID(r.Context())
}
