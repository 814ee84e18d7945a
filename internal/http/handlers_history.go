package http

import (
	"errors"
	"net/http"
	"strconv"

	"matchday/internal/core"
	"matchday/internal/history"
	applog "matchday/internal/log"
	"matchday/internal/matches"
	"matchday/internal/services"
)

// handleHistory returns the history snapshot for the current month, or for
// ?year=&month= when given.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	month, ok, err := parseYearMonth(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var snap history.Snapshot[core.Match]
	if ok {
		snap, err = s.history.Month(r.Context(), month)
	} else {
		snap, err = s.history.Overview(r.Context())
	}
	if err != nil {
		s.backendError(w, r, "Failed to load match history", err)
		return
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "History served",
		applog.FieldMonth, snap.Reference.String(),
		applog.FieldMatchCount, len(snap.Records),
		applog.FieldGroupCount, snap.GroupCount())

	writeJSON(w, r, newHistoryView(snap, s.theme, s.imageProxy))
}

// handleSeasons pages the month selector: ?index=N&direction=previous|next.
// Without a direction the page at index is returned unchanged.
func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request) {
	index, err := parseNonNegative(r, "index", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var direction history.Direction
	if d := sanitizeInput(r.URL.Query().Get("direction")); d != "" {
		direction, err = history.ParseDirection(d)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	page, err := s.history.Season(r.Context(), index, direction)
	if err != nil {
		s.backendError(w, r, "Failed to page seasons", err)
		return
	}
	writeJSON(w, r, page)
}

// handleMonthMatches lists the matches of one month.
func (s *Server) handleMonthMatches(w http.ResponseWriter, r *http.Request) {
	month, ok, err := parseYearMonth(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeError(w, r, http.StatusBadRequest, "year and month are required")
		return
	}

	ms, err := s.history.MatchesFor(r.Context(), month)
	if err != nil {
		s.backendError(w, r, "Failed to list month matches", err)
		return
	}
	writeJSON(w, r, monthMatchesView{Month: month, Matches: newMatchViews(ms, s.imageProxy)})
}

// handleMatch returns one match for the result screen.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid match id")
		return
	}

	m, err := s.history.Match(r.Context(), id)
	switch {
	case errors.Is(err, matches.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "match not found")
		return
	case errors.Is(err, services.ErrNoMatchGetter):
		writeError(w, r, http.StatusNotImplemented, err.Error())
		return
	case err != nil:
		s.backendError(w, r, "Failed to load match", err)
		return
	}
	writeJSON(w, r, newMatchView(m, s.imageProxy))
}

// backendError logs err and answers 502: the history source is upstream of us.
func (s *Server) backendError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), msg,
		applog.FieldPath, r.URL.Path,
		applog.FieldError, err)
	writeError(w, r, http.StatusBadGateway, "match history unavailable")
}
