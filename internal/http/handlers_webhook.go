package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"matchday/internal/core"
	applog "matchday/internal/log"
	"matchday/internal/services"
)

const maxWebhookBody = 64 << 10

// handleMatchCompleted ingests a finished match pushed by the booking system.
func (s *Server) handleMatchCompleted(w http.ResponseWriter, r *http.Request) {
	if !s.webhookAuthorized(r) {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var m core.Match
	if err := dec.Decode(&m); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if m.Venue != nil {
		m.Venue.Name = sanitizeInput(m.Venue.Name)
		m.Venue.Address = sanitizeInput(m.Venue.Address)
	}

	err := s.ingest.Ingest(r.Context(), m, "webhook")
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNoSink):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	case isValidationError(err):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to ingest match",
			applog.FieldMatchID, m.ID,
			applog.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "failed to ingest match")
		return
	}

	NewJSONResponse().
		Status(http.StatusAccepted).
		Data(map[string]int64{"id": m.ID}).
		Write(w, r)
}

// webhookAuthorized checks "Authorization: Bearer <token>" when a token is set.
func (s *Server) webhookAuthorized(r *http.Request) bool {
	if s.webhookToken == "" {
		return true
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.webhookToken)) == 1
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidMatchID,
		core.ErrEmptyStartTime,
		core.ErrNegativeScore,
		core.ErrVenueNameLength,
		services.ErrInvalidStartTime,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
