// Package http serves the match history JSON API consumed by the Telegram
// Mini App.
//
// This file implements a small builder for JSON responses so handlers share
// one encoding and error format.

package http

import (
	"encoding/json"
	"net/http"

	applog "matchday/internal/log"
)

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header sets a custom header.
func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Data sets the value encoded as the body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Error sets an ErrorBody with the given status.
func (b *JSONResponseBuilder) Error(code int, msg, requestID string) *JSONResponseBuilder {
	b.statusCode = code
	b.body = ErrorBody{Error: msg, RequestID: requestID}
	return b
}

// Write writes the response to w. Encoding failures are logged; the status
// line has already been sent by then.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(b.statusCode)

	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil && r != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response",
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
	}
}

// writeJSON is a shortcut for a 200 response carrying v.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	NewJSONResponse().Data(v).Write(w, r)
}

// writeError writes an ErrorBody tagged with the request id.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	NewJSONResponse().Error(status, msg, requestIDOf(r)).Write(w, r)
}
