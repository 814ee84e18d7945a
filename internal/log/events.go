package log

import (
	"context"
	"log/slog"
	"net/http"
)

// Events emits the log lines whose attribute set is fixed.
type Events struct {
	logger *Logger
}

func NewEvents(logger *Logger) *Events {
	return &Events{logger: logger}
}

// RequestCompleted logs a finished HTTP request at a level derived from
// the status: 5xx is an error, 4xx a warning. A logger carried by ctx is
// preferred so request-scoped attributes are kept.
func (e *Events) RequestCompleted(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	a := attrs{}.
		request(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		response(status, durationMs).
		clientIP(clientIP)
	logger := e.logger
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		logger = l
	}
	logger.LogAttrs(ctx, level, "HTTP request completed", a...)
}

// RecordExcluded logs a match dropped from the history for a bad timestamp.
func (e *Events) RecordExcluded(ctx context.Context, id int64, startTime string, err error) {
	a := attrs{}.match(id, startTime).err(err).op(OpValidate)
	e.logger.LogAttrs(ctx, slog.LevelWarn, "Match excluded from history", a...)
}
