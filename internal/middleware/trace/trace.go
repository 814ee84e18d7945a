// Package trace tags every request with an id, carries it in the context
// and logs the outcome.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "matchday/internal/log"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// incoming ids are reused only when they look like ids
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{8,64}$`)

type Metrics struct {
	TotalRequests int64
	TotalErrors   int64 // 5xx only
	// AverageResponseTime is in microseconds.
	AverageResponseTime int64
}

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *applog.Logger
	events   *applog.Events

	requests atomic.Int64
	errors   atomic.Int64
	micros   atomic.Int64
}

// NewMiddleware builds the tracer. clientIP may be nil.
func NewMiddleware(clientIP func(*http.Request) string, logger *applog.Logger) *Middleware {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	return &Middleware{clientIP: clientIP, logger: logger, events: applog.NewEvents(logger)}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(id) {
			id = NewRequestID()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = applog.With(applog.NewContext(ctx, m.logger), applog.FieldRequestID, id)
		r = r.WithContext(ctx)

		var ip string
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		m.observe(elapsed, sw.status())
		m.events.RequestCompleted(ctx, r, sw.status(), elapsed.Milliseconds(), ip)
	})
}

func (m *Middleware) observe(d time.Duration, status int) {
	m.requests.Add(1)
	m.micros.Add(d.Microseconds())
	if status >= 500 {
		m.errors.Add(1)
	}
}

func (m *Middleware) GetMetrics() Metrics {
	out := Metrics{TotalRequests: m.requests.Load(), TotalErrors: m.errors.Load()}
	if out.TotalRequests > 0 {
		out.AverageResponseTime = m.micros.Load() / out.TotalRequests
	}
	return out
}

// statusWriter records the first status written; none means 200.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func NewRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID returns the id assigned by the middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
