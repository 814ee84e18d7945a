package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *manualClock {
	return &manualClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLimiterRate(t *testing.T) {
	clock := newClock()
	l := NewLimiter(Config{RequestsPerMinute: 2, Now: clock.now})
	defer l.Stop()

	for i := 0; i < 2; i++ {
		if ok, _ := l.Take("a"); !ok {
			t.Fatalf("request %d should pass within the burst", i)
		}
	}
	ok, wait := l.Take("a")
	if ok || wait != 30*time.Second {
		t.Fatalf("over the limit: ok=%v wait=%v, want refused with 30s", ok, wait)
	}
	if ok, _ := l.Take("b"); !ok {
		t.Fatalf("clients are independent")
	}

	clock.advance(20 * time.Second)
	if ok, wait := l.Take("a"); ok || wait != 10*time.Second {
		t.Fatalf("partial refill: ok=%v wait=%v", ok, wait)
	}
	clock.advance(10 * time.Second)
	if ok, _ := l.Take("a"); !ok {
		t.Fatalf("request should be admitted after the interval")
	}

	// idle time never banks more than the burst
	clock.advance(time.Hour)
	for i := 0; i < 2; i++ {
		l.Take("a")
	}
	if ok, _ := l.Take("a"); ok {
		t.Fatalf("idle time banked past the burst")
	}

	if s := l.Stats(); s.Limited != 3 || s.Clients != 2 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestLimiterBurst(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, Burst: 3, Now: newClock().now})
	defer l.Stop()

	passed := 0
	for i := 0; i < 10; i++ {
		if ok, _ := l.Take("k"); ok {
			passed++
		}
	}
	if passed != 3 {
		t.Fatalf("passed %d requests, want burst of 3", passed)
	}
}

func TestLimiterSweep(t *testing.T) {
	clock := newClock()
	l := NewLimiter(Config{RequestsPerMinute: 5, IdleTTL: 10 * time.Minute, Now: clock.now})
	defer l.Stop()

	l.Take("old")
	clock.advance(11 * time.Minute)
	l.Take("fresh")

	if n := l.sweep(); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if s := l.Stats(); s.Clients != 1 {
		t.Fatalf("clients = %d, want 1", s.Clients)
	}
}

func TestLimiterMiddleware(t *testing.T) {
	clock := newClock()
	l := NewLimiter(Config{RequestsPerMinute: 1, Now: clock.now})
	defer l.Stop()
	l.Stop()

	h := l.Middleware(func(*http.Request) string { return "k" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}

	clock.advance(20*time.Second + 500*time.Millisecond)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "40" {
		t.Fatalf("Retry-After = %q, want 40", got)
	}
}
