// Package ratelimit throttles API clients per key using the generic cell
// rate algorithm: each key stores only the theoretical arrival time of its
// next request.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type Config struct {
	// RequestsPerMinute is the sustained rate.
	RequestsPerMinute int
	// Burst is how many requests may arrive back to back; defaults to
	// RequestsPerMinute.
	Burst int
	// IdleTTL is how long an idle key is remembered.
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		IdleTTL:           10 * time.Minute,
		SweepInterval:     5 * time.Minute,
	}
}

// Limiter admits Burst requests at once and RequestsPerMinute sustained.
// Keys idle for IdleTTL are swept in the background until Stop.
type Limiter struct {
	interval  time.Duration // emission interval
	tolerance time.Duration // interval * burst
	idle      time.Duration
	now       func() time.Time

	mu      sync.Mutex
	tat     map[string]time.Time
	limited uint64

	stop     chan struct{}
	stopOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	interval := time.Minute / time.Duration(cfg.RequestsPerMinute)
	l := &Limiter{
		interval:  interval,
		tolerance: interval * time.Duration(cfg.Burst),
		idle:      cfg.IdleTTL,
		now:       cfg.Now,
		tat:       make(map[string]time.Time),
		stop:      make(chan struct{}),
	}
	go l.sweepEvery(cfg.SweepInterval)
	return l
}

// Take admits or refuses one request for key. A refusal carries the wait
// until the request would be admitted.
func (l *Limiter) Take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	tat := l.tat[key]
	if tat.Before(now) {
		tat = now
	}
	next := tat.Add(l.interval)
	if allowAt := next.Add(-l.tolerance); now.Before(allowAt) {
		l.limited++
		return false, allowAt.Sub(now)
	}
	l.tat[key] = next
	return true, 0
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idle)
	removed := 0
	for key, tat := range l.tat {
		if tat.Before(cutoff) {
			delete(l.tat, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Stats struct {
	Limited uint64
	Clients int
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Limited: l.limited, Clients: len(l.tat)}
}

// Middleware rejects requests over the limit with 429 and Retry-After in
// whole seconds, rounded up. onLimit writes the body; nil uses http.Error.
func (l *Limiter) Middleware(key func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Take(key(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
