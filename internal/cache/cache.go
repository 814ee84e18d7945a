// Package cache holds the in-process caches in front of the history
// backends and the janitor that sweeps them.
package cache

import (
	"sync"
	"time"

	applog "matchday/internal/log"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Purge()
	Len() int
}

// Cleaner is a cache the Manager can sweep.
type Cleaner interface {
	CleanExpired() int
	Stats() Stats
}

// Manager periodically sweeps registered caches until stopped.
type Manager struct {
	logger *applog.Logger

	mu      sync.Mutex
	caches  []Cleaner
	stop    chan struct{}
	done    chan struct{}
	stopped sync.Once
}

func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Manager{
		logger: logger.WithComponent(applog.ComponentCache),
		stop:   make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup sweeps every interval in a background goroutine. Calling
// it more than once has no effect.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return
	}
	m.done = make(chan struct{})
	go m.loop(interval, m.done)
}

func (m *Manager) loop(interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		}
	}
}

// CleanAll runs one sweep and returns the number of entries removed.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	removed := 0
	for _, c := range caches {
		removed += c.CleanExpired()
	}
	return removed
}

// Stop ends the sweep loop and logs final hit counts. Safe to repeat.
func (m *Manager) Stop() {
	m.stopped.Do(func() {
		close(m.stop)
		m.mu.Lock()
		done, caches := m.done, m.caches
		m.mu.Unlock()
		if done != nil {
			<-done
		}
		for i, c := range caches {
			s := c.Stats()
			m.logger.Info("Cache stats",
				"cache", i,
				"hits", s.Hits,
				"misses", s.Misses,
				"evictions", s.Evictions,
				"expired", s.Expired)
		}
	})
}
