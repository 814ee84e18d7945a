// Package backend selects where match history is read from: the booking
// API, a local SQLite mirror, or an in-memory fixture set.
package backend

import (
	"context"
	"time"

	"matchday/internal/matches"
)

// Backend serves history listings and single-match lookups.
type Backend interface {
	matches.HistoryReader
	matches.MatchGetter
}

// BackendResult is what a factory hands back. Writer is nil when the
// backend is read-only; Cleanup may be nil too.
type BackendResult struct {
	Backend Backend
	Writer  matches.MatchWriter
	Cleanup func() error
}

// Close runs Cleanup if one was set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config carries only the settings of the chosen Type; see FromAppConfig.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	SeedFile     string

	BookingAPIURL     string
	BookingAPIToken   string
	BookingAPITimeout time.Duration
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	APIBackend    BackendType = "api"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	for _, t := range Types() {
		if t == bt {
			return true
		}
	}
	return false
}
