package matches

import (
	"context"
	"errors"

	"matchday/internal/core"
)

// ErrNotFound is returned by MatchGetter when no match has the requested id.
var ErrNotFound = errors.New("match not found")

// Ports for outbound adapters.
type (
	// HistoryReader returns the finished matches of the current user. The
	// order is the backend's natural order; grouping does not depend on it.
	HistoryReader interface {
		ListMatchHistory(ctx context.Context) ([]core.Match, error)
	}

	MatchGetter interface {
		GetMatch(ctx context.Context, id int64) (core.Match, error)
	}

	MatchWriter interface {
		UpsertMatch(ctx context.Context, m core.Match) error
	}

	// Store is implemented by backends that can both serve and record matches.
	Store interface {
		HistoryReader
		MatchGetter
		MatchWriter
	}
)
