package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"matchday/internal/core"
	"matchday/internal/matches"
)

// Store keeps matches in memory in insertion order. Upserting an existing
// id replaces it in place.
type Store struct {
	mu    sync.Mutex
	index map[int64]int
	items []core.Match
}

func New(seed []core.Match) *Store {
	s := &Store{index: make(map[int64]int, len(seed))}
	for _, m := range seed {
		s.put(m)
	}
	return s
}

// NewFromFile seeds the store from a JSON array of matches in the booking
// API shape. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Match
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return New(seed), nil
}

// ListMatchHistory implements matches.HistoryReader
func (s *Store) ListMatchHistory(_ context.Context) ([]core.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Match(nil), s.items...), nil
}

// GetMatch implements matches.MatchGetter
func (s *Store) GetMatch(_ context.Context, id int64) (core.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return core.Match{}, fmt.Errorf("match %d: %w", id, matches.ErrNotFound)
	}
	return s.items[i], nil
}

// UpsertMatch implements matches.MatchWriter
func (s *Store) UpsertMatch(_ context.Context, m core.Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(m)
	return nil
}

func (s *Store) put(m core.Match) {
	if i, ok := s.index[m.ID]; ok {
		s.items[i] = m
		return
	}
	s.index[m.ID] = len(s.items)
	s.items = append(s.items, m)
}
