package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"matchday/internal/core"
	"matchday/internal/matches"
)

var _ matches.Store = (*Store)(nil)

func TestMemoryStoreUpsertAndList(t *testing.T) {
	ctx := context.Background()
	s := New([]core.Match{
		{ID: 1, StartTime: "2025-01-05T10:00:00"},
		{ID: 2, StartTime: "2025-03-01T10:00:00"},
	})

	if err := s.UpsertMatch(ctx, core.Match{ID: 3, StartTime: "2025-06-10T18:00:00"}); err != nil {
		t.Fatalf("upsert new: %v", err)
	}
	if err := s.UpsertMatch(ctx, core.Match{ID: 1, StartTime: "2025-01-06T10:00:00"}); err != nil {
		t.Fatalf("upsert existing: %v", err)
	}

	got, err := s.ListMatchHistory(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].ID != 1 || got[2].ID != 3 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].StartTime != "2025-01-06T10:00:00" {
		t.Fatalf("upsert did not replace in place: %q", got[0].StartTime)
	}

	// callers own the returned slice
	got[0].ID = 99
	if m, _ := s.GetMatch(ctx, 1); m.ID != 1 {
		t.Fatalf("store mutated through list result")
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New(nil)
	err := s.UpsertMatch(context.Background(), core.Match{ID: 0, StartTime: "2025-01-01"})
	if !errors.Is(err, core.ErrInvalidMatchID) {
		t.Fatalf("expected ErrInvalidMatchID, got %v", err)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := New(nil)
	if _, err := s.GetMatch(context.Background(), 7); !errors.Is(err, matches.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file should yield empty store: %v", err)
	}
	if got, _ := s.ListMatchHistory(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty store, got %d", len(got))
	}

	path := filepath.Join(dir, "matches.json")
	seed := `[
  {"id": 10, "start_time": "2025-01-15T10:00:00", "end_time": "2025-01-15T12:00:00",
   "venue": {"name": "Арена", "image_url": "hhttps://cdn.example.com/a.jpg"},
   "results": {"winning_team": "red", "red_team_score": 3, "green_team_score": 1}},
  {"id": 11, "start_time": "garbage"}
]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	got, _ := s.ListMatchHistory(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 seeded matches, got %d", len(got))
	}
	if got[0].Venue == nil || got[0].Venue.Name != "Арена" || got[0].Results.WinningTeam != core.TeamRed {
		t.Fatalf("unexpected seeded match: %+v", got[0])
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
