package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"matchday/internal/core"
	"matchday/internal/history"
	applog "matchday/internal/log"
	"matchday/internal/matches"
)

type fakeReader struct {
	mu      sync.Mutex
	matches []core.Match
	err     error
	calls   int
}

func (f *fakeReader) ListMatchHistory(context.Context) ([]core.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]core.Match(nil), f.matches...), f.err
}

func (f *fakeReader) GetMatch(_ context.Context, id int64) (core.Match, error) {
	for _, m := range f.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return core.Match{}, matches.ErrNotFound
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func sampleMatches() []core.Match {
	return []core.Match{
		{ID: 1, StartTime: "2025-01-15T10:00:00"},
		{ID: 2, StartTime: "2025-01-20T18:00:00"},
		{ID: 3, StartTime: "2025-03-01T10:00:00"},
		{ID: 4, StartTime: "2025-06-10T10:00:00"},
		{ID: 5, StartTime: "broken"},
		{ID: 6, StartTime: "2025-08-02T10:00:00"},
		{ID: 7, StartTime: "2025-04-05T10:00:00"},
	}
}

func newService(reader *fakeReader, ttl time.Duration, now time.Time) *HistoryService {
	svc, _ := NewHistoryService(reader, reader, HistoryConfig{
		Location: time.UTC,
		CacheTTL: ttl,
		Now:      func() time.Time { return now },
	}, quietLogger())
	return svc
}

func TestHistoryServiceOverview(t *testing.T) {
	reader := &fakeReader{matches: sampleMatches()}
	svc := newService(reader, 0, time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC))

	snap, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(snap.Months) != 5 || snap.GroupCount() != 2 {
		t.Fatalf("months=%v groups=%d", snap.Months, snap.GroupCount())
	}
	if snap.CurrentGroupIndex != 1 {
		t.Fatalf("CurrentGroupIndex = %d, want 1", snap.CurrentGroupIndex)
	}
	if snap.Selected == nil || *snap.Selected != (history.Month{Year: 2025, Month: time.June}) {
		t.Fatalf("Selected = %v", snap.Selected)
	}
	if len(snap.Records) != 1 || snap.Records[0].ID != 4 {
		t.Fatalf("Records = %+v", snap.Records)
	}
}

func TestHistoryServiceMonthWithoutMatches(t *testing.T) {
	reader := &fakeReader{matches: sampleMatches()}
	svc := newService(reader, 0, time.Now())

	feb := history.Month{Year: 2025, Month: time.February}
	snap, err := svc.Month(context.Background(), feb)
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if snap.Selected != nil || snap.CurrentGroupIndex != 0 || len(snap.Records) != 0 {
		t.Fatalf("unexpected empty-month snapshot: %+v", snap)
	}
	if snap.Reference != feb {
		t.Fatalf("Reference = %v, want %v", snap.Reference, feb)
	}
}

func TestHistoryServiceSeason(t *testing.T) {
	reader := &fakeReader{matches: sampleMatches()}
	svc := newService(reader, 0, time.Now())
	ctx := context.Background()

	page, err := svc.Season(ctx, 0, history.Next)
	if err != nil {
		t.Fatalf("Season: %v", err)
	}
	if page.Index != 1 || page.Count != 2 || len(page.Months) != 2 || page.CanNext || !page.CanPrevious {
		t.Fatalf("unexpected page: %+v", page)
	}

	page, _ = svc.Season(ctx, 1, history.Next)
	if page.Index != 1 {
		t.Fatalf("next at last page should stay, got %d", page.Index)
	}
	page, _ = svc.Season(ctx, 0, history.Previous)
	if page.Index != 0 || page.CanPrevious || !page.CanNext {
		t.Fatalf("previous at first page should stay: %+v", page)
	}

	empty := newService(&fakeReader{}, 0, time.Now())
	page, err = empty.Season(ctx, 3, history.Next)
	if err != nil || page.Index != 0 || page.Count != 0 || page.Months == nil {
		t.Fatalf("empty history page = %+v, %v", page, err)
	}
}

func TestHistoryServiceMatchesFor(t *testing.T) {
	reader := &fakeReader{matches: sampleMatches()}
	svc := newService(reader, 0, time.Now())

	got, err := svc.MatchesFor(context.Background(), history.Month{Year: 2025, Month: time.January})
	if err != nil {
		t.Fatalf("MatchesFor: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("unexpected matches: %+v", got)
	}
}

func TestHistoryServiceCaching(t *testing.T) {
	reader := &fakeReader{matches: sampleMatches()}
	svc := newService(reader, time.Minute, time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Overview(ctx); err != nil {
			t.Fatalf("Overview: %v", err)
		}
	}
	if reader.calls != 1 {
		t.Fatalf("reader called %d times, want 1", reader.calls)
	}

	records, err := svc.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	records[0].StartTime = "mutated"
	again, _ := svc.Records(ctx)
	if len(again) != len(sampleMatches()) || again[0].StartTime != sampleMatches()[0].StartTime {
		t.Fatalf("caller mutation reached the cache: %+v", again[0])
	}
	if reader.calls != 1 {
		t.Fatalf("reader called %d times, want 1", reader.calls)
	}

	svc.Invalidate()
	if _, err := svc.Overview(ctx); err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if reader.calls != 2 {
		t.Fatalf("reader called %d times after invalidate, want 2", reader.calls)
	}
}

func TestHistoryServiceErrors(t *testing.T) {
	boom := errors.New("backend down")
	svc := newService(&fakeReader{err: boom}, time.Minute, time.Now())
	if _, err := svc.Overview(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}

	noGetter, _ := NewHistoryService(&fakeReader{}, nil, HistoryConfig{}, quietLogger())
	if _, err := noGetter.Match(context.Background(), 1); !errors.Is(err, ErrNoMatchGetter) {
		t.Fatalf("expected ErrNoMatchGetter, got %v", err)
	}
}

func TestHistoryServiceMatch(t *testing.T) {
	reader := &fakeReader{matches: sampleMatches()}
	svc := newService(reader, 0, time.Now())
	if m, err := svc.Match(context.Background(), 3); err != nil || m.ID != 3 {
		t.Fatalf("Match(3) = %+v, %v", m, err)
	}
	if _, err := svc.Match(context.Background(), 99); !errors.Is(err, matches.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
