package booking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"matchday/internal/matches"
)

var _ matches.HistoryReader = (*Client)(nil)
var _ matches.MatchGetter = (*Client)(nil)

func TestClientListMatchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/matches/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "start_time": "2025-01-15T10:00:00", "venue": {"name": "Арена"}},
			{"id": 2, "start_time": "2025-03-01T18:00:00", "results": {"winning_team": "draw"}}
		]`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/api/", Token: "secret"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := c.ListMatchHistory(context.Background())
	if err != nil {
		t.Fatalf("ListMatchHistory: %v", err)
	}
	if len(got) != 2 || got[0].VenueName() != "Арена" || !got[1].HasResults() {
		t.Fatalf("unexpected matches: %+v", got)
	}
}

func TestClientCollapsesConcurrentLoads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`[{"id": 1, "start_time": "2025-01-15T10:00:00"}]`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ListMatchHistory(context.Background()); err != nil {
				t.Errorf("ListMatchHistory: %v", err)
			}
		}()
	}
	// let the goroutines join the in-flight call before answering
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single upstream request, got %d", n)
	}
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/matches/7":
			http.NotFound(w, r)
		case "/matches/8":
			w.Write([]byte(`{"id": 8, "start_time": "2025-02-02T10:00:00"}`))
		case "/matches/history":
			http.Error(w, "boom", http.StatusBadGateway)
		default:
			w.Write([]byte(`{broken`))
		}
	}))
	defer srv.Close()

	c, _ := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, nil)
	ctx := context.Background()

	if _, err := c.GetMatch(ctx, 7); !errors.Is(err, matches.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if m, err := c.GetMatch(ctx, 8); err != nil || m.ID != 8 {
		t.Fatalf("GetMatch(8) = %+v, %v", m, err)
	}
	if _, err := c.ListMatchHistory(ctx); !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
	if _, err := c.GetMatch(ctx, 9); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "ftp://example.com"}, nil); err == nil {
		t.Fatalf("expected scheme error")
	}
}
