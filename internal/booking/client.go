// Package booking reads match history from the remote booking API.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"matchday/internal/core"
	applog "matchday/internal/log"
	"matchday/internal/matches"
)

// ErrUnexpectedStatus wraps non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected booking API status")

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// Client implements matches.HistoryReader and matches.MatchGetter over HTTP.
// Concurrent history loads share one request.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	group  singleflight.Group
	logger *applog.Logger
}

func NewClient(cfg Config, logger *applog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse booking API URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("booking API URL must be http(s), got %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	return &Client{
		base:   base,
		token:  cfg.Token,
		http:   hc,
		logger: logger.WithComponent(applog.ComponentBooking),
	}, nil
}

// ListMatchHistory implements matches.HistoryReader
func (c *Client) ListMatchHistory(ctx context.Context) ([]core.Match, error) {
	v, err, shared := c.group.Do("history", func() (interface{}, error) {
		var out []core.Match
		if err := c.getJSON(ctx, "/matches/history", &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load match history: %w", err)
	}

	list := v.([]core.Match)
	c.logger.DebugContext(ctx, "Match history loaded",
		applog.FieldMatchCount, len(list),
		"shared", shared)

	// each caller gets its own slice header; the matches themselves are values
	return append([]core.Match(nil), list...), nil
}

// GetMatch implements matches.MatchGetter
func (c *Client) GetMatch(ctx context.Context, id int64) (core.Match, error) {
	var m core.Match
	err := c.getJSON(ctx, "/matches/"+strconv.FormatInt(id, 10), &m)
	if errors.Is(err, errNotFound) {
		return core.Match{}, fmt.Errorf("match %d: %w", id, matches.ErrNotFound)
	}
	if err != nil {
		return core.Match{}, fmt.Errorf("get match %d: %w", id, err)
	}
	return m, nil
}

var errNotFound = errors.New("not found")

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	u := *c.base
	u.Path = c.base.Path + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Booking API request failed",
			applog.FieldPath, path,
			applog.FieldError, err)
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Booking API responded",
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
