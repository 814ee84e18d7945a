package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"matchday/internal/cache"
	"matchday/internal/core"
	"matchday/internal/history"
	applog "matchday/internal/log"
	"matchday/internal/matches"
)

const historyCacheKey = "history"

// ErrNoMatchGetter is returned by Match when the backend cannot look up single matches.
var ErrNoMatchGetter = errors.New("backend does not support match lookup")

// HistoryConfig configures HistoryService.
type HistoryConfig struct {
	Location *time.Location
	PageSize int
	// CacheTTL of zero disables caching of the loaded record set.
	CacheTTL time.Duration
	// Now overrides the clock used to pick the current month.
	Now func() time.Time
}

// SeasonPage is one page of the month selector.
type SeasonPage struct {
	Index       int                `json:"index"`
	Count       int                `json:"count"`
	Months      history.MonthGroup `json:"months"`
	CanPrevious bool               `json:"can_previous"`
	CanNext     bool               `json:"can_next"`
}

// HistoryService builds the match history views from a backend.
type HistoryService struct {
	reader  matches.HistoryReader
	getter  matches.MatchGetter
	grouper *history.Grouper[core.Match]
	cache   cache.Cache[[]core.Match]
	now     func() time.Time
	logger  *applog.Logger
	events  *applog.Events
}

// NewHistoryService wires a reader and optional getter. The returned cache
// cleaner is nil when caching is disabled.
func NewHistoryService(reader matches.HistoryReader, getter matches.MatchGetter, cfg HistoryConfig, logger *applog.Logger) (*HistoryService, cache.Cleaner) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHistory)

	s := &HistoryService{
		reader: reader,
		getter: getter,
		grouper: history.NewGrouper[core.Match](history.Config{
			Location: cfg.Location,
			PageSize: cfg.PageSize,
		}),
		now:    cfg.Now,
		logger: logger,
		events: applog.NewEvents(logger),
	}
	if s.now == nil {
		s.now = time.Now
	}

	var cleaner cache.Cleaner
	if cfg.CacheTTL > 0 {
		lru := cache.NewLRUCache[[]core.Match](1, cfg.CacheTTL)
		s.cache = lru
		cleaner = lru
	}
	return s, cleaner
}

// Grouper exposes the grouper used by the service.
func (s *HistoryService) Grouper() *history.Grouper[core.Match] {
	return s.grouper
}

// Records returns the full record set, from cache when fresh. The caller
// owns the returned slice.
func (s *HistoryService) Records(ctx context.Context) ([]core.Match, error) {
	if s.cache != nil {
		if records, ok := s.cache.Get(historyCacheKey); ok {
			s.logger.DebugContext(ctx, "History served from cache",
				applog.FieldCacheHit, true,
				applog.FieldMatchCount, len(records))
			return slices.Clone(records), nil
		}
	}

	records, err := s.reader.ListMatchHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list match history: %w", err)
	}

	invalid := s.grouper.Invalid(records)
	for _, bad := range invalid {
		s.events.RecordExcluded(ctx, records[bad.Index].ID, bad.Value, bad.Err)
	}

	s.logger.InfoContext(ctx, "History loaded",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldMatchCount, len(records),
		applog.FieldInvalidCount, len(invalid),
		applog.FieldCacheHit, false)

	if s.cache != nil {
		s.cache.Set(historyCacheKey, slices.Clone(records))
	}
	return records, nil
}

// Overview returns the history opened on the current month.
func (s *HistoryService) Overview(ctx context.Context) (history.Snapshot[core.Match], error) {
	records, err := s.Records(ctx)
	if err != nil {
		return history.Snapshot[core.Match]{}, err
	}
	return s.grouper.Load(records, s.now()), nil
}

// Month returns the history opened on month.
func (s *HistoryService) Month(ctx context.Context, month history.Month) (history.Snapshot[core.Match], error) {
	records, err := s.Records(ctx)
	if err != nil {
		return history.Snapshot[core.Match]{}, err
	}
	return s.grouper.LoadMonth(records, month), nil
}

// Season pages from index one step in direction. Boundaries and an empty
// history leave the index where it is.
func (s *HistoryService) Season(ctx context.Context, index int, direction history.Direction) (SeasonPage, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return SeasonPage{}, err
	}
	groups := s.grouper.GroupMonths(s.grouper.ExtractMonths(records))

	next := history.Navigate(direction, index, len(groups))
	page := SeasonPage{
		Index:  next,
		Count:  len(groups),
		Months: history.MonthGroup{},
	}
	if len(groups) > 0 {
		page.Months = groups[next]
		page.CanPrevious = next > 0
		page.CanNext = next < len(groups)-1
	}

	s.logger.DebugContext(ctx, "Season navigated",
		applog.FieldOperation, applog.OpNavigate,
		applog.FieldDirection, direction.String(),
		applog.FieldGroupIndex, next,
		applog.FieldGroupCount, len(groups))

	return page, nil
}

// MatchesFor returns the matches started in month, in backend order.
func (s *HistoryService) MatchesFor(ctx context.Context, month history.Month) ([]core.Match, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	return s.grouper.FilterByMonth(records, month), nil
}

// Match returns a single match.
func (s *HistoryService) Match(ctx context.Context, id int64) (core.Match, error) {
	if s.getter == nil {
		return core.Match{}, ErrNoMatchGetter
	}
	return s.getter.GetMatch(ctx, id)
}

// Invalidate drops the cached record set.
func (s *HistoryService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}
