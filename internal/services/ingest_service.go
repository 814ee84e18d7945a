package services

import (
	"context"
	"errors"
	"fmt"

	"matchday/internal/amqp"
	"matchday/internal/core"
	"matchday/internal/history"
	applog "matchday/internal/log"
	"matchday/internal/matches"
)

var (
	// ErrNoSink is returned when neither a store nor a broker is configured.
	ErrNoSink = errors.New("no store or broker configured for ingestion")
	// ErrInvalidStartTime marks a match whose start time cannot be parsed.
	ErrInvalidStartTime = errors.New("invalid start time")
)

// Publisher announces completed matches.
type Publisher interface {
	PublishMatchCompleted(ctx context.Context, msg *amqp.MatchCompletedMessage) error
}

// IngestService records completed matches locally and announces them on the
// broker. Either side may be absent.
type IngestService struct {
	writer    matches.MatchWriter
	publisher Publisher
	onIngest  []func()
	logger    *applog.Logger
}

func NewIngestService(writer matches.MatchWriter, publisher Publisher, logger *applog.Logger) *IngestService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &IngestService{
		writer:    writer,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentIngest),
	}
}

// OnIngest registers fn to run after a match was stored.
func (s *IngestService) OnIngest(fn func()) {
	s.onIngest = append(s.onIngest, fn)
}

// Ingest validates m, stores it and publishes it. A publish failure after a
// successful store is logged, not returned.
func (s *IngestService) Ingest(ctx context.Context, m core.Match, source string) error {
	if s.writer == nil && s.publisher == nil {
		return ErrNoSink
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := history.ParseTimestamp(m.StartTime, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStartTime, err)
	}

	if s.writer != nil {
		if err := s.writer.UpsertMatch(ctx, m); err != nil {
			return fmt.Errorf("save match: %w", err)
		}
		for _, fn := range s.onIngest {
			fn()
		}
	}

	if s.publisher != nil {
		err := s.publisher.PublishMatchCompleted(ctx, amqp.NewMatchCompletedMessage(m, source))
		if err != nil {
			if s.writer == nil {
				return fmt.Errorf("publish match: %w", err)
			}
			s.logger.ErrorContext(ctx, "Failed to publish match completed message",
				applog.FieldMatchID, m.ID,
				applog.FieldOperation, applog.OpPublish,
				applog.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "Match ingested",
		applog.FieldMatchID, m.ID,
		applog.FieldStartTime, m.StartTime,
		"source", source,
		"stored", s.writer != nil,
		"published", s.publisher != nil)

	return nil
}
