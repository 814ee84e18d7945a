package worker

import (
	"context"
	"fmt"
	"time"

	"matchday/internal/amqp"
	"matchday/internal/history"
	applog "matchday/internal/log"
	"matchday/internal/matches"
)

// Counter reports how many matches are stored.
type Counter interface {
	CountMatches(ctx context.Context) (int64, error)
}

// IngestWorker stores matches announced on the broker.
type IngestWorker struct {
	writer  matches.MatchWriter
	counter Counter
	logger  *applog.Logger
}

func NewIngestWorker(writer matches.MatchWriter, counter Counter, logger *applog.Logger) *IngestWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &IngestWorker{
		writer:  writer,
		counter: counter,
		logger:  logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMatchCompleted processes a single match completed message from AMQP.
// Invalid matches are logged and acknowledged; storage errors are returned so
// the message is redelivered.
func (w *IngestWorker) HandleMatchCompleted(ctx context.Context, msg *amqp.MatchCompletedMessage) error {
	m := msg.Match

	if err := m.Validate(); err != nil {
		w.logger.WarnContext(ctx, "Discarding invalid match",
			applog.FieldMatchID, m.ID,
			"message_id", msg.MessageID,
			applog.FieldError, err)
		return nil
	}
	if _, err := history.ParseTimestamp(m.StartTime, nil); err != nil {
		w.logger.WarnContext(ctx, "Discarding match with unparseable start time",
			applog.FieldMatchID, m.ID,
			applog.FieldStartTime, m.StartTime,
			applog.FieldError, err)
		return nil
	}

	if err := w.writer.UpsertMatch(ctx, m); err != nil {
		return fmt.Errorf("store match %d: %w", m.ID, err)
	}

	w.logger.InfoContext(ctx, "Match stored",
		applog.FieldMatchID, m.ID,
		"message_id", msg.MessageID,
		"source", msg.Source,
		"lag", time.Since(msg.Timestamp).String())

	return nil
}

// ReportStats logs the stored match count every interval until ctx is done.
func (w *IngestWorker) ReportStats(ctx context.Context, interval time.Duration) error {
	if w.counter == nil {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := w.counter.CountMatches(ctx)
			if err != nil {
				w.logger.WarnContext(ctx, "Failed to count stored matches", applog.FieldError, err)
				continue
			}
			w.logger.InfoContext(ctx, "Stored matches", applog.FieldMatchCount, n)
		}
	}
}
