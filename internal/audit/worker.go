package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink receives published audit payloads. Implemented by KafkaSink; tests
// supply a recording fake.
type Sink interface {
	Publish(ctx context.Context, category string, payload []byte) error
}

// OutboxRow is one unpublished event as the worker sees it.
type OutboxRow struct {
	ID       uuid.UUID
	Category string
	Payload  []byte
}

// OutboxSource is the slice of the postgres store the worker needs.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Worker drains the outbox to the sink and enforces retention. One instance
// runs per process; duplicate publishes after a crash are possible and
// consumers must treat event IDs as idempotency keys.
type Worker struct {
	source    OutboxSource
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	batchSize int
}

func NewWorker(source OutboxSource, sink Sink, logger *slog.Logger, interval, retention time.Duration) *Worker {
	return &Worker{
		source:    source,
		sink:      sink,
		logger:    logger,
		interval:  interval,
		retention: retention,
		batchSize: 100,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
			if purged, err := w.source.PurgeOlderThan(ctx, time.Now().Add(-w.retention)); err != nil {
				w.logger.ErrorContext(ctx, "audit retention purge failed", "error", err)
			} else if purged > 0 {
				w.logger.InfoContext(ctx, "audit retention purge", "purged", purged)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	rows, err := w.source.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		return err
	}

	published := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if err := w.sink.Publish(ctx, row.Category, row.Payload); err != nil {
			// Stop on first failure; unpublished rows stay in the outbox and
			// are retried next tick.
			w.logger.WarnContext(ctx, "audit publish failed, will retry", "error", err, "event_id", row.ID)
			break
		}
		published = append(published, row.ID)
	}

	if len(published) > 0 {
		return w.source.MarkPublished(ctx, published, time.Now())
	}
	return nil
}
