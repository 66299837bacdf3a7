package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dezh-tech/immortal/pkg/logger"

	"ephemera/internal/application/release"
	"ephemera/internal/domain/entity"
	"ephemera/internal/domain/model"
	"ephemera/internal/domain/repository/broker"
	"ephemera/internal/domain/repository/database"
	"ephemera/internal/domain/repository/minio"
)

const defaultWorkers = 4

// Coordinator removes the blobs of deleted records. Events arrive on a queue
// at least once; removing a blob twice is harmless.
type Coordinator struct {
	receiver broker.Receiver
	ledger   database.OrphanLedger
	releaser *release.Releaser
	workers  int
	consumer string
}

type RetryResult struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Remaining int `json:"remaining"`
}

func NewCoordinator(receiver broker.Receiver, remover minio.Remover, ledger database.OrphanLedger,
	cfg Config,
) *Coordinator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = "reconciler"
	}

	r := release.New(remover, cfg.Policy(), cfg.BlobConcurrency)
	r.OnRetry(func(string) { blobRetriesTotal.Inc() })

	return &Coordinator{
		receiver: receiver,
		ledger:   ledger,
		releaser: r,
		workers:  workers,
		consumer: consumer,
	}
}

// Run consumes the queue with a fixed pool of workers until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		name := fmt.Sprintf("%s-%d", c.consumer, i)

		msgs, err := c.receiver.Messages(ctx, name)
		if err != nil {
			cancel()
			wg.Wait()

			return fmt.Errorf("subscribe %s: %w", name, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			for msg := range msgs {
				c.handle(ctx, msg)
			}
		}()
	}

	logger.Info("reconciliation coordinator started", "workers", c.workers)
	wg.Wait()
	logger.Info("reconciliation coordinator stopped")

	return nil
}

func (c *Coordinator) handle(ctx context.Context, msg broker.Message) {
	var ev entity.DeletionEvent
	if err := json.Unmarshal([]byte(msg.Body()), &ev); err != nil || ev.RecordID == "" {
		logger.Error("dropping malformed deletion event", "body", msg.Body(), "err", err)
		eventsMalformedTotal.Inc()

		if err := msg.Ack(); err != nil {
			logger.Error("failed to ack message", "err", err)
		}

		return
	}

	if err := c.Process(ctx, ev); err != nil {
		logger.Warn("deletion event left for redelivery", "record_id", ev.RecordID, "err", err)
		eventsRedeliveredTotal.Inc()

		if err := msg.Nack(); err != nil {
			logger.Error("failed to nack message", "record_id", ev.RecordID, "err", err)
		}

		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error("failed to ack message", "record_id", ev.RecordID, "err", err)

		return
	}
	eventsProcessedTotal.Inc()
}

// Process removes every blob of ev. A non-nil error means the event must be
// delivered again.
func (c *Coordinator) Process(ctx context.Context, ev entity.DeletionEvent) error {
	start := time.Now()
	defer func() { eventDurationSeconds.Observe(time.Since(start).Seconds()) }()

	_, err := c.ReleaseBlobs(ctx, ev.RecordID, ev.BlobIDs())

	return err
}

// ReleaseBlobs removes blobIDs with retries and records the ones that run out
// of attempts in the orphan ledger. It returns how many blobs were removed.
func (c *Coordinator) ReleaseBlobs(ctx context.Context, recordID string, blobIDs []string) (int, error) {
	if len(blobIDs) == 0 {
		return 0, nil
	}

	failures := c.releaser.Release(ctx, blobIDs)
	removed := len(blobIDs) - len(failures)
	blobsDeletedTotal.Add(float64(removed))

	if len(failures) > 0 && ctx.Err() != nil {
		return removed, ctx.Err()
	}

	for _, f := range failures {
		logger.Error("giving up on blob", "record_id", recordID, "blob_id", f.BlobID,
			"attempts", f.Attempts, "err", f.Err)

		err := c.ledger.Record(ctx, &model.Orphan{
			RecordID:  recordID,
			BlobID:    f.BlobID,
			LastError: f.Err.Error(),
			Attempts:  f.Attempts,
		})
		if err != nil {
			return removed, fmt.Errorf("record orphan %s: %w", f.BlobID, err)
		}
		orphansRecordedTotal.Inc()
	}

	return removed, nil
}

// RetryOrphans retries up to limit unresolved ledger entries, oldest first,
// and resolves the ones whose blob is now gone.
func (c *Coordinator) RetryOrphans(ctx context.Context, limit int64) (*RetryResult, error) {
	orphans, err := c.ledger.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}

	result := &RetryResult{Attempted: len(orphans)}
	if len(orphans) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(orphans))
	for _, o := range orphans {
		ids = append(ids, o.BlobID)
	}

	failed := make(map[string]struct{})
	for _, f := range c.releaser.Release(ctx, ids) {
		failed[f.BlobID] = struct{}{}
	}

	for _, o := range orphans {
		if _, ok := failed[o.BlobID]; ok {
			result.Remaining++

			continue
		}

		if err := c.ledger.Resolve(ctx, o.ID); err != nil {
			return result, fmt.Errorf("resolve orphan %s: %w", o.ID, err)
		}
		result.Resolved++
		orphansResolvedTotal.Inc()
	}

	logger.Info("retried orphans", "attempted", result.Attempted, "resolved", result.Resolved,
		"remaining", result.Remaining)

	return result, nil
}
