package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dezh-tech/immortal/pkg/logger"

	"ephemera/internal/domain/entity"
	"ephemera/internal/domain/repository/broker"
	"ephemera/internal/domain/repository/database"
	"ephemera/pkg/retry"
)

var (
	ErrAlreadyRunning = errors.New("change feed watcher already running")

	errStreamClosed = errors.New("change stream closed")
)

// ScanTrigger asks for a full orphan scan without waiting for it.
type ScanTrigger interface {
	Trigger()
}

type Status struct {
	State            string     `json:"state"`
	EventsForwarded  int64      `json:"events_forwarded"`
	MissingPreImages int64      `json:"missing_pre_images"`
	Gaps             int64      `json:"gaps"`
	Reconnects       int64      `json:"reconnects"`
	LastEventAt      *time.Time `json:"last_event_at,omitempty"`
}

// Watcher forwards record deletions from the change stream to the
// reconciliation queue. A position is checkpointed only after its event was
// handed off, so a crash replays rather than loses events.
type Watcher struct {
	stream      database.DeletionStream
	checkpoints database.CheckpointStore
	publisher   broker.Publisher
	scans       ScanTrigger
	backoff     *backoff.ExponentialBackOff

	running     atomic.Bool
	state       atomic.Int32
	scanPending bool

	forwarded   atomic.Int64
	missingPre  atomic.Int64
	gaps        atomic.Int64
	reconnects  atomic.Int64
	lastEventAt atomic.Int64
}

func NewWatcher(stream database.DeletionStream, checkpoints database.CheckpointStore,
	publisher broker.Publisher, scans ScanTrigger, cfg Config,
) *Watcher {
	initial := time.Duration(cfg.ReconnectInitialInterval) * time.Millisecond
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}

	maxInterval := time.Duration(cfg.ReconnectMaxInterval) * time.Millisecond
	if maxInterval <= 0 {
		maxInterval = 30 * time.Second
	}

	return &Watcher{
		stream:      stream,
		checkpoints: checkpoints,
		publisher:   publisher,
		scans:       scans,
		backoff:     retry.Forever(initial, maxInterval),
	}
}

func (w *Watcher) State() State {
	return State(w.state.Load())
}

func (w *Watcher) Status() Status {
	s := Status{
		State:            w.State().String(),
		EventsForwarded:  w.forwarded.Load(),
		MissingPreImages: w.missingPre.Load(),
		Gaps:             w.gaps.Load(),
		Reconnects:       w.reconnects.Load(),
	}

	if ts := w.lastEventAt.Load(); ts > 0 {
		t := time.Unix(0, ts).UTC()
		s.LastEventAt = &t
	}

	return s
}

// Run follows the change stream until ctx is done, reconnecting with
// backoff on failure. Only one Run may be active per Watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)
	defer w.setState(StateDisconnected)

	for {
		err := w.follow(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if errors.Is(err, database.ErrResumePointLost) {
			w.setState(StateGapDetected)
			w.gaps.Add(1)
			gapsTotal.Inc()
			logger.Warn("change stream resume point lost, restarting from now", "err", err)

			clearErr := w.checkpoints.Clear(ctx)
			if clearErr == nil {
				w.scanPending = true

				continue
			}
			err = fmt.Errorf("clear checkpoint: %w", clearErr)
		}

		w.setState(StateReconnecting)
		w.reconnects.Add(1)
		reconnectsTotal.Inc()

		wait := w.backoff.NextBackOff()
		logger.Warn("change stream interrupted, reconnecting", "err", err, "in", wait.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// follow runs one subscription until it fails.
func (w *Watcher) follow(ctx context.Context) error {
	w.setState(StateSubscribing)

	token, err := w.checkpoints.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	cursor, err := w.stream.Subscribe(ctx, token)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		if err := cursor.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Debug("failed to close change stream", "err", err)
		}
	}()

	// Without a saved position a restart would skip deletions made while down.
	if len(token) == 0 {
		if initial := cursor.ResumeToken(); len(initial) > 0 {
			if err := w.checkpoints.Save(ctx, initial); err != nil {
				return fmt.Errorf("save initial checkpoint: %w", err)
			}
		}
	}

	w.setState(StateStreaming)
	w.backoff.Reset()
	logger.Info("change stream subscribed", "resumed", len(token) > 0)

	if w.scanPending {
		w.scanPending = false
		w.triggerScan()
	}

	for cursor.Next(ctx) {
		if err := w.forward(ctx, cursor.Event()); err != nil {
			return err
		}

		if err := w.checkpoints.Save(ctx, cursor.ResumeToken()); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}

	if err := cursor.Err(); err != nil {
		return err
	}

	return errStreamClosed
}

func (w *Watcher) forward(ctx context.Context, ev entity.DeletionEvent) error {
	w.lastEventAt.Store(time.Now().UnixNano())

	if !ev.HasPreImage {
		w.missingPre.Add(1)
		missingPreImagesTotal.Inc()
		logger.Warn("deletion without pre-image, scheduling orphan scan", "record_id", ev.RecordID)
		w.triggerScan()

		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode deletion event: %w", err)
	}

	if err := w.publisher.Publish(ctx, string(body)); err != nil {
		return fmt.Errorf("publish deletion event %s: %w", ev.RecordID, err)
	}

	w.forwarded.Add(1)
	eventsForwardedTotal.Inc()

	return nil
}

func (w *Watcher) triggerScan() {
	if w.scans != nil {
		w.scans.Trigger()
	}
}

func (w *Watcher) setState(s State) {
	w.state.Store(int32(s))
	stateGauge.Set(float64(s))
}
