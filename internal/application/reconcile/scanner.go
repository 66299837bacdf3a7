package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dezh-tech/immortal/pkg/logger"

	"ephemera/internal/domain/entity"
	"ephemera/internal/domain/repository/database"
	"ephemera/internal/domain/repository/minio"
)

const (
	defaultScanGrace = time.Hour

	// scanBatchSize bounds how many unreferenced blobs are held before release.
	scanBatchSize = 500
)

// BlobReleaser is the removal path shared with the coordinator.
type BlobReleaser interface {
	ReleaseBlobs(ctx context.Context, recordID string, blobIDs []string) (int, error)
}

type ScanResult struct {
	Listed     int           `json:"listed"`
	InUse      int           `json:"in_use"`
	Unmatched  int           `json:"unmatched"`
	TooRecent  int           `json:"too_recent"`
	Released   int           `json:"released"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Scanner finds blobs no stored record references and releases them. It
// covers whatever the change feed could not: lost resume points, missing
// pre-images, downtime longer than the feed history.
type Scanner struct {
	lister   minio.Lister
	index    database.BlobIndex
	releaser BlobReleaser
	grace    time.Duration
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending atomic.Bool

	ctxMu   sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScanner(lister minio.Lister, index database.BlobIndex, releaser BlobReleaser, cfg Config) *Scanner {
	grace := time.Duration(cfg.ScanGrace) * time.Second
	if grace <= 0 {
		grace = defaultScanGrace
	}

	return &Scanner{
		lister:   lister,
		index:    index,
		releaser: releaser,
		grace:    grace,
		interval: time.Duration(cfg.ScanInterval) * time.Second,
		now:      time.Now,
		baseCtx:  context.Background(),
	}
}

// Scan runs one full pass. Concurrent calls wait for each other.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &ScanResult{StartedAt: s.now().UTC()}
	start := time.Now()

	// Uploads land before their record is written, so anything modified after
	// the index read is inside the grace window and skipped.
	cutoff := s.now().Add(-s.grace)

	inUse, err := s.index.BlobIDsInUse(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blob index: %w", err)
	}
	result.InUse = len(inUse)

	candidates := make([]string, 0, scanBatchSize)
	err = s.lister.Walk(ctx, func(b entity.StoredBlob) error {
		result.Listed++
		if _, ok := inUse[b.BlobID]; ok {
			return nil
		}
		result.Unmatched++

		if b.LastModified.After(cutoff) {
			result.TooRecent++

			return nil
		}

		candidates = append(candidates, b.BlobID)
		if len(candidates) < scanBatchSize {
			return nil
		}

		released, releaseErr := s.releaser.ReleaseBlobs(ctx, "", candidates)
		result.Released += released
		candidates = make([]string, 0, scanBatchSize)

		return releaseErr
	})
	if err != nil {
		s.finish(result, start)

		return result, fmt.Errorf("walk blobs: %w", err)
	}

	released, err := s.releaser.ReleaseBlobs(ctx, "", candidates)
	result.Released += released
	s.finish(result, start)

	if err != nil {
		return result, fmt.Errorf("release unreferenced blobs: %w", err)
	}

	logger.Info("orphan scan finished", "listed", result.Listed, "unmatched", result.Unmatched,
		"too_recent", result.TooRecent, "released", result.Released, "duration", result.Duration.String())

	return result, nil
}

func (s *Scanner) finish(result *ScanResult, start time.Time) {
	result.Duration = time.Since(start)
	result.FinishedAt = s.now().UTC()

	scanRunsTotal.Inc()
	scanReleasedTotal.Add(float64(result.Released))
	scanDurationSeconds.Observe(result.Duration.Seconds())
}

// Trigger runs a scan in the background unless one is already queued.
func (s *Scanner) Trigger() {
	if !s.pending.CompareAndSwap(false, true) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.pending.Store(false)

		if _, err := s.Scan(s.context()); err != nil {
			logger.Error("triggered orphan scan failed", "err", err)
		}
	}()
}

// Start runs a scan every interval until Stop. A zero interval leaves only
// on-demand scans.
func (s *Scanner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.ctxMu.Lock()
	s.baseCtx = ctx
	s.cancel = cancel
	s.ctxMu.Unlock()

	if s.interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Scan(ctx); err != nil {
					logger.Error("periodic orphan scan failed", "err", err)
				}
			}
		}
	}()

	logger.Info("orphan scanner started", "interval", s.interval.String(), "grace", s.grace.String())
}

// Stop cancels running scans and waits for them to return.
func (s *Scanner) Stop() {
	s.ctxMu.Lock()
	cancel := s.cancel
	s.ctxMu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scanner) context() context.Context {
	s.ctxMu.Lock()
	defer s.ctxMu.Unlock()

	return s.baseCtx
}
