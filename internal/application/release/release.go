// Package release removes blobs from the blob store with bounded retries.
// Every deletion path (explicit delete, create compensation, change feed
// reconciliation, orphan scan) goes through it.
package release

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"ephemera/internal/domain/repository/minio"
	"ephemera/pkg/retry"
)

// Failure is a blob whose retries ran out.
type Failure struct {
	BlobID   string
	Attempts int
	Err      error
}

type Releaser struct {
	remover     minio.Remover
	policy      retry.Policy
	concurrency int
	onRetry     func(blobID string)
}

// New returns a Releaser removing at most concurrency blobs at once
// (unbounded when concurrency <= 0).
func New(remover minio.Remover, policy retry.Policy, concurrency int) *Releaser {
	return &Releaser{
		remover:     remover,
		policy:      policy,
		concurrency: concurrency,
	}
}

// OnRetry registers a hook called before every attempt after the first.
func (r *Releaser) OnRetry(fn func(blobID string)) {
	r.onRetry = fn
}

// Release removes every blob concurrently, each on its own retry schedule,
// and returns the blobs that could not be removed. Order follows blobIDs.
func (r *Releaser) Release(ctx context.Context, blobIDs []string) []Failure {
	var (
		mu       sync.Mutex
		failures = make(map[int]Failure)
		g        errgroup.Group
	)

	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	for i, id := range blobIDs {
		g.Go(func() error {
			attempts, err := r.remove(ctx, id)
			if err != nil {
				mu.Lock()
				failures[i] = Failure{BlobID: id, Attempts: attempts, Err: err}
				mu.Unlock()
			}

			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		return nil
	}

	out := make([]Failure, 0, len(failures))
	for i := range blobIDs {
		if f, ok := failures[i]; ok {
			out = append(out, f)
		}
	}

	return out
}

func (r *Releaser) remove(ctx context.Context, blobID string) (int, error) {
	calls := 0

	return retry.Do(ctx, r.policy, func(ctx context.Context) error {
		calls++
		if calls > 1 && r.onRetry != nil {
			r.onRetry(blobID)
		}

		return r.remover.Remove(ctx, blobID)
	})
}

// IDs returns the blob ids of failures.
func IDs(failures []Failure) []string {
	ids := make([]string, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.BlobID)
	}

	return ids
}

// Join combines the errors of failures.
func Join(failures []Failure) error {
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, f.Err)
	}

	return errors.Join(errs...)
}
