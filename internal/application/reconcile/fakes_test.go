package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ephemera/internal/domain/entity"
	"ephemera/internal/domain/model"
)

var errStoreDown = errors.New("blob store unavailable")

var fastConfig = Config{
	Workers:              2,
	ConsumerName:         "test",
	MaxAttempts:          5,
	RetryInitialInterval: 1,
	RetryMaxInterval:     2,
}

// fakeBlobStore holds blob ids; removing a missing one succeeds.
type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string]time.Time
	failing map[string]bool
	calls   map[string]int
}

func newFakeBlobStore(ids ...string) *fakeBlobStore {
	s := &fakeBlobStore{
		blobs:   make(map[string]time.Time),
		failing: make(map[string]bool),
		calls:   make(map[string]int),
	}
	for _, id := range ids {
		s.blobs[id] = time.Now().Add(-24 * time.Hour)
	}

	return s
}

func (s *fakeBlobStore) Remove(_ context.Context, blobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[blobID]++
	if s.failing[blobID] {
		return errStoreDown
	}
	delete(s.blobs, blobID)

	return nil
}

func (s *fakeBlobStore) Walk(_ context.Context, fn func(entity.StoredBlob) error) error {
	s.mu.Lock()
	snapshot := make([]entity.StoredBlob, 0, len(s.blobs))
	for id, modified := range s.blobs {
		snapshot = append(snapshot, entity.StoredBlob{BlobID: id, LastModified: modified})
	}
	s.mu.Unlock()

	for _, b := range snapshot {
		if err := fn(b); err != nil {
			return err
		}
	}

	return nil
}

func (s *fakeBlobStore) put(id string, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = modified
}

func (s *fakeBlobStore) setFailing(id string, failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[id] = failing
}

func (s *fakeBlobStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[id]

	return ok
}

func (s *fakeBlobStore) callCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[id]
}

func (s *fakeBlobStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.blobs)
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []model.Orphan
	err     error
	seq     int
}

func (l *fakeLedger) Record(_ context.Context, orphan *model.Orphan) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return l.err
	}
	orphan.RecordedAt = time.Now()
	for i := range l.entries {
		e := &l.entries[i]
		if !e.Resolved && e.RecordID == orphan.RecordID && e.BlobID == orphan.BlobID {
			e.Attempts += orphan.Attempts
			e.LastError = orphan.LastError
			e.RecordedAt = orphan.RecordedAt
			*orphan = *e

			return nil
		}
	}

	l.seq++
	orphan.ID = fmt.Sprintf("orphan-%d", l.seq)
	l.entries = append(l.entries, *orphan)

	return nil
}

func (l *fakeLedger) List(_ context.Context, limit int64) ([]model.Orphan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Orphan, 0)
	for _, e := range l.entries {
		if !e.Resolved {
			out = append(out, e)
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (l *fakeLedger) Resolve(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Resolved = true

			return nil
		}
	}

	return errors.New("not found")
}

func (l *fakeLedger) unresolved() []model.Orphan {
	out, _ := l.List(context.Background(), 0)

	return out
}

type fakeMessage struct {
	body   string
	mu     sync.Mutex
	acked  int
	nacked int
}

func (m *fakeMessage) Body() string {
	return m.body
}

func (m *fakeMessage) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked++

	return nil
}

func (m *fakeMessage) Nack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked++

	return nil
}

type fakeIndex struct {
	ids []string
	err error
}

func (f *fakeIndex) BlobIDsInUse(_ context.Context) (map[string]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}

	out := make(map[string]struct{}, len(f.ids))
	for _, id := range f.ids {
		out[id] = struct{}{}
	}

	return out, nil
}

func orphanBlobIDs(orphans []model.Orphan) []string {
	ids := make([]string, 0, len(orphans))
	for _, o := range orphans {
		ids = append(ids, o.BlobID)
	}
	sort.Strings(ids)

	return ids
}
