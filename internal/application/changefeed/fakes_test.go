package changefeed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"ephemera/internal/domain/entity"
	dbRepository "ephemera/internal/domain/repository/database"
)

// session scripts one subscription: its events, then either a terminal error
// or blocking until the context ends.
type session struct {
	subscribeErr error
	initialToken string
	events       []entity.DeletionEvent
	tokens       []string
	endErr       error
}

type fakeStream struct {
	mu       sync.Mutex
	sessions []session
	tokens   [][]byte
}

func (s *fakeStream) Subscribe(_ context.Context, resumeToken []byte) (dbRepository.DeletionCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = append(s.tokens, resumeToken)

	if len(s.sessions) == 0 {
		return &fakeCursor{block: true}, nil
	}

	next := s.sessions[0]
	s.sessions = s.sessions[1:]
	if next.subscribeErr != nil {
		return nil, next.subscribeErr
	}

	return &fakeCursor{
		initial: next.initialToken,
		events:  next.events,
		tokens:  next.tokens,
		endErr:  next.endErr,
		block:   next.endErr == nil,
	}, nil
}

func (s *fakeStream) subscribedWith() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, string(t))
	}

	return out
}

type fakeCursor struct {
	initial string
	events  []entity.DeletionEvent
	tokens  []string
	pos     int
	endErr  error
	block   bool
	err     error
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	if c.pos < len(c.events) {
		c.pos++

		return true
	}

	if c.block {
		<-ctx.Done()
		c.err = ctx.Err()

		return false
	}
	c.err = c.endErr

	return false
}

func (c *fakeCursor) Event() entity.DeletionEvent {
	return c.events[c.pos-1]
}

func (c *fakeCursor) ResumeToken() []byte {
	if c.pos == 0 {
		return []byte(c.initial)
	}

	return []byte(c.tokens[c.pos-1])
}

func (c *fakeCursor) Err() error {
	return c.err
}

func (c *fakeCursor) Close(_ context.Context) error {
	return nil
}

type fakeCheckpoints struct {
	mu      sync.Mutex
	token   []byte
	saves   []string
	cleared int
	saveErr error
}

func (f *fakeCheckpoints) Load(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.token, nil
}

func (f *fakeCheckpoints) Save(_ context.Context, token []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	f.token = token
	f.saves = append(f.saves, string(token))

	return nil
}

func (f *fakeCheckpoints) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.token = nil
	f.cleared++

	return nil
}

func (f *fakeCheckpoints) saved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.saves...)
}

type fakePublisher struct {
	mu       sync.Mutex
	bodies   []string
	failNext int
}

func (p *fakePublisher) Publish(_ context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext > 0 {
		p.failNext--

		return errors.New("queue unavailable")
	}
	p.bodies = append(p.bodies, message)

	return nil
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.bodies...)
}

type fakeScans struct {
	triggered atomic.Int32
}

func (f *fakeScans) Trigger() {
	f.triggered.Add(1)
}
