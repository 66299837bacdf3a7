// Package queue is an in-process stand-in for the Redis broker, used when no
// broker URI is configured and in tests. Its contents do not survive a restart,
// so callers drain it with Close before exiting.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/dezh-tech/immortal/pkg/logger"

	brokerRepository "ephemera/internal/domain/repository/broker"
)

const DefaultCapacity = 1024

var (
	ErrInvalidCapacity = errors.New("queue capacity must be positive")
	ErrClosed          = errors.New("queue closed")
)

type Memory struct {
	items     chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMemory(capacity int) (*Memory, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return &Memory{
		items:  make(chan string, capacity),
		closed: make(chan struct{}),
	}, nil
}

// Publish blocks while the queue is full.
func (q *Memory) Publish(ctx context.Context, message string) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}

	select {
	case q.items <- message:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops Publish. Consumers keep receiving until the queue is empty and
// then their channels close.
func (q *Memory) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

func (q *Memory) Messages(ctx context.Context, consumerName string) (<-chan brokerRepository.Message, error) {
	out := make(chan brokerRepository.Message)

	go func() {
		defer close(out)

		for {
			var body string
			select {
			case body = <-q.items:
			case <-ctx.Done():
				return
			case <-q.closed:
				select {
				case body = <-q.items:
				default:
					return
				}
			}

			select {
			case out <- &message{queue: q, body: body}:
			case <-ctx.Done():
				q.putBack(body, consumerName)

				return
			}
		}
	}()

	return out, nil
}

func (q *Memory) Len() int {
	return len(q.items)
}

func (q *Memory) putBack(body, consumerName string) {
	select {
	case q.items <- body:
	default:
		logger.Warn("memory queue full, dropping undelivered message", "consumer", consumerName)
	}
}

type message struct {
	queue *Memory
	body  string
	once  sync.Once
}

func (m *message) Body() string {
	return m.body
}

func (m *message) Ack() error {
	m.once.Do(func() {})

	return nil
}

// Nack puts the message back at the tail of the queue, or drops it with a
// warning when the queue is full.
func (m *message) Nack() error {
	m.once.Do(func() {
		m.queue.putBack(m.body, "nack")
	})

	return nil
}
