package broker

import (
	"context"
	"errors"
	"time"

	"github.com/dezh-tech/immortal/pkg/logger"
	"github.com/redis/go-redis/v9"

	brokerRepository "ephemera/internal/domain/repository/broker"
)

const (
	batchSize  = 10
	errorPause = time.Second
)

type Receiver struct {
	redis     *redis.Client
	stream    string
	group     string
	blockTime time.Duration
	claimIdle time.Duration
}

func NewReceiver(client *Client) *Receiver {
	return &Receiver{
		redis:     client.redis,
		stream:    client.stream,
		group:     client.group,
		blockTime: client.blockTime,
		claimIdle: client.claimIdle,
	}
}

// Messages first replays entries this consumer read but never acknowledged,
// then follows new entries. The channel closes when ctx is done.
func (r *Receiver) Messages(ctx context.Context, consumerName string) (<-chan brokerRepository.Message, error) {
	if r.redis == nil {
		logger.Error("redis client is nil in receiver")

		return nil, errors.New("redis not initialized")
	}

	out := make(chan brokerRepository.Message)
	go r.consumeLoop(ctx, out, consumerName)

	return out, nil
}

func (r *Receiver) consumeLoop(ctx context.Context, out chan brokerRepository.Message, consumerName string) {
	defer close(out)

	pendingFrom := "0"
	lastClaim := time.Now()

	for ctx.Err() == nil {
		if pendingFrom != "" {
			pendingFrom = r.replayPending(ctx, out, consumerName, pendingFrom)

			continue
		}

		if r.claimIdle > 0 && time.Since(lastClaim) >= r.claimIdle {
			r.claimIdleEntries(ctx, out, consumerName)
			lastClaim = time.Now()
		}

		r.readAndEmit(ctx, out, consumerName)
	}
}

// replayPending returns the id to continue from, or "" once the backlog is empty.
func (r *Receiver) replayPending(ctx context.Context, out chan brokerRepository.Message, consumerName, from string) string {
	entries, err := r.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: consumerName,
		Streams:  []string{r.stream, from},
		Count:    batchSize,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.pause(ctx, "failed to read pending entries", err)

		return from
	}

	last := ""
	for _, stream := range entries {
		for _, msg := range stream.Messages {
			if !r.emit(ctx, out, consumerName, msg) {
				return from
			}
			last = msg.ID
		}
	}

	return last
}

func (r *Receiver) claimIdleEntries(ctx context.Context, out chan brokerRepository.Message, consumerName string) {
	msgs, _, err := r.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   r.stream,
		Group:    r.group,
		Consumer: consumerName,
		MinIdle:  r.claimIdle,
		Start:    "0-0",
		Count:    batchSize,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.pause(ctx, "failed to claim idle entries", err)

		return
	}

	for _, msg := range msgs {
		if !r.emit(ctx, out, consumerName, msg) {
			return
		}
	}
}

func (r *Receiver) readAndEmit(ctx context.Context, out chan brokerRepository.Message, consumerName string) {
	entries, err := r.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: consumerName,
		Streams:  []string{r.stream, ">"},
		Count:    1,
		Block:    r.blockTime,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.pause(ctx, "failed to read from redis stream group", err)

		return
	}

	for _, stream := range entries {
		for _, msg := range stream.Messages {
			if !r.emit(ctx, out, consumerName, msg) {
				return
			}
		}
	}
}

func (r *Receiver) emit(ctx context.Context, out chan brokerRepository.Message, consumerName string, msg redis.XMessage) bool {
	body, ok := msg.Values["body"].(string)
	if !ok {
		logger.Error("invalid body type in redis message", "id", msg.ID)
		_ = r.redis.XAck(context.Background(), r.stream, r.group, msg.ID).Err()

		return true
	}

	select {
	case out <- &RedisMessage{
		stream:      r.stream,
		group:       r.group,
		consumer:    consumerName,
		id:          msg.ID,
		body:        body,
		redisClient: r.redis,
	}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Receiver) pause(ctx context.Context, msg string, err error) {
	if ctx.Err() != nil {
		return
	}

	logger.Error(msg, "stream", r.stream, "err", err)

	select {
	case <-ctx.Done():
	case <-time.After(errorPause):
	}
}
