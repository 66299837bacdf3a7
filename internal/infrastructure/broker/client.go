package broker

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redis     *redis.Client
	stream    string
	group     string
	blockTime time.Duration
	claimIdle time.Duration
	maxLen    int64
}

func NewClient(cfg Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.URI)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)
	ctx := context.Background()

	// "0" so entries added before the group existed are still consumed.
	err = rdb.XGroupCreateMkStream(ctx, cfg.StreamName, cfg.GroupName, "0").Err()
	if err != nil && !isBusyGroup(err) {
		_ = rdb.Close()

		return nil, err
	}

	blockTime := time.Duration(cfg.BlockTime) * time.Millisecond
	if blockTime <= 0 {
		blockTime = 5 * time.Second
	}

	return &Client{
		redis:     rdb,
		stream:    cfg.StreamName,
		group:     cfg.GroupName,
		blockTime: blockTime,
		claimIdle: time.Duration(cfg.ClaimIdle) * time.Millisecond,
		maxLen:    cfg.MaxLen,
	}, nil
}

func (c *Client) Close() error {
	return c.redis.Close()
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
