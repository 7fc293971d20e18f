package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dyluth/drey/pkg/envelope"
	"github.com/redis/go-redis/v9"
)

// Client publishes and consumes envelopes on one Redis channel.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb     *redis.Client
	channel string
	stats   Stats
}

// Stats counts consumer outcomes since the client was created.
type Stats struct {
	Delivered atomic.Int64
	Failed    atomic.Int64
}

// NewClient creates a bus client on channel.
// Returns an error if channel is empty.
func NewClient(redisOpts *redis.Options, channel string) (*Client, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel cannot be empty")
	}

	return &Client{
		rdb:     redis.NewClient(redisOpts),
		channel: channel,
	}, nil
}

// Channel returns the channel name this client uses.
func (c *Client) Channel() string {
	return c.channel
}

// Redis exposes the underlying connection for components sharing it.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Stats returns the live counters.
func (c *Client) Stats() *Stats {
	return &c.stats
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// WaitReady pings Redis with exponential backoff until it answers, maxWait
// elapses or ctx is cancelled.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = maxWait

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := c.Ping(ctx); err != nil {
			log.Printf("[DEBUG] Redis not ready (attempt %d): %v", attempt, err)
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("redis not reachable after %d attempts: %w", attempt, err)
	}
	return nil
}

// Publish sends env to every node subscribed on the channel, this one included.
func (c *Client) Publish(ctx context.Context, env *envelope.Envelope) error {
	data, err := envelope.Marshal(env)
	if err != nil {
		return err
	}

	if err := c.rdb.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

// Rejection is one dead-letter entry.
type Rejection struct {
	AtMs    int64  `json:"at_ms"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// nack records a failed delivery on the dead-letter list.
func (c *Client) nack(ctx context.Context, raw string, cause error) {
	c.stats.Failed.Add(1)

	entry, err := json.Marshal(Rejection{
		AtMs:    time.Now().UnixMilli(),
		Error:   cause.Error(),
		Message: raw,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to encode rejection: %v", err)
		return
	}

	key := RejectedKey(c.channel)
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, entry)
	pipe.LTrim(ctx, key, 0, MaxRejected-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[ERROR] Failed to record rejected message: %v", err)
	}
}

// Rejected returns up to n of the most recent dead-letter entries, newest first.
func (c *Client) Rejected(ctx context.Context, n int64) ([]Rejection, error) {
	if n <= 0 {
		return []Rejection{}, nil
	}

	raw, err := c.rdb.LRange(ctx, RejectedKey(c.channel), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read rejected messages: %w", err)
	}

	out := make([]Rejection, 0, len(raw))
	for _, item := range raw {
		var r Rejection
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("failed to decode rejected message: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
