package bus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/drey/pkg/envelope"
)

// HandlerFunc processes one envelope. A non-nil error is a negative acknowledgment.
type HandlerFunc func(ctx context.Context, env *envelope.Envelope) error

// ConsumeOptions tunes a consumer.
type ConsumeOptions struct {
	// Sessions is the number of parallel workers (minimum 1).
	Sessions int

	// HandlerTimeout bounds each handler call. Zero means no deadline.
	HandlerTimeout time.Duration
}

// Subscription is an active consumer. Caller must call Close() when done.
type Subscription struct {
	cancel func()
	done   chan struct{}
	once   sync.Once
}

// Done is closed once every worker has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the consumer and waits for in-flight handlers. Implements io.Closer.
// Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

// Consume subscribes to the channel and calls h for every message on
// opts.Sessions worker goroutines. It returns once Redis has confirmed the
// subscription, so anything published afterwards is delivered.
//
// Messages that are not valid envelopes, and messages h fails on, are
// recorded on the dead-letter list. Nothing is retried.
func (c *Client) Consume(ctx context.Context, opts ConsumeOptions, h HandlerFunc) (*Subscription, error) {
	sessions := opts.Sessions
	if sessions < 1 {
		sessions = 1
	}

	pubsub := c.rdb.Subscribe(ctx, c.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", c.channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch := pubsub.Channel()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(session int) {
			defer wg.Done()
			for {
				select {
				case <-subCtx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					c.deliver(subCtx, session, msg.Payload, opts.HandlerTimeout, h)
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		pubsub.Close()
		close(done)
	}()

	log.Printf("[INFO] Consuming %s with %d sessions", c.channel, sessions)

	return &Subscription{cancel: cancel, done: done}, nil
}

func (c *Client) deliver(ctx context.Context, session int, raw string, timeout time.Duration, h HandlerFunc) {
	env, err := envelope.Unmarshal([]byte(raw))
	if err != nil {
		log.Printf("[ERROR] Session %d: dropping undecodable message: %v", session, err)
		c.nack(context.WithoutCancel(ctx), raw, err)
		return
	}

	hctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := h(hctx, env); err != nil {
		log.Printf("[ERROR] Session %d: message rejected: %v", session, err)
		c.nack(context.WithoutCancel(ctx), raw, err)
		return
	}
	c.stats.Delivered.Add(1)
}
