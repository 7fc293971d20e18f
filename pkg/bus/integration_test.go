//go:build integration

package bus

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/dyluth/drey/pkg/envelope"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const redisPort = nat.Port("6379/tcp")

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{string(redisPort)},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start Redis container")

	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)

	port, err := redisC.MappedPort(ctx, redisPort)
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

func newRealClient(t *testing.T, redisURL, channel string) *Client {
	t.Helper()
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	client, err := NewClient(opts, channel)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.WaitReady(context.Background(), 10*time.Second))
	return client
}

// TestIntegration_FanOutAcrossSubscribers checks that every subscribed node
// sees every message published on the shared channel.
func TestIntegration_FanOutAcrossSubscribers(t *testing.T) {
	redisURL := setupRedis(t)
	channel := "drey:it:events"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var seenA, seenB atomic.Int64
	count := func(n *atomic.Int64) HandlerFunc {
		return func(ctx context.Context, env *envelope.Envelope) error {
			n.Add(1)
			return nil
		}
	}

	nodeA := newRealClient(t, redisURL, channel)
	nodeB := newRealClient(t, redisURL, channel)
	publisher := newRealClient(t, redisURL, channel)

	subA, err := nodeA.Consume(ctx, ConsumeOptions{Sessions: 2}, count(&seenA))
	require.NoError(t, err)
	defer subA.Close()
	subB, err := nodeB.Consume(ctx, ConsumeOptions{Sessions: 1}, count(&seenB))
	require.NoError(t, err)
	defer subB.Close()

	const messages = 20
	for i := 0; i < messages; i++ {
		env := envelope.New([]byte(fmt.Sprintf(`{"n":%d}`, i)))
		env.Properties[envelope.InstanceNameKey] = "publisher"
		env.Properties[envelope.HandlerIDKey] = "test/v1"
		require.NoError(t, publisher.Publish(ctx, env))
	}

	require.Eventually(t, func() bool {
		return seenA.Load() == messages && seenB.Load() == messages
	}, 10*time.Second, 50*time.Millisecond)

	assert.Equal(t, int64(messages), nodeA.Stats().Delivered.Load())
	assert.Equal(t, int64(messages), nodeB.Stats().Delivered.Load())
}

// TestIntegration_FailedDeliveryIsDeadLettered checks the dead-letter list
// against a real server.
func TestIntegration_FailedDeliveryIsDeadLettered(t *testing.T) {
	redisURL := setupRedis(t)
	channel := "drey:it:failures"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	consumer := newRealClient(t, redisURL, channel)
	publisher := newRealClient(t, redisURL, channel)

	sub, err := consumer.Consume(ctx, ConsumeOptions{Sessions: 1}, func(ctx context.Context, env *envelope.Envelope) error {
		return fmt.Errorf("boom")
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, publisher.Publish(ctx, envelope.New([]byte(`{}`))))

	var rejected []Rejection
	require.Eventually(t, func() bool {
		rejected, err = publisher.Rejected(ctx, 10)
		return err == nil && len(rejected) == 1
	}, 10*time.Second, 50*time.Millisecond)

	assert.Equal(t, "boom", rejected[0].Error)
	assert.Equal(t, int64(1), consumer.Stats().Failed.Load())
}
