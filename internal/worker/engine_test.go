package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/messaging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedClient delivers its queued messages once, then fails or blocks until cancelled.
type scriptedClient struct {
	mu       sync.Mutex
	queue    []messaging.Message
	failures int
	calls    atomic.Int32
}

func (c *scriptedClient) Publish(context.Context, messaging.Message) error { return nil }

func (c *scriptedClient) Consume(ctx context.Context, handler messaging.Handler) error {
	c.calls.Add(1)

	c.mu.Lock()
	if c.failures > 0 {
		c.failures--
		c.mu.Unlock()
		return errors.New("broker unreachable")
	}
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, msg := range queue {
		_ = handler(ctx, msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *scriptedClient) Topic() string { return "orders.audit" }

func (c *scriptedClient) Enabled() bool { return true }

func enabledConfig(workers int) config.Config {
	var cfg config.Config
	cfg.Messaging.Enabled = true
	cfg.Messaging.Workers.Enabled = true
	cfg.Messaging.Workers.Concurrency = workers
	return cfg
}

func TestEngineDispatchesByTopic(t *testing.T) {
	client := &scriptedClient{queue: []messaging.Message{
		{Topic: "orders.audit", Value: []byte("a")},
		{Topic: "unknown", Value: []byte("b")},
		{Topic: "orders.audit", Value: []byte("c")},
	}}

	var mu sync.Mutex
	var got []string
	engine := NewEngine(Params{
		Client: client,
		Logger: zaptest.NewLogger(t),
		Config: enabledConfig(1),
		Registrations: []HandlerRegistration{
			{Topic: "orders.audit", Handler: func(_ context.Context, msg messaging.Message) error {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, string(msg.Value))
				return nil
			}},
			{Topic: "", Handler: func(context.Context, messaging.Message) error { return nil }},
		},
	})

	require.NoError(t, engine.Start(context.Background()))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, engine.Stop(context.Background()))

	assert.Equal(t, []string{"a", "c"}, got)
}

func TestEngineRetriesAfterConsumeError(t *testing.T) {
	client := &scriptedClient{failures: 2}
	engine := NewEngine(Params{
		Client: client,
		Logger: zaptest.NewLogger(t),
		Config: enabledConfig(1),
		Registrations: []HandlerRegistration{
			{Topic: "orders.audit", Handler: func(context.Context, messaging.Message) error { return nil }},
		},
	})
	engine.backoff = time.Millisecond

	require.NoError(t, engine.Start(context.Background()))
	require.Eventually(t, func() bool { return client.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, engine.Stop(context.Background()))
}

func TestEngineRunsConfiguredWorkers(t *testing.T) {
	client := &scriptedClient{}
	engine := NewEngine(Params{
		Client: client,
		Logger: zaptest.NewLogger(t),
		Config: enabledConfig(3),
		Registrations: []HandlerRegistration{
			{Topic: "orders.audit", Handler: func(context.Context, messaging.Message) error { return nil }},
		},
	})

	require.NoError(t, engine.Start(context.Background()))
	require.Eventually(t, func() bool { return client.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, engine.Stop(context.Background()))
}

func TestEngineDisabled(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.Config
		client messaging.Client
		regs   []HandlerRegistration
	}{
		{
			name:   "messaging off",
			cfg:    config.Config{},
			client: &scriptedClient{},
			regs:   []HandlerRegistration{{Topic: "orders.audit", Handler: func(context.Context, messaging.Message) error { return nil }}},
		},
		{
			name:   "noop client",
			cfg:    enabledConfig(1),
			client: messaging.NewNoop("orders.audit"),
			regs:   []HandlerRegistration{{Topic: "orders.audit", Handler: func(context.Context, messaging.Message) error { return nil }}},
		},
		{
			name:   "no handlers",
			cfg:    enabledConfig(1),
			client: &scriptedClient{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(Params{Client: tc.client, Logger: zaptest.NewLogger(t), Config: tc.cfg, Registrations: tc.regs})
			require.NoError(t, engine.Start(context.Background()))
			assert.Nil(t, engine.cancel)
			require.NoError(t, engine.Stop(context.Background()))
		})
	}
}
