package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
)

func TestNewClientDisabledReturnsNoop(t *testing.T) {
	cfg := config.Config{Messaging: config.Messaging{
		Enabled: false,
		Driver:  "noop",
		Kafka:   config.Kafka{Topic: "orders.audit"},
	}}

	client, err := NewClient(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.Equal(t, "orders.audit", client.Topic())
	assert.NoError(t, client.Publish(context.Background(), Message{Value: []byte("x")}))
}

func TestNoopConsumeReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := NewNoop("t").Consume(ctx, func(context.Context, Message) error {
		t.Fatal("handler must not be called")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientKafka(t *testing.T) {
	cfg := config.Config{Messaging: config.Messaging{
		Enabled:       true,
		Driver:        "kafka",
		ConsumerGroup: "g",
		Kafka:         config.Kafka{Brokers: []string{"127.0.0.1:9092"}, Topic: "orders.audit"},
	}}

	lc := fxtest.NewLifecycle(t)
	client, err := NewClient(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, client.Enabled())
	assert.Equal(t, "orders.audit", client.Topic())
	lc.RequireStart().RequireStop()
}

func TestFromKafkaCopiesHeaders(t *testing.T) {
	msg := fromKafka(kafka.Message{
		Topic:   "orders.audit",
		Key:     []byte("order-1"),
		Value:   []byte(`{}`),
		Offset:  4,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte("order.created")}},
	})

	assert.Equal(t, "orders.audit", msg.Topic)
	assert.Equal(t, []byte("order-1"), msg.Key)
	assert.Equal(t, int64(4), msg.Offset)
	assert.Equal(t, map[string]string{"event-type": "order.created"}, msg.Headers)
	assert.Nil(t, fromKafka(kafka.Message{}).Headers)
}
