package kafka

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestConfigValidate(t *testing.T) {
	assert.False(t, (*Config)(nil).Enabled())

	_, err := NewProducer(&Config{Topic: "t"})
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewProducer(&Config{Brokers: []string{"localhost:9092"}})
	assert.ErrorIs(t, err, ErrEmptyTopic)

	p, err := NewProducer(&Config{Brokers: []string{"localhost:9092"}, Topic: "events"})
	require.NoError(t, err)
	assert.Equal(t, "events", p.Topic())
	assert.Equal(t, "snappy", p.config.Compression)
	assert.Equal(t, -1, p.config.RequiredAcks)
	require.NoError(t, p.Close())
}

func TestPublishJSON(t *testing.T) {
	w := &memWriter{}
	p, err := NewProducer(&Config{Brokers: []string{"b:9092"}, Topic: "events"}, WithWriter(w))
	require.NoError(t, err)

	require.NoError(t, p.PublishJSON(context.Background(), "42", []byte(`{"a":1}`), map[string]string{"event_type": "spawned"}))

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "events", m.Topic)
	assert.Equal(t, "42", string(m.Key))
	assert.Equal(t, "application/json", header(m, "content-type"))
	assert.Equal(t, "spawned", header(m, "event_type"))

	s := p.Stats()
	assert.EqualValues(t, 1, s.MessagesProduced)
	assert.EqualValues(t, 1, s.MessagesSucceeded)
	assert.False(t, s.LastMessageTime.IsZero())
}

func TestPublishFailureAndClose(t *testing.T) {
	w := &memWriter{err: errors.New("broker down")}
	p, err := NewProducer(&Config{Brokers: []string{"b:9092"}, Topic: "events"}, WithWriter(w))
	require.NoError(t, err)

	assert.Error(t, p.Publish(context.Background(), &Message{Value: []byte("x")}))
	assert.EqualValues(t, 1, p.Stats().MessagesFailed)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)
	assert.True(t, p.IsClosed())
	assert.ErrorIs(t, p.Publish(context.Background(), &Message{}), ErrProducerClosed)
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(ctx context.Context, msg *Message, next PublishFunc) error {
			order = append(order, name)
			return next(ctx, msg)
		}
	}
	p, err := NewProducer(&Config{Brokers: []string{"b:9092"}, Topic: "events"},
		WithWriter(&memWriter{}),
		WithMiddleware(tag("outer"), tag("inner")),
	)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), &Message{}))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRecoveryMiddleware(t *testing.T) {
	p, err := NewProducer(&Config{Brokers: []string{"b:9092"}, Topic: "events"},
		WithWriter(&memWriter{}),
		WithMiddleware(RecoveryMiddleware(logger.NewNoop()), func(context.Context, *Message, PublishFunc) error {
			panic("boom")
		}),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, p.Publish(context.Background(), &Message{}), ErrProducerPanic)
}
