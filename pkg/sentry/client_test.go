package sentry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDSN = "https://public@sentry.example.com/1"

type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Configure(sentry.ClientOptions) {}

func (t *recordingTransport) SendEvent(e *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *recordingTransport) Flush(time.Duration) bool { return true }

func (t *recordingTransport) Close() {}

func (t *recordingTransport) recorded() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func newTestClient(t *testing.T) (*Client, *recordingTransport) {
	t.Helper()
	tr := &recordingTransport{}
	c, err := New(&Config{DSN: testDSN, Tags: map[string]string{"service": "monster"}}, WithTransport(tr))
	require.NoError(t, err)
	return c, tr
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, (*Config)(nil).Validate(), ErrNilConfig)
	assert.ErrorIs(t, (&Config{}).Validate(), ErrInvalidDSN)
	assert.ErrorIs(t, (&Config{DSN: testDSN, SampleRate: 2}).Validate(), ErrInvalidConfig)
	assert.NoError(t, (&Config{DSN: testDSN, SampleRate: 0.5}).Validate())

	assert.False(t, (&Config{}).Enabled())
	assert.True(t, (&Config{DSN: testDSN}).Enabled())

	_, err := New(&Config{})
	assert.ErrorIs(t, err, ErrInvalidDSN)
}

func TestCapture(t *testing.T) {
	c, tr := newTestClient(t)

	c.CaptureException(errors.New("boom"), map[string]string{"agent": "goblin-1"})
	c.CaptureMessage("tree stalled", LevelWarning, nil)
	c.CapturePanic("nil blackboard", map[string]string{"agent": "orc"})

	events := tr.recorded()
	require.Len(t, events, 3)
	assert.Equal(t, "goblin-1", events[0].Tags["agent"])
	assert.Equal(t, "monster", events[0].Tags["service"])
	assert.Equal(t, sentry.LevelWarning, events[1].Level)
	assert.Equal(t, sentry.LevelFatal, events[2].Level)
	assert.Equal(t, "orc", events[2].Tags["agent"])

	assert.Equal(t, Stats{EventsTotal: 3, EventsCaptured: 3}, c.Stats())
}

func TestClose(t *testing.T) {
	c, tr := newTestClient(t)

	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)

	assert.Nil(t, c.CaptureException(errors.New("late"), nil))
	assert.Empty(t, tr.recorded())
}
