package bt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMultiObserver(t *testing.T) {
	a, b := newRecordingObserver(), newRecordingObserver()
	obs := MultiObserver(a, nil, b)

	obs.OnTreeExecuted("goblin_bt", StatusSuccess, time.Millisecond)
	obs.OnAgentPanic("goblin-1", "boom")

	for _, o := range []*recordingObserver{a, b} {
		assert.Equal(t, 1, o.executed["goblin_bt"])
		assert.Equal(t, []string{"goblin-1"}, o.panics)
	}

	assert.Same(t, a, MultiObserver(nil, a))
	MultiObserver().OnAgentPanic("nobody", nil)
}
