package bt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func patrolTree(leaf string) *Tree {
	return NewTree("patrol_bt", NewSelector("root",
		NewSequence("engage",
			NewCondition("has_target", func(*Context) bool { return false }),
			newCountingLeaf("attack", StatusSuccess),
		),
		newCountingLeaf(leaf, StatusRunning),
	))
}

func TestFingerprint(t *testing.T) {
	a, b := patrolTree("patrol"), patrolTree("patrol")
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	ctx, _ := newFakeContext()
	before := a.Fingerprint()
	a.Execute(ctx)
	assert.Equal(t, before, a.Fingerprint())

	assert.NotEqual(t, a.Fingerprint(), patrolTree("wander").Fingerprint())

	// 相同名称的节点挂在不同深度
	flat := NewSequence("s", newCountingLeaf("x", StatusSuccess), newCountingLeaf("y", StatusSuccess))
	nested := NewSequence("s", NewSequence("x", newCountingLeaf("y", StatusSuccess)))
	assert.NotEqual(t, Fingerprint(flat), Fingerprint(nested))

	// 名称中含有分隔符
	child := NewSequence("s", newCountingLeaf("x", StatusSuccess))
	lone := NewSequence("s\n1|ACTION|x")
	assert.NotEqual(t, Fingerprint(child), Fingerprint(lone))

	assert.Equal(t, Fingerprint(nil), NewTree("empty", nil).Fingerprint())
}
