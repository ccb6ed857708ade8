package bt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusSuccess, "SUCCESS"},
		{StatusFailure, "FAILURE"},
		{StatusRunning, "RUNNING"},
		{Status(42), "INVALID"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}

	var zero Status
	assert.Equal(t, StatusFailure, zero)
}

func TestNodeTypeString(t *testing.T) {
	assert.Equal(t, "ACTION", NodeTypeAction.String())
	assert.Equal(t, "TIMEOUT", NodeTypeTimeout.String())
	assert.Equal(t, "UNTIL_FAILURE", NodeTypeUntilFailure.String())
	assert.Equal(t, "UNKNOWN", NodeType(99).String())
}

func TestNodeTypesOfConstructors(t *testing.T) {
	leaf := NewAction("a", nil)
	tests := []struct {
		node Node
		want NodeType
	}{
		{leaf, NodeTypeAction},
		{NewCondition("c", nil), NodeTypeCondition},
		{NewSequence("seq"), NodeTypeSequence},
		{NewSelector("sel"), NodeTypeSelector},
		{NewParallel("par", SucceedOnAll), NodeTypeParallel},
		{NewRandom("rnd"), NodeTypeRandom},
		{NewRepeat("rep", 2, leaf), NodeTypeRepeat},
		{NewInvert("inv", leaf), NodeTypeInvert},
		{NewDelay("delay", 0, nil), NodeTypeDelay},
		{NewTimeout("timeout", 0, leaf), NodeTypeTimeout},
		{NewUntilSuccess("us", leaf), NodeTypeUntilSuccess},
		{NewUntilFailure("uf", leaf), NodeTypeUntilFailure},
	}
	for _, tt := range tests {
		t.Run(tt.node.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.Type())
		})
	}
}

func TestNilChildrenIgnored(t *testing.T) {
	seq := NewSequence("seq", nil, NewAction("a", nil), nil)
	assert.Len(t, seq.Children(), 1)

	seq.AddChild(nil)
	seq.AddChild(NewAction("b", nil))
	assert.Len(t, seq.Children(), 2)
}

func TestLastStatusRecorded(t *testing.T) {
	ctx := NewContext()
	ok := NewAction("ok", func(*Context) Status { return StatusSuccess })
	running := NewAction("running", func(*Context) Status { return StatusRunning })

	assert.Equal(t, StatusFailure, ok.LastStatus())
	ok.Execute(ctx)
	running.Execute(ctx)

	assert.Equal(t, StatusSuccess, ok.LastStatus())
	assert.Equal(t, StatusRunning, running.LastStatus())
	assert.True(t, running.IsRunning())
	assert.True(t, ctx.MemoryOf(running).Running)
	assert.Equal(t, "running", ctx.CurrentRunningNode())
}

func TestInitializePropagatesDepthFirst(t *testing.T) {
	ctx := NewContext()
	leaf := stickyLeaf("leaf", 3)
	rep := NewRepeat("rep", 5, leaf)
	root := NewSequence("root", NewSelector("sel", rep))

	root.Execute(ctx)
	root.Execute(ctx)
	require.Equal(t, 2, ctx.MemoryOf(leaf).Counter)

	root.Initialize(ctx)
	assert.Equal(t, 0, ctx.MemoryOf(leaf).Counter)
	assert.Equal(t, 0, ctx.MemoryOf(rep).Counter)
	assert.False(t, ctx.MemoryOf(root).Running)
}

type customNode struct {
	BaseNode
	executed int
}

func (n *customNode) Execute(ctx *Context) Status {
	n.executed++
	return n.Record(ctx, StatusSuccess)
}

func TestCustomNodeEmbedsBaseNode(t *testing.T) {
	n := &customNode{}
	n.Init("custom", NodeTypeAction)

	ctx := NewContext()
	status := NewInvert("inv", n).Execute(ctx)

	assert.Equal(t, StatusFailure, status)
	assert.Equal(t, 1, n.executed)
	assert.Equal(t, StatusSuccess, n.LastStatus())
	assert.Equal(t, "custom", n.Name())
}

func TestWalk(t *testing.T) {
	root := NewSelector("root",
		NewSequence("attack", NewCondition("has_target", nil), NewAction("attack", nil)),
		NewAction("patrol", nil),
	)

	var names []string
	var depths []int
	Walk(root, func(n Node, depth int) bool {
		names = append(names, n.Name())
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"root", "attack", "has_target", "attack", "patrol"}, names)
	assert.Equal(t, []int{0, 1, 2, 2, 1}, depths)

	names = names[:0]
	Walk(root, func(n Node, depth int) bool {
		names = append(names, n.Name())
		return n.Type() != NodeTypeSequence
	})
	assert.Equal(t, []string{"root", "attack", "patrol"}, names)
}
