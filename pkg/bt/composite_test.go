package bt

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
		calls    []int
	}{
		{"all success", []Status{StatusSuccess, StatusSuccess}, StatusSuccess, []int{1, 1}},
		{"failure stops", []Status{StatusSuccess, StatusFailure, StatusSuccess}, StatusFailure, []int{1, 1, 0}},
		{"running stops", []Status{StatusRunning, StatusSuccess}, StatusRunning, []int{1, 0}},
		{"failure before running", []Status{StatusFailure, StatusRunning}, StatusFailure, []int{1, 0}},
		{"empty", nil, StatusFailure, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaves := make([]*countingLeaf, len(tt.statuses))
			children := make([]Node, len(tt.statuses))
			for i, s := range tt.statuses {
				leaves[i] = newCountingLeaf("leaf", s)
				children[i] = leaves[i]
			}

			got := NewSequence("seq", children...).Execute(NewContext())
			assert.Equal(t, tt.want, got)
			for i, l := range leaves {
				assert.Equal(t, tt.calls[i], l.calls, "child %d", i)
			}
		})
	}
}

func TestSelector(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
		calls    []int
	}{
		{"success stops", []Status{StatusFailure, StatusSuccess, StatusSuccess}, StatusSuccess, []int{1, 1, 0}},
		{"all failure", []Status{StatusFailure, StatusFailure}, StatusFailure, []int{1, 1}},
		{"running stops", []Status{StatusFailure, StatusRunning, StatusSuccess}, StatusRunning, []int{1, 1, 0}},
		{"empty", nil, StatusFailure, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaves := make([]*countingLeaf, len(tt.statuses))
			children := make([]Node, len(tt.statuses))
			for i, s := range tt.statuses {
				leaves[i] = newCountingLeaf("leaf", s)
				children[i] = leaves[i]
			}

			got := NewSelector("sel", children...).Execute(NewContext())
			assert.Equal(t, tt.want, got)
			for i, l := range leaves {
				assert.Equal(t, tt.calls[i], l.calls, "child %d", i)
			}
		})
	}
}

func TestSequenceWithRunningChild(t *testing.T) {
	ctx := NewContext()
	first := newCountingLeaf("first", StatusSuccess)
	second := NewAction("second", RunFor(2))
	third := newCountingLeaf("third", StatusSuccess)
	seq := NewSequence("seq", first, second, third)

	assert.Equal(t, StatusRunning, seq.Execute(ctx))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)

	assert.Equal(t, StatusSuccess, seq.Execute(ctx))
	assert.Equal(t, 2, first.calls, "no index memoization across ticks")
	assert.Equal(t, 1, third.calls)
}

func TestRunningPersistenceCycle(t *testing.T) {
	ctx := NewContext()
	leaf := NewAction("work", RunFor(3))

	want := []Status{StatusRunning, StatusRunning, StatusSuccess}
	assert.Equal(t, want, tickN(leaf, ctx, 3))
	assert.Equal(t, want, tickN(leaf, ctx, 3))
}

func TestParallelPolicies(t *testing.T) {
	s, f, r := StatusSuccess, StatusFailure, StatusRunning
	tests := []struct {
		policy   ParallelPolicy
		statuses []Status
		want     Status
	}{
		{SucceedOnOne, []Status{f, s, f}, s},
		{SucceedOnOne, []Status{f, r}, f},
		{SucceedOnOne, []Status{f, f}, f},
		{SucceedOnAll, []Status{s, s, s}, s},
		{SucceedOnAll, []Status{s, r, f}, r},
		{SucceedOnAll, []Status{s, f, r}, f},
		{FailOnOne, []Status{s, f, s}, f},
		{FailOnOne, []Status{s, r}, s},
		{FailOnOne, []Status{s, s}, s},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			leaves := make([]*countingLeaf, len(tt.statuses))
			children := make([]Node, len(tt.statuses))
			for i, st := range tt.statuses {
				leaves[i] = newCountingLeaf("leaf", st)
				children[i] = leaves[i]
			}

			got := NewParallel("par", tt.policy, children...).Execute(NewContext())
			assert.Equal(t, tt.want, got)
			for _, l := range leaves {
				assert.Equal(t, 1, l.calls, "every child is executed")
			}
		})
	}

	assert.Equal(t, StatusFailure, NewParallel("empty", SucceedOnAll).Execute(NewContext()))
	assert.Equal(t, StatusFailure, NewParallel("bad", ParallelPolicy(9), NewAction("a", nil)).Execute(NewContext()))
}

func TestRandom(t *testing.T) {
	assert.Equal(t, StatusFailure, NewRandom("empty").Execute(NewContext()))

	a := newCountingLeaf("a", StatusSuccess)
	b := newCountingLeaf("b", StatusFailure)
	rnd := NewRandom("rnd", a, b)

	ctx := NewContext(WithRand(rand.New(rand.NewPCG(7, 7))))
	results := tickN(rnd, ctx, 200)

	assert.Equal(t, 200, a.calls+b.calls)
	assert.Greater(t, a.calls, 50)
	assert.Greater(t, b.calls, 50)

	successes := 0
	for _, s := range results {
		if s == StatusSuccess {
			successes++
		}
	}
	assert.Equal(t, a.calls, successes)
}

func TestRandomDeterministicWithSeed(t *testing.T) {
	build := func() (*Random, *[]string) {
		var picked []string
		mk := func(name string) Node {
			return NewAction(name, func(*Context) Status {
				picked = append(picked, name)
				return StatusSuccess
			})
		}
		return NewRandom("rnd", mk("a"), mk("b"), mk("c")), &picked
	}

	r1, p1 := build()
	r2, p2 := build()
	tickN(r1, NewContext(WithSeed(42)), 20)
	tickN(r2, NewContext(WithSeed(42)), 20)
	assert.Equal(t, *p1, *p2)
}
