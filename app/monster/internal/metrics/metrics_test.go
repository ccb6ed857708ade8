package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(&Config{Namespace: "test"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestObserver(t *testing.T) {
	m := newTestMetrics(t)

	m.OnTreeExecuted("goblin_bt", bt.StatusSuccess, time.Millisecond)
	m.OnTreeExecuted("goblin_bt", bt.StatusFailure, time.Millisecond)
	m.OnTreeExecuted("goblin_bt", bt.StatusSuccess, time.Millisecond)
	m.OnAgentPanic("goblin-1", "boom")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.treeExecutions.WithLabelValues("goblin_bt", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.treeExecutions.WithLabelValues("goblin_bt", "FAILURE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.agentPanics.WithLabelValues("goblin-1")))

	stats := m.TickStats()
	assert.EqualValues(t, 3, stats.TotalCount)
	assert.EqualValues(t, 1, stats.FailureCount)
}

func TestPopulation(t *testing.T) {
	m := newTestMetrics(t)

	m.ObservePopulation(map[string]map[string]int{"orc": {"PATROL": 2, "DEAD": 1}})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.population.WithLabelValues("orc", "PATROL")))

	m.ObservePopulation(map[string]map[string]int{"orc": {"CHASE": 3}})
	assert.Equal(t, 1, testutil.CollectAndCount(m.population))
}

func TestBindEngineAndHandler(t *testing.T) {
	m := newTestMetrics(t)
	e, err := bt.NewEngine(nil, bt.WithObserver(m))
	require.NoError(t, err)
	defer e.Close()

	e.RegisterTree("idle_bt", bt.NewTree("idle_bt", bt.NewAction("idle", func(*bt.Context) bt.Status { return bt.StatusSuccess })))
	require.NoError(t, m.BindEngine(e))
	assert.Error(t, m.BindEngine(e))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_monster_trees 1")
}
