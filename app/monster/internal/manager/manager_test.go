package manager

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/monster"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, cfg Config, players ...world.PlayerConfig) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m, err := New(cfg, world.New(world.Config{Players: players}),
		WithClock(clock),
		WithSpawnIDGenerator(idgen.NewSequence(1000)),
		WithEngineConfig(&bt.Config{TickInterval: 100 * time.Millisecond}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Engine().Close() })
	return m, clock
}

func TestNewValidates(t *testing.T) {
	w := world.New(world.Config{})

	_, err := New(Config{Schedule: ScheduleConfig{Respawn: "not a schedule"}}, w)
	assert.Error(t, err)

	_, err = New(Config{Spawns: []monster.SpawnConfig{{Type: "slime", Name: "s"}}}, w)
	assert.True(t, errors.Is(err, monster.ErrUnknownType))
}

func TestSpawnAll(t *testing.T) {
	m, _ := newTestManager(t, Config{Spawns: []monster.SpawnConfig{
		{Type: monster.TypeGoblin, Name: "goblin", Count: 3},
		{Type: monster.TypeDragon, Name: "dragon"},
	}})

	require.NoError(t, m.SpawnAll())
	snaps := m.Monsters()
	require.Len(t, snaps, 4)
	assert.Equal(t, "goblin-1", snaps[0].Name)
	assert.Equal(t, "dragon", snaps[3].Name)
	assert.EqualValues(t, 1000, snaps[0].Incarnation)
	assert.Equal(t, 4, m.Engine().AgentCount())
	assert.Equal(t, len(monster.Types), m.Engine().TreeCount())

	d, err := m.Monster(snaps[3].ID)
	require.NoError(t, err)
	assert.Equal(t, "dragon_bt", d.Tree)
	assert.True(t, d.Active)
}

func TestUpdateDrivesMonsters(t *testing.T) {
	m, clock := newTestManager(t, Config{Spawns: []monster.SpawnConfig{
		{Type: monster.TypeGoblin, Name: "goblin", Position: monster.Position{X: 0}},
	}}, world.PlayerConfig{ID: 9, Health: 1000, Position: monster.Position{X: 1}})
	require.NoError(t, m.SpawnAll())

	for range 5 {
		m.Engine().Update(100 * time.Millisecond)
		clock.Advance(time.Second)
	}

	p, _ := m.World().Player(9)
	assert.Less(t, p.Health, 1000)

	d, err := m.Monster(1)
	require.NoError(t, err)
	assert.EqualValues(t, 9, d.TargetID)
	assert.Positive(t, d.ExecutionCount)
}

func TestDeathAndRespawn(t *testing.T) {
	m, clock := newTestManager(t, Config{Spawns: []monster.SpawnConfig{
		{Type: monster.TypeZombie, Name: "zombie", RespawnAfter: 10 * time.Second},
	}}, world.PlayerConfig{ID: 9, Health: 5})
	require.NoError(t, m.SpawnAll())

	_, err := m.DamageMonster(42, 1)
	assert.True(t, errors.Is(err, ErrMonsterNotFound))

	snap, err := m.DamageMonster(1, 10_000)
	require.NoError(t, err)
	assert.Equal(t, "DEAD", snap.State)

	d, _ := m.Monster(1)
	assert.False(t, d.Active)

	m.Engine().Update(100 * time.Millisecond)
	d, _ = m.Monster(1)
	assert.Zero(t, d.ExecutionCount)

	_, err = m.World().DamagePlayer(9, 5)
	require.NoError(t, err)

	assert.Zero(t, m.RespawnDue())
	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, m.RespawnDue())
	assert.Zero(t, m.RespawnDue())

	p, _ := m.World().Player(9)
	assert.True(t, p.Alive())

	// 复活在下一帧由引擎执行
	d, _ = m.Monster(1)
	assert.Equal(t, "DEAD", d.State)
	assert.False(t, d.Active)

	m.Engine().Update(100 * time.Millisecond)
	d, _ = m.Monster(1)
	assert.True(t, d.Active)
	assert.NotEqual(t, "DEAD", d.State)
	assert.EqualValues(t, 1001, d.Incarnation)
	assert.Positive(t, d.ExecutionCount)
}

func TestQueuedRespawnSkipsDespawned(t *testing.T) {
	m, clock := newTestManager(t, Config{Spawns: []monster.SpawnConfig{
		{Type: monster.TypeGoblin, Name: "goblin", RespawnAfter: time.Second},
	}})
	require.NoError(t, m.SpawnAll())

	_, err := m.DamageMonster(1, 10_000)
	require.NoError(t, err)
	clock.Advance(time.Second)
	require.Equal(t, 1, m.RespawnDue())
	require.NoError(t, m.Despawn(1))

	assert.NotPanics(t, func() { m.Engine().Update(100 * time.Millisecond) })
	assert.Zero(t, m.Stats().Total)
}

func TestRespawnConcurrentWithEngine(t *testing.T) {
	m, clock := newTestManager(t, Config{Spawns: []monster.SpawnConfig{
		{Type: monster.TypeGoblin, Name: "goblin", Count: 3, RespawnAfter: time.Second},
	}}, world.PlayerConfig{ID: 9, Health: 1_000_000})
	require.NoError(t, m.SpawnAll())

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				m.Engine().Update(10 * time.Millisecond)
			}
		}
	}()

	for range 50 {
		for id := uint32(1); id <= 3; id++ {
			_, err := m.DamageMonster(id, 10_000)
			require.NoError(t, err)
		}
		clock.Advance(time.Second)
		m.RespawnDue()
	}
	close(stop)
	<-done

	m.Engine().Update(10 * time.Millisecond)
	for id := uint32(1); id <= 3; id++ {
		d, err := m.Monster(id)
		require.NoError(t, err)
		assert.True(t, d.Active, d.Name)
		assert.NotEqual(t, "DEAD", d.State, d.Name)
	}
}

func TestStatsAndReport(t *testing.T) {
	var reported []Stats
	clock := clockwork.NewFakeClock()
	m, err := New(Config{Spawns: []monster.SpawnConfig{
		{Type: monster.TypeOrc, Name: "orc", Count: 2},
		{Type: monster.TypeMerchant, Name: "merchant"},
	}}, world.New(world.Config{Players: []world.PlayerConfig{{ID: 1}}}),
		WithClock(clock),
		WithSpawnIDGenerator(idgen.NewSequence(1)),
		WithReportHook(func(s Stats) { reported = append(reported, s) }),
	)
	require.NoError(t, err)
	defer m.Engine().Close()
	require.NoError(t, m.SpawnAll())

	_, err = m.DamageMonster(1, 10_000)
	require.NoError(t, err)

	m.Report()
	require.Len(t, reported, 1)
	s := reported[0]
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Alive)
	assert.Equal(t, 1, s.Dead)
	assert.Equal(t, 1, s.Population["orc"]["DEAD"])
	assert.Equal(t, 1, s.Population["merchant"]["IDLE"])
	assert.Equal(t, 1, s.PlayersAlive)
}

func TestDespawn(t *testing.T) {
	m, _ := newTestManager(t, Config{Spawns: []monster.SpawnConfig{{Type: monster.TypeGuard, Name: "guard"}}})
	require.NoError(t, m.SpawnAll())

	require.NoError(t, m.Despawn(1))
	assert.Zero(t, m.Engine().AgentCount())
	assert.True(t, errors.Is(m.Despawn(1), ErrMonsterNotFound))
}

func TestStartStop(t *testing.T) {
	m, err := New(Config{Spawns: []monster.SpawnConfig{{Type: monster.TypeSkeleton, Name: "skeleton"}}},
		world.New(world.Config{}),
		WithSpawnIDGenerator(idgen.NewSequence(1)),
		WithEngineConfig(&bt.Config{TickInterval: 5 * time.Millisecond}),
	)
	require.NoError(t, err)

	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Start(), ErrAlreadyRunning)

	require.Eventually(t, func() bool { return m.Engine().Frames() > 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
	assert.Equal(t, 1, m.Engine().AgentCount())
}

func TestLifecycleEvents(t *testing.T) {
	var events []Event
	clock := clockwork.NewFakeClock()
	m, err := New(Config{Spawns: []monster.SpawnConfig{
		{Type: monster.TypeGoblin, Name: "goblin", RespawnAfter: time.Second},
	}}, world.New(world.Config{}),
		WithClock(clock),
		WithSpawnIDGenerator(idgen.NewSequence(1)),
		WithEventHook(func(ev Event) { events = append(events, ev) }),
	)
	require.NoError(t, err)
	defer m.Engine().Close()
	require.NoError(t, m.SpawnAll())

	_, err = m.DamageMonster(1, 10_000)
	require.NoError(t, err)
	_, err = m.DamageMonster(1, 10_000)
	require.NoError(t, err)
	m.Engine().Update(100 * time.Millisecond)

	clock.Advance(time.Second)
	require.Equal(t, 1, m.RespawnDue())
	m.Engine().Update(100 * time.Millisecond)
	require.NoError(t, m.Despawn(1))

	types := make([]EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
		assert.EqualValues(t, 1, ev.Monster.ID)
	}
	assert.Equal(t, []EventType{EventSpawned, EventDied, EventRespawned, EventDespawned}, types)
	assert.Equal(t, "DEAD", events[1].Monster.State)
	assert.Equal(t, clock.Now(), events[2].At)
}
