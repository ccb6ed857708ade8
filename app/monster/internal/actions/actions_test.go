package actions

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/monster"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	world   *world.World
	monster *monster.Monster
	ctx     *bt.Context
	clock   *clockwork.FakeClock
	set     *Set
}

func newFixture(t *testing.T, typ monster.Type, players ...world.PlayerConfig) *fixture {
	t.Helper()
	w := world.New(world.Config{Players: players})
	m, err := monster.New(100, "m", monster.SpawnConfig{
		Type:         typ,
		PatrolPoints: []monster.Position{{X: 0}, {X: 3}},
	})
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := bt.NewContext(bt.WithClock(clock), bt.WithBlackboard(NewBlackboard(m)))
	ctx.SetEnvironmentInfo(m.Environment())
	ctx.SetDeltaTime(time.Second)

	return &fixture{world: w, monster: m, ctx: ctx, clock: clock, set: New(w, nil)}
}

func (f *fixture) refresh() {
	f.world.Refresh([]*monster.Monster{f.monster})
}

func TestMonsterOf(t *testing.T) {
	f := newFixture(t, monster.TypeGoblin)
	m, ok := MonsterOf(f.ctx)
	require.True(t, ok)
	assert.Same(t, f.monster, m)

	_, ok = MonsterOf(bt.NewContext())
	assert.False(t, ok)

	empty := bt.NewContext()
	assert.False(t, f.set.HasTarget(empty))
	assert.Equal(t, bt.StatusFailure, f.set.Patrol(empty))
	assert.Equal(t, bt.StatusFailure, f.set.AcquireTarget(empty))
}

func TestAcquireAndAttack(t *testing.T) {
	f := newFixture(t, monster.TypeGoblin, world.PlayerConfig{ID: 7, Health: 20, Position: monster.Position{X: 1}})
	f.refresh()

	assert.False(t, f.set.HasTarget(f.ctx))
	assert.Equal(t, bt.StatusSuccess, f.set.AcquireTarget(f.ctx))
	assert.True(t, f.set.HasTarget(f.ctx))
	assert.True(t, f.set.InAttackRange(f.ctx))
	assert.True(t, f.set.InDetectionRange(f.ctx))

	attack := f.set.Attack(1)
	assert.Equal(t, bt.StatusSuccess, attack(f.ctx))
	assert.Equal(t, monster.StateAttack, f.monster.State())
	p, _ := f.world.Player(7)
	assert.Equal(t, 5, p.Health)

	assert.Equal(t, bt.StatusSuccess, attack(f.ctx))
	assert.False(t, f.set.HasTarget(f.ctx))
	assert.Equal(t, bt.StatusFailure, attack(f.ctx))

	f.refresh()
	assert.Equal(t, bt.StatusFailure, f.set.AcquireTarget(f.ctx))
}

func TestInAttackRangeRequiresTargetAndDistance(t *testing.T) {
	f := newFixture(t, monster.TypeGoblin, world.PlayerConfig{ID: 7, Position: monster.Position{X: 10}})
	f.refresh()
	assert.False(t, f.set.InAttackRange(f.ctx))

	require.Equal(t, bt.StatusSuccess, f.set.AcquireTarget(f.ctx))
	assert.False(t, f.set.InAttackRange(f.ctx))
}

func TestChase(t *testing.T) {
	f := newFixture(t, monster.TypeGoblin, world.PlayerConfig{ID: 7, Position: monster.Position{X: 5}})
	f.refresh()
	assert.Equal(t, bt.StatusFailure, f.set.Chase(f.ctx))

	require.Equal(t, bt.StatusSuccess, f.set.AcquireTarget(f.ctx))
	assert.Equal(t, bt.StatusRunning, f.set.Chase(f.ctx))
	assert.Equal(t, monster.StateChase, f.monster.State())
	assert.InDelta(t, 2.0, f.monster.Position().X, 1e-9)

	assert.Equal(t, bt.StatusRunning, f.set.Chase(f.ctx))
	assert.Equal(t, bt.StatusSuccess, f.set.Chase(f.ctx))

	require.NoError(t, f.world.MovePlayer(7, monster.Position{X: 500}))
	assert.Equal(t, bt.StatusFailure, f.set.Chase(f.ctx))
	assert.False(t, f.set.HasTarget(f.ctx))
}

func TestPatrol(t *testing.T) {
	f := newFixture(t, monster.TypeGoblin)
	patrol := bt.NewAction("patrol", f.set.Patrol)

	assert.Equal(t, bt.StatusSuccess, patrol.Execute(f.ctx))
	p, _ := f.monster.PatrolPoint()
	assert.Equal(t, monster.Position{X: 3}, p)

	assert.Equal(t, bt.StatusRunning, patrol.Execute(f.ctx))
	assert.Equal(t, monster.StatePatrol, f.monster.State())
	assert.Equal(t, bt.StatusSuccess, patrol.Execute(f.ctx))
	assert.Equal(t, monster.Position{X: 3}, f.monster.Position())
}

func TestFlee(t *testing.T) {
	f := newFixture(t, monster.TypeMerchant, world.PlayerConfig{ID: 7, Position: monster.Position{X: 1}})
	assert.Equal(t, bt.StatusSuccess, f.set.Flee(f.ctx))

	f.refresh()
	assert.Equal(t, bt.StatusRunning, f.set.Flee(f.ctx))
	assert.Equal(t, monster.StateFlee, f.monster.State())
	assert.InDelta(t, -1.0, f.monster.Position().X, 1e-9)

	f.ctx.SetDeltaTime(5 * time.Second)
	assert.Equal(t, bt.StatusSuccess, f.set.Flee(f.ctx))
}

func TestWait(t *testing.T) {
	f := newFixture(t, monster.TypeZombie)
	wait := bt.NewAction("wait", f.set.Wait(2*time.Second))

	assert.Equal(t, bt.StatusRunning, wait.Execute(f.ctx))
	f.clock.Advance(time.Second)
	assert.Equal(t, bt.StatusRunning, wait.Execute(f.ctx))
	f.clock.Advance(time.Second)
	assert.Equal(t, bt.StatusSuccess, wait.Execute(f.ctx))
	assert.Equal(t, bt.StatusRunning, wait.Execute(f.ctx))
}

func TestHealthAndRegenerate(t *testing.T) {
	f := newFixture(t, monster.TypeDragon)
	above := f.set.HealthAbove(0.3)
	regen := f.set.Regenerate(50)

	assert.True(t, above(f.ctx))
	assert.Equal(t, bt.StatusFailure, regen(f.ctx))

	f.monster.TakeDamage(400, f.ctx.Now())
	assert.False(t, above(f.ctx))
	assert.Equal(t, bt.StatusSuccess, regen(f.ctx))
	assert.Equal(t, 150, f.monster.Stats().Health)

	assert.Equal(t, bt.StatusSuccess, f.set.Idle(f.ctx))
	assert.Equal(t, monster.StateIdle, f.monster.State())
}
