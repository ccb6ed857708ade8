package manager

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/actions"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/monster"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/trees"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/idgen"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/robfig/cron/v3"
)

var (
	// ErrMonsterNotFound 怪物不存在
	ErrMonsterNotFound = errors.New("monster not found")
	// ErrAlreadyRunning 管理器已启动
	ErrAlreadyRunning = errors.New("monster manager already running")
)

// ScheduleConfig 定时任务，使用 cron 表达式或 @every 描述符
type ScheduleConfig struct {
	Respawn string `mapstructure:"respawn"`
	Report  string `mapstructure:"report"`
}

// Config 管理器配置
type Config struct {
	Spawns    []monster.SpawnConfig `mapstructure:"spawns" validate:"dive"`
	Schedule  ScheduleConfig        `mapstructure:"schedule"`
	MachineID uint16                `mapstructure:"machine_id"`
}

// DefaultSchedule 默认定时任务
func DefaultSchedule() ScheduleConfig {
	return ScheduleConfig{
		Respawn: "@every 5s",
		Report:  "@every 30s",
	}
}

type entry struct {
	monster      *monster.Monster
	ai           *bt.AI
	respawnAfter time.Duration
	// deathSeen 死亡事件已发出，复活时清除
	deathSeen atomic.Bool
	// respawnQueued 已进入复活队列，等待引擎执行
	respawnQueued atomic.Bool
}

func (m *Manager) markDead(e *entry) {
	e.ai.SetActive(false)
	if e.deathSeen.CompareAndSwap(false, true) {
		m.logger.Info("monster died", "id", e.monster.ID(), "name", e.monster.Name())
		m.emit(EventDied, e.monster)
	}
}

// Manager 生成怪物、驱动引擎、处理死亡与复活
type Manager struct {
	cfg         Config
	world       *world.World
	engine      *bt.Engine
	builder     *trees.Builder
	logger      logger.Logger
	observer    bt.Observer
	clock       clockwork.Clock
	engineCfg   *bt.Config
	timing      *trees.Timing
	monsterIDs  idgen.Generator
	spawnIDs    idgen.Generator
	reportHooks []func(Stats)
	eventHooks  []func(Event)
	cron        *cron.Cron

	mu      sync.RWMutex
	entries map[uint32]*entry

	pendingMu sync.Mutex
	pending   []*entry

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan error
}

// New 创建管理器并注册所有怪物类型的行为树
func New(cfg Config, w *world.World, opts ...Option) (*Manager, error) {
	if cfg.Schedule.Respawn == "" {
		cfg.Schedule.Respawn = DefaultSchedule().Respawn
	}
	if cfg.Schedule.Report == "" {
		cfg.Schedule.Report = DefaultSchedule().Report
	}
	for _, spec := range []string{cfg.Schedule.Respawn, cfg.Schedule.Report} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, errors.Wrapf(err, "invalid schedule %q", spec)
		}
	}
	for _, sc := range cfg.Spawns {
		if !sc.Type.Valid() {
			return nil, errors.Wrapf(monster.ErrUnknownType, "spawn %q", sc.Name)
		}
	}

	m := &Manager{
		cfg:        cfg,
		world:      w,
		logger:     logger.NewNoop(),
		clock:      clockwork.NewRealClock(),
		monsterIDs: idgen.NewSequence(1),
		entries:    make(map[uint32]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("manager")

	if m.spawnIDs == nil {
		g, err := idgen.NewSonyflake(cfg.MachineID)
		if err != nil {
			return nil, errors.Wrap(err, "create spawn id generator")
		}
		m.spawnIDs = g
	}

	engineOpts := []bt.Option{
		bt.WithLogger(m.logger),
		bt.WithEngineClock(m.clock),
		bt.WithPreTick(m.refresh),
	}
	if m.observer != nil {
		engineOpts = append(engineOpts, bt.WithObserver(m.observer))
	}
	engine, err := bt.NewEngine(m.engineCfg, engineOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create behavior tree engine")
	}
	m.engine = engine

	m.builder = trees.NewBuilder(actions.New(w, m.logger), m.timing, engine.Config().TreeOptions()...)
	if err := m.builder.Register(engine); err != nil {
		_ = engine.Close()
		return nil, err
	}

	cl := cronLogger{l: m.logger.Named("cron")}
	m.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := m.cron.AddFunc(cfg.Schedule.Respawn, func() { m.RespawnDue() }); err != nil {
		return nil, errors.Wrap(err, "schedule respawn")
	}
	if _, err := m.cron.AddFunc(cfg.Schedule.Report, m.Report); err != nil {
		return nil, errors.Wrap(err, "schedule report")
	}

	return m, nil
}

// Engine 返回行为树引擎
func (m *Manager) Engine() *bt.Engine {
	return m.engine
}

// World 返回世界
func (m *Manager) World() *world.World {
	return m.world
}

// SpawnAll 按配置生成所有怪物，count 为 0 时生成一只
func (m *Manager) SpawnAll() error {
	for _, sc := range m.cfg.Spawns {
		n := max(sc.Count, 1)
		for i := range n {
			name := sc.Name
			if n > 1 {
				name = fmt.Sprintf("%s-%d", sc.Name, i+1)
			}
			if _, err := m.Spawn(name, sc); err != nil {
				return err
			}
		}
	}
	return nil
}

// Spawn 生成一只怪物并为其创建 AI
func (m *Manager) Spawn(name string, sc monster.SpawnConfig) (monster.Snapshot, error) {
	rawID, err := m.monsterIDs.NextID()
	if err != nil {
		return monster.Snapshot{}, errors.Wrap(err, "next monster id")
	}
	mon, err := monster.New(uint32(rawID), name, sc)
	if err != nil {
		return monster.Snapshot{}, err
	}

	incarnation, err := m.spawnIDs.NextID()
	if err != nil {
		return monster.Snapshot{}, errors.Wrap(err, "next spawn id")
	}
	mon.SetIncarnation(incarnation)

	tree, ok := m.engine.GetTree(sc.Type.TreeName())
	if !ok {
		return monster.Snapshot{}, errors.Newf("behavior tree %q not registered", sc.Type.TreeName())
	}

	aiOpts := []bt.AIOption{
		bt.WithAILogger(m.logger),
		bt.WithAIContext(
			bt.WithClock(m.clock),
			bt.WithBlackboard(actions.NewBlackboard(mon)),
		),
	}
	if m.observer != nil {
		aiOpts = append(aiOpts, bt.WithAIObserver(m.observer))
	}
	ai := bt.NewAI(name, tree, aiOpts...)
	ai.Context().SetEnvironmentInfo(mon.Environment())

	respawnAfter := sc.RespawnAfter
	if respawnAfter <= 0 {
		respawnAfter = monster.DefaultRespawnAfter
	}

	m.mu.Lock()
	m.entries[mon.ID()] = &entry{monster: mon, ai: ai, respawnAfter: respawnAfter}
	m.mu.Unlock()

	m.engine.RegisterAgent(ai)
	m.logger.Info("monster spawned",
		"id", mon.ID(),
		"name", name,
		"type", string(sc.Type),
		"incarnation", incarnation,
	)
	m.emit(EventSpawned, mon)
	return mon.Snapshot(), nil
}

// Despawn 移除怪物
func (m *Manager) Despawn(id uint32) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()

	if !ok {
		return errors.Wrapf(ErrMonsterNotFound, "id %d", id)
	}
	m.engine.UnregisterAgent(e.ai)
	m.logger.Info("monster despawned", "id", id, "name", e.monster.Name())
	m.emit(EventDespawned, e.monster)
	return nil
}

func (m *Manager) snapshotEntries() []*entry {
	m.mu.RLock()
	out := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *entry) int { return cmp.Compare(a.monster.ID(), b.monster.ID()) })
	return out
}

// refresh 每帧更新 Agent 之前执行排队的复活，刷新环境感知并停用已死亡的怪物
func (m *Manager) refresh(time.Duration) {
	m.applyRespawns()

	entries := m.snapshotEntries()
	monsters := make([]*monster.Monster, len(entries))
	for i, e := range entries {
		monsters[i] = e.monster
		if !e.monster.IsAlive() && e.ai.IsActive() {
			m.markDead(e)
		}
	}
	m.world.Refresh(monsters)
}

// DamageMonster 对怪物造成伤害，致死时停用其 AI
func (m *Manager) DamageMonster(id uint32, damage int) (monster.Snapshot, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return monster.Snapshot{}, errors.Wrapf(ErrMonsterNotFound, "id %d", id)
	}

	if e.monster.TakeDamage(damage, m.clock.Now()) {
		m.markDead(e)
	}
	return e.monster.Snapshot(), nil
}

// RespawnDue 将等待时间已到的怪物加入复活队列，并恢复倒下的玩家，返回新入队的数量
//
// 怪物、行为树进度与 AI 只在引擎 goroutine 中修改，复活在下一帧更新 Agent 之前执行。
func (m *Manager) RespawnDue() int {
	now := m.clock.Now()
	var due []*entry
	for _, e := range m.snapshotEntries() {
		if e.monster.RespawnDue(now, e.respawnAfter) && e.respawnQueued.CompareAndSwap(false, true) {
			due = append(due, e)
		}
	}
	if len(due) > 0 {
		m.pendingMu.Lock()
		m.pending = append(m.pending, due...)
		m.pendingMu.Unlock()
	}

	if revived := m.world.RevivePlayers(); revived > 0 {
		m.logger.Info("players revived", "count", revived)
	}
	return len(due)
}

func (m *Manager) applyRespawns() {
	m.pendingMu.Lock()
	due := m.pending
	m.pending = nil
	m.pendingMu.Unlock()

	for _, e := range due {
		e.respawnQueued.Store(false)

		m.mu.RLock()
		current := m.entries[e.monster.ID()] == e
		m.mu.RUnlock()
		if !current || e.monster.IsAlive() {
			continue
		}
		m.respawn(e)
	}
}

func (m *Manager) respawn(e *entry) {
	incarnation, err := m.spawnIDs.NextID()
	if err != nil {
		m.logger.Error("respawn id generation failed", "id", e.monster.ID(), "error", err)
		return
	}

	e.deathSeen.Store(false)
	if tree := e.ai.BehaviorTree(); tree != nil {
		tree.Reset(e.ai.Context())
	}
	e.monster.Respawn(incarnation)
	e.ai.SetActive(true)
	m.logger.Info("monster respawned",
		"id", e.monster.ID(),
		"name", e.monster.Name(),
		"incarnation", incarnation,
	)
	m.emit(EventRespawned, e.monster)
}

// Monsters 按 ID 排序的怪物快照
func (m *Manager) Monsters() []monster.Snapshot {
	entries := m.snapshotEntries()
	out := make([]monster.Snapshot, len(entries))
	for i, e := range entries {
		out[i] = e.monster.Snapshot()
	}
	return out
}

// MonsterDetail 怪物快照与其 AI 状态
type MonsterDetail struct {
	monster.Snapshot
	Tree           string `json:"tree"`
	Active         bool   `json:"active"`
	LastStatus     string `json:"last_status"`
	RunningNode    string `json:"running_node"`
	ExecutionCount uint64 `json:"execution_count"`
}

// Monster 获取单个怪物的详情
func (m *Manager) Monster(id uint32) (MonsterDetail, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return MonsterDetail{}, errors.Wrapf(ErrMonsterNotFound, "id %d", id)
	}

	d := MonsterDetail{
		Snapshot:   e.monster.Snapshot(),
		Active:     e.ai.IsActive(),
		LastStatus: e.ai.LastStatus().String(),

		RunningNode:    e.ai.Context().CurrentRunningNode(),
		ExecutionCount: e.ai.Context().ExecutionCount(),
	}
	if tree := e.ai.BehaviorTree(); tree != nil {
		d.Tree = tree.Name()
	}
	return d, nil
}

// Stats 运行统计
type Stats struct {
	Total        int                       `json:"total"`
	Alive        int                       `json:"alive"`
	Dead         int                       `json:"dead"`
	Population   map[string]map[string]int `json:"population"`
	Trees        int                       `json:"trees"`
	Agents       int                       `json:"agents"`
	Frames       uint64                    `json:"frames"`
	PlayersAlive int                       `json:"players_alive"`
}

// Stats 汇总当前统计
func (m *Manager) Stats() Stats {
	s := Stats{
		Population: make(map[string]map[string]int),
		Trees:      m.engine.TreeCount(),
		Agents:     m.engine.AgentCount(),
		Frames:     m.engine.Frames(),
	}
	for _, e := range m.snapshotEntries() {
		snap := e.monster.Snapshot()
		s.Total++
		if snap.State == monster.StateDead.String() {
			s.Dead++
		} else {
			s.Alive++
		}

		byState, ok := s.Population[string(snap.Type)]
		if !ok {
			byState = make(map[string]int)
			s.Population[string(snap.Type)] = byState
		}
		byState[snap.State]++
	}
	for _, p := range m.world.Players() {
		if p.Alive() {
			s.PlayersAlive++
		}
	}
	return s
}

// Report 输出统计日志并调用上报回调
func (m *Manager) Report() {
	s := m.Stats()
	m.logger.Info("monster report",
		"total", s.Total,
		"alive", s.Alive,
		"dead", s.Dead,
		"frames", s.Frames,
		"players_alive", s.PlayersAlive,
	)
	for _, fn := range m.reportHooks {
		fn(s)
	}
}

// Start 生成怪物并启动引擎主循环与定时任务，不阻塞
func (m *Manager) Start() error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	m.mu.RLock()
	empty := len(m.entries) == 0
	m.mu.RUnlock()
	if empty {
		if err := m.SpawnAll(); err != nil {
			m.running.Store(false)
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan error, 1)
	go func() {
		m.done <- m.engine.Run(ctx)
	}()

	m.cron.Start()
	m.logger.Info("monster manager started",
		"monsters", m.engine.AgentCount(),
		"trees", m.engine.TreeNames(),
	)
	return nil
}

// Stop 停止定时任务与引擎主循环，并释放引擎
func (m *Manager) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}

	<-m.cron.Stop().Done()
	m.cancel()
	err := <-m.done
	if cerr := m.engine.Close(); cerr != nil && err == nil {
		err = cerr
	}
	m.logger.Info("monster manager stopped", "frames", m.engine.Frames())
	return err
}
