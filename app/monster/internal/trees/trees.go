package trees

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/actions"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/monster"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
)

// Timing 行为树中与时间相关的参数
type Timing struct {
	AttackCooldown time.Duration `mapstructure:"attack_cooldown"`
	ChaseTimeout   time.Duration `mapstructure:"chase_timeout"`
	PatrolPause    time.Duration `mapstructure:"patrol_pause"`
	RestDelay      time.Duration `mapstructure:"rest_delay"`
}

// DefaultTiming 默认时间参数
func DefaultTiming() *Timing {
	return &Timing{
		AttackCooldown: time.Second,
		ChaseTimeout:   10 * time.Second,
		PatrolPause:    2 * time.Second,
		RestDelay:      3 * time.Second,
	}
}

// Builder 按怪物类型构建行为树
type Builder struct {
	set    *actions.Set
	timing Timing
	opts   []bt.TreeOption
}

// NewBuilder 创建构建器，timing 为 nil 时使用默认值
func NewBuilder(set *actions.Set, timing *Timing, opts ...bt.TreeOption) *Builder {
	if timing == nil {
		timing = DefaultTiming()
	}
	return &Builder{set: set, timing: *timing, opts: opts}
}

// Build 构建指定类型的行为树
func (b *Builder) Build(t monster.Type) (*bt.Tree, error) {
	var root bt.Node
	switch t {
	case monster.TypeGoblin:
		root = b.goblin()
	case monster.TypeOrc:
		root = b.orc()
	case monster.TypeDragon:
		root = b.dragon()
	case monster.TypeSkeleton:
		root = b.skeleton()
	case monster.TypeZombie:
		root = b.zombie()
	case monster.TypeMerchant:
		root = b.merchant()
	case monster.TypeGuard:
		root = b.guard()
	default:
		return nil, errors.Wrapf(monster.ErrUnknownType, "build tree for %q", string(t))
	}
	return bt.NewTree(t.TreeName(), root, b.opts...), nil
}

// Register 为所有类型构建行为树并注册到引擎
func (b *Builder) Register(e *bt.Engine) error {
	for _, t := range monster.Types {
		tree, err := b.Build(t)
		if err != nil {
			return err
		}
		e.RegisterTree(tree.Name(), tree)
	}
	return nil
}

func (b *Builder) hasTarget() bt.Node {
	return bt.NewCondition("has_target", b.set.HasTarget)
}

func (b *Builder) inAttackRange() bt.Node {
	return bt.NewCondition("in_attack_range", b.set.InAttackRange)
}

func (b *Builder) acquire() bt.Node {
	return bt.NewAction("acquire_target", b.set.AcquireTarget)
}

func (b *Builder) patrol() bt.Node {
	return bt.NewAction("patrol", b.set.Patrol)
}

func (b *Builder) chase() bt.Node {
	return bt.NewAction("chase", b.set.Chase)
}

// windUpAttack 蓄力 AttackCooldown 后攻击一次，攻击后重新蓄力
func (b *Builder) windUpAttack(name string, multiplier float64) bt.Node {
	return bt.NewDelay(name, b.timing.AttackCooldown, bt.NewAction("attack", b.set.Attack(multiplier)))
}

// goblin: 有目标且在攻击范围内则攻击，否则追击，没有敌人时巡逻
func (b *Builder) goblin() bt.Node {
	return bt.NewSelector("goblin_root",
		bt.NewSequence("attack_sequence",
			b.acquire(),
			b.inAttackRange(),
			b.windUpAttack("attack", 1),
		),
		bt.NewSequence("chase_sequence",
			b.hasTarget(),
			b.chase(),
		),
		b.patrol(),
	)
}

// orc: 进入攻击范围后连续双击，直到目标离开范围
func (b *Builder) orc() bt.Node {
	return bt.NewSelector("orc_root",
		bt.NewSequence("combat",
			b.acquire(),
			bt.NewSelector("engage",
				bt.NewSequence("melee",
					b.inAttackRange(),
					bt.NewUntilFailure("rage",
						bt.NewSequence("strike",
							b.inAttackRange(),
							bt.NewDelay("windup", b.timing.AttackCooldown,
								bt.NewRepeat("double_hit", 2, bt.NewAction("attack", b.set.Attack(1))),
							),
						),
					),
				),
				b.chase(),
			),
		),
		b.patrol(),
	)
}

// dragon: 低血量时撤退休息，战斗中随机选择爪击或吐息，追击有时间上限
func (b *Builder) dragon() bt.Node {
	return bt.NewSelector("dragon_root",
		bt.NewSequence("retreat",
			bt.NewInvert("wounded", bt.NewCondition("healthy", b.set.HealthAbove(0.3))),
			bt.NewSelector("escape_or_rest",
				bt.NewSequence("escape",
					bt.NewCondition("enemy_near", b.set.InDetectionRange),
					bt.NewAction("flee", b.set.Flee),
				),
				bt.NewSequence("rest",
					bt.NewAction("wait", b.set.Wait(b.timing.RestDelay)),
					bt.NewAction("regenerate", b.set.Regenerate(50)),
				),
			),
		),
		bt.NewSequence("combat",
			b.acquire(),
			bt.NewSelector("engage",
				bt.NewSequence("attack_sequence",
					b.inAttackRange(),
					bt.NewRandom("pick_attack",
						b.windUpAttack("claw", 1),
						b.windUpAttack("breath", 1.5),
					),
				),
				bt.NewParallel("pursue", bt.SucceedOnAll,
					bt.NewCondition("healthy", b.set.HealthAbove(0.3)),
					bt.NewTimeout("chase_limit", b.timing.ChaseTimeout, b.chase()),
				),
			),
		),
		b.patrol(),
	)
}

// skeleton: 与 goblin 相同的战斗逻辑，失去目标后一直巡逻到下一个点
func (b *Builder) skeleton() bt.Node {
	return bt.NewSelector("skeleton_root",
		bt.NewSequence("combat",
			b.acquire(),
			bt.NewSelector("engage",
				bt.NewSequence("attack_sequence", b.inAttackRange(), b.windUpAttack("attack", 1)),
				b.chase(),
			),
		),
		bt.NewUntilSuccess("march", b.patrol()),
	)
}

// zombie: 行动迟缓，每到一个巡逻点停顿一段时间
func (b *Builder) zombie() bt.Node {
	return bt.NewSelector("zombie_root",
		bt.NewSequence("combat",
			b.acquire(),
			bt.NewSelector("engage",
				bt.NewSequence("attack_sequence", b.inAttackRange(), b.windUpAttack("bite", 1)),
				b.chase(),
			),
		),
		bt.NewDelay("shamble", b.timing.PatrolPause, b.patrol()),
	)
}

// merchant: 不战斗，受伤且有敌人靠近时逃跑，否则在摊位之间巡逻
func (b *Builder) merchant() bt.Node {
	return bt.NewSelector("merchant_root",
		bt.NewSequence("escape",
			bt.NewInvert("hurt", bt.NewCondition("unhurt", b.set.HealthAbove(0.99))),
			bt.NewCondition("enemy_near", b.set.InDetectionRange),
			bt.NewAction("flee", b.set.Flee),
		),
		bt.NewSequence("trade_route",
			bt.NewDelay("pause", b.timing.PatrolPause, b.patrol()),
			bt.NewAction("idle", b.set.Idle),
		),
	)
}

// guard: 巡逻时保持警戒，发现敌人后追击并攻击，追击超时放弃
func (b *Builder) guard() bt.Node {
	return bt.NewSelector("guard_root",
		bt.NewSequence("combat",
			b.acquire(),
			b.hasTarget(),
			bt.NewSelector("engage",
				bt.NewSequence("attack_sequence", b.inAttackRange(), b.windUpAttack("attack", 1)),
				bt.NewTimeout("chase_limit", b.timing.ChaseTimeout, b.chase()),
			),
		),
		bt.NewParallel("watch", bt.FailOnOne,
			b.patrol(),
			bt.NewCondition("no_enemy", func(ctx *bt.Context) bool { return !b.set.InDetectionRange(ctx) }),
		),
	)
}
