package bt

import "slices"

// EnvironmentInfo 环境感知快照，由世界在执行行为树之前填充，节点只读
type EnvironmentInfo struct {
	NearbyPlayers        []uint32 // 周围玩家 ID
	NearbyMonsters       []uint32 // 周围怪物 ID
	Obstacles            []uint32 // 障碍物 ID
	HasLineOfSight       bool     // 是否有视野
	NearestEnemyDistance float64  // 最近敌人距离，-1 表示无
	NearestEnemyID       uint32   // 最近敌人 ID，0 表示无
}

// NewEnvironmentInfo 创建空的环境信息
func NewEnvironmentInfo() *EnvironmentInfo {
	e := &EnvironmentInfo{}
	e.Clear()
	return e
}

// Clear 恢复默认值
func (e *EnvironmentInfo) Clear() {
	e.NearbyPlayers = e.NearbyPlayers[:0]
	e.NearbyMonsters = e.NearbyMonsters[:0]
	e.Obstacles = e.Obstacles[:0]
	e.HasLineOfSight = true
	e.NearestEnemyDistance = -1
	e.NearestEnemyID = 0
}

func (e *EnvironmentInfo) HasNearbyPlayers() bool {
	return len(e.NearbyPlayers) > 0
}

func (e *EnvironmentInfo) HasNearbyMonsters() bool {
	return len(e.NearbyMonsters) > 0
}

func (e *EnvironmentInfo) HasObstacles() bool {
	return len(e.Obstacles) > 0
}

func (e *EnvironmentInfo) HasEnemy() bool {
	return e.NearestEnemyID != 0
}

// IsEnemyInRange 最近敌人是否在 r 范围内
func (e *EnvironmentInfo) IsEnemyInRange(r float64) bool {
	return e.HasEnemy() && e.NearestEnemyDistance <= r
}

// IsNearestEnemyPlayer 最近敌人是否为玩家
func (e *EnvironmentInfo) IsNearestEnemyPlayer() bool {
	return e.HasEnemy() && slices.Contains(e.NearbyPlayers, e.NearestEnemyID)
}

// IsNearestEnemyMonster 最近敌人是否为怪物
func (e *EnvironmentInfo) IsNearestEnemyMonster() bool {
	return e.HasEnemy() && slices.Contains(e.NearbyMonsters, e.NearestEnemyID)
}
