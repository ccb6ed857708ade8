package manager

import (
	"time"

	"github.com/lk2023060901/xdooria-ai/app/monster/internal/monster"
)

// EventType 怪物生命周期事件类型
type EventType string

const (
	EventSpawned   EventType = "spawned"
	EventDied      EventType = "died"
	EventRespawned EventType = "respawned"
	EventDespawned EventType = "despawned"
)

// Event 怪物生命周期事件
type Event struct {
	Type    EventType        `json:"type"`
	At      time.Time        `json:"at"`
	Monster monster.Snapshot `json:"monster"`
}

func (m *Manager) emit(typ EventType, mon *monster.Monster) {
	if len(m.eventHooks) == 0 {
		return
	}
	ev := Event{Type: typ, At: m.clock.Now(), Monster: mon.Snapshot()}
	for _, fn := range m.eventHooks {
		fn(ev)
	}
}
