package handler

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/manager"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/monster"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/metrics/sliding"
	"github.com/lk2023060901/xdooria-ai/pkg/metrics/system"
	"github.com/lk2023060901/xdooria-ai/pkg/web"
)

// Handler 怪物服务的 HTTP 接口
type Handler struct {
	manager *manager.Manager
	metrics *metrics.Metrics
	logger  logger.Logger
}

// New 创建 Handler，mt 可以为 nil
func New(m *manager.Manager, mt *metrics.Metrics, l logger.Logger) *Handler {
	if l == nil {
		l = logger.NewNoop()
	}
	return &Handler{
		manager: m,
		metrics: mt,
		logger:  l.Named("handler"),
	}
}

// Register 注册路由
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/monsters", h.listMonsters)
	api.POST("/monsters", h.spawnMonster)
	api.GET("/monsters/:id", h.getMonster)
	api.DELETE("/monsters/:id", h.despawnMonster)
	api.POST("/monsters/:id/damage", h.damageMonster)

	api.GET("/trees", h.listTrees)
	api.GET("/trees/:name", h.getTree)

	api.GET("/players", h.listPlayers)
	api.PUT("/players/:id/position", h.movePlayer)

	api.GET("/stats", h.stats)
}

func (h *Handler) health(c *gin.Context) {
	web.Success(c, gin.H{"status": "ok", "frames": h.manager.Engine().Frames()})
}

func (h *Handler) listMonsters(c *gin.Context) {
	typ := web.GetQuery(c, "type", "")
	state := web.GetQuery(c, "state", "")

	out := make([]monster.Snapshot, 0)
	for _, s := range h.manager.Monsters() {
		if typ != "" && string(s.Type) != typ {
			continue
		}
		if state != "" && s.State != state {
			continue
		}
		out = append(out, s)
	}
	web.Success(c, out)
}

type spawnRequest struct {
	Name         string             `json:"name" binding:"required"`
	Type         monster.Type       `json:"type" binding:"required"`
	Position     monster.Position   `json:"position"`
	PatrolPoints []monster.Position `json:"patrol_points"`
	PatrolRadius float64            `json:"patrol_radius" binding:"gte=0"`
	// RespawnAfter 秒
	RespawnAfter float64 `json:"respawn_after" binding:"gte=0"`
}

func (h *Handler) spawnMonster(c *gin.Context) {
	var req spawnRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	if !req.Type.Valid() {
		web.Error(c, web.CodeInvalidParams, "unknown monster type: "+string(req.Type))
		return
	}

	snap, err := h.manager.Spawn(req.Name, monster.SpawnConfig{
		Type:         req.Type,
		Name:         req.Name,
		Position:     req.Position,
		PatrolPoints: req.PatrolPoints,
		PatrolRadius: req.PatrolRadius,
		RespawnAfter: time.Duration(req.RespawnAfter * float64(time.Second)),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	web.Success(c, snap)
}

func (h *Handler) getMonster(c *gin.Context) {
	id, ok := web.ParamUint32(c, "id")
	if !ok {
		return
	}
	d, err := h.manager.Monster(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	web.Success(c, d)
}

func (h *Handler) despawnMonster(c *gin.Context) {
	id, ok := web.ParamUint32(c, "id")
	if !ok {
		return
	}
	if err := h.manager.Despawn(id); err != nil {
		h.fail(c, err)
		return
	}
	web.Success(c, gin.H{"id": id})
}

type damageRequest struct {
	Amount int `json:"amount" binding:"required,gt=0"`
}

func (h *Handler) damageMonster(c *gin.Context) {
	id, ok := web.ParamUint32(c, "id")
	if !ok {
		return
	}
	var req damageRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	snap, err := h.manager.DamageMonster(id, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	web.Success(c, snap)
}

// TreeNode 行为树结构
type TreeNode struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Children []TreeNode `json:"children,omitempty"`
}

// TreeSummary 行为树概要
type TreeSummary struct {
	Name        string         `json:"name"`
	Fingerprint string         `json:"fingerprint"`
	Nodes       int            `json:"nodes"`
	Depth       int            `json:"depth"`
	Kinds       map[string]int `json:"kinds"`
}

func describe(n bt.Node) TreeNode {
	out := TreeNode{Name: n.Name(), Type: n.Type().String()}
	for _, child := range n.Children() {
		out.Children = append(out.Children, describe(child))
	}
	return out
}

func summarize(t *bt.Tree) TreeSummary {
	s := TreeSummary{
		Name:        t.Name(),
		Fingerprint: fmt.Sprintf("%016x", t.Fingerprint()),
		Kinds:       make(map[string]int),
	}
	bt.Walk(t.Root(), func(n bt.Node, depth int) bool {
		s.Nodes++
		s.Depth = max(s.Depth, depth+1)
		s.Kinds[n.Type().String()]++
		return true
	})
	return s
}

func (h *Handler) listTrees(c *gin.Context) {
	engine := h.manager.Engine()
	out := make([]TreeSummary, 0, engine.TreeCount())
	for _, name := range engine.TreeNames() {
		if t, ok := engine.GetTree(name); ok {
			out = append(out, summarize(t))
		}
	}
	slices.SortFunc(out, func(a, b TreeSummary) int { return cmp.Compare(a.Name, b.Name) })
	web.Success(c, out)
}

func (h *Handler) getTree(c *gin.Context) {
	name := c.Param("name")
	t, ok := h.manager.Engine().GetTree(name)
	if !ok {
		web.Error(c, web.CodeNotFound, "behavior tree not found: "+name)
		return
	}
	web.Success(c, gin.H{
		"name":        t.Name(),
		"fingerprint": fmt.Sprintf("%016x", t.Fingerprint()),
		"last_status": t.LastStatus().String(),
		"root":        describe(t.Root()),
	})
}

func (h *Handler) listPlayers(c *gin.Context) {
	web.Success(c, h.manager.World().Players())
}

func (h *Handler) movePlayer(c *gin.Context) {
	id, ok := web.ParamUint32(c, "id")
	if !ok {
		return
	}
	var pos monster.Position
	if !web.BindAndValidate(c, &pos) {
		return
	}
	if err := h.manager.World().MovePlayer(id, pos); err != nil {
		h.fail(c, err)
		return
	}
	p, _ := h.manager.World().Player(id)
	web.Success(c, p)
}

// StatsResponse 运行统计
type StatsResponse struct {
	manager.Stats
	Ticks  *sliding.Stats `json:"ticks,omitempty"`
	System *system.Stats  `json:"system,omitempty"`
}

func (h *Handler) stats(c *gin.Context) {
	resp := StatsResponse{Stats: h.manager.Stats()}
	if h.metrics != nil {
		ticks := h.metrics.TickStats()
		sys := h.metrics.SystemStats()
		resp.Ticks = &ticks
		resp.System = &sys
	}
	web.Success(c, resp)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, manager.ErrMonsterNotFound), errors.Is(err, world.ErrPlayerNotFound):
		web.Error(c, web.CodeNotFound, err.Error())
	case errors.Is(err, monster.ErrUnknownType):
		web.Error(c, web.CodeInvalidParams, err.Error())
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		web.Error(c, web.CodeInternalError, err.Error())
	}
}
