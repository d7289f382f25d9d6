package ai

import (
	"context"
	"time"

	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/entity"
	"github.com/hellasmmo/server/game/spell"
)

// DefaultInterval is how often an NPC acts when its brain sets no interval.
const DefaultInterval = time.Second

// World is the part of the simulation a brain may touch. *world.Tx satisfies it.
type World interface {
	Get(name string) (*entity.Entity, bool)
	Cast(ctx context.Context, sp *spell.Spell, caster, target *entity.Entity) combat.Result
}

// Context is passed to every behavior tree node during a tick.
type Context struct {
	Ctx    context.Context
	Self   *entity.Entity
	World  World
	Spells []*spell.Spell

	// Set by nodes as the tree runs.
	Target *entity.Entity
	Last   combat.Result
}

// Brain drives one NPC. It is owned by the simulation goroutine.
type Brain struct {
	Tree     *BehaviorTree
	Spells   []*spell.Spell
	Interval time.Duration
	wait     time.Duration
}

// NewBrain returns a brain that attacks whoever tops the NPC's threat table
// with the first of spells that lands.
func NewBrain(spells []*spell.Spell, interval time.Duration) *Brain {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Brain{Tree: Aggressive(), Spells: spells, Interval: interval}
}

// Think advances the brain's timer and runs the tree when it is due. It returns
// StatusRunning while the NPC is waiting for its next action.
func (b *Brain) Think(ctx context.Context, self *entity.Entity, w World, elapsed time.Duration) Status {
	b.wait -= elapsed
	if b.wait > 0 {
		return StatusRunning
	}
	b.wait = b.Interval
	return b.Tree.Tick(&Context{Ctx: ctx, Self: self, World: w, Spells: b.Spells})
}

// Reset makes the brain act on its next Think.
func (b *Brain) Reset() { b.wait = 0 }

// Aggressive is the tree every hostile NPC runs.
func Aggressive() *BehaviorTree {
	return &BehaviorTree{Root: &Sequence{Children: []Node{
		&ConditionNode{Fn: PickTarget},
		&Selector{Children: []Node{
			&ActionNode{Fn: CastFirstLanding},
		}},
	}}}
}

// PickTarget sets ctx.Target to the living entity with the most threat. Entities
// that died or left the world are forgotten on the way.
func PickTarget(ctx *Context) bool {
	tt := ctx.Self.ThreatTable()
	if tt == nil {
		return false
	}
	for {
		name, ok := tt.Target()
		if !ok {
			return false
		}
		if e, ok := ctx.World.Get(name); ok && !e.IsDead() {
			ctx.Target = e
			return true
		}
		tt.ForgetAbout(name)
	}
}

// CastFirstLanding tries each spell in range of the target in order and stops at
// the first one that does not fail.
func CastFirstLanding(ctx *Context) Status {
	if ctx.Target == nil {
		return StatusFailure
	}
	dist := ctx.Self.Location().DistanceTo(ctx.Target.Location())
	for _, sp := range ctx.Spells {
		if dist > sp.Range || sp.Cost > ctx.Self.Energy() {
			continue
		}
		ctx.Last = ctx.World.Cast(ctx.Ctx, sp, ctx.Self, ctx.Target)
		if ctx.Last != combat.Fail {
			return StatusSuccess
		}
	}
	return StatusFailure
}
