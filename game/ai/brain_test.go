package ai

import (
	"context"
	"testing"
	"time"

	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/entity"
	"github.com/hellasmmo/server/game/spell"
	"github.com/hellasmmo/server/game/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type castCall struct{ spell, caster, target string }

type fakeWorld struct {
	entities map[string]*entity.Entity
	results  map[string]combat.Result // by spell id, default Hit
	casts    []castCall
}

func newFakeWorld(es ...*entity.Entity) *fakeWorld {
	w := &fakeWorld{entities: make(map[string]*entity.Entity), results: make(map[string]combat.Result)}
	for _, e := range es {
		w.entities[e.Name()] = e
	}
	return w
}

func (w *fakeWorld) Get(name string) (*entity.Entity, bool) {
	e, ok := w.entities[name]
	return e, ok
}

func (w *fakeWorld) Cast(_ context.Context, sp *spell.Spell, caster, target *entity.Entity) combat.Result {
	w.casts = append(w.casts, castCall{sp.ID, caster.Name(), target.Name()})
	if r, ok := w.results[sp.ID]; ok {
		return r
	}
	return combat.Hit
}

var base = stats.Block{MaxHealth: 100, MaxEnergy: 20, Speed: 1}

func TestComposites(t *testing.T) {
	ok := &ConditionNode{Fn: func(*Context) bool { return true }}
	no := &ConditionNode{Fn: func(*Context) bool { return false }}
	wait := &ActionNode{Fn: func(*Context) Status { return StatusRunning }}
	ctx := &Context{}

	assert.Equal(t, StatusSuccess, (&Selector{Children: []Node{no, ok}}).Tick(ctx))
	assert.Equal(t, StatusFailure, (&Selector{Children: []Node{no, no}}).Tick(ctx))
	assert.Equal(t, StatusRunning, (&Selector{Children: []Node{no, wait, ok}}).Tick(ctx))
	assert.Equal(t, StatusFailure, (&Sequence{Children: []Node{ok, no}}).Tick(ctx))
	assert.Equal(t, StatusRunning, (&Sequence{Children: []Node{ok, wait, no}}).Tick(ctx))
	assert.Equal(t, StatusSuccess, (&Inverter{Child: no}).Tick(ctx))
	assert.Equal(t, StatusRunning, (&Inverter{Child: wait}).Tick(ctx))
	assert.Equal(t, StatusFailure, (&BehaviorTree{}).Tick(ctx))
	assert.Equal(t, "running", StatusRunning.String())
}

func TestPickTarget_ForgetsMissingAndDead(t *testing.T) {
	wolf := entity.NewNPC("wolf", 1, base, 0)
	alice := entity.NewUser("alice", 1, base, nil)
	corpse := entity.NewUser("corpse", 1, base, nil)
	corpse.ReduceHealth(1000)
	w := newFakeWorld(wolf, alice, corpse)

	tt := wolf.ThreatTable()
	tt.AddThreat("alice", 1)
	tt.AddThreat("corpse", 20)
	tt.AddThreat("gone", 30)

	ctx := &Context{Self: wolf, World: w}
	require.True(t, PickTarget(ctx))
	assert.Equal(t, "alice", ctx.Target.Name())
	assert.Equal(t, 1, tt.Len())

	tt.ForgetAbout("alice")
	assert.False(t, PickTarget(&Context{Self: wolf, World: w}))
	assert.False(t, PickTarget(&Context{Self: alice, World: w}))
}

func TestCastFirstLanding(t *testing.T) {
	wolf := entity.NewNPC("wolf", 1, base, 0)
	alice := entity.NewUser("alice", 1, base, nil)
	alice.TeleportTo(combat.Point{X: 30})

	short := &spell.Spell{ID: "bite", Range: 10}
	pricey := &spell.Spell{ID: "howl", Range: 100, Cost: 500}
	missing := &spell.Spell{ID: "claw", Range: 100}
	spit := &spell.Spell{ID: "spit", Range: 100}

	w := newFakeWorld(wolf, alice)
	w.results["claw"] = combat.Fail
	ctx := &Context{Self: wolf, World: w, Target: alice, Spells: []*spell.Spell{short, pricey, missing, spit}}

	assert.Equal(t, StatusSuccess, CastFirstLanding(ctx))
	assert.Equal(t, []castCall{{"claw", "wolf", "alice"}, {"spit", "wolf", "alice"}}, w.casts)
	assert.Equal(t, combat.Hit, ctx.Last)

	assert.Equal(t, StatusFailure, CastFirstLanding(&Context{Self: wolf, World: w}))
}

func TestBrain_ThinksOncePerInterval(t *testing.T) {
	wolf := entity.NewNPC("wolf", 1, base, 0)
	alice := entity.NewUser("alice", 1, base, nil)
	wolf.ThreatTable().AddThreat("alice", 1)
	w := newFakeWorld(wolf, alice)
	b := NewBrain([]*spell.Spell{{ID: "bite", Range: 50}}, 0)
	assert.Equal(t, DefaultInterval, b.Interval)

	ctx := context.Background()
	assert.Equal(t, StatusSuccess, b.Think(ctx, wolf, w, 0))
	assert.Equal(t, StatusRunning, b.Think(ctx, wolf, w, 400*time.Millisecond))
	assert.Equal(t, StatusSuccess, b.Think(ctx, wolf, w, 600*time.Millisecond))
	assert.Len(t, w.casts, 2)

	b.Think(ctx, wolf, w, 100*time.Millisecond)
	b.Reset()
	assert.Equal(t, StatusSuccess, b.Think(ctx, wolf, w, 0))
	assert.Len(t, w.casts, 3)
}
