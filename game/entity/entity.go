package entity

import (
	"time"

	"github.com/hellasmmo/server/game/buff"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/item"
	"github.com/hellasmmo/server/game/spell"
	"github.com/hellasmmo/server/game/stats"
	"github.com/hellasmmo/server/game/talent"
)

var _ spell.Target = (*Entity)(nil)

// Kind distinguishes players from NPCs.
type Kind int

const (
	User Kind = iota
	NPC
)

// AttackPolicy decides whether one player may attack another. war.Relations
// satisfies it.
type AttackPolicy interface {
	CanAttack(attacker, target string) bool
}

// Entity is a user or NPC in the world. It is owned by the simulation goroutine
// and is not safe for concurrent use.
type Entity struct {
	name  string
	kind  Kind
	level int
	xp    int

	base    stats.Block
	gear    []stats.Modifier
	class   *talent.Class
	bag     *item.Bag // users only
	buffs   buff.List
	debuffs buff.List
	stats   stats.Block

	health, energy   int
	regenHP, regenEP float64 // fractional regeneration carried between ticks
	loc              combat.Point
	canBlock         bool

	threat   *combat.ThreatTable // NPCs only
	policy   AttackPolicy
	xpReward int // experience for killing this NPC
	now      func() time.Time
}

// NewUser creates a user at full health and energy.
func NewUser(name string, level int, base stats.Block, policy AttackPolicy) *Entity {
	e := &Entity{name: name, kind: User, level: level, base: base, policy: policy, canBlock: true, bag: item.NewBag(), now: time.Now}
	e.Recompute()
	e.health, e.energy = e.stats.MaxHealth, e.stats.MaxEnergy
	return e
}

// NewNPC creates an NPC at full health and energy that awards xpReward when killed.
func NewNPC(name string, level int, base stats.Block, xpReward int) *Entity {
	e := &Entity{
		name:     name,
		kind:     NPC,
		level:    level,
		base:     base,
		threat:   combat.NewThreatTable(),
		xpReward: xpReward,
		now:      time.Now,
	}
	e.Recompute()
	e.health, e.energy = e.stats.MaxHealth, e.stats.MaxEnergy
	return e
}

func (e *Entity) Name() string           { return e.name }
func (e *Entity) Kind() Kind             { return e.kind }
func (e *Entity) IsUser() bool           { return e.kind == User }
func (e *Entity) Level() int             { return e.level }
func (e *Entity) XP() int                { return e.xp }
func (e *Entity) XPReward() int          { return e.xpReward }
func (e *Entity) Stats() stats.Block     { return e.stats }
func (e *Entity) CanBlock() bool         { return e.canBlock }
func (e *Entity) Location() combat.Point { return e.loc }
func (e *Entity) Health() int            { return e.health }
func (e *Entity) IsDead() bool           { return e.health <= 0 }
func (e *Entity) Energy() int            { return e.energy }

// SetClock replaces the time source used for buff timers.
func (e *Entity) SetClock(now func() time.Time) { e.now = now }

// SetCanBlock toggles whether the entity can block, e.g. when a shield is equipped.
func (e *Entity) SetCanBlock(v bool) { e.canBlock = v }

// SetPolicy replaces the attack policy used between users.
func (e *Entity) SetPolicy(p AttackPolicy) { e.policy = p }

// ThreatTable returns the NPC's threat table, or nil for users.
func (e *Entity) ThreatTable() *combat.ThreatTable { return e.threat }

// Class returns the user's talent allocation, if any.
func (e *Entity) Class() *talent.Class { return e.class }

// SetClass attaches a talent allocation and recomputes stats.
func (e *Entity) SetClass(c *talent.Class) {
	e.class = c
	e.Recompute()
}

// Bag returns the user's items; nil for NPCs.
func (e *Entity) Bag() *item.Bag { return e.bag }

// SetBag replaces the user's items.
func (e *Entity) SetBag(b *item.Bag) { e.bag = b }

// SetGear replaces the equipped item modifiers and recomputes stats.
func (e *Entity) SetGear(mods ...stats.Modifier) {
	e.gear = mods
	e.Recompute()
}

// Recompute rebuilds the live stats from base, gear, talents, buffs and debuffs.
// Health and energy are clamped to the new maxima.
func (e *Entity) Recompute() {
	layers := stats.Layers{
		Gear:    e.gear,
		Buffs:   e.buffs.Modifiers(),
		Debuffs: e.debuffs.Modifiers(),
	}
	if e.class != nil {
		layers.Talents = e.class.StatModifiers()
	}
	e.stats = layers.Apply(e.base)
	if e.health > e.stats.MaxHealth {
		e.health = e.stats.MaxHealth
	}
	if e.energy > e.stats.MaxEnergy {
		e.energy = e.stats.MaxEnergy
	}
}

// SetEnergy sets energy, clamped to [0, MaxEnergy].
func (e *Entity) SetEnergy(v int) {
	e.energy = clamp(v, e.stats.MaxEnergy)
}

// ReduceHealth removes health, stopping at zero.
func (e *Entity) ReduceHealth(amount int) {
	if amount <= 0 {
		return
	}
	e.health = clamp(e.health-amount, e.stats.MaxHealth)
}

// HealBy restores health up to MaxHealth. The dead stay dead.
func (e *Entity) HealBy(amount int) {
	if amount <= 0 || e.IsDead() {
		return
	}
	e.health = clamp(e.health+amount, e.stats.MaxHealth)
}

// Revive restores a dead entity to full health and energy and clears its threat.
func (e *Entity) Revive() {
	e.health, e.energy = e.stats.MaxHealth, e.stats.MaxEnergy
	if e.threat != nil {
		e.threat.Clear()
	}
}

// TeleportTo moves the entity.
func (e *Entity) TeleportTo(p combat.Point) { e.loc = p }

// OnAttackedBy records threat against attacker. Users keep no threat table.
func (e *Entity) OnAttackedBy(attacker spell.Target, threat int) {
	if e.threat == nil {
		return
	}
	e.threat.MakeAwareOf(attacker.Name())
	e.threat.AddThreat(attacker.Name(), threat)
}

// ScaleThreatAgainst multiplies the threat held against attacker.
func (e *Entity) ScaleThreatAgainst(attacker spell.Target, multiplier float64) {
	if e.threat == nil {
		return
	}
	e.threat.Scale(attacker.Name(), multiplier)
}

// CanBeAttackedBy applies the targeting rules: NPCs fight users only, and users
// fight each other only when the attack policy allows it.
func (e *Entity) CanBeAttackedBy(attacker spell.Target) bool {
	if attacker.Name() == e.name {
		return false
	}
	if e.kind == NPC {
		return attacker.IsUser()
	}
	if !attacker.IsUser() {
		return true
	}
	return e.policy != nil && e.policy.CanAttack(attacker.Name(), e.name)
}

// CanBeHealedBySpell reports whether healing spells work on this entity.
func (e *Entity) CanBeHealedBySpell() bool { return e.kind == User && !e.IsDead() }

// ApplyBuff adds or refreshes a buff and recomputes stats.
func (e *Entity) ApplyBuff(t *buff.Type, caster spell.Target) {
	e.buffs.Add(t, caster.Name(), e.now())
	e.Recompute()
}

// ApplyDebuff adds or refreshes a debuff and recomputes stats.
func (e *Entity) ApplyDebuff(t *buff.Type, caster spell.Target) {
	e.debuffs.Add(t, caster.Name(), e.now())
	e.Recompute()
}

// RemoveBuff removes a buff by id.
func (e *Entity) RemoveBuff(id string) bool {
	if !e.buffs.Remove(id) {
		return false
	}
	e.Recompute()
	return true
}

// RemoveDebuff removes a debuff by id.
func (e *Entity) RemoveDebuff(id string) bool {
	if !e.debuffs.Remove(id) {
		return false
	}
	e.Recompute()
	return true
}

func (e *Entity) Buffs() []*buff.Type   { return e.buffs.All() }
func (e *Entity) Debuffs() []*buff.Type { return e.debuffs.All() }

// ClearBuffs drops every buff and debuff, e.g. on death.
func (e *Entity) ClearBuffs() {
	e.buffs.Clear()
	e.debuffs.Clear()
	e.Recompute()
}

// Regen applies health and energy regeneration for elapsed time. Fractions are
// carried over to the next call.
func (e *Entity) Regen(elapsed time.Duration) {
	if e.IsDead() || elapsed <= 0 {
		return
	}
	secs := elapsed.Seconds()
	e.regenHP += float64(e.stats.HPS) * secs
	e.regenEP += float64(e.stats.EPS) * secs
	if whole := int(e.regenHP); whole != 0 {
		e.regenHP -= float64(whole)
		e.health = clamp(e.health+whole, e.stats.MaxHealth)
	}
	if whole := int(e.regenEP); whole != 0 {
		e.regenEP -= float64(whole)
		e.energy = clamp(e.energy+whole, e.stats.MaxEnergy)
	}
}

// TickBuffs applies periodic buff and debuff effects due by now and drops the
// expired ones. Periodic damage is credited as threat to the caster when the
// caster is resolvable.
func (e *Entity) TickBuffs(now time.Time, lookup func(name string) (spell.Target, bool)) []buff.TickResult {
	results := append(e.buffs.Tick(now), e.debuffs.Tick(now)...)
	expired := false
	for _, r := range results {
		switch {
		case r.Expired:
			expired = true
		case r.Damage > 0:
			if lookup != nil {
				if caster, ok := lookup(r.Caster); ok {
					e.OnAttackedBy(caster, r.Damage)
				}
			}
			e.ReduceHealth(r.Damage)
		case r.Damage < 0:
			e.HealBy(-r.Damage)
		}
	}
	if expired {
		e.Recompute()
	}
	return results
}

// GainXP adds experience and levels up while enough has been gathered. It
// returns the number of levels gained.
func (e *Entity) GainXP(amount int) int {
	if amount <= 0 {
		return 0
	}
	e.xp += amount
	gained := 0
	for e.xp >= XPNeeded(e.level) {
		e.xp -= XPNeeded(e.level)
		e.level++
		gained++
	}
	return gained
}

// XPNeeded returns the experience needed to advance past level.
func XPNeeded(level int) int {
	if level <= 0 {
		return 30
	}
	return 30*level + 20*(level-1)*level/2
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
