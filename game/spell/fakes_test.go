package spell

import (
	"github.com/hellasmmo/server/game/buff"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/stats"
)

// dummy is a scriptable Target that records the order of calls made on it.
type dummy struct {
	name     string
	user     bool
	level    int
	stats    stats.Block
	canBlock bool

	health, energy int
	loc            combat.Point
	unhealable     bool
	hostileTo      map[string]bool // attackers allowed to attack this entity

	threat  map[string]int
	scaled  map[string]float64
	buffs   []*buff.Type
	debuffs []*buff.Type
	calls   []string

	onAttacked func()
}

func newDummy(name string) *dummy {
	return &dummy{
		name:      name,
		user:      true,
		level:     10,
		health:    1000,
		energy:    100,
		hostileTo: map[string]bool{},
		threat:    map[string]int{},
		scaled:    map[string]float64{},
	}
}

func (d *dummy) Level() int             { return d.level }
func (d *dummy) Stats() stats.Block     { return d.stats }
func (d *dummy) CanBlock() bool         { return d.canBlock }
func (d *dummy) Name() string           { return d.name }
func (d *dummy) IsUser() bool           { return d.user }
func (d *dummy) Location() combat.Point { return d.loc }
func (d *dummy) Health() int            { return d.health }
func (d *dummy) IsDead() bool           { return d.health <= 0 }
func (d *dummy) Energy() int            { return d.energy }
func (d *dummy) SetEnergy(v int)        { d.energy = v }

func (d *dummy) ReduceHealth(amount int) {
	d.calls = append(d.calls, "reduce_health")
	d.health -= amount
	if d.health < 0 {
		d.health = 0
	}
}

func (d *dummy) HealBy(amount int) {
	d.calls = append(d.calls, "heal")
	d.health += amount
}

func (d *dummy) OnAttackedBy(attacker Target, threat int) {
	d.calls = append(d.calls, "attacked")
	d.threat[attacker.Name()] += threat
	if d.onAttacked != nil {
		d.onAttacked()
	}
}

func (d *dummy) ScaleThreatAgainst(attacker Target, multiplier float64) {
	d.scaled[attacker.Name()] = multiplier
}

func (d *dummy) ApplyBuff(t *buff.Type, _ Target)   { d.buffs = append(d.buffs, t) }
func (d *dummy) ApplyDebuff(t *buff.Type, _ Target) { d.debuffs = append(d.debuffs, t) }

func (d *dummy) RemoveDebuff(id string) bool {
	for i, t := range d.debuffs {
		if t.ID == id {
			d.debuffs = append(d.debuffs[:i], d.debuffs[i+1:]...)
			return true
		}
	}
	return false
}

func (d *dummy) Debuffs() []*buff.Type { return d.debuffs }

func (d *dummy) CanBeAttackedBy(attacker Target) bool { return d.hostileTo[attacker.Name()] }
func (d *dummy) CanBeHealedBySpell() bool             { return !d.unhealable }

func (d *dummy) TeleportTo(p combat.Point) {
	d.calls = append(d.calls, "teleport")
	d.loc = p
}

// scriptedRand replays fixed rolls, then returns zero.
type scriptedRand struct {
	floats []float64
	norms  []float64
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedRand) NormFloat64() float64 {
	if len(s.norms) == 0 {
		return 0
	}
	v := s.norms[0]
	s.norms = s.norms[1:]
	return v
}

type buffTable map[string]*buff.Type

func (b buffTable) Buff(id string) (*buff.Type, bool) {
	t, ok := b[id]
	return t, ok
}

// countingOracle accepts the point on call number acceptOn (1-based); 0 never accepts.
type countingOracle struct {
	calls    int
	acceptOn int
}

func (o *countingOracle) IsLocationValid(_ combat.Point, _ Target) bool {
	o.calls++
	return o.acceptOn > 0 && o.calls == o.acceptOn
}

type cityTable struct {
	member map[string]string
	at     map[string]combat.Point
}

func (c cityTable) CityOf(p string) (string, bool) { n, ok := c.member[p]; return n, ok }
func (c cityTable) CityLocation(n string) (combat.Point, bool) {
	p, ok := c.at[n]
	return p, ok
}
