package combat

import (
	"math"

	"github.com/hellasmmo/server/game/stats"
)

// Rand is the random source used for rolls. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	NormFloat64() float64
}

// Combatant is the read-only view of an entity the hit ladder needs.
type Combatant interface {
	Level() int
	Stats() stats.Block
	CanBlock() bool
}

// Params tunes the hit ladder and mitigation.
type Params struct {
	BaseMissChance      stats.BasisPoints // before caster hit is subtracted
	LevelDiffChance     stats.BasisPoints // per level of difference, applied to every stage
	LevelDiffResistance int               // armour class per level of difference
	CritMultiplier      float64
	MagnitudeDeviation  float64 // standard deviation as a fraction of the mean
}

// DefaultParams matches the live server tuning.
func DefaultParams() Params {
	return Params{
		BaseMissChance:      stats.Percent(10),
		LevelDiffChance:     stats.Percent(3),
		LevelDiffResistance: 30,
		CritMultiplier:      2.0,
		MagnitudeDeviation:  0.1,
	}
}

// Resolver rolls hit outcomes and randomised magnitudes.
// A Resolver is not safe for concurrent use; it belongs to the simulation goroutine.
type Resolver struct {
	params Params
	rnd    Rand
}

// NewResolver creates a Resolver with the given tuning and random source.
func NewResolver(p Params, rnd Rand) *Resolver {
	if p.CritMultiplier <= 0 {
		p.CritMultiplier = 2.0
	}
	return &Resolver{params: p, rnd: rnd}
}

// Params returns the resolver's tuning.
func (r *Resolver) Params() Params { return r.params }

// Rand exposes the resolver's random source so effect code shares one stream.
func (r *Resolver) Rand() Rand { return r.rnd }

// ResolveHit walks the ladder Miss, Dodge, Block, Crit with a single uniform roll.
// Each stage that applies consumes its chance from the roll; whatever is left is a Hit.
// Out-of-range casts must be rejected by the caller before this is called.
func (r *Resolver) ResolveHit(caster, target Combatant, t Type, school stats.School, rangePx float64) Result {
	cs := caster.Stats()
	ts := target.Stats()
	levelMod := float64(target.Level()-caster.Level()) * r.params.LevelDiffChance.Chance()

	roll := r.rnd.Float64()

	if CanHaveOutcome(t, Miss, school, rangePx) {
		missChance := nonNegative(r.params.BaseMissChance.Chance() - cs.Hit.Chance() + levelMod)
		if roll < missChance {
			return Miss
		}
		roll -= missChance
	}

	if CanHaveOutcome(t, Dodge, school, rangePx) {
		dodgeChance := nonNegative(ts.Dodge.Chance() + levelMod)
		if roll < dodgeChance {
			return Dodge
		}
		roll -= dodgeChance
	}

	if target.CanBlock() && CanHaveOutcome(t, Block, school, rangePx) {
		blockChance := nonNegative(ts.Block.Chance() + levelMod)
		if roll < blockChance {
			return Block
		}
		roll -= blockChance
	}

	critChance := nonNegative(cs.Crit.Chance() - ts.CritResist.Chance() - levelMod)
	if critChance > 0 && CanHaveOutcome(t, Crit, school, rangePx) {
		if roll < critChance {
			return Crit
		}
	}

	return Hit
}

// CanHaveOutcome reports whether a combat type may produce the given result.
//
//	           Miss  Dodge  Block  Crit
//	Damage      x     x*     x*     x     (* physical only; no dodge at range)
//	Heal                            x
//	Debuff      x
//	ThreatMod   x
func CanHaveOutcome(t Type, outcome Result, school stats.School, rangePx float64) bool {
	switch outcome {
	case Hit:
		return true
	case Crit:
		return t == Damage || t == Heal
	case Miss:
		return t != Heal
	case Dodge, Block:
		if t != Damage || school.IsMagic() {
			return false
		}
		if outcome == Dodge && rangePx > MeleeRange.Pixels() {
			return false
		}
		return true
	}
	return false
}

// ApplyCrit scales a raw amount when the outcome was a critical.
func (r *Resolver) ApplyCrit(raw float64, outcome Result) float64 {
	if outcome == Crit {
		return raw * r.params.CritMultiplier
	}
	return raw
}

// Mitigate reduces raw damage by the target's resistance after adjusting that
// resistance for the level difference.
func (r *Resolver) Mitigate(raw float64, resistance stats.ArmourClass, attackerLevel, targetLevel int) float64 {
	return Mitigate(raw, resistance, attackerLevel, targetLevel, r.params.LevelDiffResistance)
}

// Mitigate reduces raw damage by resistance adjusted by perLevel armour class per
// level the attacker is above the target.
func Mitigate(raw float64, resistance stats.ArmourClass, attackerLevel, targetLevel, perLevel int) float64 {
	return resistance.ModifyByLevelDiff(attackerLevel, targetLevel, perLevel).ApplyTo(raw)
}

// Magnitude draws an amount from a normal distribution centred on raw with a
// standard deviation of MagnitudeDeviation × raw, truncated to an integer.
func (r *Resolver) Magnitude(raw float64) int {
	if raw <= 0 {
		return 0
	}
	sd := raw * r.params.MagnitudeDeviation
	v := raw + r.rnd.NormFloat64()*sd
	if v < 0 {
		return 0
	}
	return int(v)
}

// ApplyBlock subtracts the target's block value, flooring at zero.
func ApplyBlock(damage, blockValue int) int {
	if blockValue >= damage {
		return 0
	}
	return damage - blockValue
}

// Threat converts a final damage or heal amount into threat.
func Threat(amount int, scaler float64) int {
	return int(math.Round(float64(amount) * scaler))
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
