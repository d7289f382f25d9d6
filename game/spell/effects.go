package spell

import (
	"math"

	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/stats"
	"go.uber.org/zap"
)

// Execute runs the effect body against target. Preconditions are the caller's job;
// energy spent before a Fail returned from here stays spent. A nested call made
// while an effect is running returns Fail.
func (d *Dispatcher) Execute(eff *Effect, caster, target Target) combat.Result {
	if d.executing {
		d.logger.Warn("re-entrant effect refused",
			zap.Stringer("kind", eff.Kind),
			zap.String("caster", caster.Name()))
		return combat.Fail
	}
	d.executing = true
	defer func() { d.executing = false }()

	switch eff.Kind {
	case DirectDamage:
		return d.directDamage(eff, caster, target, 1.0)
	case DirectDamageWithModifiedThreat:
		return d.directDamage(eff, caster, target, eff.Args.Multiplier)
	case Heal:
		return d.heal(eff, caster, target)
	case Buff:
		return d.buff(eff, caster, target)
	case Debuff:
		return d.debuff(eff, caster, target)
	case ScaleThreat:
		return d.scaleThreat(eff, caster, target)
	case DispelDebuff:
		return d.dispelDebuff(eff, target)
	case RandomTeleport:
		return d.randomTeleport(eff, target)
	case TeleportToCity:
		return d.teleportToCity(caster)
	}
	return combat.Fail
}

func (d *Dispatcher) directDamage(eff *Effect, caster, target Target, threatScaler float64) combat.Result {
	outcome := d.resolver.ResolveHit(caster, target, combat.Damage, eff.School, eff.Range)
	if outcome == combat.Miss || outcome == combat.Dodge {
		return outcome
	}

	cs := caster.Stats()
	raw := float64(eff.Args.Magnitude)
	if eff.School.IsMagic() {
		raw += float64(cs.MagicDamage)
	} else {
		raw += float64(cs.PhysicalDamage)
	}
	raw = d.resolver.ApplyCrit(raw, outcome)

	ts := target.Stats()
	raw = d.resolver.Mitigate(raw, ts.ResistanceTo(eff.School), caster.Level(), target.Level())
	damage := d.resolver.Magnitude(raw)
	if outcome == combat.Block {
		damage = combat.ApplyBlock(damage, ts.BlockValue)
	}

	// Threat first: a killing blow must still credit the killer.
	target.OnAttackedBy(caster, combat.Threat(damage, threatScaler))
	target.ReduceHealth(damage)
	return outcome
}

func (d *Dispatcher) heal(eff *Effect, caster, target Target) combat.Result {
	if !target.CanBeHealedBySpell() {
		return combat.Fail
	}
	outcome := d.resolver.ResolveHit(caster, target, combat.Heal, eff.School, eff.Range)

	raw := float64(eff.Args.Magnitude + caster.Stats().Healing)
	raw = d.resolver.ApplyCrit(raw, outcome)
	target.HealBy(d.resolver.Magnitude(raw))
	return outcome
}

func (d *Dispatcher) buff(eff *Effect, caster, target Target) combat.Result {
	if d.deps.Buffs == nil {
		return combat.Fail
	}
	t, ok := d.deps.Buffs.Buff(eff.Args.Ref)
	if !ok {
		return combat.Fail
	}
	target.ApplyBuff(t, caster)
	return combat.Hit
}

func (d *Dispatcher) debuff(eff *Effect, caster, target Target) combat.Result {
	if d.deps.Buffs == nil {
		return combat.Fail
	}
	t, ok := d.deps.Buffs.Buff(eff.Args.Ref)
	if !ok {
		return combat.Fail
	}
	if d.resolver.ResolveHit(caster, target, combat.Debuff, eff.School, eff.Range) == combat.Miss {
		return combat.Miss
	}
	target.ApplyDebuff(t, caster)
	return combat.Hit
}

func (d *Dispatcher) scaleThreat(eff *Effect, caster, target Target) combat.Result {
	outcome := d.resolver.ResolveHit(caster, target, combat.ThreatMod, eff.School, eff.Range)
	if outcome == combat.Miss {
		return outcome
	}
	target.ScaleThreatAgainst(caster, eff.Args.Multiplier)
	return outcome
}

func (d *Dispatcher) dispelDebuff(eff *Effect, target Target) combat.Result {
	school := stats.ParseSchool(eff.Args.Ref)
	var candidates []string
	for _, t := range target.Debuffs() {
		if t.School == school {
			candidates = append(candidates, t.ID)
		}
	}
	if len(candidates) == 0 {
		return combat.Fail
	}
	target.RemoveDebuff(candidates[d.pick(len(candidates))])
	return combat.Hit
}

func (d *Dispatcher) randomTeleport(eff *Effect, target Target) combat.Result {
	if d.deps.Oracle == nil {
		return combat.Fail
	}
	radius := combat.Podes(eff.Args.Magnitude).Pixels()
	if p, ok := d.searchAround(target.Location(), radius, d.limits.RandomTeleportAttempts, target); ok {
		target.TeleportTo(p)
		return combat.Hit
	}
	return combat.Fail
}

func (d *Dispatcher) teleportToCity(caster Target) combat.Result {
	if d.deps.Cities == nil || d.deps.Oracle == nil {
		return combat.Fail
	}
	city, ok := d.deps.Cities.CityOf(caster.Name())
	if !ok {
		return combat.Fail
	}
	centre, ok := d.deps.Cities.CityLocation(city)
	if !ok {
		return combat.Fail
	}
	radius := d.limits.CityTeleportRadius.Pixels()
	if p, ok := d.searchAround(centre, radius, d.limits.CityTeleportAttempts, caster); ok {
		caster.TeleportTo(p)
		return combat.Hit
	}
	return combat.Fail
}

// searchAround tries up to attempts uniformly random points within radius of centre.
func (d *Dispatcher) searchAround(centre combat.Point, radius float64, attempts int, ref Target) (combat.Point, bool) {
	rnd := d.resolver.Rand()
	for i := 0; i < attempts; i++ {
		angle := rnd.Float64() * 2 * math.Pi
		dist := math.Sqrt(rnd.Float64()) * radius
		p := combat.Point{
			X: centre.X + dist*math.Cos(angle),
			Y: centre.Y + dist*math.Sin(angle),
		}
		if d.deps.Oracle.IsLocationValid(p, ref) {
			return p, true
		}
	}
	return combat.Point{}, false
}

func (d *Dispatcher) pick(n int) int {
	i := int(d.resolver.Rand().Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
