package spell

import (
	"context"
	"errors"
	"time"

	"github.com/hellasmmo/server/audit"
	"github.com/hellasmmo/server/cache"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/plugin/hook"
	"go.uber.org/zap"
)

// Limits bounds the teleport searches.
type Limits struct {
	RandomTeleportAttempts int
	CityTeleportAttempts   int
	CityTeleportRadius     combat.Podes
}

// DefaultLimits matches the live server.
func DefaultLimits() Limits {
	return Limits{
		RandomTeleportAttempts: 50,
		CityTeleportAttempts:   100,
		CityTeleportRadius:     10,
	}
}

// Auditor records casts made by users.
type Auditor interface {
	Log(entry audit.AuditEntry)
}

// Deps are the collaborators of a Dispatcher. Any of them may be nil; the
// effects that need a missing one fail.
type Deps struct {
	Buffs     BuffCatalog
	Oracle    LocationOracle
	Cities    CityLocator
	Cooldowns cache.Cache
	Hooks     *hook.HookCenter
	Auditor   Auditor
}

// CastEvent describes one cast. It is the payload of the BeforeCast and
// AfterCast hooks; Result is only meaningful in AfterCast.
type CastEvent struct {
	SpellID     string
	Caster      string
	Target      string
	Result      combat.Result
	EnergySpent int
	At          time.Time
}

// Dispatcher validates casts and runs effect bodies. It is owned by the
// simulation goroutine and is not safe for concurrent use.
type Dispatcher struct {
	resolver  *combat.Resolver
	deps      Deps
	limits    Limits
	now       func() time.Time
	logger    *zap.Logger
	executing bool
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(resolver *combat.Resolver, deps Deps, limits Limits, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		deps:     deps,
		limits:   limits,
		now:      time.Now,
		logger:   logger,
	}
}

// Resolver returns the combat resolver effects roll with.
func (d *Dispatcher) Resolver() *combat.Resolver { return d.resolver }

// IsTargetValid reports whether sp may be cast by caster on target.
func IsTargetValid(sp *Spell, caster, target Target) bool {
	if caster == target {
		return sp.Targets.Self
	}
	if target.CanBeAttackedBy(caster) {
		return sp.Targets.Enemy
	}
	return sp.Targets.Friendly
}

// Cast runs every precondition and, if they all pass, spends the energy, starts
// the cooldown and executes the effect. No state changes on a Fail returned by a
// precondition.
func (d *Dispatcher) Cast(ctx context.Context, sp *Spell, caster, target Target) combat.Result {
	if sp.Effect == nil || !d.canAct(sp, caster) {
		return combat.Fail
	}
	if !IsTargetValid(sp, caster, target) {
		d.reject(sp, caster, "invalid target")
		return combat.Fail
	}
	if target.IsDead() {
		d.reject(sp, caster, "target dead")
		return combat.Fail
	}
	if caster.Location().DistanceTo(target.Location()) > sp.Range {
		d.reject(sp, caster, "too far")
		return combat.Fail
	}

	ev := &CastEvent{SpellID: sp.ID, Caster: caster.Name(), Target: target.Name(), EnergySpent: sp.Cost, At: d.now()}
	if !d.pay(ctx, sp, caster, ev) {
		return combat.Fail
	}

	ev.Result = d.Execute(sp.Effect, caster, target)
	d.finish(ctx, sp, caster, ev)
	return ev.Result
}

// AoEHit is the outcome against one target of an area cast.
type AoEHit struct {
	Target string
	Result combat.Result
}

// CastAoE spends the cost once and runs the effect against every candidate within
// the effect radius of center. Candidates that are dead or of a category the spell
// cannot target are skipped.
func (d *Dispatcher) CastAoE(ctx context.Context, sp *Spell, caster Target, center combat.Point, candidates []Target) (combat.Result, []AoEHit) {
	if sp.Effect == nil || !d.canAct(sp, caster) {
		return combat.Fail, nil
	}
	if caster.Location().DistanceTo(center) > sp.Range {
		d.reject(sp, caster, "too far")
		return combat.Fail, nil
	}

	ev := &CastEvent{SpellID: sp.ID, Caster: caster.Name(), EnergySpent: sp.Cost, At: d.now()}
	if !d.pay(ctx, sp, caster, ev) {
		return combat.Fail, nil
	}

	radius := sp.Effect.Radius.Pixels()
	var hits []AoEHit
	for _, t := range candidates {
		if t.IsDead() || t.Location().DistanceTo(center) > radius || !IsTargetValid(sp, caster, t) {
			continue
		}
		hits = append(hits, AoEHit{Target: t.Name(), Result: d.Execute(sp.Effect, caster, t)})
	}
	ev.Result = combat.Hit
	d.finish(ctx, sp, caster, ev)
	return combat.Hit, hits
}

// canAct rejects casters that are dead or stunned.
func (d *Dispatcher) canAct(sp *Spell, caster Target) bool {
	switch {
	case caster.IsDead():
		d.reject(sp, caster, "caster dead")
		return false
	case caster.Stats().Stunned:
		d.reject(sp, caster, "caster stunned")
		return false
	}
	return true
}

// pay runs the cooldown, energy and hook gates, then deducts energy and starts
// the cooldown.
func (d *Dispatcher) pay(ctx context.Context, sp *Spell, caster Target, ev *CastEvent) bool {
	if d.onCooldown(ctx, caster.Name(), sp) {
		d.reject(sp, caster, "on cooldown")
		return false
	}
	if caster.Energy() < sp.Cost {
		d.reject(sp, caster, "not enough energy")
		return false
	}
	if d.deps.Hooks != nil {
		if _, err := d.deps.Hooks.Trigger(ctx, hook.BeforeCast, ev); errors.Is(err, hook.ErrInterrupt) {
			d.reject(sp, caster, "blocked by hook")
			return false
		}
	}

	caster.SetEnergy(caster.Energy() - sp.Cost)
	d.startCooldown(ctx, caster.Name(), sp)
	return true
}

func (d *Dispatcher) finish(ctx context.Context, sp *Spell, caster Target, ev *CastEvent) {
	d.logger.Debug("spell cast",
		zap.String("spell", sp.ID),
		zap.String("caster", ev.Caster),
		zap.String("target", ev.Target),
		zap.Stringer("result", ev.Result))
	if d.deps.Hooks != nil {
		_, _ = d.deps.Hooks.Trigger(ctx, hook.AfterCast, ev)
	}
	if d.deps.Auditor != nil && caster.IsUser() {
		d.deps.Auditor.Log(audit.AuditEntry{
			TraceID:  audit.TraceIDFrom(ctx),
			Actor:    ev.Caster,
			Action:   audit.ActionCast,
			Target:   ev.Target,
			Request:  map[string]string{"spell": sp.ID},
			Response: map[string]string{"result": ev.Result.String()},
		})
	}
}

func (d *Dispatcher) reject(sp *Spell, caster Target, reason string) {
	d.logger.Debug("cast rejected",
		zap.String("spell", sp.ID),
		zap.String("caster", caster.Name()),
		zap.String("reason", reason))
}

func cooldownKey(caster, spellID string) string {
	return "cd:" + caster + ":" + spellID
}

func (d *Dispatcher) onCooldown(ctx context.Context, caster string, sp *Spell) bool {
	if sp.Cooldown <= 0 || d.deps.Cooldowns == nil {
		return false
	}
	ok, err := d.deps.Cooldowns.Exists(ctx, cooldownKey(caster, sp.ID))
	if err != nil {
		d.logger.Warn("cooldown lookup failed", zap.String("spell", sp.ID), zap.Error(err))
		return false
	}
	return ok
}

func (d *Dispatcher) startCooldown(ctx context.Context, caster string, sp *Spell) {
	if sp.Cooldown <= 0 || d.deps.Cooldowns == nil {
		return
	}
	if _, err := d.deps.Cooldowns.SetNX(ctx, cooldownKey(caster, sp.ID), "1", sp.Cooldown); err != nil {
		d.logger.Warn("cooldown start failed", zap.String("spell", sp.ID), zap.Error(err))
	}
}

// RemainingCooldown returns how long caster must wait before casting sp again.
func (d *Dispatcher) RemainingCooldown(ctx context.Context, caster string, sp *Spell) time.Duration {
	if sp.Cooldown <= 0 || d.deps.Cooldowns == nil {
		return 0
	}
	ttl, err := d.deps.Cooldowns.TTL(ctx, cooldownKey(caster, sp.ID))
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}
