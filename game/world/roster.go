package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hellasmmo/server/audit"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/entity"
	"github.com/hellasmmo/server/game/item"
	"github.com/hellasmmo/server/game/spell"
	"github.com/hellasmmo/server/game/stats"
	"github.com/hellasmmo/server/game/talent"
	"go.uber.org/zap"
)

var (
	ErrUnknownClass = errors.New("world: unknown class")
	ErrUnknownSpell = errors.New("world: unknown spell")
	ErrSpellUnknown = errors.New("world: spell not known")
	ErrNotAUser     = errors.New("world: entity is not a user")
)

// Content resolves classes and spells. *resource.Catalog satisfies it.
type Content interface {
	Class(id string) (*talent.ClassType, bool)
	Spell(id string) (*spell.Spell, bool)
}

// TalentStore persists talent allocations. *talent.Store satisfies it.
type TalentStore interface {
	Save(ctx context.Context, charName string, c *talent.Class) error
	Load(ctx context.Context, charName string, c *talent.Class) error
}

// ItemStore persists bags. *item.Store satisfies it.
type ItemStore interface {
	Save(ctx context.Context, charName string, b *item.Bag) error
	Load(ctx context.Context, charName string) (*item.Bag, error)
}

// Auditor records talent changes.
type Auditor interface {
	Log(entry audit.AuditEntry)
}

const saveTimeout = 10 * time.Second

// RosterOptions holds what a newly joined user starts with.
type RosterOptions struct {
	Base  stats.Block
	Spawn combat.Point
}

// Roster brings users in and out of the simulation and runs their commands.
type Roster struct {
	sim     *Simulation
	content Content
	talents TalentStore
	items   ItemStore
	policy  entity.AttackPolicy
	opts    RosterOptions
	auditor Auditor
	logger  *zap.Logger
}

// NewRoster creates a Roster. talents, items and auditor may be nil.
func NewRoster(sim *Simulation, content Content, talents TalentStore, items ItemStore, policy entity.AttackPolicy, opts RosterOptions, auditor Auditor, logger *zap.Logger) *Roster {
	return &Roster{sim: sim, content: content, talents: talents, items: items, policy: policy, opts: opts, auditor: auditor, logger: logger}
}

// Join adds a user of the given class, restoring persisted talents.
func (r *Roster) Join(ctx context.Context, name, classID string) error {
	ct, ok := r.content.Class(classID)
	if !ok {
		return ErrUnknownClass
	}
	e := entity.NewUser(name, 1, r.opts.Base, r.policy)
	class := talent.NewClass(ct, e.Level, r.logger)
	if r.talents != nil {
		if err := r.talents.Load(ctx, name, class); err != nil {
			return err
		}
	}
	if r.items != nil {
		bag, err := r.items.Load(ctx, name)
		if err != nil {
			return err
		}
		e.SetBag(bag)
	}
	class.TeachFreeSpellIfAny()
	e.SetClass(class)
	e.TeleportTo(r.opts.Spawn)

	var addErr error
	if err := r.sim.Do(ctx, func(tx *Tx) { addErr = tx.Add(e) }); err != nil {
		return err
	}
	if addErr != nil {
		return addErr
	}
	r.logger.Info("user joined", zap.String("user", name), zap.String("class", classID))
	return nil
}

// Leave removes a user and saves their talents. The save starts as soon as
// the user is removed, so it still happens if ctx ends while waiting.
func (r *Roster) Leave(ctx context.Context, name string) error {
	var lookupErr error
	saved := make(chan error, 1)
	err := r.sim.Do(ctx, func(tx *Tx) {
		e, ok := tx.Get(name)
		if !ok {
			lookupErr = ErrUnknownEntity
			return
		}
		if !e.IsUser() {
			lookupErr = ErrNotAUser
			return
		}
		var class *talent.Class
		if c := e.Class(); c != nil {
			class = c.Clone()
		}
		var bag *item.Bag
		if b := e.Bag(); b != nil {
			bag = b.Clone()
		}
		tx.Remove(name)
		go func() { saved <- r.saveDetached(ctx, name, class, bag) }()
	})
	if err != nil {
		return err
	}
	if lookupErr != nil {
		return lookupErr
	}
	r.logger.Info("user left", zap.String("user", name))
	select {
	case err := <-saved:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Roster) saveDetached(ctx context.Context, name string, class *talent.Class, bag *item.Bag) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	err := r.save(ctx, name, class, bag)
	if err != nil {
		r.logger.Error("save on leave", zap.String("user", name), zap.Error(err))
	}
	return err
}

func (r *Roster) save(ctx context.Context, name string, class *talent.Class, bag *item.Bag) error {
	var errs []error
	if class != nil && r.talents != nil {
		if err := r.talents.Save(ctx, name, class); err != nil {
			errs = append(errs, fmt.Errorf("save talents of %s: %w", name, err))
		}
	}
	if bag != nil && r.items != nil {
		if err := r.items.Save(ctx, name, bag); err != nil {
			errs = append(errs, fmt.Errorf("save items of %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// TakeTalent spends one of the user's talent points.
func (r *Roster) TakeTalent(ctx context.Context, name, talentName string) error {
	var takeErr error
	err := r.sim.Do(ctx, func(tx *Tx) {
		e, ok := tx.Get(name)
		if !ok {
			takeErr = ErrUnknownEntity
			return
		}
		c := e.Class()
		if c == nil {
			takeErr = ErrNotAUser
			return
		}
		t, ok := c.Type().FindTalent(talentName)
		if !ok {
			takeErr = talent.ErrUnknownTalent
			return
		}
		var inv talent.Inventory
		if b := e.Bag(); b != nil {
			inv = b
		}
		if takeErr = c.TakeTalent(t.ID, inv); takeErr == nil {
			e.Recompute()
		}
	})
	if err != nil {
		return err
	}
	if r.auditor != nil {
		entry := audit.AuditEntry{
			TraceID: audit.TraceIDFrom(ctx),
			Actor:   name,
			Action:  audit.ActionTalentTake,
			Target:  talentName,
		}
		if takeErr != nil {
			entry.Error = takeErr.Error()
		}
		r.auditor.Log(entry)
	}
	return takeErr
}

// KnownSpells lists the user's castable spells.
func (r *Roster) KnownSpells(ctx context.Context, name string) ([]string, error) {
	var out []string
	var lookupErr error
	err := r.sim.Do(ctx, func(tx *Tx) {
		e, ok := tx.Get(name)
		if !ok {
			lookupErr = ErrUnknownEntity
			return
		}
		if c := e.Class(); c != nil {
			out = c.KnownSpells()
		}
	})
	if err != nil {
		return nil, err
	}
	return out, lookupErr
}

// Cast casts a catalog spell the caster knows.
func (r *Roster) Cast(ctx context.Context, spellID, caster, target string) (combat.Result, error) {
	sp, ok := r.content.Spell(spellID)
	if !ok {
		return combat.Fail, ErrUnknownSpell
	}
	result := combat.Fail
	var castErr error
	err := r.sim.Do(ctx, func(tx *Tx) {
		c, ok := tx.Get(caster)
		t, ok2 := tx.Get(target)
		if !ok || !ok2 {
			castErr = ErrUnknownEntity
			return
		}
		if cl := c.Class(); cl != nil && !cl.KnowsSpell(spellID) {
			castErr = ErrSpellUnknown
			return
		}
		result = tx.Cast(ctx, sp, c, t)
	})
	if err != nil {
		return combat.Fail, err
	}
	return result, castErr
}

// SaveAll persists every present user's talents and items.
func (r *Roster) SaveAll(ctx context.Context) error {
	if r.talents == nil && r.items == nil {
		return nil
	}
	type saved struct {
		class *talent.Class
		bag   *item.Bag
	}
	users := make(map[string]saved)
	err := r.sim.Do(ctx, func(tx *Tx) {
		for _, name := range tx.sim.sortedNames() {
			e := tx.sim.entities[name]
			if !e.IsUser() {
				continue
			}
			var u saved
			if c := e.Class(); c != nil {
				u.class = c.Clone()
			}
			if b := e.Bag(); b != nil {
				u.bag = b.Clone()
			}
			users[name] = u
		}
	})
	if err != nil {
		return err
	}
	var errs []error
	for name, u := range users {
		if err := r.save(ctx, name, u.class, u.bag); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GrantItems adds qty of itemID to a user's bag.
func (r *Roster) GrantItems(ctx context.Context, name, itemID string, qty int) error {
	var grantErr error
	err := r.sim.Do(ctx, func(tx *Tx) {
		e, ok := tx.Get(name)
		if !ok {
			grantErr = ErrUnknownEntity
			return
		}
		if e.Bag() == nil {
			grantErr = ErrNotAUser
			return
		}
		grantErr = e.Bag().Add(itemID, qty)
	})
	if err != nil {
		return err
	}
	if r.auditor != nil {
		entry := audit.AuditEntry{
			TraceID: audit.TraceIDFrom(ctx),
			Actor:   name,
			Action:  audit.ActionItemGrant,
			Target:  itemID,
			Request: map[string]int{"qty": qty},
		}
		if grantErr != nil {
			entry.Error = grantErr.Error()
		}
		r.auditor.Log(entry)
	}
	return grantErr
}

// Items lists a user's bag.
func (r *Roster) Items(ctx context.Context, name string) ([]item.Stack, error) {
	var out []item.Stack
	var lookupErr error
	err := r.sim.Do(ctx, func(tx *Tx) {
		e, ok := tx.Get(name)
		switch {
		case !ok:
			lookupErr = ErrUnknownEntity
		case e.Bag() == nil:
			lookupErr = ErrNotAUser
		default:
			out = e.Bag().Stacks()
		}
	})
	if err != nil {
		return nil, err
	}
	return out, lookupErr
}
