package world

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hellasmmo/server/game/ai"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/entity"
	"github.com/hellasmmo/server/game/spell"
	"github.com/hellasmmo/server/plugin/hook"
	"go.uber.org/zap"
)

var (
	ErrQueueFull      = errors.New("world: command queue full")
	ErrUnknownEntity  = errors.New("world: unknown entity")
	ErrEntityExists   = errors.New("world: entity already exists")
	ErrSimulationDone = errors.New("world: simulation stopped")
)

// Groups is the group lookup used to share kill experience.
type Groups interface {
	GroupOf(user string) []string
}

// Delayer schedules one-off tasks. *scheduler.Scheduler satisfies it.
type Delayer interface {
	AddDelay(name string, delay time.Duration, fn func())
}

// Intn is the random source for death penalties.
type Intn interface {
	Intn(n int) int
}

// DeathEvent is the OnEntityDeath hook payload.
type DeathEvent struct {
	Victim string
	Killer string // empty when nobody earned the kill
	XPEach int
	Shared []string // users who received XPEach
}

// Options configures a Simulation.
type Options struct {
	QueueSize    int
	RespawnDelay time.Duration // 0 disables NPC respawn
	UserSpawn    combat.Point  // where dead users come back
}

// Command runs on the simulation goroutine with exclusive access to the world.
type Command func(tx *Tx)

// Simulation owns every entity. All mutation happens inside Tick, which drains
// the commands other goroutines enqueue.
type Simulation struct {
	mu       sync.RWMutex
	entities map[string]*entity.Entity
	dead     map[string]bool
	brains   map[string]*ai.Brain

	cmds       chan Command
	stopped    chan struct{}
	stopOnce   sync.Once
	dispatcher *spell.Dispatcher
	groups     Groups
	hooks      *hook.HookCenter
	delayer    Delayer
	rnd        Intn
	opts       Options
	now        func() time.Time
	logger     *zap.Logger
}

// NewSimulation creates a Simulation. groups, hooks and delayer may be nil.
func NewSimulation(opts Options, dispatcher *spell.Dispatcher, groups Groups, hooks *hook.HookCenter, delayer Delayer, rnd Intn, logger *zap.Logger) *Simulation {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	return &Simulation{
		entities:   make(map[string]*entity.Entity),
		dead:       make(map[string]bool),
		brains:     make(map[string]*ai.Brain),
		cmds:       make(chan Command, opts.QueueSize),
		stopped:    make(chan struct{}),
		dispatcher: dispatcher,
		groups:     groups,
		hooks:      hooks,
		delayer:    delayer,
		rnd:        rnd,
		opts:       opts,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock replaces the simulation time source.
func (s *Simulation) SetClock(now func() time.Time) { s.now = now }

// Add registers an entity. Call it between ticks or from a Command via Tx.Add.
func (s *Simulation) Add(e *entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(e)
}

func (s *Simulation) addLocked(e *entity.Entity) error {
	if _, ok := s.entities[e.Name()]; ok {
		return ErrEntityExists
	}
	e.SetClock(s.now)
	s.entities[e.Name()] = e
	return nil
}

// SetBrain gives an NPC a brain that acts on every tick. A nil brain removes it.
func (s *Simulation) SetBrain(name string, b *ai.Brain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b == nil {
		delete(s.brains, name)
		return
	}
	s.brains[name] = b
}

// Len returns the number of entities.
func (s *Simulation) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// EntitySnapshot is a read-only copy of an entity's public state.
type EntitySnapshot struct {
	Name      string       `json:"name"`
	User      bool         `json:"user"`
	Level     int          `json:"level"`
	Health    int          `json:"health"`
	MaxHealth int          `json:"max_health"`
	Energy    int          `json:"energy"`
	MaxEnergy int          `json:"max_energy"`
	Location  combat.Point `json:"location"`
	Buffs     []string     `json:"buffs"`
	Debuffs   []string     `json:"debuffs"`
}

// Snapshot copies an entity's state for readers outside the simulation.
func (s *Simulation) Snapshot(name string) (EntitySnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[name]
	if !ok {
		return EntitySnapshot{}, false
	}
	st := e.Stats()
	snap := EntitySnapshot{
		Name:      e.Name(),
		User:      e.IsUser(),
		Level:     e.Level(),
		Health:    e.Health(),
		MaxHealth: st.MaxHealth,
		Energy:    e.Energy(),
		MaxEnergy: st.MaxEnergy,
		Location:  e.Location(),
		Buffs:     []string{},
		Debuffs:   []string{},
	}
	for _, b := range e.Buffs() {
		snap.Buffs = append(snap.Buffs, b.ID)
	}
	for _, b := range e.Debuffs() {
		snap.Debuffs = append(snap.Debuffs, b.ID)
	}
	return snap, true
}

// Enqueue hands cmd to the simulation without blocking.
func (s *Simulation) Enqueue(cmd Command) error {
	select {
	case s.cmds <- cmd:
		return nil
	default:
		s.logger.Warn("world command queue full, dropping command")
		return ErrQueueFull
	}
}

// Do enqueues cmd and waits until a tick has run it. Once the simulation is
// stopped the caller runs pending commands itself. A context that is already
// done queues nothing.
func (s *Simulation) Do(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	if err := s.Enqueue(func(tx *Tx) {
		defer close(done)
		cmd(tx)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		s.mu.Lock()
		s.drain(&Tx{sim: s})
		s.mu.Unlock()
		<-done
		return nil
	}
}

// Stop marks the end of ticking and runs whatever is still queued. Later
// calls to Do run on the caller's goroutine.
func (s *Simulation) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.stopped)
		s.drain(&Tx{sim: s})
	})
}

// CastSpell casts sp from caster on target on the next tick and returns the result.
func (s *Simulation) CastSpell(ctx context.Context, sp *spell.Spell, caster, target string) (combat.Result, error) {
	result := combat.Fail
	var lookupErr error
	err := s.Do(ctx, func(tx *Tx) {
		c, ok := tx.Get(caster)
		t, ok2 := tx.Get(target)
		if !ok || !ok2 {
			lookupErr = ErrUnknownEntity
			return
		}
		result = tx.Cast(ctx, sp, c, t)
	})
	if err != nil {
		return combat.Fail, err
	}
	return result, lookupErr
}

// Tick runs queued commands, then regeneration and buff timers, then NPC
// brains, handling deaths after each step. It is called from a single goroutine.
func (s *Simulation) Tick(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{sim: s}
	s.drain(tx)

	now := s.now()
	lookup := func(name string) (spell.Target, bool) {
		e, ok := s.entities[name]
		return e, ok
	}
	for _, name := range s.sortedNames() {
		e := s.entities[name]
		if e.IsDead() {
			continue
		}
		e.Regen(elapsed)
		e.TickBuffs(now, lookup)
	}
	s.collectDead()

	for _, name := range s.sortedNames() {
		e := s.entities[name]
		b := s.brains[name]
		if b == nil || e.IsUser() || e.IsDead() || e.Stats().Stunned {
			continue
		}
		b.Think(context.Background(), e, tx, elapsed)
		s.collectDead()
	}
}

// drain runs every queued command. s.mu must be held.
func (s *Simulation) drain(tx *Tx) {
	for {
		select {
		case cmd := <-s.cmds:
			s.run(cmd, tx)
		default:
			return
		}
	}
}

func (s *Simulation) run(cmd Command, tx *Tx) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("world command panicked", zap.Any("recover", r))
		}
	}()
	cmd(tx)
	s.collectDead()
}

func (s *Simulation) sortedNames() []string {
	names := make([]string, 0, len(s.entities))
	for n := range s.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// collectDead handles every entity that died since the last check.
func (s *Simulation) collectDead() {
	for _, name := range s.sortedNames() {
		e := s.entities[name]
		if !e.IsDead() {
			delete(s.dead, name)
			continue
		}
		if s.dead[name] {
			continue
		}
		s.dead[name] = true
		s.onDeath(e)
	}
}

func (s *Simulation) onDeath(victim *entity.Entity) {
	ev := DeathEvent{Victim: victim.Name()}

	if tt := victim.ThreatTable(); tt != nil {
		if killer, ok := tt.Target(); ok {
			ev.Killer = killer
			s.awardXP(victim, &ev)
		}
	}
	victim.ClearBuffs()

	if victim.IsUser() {
		if c := victim.Class(); c != nil && s.rnd != nil {
			if lost, ok := c.LoseARandomLeafTalent(s.rnd); ok {
				victim.Recompute()
				s.logger.Info("talent lost on death",
					zap.String("user", victim.Name()),
					zap.String("talent", lost.Name))
			}
		}
		victim.TeleportTo(s.opts.UserSpawn)
		victim.Revive()
	} else {
		// NPCs forget everyone who fought them.
		victim.ThreatTable().Clear()
		s.scheduleRespawn(victim.Name())
	}

	s.logger.Info("entity died",
		zap.String("victim", ev.Victim),
		zap.String("killer", ev.Killer),
		zap.Int("xp_each", ev.XPEach))
	if s.hooks != nil {
		_, _ = s.hooks.Trigger(context.Background(), hook.OnEntityDeath, ev)
	}
}

func (s *Simulation) awardXP(victim *entity.Entity, ev *DeathEvent) {
	killer, ok := s.entities[ev.Killer]
	if !ok || !killer.IsUser() || victim.XPReward() <= 0 {
		return
	}
	members := []string{ev.Killer}
	if s.groups != nil {
		members = s.groups.GroupOf(ev.Killer)
	}
	ev.XPEach = combat.XPShare(victim.XPReward(), len(members))
	for _, m := range members {
		e, ok := s.entities[m]
		if !ok || e.IsDead() || !e.IsUser() {
			continue
		}
		if lv := e.GainXP(ev.XPEach); lv > 0 {
			s.logger.Info("level up", zap.String("user", m), zap.Int("level", e.Level()))
		}
		ev.Shared = append(ev.Shared, m)
	}
}

func (s *Simulation) scheduleRespawn(name string) {
	if s.delayer == nil || s.opts.RespawnDelay <= 0 {
		return
	}
	s.delayer.AddDelay("respawn:"+name, s.opts.RespawnDelay, func() {
		_ = s.Enqueue(func(tx *Tx) {
			if e, ok := tx.Get(name); ok && e.IsDead() {
				e.Revive()
				if b := tx.sim.brains[name]; b != nil {
					b.Reset()
				}
			}
		})
	})
}

// Tx is the simulation as seen from inside a Command. It must not be retained.
type Tx struct {
	sim *Simulation
}

// Get returns an entity by name.
func (tx *Tx) Get(name string) (*entity.Entity, bool) {
	e, ok := tx.sim.entities[name]
	return e, ok
}

// Add registers an entity.
func (tx *Tx) Add(e *entity.Entity) error { return tx.sim.addLocked(e) }

// Remove drops an entity.
func (tx *Tx) Remove(name string) bool {
	if _, ok := tx.sim.entities[name]; !ok {
		return false
	}
	delete(tx.sim.entities, name)
	delete(tx.sim.dead, name)
	delete(tx.sim.brains, name)
	return true
}

// Within returns the living entities within radius pixels of p, sorted by name.
func (tx *Tx) Within(p combat.Point, radius float64) []*entity.Entity {
	var out []*entity.Entity
	for _, name := range tx.sim.sortedNames() {
		e := tx.sim.entities[name]
		if !e.IsDead() && e.Location().DistanceTo(p) <= radius {
			out = append(out, e)
		}
	}
	return out
}

// Cast casts a single-target spell, or an area spell centred on the target's location.
func (tx *Tx) Cast(ctx context.Context, sp *spell.Spell, caster, target *entity.Entity) combat.Result {
	if sp.Effect != nil && sp.Effect.IsAoE() {
		centre := target.Location()
		var candidates []spell.Target
		for _, e := range tx.Within(centre, sp.Effect.Radius.Pixels()) {
			candidates = append(candidates, e)
		}
		res, _ := tx.sim.dispatcher.CastAoE(ctx, sp, caster, centre, candidates)
		return res
	}
	return tx.sim.dispatcher.Cast(ctx, sp, caster, target)
}
