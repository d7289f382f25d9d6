package buff

import (
	"sync"
	"time"

	"github.com/hellasmmo/server/game/stats"
)

// Type is the catalog definition of a buff or debuff. Types are shared and read-only.
type Type struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Stats    stats.Modifier `yaml:"stats"`
	School   stats.School   `yaml:"school"`
	Duration time.Duration  `yaml:"duration"` // 0 = until removed
	// TickInterval > 0 makes the buff deal TickDamage every interval
	// (negative TickDamage heals).
	TickInterval time.Duration `yaml:"tick_interval"`
	TickDamage   int           `yaml:"tick_damage"`
	// Buffs sharing a non-empty category replace each other.
	NonStackingCategory string `yaml:"non_stacking_category"`
}

// DoesntStackWith reports whether applying other should replace t.
func (t *Type) DoesntStackWith(other *Type) bool {
	if t.NonStackingCategory == "" {
		return false
	}
	return t.NonStackingCategory == other.NonStackingCategory
}

// Instance is one active buff or debuff on an entity.
type Instance struct {
	Type     *Type
	Caster   string
	ExpireAt time.Time
	NextTick time.Time
}

// IsExpired reports whether this buff has expired.
func (b *Instance) IsExpired(now time.Time) bool {
	return !b.ExpireAt.IsZero() && !now.Before(b.ExpireAt)
}

// NeedsTickAt reports whether a periodic tick is due.
func (b *Instance) NeedsTickAt(now time.Time) bool {
	return b.Type.TickInterval > 0 && !b.NextTick.IsZero() && !now.Before(b.NextTick)
}

// AdvanceTick advances the NextTick timer.
func (b *Instance) AdvanceTick() {
	b.NextTick = b.NextTick.Add(b.Type.TickInterval)
}

// List manages the buffs (or the debuffs) of a single entity.
type List struct {
	mu    sync.RWMutex
	buffs []*Instance
}

// Add applies t. An existing instance of the same type is refreshed; an instance of a
// non-stacking type in the same category is replaced. It returns true when the set
// of active types changed.
func (l *List) Add(t *Type, caster string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.buffs {
		if b.Type.ID == t.ID {
			b.Caster = caster
			b.ExpireAt = expiry(t, now)
			return false
		}
	}
	kept := l.buffs[:0]
	for _, b := range l.buffs {
		if !b.Type.DoesntStackWith(t) {
			kept = append(kept, b)
		}
	}
	l.buffs = kept

	b := &Instance{Type: t, Caster: caster, ExpireAt: expiry(t, now)}
	if t.TickInterval > 0 {
		b.NextTick = now.Add(t.TickInterval)
	}
	l.buffs = append(l.buffs, b)
	return true
}

func expiry(t *Type, now time.Time) time.Time {
	if t.Duration <= 0 {
		return time.Time{}
	}
	return now.Add(t.Duration)
}

// Remove removes a buff by type id. Returns true if it was present.
func (l *List) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, b := range l.buffs {
		if b.Type.ID == id {
			l.buffs = append(l.buffs[:i], l.buffs[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether a buff of the given type id is active.
func (l *List) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, b := range l.buffs {
		if b.Type.ID == id {
			return true
		}
	}
	return false
}

// Len returns the number of active buffs.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buffs)
}

// All returns the active types in application order.
func (l *List) All() []*Type {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Type, len(l.buffs))
	for i, b := range l.buffs {
		out[i] = b.Type
	}
	return out
}

// OfSchool returns the active types of one school, in application order.
func (l *List) OfSchool(school stats.School) []*Type {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Type
	for _, b := range l.buffs {
		if b.Type.School == school {
			out = append(out, b.Type)
		}
	}
	return out
}

// Modifiers returns the stat modifiers of every active buff in application order.
func (l *List) Modifiers() []stats.Modifier {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]stats.Modifier, len(l.buffs))
	for i, b := range l.buffs {
		out[i] = b.Type.Stats
	}
	return out
}

// Clear removes every buff.
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buffs = nil
}

// TickResult describes the outcome of one buff tick.
type TickResult struct {
	BuffID  string
	Caster  string
	Damage  int // positive = damage, negative = heal
	Expired bool
}

// Tick applies due periodic effects and removes expired buffs.
func (l *List) Tick(now time.Time) []TickResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	var results []TickResult
	kept := l.buffs[:0]
	for _, b := range l.buffs {
		for b.NeedsTickAt(now) && (b.ExpireAt.IsZero() || b.NextTick.Before(b.ExpireAt) || b.NextTick.Equal(b.ExpireAt)) {
			results = append(results, TickResult{BuffID: b.Type.ID, Caster: b.Caster, Damage: b.Type.TickDamage})
			b.AdvanceTick()
		}
		if b.IsExpired(now) {
			results = append(results, TickResult{BuffID: b.Type.ID, Caster: b.Caster, Expired: true})
			continue
		}
		kept = append(kept, b)
	}
	l.buffs = kept
	return results
}
