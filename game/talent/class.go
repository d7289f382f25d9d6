package talent

import (
	"errors"
	"sort"

	"github.com/hellasmmo/server/game/stats"
	"go.uber.org/zap"
)

var (
	ErrNoTalentPoints = errors.New("talent: no talent points available")
	ErrUnknownTalent  = errors.New("talent: unknown talent")
	ErrTalentMaxRank  = errors.New("talent: talent already at max rank")
	ErrTierLocked     = errors.New("talent: not enough points in tree for tier")
	ErrCannotAfford   = errors.New("talent: missing items for tier cost")
)

// Inventory is the item store a tier cost is paid from.
type Inventory interface {
	HasItems(itemID string, qty int) bool
	RemoveItems(itemID string, qty int)
}

// Intn is the random source used to pick a talent to lose. *math/rand.Rand satisfies it.
type Intn interface {
	Intn(n int) int
}

// Class is one user's talent allocation within a ClassType.
// Not safe for concurrent use; it is owned by the simulation goroutine.
type Class struct {
	typ       *ClassType
	level     func() int
	ranks     []int // indexed by ID
	allocated int
	spells    map[string]struct{} // known outside of talents
	logger    *zap.Logger
}

// NewClass creates an empty allocation. level reports the owner's current level.
func NewClass(typ *ClassType, level func() int, logger *zap.Logger) *Class {
	return &Class{
		typ:    typ,
		level:  level,
		ranks:  make([]int, len(typ.Talents)),
		spells: make(map[string]struct{}),
		logger: logger,
	}
}

// Type returns the class definition.
func (c *Class) Type() *ClassType { return c.typ }

// TalentPointsAvailable is the owner's total talent budget.
func (c *Class) TalentPointsAvailable() int { return c.level() + 1 }

// TalentPointsAllocated is the number of ranks spent.
func (c *Class) TalentPointsAllocated() int { return c.allocated }

// CanTakeATalent reports whether an unspent point remains.
func (c *Class) CanTakeATalent() bool {
	return c.allocated < c.TalentPointsAvailable()
}

// Rank returns the rank held in a talent.
func (c *Class) Rank(id ID) int {
	if !c.valid(id) {
		return 0
	}
	return c.ranks[id]
}

// HasTalent reports whether at least one rank is held.
func (c *Class) HasTalent(id ID) bool { return c.Rank(id) > 0 }

// TakeTalent spends one point on the talent. Checks run before any mutation, and
// a tier's item cost is removed only once every check has passed.
func (c *Class) TakeTalent(id ID, inv Inventory) error {
	t, ok := c.typ.Talent(id)
	if !ok {
		return ErrUnknownTalent
	}
	c.grow()
	if !c.CanTakeATalent() {
		return ErrNoTalentPoints
	}
	if t.Kind != Stats && c.ranks[id] > 0 {
		c.logger.Error("second rank of a non-stats talent refused",
			zap.String("class", c.typ.ID),
			zap.String("talent", t.Name))
		return ErrTalentMaxRank
	}
	if t.Tier.RequiredPointsInTree > 0 && c.PointsInTree(t.Tree) < t.Tier.RequiredPointsInTree {
		return ErrTierLocked
	}
	if t.Tier.HasItemCost() {
		if inv == nil || !inv.HasItems(t.Tier.Cost.ItemID, t.Tier.Cost.Quantity) {
			return ErrCannotAfford
		}
		inv.RemoveItems(t.Tier.Cost.ItemID, t.Tier.Cost.Quantity)
	}

	c.ranks[id]++
	c.allocated++
	return nil
}

// LoadTalentRank restores a persisted rank without any checks.
func (c *Class) LoadTalentRank(id ID, rank int) {
	c.grow()
	if !c.valid(id) || rank < 0 {
		return
	}
	c.allocated += rank - c.ranks[id]
	c.ranks[id] = rank
}

// Ranks returns the held ranks keyed by talent id, omitting zero ranks.
func (c *Class) Ranks() map[ID]int {
	out := make(map[ID]int)
	for id, r := range c.ranks {
		if r > 0 {
			out[ID(id)] = r
		}
	}
	return out
}

// PointsInTree sums the ranks held in one tree.
func (c *Class) PointsInTree(tree string) int {
	total := 0
	for id, r := range c.ranks {
		if c.typ.Talents[id].Tree == tree {
			total += r
		}
	}
	return total
}

// ApplyStatsTo folds every stat talent's modifier onto base once per rank,
// in talent-id order.
func (c *Class) ApplyStatsTo(base stats.Block) stats.Block {
	return stats.Fold(base, c.StatModifiers()...)
}

// StatModifiers returns the talent modifiers in the order ApplyStatsTo folds them.
func (c *Class) StatModifiers() []stats.Modifier {
	var mods []stats.Modifier
	for id, r := range c.ranks {
		t := &c.typ.Talents[id]
		if t.Kind != Stats || r == 0 {
			continue
		}
		mods = append(mods, t.Stats.Repeat(r)...)
	}
	return mods
}

// KnowsSpell reports whether the spell is known through a talent or was taught.
func (c *Class) KnowsSpell(spellID string) bool {
	for id, r := range c.ranks {
		t := &c.typ.Talents[id]
		if t.Kind == Spell && t.SpellID == spellID && r > 0 {
			return true
		}
	}
	_, ok := c.spells[spellID]
	return ok
}

// KnownSpells lists every known spell id, sorted.
func (c *Class) KnownSpells() []string {
	seen := make(map[string]struct{}, len(c.spells))
	for id, r := range c.ranks {
		t := &c.typ.Talents[id]
		if t.Kind == Spell && r > 0 {
			seen[t.SpellID] = struct{}{}
		}
	}
	for s := range c.spells {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// TaughtSpells lists spells known outside of talents, sorted.
func (c *Class) TaughtSpells() []string {
	out := make([]string, 0, len(c.spells))
	for s := range c.spells {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// TeachSpell marks a spell as known. Returns false if it already was.
func (c *Class) TeachSpell(spellID string) bool {
	if c.KnowsSpell(spellID) {
		return false
	}
	c.spells[spellID] = struct{}{}
	return true
}

// TeachFreeSpellIfAny teaches the class's free spell if it is not known yet.
func (c *Class) TeachFreeSpellIfAny() (string, bool) {
	if c.typ.FreeSpell == "" {
		return "", false
	}
	if !c.TeachSpell(c.typ.FreeSpell) {
		return "", false
	}
	return c.typ.FreeSpell, true
}

// UnlearnAll refunds every talent point. Taught spells are kept.
func (c *Class) UnlearnAll() {
	for i := range c.ranks {
		c.ranks[i] = 0
	}
	c.allocated = 0
}

// Clone returns an independent copy bound to the same type and level source.
func (c *Class) Clone() *Class {
	cp := &Class{
		typ:       c.typ,
		level:     c.level,
		ranks:     append([]int(nil), c.ranks...),
		allocated: c.allocated,
		spells:    make(map[string]struct{}, len(c.spells)),
		logger:    c.logger,
	}
	for s := range c.spells {
		cp.spells[s] = struct{}{}
	}
	return cp
}

// LoseARandomLeafTalent removes one rank from a talent chosen uniformly among those
// whose loss leaves every other held talent's tier requirement satisfied.
func (c *Class) LoseARandomLeafTalent(rnd Intn) (*Talent, bool) {
	var candidates []ID
	for id, r := range c.ranks {
		if r > 0 && c.isLeaf(ID(id)) {
			candidates = append(candidates, ID(id))
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	drop := candidates[rnd.Intn(len(candidates))]
	c.ranks[drop]--
	c.allocated--
	t := &c.typ.Talents[drop]
	c.logger.Debug("talent rank lost",
		zap.String("class", c.typ.ID),
		zap.String("talent", t.Name),
		zap.Int("rank", c.ranks[drop]))
	return t, true
}

func (c *Class) isLeaf(id ID) bool {
	without := make([]int, len(c.ranks))
	copy(without, c.ranks)
	without[id]--
	for other := range without {
		if !c.isSupported(ID(other), without) {
			return false
		}
	}
	return true
}

// isSupported reports whether lower-tier talents in the same tree hold enough
// points to unlock the talent's tier.
func (c *Class) isSupported(id ID, ranks []int) bool {
	if ranks[id] == 0 {
		return true
	}
	t := &c.typ.Talents[id]
	required := t.Tier.RequiredPointsInTree
	if required == 0 {
		return true
	}
	for otherID, r := range ranks {
		if r == 0 || ID(otherID) == id {
			continue
		}
		other := &c.typ.Talents[otherID]
		if other.Tree != t.Tree || other.Tier.RequiredPointsInTree >= t.Tier.RequiredPointsInTree {
			continue
		}
		if r >= required {
			return true
		}
		required -= r
	}
	return false
}

// grow extends the rank table when talents were added to the type after creation.
func (c *Class) grow() {
	for len(c.ranks) < len(c.typ.Talents) {
		c.ranks = append(c.ranks, 0)
	}
}

func (c *Class) valid(id ID) bool {
	return id >= 0 && int(id) < len(c.ranks)
}
