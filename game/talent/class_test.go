package talent

import (
	"context"
	"testing"

	"github.com/hellasmmo/server/game/stats"
	"github.com/hellasmmo/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInventory map[string]int

func (f fakeInventory) HasItems(id string, qty int) bool { return f[id] >= qty }
func (f fakeInventory) RemoveItems(id string, qty int)   { f[id] -= qty }

type fixedIntn int

func (f fixedIntn) Intn(n int) int { return int(f) % n }

type fixture struct {
	ct                           *ClassType
	toughness, spark, blaze, orb ID
}

func newFixture() fixture {
	ct := NewClassType("athlete", "Athlete")
	f := fixture{ct: ct}
	f.toughness = ct.AddStats("Toughness", "body", stats.Modifier{Armour: 10, MaxHealth: 5}, Tier{})
	f.spark = ct.AddStats("Spark", "fire", stats.Modifier{MagicDamage: 1}, Tier{})
	f.blaze = ct.AddSpell("Blaze", "fire", "blaze", Tier{Name: "II", RequiredPointsInTree: 2})
	f.orb = ct.AddSpell("Orb", "fire", "orb", Tier{Cost: ItemCost{ItemID: "tome", Quantity: 2}})
	ct.FreeSpell = "punch"
	return f
}

func newClass(ct *ClassType, level int) *Class {
	return NewClass(ct, func() int { return level }, zap.NewNop())
}

func TestClassType_AddAndFind(t *testing.T) {
	f := newFixture()
	assert.Equal(t, ID(0), f.toughness)
	assert.Equal(t, ID(2), f.blaze)

	// Re-adding a name keeps the original.
	assert.Equal(t, f.spark, f.ct.AddStats("Spark", "fire", stats.Modifier{}, Tier{}))
	assert.Len(t, f.ct.Talents, 4)

	tal, ok := f.ct.FindTalent("Blaze")
	require.True(t, ok)
	assert.Equal(t, Spell, tal.Kind)
	assert.Equal(t, "blaze", tal.SpellID)

	_, ok = f.ct.FindTalent("Nope")
	assert.False(t, ok)
	_, ok = f.ct.Talent(99)
	assert.False(t, ok)
	assert.Equal(t, []string{"body", "fire"}, f.ct.Trees())
}

func TestClass_BudgetIsLevelPlusOne(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 4)
	assert.Equal(t, 5, c.TalentPointsAvailable())

	for i := 0; i < 5; i++ {
		require.True(t, c.CanTakeATalent())
		require.NoError(t, c.TakeTalent(f.toughness, nil))
	}
	assert.False(t, c.CanTakeATalent())
	assert.ErrorIs(t, c.TakeTalent(f.toughness, nil), ErrNoTalentPoints)
	assert.Equal(t, 5, c.Rank(f.toughness))
	assert.Equal(t, 5, c.TalentPointsAllocated())
}

func TestClass_SpellTalentHasOneRank(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 10)
	require.NoError(t, c.TakeTalent(f.spark, nil))
	require.NoError(t, c.TakeTalent(f.spark, nil))
	require.NoError(t, c.TakeTalent(f.blaze, nil))

	err := c.TakeTalent(f.blaze, nil)
	assert.ErrorIs(t, err, ErrTalentMaxRank)
	assert.Equal(t, 1, c.Rank(f.blaze))
	assert.Equal(t, 3, c.TalentPointsAllocated())
}

func TestClass_UnknownTalent(t *testing.T) {
	c := newClass(newFixture().ct, 10)
	assert.ErrorIs(t, c.TakeTalent(42, nil), ErrUnknownTalent)
	assert.ErrorIs(t, c.TakeTalent(-1, nil), ErrUnknownTalent)
}

func TestClass_TierRequiresPointsInSameTree(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 10)

	// Points in another tree do not count.
	require.NoError(t, c.TakeTalent(f.toughness, nil))
	require.NoError(t, c.TakeTalent(f.toughness, nil))
	assert.ErrorIs(t, c.TakeTalent(f.blaze, nil), ErrTierLocked)

	require.NoError(t, c.TakeTalent(f.spark, nil))
	require.NoError(t, c.TakeTalent(f.spark, nil))
	require.NoError(t, c.TakeTalent(f.blaze, nil))
	assert.Equal(t, 3, c.PointsInTree("fire"))
}

func TestClass_ItemCostRemovedOnlyOnSuccess(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 10)

	inv := fakeInventory{"tome": 1}
	assert.ErrorIs(t, c.TakeTalent(f.orb, inv), ErrCannotAfford)
	assert.Equal(t, 1, inv["tome"])
	assert.ErrorIs(t, c.TakeTalent(f.orb, nil), ErrCannotAfford)
	assert.Equal(t, 0, c.TalentPointsAllocated())

	inv["tome"] = 3
	require.NoError(t, c.TakeTalent(f.orb, inv))
	assert.Equal(t, 1, inv["tome"])

	// A refused second rank does not charge again.
	assert.ErrorIs(t, c.TakeTalent(f.orb, inv), ErrTalentMaxRank)
	assert.Equal(t, 1, inv["tome"])
}

func TestClass_ApplyStatsToFoldsPerRank(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 10)
	require.NoError(t, c.TakeTalent(f.toughness, nil))
	require.NoError(t, c.TakeTalent(f.toughness, nil))
	require.NoError(t, c.TakeTalent(f.toughness, nil))
	require.NoError(t, c.TakeTalent(f.spark, nil))

	got := c.ApplyStatsTo(stats.Block{Armour: 5, MaxHealth: 100})
	assert.Equal(t, stats.ArmourClass(35), got.Armour)
	assert.Equal(t, 115, got.MaxHealth)
	assert.Equal(t, 1, got.MagicDamage)
	assert.Len(t, c.StatModifiers(), 4)
}

func TestClass_KnowsSpell(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 10)
	assert.False(t, c.KnowsSpell("blaze"))

	c.LoadTalentRank(f.spark, 2)
	require.NoError(t, c.TakeTalent(f.blaze, nil))
	assert.True(t, c.KnowsSpell("blaze"))

	assert.True(t, c.TeachSpell("heal"))
	assert.False(t, c.TeachSpell("heal"))
	assert.False(t, c.TeachSpell("blaze"))
	assert.True(t, c.KnowsSpell("heal"))

	free, ok := c.TeachFreeSpellIfAny()
	assert.True(t, ok)
	assert.Equal(t, "punch", free)
	_, ok = c.TeachFreeSpellIfAny()
	assert.False(t, ok)

	assert.Equal(t, []string{"blaze", "heal", "punch"}, c.KnownSpells())
	assert.Equal(t, []string{"heal", "punch"}, c.TaughtSpells())
}

func TestClass_UnlearnAllKeepsTaughtSpells(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 10)
	c.LoadTalentRank(f.spark, 2)
	c.LoadTalentRank(f.blaze, 1)
	c.TeachSpell("heal")

	c.UnlearnAll()
	assert.Equal(t, 0, c.TalentPointsAllocated())
	assert.False(t, c.KnowsSpell("blaze"))
	assert.True(t, c.KnowsSpell("heal"))
	assert.Empty(t, c.Ranks())
}

func TestClass_LoseARandomLeafTalent(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 10)
	c.LoadTalentRank(f.spark, 2)
	c.LoadTalentRank(f.blaze, 1)
	require.Equal(t, 3, c.TalentPointsAllocated())

	// Spark supports Blaze, so Blaze is the only leaf.
	for seed := 0; seed < 3; seed++ {
		clone := newClass(f.ct, 10)
		clone.LoadTalentRank(f.spark, 2)
		clone.LoadTalentRank(f.blaze, 1)
		lost, ok := clone.LoseARandomLeafTalent(fixedIntn(seed))
		require.True(t, ok)
		assert.Equal(t, "Blaze", lost.Name)
	}

	lost, ok := c.LoseARandomLeafTalent(fixedIntn(0))
	require.True(t, ok)
	assert.Equal(t, "Blaze", lost.Name)
	lost, ok = c.LoseARandomLeafTalent(fixedIntn(0))
	require.True(t, ok)
	assert.Equal(t, "Spark", lost.Name)
	assert.Equal(t, 1, c.TalentPointsAllocated())
}

func TestClass_LoseARandomLeafTalent_None(t *testing.T) {
	c := newClass(newFixture().ct, 10)
	_, ok := c.LoseARandomLeafTalent(fixedIntn(0))
	assert.False(t, ok)
}

func TestClass_CloneIsIndependent(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 5)
	require.NoError(t, c.TakeTalent(f.toughness, nil))
	c.TeachSpell("punch")

	cp := c.Clone()
	require.NoError(t, c.TakeTalent(f.toughness, nil))
	c.TeachSpell("kick")

	assert.Equal(t, 1, cp.Rank(f.toughness))
	assert.Equal(t, 1, cp.TalentPointsAllocated())
	assert.Equal(t, []string{"punch"}, cp.TaughtSpells())
	assert.Equal(t, 2, c.Rank(f.toughness))
}

func TestClass_GrowsWithType(t *testing.T) {
	f := newFixture()
	c := newClass(f.ct, 10)
	late := f.ct.AddStats("Late", "body", stats.Modifier{Hit: 100}, Tier{})
	require.NoError(t, c.TakeTalent(late, nil))
	assert.Equal(t, 1, c.Rank(late))
}

func TestStore_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db, zap.NewNop())
	ctx := context.Background()
	f := newFixture()

	c := newClass(f.ct, 10)
	c.LoadTalentRank(f.toughness, 3)
	c.LoadTalentRank(f.spark, 2)
	c.LoadTalentRank(f.blaze, 1)
	c.TeachSpell("heal")
	require.NoError(t, store.Save(ctx, "alice", c))

	// Saving again replaces rather than duplicates.
	require.NoError(t, store.Save(ctx, "alice", c))

	loaded := newClass(f.ct, 10)
	require.NoError(t, store.Load(ctx, "alice", loaded))
	assert.Equal(t, c.Ranks(), loaded.Ranks())
	assert.Equal(t, 6, loaded.TalentPointsAllocated())
	assert.True(t, loaded.KnowsSpell("heal"))
	assert.True(t, loaded.KnowsSpell("blaze"))

	other := newClass(f.ct, 10)
	require.NoError(t, store.Load(ctx, "bob", other))
	assert.Empty(t, other.Ranks())
}

func TestStore_SkipsTalentsMissingFromClass(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewStore(db, zap.NewNop())
	ctx := context.Background()

	f := newFixture()
	c := newClass(f.ct, 10)
	c.LoadTalentRank(f.toughness, 1)
	require.NoError(t, store.Save(ctx, "alice", c))

	other := NewClassType("mage", "Mage")
	bolt := other.AddSpell("Bolt", "air", "bolt", Tier{})
	loaded := newClass(other, 10)
	require.NoError(t, store.Load(ctx, "alice", loaded))
	assert.Equal(t, 0, loaded.Rank(bolt))
	assert.Equal(t, 0, loaded.TalentPointsAllocated())
}
