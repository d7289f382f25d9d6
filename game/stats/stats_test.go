package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseBlock() Block {
	return Block{
		Armour:     50,
		MaxHealth:  100,
		MaxEnergy:  80,
		HPS:        1,
		EPS:        1,
		Hit:        Percent(5),
		Crit:       Percent(5),
		Dodge:      Percent(5),
		Block:      Percent(5),
		BlockValue: 10,
		FireResist: 20,
		Speed:      1.0,
	}
}

// ---- Compose ----

func TestCompose_Additive(t *testing.T) {
	got := Compose(baseBlock(), Modifier{Armour: 25, MaxHealth: 50, Crit: Percent(3), FireResist: 5})
	assert.Equal(t, ArmourClass(75), got.Armour)
	assert.Equal(t, 150, got.MaxHealth)
	assert.Equal(t, Percent(8), got.Crit)
	assert.Equal(t, ArmourClass(25), got.FireResist)
}

func TestCompose_DoesNotMutateBase(t *testing.T) {
	base := baseBlock()
	_ = Compose(base, Modifier{Armour: 1000, Stuns: true})
	assert.Equal(t, baseBlock(), base)
}

func TestCompose_MaxHealthClampsAtZero(t *testing.T) {
	got := Compose(baseBlock(), Modifier{MaxHealth: -500, MaxEnergy: -81})
	assert.Equal(t, 0, got.MaxHealth)
	assert.Equal(t, 0, got.MaxEnergy)
}

func TestCompose_SignedFieldsGoNegative(t *testing.T) {
	got := Compose(baseBlock(), Modifier{HPS: -5, EPS: -3, Healing: -20, MagicDamage: -2, PhysicalDamage: -1})
	assert.Equal(t, -4, got.HPS)
	assert.Equal(t, -2, got.EPS)
	assert.Equal(t, -20, got.Healing)
	assert.Equal(t, -2, got.MagicDamage)
	assert.Equal(t, -1, got.PhysicalDamage)
}

func TestCompose_WeaponFieldsOverwriteWhenPositive(t *testing.T) {
	b := Compose(baseBlock(), Modifier{WeaponDamage: 12, AttackTime: 2000, WeaponSchool: Fire})
	assert.Equal(t, 12, b.WeaponDamage)
	assert.Equal(t, 2000, b.AttackTime)
	assert.Equal(t, Fire, b.WeaponSchool)

	b = Compose(b, Modifier{WeaponDamage: 7})
	assert.Equal(t, 7, b.WeaponDamage, "last non-zero weapon damage wins")
	assert.Equal(t, 2000, b.AttackTime)

	b = Compose(b, Modifier{WeaponDamage: 0, AttackTime: -5})
	assert.Equal(t, 7, b.WeaponDamage)
	assert.Equal(t, 2000, b.AttackTime)
}

func TestCompose_SpeedMultiplicative(t *testing.T) {
	b := Compose(baseBlock(), Modifier{Speed: 2})
	assert.InDelta(t, 2.0, b.Speed, 1e-9)
	b = Compose(b, Modifier{Speed: 0.5})
	assert.InDelta(t, 1.0, b.Speed, 1e-9)
}

func TestCompose_SpeedAbsentIsNeutral(t *testing.T) {
	b := Compose(baseBlock(), Modifier{Armour: 1})
	assert.Equal(t, 1.0, b.Speed)
}

func TestCompose_NegativeSpeedStops(t *testing.T) {
	b := Compose(baseBlock(), Modifier{Speed: -1})
	assert.Equal(t, 0.0, b.Speed)
	b = Compose(b, Modifier{Speed: 3})
	assert.Equal(t, 0.0, b.Speed)
}

func TestCompose_StunnedIsOr(t *testing.T) {
	b := Compose(baseBlock(), Modifier{Stuns: true})
	assert.True(t, b.Stunned)
	b = Compose(b, Modifier{Stuns: false})
	assert.True(t, b.Stunned)
}

func TestCompose_ClampedFieldsNeverNegative(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	r := func() int { return rnd.Intn(4001) - 2000 }
	for i := 0; i < 2000; i++ {
		mod := Modifier{
			Armour: ArmourClass(r()), MaxHealth: r(), MaxEnergy: r(),
			Hit: BasisPoints(r()), Crit: BasisPoints(r()), CritResist: BasisPoints(r()),
			Dodge: BasisPoints(r()), Block: BasisPoints(r()), BlockValue: r(),
			AirResist: ArmourClass(r()), EarthResist: ArmourClass(r()),
			FireResist: ArmourClass(r()), WaterResist: ArmourClass(r()),
			GatherBonus: BasisPoints(r()), FollowerLimit: r(),
			Speed: float64(r()) / 500,
		}
		b := Compose(baseBlock(), mod)
		require.GreaterOrEqual(t, int(b.Armour), 0)
		require.GreaterOrEqual(t, b.MaxHealth, 0)
		require.GreaterOrEqual(t, b.MaxEnergy, 0)
		require.GreaterOrEqual(t, int(b.Hit), 0)
		require.GreaterOrEqual(t, int(b.Crit), 0)
		require.GreaterOrEqual(t, int(b.CritResist), 0)
		require.GreaterOrEqual(t, int(b.Dodge), 0)
		require.GreaterOrEqual(t, int(b.Block), 0)
		require.GreaterOrEqual(t, b.BlockValue, 0)
		require.GreaterOrEqual(t, int(b.AirResist), 0)
		require.GreaterOrEqual(t, int(b.EarthResist), 0)
		require.GreaterOrEqual(t, int(b.FireResist), 0)
		require.GreaterOrEqual(t, int(b.WaterResist), 0)
		require.GreaterOrEqual(t, int(b.GatherBonus), 0)
		require.GreaterOrEqual(t, b.FollowerLimit, 0)
		require.GreaterOrEqual(t, b.Speed, 0.0)
	}
}

// ---- associativity boundary ----

func TestFold_EqualsSummedModifierWithoutClamping(t *testing.T) {
	m1 := Modifier{Armour: 10, Crit: Percent(2), HPS: -3, Speed: 1.5}
	m2 := Modifier{Armour: 5, Crit: Percent(1), HPS: 4, Speed: 2}
	folded := Fold(baseBlock(), m1, m2)
	summed := Compose(baseBlock(), m1.Add(m2))
	assert.Equal(t, folded.Armour, summed.Armour)
	assert.Equal(t, folded.Crit, summed.Crit)
	assert.Equal(t, folded.HPS, summed.HPS)
	assert.InDelta(t, folded.Speed, summed.Speed, 1e-9)
}

func TestFold_ClampingBreaksAssociativity(t *testing.T) {
	base := Block{Armour: 30, Speed: 1}
	m1 := Modifier{Armour: -50}
	m2 := Modifier{Armour: 40}

	folded := Fold(base, m1, m2)
	summed := Compose(base, m1.Add(m2))

	assert.Equal(t, ArmourClass(40), folded.Armour, "intermediate result clamps to 0")
	assert.Equal(t, ArmourClass(20), summed.Armour)
}

func TestFold_OrderMattersForOverwrites(t *testing.T) {
	sword := Modifier{WeaponDamage: 10}
	axe := Modifier{WeaponDamage: 14}
	assert.Equal(t, 14, Fold(baseBlock(), sword, axe).WeaponDamage)
	assert.Equal(t, 10, Fold(baseBlock(), axe, sword).WeaponDamage)
}

func TestLayers_ApplyOrder(t *testing.T) {
	l := Layers{
		Gear:    []Modifier{{WeaponDamage: 5, Armour: 10}},
		Talents: []Modifier{{WeaponDamage: 6}},
		Buffs:   []Modifier{{WeaponDamage: 7}},
		Debuffs: []Modifier{{Armour: -1000}},
	}
	got := l.Apply(baseBlock())
	assert.Equal(t, 7, got.WeaponDamage)
	assert.Equal(t, ArmourClass(0), got.Armour)
}

func TestModifier_Repeat(t *testing.T) {
	m := Modifier{Crit: Percent(1)}
	got := Fold(Block{}, m.Repeat(3)...)
	assert.Equal(t, Percent(3), got.Crit)
	assert.Empty(t, m.Repeat(0))
}

// ---- units ----

func TestBasisPoints_Chance(t *testing.T) {
	assert.Equal(t, 0.0, BasisPoints(-5).Chance())
	assert.Equal(t, 0.25, Percent(25).Chance())
	assert.Equal(t, 1.0, Percent(150).Chance())
	assert.Equal(t, "12%", BasisPoints(1234).String())
}

func TestArmourClass_ApplyTo(t *testing.T) {
	assert.Equal(t, 0.0, MaxArmourClass.ApplyTo(500))
	assert.Equal(t, 0.0, ArmourClass(1500).ApplyTo(500))
	assert.Equal(t, 500.0, ArmourClass(0).ApplyTo(500))
	assert.Equal(t, 500.0, ArmourClass(-40).ApplyTo(500))
	assert.InDelta(t, 250.0, ArmourClass(500).ApplyTo(500), 1e-9)
}

func TestArmourClass_ModifyByLevelDiff(t *testing.T) {
	ac := ArmourClass(300)
	assert.Equal(t, ArmourClass(240), ac.ModifyByLevelDiff(7, 5, 30))
	assert.Equal(t, ArmourClass(360), ac.ModifyByLevelDiff(5, 7, 30))
	assert.Equal(t, ac, ac.ModifyByLevelDiff(5, 5, 30))
}

func TestSchool_Parse(t *testing.T) {
	assert.Equal(t, Physical, ParseSchool(""))
	assert.Equal(t, Physical, ParseSchool("physical"))
	assert.Equal(t, Fire, ParseSchool("Fire"))
	assert.Equal(t, Water, ParseSchool("water"))
	assert.Equal(t, Physical, ParseSchool("shadow"))
	assert.True(t, Air.IsMagic())
	assert.False(t, Physical.IsMagic())
	assert.Equal(t, "Earth", Earth.String())
}

func TestModifier_Describe(t *testing.T) {
	lines := Modifier{Armour: 10, Crit: Percent(2), EPS: -1, Speed: 1.1}.Describe()
	assert.Contains(t, lines, "+10 armour")
	assert.Contains(t, lines, "+2% crit")
	assert.Contains(t, lines, "-1 energy per second")
	assert.Contains(t, lines, "+10% run speed")
	assert.Equal(t, "Stun ", Modifier{Stuns: true}.BuffDescription())
}
