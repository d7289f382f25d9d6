package stats

// Block holds the live, derived combat stats of an entity. It is never mutated in
// place by gameplay code; it is rebuilt by folding Modifiers onto a base Block.
type Block struct {
	Armour    ArmourClass `yaml:"armour"`
	MaxHealth int         `yaml:"max_health"`
	MaxEnergy int         `yaml:"max_energy"`
	HPS       int         `yaml:"hps"` // health regenerated per second; may be negative
	EPS       int         `yaml:"eps"` // energy regenerated per second; may be negative

	Hit        BasisPoints `yaml:"hit"`
	Crit       BasisPoints `yaml:"crit"`
	CritResist BasisPoints `yaml:"crit_resist"`
	Dodge      BasisPoints `yaml:"dodge"`
	Block      BasisPoints `yaml:"block"`
	BlockValue int         `yaml:"block_value"`

	MagicDamage    int `yaml:"magic_damage"`
	PhysicalDamage int `yaml:"physical_damage"`
	Healing        int `yaml:"healing"`

	AirResist   ArmourClass `yaml:"air_resist"`
	EarthResist ArmourClass `yaml:"earth_resist"`
	FireResist  ArmourClass `yaml:"fire_resist"`
	WaterResist ArmourClass `yaml:"water_resist"`

	GatherBonus   BasisPoints `yaml:"gather_bonus"`
	FollowerLimit int         `yaml:"follower_limit"`

	WeaponDamage int    `yaml:"weapon_damage"`
	WeaponSchool School `yaml:"weapon_school"`
	AttackTime   int    `yaml:"attack_time"` // ms

	Speed   float64 `yaml:"speed"`
	Stunned bool    `yaml:"stunned"`
}

// ResistanceTo returns the resistance used against the given school.
func (b Block) ResistanceTo(school School) ArmourClass {
	switch school {
	case Air:
		return b.AirResist
	case Earth:
		return b.EarthResist
	case Fire:
		return b.FireResist
	case Water:
		return b.WaterResist
	}
	return b.Armour
}

// Modifier is a delta applied to a Block. Numeric fields are additive except
// WeaponDamage and AttackTime (overwrite when > 0) and Speed (multiplicative; 0 means
// the modifier does not touch speed).
type Modifier struct {
	Armour    ArmourClass `yaml:"armour"`
	MaxHealth int         `yaml:"max_health"`
	MaxEnergy int         `yaml:"max_energy"`
	HPS       int         `yaml:"hps"`
	EPS       int         `yaml:"eps"`

	Hit        BasisPoints `yaml:"hit"`
	Crit       BasisPoints `yaml:"crit"`
	CritResist BasisPoints `yaml:"crit_resist"`
	Dodge      BasisPoints `yaml:"dodge"`
	Block      BasisPoints `yaml:"block"`
	BlockValue int         `yaml:"block_value"`

	MagicDamage    int `yaml:"magic_damage"`
	PhysicalDamage int `yaml:"physical_damage"`
	Healing        int `yaml:"healing"`

	AirResist   ArmourClass `yaml:"air_resist"`
	EarthResist ArmourClass `yaml:"earth_resist"`
	FireResist  ArmourClass `yaml:"fire_resist"`
	WaterResist ArmourClass `yaml:"water_resist"`

	GatherBonus   BasisPoints `yaml:"gather_bonus"`
	FollowerLimit int         `yaml:"follower_limit"`

	WeaponDamage int    `yaml:"weapon_damage"`
	WeaponSchool School `yaml:"weapon_school"`
	AttackTime   int    `yaml:"attack_time"`

	Speed float64 `yaml:"speed"`
	Stuns bool    `yaml:"stuns"`
}

// speedFactor treats an unset Speed as neutral.
func (m Modifier) speedFactor() float64 {
	if m.Speed == 0 {
		return 1.0
	}
	return m.Speed
}

// Compose applies mod to base and returns the result. base is not modified.
//
// Clamping makes Compose only approximately associative: folding m1 then m2 equals
// composing once with m1.Add(m2) only while no clamped field crosses zero in between.
// A -50 armour modifier on 30 armour clamps to 0, so a following +40 yields 40, while
// the summed modifier (-10) yields 20.
func Compose(base Block, mod Modifier) Block {
	r := base

	r.Armour = clampAC(r.Armour + mod.Armour)
	r.MaxHealth = clampInt(r.MaxHealth + mod.MaxHealth)
	r.MaxEnergy = clampInt(r.MaxEnergy + mod.MaxEnergy)

	r.HPS += mod.HPS
	r.EPS += mod.EPS

	r.Hit = clampBP(r.Hit + mod.Hit)
	r.Crit = clampBP(r.Crit + mod.Crit)
	r.CritResist = clampBP(r.CritResist + mod.CritResist)
	r.Dodge = clampBP(r.Dodge + mod.Dodge)
	r.Block = clampBP(r.Block + mod.Block)
	r.BlockValue = clampInt(r.BlockValue + mod.BlockValue)

	r.MagicDamage += mod.MagicDamage
	r.PhysicalDamage += mod.PhysicalDamage
	r.Healing += mod.Healing

	r.AirResist = clampAC(r.AirResist + mod.AirResist)
	r.EarthResist = clampAC(r.EarthResist + mod.EarthResist)
	r.FireResist = clampAC(r.FireResist + mod.FireResist)
	r.WaterResist = clampAC(r.WaterResist + mod.WaterResist)

	r.GatherBonus = clampBP(r.GatherBonus + mod.GatherBonus)
	r.FollowerLimit = clampInt(r.FollowerLimit + mod.FollowerLimit)

	// Only the equipped weapon is expected to carry these.
	if mod.WeaponDamage > 0 {
		r.WeaponDamage = mod.WeaponDamage
		r.WeaponSchool = mod.WeaponSchool
	}
	if mod.AttackTime > 0 {
		r.AttackTime = mod.AttackTime
	}

	if mod.Speed < 0 {
		r.Speed = 0
	} else {
		r.Speed *= mod.speedFactor()
	}
	if r.Speed < 0 {
		r.Speed = 0
	}

	r.Stunned = r.Stunned || mod.Stuns
	return r
}

// Fold composes mods onto base left to right.
func Fold(base Block, mods ...Modifier) Block {
	for _, m := range mods {
		base = Compose(base, m)
	}
	return base
}

// Add sums two modifiers without clamping. Speed factors multiply and the later
// non-zero weapon fields win, mirroring Compose.
func (m Modifier) Add(o Modifier) Modifier {
	r := Modifier{
		Armour:         m.Armour + o.Armour,
		MaxHealth:      m.MaxHealth + o.MaxHealth,
		MaxEnergy:      m.MaxEnergy + o.MaxEnergy,
		HPS:            m.HPS + o.HPS,
		EPS:            m.EPS + o.EPS,
		Hit:            m.Hit + o.Hit,
		Crit:           m.Crit + o.Crit,
		CritResist:     m.CritResist + o.CritResist,
		Dodge:          m.Dodge + o.Dodge,
		Block:          m.Block + o.Block,
		BlockValue:     m.BlockValue + o.BlockValue,
		MagicDamage:    m.MagicDamage + o.MagicDamage,
		PhysicalDamage: m.PhysicalDamage + o.PhysicalDamage,
		Healing:        m.Healing + o.Healing,
		AirResist:      m.AirResist + o.AirResist,
		EarthResist:    m.EarthResist + o.EarthResist,
		FireResist:     m.FireResist + o.FireResist,
		WaterResist:    m.WaterResist + o.WaterResist,
		GatherBonus:    m.GatherBonus + o.GatherBonus,
		FollowerLimit:  m.FollowerLimit + o.FollowerLimit,
		WeaponDamage:   m.WeaponDamage,
		WeaponSchool:   m.WeaponSchool,
		AttackTime:     m.AttackTime,
		Stuns:          m.Stuns || o.Stuns,
	}
	if o.WeaponDamage > 0 {
		r.WeaponDamage = o.WeaponDamage
		r.WeaponSchool = o.WeaponSchool
	}
	if o.AttackTime > 0 {
		r.AttackTime = o.AttackTime
	}
	if m.Speed < 0 || o.Speed < 0 {
		r.Speed = -1
	} else if m.Speed != 0 || o.Speed != 0 {
		r.Speed = m.speedFactor() * o.speedFactor()
	}
	return r
}

// Repeat returns n copies of m, ready to be folded for a modifier held at rank n.
func (m Modifier) Repeat(n int) []Modifier {
	out := make([]Modifier, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, m)
	}
	return out
}

// Layers groups the modifier sources of an entity. Apply folds them in a fixed order
// so that overwrite-style fields resolve the same way every time.
type Layers struct {
	Gear    []Modifier
	Talents []Modifier
	Buffs   []Modifier
	Debuffs []Modifier
}

// Apply folds gear, then talents, then buffs, then debuffs onto base.
func (l Layers) Apply(base Block) Block {
	base = Fold(base, l.Gear...)
	base = Fold(base, l.Talents...)
	base = Fold(base, l.Buffs...)
	return Fold(base, l.Debuffs...)
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampBP(v BasisPoints) BasisPoints {
	if v < 0 {
		return 0
	}
	return v
}

func clampAC(v ArmourClass) ArmourClass {
	if v < 0 {
		return 0
	}
	return v
}
