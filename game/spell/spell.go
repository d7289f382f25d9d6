package spell

import (
	"fmt"
	"time"

	"github.com/hellasmmo/server/game/buff"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/stats"
)

// Kind is the closed set of effect bodies.
type Kind int

const (
	DirectDamage Kind = iota
	DirectDamageWithModifiedThreat
	Heal
	Buff
	Debuff
	ScaleThreat
	DispelDebuff
	RandomTeleport
	TeleportToCity
)

var kindNames = [...]string{
	DirectDamage:                   "direct_damage",
	DirectDamageWithModifiedThreat: "direct_damage_modified_threat",
	Heal:                           "heal",
	Buff:                           "buff",
	Debuff:                         "debuff",
	ScaleThreat:                    "scale_threat",
	DispelDebuff:                   "dispel_debuff",
	RandomTeleport:                 "random_teleport",
	TeleportToCity:                 "teleport_to_city",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a catalog effect name to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("spell: unknown effect %q", name)
}

// UnmarshalText lets catalogs name the kind.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsAggressive reports whether casting the effect is a hostile act.
func (k Kind) IsAggressive() bool {
	switch k {
	case DirectDamage, DirectDamageWithModifiedThreat, Debuff:
		return true
	}
	return false
}

// Args are the effect parameters. Which ones matter depends on the Kind.
type Args struct {
	Magnitude  int     `yaml:"magnitude"`  // damage, heal, teleport radius in podes
	Multiplier float64 `yaml:"multiplier"` // threat scaler or threat multiplier
	Ref        string  `yaml:"ref"`        // buff id or school name
}

// Effect is the immutable body of a spell.
type Effect struct {
	Kind   Kind         `yaml:"kind"`
	Args   Args         `yaml:"args"`
	School stats.School `yaml:"school"`
	Range  float64      `yaml:"range"`  // px, passed to the hit ladder
	Radius combat.Podes `yaml:"radius"` // > 0 makes the effect area-of-effect
}

// IsAoE reports whether the effect hits everything within a radius.
func (e *Effect) IsAoE() bool { return e.Radius > 0 }

// Targets is the set of target categories a spell may be cast on.
type Targets struct {
	Self     bool `yaml:"self"`
	Friendly bool `yaml:"friendly"`
	Enemy    bool `yaml:"enemy"`
}

// OnlySelf reports whether the spell can target nobody but the caster.
func (t Targets) OnlySelf() bool { return t.Self && !t.Friendly && !t.Enemy }

// Spell is a castable catalog entry.
type Spell struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Cost     int           `yaml:"cost"` // energy
	Targets  Targets       `yaml:"targets"`
	Range    float64       `yaml:"range"` // px
	Cooldown time.Duration `yaml:"cooldown"`
	Effect   *Effect       `yaml:"effect"`
}

// Target is the entity contract spells act on.
type Target interface {
	combat.Combatant
	Name() string
	IsUser() bool
	Location() combat.Point

	Health() int
	IsDead() bool
	ReduceHealth(amount int)
	HealBy(amount int)
	Energy() int
	SetEnergy(v int)

	OnAttackedBy(attacker Target, threat int)
	ScaleThreatAgainst(attacker Target, multiplier float64)

	ApplyBuff(t *buff.Type, caster Target)
	ApplyDebuff(t *buff.Type, caster Target)
	RemoveDebuff(id string) bool
	Debuffs() []*buff.Type

	CanBeAttackedBy(attacker Target) bool
	CanBeHealedBySpell() bool
	TeleportTo(p combat.Point)
}

// LocationOracle answers whether an entity may stand at a point.
type LocationOracle interface {
	IsLocationValid(p combat.Point, ref Target) bool
}

// CityLocator finds a player's city and where it stands.
type CityLocator interface {
	CityOf(player string) (string, bool)
	CityLocation(name string) (combat.Point, bool)
}

// BuffCatalog resolves buff and debuff ids.
type BuffCatalog interface {
	Buff(id string) (*buff.Type, bool)
}
