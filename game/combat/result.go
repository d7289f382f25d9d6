package combat

import "math"

// Result is the outcome of one attack, heal or debuff attempt.
type Result int

const (
	Fail Result = iota
	Hit
	Crit
	Block
	Dodge
	Miss
)

func (r Result) String() string {
	switch r {
	case Hit:
		return "hit"
	case Crit:
		return "crit"
	case Block:
		return "block"
	case Dodge:
		return "dodge"
	case Miss:
		return "miss"
	}
	return "fail"
}

// Landed reports whether the action reached the target (Hit, Crit or Block).
func (r Result) Landed() bool {
	return r == Hit || r == Crit || r == Block
}

// Type selects which outcomes the hit ladder may produce.
type Type int

const (
	Damage Type = iota
	Heal
	Debuff
	ThreatMod
)

func (t Type) String() string {
	switch t {
	case Heal:
		return "heal"
	case Debuff:
		return "debuff"
	case ThreatMod:
		return "threat_mod"
	}
	return "damage"
}

// Podes is the game's distance unit for ranges and radii.
type Podes int

// PixelsPerPode converts podes to map pixels.
const PixelsPerPode = 4

// MeleeRange is the longest range that still counts as melee.
const MeleeRange Podes = 4

// Pixels returns the distance in map pixels.
func (p Podes) Pixels() float64 { return float64(p) * PixelsPerPode }

// Point is a map location in pixels.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceTo returns the straight-line distance in pixels.
func (p Point) DistanceTo(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}
