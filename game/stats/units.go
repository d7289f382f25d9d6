package stats

import (
	"strconv"
	"strings"
)

// BasisPoints is a chance-like stat where 100 = 1%.
type BasisPoints int

// Chance returns the value as a probability in [0, 1]. Negative values count as 0.
func (b BasisPoints) Chance() float64 {
	if b <= 0 {
		return 0
	}
	if b >= 10000 {
		return 1
	}
	return float64(b) / 10000.0
}

// Percent returns the whole-percent value, floored at 0.
func (b BasisPoints) Percent() int {
	if b < 0 {
		return 0
	}
	return int(b) / 100
}

func (b BasisPoints) String() string {
	return strconv.Itoa(b.Percent()) + "%"
}

// Percent builds BasisPoints from a whole percentage.
func Percent(p int) BasisPoints { return BasisPoints(p * 100) }

// ArmourClass is a resistance value where 10 = 1% and 1000 = full immunity.
type ArmourClass int

// MaxArmourClass fully negates incoming damage.
const MaxArmourClass ArmourClass = 1000

// ModifyByLevelDiff lowers resistance against higher-level attackers and raises it
// against lower-level ones.
func (ac ArmourClass) ModifyByLevelDiff(attackerLevel, targetLevel, perLevel int) ArmourClass {
	return ac - ArmourClass((attackerLevel-targetLevel)*perLevel)
}

// ApplyTo scales damage by the resistance, clamped to [0, MaxArmourClass].
func (ac ArmourClass) ApplyTo(damage float64) float64 {
	r := ac
	if r < 0 {
		r = 0
	}
	if r >= MaxArmourClass {
		return 0
	}
	return damage * float64(MaxArmourClass-r) / float64(MaxArmourClass)
}

func (ac ArmourClass) String() string {
	if ac < 0 {
		return "0%"
	}
	whole := int(ac) / 10
	tenths := int(ac) % 10
	if tenths == 0 {
		return strconv.Itoa(whole) + "%"
	}
	return strconv.Itoa(whole) + "." + strconv.Itoa(tenths) + "%"
}

// School is the damage school of a spell, weapon or buff.
type School int

const (
	Physical School = iota
	Air
	Earth
	Fire
	Water
)

var schoolNames = [...]string{"Physical", "Air", "Earth", "Fire", "Water"}

// ParseSchool maps a catalog name to a School. Empty and unknown names are Physical.
func ParseSchool(name string) School {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "air":
		return Air
	case "earth":
		return Earth
	case "fire":
		return Fire
	case "water":
		return Water
	}
	return Physical
}

// IsMagic reports whether the school is one of the four elements.
func (s School) IsMagic() bool { return s != Physical }

func (s School) String() string {
	if s < 0 || int(s) >= len(schoolNames) {
		return schoolNames[Physical]
	}
	return schoolNames[s]
}

// UnmarshalText lets catalog decoders read schools by name.
func (s *School) UnmarshalText(text []byte) error {
	*s = ParseSchool(string(text))
	return nil
}
