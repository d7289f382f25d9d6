package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Describe renders the non-neutral parts of a modifier, one line per stat.
// Strings are computed on every call; nothing is cached on the value.
func (m Modifier) Describe() []string {
	var v []string
	if m.AttackTime > 0 {
		v = append(v, fmt.Sprintf("%.1fs speed", float64(m.AttackTime)/1000.0))
	}
	if m.WeaponDamage > 0 {
		line := strconv.Itoa(m.WeaponDamage) + " "
		if m.WeaponSchool.IsMagic() {
			line += m.WeaponSchool.String() + " "
		}
		line += "damage"
		if m.AttackTime > 0 {
			line += fmt.Sprintf(" (%.2f per second)", 1000.0*float64(m.WeaponDamage)/float64(m.AttackTime))
		}
		v = append(v, line)
	}
	v = appendSigned(v, int(m.Armour), "armour")
	v = appendSigned(v, m.MaxHealth, "max health")
	v = appendSigned(v, m.MaxEnergy, "max energy")
	v = appendSigned(v, m.HPS, "health per second")
	v = appendSigned(v, m.EPS, "energy per second")
	v = appendPercent(v, m.Hit, "hit")
	v = appendPercent(v, m.Crit, "crit")
	if m.CritResist != 0 {
		v = append(v, "-"+m.CritResist.String()+" chance to be crit")
	}
	v = appendPercent(v, m.Dodge, "dodge")
	v = appendPercent(v, m.Block, "block")
	v = appendSigned(v, m.BlockValue, "block value")
	v = appendSigned(v, m.MagicDamage, "magic damage")
	v = appendSigned(v, m.PhysicalDamage, "physical damage")
	v = appendSigned(v, m.Healing, "healing-spell amount")
	v = appendSigned(v, int(m.AirResist), "air resistance")
	v = appendSigned(v, int(m.EarthResist), "earth resistance")
	v = appendSigned(v, int(m.FireResist), "fire resistance")
	v = appendSigned(v, int(m.WaterResist), "water resistance")
	if m.GatherBonus > 0 {
		v = append(v, "+"+m.GatherBonus.String()+" chance to gather double")
	}
	v = appendSigned(v, m.FollowerLimit, "max. following pets")
	if m.Speed != 0 && m.Speed != 1.0 {
		v = append(v, formatMultiplier(m.Speed)+" run speed")
	}
	return v
}

// BuffDescription is the prefix shown for a buff granting this modifier.
func (m Modifier) BuffDescription() string {
	if m.Stuns {
		return "Stun "
	}
	return "Grant " + strings.Join(m.Describe(), ", ") + " to "
}

func appendSigned(v []string, n int, label string) []string {
	switch {
	case n > 0:
		return append(v, "+"+strconv.Itoa(n)+" "+label)
	case n < 0:
		return append(v, strconv.Itoa(n)+" "+label)
	}
	return v
}

func appendPercent(v []string, bp BasisPoints, label string) []string {
	if bp == 0 {
		return v
	}
	if bp < 0 {
		return append(v, "-"+strconv.Itoa(-int(bp)/100)+"% "+label)
	}
	return append(v, "+"+bp.String()+" "+label)
}

func formatMultiplier(f float64) string {
	pct := int(math.Round((f - 1.0) * 100))
	if pct >= 0 {
		return "+" + strconv.Itoa(pct) + "%"
	}
	return strconv.Itoa(pct) + "%"
}
