package combat

import "math"

// ThreatTable tracks how much threat each attacker has generated against one NPC.
// Keys are entity names.
type ThreatTable struct {
	threat map[string]int
}

// NewThreatTable returns an empty table.
func NewThreatTable() *ThreatTable {
	return &ThreatTable{threat: make(map[string]int)}
}

// MakeAwareOf adds name with zero threat if it is not already tracked.
func (tt *ThreatTable) MakeAwareOf(name string) {
	if _, ok := tt.threat[name]; !ok {
		tt.threat[name] = 0
	}
}

// AddThreat adds amount to name's threat.
func (tt *ThreatTable) AddThreat(name string, amount int) {
	tt.threat[name] += amount
}

// Scale multiplies name's threat. Unknown names are ignored.
func (tt *ThreatTable) Scale(name string, multiplier float64) {
	v, ok := tt.threat[name]
	if !ok {
		return
	}
	tt.threat[name] = int(math.Round(float64(v) * multiplier))
}

// ForgetAbout drops name from the table.
func (tt *ThreatTable) ForgetAbout(name string) {
	delete(tt.threat, name)
}

// Threat returns name's current threat.
func (tt *ThreatTable) Threat(name string) int {
	return tt.threat[name]
}

// Len returns the number of tracked attackers.
func (tt *ThreatTable) Len() int { return len(tt.threat) }

// Target returns the attacker with the highest threat. Ties go to the
// alphabetically first name so the choice is stable.
func (tt *ThreatTable) Target() (string, bool) {
	best := ""
	bestThreat := -1
	for name, v := range tt.threat {
		if v > bestThreat || (v == bestThreat && name < best) {
			best, bestThreat = name, v
		}
	}
	return best, bestThreat >= 0
}

// Clear forgets everyone, e.g. when the NPC resets.
func (tt *ThreatTable) Clear() {
	clear(tt.threat)
}

// XPShare splits the experience for a kill between the members of the killer's group.
// Each member beyond the first adds a 10% bonus to the pool before it is divided.
func XPShare(baseXP, groupSize int) int {
	if groupSize <= 1 {
		return baseXP
	}
	// pool = baseXP * (1 + (n-1)/10); each share rounds up.
	num := baseXP * (9 + groupSize)
	den := 10 * groupSize
	return (num + den - 1) / den
}
