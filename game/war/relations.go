package war

import "fmt"

// Policy decides which identity a city member fights under.
type Policy int

const (
	// CityFirst replaces a player by their city whenever they belong to one.
	CityFirst Policy = iota
	// PlayerOnly ignores cities entirely.
	PlayerOnly
	// Either counts a war between any of the two sides' identities.
	Either
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "city_first":
		return CityFirst, nil
	case "player_only":
		return PlayerOnly, nil
	case "either":
		return Either, nil
	}
	return CityFirst, fmt.Errorf("war: unknown belligerent policy %q", s)
}

func (p Policy) String() string {
	switch p {
	case PlayerOnly:
		return "player_only"
	case Either:
		return "either"
	}
	return "city_first"
}

// CityLookup resolves a player's city.
type CityLookup interface {
	CityOf(player string) (string, bool)
}

// Relations answers attack-legality questions between players. Every caller that
// decides whether one player may attack another goes through it, so the city
// substitution is applied the same way everywhere.
type Relations struct {
	Ledger *Ledger
	Cities CityLookup
	Policy Policy
}

// Identities returns the belligerents a player fights as under the policy.
func (r Relations) Identities(player string) []Belligerent {
	self := PlayerNamed(player)
	if r.Policy == PlayerOnly || r.Cities == nil {
		return []Belligerent{self}
	}
	city, ok := r.Cities.CityOf(player)
	if !ok {
		return []Belligerent{self}
	}
	if r.Policy == CityFirst {
		return []Belligerent{CityNamed(city)}
	}
	return []Belligerent{self, CityNamed(city)}
}

// IsAtWar reports whether two belligerents are at war after substituting player
// identities under the policy. City belligerents are used as given.
func (r Relations) IsAtWar(a, b Belligerent) bool {
	for _, x := range r.expand(a) {
		for _, y := range r.expand(b) {
			if x != y && r.Ledger.IsAtWar(x, y) {
				return true
			}
		}
	}
	return false
}

// CanAttack reports whether attacker may attack target.
func (r Relations) CanAttack(attacker, target string) bool {
	if attacker == target {
		return false
	}
	return r.IsAtWar(PlayerNamed(attacker), PlayerNamed(target))
}

func (r Relations) expand(b Belligerent) []Belligerent {
	if b.Kind == City {
		return []Belligerent{b}
	}
	return r.Identities(b.Name)
}
