package talent

import "github.com/hellasmmo/server/game/stats"

// ID indexes ClassType.Talents.
type ID int

// Kind distinguishes spell-granting talents from stat talents.
type Kind int

const (
	Stats Kind = iota
	Spell
)

func (k Kind) String() string {
	if k == Spell {
		return "spell"
	}
	return "stats"
}

// ItemCost is the item price of a tier.
type ItemCost struct {
	ItemID   string `yaml:"item"`
	Quantity int    `yaml:"quantity"`
}

// Tier gates talents behind points already spent in the same tree.
type Tier struct {
	Name                 string   `yaml:"name"`
	RequiredPointsInTree int      `yaml:"required_points"`
	Cost                 ItemCost `yaml:"cost"`
}

// HasItemCost reports whether taking a talent of this tier consumes items.
func (t Tier) HasItemCost() bool {
	return t.Cost.ItemID != "" && t.Cost.Quantity > 0
}

// Talent is one node of a class's talent trees.
type Talent struct {
	ID      ID
	Name    string
	Tree    string
	Kind    Kind
	SpellID string
	Stats   stats.Modifier
	Tier    Tier
}

// ClassType is the catalog definition of a class. Talents are stored in an arena
// and referenced by index, so a Class never holds pointers into the catalog.
type ClassType struct {
	ID        string
	Name      string
	Talents   []Talent
	FreeSpell string

	byName map[string]ID
}

// NewClassType creates an empty class definition.
func NewClassType(id, name string) *ClassType {
	return &ClassType{ID: id, Name: name, byName: make(map[string]ID)}
}

// AddSpell appends a spell talent. Adding a name twice returns the existing id.
func (ct *ClassType) AddSpell(name, tree, spellID string, tier Tier) ID {
	return ct.add(Talent{Name: name, Tree: tree, Kind: Spell, SpellID: spellID, Tier: tier})
}

// AddStats appends a stat talent. Adding a name twice returns the existing id.
func (ct *ClassType) AddStats(name, tree string, mod stats.Modifier, tier Tier) ID {
	return ct.add(Talent{Name: name, Tree: tree, Kind: Stats, Stats: mod, Tier: tier})
}

func (ct *ClassType) add(t Talent) ID {
	if ct.byName == nil {
		ct.byName = make(map[string]ID)
	}
	if id, ok := ct.byName[t.Name]; ok {
		return id
	}
	t.ID = ID(len(ct.Talents))
	ct.Talents = append(ct.Talents, t)
	ct.byName[t.Name] = t.ID
	return t.ID
}

// Talent returns the talent with the given id.
func (ct *ClassType) Talent(id ID) (*Talent, bool) {
	if id < 0 || int(id) >= len(ct.Talents) {
		return nil, false
	}
	return &ct.Talents[id], true
}

// FindTalent looks a talent up by name.
func (ct *ClassType) FindTalent(name string) (*Talent, bool) {
	id, ok := ct.byName[name]
	if !ok {
		return nil, false
	}
	return &ct.Talents[id], true
}

// Trees lists the distinct tree names in first-seen order.
func (ct *ClassType) Trees() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range ct.Talents {
		if !seen[t.Tree] {
			seen[t.Tree] = true
			out = append(out, t.Tree)
		}
	}
	return out
}
