package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hellasmmo/server/game/buff"
	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/spell"
	"github.com/hellasmmo/server/game/stats"
	"github.com/hellasmmo/server/game/talent"
	"gopkg.in/yaml.v3"
)

// ---- Content file structures ----

// TalentDef is one talent node in a class file.
type TalentDef struct {
	Name  string         `yaml:"name"`
	Tree  string         `yaml:"tree"`
	Kind  string         `yaml:"kind"` // "stats" or "spell"
	Spell string         `yaml:"spell"`
	Stats stats.Modifier `yaml:"stats"`
	Tier  talent.Tier    `yaml:"tier"`
}

// ClassDef is a class and its talent trees.
type ClassDef struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	FreeSpell string      `yaml:"free_spell"`
	Talents   []TalentDef `yaml:"talents"`
}

// CityDef seeds a city the first time the server starts.
type CityDef struct {
	Name     string       `yaml:"name"`
	Location combat.Point `yaml:"location"`
	King     string       `yaml:"king"`
}

// NPCDef places an NPC in the world.
type NPCDef struct {
	Name     string       `yaml:"name"`
	Level    int          `yaml:"level"`
	Stats    stats.Block  `yaml:"stats"`
	XPReward int          `yaml:"xp_reward"`
	Location combat.Point `yaml:"location"`
	// Spells the NPC attacks with, tried in order. Empty means it never fights back.
	Spells   []string      `yaml:"spells"`
	Interval time.Duration `yaml:"interval"`
}

// MapDef describes the walkable area.
type MapDef struct {
	Width    int      `yaml:"width"`  // cells
	Height   int      `yaml:"height"` // cells
	CellSize float64  `yaml:"cell_size"`
	Blocked  [][2]int `yaml:"blocked"`
}

// contentFile is the on-disk layout. A catalog may be split over several files.
type contentFile struct {
	Map     *MapDef        `yaml:"map"`
	Buffs   []*buff.Type   `yaml:"buffs"`
	Spells  []*spell.Spell `yaml:"spells"`
	Classes []ClassDef     `yaml:"classes"`
	Cities  []CityDef      `yaml:"cities"`
	NPCs    []NPCDef       `yaml:"npcs"`
}

// ---- Catalog ----

// Catalog holds the game content. It is read-only after Load.
type Catalog struct {
	Path string
	Map  MapDef

	buffs   map[string]*buff.Type
	spells  map[string]*spell.Spell
	classes map[string]*talent.ClassType
	cities  []CityDef
	npcs    []NPCDef
}

// NewCatalog creates an empty catalog rooted at path (a file or a directory of
// *.yaml files).
func NewCatalog(path string) *Catalog {
	return &Catalog{
		Path:    path,
		Map:     MapDef{Width: 64, Height: 64, CellSize: 32},
		buffs:   make(map[string]*buff.Type),
		spells:  make(map[string]*spell.Spell),
		classes: make(map[string]*talent.ClassType),
	}
}

// Load reads every content file and validates cross references.
func (c *Catalog) Load() error {
	files, err := c.files()
	if err != nil {
		return err
	}
	var classes []ClassDef
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("resource: read %s: %w", f, err)
		}
		cf, err := parse(data)
		if err != nil {
			return fmt.Errorf("resource: parse %s: %w", f, err)
		}
		if err := c.merge(cf); err != nil {
			return fmt.Errorf("resource: %s: %w", f, err)
		}
		classes = append(classes, cf.Classes...)
	}
	if err := c.buildClasses(classes); err != nil {
		return err
	}
	return c.validate()
}

// LoadBytes loads a single in-memory content document.
func (c *Catalog) LoadBytes(data []byte) error {
	cf, err := parse(data)
	if err != nil {
		return fmt.Errorf("resource: parse: %w", err)
	}
	if err := c.merge(cf); err != nil {
		return err
	}
	if err := c.buildClasses(cf.Classes); err != nil {
		return err
	}
	return c.validate()
}

func parse(data []byte) (*contentFile, error) {
	var cf contentFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

func (c *Catalog) files() ([]string, error) {
	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, fmt.Errorf("resource: stat %s: %w", c.Path, err)
	}
	if !info.IsDir() {
		return []string{c.Path}, nil
	}
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(c.Path, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	sort.Strings(files)
	return files, nil
}

func (c *Catalog) merge(cf *contentFile) error {
	if cf.Map != nil {
		c.Map = *cf.Map
	}
	for _, b := range cf.Buffs {
		if b == nil || b.ID == "" {
			return fmt.Errorf("buff without id")
		}
		if _, dup := c.buffs[b.ID]; dup {
			return fmt.Errorf("duplicate buff %q", b.ID)
		}
		c.buffs[b.ID] = b
	}
	for _, s := range cf.Spells {
		if s == nil || s.ID == "" {
			return fmt.Errorf("spell without id")
		}
		if _, dup := c.spells[s.ID]; dup {
			return fmt.Errorf("duplicate spell %q", s.ID)
		}
		c.spells[s.ID] = s
	}
	c.cities = append(c.cities, cf.Cities...)
	c.npcs = append(c.npcs, cf.NPCs...)
	return nil
}

func (c *Catalog) buildClasses(defs []ClassDef) error {
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("resource: class without id")
		}
		if _, dup := c.classes[d.ID]; dup {
			return fmt.Errorf("resource: duplicate class %q", d.ID)
		}
		ct := talent.NewClassType(d.ID, d.Name)
		ct.FreeSpell = d.FreeSpell
		for _, t := range d.Talents {
			switch t.Kind {
			case "", "stats":
				ct.AddStats(t.Name, t.Tree, t.Stats, t.Tier)
			case "spell":
				ct.AddSpell(t.Name, t.Tree, t.Spell, t.Tier)
			default:
				return fmt.Errorf("resource: class %q talent %q: unknown kind %q", d.ID, t.Name, t.Kind)
			}
		}
		c.classes[d.ID] = ct
	}
	return nil
}

// validate checks that every id a spell or class names exists.
func (c *Catalog) validate() error {
	for _, s := range c.spells {
		if s.Effect == nil {
			continue
		}
		switch s.Effect.Kind {
		case spell.Buff, spell.Debuff:
			if _, ok := c.buffs[s.Effect.Args.Ref]; !ok {
				return fmt.Errorf("resource: spell %q: unknown buff %q", s.ID, s.Effect.Args.Ref)
			}
		}
	}
	for _, ct := range c.classes {
		if ct.FreeSpell != "" {
			if _, ok := c.spells[ct.FreeSpell]; !ok {
				return fmt.Errorf("resource: class %q: unknown free spell %q", ct.ID, ct.FreeSpell)
			}
		}
		for _, t := range ct.Talents {
			if t.Kind != talent.Spell {
				continue
			}
			if _, ok := c.spells[t.SpellID]; !ok {
				return fmt.Errorf("resource: class %q talent %q: unknown spell %q", ct.ID, t.Name, t.SpellID)
			}
		}
	}
	seen := make(map[string]bool)
	for _, n := range c.npcs {
		if n.Name == "" || seen[n.Name] {
			return fmt.Errorf("resource: npc name %q missing or duplicated", n.Name)
		}
		seen[n.Name] = true
		for _, id := range n.Spells {
			if _, ok := c.spells[id]; !ok {
				return fmt.Errorf("resource: npc %q: unknown spell %q", n.Name, id)
			}
		}
	}
	return nil
}

// ---- Lookups ----

// Buff returns a buff type by id.
func (c *Catalog) Buff(id string) (*buff.Type, bool) {
	b, ok := c.buffs[id]
	return b, ok
}

// Spell returns a spell by id.
func (c *Catalog) Spell(id string) (*spell.Spell, bool) {
	s, ok := c.spells[id]
	return s, ok
}

// Class returns a class definition by id.
func (c *Catalog) Class(id string) (*talent.ClassType, bool) {
	ct, ok := c.classes[id]
	return ct, ok
}

// SpellIDs lists every spell id, sorted.
func (c *Catalog) SpellIDs() []string {
	out := make([]string, 0, len(c.spells))
	for id := range c.spells {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Cities returns the seeded cities in file order.
func (c *Catalog) Cities() []CityDef { return c.cities }

// NPCs returns the NPC placements in file order.
func (c *Catalog) NPCs() []NPCDef { return c.npcs }

// NPCSpells resolves an NPC's spell list.
func (c *Catalog) NPCSpells(def NPCDef) []*spell.Spell {
	out := make([]*spell.Spell, 0, len(def.Spells))
	for _, id := range def.Spells {
		if sp, ok := c.spells[id]; ok {
			out = append(out, sp)
		}
	}
	return out
}
