package city

import (
	"errors"
	"sort"
	"sync"

	"github.com/hellasmmo/server/game/combat"
)

var (
	ErrCityExists    = errors.New("city: a city with that name already exists")
	ErrNoSuchCity    = errors.New("city: no such city")
	ErrAlreadyInCity = errors.New("city: player already belongs to a city")
	ErrNotMember     = errors.New("city: player is not a citizen")
)

// City is a player city.
type City struct {
	Name     string       `json:"name"`
	Location combat.Point `json:"location"`
	King     string       `json:"king,omitempty"`
}

// Registry tracks cities and their citizens. A player belongs to at most one city.
type Registry struct {
	mu       sync.RWMutex
	cities   map[string]*City
	memberOf map[string]string // player → city
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		cities:   make(map[string]*City),
		memberOf: make(map[string]string),
	}
}

// Create founds a city. A non-empty king becomes its first citizen.
func (r *Registry) Create(name string, loc combat.Point, king string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cities[name]; ok {
		return ErrCityExists
	}
	if king != "" {
		if _, ok := r.memberOf[king]; ok {
			return ErrAlreadyInCity
		}
		r.memberOf[king] = name
	}
	r.cities[name] = &City{Name: name, Location: loc, King: king}
	return nil
}

// AddPlayer makes player a citizen of city.
func (r *Registry) AddPlayer(player, city string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cities[city]; !ok {
		return ErrNoSuchCity
	}
	if current, ok := r.memberOf[player]; ok {
		if current == city {
			return nil
		}
		return ErrAlreadyInCity
	}
	r.memberOf[player] = city
	return nil
}

// RemovePlayer removes player from their city. A departing king leaves the
// throne empty. Returns false if the player had no city.
func (r *Registry) RemovePlayer(player string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.memberOf[player]
	if !ok {
		return false
	}
	delete(r.memberOf, player)
	if c := r.cities[name]; c != nil && c.King == player {
		c.King = ""
	}
	return true
}

// SetKing crowns a citizen of city.
func (r *Registry) SetKing(city, player string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cities[city]
	if !ok {
		return ErrNoSuchCity
	}
	if r.memberOf[player] != city {
		return ErrNotMember
	}
	c.King = player
	return nil
}

// CityOf returns the city a player belongs to.
func (r *Registry) CityOf(player string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.memberOf[player]
	return name, ok
}

// IsKing reports whether player rules the city they belong to.
func (r *Registry) IsKing(player string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.memberOf[player]
	if !ok {
		return false
	}
	c := r.cities[name]
	return c != nil && c.King == player
}

// MembersOf lists a city's citizens, sorted.
func (r *Registry) MembersOf(city string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for p, c := range r.memberOf {
		if c == city {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// CityLocation returns the founding location of a city.
func (r *Registry) CityLocation(name string) (combat.Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cities[name]
	if !ok {
		return combat.Point{}, false
	}
	return c.Location, true
}

// Get returns a copy of a city.
func (r *Registry) Get(name string) (City, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cities[name]
	if !ok {
		return City{}, false
	}
	return *c, true
}

// Names lists every city, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.cities))
	for n := range r.cities {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns every city sorted by name and the player → city map.
func (r *Registry) Snapshot() ([]City, map[string]string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cities := make([]City, 0, len(r.cities))
	for _, c := range r.cities {
		cities = append(cities, *c)
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Name < cities[j].Name })
	members := make(map[string]string, len(r.memberOf))
	for p, c := range r.memberOf {
		members[p] = c
	}
	return cities, members
}

// Replace swaps the registry contents. Memberships of unknown cities are dropped.
func (r *Registry) Replace(cities []City, members map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cities = make(map[string]*City, len(cities))
	for i := range cities {
		c := cities[i]
		r.cities[c.Name] = &c
	}
	r.memberOf = make(map[string]string, len(members))
	for p, name := range members {
		if _, ok := r.cities[name]; ok {
			r.memberOf[p] = name
		}
	}
}
