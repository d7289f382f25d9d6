package war

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNotAtWar          = errors.New("war: not at war")
	ErrAlreadyAtWar      = errors.New("war: already at war")
	ErrSelfWar           = errors.New("war: cannot declare war on yourself")
	ErrNoPeaceOffer      = errors.New("war: no such peace offer")
	ErrPeaceOfferPending = errors.New("war: enemy has already proposed peace")
)

// Kind says whether a belligerent is a player or a city.
type Kind int

const (
	Player Kind = iota
	City
)

func (k Kind) String() string {
	if k == City {
		return "city"
	}
	return "player"
}

// ParseKind accepts "player" and "city".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "player":
		return Player, nil
	case "city":
		return City, nil
	}
	return Player, fmt.Errorf("war: unknown belligerent kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Belligerent is a party that can be at war.
type Belligerent struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// PlayerNamed returns the player belligerent with the given name.
func PlayerNamed(name string) Belligerent { return Belligerent{Name: name, Kind: Player} }

// CityNamed returns the city belligerent with the given name.
func CityNamed(name string) Belligerent { return Belligerent{Name: name, Kind: City} }

// Less orders belligerents by name, then kind.
func (b Belligerent) Less(o Belligerent) bool {
	if b.Name != o.Name {
		return b.Name < o.Name
	}
	return b.Kind < o.Kind
}

func (b Belligerent) String() string { return b.Kind.String() + ":" + b.Name }

// PeaceState records which side, if any, has offered peace.
type PeaceState int

const (
	NoPeaceProposed PeaceState = iota
	PeaceProposedByFirst
	PeaceProposedBySecond
)

func (p PeaceState) String() string {
	switch p {
	case PeaceProposedByFirst:
		return "proposed_by_first"
	case PeaceProposedBySecond:
		return "proposed_by_second"
	}
	return "none"
}

func (p PeaceState) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PeaceState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*p = NoPeaceProposed
	case "proposed_by_first":
		*p = PeaceProposedByFirst
	case "proposed_by_second":
		*p = PeaceProposedBySecond
	default:
		return fmt.Errorf("war: unknown peace state %q", text)
	}
	return nil
}

// War is one entry of the ledger. First is always ordered before Second.
type War struct {
	First  Belligerent `json:"first"`
	Second Belligerent `json:"second"`
	Peace  PeaceState  `json:"peace"`
}

// NewWar builds a war with the pair in canonical order.
func NewWar(a, b Belligerent) War {
	if b.Less(a) {
		a, b = b, a
	}
	return War{First: a, Second: b}
}

// Involves reports whether b is one of the sides.
func (w War) Involves(b Belligerent) bool { return w.First == b || w.Second == b }

// Enemy returns the side opposite b.
func (w War) Enemy(b Belligerent) Belligerent {
	if w.First == b {
		return w.Second
	}
	return w.First
}

// ProposedBy returns the side that offered peace, if any.
func (w War) ProposedBy() (Belligerent, bool) {
	switch w.Peace {
	case PeaceProposedByFirst:
		return w.First, true
	case PeaceProposedBySecond:
		return w.Second, true
	}
	return Belligerent{}, false
}

type pair [2]Belligerent

func keyOf(a, b Belligerent) pair {
	if b.Less(a) {
		a, b = b, a
	}
	return pair{a, b}
}

// Ledger holds every active war. At most one entry exists per unordered pair,
// so every query is symmetric by construction.
type Ledger struct {
	mu   sync.RWMutex
	wars map[pair]*War
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{wars: make(map[pair]*War)}
}

// Declare starts a war between a and b. It returns false when they are already at
// war (the existing entry, including any peace offer, is left untouched) or a == b.
func (l *Ledger) Declare(a, b Belligerent) bool {
	if a == b {
		return false
	}
	k := keyOf(a, b)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.wars[k]; ok {
		return false
	}
	w := NewWar(a, b)
	l.wars[k] = &w
	return true
}

// IsAtWar reports whether a and b are at war with each other.
func (l *Ledger) IsAtWar(a, b Belligerent) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.wars[keyOf(a, b)]
	return ok
}

// Get returns a copy of the war between a and b.
func (l *Ledger) Get(a, b Belligerent) (War, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wars[keyOf(a, b)]
	if !ok {
		return War{}, false
	}
	return *w, true
}

// PeaceState returns the peace state between a and b, or NoPeaceProposed if they
// are not at war.
func (l *Ledger) PeaceState(a, b Belligerent) PeaceState {
	w, _ := l.Get(a, b)
	return w.Peace
}

// ProposePeace records proposer's offer of peace to enemy. Proposing again is a
// no-op; if enemy has already offered, ErrPeaceOfferPending is returned and the
// offer should be accepted instead.
func (l *Ledger) ProposePeace(proposer, enemy Belligerent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wars[keyOf(proposer, enemy)]
	if !ok {
		return ErrNotAtWar
	}
	if by, proposed := w.ProposedBy(); proposed {
		if by == proposer {
			return nil
		}
		return ErrPeaceOfferPending
	}
	if w.First == proposer {
		w.Peace = PeaceProposedByFirst
	} else {
		w.Peace = PeaceProposedBySecond
	}
	return nil
}

// CancelPeaceOffer withdraws proposer's own offer. It returns false if proposer had
// no outstanding offer to enemy.
func (l *Ledger) CancelPeaceOffer(proposer, enemy Belligerent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wars[keyOf(proposer, enemy)]
	if !ok {
		return false
	}
	if by, proposed := w.ProposedBy(); !proposed || by != proposer {
		return false
	}
	w.Peace = NoPeaceProposed
	return true
}

// AcceptPeace ends the war when proposer has an outstanding offer to accepter.
func (l *Ledger) AcceptPeace(accepter, proposer Belligerent) error {
	k := keyOf(accepter, proposer)
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wars[k]
	if !ok {
		return ErrNotAtWar
	}
	if by, proposed := w.ProposedBy(); !proposed || by != proposer {
		return ErrNoPeaceOffer
	}
	delete(l.wars, k)
	return nil
}

// WarsInvolving returns every war b is a side of, sorted.
func (l *Ledger) WarsInvolving(b Belligerent) []War {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []War
	for _, w := range l.wars {
		if w.Involves(b) {
			out = append(out, *w)
		}
	}
	sortWars(out)
	return out
}

// All returns every war, sorted.
func (l *Ledger) All() []War {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]War, 0, len(l.wars))
	for _, w := range l.wars {
		out = append(out, *w)
	}
	sortWars(out)
	return out
}

// Len returns the number of active wars.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.wars)
}

// Replace swaps the ledger contents for wars, dropping self-wars and duplicates.
func (l *Ledger) Replace(wars []War) {
	m := make(map[pair]*War, len(wars))
	for _, w := range wars {
		if w.First == w.Second {
			continue
		}
		k := keyOf(w.First, w.Second)
		if _, dup := m[k]; dup {
			continue
		}
		c := NewWar(w.First, w.Second)
		c.Peace = w.Peace
		if c.First != w.First {
			// Canonical order flipped the sides, so flip the proposer too.
			switch w.Peace {
			case PeaceProposedByFirst:
				c.Peace = PeaceProposedBySecond
			case PeaceProposedBySecond:
				c.Peace = PeaceProposedByFirst
			}
		}
		m[k] = &c
	}
	l.mu.Lock()
	l.wars = m
	l.mu.Unlock()
}

func sortWars(ws []War) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].First != ws[j].First {
			return ws[i].First.Less(ws[j].First)
		}
		return ws[i].Second.Less(ws[j].Second)
	})
}
