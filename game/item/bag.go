package item

import (
	"errors"
	"sort"
)

// MaxStack is the most of one item a bag holds.
const MaxStack = 99

var (
	ErrBagFull       = errors.New("item: stack full")
	ErrNotEnough     = errors.New("item: not enough items")
	ErrInvalidAmount = errors.New("item: quantity must be positive")
)

// Bag holds a character's item stacks. It satisfies talent.Inventory and is
// owned by whoever owns the character.
type Bag struct {
	stacks map[string]int
}

// NewBag returns an empty bag.
func NewBag() *Bag {
	return &Bag{stacks: make(map[string]int)}
}

// Add puts qty of itemID in the bag.
func (b *Bag) Add(itemID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidAmount
	}
	if b.stacks[itemID]+qty > MaxStack {
		return ErrBagFull
	}
	b.stacks[itemID] += qty
	return nil
}

// HasItems reports whether the bag holds at least qty of itemID.
func (b *Bag) HasItems(itemID string, qty int) bool {
	return b.stacks[itemID] >= qty
}

// RemoveItems takes qty of itemID out of the bag. Nothing changes when the
// bag holds fewer.
func (b *Bag) RemoveItems(itemID string, qty int) {
	_ = b.Take(itemID, qty)
}

// Take is RemoveItems with an error for short stacks.
func (b *Bag) Take(itemID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidAmount
	}
	have := b.stacks[itemID]
	if have < qty {
		return ErrNotEnough
	}
	if have == qty {
		delete(b.stacks, itemID)
		return nil
	}
	b.stacks[itemID] = have - qty
	return nil
}

// Qty returns how many of itemID the bag holds.
func (b *Bag) Qty(itemID string) int { return b.stacks[itemID] }

// Stack is one entry of Bag.Stacks.
type Stack struct {
	ItemID string `json:"item"`
	Qty    int    `json:"qty"`
}

// Stacks lists the bag's contents sorted by item id.
func (b *Bag) Stacks() []Stack {
	out := make([]Stack, 0, len(b.stacks))
	for id, qty := range b.stacks {
		out = append(out, Stack{ItemID: id, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Clone returns an independent copy.
func (b *Bag) Clone() *Bag {
	c := NewBag()
	for id, qty := range b.stacks {
		c.stacks[id] = qty
	}
	return c
}
