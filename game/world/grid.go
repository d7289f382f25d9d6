package world

import (
	"math"
	"sync"

	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/game/spell"
)

type cell struct{ x, y int }

// Grid is a rectangular map of square cells, some of which are impassable.
// It answers location-validity queries for teleports.
type Grid struct {
	mu       sync.RWMutex
	width    int // cells
	height   int // cells
	cellSize float64
	blocked  map[cell]struct{}
}

// NewGrid creates an open grid of width × height cells of cellSize pixels.
func NewGrid(width, height int, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 32
	}
	return &Grid{width: width, height: height, cellSize: cellSize, blocked: make(map[cell]struct{})}
}

// Block marks the cell at column x, row y as impassable.
func (g *Grid) Block(x, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked[cell{x, y}] = struct{}{}
}

// Unblock clears a blocked cell.
func (g *Grid) Unblock(x, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.blocked, cell{x, y})
}

// Bounds returns the grid size in pixels.
func (g *Grid) Bounds() (w, h float64) {
	return float64(g.width) * g.cellSize, float64(g.height) * g.cellSize
}

// IsLocationValid reports whether p lies on the map in a passable cell.
func (g *Grid) IsLocationValid(p combat.Point, _ spell.Target) bool {
	if p.X < 0 || p.Y < 0 || math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return false
	}
	c := cell{int(p.X / g.cellSize), int(p.Y / g.cellSize)}
	if c.x >= g.width || c.y >= g.height {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, blocked := g.blocked[c]
	return !blocked
}
