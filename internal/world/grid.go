package world

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/pkg/logger"
)

var _ Manager = (*GridManager)(nil)

type cell struct {
	x, z int
}

// GridManager lays island regions out on a square spiral of fixed spacing
// around the world origin. Freed cells are handed out again lowest-slot first.
type GridManager struct {
	world   string
	spacing int
	spawnY  float64

	mu     sync.Mutex
	cells  []cell       // spiral order, grown lazily
	slots  map[cell]int // occupied cell -> region size
	free   []int        // released slot indexes
	next   int          // first never-used slot
	walkX  int
	walkZ  int
	walkDX int
	walkDZ int
}

func NewGridManager(world string, spacing int, spawnY float64) *GridManager {
	return &GridManager{
		world:   world,
		spacing: spacing,
		spawnY:  spawnY,
		slots:   make(map[cell]int),
		walkDZ:  -1,
	}
}

func (g *GridManager) IslandWorld() string {
	return g.world
}

func (g *GridManager) IsIslandSpace(world string) bool {
	return world == g.world
}

// Regions returns the number of allocated regions.
func (g *GridManager) Regions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}

func (g *GridManager) CreateRegion(ctx context.Context, size int) (models.Location, error) {
	if err := ctx.Err(); err != nil {
		return models.Location{}, err
	}
	if err := g.checkSize(size); err != nil {
		return models.Location{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var slot int
	if len(g.free) > 0 {
		sort.Ints(g.free)
		slot = g.free[0]
		g.free = g.free[1:]
	} else {
		slot = g.next
		g.next++
	}
	c := g.cellAt(slot)
	g.slots[c] = size

	logger.Debug("Allocated island region", "slot", slot, "x", c.x, "z", c.z, "size", size)
	return models.Location{
		World: g.world,
		X:     float64(c.x * g.spacing),
		Y:     g.spawnY,
		Z:     float64(c.z * g.spacing),
	}, nil
}

func (g *GridManager) DeleteRegion(ctx context.Context, centerX, centerZ float64, size int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, err := g.occupied(centerX, centerZ, size)
	if err != nil {
		return err
	}
	delete(g.slots, c)
	g.free = append(g.free, g.slotOf(c))
	return nil
}

func (g *GridManager) ResetRegion(ctx context.Context, centerX, centerZ float64, size, newSize int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.checkSize(newSize); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, err := g.occupied(centerX, centerZ, size)
	if err != nil {
		return err
	}
	g.slots[c] = newSize
	return nil
}

func (g *GridManager) ExpandRegion(ctx context.Context, centerX, centerZ float64, oldSize, newSize int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if newSize <= oldSize {
		return fmt.Errorf("region can only grow: %d -> %d", oldSize, newSize)
	}
	if err := g.checkSize(newSize); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, err := g.occupied(centerX, centerZ, oldSize)
	if err != nil {
		return err
	}
	g.slots[c] = newSize
	return nil
}

func (g *GridManager) checkSize(size int) error {
	if size <= 0 || size > g.spacing {
		return fmt.Errorf("region size %d outside (0, %d]", size, g.spacing)
	}
	return nil
}

// occupied resolves a center to its cell and checks the recorded size. Callers hold mu.
func (g *GridManager) occupied(centerX, centerZ float64, size int) (cell, error) {
	c := cell{
		x: int(math.Round(centerX / float64(g.spacing))),
		z: int(math.Round(centerZ / float64(g.spacing))),
	}
	recorded, ok := g.slots[c]
	if !ok {
		return c, fmt.Errorf("no region at (%v, %v)", centerX, centerZ)
	}
	if recorded != size {
		return c, fmt.Errorf("region at (%v, %v) has size %d, not %d", centerX, centerZ, recorded, size)
	}
	return c, nil
}

// cellAt returns the grid cell of a spiral slot, extending the walk as needed. Callers hold mu.
func (g *GridManager) cellAt(slot int) cell {
	for len(g.cells) <= slot {
		g.cells = append(g.cells, cell{x: g.walkX, z: g.walkZ})
		x, z := g.walkX, g.walkZ
		if x == z || (x < 0 && x == -z) || (x > 0 && x == 1-z) {
			g.walkDX, g.walkDZ = -g.walkDZ, g.walkDX
		}
		g.walkX += g.walkDX
		g.walkZ += g.walkDZ
	}
	return g.cells[slot]
}

// slotOf is the inverse of cellAt for cells that have already been handed out. Callers hold mu.
func (g *GridManager) slotOf(c cell) int {
	for i, existing := range g.cells {
		if existing == c {
			return i
		}
	}
	return -1
}
