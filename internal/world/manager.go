// Package world defines the contract for the physical terrain backend that
// allocates, clears, resets and expands island regions.
package world

import (
	"context"

	"github.com/mroshb/islands/internal/models"
)

// Manager performs physical operations on square regions of the island world.
// Regions are addressed by their horizontal center and edge length.
type Manager interface {
	// CreateRegion allocates and terraforms a region and returns its center anchor.
	CreateRegion(ctx context.Context, size int) (models.Location, error)
	DeleteRegion(ctx context.Context, centerX, centerZ float64, size int) error
	ResetRegion(ctx context.Context, centerX, centerZ float64, size, newSize int) error
	ExpandRegion(ctx context.Context, centerX, centerZ float64, oldSize, newSize int) error
	IsIslandSpace(world string) bool
	IslandWorld() string
}
