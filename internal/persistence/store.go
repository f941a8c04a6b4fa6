// Package persistence adapts the gorm repositories to the island service.
// Failures are logged here and reported as plain outcomes, so callers never
// see driver errors. A Store built without a database runs offline: writes
// succeed as no-ops and reads find nothing.
package persistence

import (
	"context"

	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/internal/repositories"
	"github.com/mroshb/islands/pkg/errors"
	"github.com/mroshb/islands/pkg/logger"
	"gorm.io/gorm"
)

type Store struct {
	islands     *repositories.IslandRepository
	memberships *repositories.MembershipRepository
}

// NewStore wraps db. A nil db yields an offline store.
func NewStore(db *gorm.DB) *Store {
	if db == nil {
		return &Store{}
	}
	return &Store{
		islands:     repositories.NewIslandRepository(db),
		memberships: repositories.NewMembershipRepository(db),
	}
}

// Online reports whether the store is backed by a database.
func (s *Store) Online() bool {
	return s.islands != nil
}

func (s *Store) SaveIsland(ctx context.Context, island *models.Island) bool {
	if !s.Online() {
		return true
	}
	if err := s.islands.Save(ctx, island); err != nil {
		logger.Error("Failed to save island", "island_id", island.ID, "error", err)
		return false
	}
	return true
}

func (s *Store) LoadIsland(ctx context.Context, islandID string) (*models.Island, bool) {
	if !s.Online() {
		return nil, false
	}
	island, err := s.islands.GetByID(ctx, islandID)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeNotFound) {
			logger.Error("Failed to load island", "island_id", islandID, "error", err)
		}
		return nil, false
	}
	return island, true
}

func (s *Store) DeleteIsland(ctx context.Context, islandID string) bool {
	if !s.Online() {
		return true
	}
	if err := s.islands.Delete(ctx, islandID); err != nil {
		logger.Error("Failed to delete island", "island_id", islandID, "error", err)
		return false
	}
	return true
}

func (s *Store) SavePlayerMembership(ctx context.Context, membership *models.PlayerMembership) bool {
	if !s.Online() {
		return true
	}
	if err := s.memberships.Save(ctx, membership); err != nil {
		logger.Error("Failed to save membership", "player_id", membership.PlayerID, "error", err)
		return false
	}
	return true
}

func (s *Store) LoadPlayerMembership(ctx context.Context, playerID string) (*models.PlayerMembership, bool) {
	if !s.Online() {
		return nil, false
	}
	membership, err := s.memberships.GetByPlayerID(ctx, playerID)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeNotFound) {
			logger.Error("Failed to load membership", "player_id", playerID, "error", err)
		}
		return nil, false
	}
	return membership, true
}

// LoadPublicIslands returns up to limit public islands, most recently active first.
func (s *Store) LoadPublicIslands(ctx context.Context, limit int) ([]*models.Island, bool) {
	if !s.Online() {
		return nil, false
	}
	islands, err := s.islands.ListPublic(ctx, limit)
	if err != nil {
		logger.Error("Failed to load public islands", "error", err)
		return nil, false
	}
	return pointers(islands), true
}

func (s *Store) LoadAllIslands(ctx context.Context) ([]*models.Island, bool) {
	if !s.Online() {
		return nil, false
	}
	islands, err := s.islands.ListAll(ctx)
	if err != nil {
		logger.Error("Failed to load islands", "error", err)
		return nil, false
	}
	return pointers(islands), true
}

func (s *Store) LoadAllPlayerMemberships(ctx context.Context) ([]*models.PlayerMembership, bool) {
	if !s.Online() {
		return nil, false
	}
	memberships, err := s.memberships.ListAll(ctx)
	if err != nil {
		logger.Error("Failed to load memberships", "error", err)
		return nil, false
	}
	return pointers(memberships), true
}

// LoadIslandMemberships returns every stored membership that points at islandID,
// including ones the island itself no longer lists.
func (s *Store) LoadIslandMemberships(ctx context.Context, islandID string) ([]*models.PlayerMembership, bool) {
	if !s.Online() {
		return nil, false
	}
	memberships, err := s.memberships.ListByIsland(ctx, islandID)
	if err != nil {
		logger.Error("Failed to load island memberships", "island_id", islandID, "error", err)
		return nil, false
	}
	return pointers(memberships), true
}

// CountOwnedIslands reports how many stored islands name playerID as owner.
func (s *Store) CountOwnedIslands(ctx context.Context, playerID string) (int64, bool) {
	if !s.Online() {
		return 0, false
	}
	count, err := s.islands.CountByOwner(ctx, playerID)
	if err != nil {
		logger.Error("Failed to count owned islands", "player_id", playerID, "error", err)
		return 0, false
	}
	return count, true
}

func pointers[T any](values []T) []*T {
	out := make([]*T, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}
