package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/mroshb/islands/internal/island"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/internal/security"
	"github.com/mroshb/islands/pkg/errors"
	"github.com/mroshb/islands/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// memberFanOut bounds concurrent membership writes during delete and reset.
const memberFanOut = 16

// CreateIsland allocates a region for a player without an island, persists the
// island and the owner's membership, and only then publishes both to the cache.
// The returned island's Center is where the owner should be moved.
func (s *IslandService) CreateIsland(ctx context.Context, ownerID, ownerName, name string) (isl *island.Island, err error) {
	defer func() { s.observe("create", err) }()

	if err := s.allow(ownerID); err != nil {
		return nil, err
	}
	name, err = security.ValidateIslandName(name)
	if err != nil {
		return nil, err
	}
	ownerName = security.SanitizeName(ownerName)

	unlock := s.playerLocks.Lock(ownerID)
	defer unlock()

	m := s.membershipFor(ctx, ownerID)
	if m.HasIsland() {
		return nil, errors.New(errors.ErrCodeAlreadyExists, "player already has an island")
	}
	if owned, ok := s.store.CountOwnedIslands(ctx, ownerID); ok && owned > 0 {
		logger.Warn("Player owns a stored island without a membership", "player_id", ownerID, "islands", owned)
		return nil, errors.New(errors.ErrCodeAlreadyExists, "player already owns an island")
	}

	now := s.now()
	created, err := island.Create(ctx, s.world, s.rules, ownerID, ownerName, name, now)
	if err != nil {
		logger.Error("Failed to allocate island region", "player_id", ownerID, "error", err)
		return nil, err
	}

	rec := created.Record()
	if !s.store.SaveIsland(ctx, rec) {
		s.logOrphanedRegion(created, "island record could not be saved")
		return nil, errors.New(errors.ErrCodePersistence, "failed to save island")
	}

	joined := m.Join(rec.ID, models.RoleOwner, now)
	memberRec := joined.Record()
	if !s.store.SavePlayerMembership(ctx, memberRec) {
		if !s.store.DeleteIsland(ctx, rec.ID) {
			logger.Warn("Failed to roll back island record", "island_id", rec.ID)
		}
		s.logOrphanedRegion(created, "owner membership could not be saved")
		return nil, errors.New(errors.ErrCodePersistence, "failed to save owner membership")
	}

	s.cache.PutIsland(rec)
	s.cache.PutPlayerMembership(memberRec)
	s.cache.IndexMembers(rec)

	logger.Info("Island created", "island_id", rec.ID, "player_id", ownerID, "name", name)
	return island.FromRecord(rec), nil
}

func (s *IslandService) logOrphanedRegion(isl *island.Island, reason string) {
	center := isl.Center()
	logger.Warn("Orphaned island region",
		"island_id", isl.ID(),
		"player_id", isl.OwnerID(),
		"center_x", center.X,
		"center_z", center.Z,
		"size", isl.Size(),
		"reason", reason,
	)
}

// DeleteIsland removes an island once its cooldown has passed: the region is
// cleared, every player on it is moved out, the record is deleted from the
// store and finally evicted from the cache.
func (s *IslandService) DeleteIsland(ctx context.Context, islandID string) (err error) {
	defer func() { s.observe("delete", err) }()

	unlock := s.islandLocks.Lock(islandID)
	defer unlock()

	return s.deleteLocked(ctx, islandID)
}

// DeleteOwnedIsland deletes the island the player owns.
func (s *IslandService) DeleteOwnedIsland(ctx context.Context, playerID string) (err error) {
	defer func() { s.observe("delete", err) }()

	if err := s.allow(playerID); err != nil {
		return err
	}
	islandID, err := s.ownedIslandID(ctx, playerID)
	if err != nil {
		return err
	}

	unlock := s.islandLocks.Lock(islandID)
	defer unlock()

	isl, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return err
	}
	if isl.OwnerID() != playerID {
		return errors.New(errors.ErrCodeForbidden, "only the owner can delete the island")
	}
	return s.deleteLocked(ctx, islandID)
}

func (s *IslandService) ownedIslandID(ctx context.Context, playerID string) (string, error) {
	isl, err := s.GetPlayerIsland(ctx, playerID)
	if err != nil {
		return "", err
	}
	if isl.OwnerID() != playerID {
		return "", errors.New(errors.ErrCodeForbidden, "only the owner can do this")
	}
	return isl.ID(), nil
}

func (s *IslandService) deleteLocked(ctx context.Context, islandID string) error {
	isl, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return err
	}

	if err := isl.Delete(ctx, s.world, s.rules, s.now()); err != nil {
		logger.Warn("Island delete refused", "island_id", islandID, "error", err)
		return err
	}

	if err := s.evictPlayers(ctx, islandID, s.affiliatedPlayers(ctx, isl)); err != nil {
		logger.Warn("Some memberships still reference a deleted island",
			"island_id", islandID, "error", err)
	}

	if !s.store.DeleteIsland(ctx, islandID) {
		cleared := isl.MarkRegionCleared(s.now()).Record()
		if !s.store.SaveIsland(ctx, cleared) {
			logger.Warn("Failed to mark island region as cleared", "island_id", islandID)
		}
		s.cache.PutIsland(cleared)
		logger.Warn("Island region cleared but record could not be deleted, retry with DeleteIsland by id",
			"island_id", islandID, "player_id", isl.OwnerID())
		return errors.New(errors.ErrCodePersistence, "failed to delete island")
	}

	s.cache.DeindexMembers(isl.Record())
	s.cache.RemoveIsland(islandID)

	logger.Info("Island deleted", "island_id", islandID, "player_id", isl.OwnerID())
	return nil
}

// affiliatedPlayers lists the island's players plus any stored membership that
// still points at the island without being on its lists.
func (s *IslandService) affiliatedPlayers(ctx context.Context, isl *island.Island) []string {
	playerIDs := isl.PlayerIDs()
	stored, ok := s.store.LoadIslandMemberships(ctx, isl.ID())
	if !ok {
		return playerIDs
	}
	for _, rec := range stored {
		if !slices.Contains(playerIDs, rec.PlayerID) {
			playerIDs = append(playerIDs, rec.PlayerID)
		}
	}
	return playerIDs
}

// evictPlayers moves every listed player still affiliated with islandID to no
// island. Writes run concurrently and are all joined before returning. The
// cache always reflects the eviction; store failures are reported together.
func (s *IslandService) evictPlayers(ctx context.Context, islandID string, playerIDs []string) error {
	now := s.now()

	var g errgroup.Group
	g.SetLimit(memberFanOut)
	for _, playerID := range playerIDs {
		g.Go(func() error {
			m := s.membershipFor(ctx, playerID)
			if m.IslandID() != islandID {
				return nil
			}
			left := m.Leave(now)
			rec := left.Record()
			s.cache.PutPlayerMembership(rec)
			s.cache.UnindexPlayer(playerID, islandID)
			if !s.store.SavePlayerMembership(ctx, rec) {
				return fmt.Errorf("membership of %s not saved", playerID)
			}
			return nil
		})
	}
	return g.Wait()
}

// ResetIsland regenerates the island at starter size. The owner's lifetime
// reset is spent; a player who already used it gets RESET_USED.
func (s *IslandService) ResetIsland(ctx context.Context, islandID string) (isl *island.Island, err error) {
	defer func() { s.observe("reset", err) }()

	unlock := s.islandLocks.Lock(islandID)
	defer unlock()

	return s.resetLocked(ctx, islandID)
}

// ResetOwnedIsland resets the island the player owns.
func (s *IslandService) ResetOwnedIsland(ctx context.Context, playerID string) (isl *island.Island, err error) {
	defer func() { s.observe("reset", err) }()

	if err := s.allow(playerID); err != nil {
		return nil, err
	}
	islandID, err := s.ownedIslandID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	unlock := s.islandLocks.Lock(islandID)
	defer unlock()

	current, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID() != playerID {
		return nil, errors.New(errors.ErrCodeForbidden, "only the owner can reset the island")
	}
	return s.resetLocked(ctx, islandID)
}

func (s *IslandService) resetLocked(ctx context.Context, islandID string) (*island.Island, error) {
	current, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return nil, err
	}

	owner := s.membershipFor(ctx, current.OwnerID())
	if !owner.CanReset() {
		return nil, errors.New(errors.ErrCodeResetUsed, "island reset has already been used")
	}

	now := s.now()
	reset, err := current.Reset(ctx, s.world, s.rules, now)
	if err != nil {
		logger.Error("Failed to reset island region", "island_id", islandID, "error", err)
		return nil, err
	}

	rec := reset.Record()
	if !s.store.SaveIsland(ctx, rec) {
		logger.Warn("Island region reset but record could not be saved", "island_id", islandID)
		return nil, errors.New(errors.ErrCodePersistence, "failed to save reset island")
	}

	spent := owner.RecordReset(now)
	ownerRec := spent.Record()
	if !s.store.SavePlayerMembership(ctx, ownerRec) {
		logger.Error("Failed to persist spent reset", "island_id", islandID, "player_id", current.OwnerID())
	}

	s.cache.PutIsland(rec)
	s.cache.PutPlayerMembership(ownerRec)

	var removed []string
	for _, playerID := range current.PlayerIDs() {
		if reset.RoleOf(playerID) == models.RoleNone {
			removed = append(removed, playerID)
		}
	}
	if err := s.evictPlayers(ctx, islandID, removed); err != nil {
		logger.Warn("Some removed members were not saved after reset", "island_id", islandID, "error", err)
	}
	s.cache.IndexMembers(rec)

	logger.Info("Island reset", "island_id", islandID, "player_id", current.OwnerID(), "total_resets", reset.TotalResets())
	return island.FromRecord(rec), nil
}

// UpdateIsland publishes a new version of an island. Identity, reset count and
// the roster are fixed here: players join and leave through the membership
// workflows, and size only grows.
func (s *IslandService) UpdateIsland(ctx context.Context, next *island.Island) (isl *island.Island, err error) {
	defer func() { s.observe("update", err) }()

	unlock := s.islandLocks.Lock(next.ID())
	defer unlock()

	prev, err := s.LoadIsland(ctx, next.ID())
	if err != nil {
		return nil, err
	}
	if err := checkUpdate(prev, next); err != nil {
		logger.Warn("Island update rejected", "island_id", next.ID(), "error", err)
		return nil, err
	}
	return s.publish(ctx, prev, next)
}

func checkUpdate(prev, next *island.Island) error {
	switch {
	case next.OwnerID() != prev.OwnerID():
		return errors.New(errors.ErrCodeValidationFailed, "island owner cannot be changed")
	case !next.CreatedAt().Equal(prev.CreatedAt()):
		return errors.New(errors.ErrCodeValidationFailed, "island creation time cannot be changed")
	case next.TotalResets() != prev.TotalResets():
		return errors.New(errors.ErrCodeValidationFailed, "island reset count cannot be changed")
	case next.Size() < prev.Size():
		return errors.New(errors.ErrCodeValidationFailed, "island size cannot shrink")
	}

	prevIDs, nextIDs := prev.PlayerIDs(), next.PlayerIDs()
	if len(prevIDs) != len(nextIDs) {
		return errors.New(errors.ErrCodeValidationFailed, "island players change through invites, leave and kick")
	}
	for _, playerID := range prevIDs {
		if next.RoleOf(playerID) != prev.RoleOf(playerID) {
			return errors.New(errors.ErrCodeValidationFailed, "island players change through invites, leave and kick")
		}
	}
	return nil
}

// publish persists next, then mirrors it into the cache and re-points the index.
// The caller holds the island lock.
func (s *IslandService) publish(ctx context.Context, prev, next *island.Island) (*island.Island, error) {
	rec := next.Record()
	if !s.store.SaveIsland(ctx, rec) {
		return nil, errors.New(errors.ErrCodePersistence, "failed to save island")
	}

	s.cache.PutIsland(rec)
	if prev != nil {
		for _, playerID := range prev.PlayerIDs() {
			if next.RoleOf(playerID) == models.RoleNone {
				s.cache.UnindexPlayer(playerID, rec.ID)
			}
		}
	}
	s.cache.IndexMembers(rec)
	return island.FromRecord(rec), nil
}
