package services

import (
	"context"

	"github.com/mroshb/islands/internal/island"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/pkg/errors"
	"github.com/mroshb/islands/pkg/logger"
)

// AddContribution credits amount to the player's entry in the island ledger and
// to the player's lifetime total. Only players on the island can contribute.
func (s *IslandService) AddContribution(ctx context.Context, islandID, playerID string, amount int64) (isl *island.Island, err error) {
	defer func() { s.observe("contribute", err) }()

	unlockPlayer := s.playerLocks.Lock(playerID)
	defer unlockPlayer()
	unlock := s.islandLocks.Lock(islandID)
	defer unlock()

	current, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return nil, err
	}
	if current.RoleOf(playerID) == models.RoleNone {
		return nil, errors.New(errors.ErrCodeForbidden, "only island players can contribute")
	}

	now := s.now()
	next, err := current.AddContribution(playerID, amount, now)
	if err != nil {
		return nil, err
	}
	published, err := s.publish(ctx, current, next)
	if err != nil {
		return nil, err
	}

	if !s.saveMembership(ctx, s.membershipFor(ctx, playerID).AddContribution(amount, now)) {
		logger.Warn("Contribution total not saved on membership", "island_id", islandID, "player_id", playerID)
	}
	return published, nil
}

// RecordVisit notes a visitor on the island's recent visit list.
func (s *IslandService) RecordVisit(ctx context.Context, islandID, playerID, playerName string) (isl *island.Island, err error) {
	defer func() { s.observe("visit", err) }()

	unlock := s.islandLocks.Lock(islandID)
	defer unlock()

	current, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, current, current.RecordVisit(playerID, playerName, s.now()))
}

// Upgrade advances one upgrade track on the player's island. Size upgrades
// expand the physical region before anything is saved.
func (s *IslandService) Upgrade(ctx context.Context, playerID string, kind island.UpgradeKind) (isl *island.Island, err error) {
	defer func() { s.observe("upgrade", err) }()

	if err := s.allow(playerID); err != nil {
		return nil, err
	}
	current, err := s.authorize(ctx, playerID, models.CapUpgrade)
	if err != nil {
		return nil, err
	}

	unlock := s.islandLocks.Lock(current.ID())
	defer unlock()

	current, err = s.LoadIsland(ctx, current.ID())
	if err != nil {
		return nil, err
	}

	var next *island.Island
	if kind == island.UpgradeSize {
		next, err = current.UpgradeSize(ctx, s.world, s.rules)
	} else {
		next, err = current.UpgradeLimit(kind)
	}
	if err != nil {
		return nil, err
	}

	published, err := s.publish(ctx, current, next.Touch(s.now()))
	if err != nil {
		if kind == island.UpgradeSize {
			logger.Warn("Island region expanded but upgrade not saved", "island_id", current.ID(), "size", next.Size())
		}
		return nil, err
	}

	logger.Info("Island upgraded", "island_id", current.ID(), "player_id", playerID, "upgrade", kind)
	return published, nil
}

// SetPublic opens or closes the player's island to visitors.
func (s *IslandService) SetPublic(ctx context.Context, playerID string, public bool) (isl *island.Island, err error) {
	defer func() { s.observe("settings", err) }()

	current, err := s.authorize(ctx, playerID, models.CapSettings)
	if err != nil {
		return nil, err
	}

	unlock := s.islandLocks.Lock(current.ID())
	defer unlock()

	current, err = s.LoadIsland(ctx, current.ID())
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, current, current.SetPublic(public).Touch(s.now()))
}

// SetPersonalSpawn stores where the player appears when teleporting home.
func (s *IslandService) SetPersonalSpawn(ctx context.Context, playerID string, loc models.Location) (isl *island.Island, err error) {
	defer func() { s.observe("spawn", err) }()

	current, err := s.authorize(ctx, playerID, models.CapSetSpawn)
	if err != nil {
		return nil, err
	}

	unlock := s.islandLocks.Lock(current.ID())
	defer unlock()

	current, err = s.LoadIsland(ctx, current.ID())
	if err != nil {
		return nil, err
	}
	next, err := current.SetPersonalSpawn(playerID, loc)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, current, next)
}

// authorize returns the player's island if their role grants capability.
func (s *IslandService) authorize(ctx context.Context, playerID string, capability models.Capability) (*island.Island, error) {
	current, err := s.GetPlayerIsland(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if !current.Can(playerID, capability) {
		return nil, errors.New(errors.ErrCodeForbidden, "your role does not allow this")
	}
	return current, nil
}
