package services

import (
	"context"

	"github.com/mroshb/islands/internal/island"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/internal/security"
	"github.com/mroshb/islands/pkg/errors"
	"github.com/mroshb/islands/pkg/logger"
)

// Invite records a pending invite from inviterID's island to targetID and
// returns the signed token the target redeems with AcceptInvite.
func (s *IslandService) Invite(ctx context.Context, inviterID, targetID string, role models.Role) (token string, err error) {
	defer func() { s.observe("invite", err) }()

	if role != models.RoleMember && role != models.RoleWorker {
		return "", errors.New(errors.ErrCodeValidationFailed, "invites are for members or workers")
	}
	if inviterID == targetID {
		return "", errors.New(errors.ErrCodeValidationFailed, "cannot invite yourself")
	}
	if err := s.allow(inviterID); err != nil {
		return "", err
	}

	current, err := s.GetPlayerIsland(ctx, inviterID)
	if err != nil {
		return "", err
	}
	if !current.Can(inviterID, models.CapInvite) {
		return "", errors.New(errors.ErrCodeForbidden, "you cannot invite players to this island")
	}
	if s.membershipFor(ctx, targetID).HasIsland() {
		return "", errors.New(errors.ErrCodeAlreadyExists, "player already has an island")
	}

	unlock := s.islandLocks.Lock(current.ID())
	defer unlock()

	current, err = s.LoadIsland(ctx, current.ID())
	if err != nil {
		return "", err
	}
	if err := checkSlot(current, role); err != nil {
		return "", err
	}

	now := s.now()
	token, err = security.GenerateInviteToken(current.ID(), targetID, role, s.inviteSecret, s.inviteTTL, now)
	if err != nil {
		return "", err
	}

	invite := models.Invite{PlayerID: targetID, InvitedBy: inviterID, Role: role, ExpiresAt: now.Add(s.inviteTTL)}
	if _, err := s.publish(ctx, current, current.AddInvite(invite, now)); err != nil {
		return "", err
	}

	logger.Info("Island invite sent", "island_id", current.ID(), "player_id", targetID, "invited_by", inviterID)
	return token, nil
}

func checkSlot(isl *island.Island, role models.Role) error {
	if role == models.RoleWorker && !isl.HasWorkerSlot() {
		return errors.New(errors.ErrCodeLimitReached, "island has no free worker slots")
	}
	if role == models.RoleMember && !isl.HasMemberSlot() {
		return errors.New(errors.ErrCodeLimitReached, "island has no free member slots")
	}
	return nil
}

// AcceptInvite redeems an invite token. The invite must still be pending on the
// island, so revoking it there invalidates the token.
func (s *IslandService) AcceptInvite(ctx context.Context, playerID, playerName, token string) (isl *island.Island, err error) {
	defer func() { s.observe("accept", err) }()

	now := s.now()
	claims, err := security.ValidateInviteToken(token, s.inviteSecret, now)
	if err != nil {
		return nil, err
	}
	if claims.PlayerID != playerID {
		return nil, errors.New(errors.ErrCodeForbidden, "invite belongs to another player")
	}

	unlockPlayer := s.playerLocks.Lock(playerID)
	defer unlockPlayer()

	m := s.membershipFor(ctx, playerID)
	if m.HasIsland() {
		return nil, errors.New(errors.ErrCodeAlreadyExists, "player already has an island")
	}

	unlockIsland := s.islandLocks.Lock(claims.IslandID)
	defer unlockIsland()

	current, err := s.LoadIsland(ctx, claims.IslandID)
	if err != nil {
		return nil, err
	}
	invite, ok := current.PendingInvite(playerID, now)
	if !ok || invite.Role != claims.Role {
		return nil, errors.New(errors.ErrCodeForbidden, "invite is no longer pending")
	}
	if err := checkSlot(current, invite.Role); err != nil {
		return nil, err
	}

	name := security.SanitizeName(playerName)
	next := current.RemoveInvite(playerID)
	if invite.Role == models.RoleWorker {
		next = next.AddWorker(playerID, name, now)
	} else {
		next = next.AddMember(playerID, name, now)
	}

	joined := m.Join(current.ID(), invite.Role, now)
	if !s.store.SavePlayerMembership(ctx, joined.Record()) {
		return nil, errors.New(errors.ErrCodePersistence, "failed to save membership")
	}
	published, err := s.publish(ctx, current, next)
	if err != nil {
		if !s.saveMembership(ctx, joined.Leave(now)) {
			logger.Warn("Failed to roll back membership", "player_id", playerID, "island_id", current.ID())
		}
		return nil, err
	}
	s.cache.PutPlayerMembership(joined.Record())

	logger.Info("Player joined island", "island_id", current.ID(), "player_id", playerID, "role", invite.Role)
	return published, nil
}

// Leave takes the player off their island. Owners must delete instead.
func (s *IslandService) Leave(ctx context.Context, playerID string) (err error) {
	defer func() { s.observe("leave", err) }()

	unlockPlayer := s.playerLocks.Lock(playerID)
	defer unlockPlayer()

	current, err := s.GetPlayerIsland(ctx, playerID)
	if err != nil {
		return err
	}
	if current.OwnerID() == playerID {
		return errors.New(errors.ErrCodeForbidden, "the owner cannot leave their island")
	}
	return s.removePlayer(ctx, current.ID(), playerID)
}

// Kick removes targetID from the requester's island. Co-owners may kick members
// and workers; only the owner may kick a co-owner. Nobody kicks the owner.
func (s *IslandService) Kick(ctx context.Context, requesterID, targetID string) (err error) {
	defer func() { s.observe("kick", err) }()

	unlockPlayer := s.playerLocks.Lock(targetID)
	defer unlockPlayer()

	current, err := s.GetPlayerIsland(ctx, requesterID)
	if err != nil {
		return err
	}
	if !current.Can(requesterID, models.CapKick) {
		return errors.New(errors.ErrCodeForbidden, "you cannot kick players from this island")
	}
	switch current.RoleOf(targetID) {
	case models.RoleNone:
		return errors.New(errors.ErrCodeNotFound, "player is not on this island")
	case models.RoleOwner:
		return errors.New(errors.ErrCodeForbidden, "the owner cannot be kicked")
	case models.RoleCoOwner:
		if current.OwnerID() != requesterID {
			return errors.New(errors.ErrCodeForbidden, "only the owner can kick a co-owner")
		}
	}
	return s.removePlayer(ctx, current.ID(), targetID)
}

// removePlayer strips the player from the island and clears their membership.
// The caller holds the player lock.
func (s *IslandService) removePlayer(ctx context.Context, islandID, playerID string) error {
	unlock := s.islandLocks.Lock(islandID)
	defer unlock()

	current, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return err
	}
	if current.RoleOf(playerID) == models.RoleNone {
		return errors.New(errors.ErrCodeNotFound, "player is not on this island")
	}

	if _, err := s.publish(ctx, current, current.RemoveMember(playerID)); err != nil {
		return err
	}

	left := s.membershipFor(ctx, playerID).Leave(s.now())
	if !s.saveMembership(ctx, left) {
		s.cache.PutPlayerMembership(left.Record())
		logger.Warn("Player removed from island but membership not saved", "island_id", islandID, "player_id", playerID)
	}

	logger.Info("Player left island", "island_id", islandID, "player_id", playerID)
	return nil
}

// SetCoOwner promotes or demotes a full member. Owner only.
func (s *IslandService) SetCoOwner(ctx context.Context, ownerID, targetID string, coOwner bool) (isl *island.Island, err error) {
	defer func() { s.observe("co_owner", err) }()

	unlockPlayer := s.playerLocks.Lock(targetID)
	defer unlockPlayer()

	islandID, err := s.ownedIslandID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	unlock := s.islandLocks.Lock(islandID)
	defer unlock()

	current, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return nil, err
	}
	next, err := current.SetCoOwner(targetID, coOwner)
	if err != nil {
		return nil, err
	}
	published, err := s.publish(ctx, current, next)
	if err != nil {
		return nil, err
	}

	m := s.membershipFor(ctx, targetID)
	if m.IslandID() == islandID {
		if !s.saveMembership(ctx, m.WithRole(published.RoleOf(targetID))) {
			logger.Warn("Co-owner change not saved on membership", "island_id", islandID, "player_id", targetID)
		}
	}
	return published, nil
}
