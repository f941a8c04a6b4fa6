// Package island holds the behaviour bound to a single island record and a
// single player's membership. Both entities are immutable: every transition
// returns a new value wrapping a fresh record, so concurrent readers never
// observe a half-updated island.
package island

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/internal/world"
	"github.com/mroshb/islands/pkg/errors"
)

// MaxRecentVisits bounds the visit ring kept on each island.
const MaxRecentVisits = 100

// Rules carries the tunables that lifecycle transitions depend on.
type Rules struct {
	StarterSize    int
	DeleteCooldown time.Duration
}

// DefaultRules matches a one-week deletion cooldown and a 100 block starter region.
func DefaultRules() Rules {
	return Rules{StarterSize: 100, DeleteCooldown: 7 * 24 * time.Hour}
}

type Island struct {
	record *models.Island
}

// FromRecord wraps an existing record. The record must not be modified afterwards.
func FromRecord(record *models.Island) *Island {
	if record == nil {
		return nil
	}
	return &Island{record: record}
}

// Create allocates a starter region and builds the initial record anchored at it.
// It neither persists nor caches the result.
func Create(ctx context.Context, wm world.Manager, rules Rules, ownerID, ownerName, name string, now time.Time) (*Island, error) {
	anchor, err := wm.CreateRegion(ctx, rules.StarterSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeWorldOperation, "failed to allocate island region")
	}

	record := &models.Island{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		OwnerName:    ownerName,
		Name:         name,
		CreatedAt:    now,
		LastActivity: now,
		Settings:     models.Settings{Color: "white", Biome: "plains"},
	}
	applyStarterState(record, rules.StarterSize, anchor)
	return &Island{record: record}, nil
}

// applyStarterState resets everything a fresh or reset island starts with.
func applyStarterState(record *models.Island, starterSize int, anchor models.Location) {
	record.Size = starterSize
	record.IsPublic = false
	record.Members = nil
	record.Workers = nil
	record.Contributions = map[string]int64{record.OwnerID: 0}
	record.Spawn = models.SpawnData{Default: anchor}
	record.Upgrades = starterUpgrades()
	record.Permissions = models.DefaultPermissions()
	record.PendingInvites = nil
	record.RecentVisits = nil
	record.DeletionScheduledAt = nil
}

// Record returns a copy of the underlying record.
func (i *Island) Record() *models.Island {
	return i.record.Clone()
}

func (i *Island) ID() string                   { return i.record.ID }
func (i *Island) OwnerID() string              { return i.record.OwnerID }
func (i *Island) Name() string                 { return i.record.Name }
func (i *Island) Size() int                    { return i.record.Size }
func (i *Island) IsPublic() bool               { return i.record.IsPublic }
func (i *Island) CreatedAt() time.Time         { return i.record.CreatedAt }
func (i *Island) LastActivity() time.Time      { return i.record.LastActivity }
func (i *Island) TotalResets() int             { return i.record.TotalResets }
func (i *Island) Center() models.Location      { return i.record.Spawn.Default }
func (i *Island) Upgrades() models.UpgradeData { return i.record.Upgrades }

func (i *Island) RoleOf(playerID string) models.Role {
	return i.record.RoleOf(playerID)
}

func (i *Island) PlayerIDs() []string {
	return i.record.PlayerIDs()
}

func (i *Island) Contribution(playerID string) (int64, bool) {
	v, ok := i.record.Contributions[playerID]
	return v, ok
}

func (i *Island) ContributionTotal() int64 {
	return i.record.ContributionTotal()
}

func (i *Island) Members() []models.Member {
	return slices.Clone(i.record.Members)
}

func (i *Island) Workers() []models.Worker {
	return slices.Clone(i.record.Workers)
}

func (i *Island) RecentVisits() []models.Visit {
	return slices.Clone(i.record.RecentVisits)
}

// SpawnFor returns the player's personal spawn, falling back to the default spawn.
func (i *Island) SpawnFor(playerID string) models.Location {
	if loc, ok := i.record.Spawn.Personal[playerID]; ok {
		return loc
	}
	return i.record.Spawn.Default
}

// Can reports whether the player's role on this island grants the capability.
func (i *Island) Can(playerID string, capability models.Capability) bool {
	role := i.record.RoleOf(playerID)
	if role == models.RoleNone {
		role = models.RoleVisitor
	}
	return slices.Contains(i.record.Permissions[role], capability)
}

// with applies fn to a copy of the record and wraps the copy.
func (i *Island) with(fn func(r *models.Island)) *Island {
	next := i.record.Clone()
	fn(next)
	return &Island{record: next}
}

// Contains reports whether the location lies inside the island's square.
// Only horizontal block coordinates count. The square covers
// [center-size/2, center-size/2+size) on both axes, so center+size/2 is outside.
func (i *Island) Contains(loc models.Location) bool {
	center := i.record.Spawn.Default
	if loc.World != center.World {
		return false
	}
	minX := center.BlockX() - i.record.Size/2
	minZ := center.BlockZ() - i.record.Size/2
	x, z := loc.BlockX(), loc.BlockZ()
	return x >= minX && x < minX+i.record.Size && z >= minZ && z < minZ+i.record.Size
}

// CanDelete reports whether the island is older than the cooldown.
func (i *Island) CanDelete(now time.Time, cooldown time.Duration) bool {
	return now.Sub(i.record.CreatedAt) > cooldown
}

// Delete clears the physical region once the cooldown has passed. Before that it
// fails without side effects.
func (i *Island) Delete(ctx context.Context, wm world.Manager, rules Rules, now time.Time) error {
	if i.RegionCleared() {
		return nil
	}
	if !i.CanDelete(now, rules.DeleteCooldown) {
		return errors.New(errors.ErrCodeCooldownActive, "island is too young to be deleted")
	}
	center := i.record.Spawn.Default
	if err := wm.DeleteRegion(ctx, center.X, center.Z, i.record.Size); err != nil {
		return errors.Wrap(err, errors.ErrCodeWorldOperation, "failed to clear island region")
	}
	return nil
}

// RegionCleared reports whether a delete already cleared the region but the
// record outlived it.
func (i *Island) RegionCleared() bool {
	return i.record.DeletionScheduledAt != nil
}

// MarkRegionCleared records that the region is gone, so a later Delete only
// has to remove the record.
func (i *Island) MarkRegionCleared(now time.Time) *Island {
	return i.with(func(r *models.Island) {
		at := now
		r.DeletionScheduledAt = &at
	})
}

// Reset regenerates the region at starter size and returns the starter record.
// Identity, name, creation time and settings survive; totalResets grows by one.
func (i *Island) Reset(ctx context.Context, wm world.Manager, rules Rules, now time.Time) (*Island, error) {
	center := i.record.Spawn.Default
	if err := wm.ResetRegion(ctx, center.X, center.Z, i.record.Size, rules.StarterSize); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeWorldOperation, "failed to reset island region")
	}
	return i.with(func(r *models.Island) {
		applyStarterState(r, rules.StarterSize, center)
		r.TotalResets++
		r.LastActivity = now
	}), nil
}

// AddMember adds a full member. Existing members, workers and the owner are left as they are.
func (i *Island) AddMember(playerID, name string, now time.Time) *Island {
	if i.record.RoleOf(playerID) != models.RoleNone {
		return i
	}
	return i.with(func(r *models.Island) {
		r.Members = append(r.Members, models.Member{PlayerID: playerID, Name: name, JoinedAt: now})
		if r.Contributions == nil {
			r.Contributions = make(map[string]int64)
		}
		if _, ok := r.Contributions[playerID]; !ok {
			r.Contributions[playerID] = 0
		}
		r.LastActivity = now
	})
}

// AddWorker adds a limited-privilege helper. Anyone already on the island is left as they are.
func (i *Island) AddWorker(playerID, name string, now time.Time) *Island {
	if i.record.RoleOf(playerID) != models.RoleNone {
		return i
	}
	return i.with(func(r *models.Island) {
		r.Workers = append(r.Workers, models.Worker{PlayerID: playerID, Name: name, AddedAt: now})
		r.LastActivity = now
	})
}

// RemoveMember strips the player from members and workers. The contribution
// ledger keeps the player's entry.
func (i *Island) RemoveMember(playerID string) *Island {
	role := i.record.RoleOf(playerID)
	if role == models.RoleNone || role == models.RoleOwner {
		return i
	}
	return i.with(func(r *models.Island) {
		r.Members = slices.DeleteFunc(r.Members, func(m models.Member) bool { return m.PlayerID == playerID })
		r.Workers = slices.DeleteFunc(r.Workers, func(w models.Worker) bool { return w.PlayerID == playerID })
		delete(r.Spawn.Personal, playerID)
	})
}

// SetCoOwner flags or unflags a full member as co-owner.
func (i *Island) SetCoOwner(playerID string, coOwner bool) (*Island, error) {
	idx := slices.IndexFunc(i.record.Members, func(m models.Member) bool { return m.PlayerID == playerID })
	if idx < 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "player is not a member of this island")
	}
	return i.with(func(r *models.Island) {
		r.Members[idx].IsCoOwner = coOwner
	}), nil
}

// AddContribution credits a positive amount to the player's ledger entry.
func (i *Island) AddContribution(playerID string, amount int64, now time.Time) (*Island, error) {
	if amount <= 0 {
		return nil, errors.New(errors.ErrCodeValidationFailed, "contribution must be positive")
	}
	return i.with(func(r *models.Island) {
		if r.Contributions == nil {
			r.Contributions = make(map[string]int64)
		}
		r.Contributions[playerID] += amount
		r.LastActivity = now
	}), nil
}

// RecordVisit prepends a visit and keeps only the newest MaxRecentVisits.
func (i *Island) RecordVisit(playerID, name string, at time.Time) *Island {
	return i.with(func(r *models.Island) {
		visits := make([]models.Visit, 0, min(len(r.RecentVisits)+1, MaxRecentVisits))
		visits = append(visits, models.Visit{PlayerID: playerID, Name: name, At: at})
		for _, v := range r.RecentVisits {
			if len(visits) == MaxRecentVisits {
				break
			}
			visits = append(visits, v)
		}
		r.RecentVisits = visits
	})
}

func (i *Island) SetPublic(public bool) *Island {
	return i.with(func(r *models.Island) {
		r.IsPublic = public
	})
}

// SetPersonalSpawn stores a per-player spawn; it must lie inside the island.
func (i *Island) SetPersonalSpawn(playerID string, loc models.Location) (*Island, error) {
	if !i.Contains(loc) {
		return nil, errors.New(errors.ErrCodeValidationFailed, "spawn point is outside the island")
	}
	return i.with(func(r *models.Island) {
		if r.Spawn.Personal == nil {
			r.Spawn.Personal = make(map[string]models.Location)
		}
		r.Spawn.Personal[playerID] = loc
	}), nil
}

// PendingInvite returns the player's unexpired invite, if any.
func (i *Island) PendingInvite(playerID string, now time.Time) (models.Invite, bool) {
	for _, inv := range i.record.PendingInvites {
		if inv.PlayerID == playerID && now.Before(inv.ExpiresAt) {
			return inv, true
		}
	}
	return models.Invite{}, false
}

// AddInvite replaces any invite for the same player and drops expired ones.
func (i *Island) AddInvite(invite models.Invite, now time.Time) *Island {
	return i.with(func(r *models.Island) {
		r.PendingInvites = slices.DeleteFunc(r.PendingInvites, func(inv models.Invite) bool {
			return inv.PlayerID == invite.PlayerID || !now.Before(inv.ExpiresAt)
		})
		r.PendingInvites = append(r.PendingInvites, invite)
	})
}

func (i *Island) RemoveInvite(playerID string) *Island {
	return i.with(func(r *models.Island) {
		r.PendingInvites = slices.DeleteFunc(r.PendingInvites, func(inv models.Invite) bool {
			return inv.PlayerID == playerID
		})
	})
}

// Touch records activity on the island.
func (i *Island) Touch(now time.Time) *Island {
	return i.with(func(r *models.Island) {
		r.LastActivity = now
	})
}
