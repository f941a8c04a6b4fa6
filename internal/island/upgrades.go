package island

import (
	"context"
	"fmt"

	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/internal/world"
	"github.com/mroshb/islands/pkg/errors"
)

// UpgradeKind names one of the three upgrade tracks.
type UpgradeKind string

const (
	UpgradeSize    UpgradeKind = "size"
	UpgradeMembers UpgradeKind = "members"
	UpgradeWorkers UpgradeKind = "workers"
)

// tier is one level of an upgrade track. Cost is the island contribution total
// required to unlock it; contributions are a ledger and are never spent.
type tier struct {
	Cost  int64
	Value int
}

var (
	// Value is the edge length added to the starter size.
	sizeTiers = []tier{{0, 0}, {1000, 50}, {5000, 100}, {15000, 150}, {40000, 200}}
	// Value is the member limit at that level.
	memberTiers = []tier{{0, 4}, {500, 6}, {2500, 8}, {10000, 12}}
	// Value is the worker limit at that level.
	workerTiers = []tier{{0, 2}, {750, 4}, {3000, 6}, {12000, 8}}
)

func starterUpgrades() models.UpgradeData {
	return models.UpgradeData{
		MemberLimit: memberTiers[0].Value,
		WorkerLimit: workerTiers[0].Value,
	}
}

func tiersFor(kind UpgradeKind) ([]tier, error) {
	switch kind {
	case UpgradeSize:
		return sizeTiers, nil
	case UpgradeMembers:
		return memberTiers, nil
	case UpgradeWorkers:
		return workerTiers, nil
	}
	return nil, errors.New(errors.ErrCodeValidationFailed, fmt.Sprintf("unknown upgrade %q", kind))
}

func (i *Island) level(kind UpgradeKind) int {
	switch kind {
	case UpgradeSize:
		return i.record.Upgrades.SizeLevel
	case UpgradeMembers:
		return i.record.Upgrades.MemberLevel
	default:
		return i.record.Upgrades.WorkerLevel
	}
}

// NextUpgradeCost returns the contribution total needed for the next level of
// the track, and false when the track is maxed out.
func (i *Island) NextUpgradeCost(kind UpgradeKind) (int64, bool) {
	tiers, err := tiersFor(kind)
	if err != nil {
		return 0, false
	}
	next := i.level(kind) + 1
	if next >= len(tiers) {
		return 0, false
	}
	return tiers[next].Cost, true
}

func (i *Island) nextTier(kind UpgradeKind) (tier, error) {
	tiers, err := tiersFor(kind)
	if err != nil {
		return tier{}, err
	}
	next := i.level(kind) + 1
	if next >= len(tiers) {
		return tier{}, errors.New(errors.ErrCodeLimitReached, fmt.Sprintf("%s upgrade is already at the highest level", kind))
	}
	t := tiers[next]
	if i.record.ContributionTotal() < t.Cost {
		return tier{}, errors.New(errors.ErrCodeInsufficientFunds,
			fmt.Sprintf("%s upgrade needs %d contribution, island has %d", kind, t.Cost, i.record.ContributionTotal()))
	}
	return t, nil
}

// UpgradeLimit raises the member or worker limit by one level.
func (i *Island) UpgradeLimit(kind UpgradeKind) (*Island, error) {
	if kind == UpgradeSize {
		return nil, errors.New(errors.ErrCodeValidationFailed, "size upgrades need the world manager")
	}
	t, err := i.nextTier(kind)
	if err != nil {
		return nil, err
	}
	return i.with(func(r *models.Island) {
		if kind == UpgradeMembers {
			r.Upgrades.MemberLevel++
			r.Upgrades.MemberLimit = t.Value
		} else {
			r.Upgrades.WorkerLevel++
			r.Upgrades.WorkerLimit = t.Value
		}
	}), nil
}

// UpgradeSize expands the physical region to the next size tier. Size never shrinks.
func (i *Island) UpgradeSize(ctx context.Context, wm world.Manager, rules Rules) (*Island, error) {
	t, err := i.nextTier(UpgradeSize)
	if err != nil {
		return nil, err
	}
	newSize := rules.StarterSize + t.Value
	if newSize <= i.record.Size {
		return nil, errors.New(errors.ErrCodeLimitReached, "island is already at least this large")
	}
	center := i.record.Spawn.Default
	if err := wm.ExpandRegion(ctx, center.X, center.Z, i.record.Size, newSize); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeWorldOperation, "failed to expand island region")
	}
	return i.with(func(r *models.Island) {
		r.Upgrades.SizeLevel++
		r.Size = newSize
	}), nil
}

// HasMemberSlot reports whether another full member fits under the limit.
func (i *Island) HasMemberSlot() bool {
	return len(i.record.Members) < i.record.Upgrades.MemberLimit
}

// HasWorkerSlot reports whether another worker fits under the limit.
func (i *Island) HasWorkerSlot() bool {
	return len(i.record.Workers) < i.record.Upgrades.WorkerLimit
}
