package services

import (
	"context"
	"testing"

	"github.com/mroshb/islands/internal/island"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/pkg/errors"
)

func TestAddContribution(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alpha := env.mustCreate(t, "owner", "Alpha")
	joinIsland(t, env, "owner", "m1", models.RoleMember)

	if _, err := env.svc.AddContribution(ctx, alpha.ID(), "owner", 100); err != nil {
		t.Fatalf("AddContribution(owner) error = %v", err)
	}
	updated, err := env.svc.AddContribution(ctx, alpha.ID(), "m1", 50)
	if err != nil {
		t.Fatalf("AddContribution(m1) error = %v", err)
	}
	if updated.ContributionTotal() != 150 {
		t.Errorf("ContributionTotal() = %d, want 150", updated.ContributionTotal())
	}
	if got := env.svc.GetPlayerMembership(ctx, "owner").TotalContribution(); got != 100 {
		t.Errorf("owner TotalContribution() = %d, want 100", got)
	}

	if _, err := env.svc.AddContribution(ctx, alpha.ID(), "stranger", 10); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("AddContribution(stranger) error = %v, want FORBIDDEN", err)
	}
	if _, err := env.svc.AddContribution(ctx, alpha.ID(), "m1", 0); !errors.Is(err, errors.ErrCodeValidationFailed) {
		t.Errorf("AddContribution(0) error = %v, want VALIDATION_FAILED", err)
	}
	if _, err := env.svc.AddContribution(ctx, "missing", "m1", 5); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("AddContribution(missing island) error = %v, want NOT_FOUND", err)
	}
}

func TestRecordVisit(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	alpha := env.mustCreate(t, "owner", "Alpha")

	for _, visitor := range []string{"v1", "v2", "v3"} {
		if _, err := env.svc.RecordVisit(ctx, alpha.ID(), visitor, "Visitor "+visitor); err != nil {
			t.Fatalf("RecordVisit(%s) error = %v", visitor, err)
		}
	}

	current, _ := env.svc.LoadIsland(ctx, alpha.ID())
	visits := current.RecentVisits()
	if len(visits) != 3 || visits[0].PlayerID != "v3" {
		t.Errorf("RecentVisits() = %+v", visits)
	}
}

func TestUpgrade(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alpha := env.mustCreate(t, "owner", "Alpha")
	joinIsland(t, env, "owner", "m1", models.RoleMember)

	if _, err := env.svc.Upgrade(ctx, "owner", island.UpgradeSize); !errors.Is(err, errors.ErrCodeInsufficientFunds) {
		t.Fatalf("Upgrade() without contributions error = %v, want INSUFFICIENT_FUNDS", err)
	}
	if _, err := env.svc.Upgrade(ctx, "m1", island.UpgradeSize); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("Upgrade() by member error = %v, want FORBIDDEN", err)
	}

	if _, err := env.svc.AddContribution(ctx, alpha.ID(), "m1", 1000); err != nil {
		t.Fatalf("AddContribution() error = %v", err)
	}

	bigger, err := env.svc.Upgrade(ctx, "owner", island.UpgradeSize)
	if err != nil {
		t.Fatalf("Upgrade(size) error = %v", err)
	}
	if bigger.Size() != 150 {
		t.Errorf("Size() = %d, want 150", bigger.Size())
	}
	if rec, ok := env.store.LoadIsland(ctx, alpha.ID()); !ok || rec.Size != 150 {
		t.Errorf("stored size = %+v, %v", rec, ok)
	}
	edge := alpha.Center()
	edge.X += 70
	if _, ok := env.svc.IslandAt(edge); !ok {
		t.Error("IslandAt() misses the expanded area")
	}

	// The region now has size 150; a second expansion must start from it.
	if _, err := env.svc.Upgrade(ctx, "owner", island.UpgradeSize); !errors.Is(err, errors.ErrCodeInsufficientFunds) {
		t.Errorf("Upgrade(size) level 2 error = %v, want INSUFFICIENT_FUNDS", err)
	}

	more, err := env.svc.Upgrade(ctx, "owner", island.UpgradeMembers)
	if err != nil {
		t.Fatalf("Upgrade(members) error = %v", err)
	}
	if more.Upgrades().MemberLimit != 6 {
		t.Errorf("MemberLimit = %d, want 6", more.Upgrades().MemberLimit)
	}
	if _, err := env.svc.Upgrade(ctx, "owner", "colour"); !errors.Is(err, errors.ErrCodeValidationFailed) {
		t.Errorf("Upgrade(unknown) error = %v, want VALIDATION_FAILED", err)
	}
}

func TestSetPublic(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.mustCreate(t, "owner", "Alpha")
	joinIsland(t, env, "owner", "m1", models.RoleMember)

	opened, err := env.svc.SetPublic(ctx, "owner", true)
	if err != nil || !opened.IsPublic() {
		t.Fatalf("SetPublic() = %v, %v", opened, err)
	}
	if _, err := env.svc.SetPublic(ctx, "m1", false); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("SetPublic() by member error = %v, want FORBIDDEN", err)
	}
}

func TestSetPersonalSpawn(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	alpha := env.mustCreate(t, "owner", "Alpha")
	joinIsland(t, env, "owner", "m1", models.RoleMember)
	joinIsland(t, env, "owner", "w1", models.RoleWorker)

	spot := alpha.Center()
	spot.X += 10
	spot.Y = 80

	updated, err := env.svc.SetPersonalSpawn(ctx, "m1", spot)
	if err != nil {
		t.Fatalf("SetPersonalSpawn() error = %v", err)
	}
	if updated.SpawnFor("m1") != spot {
		t.Errorf("SpawnFor(m1) = %+v, want %+v", updated.SpawnFor("m1"), spot)
	}

	far := alpha.Center()
	far.X += 500
	if _, err := env.svc.SetPersonalSpawn(ctx, "m1", far); !errors.Is(err, errors.ErrCodeValidationFailed) {
		t.Errorf("SetPersonalSpawn(outside) error = %v, want VALIDATION_FAILED", err)
	}
	if _, err := env.svc.SetPersonalSpawn(ctx, "w1", spot); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("SetPersonalSpawn() by worker error = %v, want FORBIDDEN", err)
	}
}
