package services

import (
	"context"
	"testing"
	"time"

	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/pkg/errors"
)

// joinIsland invites playerID to inviterID's island and accepts the invite.
func joinIsland(t *testing.T, env *testEnv, inviterID, playerID string, role models.Role) {
	t.Helper()
	ctx := context.Background()

	token, err := env.svc.Invite(ctx, inviterID, playerID, role)
	if err != nil {
		t.Fatalf("Invite(%s -> %s) error = %v", inviterID, playerID, err)
	}
	if _, err := env.svc.AcceptInvite(ctx, playerID, "Name-"+playerID, token); err != nil {
		t.Fatalf("AcceptInvite(%s) error = %v", playerID, err)
	}
}

func TestInviteAccept(t *testing.T) {
	for _, mode := range storeModes {
		t.Run(mode.name, func(t *testing.T) {
			env := newTestEnv(t, mode.online)
			ctx := context.Background()
			alpha := env.mustCreate(t, "owner", "Alpha")

			token, err := env.svc.Invite(ctx, "owner", "p2", models.RoleMember)
			if err != nil {
				t.Fatalf("Invite() error = %v", err)
			}

			joined, err := env.svc.AcceptInvite(ctx, "p2", "Two", token)
			if err != nil {
				t.Fatalf("AcceptInvite() error = %v", err)
			}
			if joined.RoleOf("p2") != models.RoleMember {
				t.Errorf("RoleOf(p2) = %q, want MEMBER", joined.RoleOf("p2"))
			}
			if _, ok := joined.PendingInvite("p2", env.clock.Now()); ok {
				t.Error("invite still pending after accept")
			}

			m := env.svc.GetPlayerMembership(ctx, "p2")
			if m.IslandID() != alpha.ID() || m.Role() != models.RoleMember {
				t.Errorf("membership = %+v", m.Record())
			}
			got, err := env.svc.GetPlayerIsland(ctx, "p2")
			if err != nil || got.ID() != alpha.ID() {
				t.Errorf("GetPlayerIsland(p2) = %v, %v", got, err)
			}

			if _, err := env.svc.AcceptInvite(ctx, "p2", "Two", token); !errors.Is(err, errors.ErrCodeAlreadyExists) {
				t.Errorf("second AcceptInvite() error = %v, want ALREADY_EXISTS", err)
			}
			assertIndexConsistent(t, env.svc, "owner", "p2")
		})
	}
}

func TestInvite_Rules(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.mustCreate(t, "owner", "Alpha")
	env.mustCreate(t, "other", "Beta")
	joinIsland(t, env, "owner", "w1", models.RoleWorker)

	tests := []struct {
		name     string
		inviter  string
		target   string
		role     models.Role
		wantCode string
	}{
		{"owner role", "owner", "p9", models.RoleOwner, errors.ErrCodeValidationFailed},
		{"self", "owner", "owner", models.RoleMember, errors.ErrCodeValidationFailed},
		{"target has island", "owner", "other", models.RoleMember, errors.ErrCodeAlreadyExists},
		{"worker cannot invite", "w1", "p9", models.RoleMember, errors.ErrCodeForbidden},
		{"inviter has no island", "nobody", "p9", models.RoleMember, errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Invite(ctx, tt.inviter, tt.target, tt.role)
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("Invite() error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestAcceptInvite_Rejections(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	alpha := env.mustCreate(t, "owner", "Alpha")

	token, err := env.svc.Invite(ctx, "owner", "p2", models.RoleWorker)
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}

	if _, err := env.svc.AcceptInvite(ctx, "p3", "Three", token); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("AcceptInvite() by another player error = %v, want FORBIDDEN", err)
	}
	if _, err := env.svc.AcceptInvite(ctx, "p2", "Two", "garbage"); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("AcceptInvite() with garbage error = %v, want FORBIDDEN", err)
	}

	current, _ := env.svc.LoadIsland(ctx, alpha.ID())
	if _, err := env.svc.UpdateIsland(ctx, current.RemoveInvite("p2")); err != nil {
		t.Fatalf("UpdateIsland() error = %v", err)
	}
	if _, err := env.svc.AcceptInvite(ctx, "p2", "Two", token); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("AcceptInvite() of revoked invite error = %v, want FORBIDDEN", err)
	}

	token, _ = env.svc.Invite(ctx, "owner", "p2", models.RoleWorker)
	env.clock.Advance(2 * time.Hour)
	if _, err := env.svc.AcceptInvite(ctx, "p2", "Two", token); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("AcceptInvite() of expired invite error = %v, want FORBIDDEN", err)
	}
	if env.svc.GetPlayerMembership(ctx, "p2").HasIsland() {
		t.Error("rejected accept changed the membership")
	}
}

func TestInvite_MemberLimit(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.mustCreate(t, "owner", "Alpha")

	for _, playerID := range []string{"m1", "m2", "m3", "m4"} {
		joinIsland(t, env, "owner", playerID, models.RoleMember)
	}
	if _, err := env.svc.Invite(ctx, "owner", "m5", models.RoleMember); !errors.Is(err, errors.ErrCodeLimitReached) {
		t.Errorf("Invite() past member limit error = %v, want LIMIT_REACHED", err)
	}
	if _, err := env.svc.Invite(ctx, "owner", "w1", models.RoleWorker); err != nil {
		t.Errorf("Invite() of worker error = %v", err)
	}
}

func TestLeave(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alpha := env.mustCreate(t, "owner", "Alpha")
	joinIsland(t, env, "owner", "m1", models.RoleMember)

	if _, err := env.svc.AddContribution(ctx, alpha.ID(), "m1", 75); err != nil {
		t.Fatalf("AddContribution() error = %v", err)
	}

	if err := env.svc.Leave(ctx, "owner"); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("Leave() by owner error = %v, want FORBIDDEN", err)
	}
	if err := env.svc.Leave(ctx, "m1"); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if err := env.svc.Leave(ctx, "m1"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("second Leave() error = %v, want NOT_FOUND", err)
	}

	if _, err := env.svc.GetPlayerIsland(ctx, "m1"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("GetPlayerIsland(m1) error = %v, want NOT_FOUND", err)
	}
	current, _ := env.svc.LoadIsland(ctx, alpha.ID())
	if v, ok := current.Contribution("m1"); !ok || v != 75 {
		t.Errorf("Contribution(m1) after leave = %d, %v; want 75, true", v, ok)
	}
	if rec, ok := env.store.LoadPlayerMembership(ctx, "m1"); !ok || rec.CurrentIslandID != "" || rec.TotalContribution != 75 {
		t.Errorf("stored membership = %+v, %v", rec, ok)
	}
	assertIndexConsistent(t, env.svc, "owner", "m1")
}

func TestKick(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.mustCreate(t, "owner", "Alpha")
	joinIsland(t, env, "owner", "co", models.RoleMember)
	joinIsland(t, env, "owner", "co2", models.RoleMember)
	joinIsland(t, env, "owner", "m1", models.RoleMember)
	joinIsland(t, env, "owner", "w1", models.RoleWorker)

	for _, playerID := range []string{"co", "co2"} {
		if _, err := env.svc.SetCoOwner(ctx, "owner", playerID, true); err != nil {
			t.Fatalf("SetCoOwner(%s) error = %v", playerID, err)
		}
	}

	tests := []struct {
		name      string
		requester string
		target    string
		wantCode  string
	}{
		{"member cannot kick", "m1", "w1", errors.ErrCodeForbidden},
		{"nobody kicks the owner", "co", "owner", errors.ErrCodeForbidden},
		{"co-owner cannot kick co-owner", "co", "co2", errors.ErrCodeForbidden},
		{"stranger", "co", "stranger", errors.ErrCodeNotFound},
		{"co-owner kicks worker", "co", "w1", ""},
		{"owner kicks co-owner", "owner", "co2", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.svc.Kick(ctx, tt.requester, tt.target)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Kick() error = %v", err)
				}
				if env.svc.GetPlayerMembership(ctx, tt.target).HasIsland() {
					t.Errorf("%s still has an island", tt.target)
				}
				return
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("Kick() error = %v, want %s", err, tt.wantCode)
			}
		})
	}
	assertIndexConsistent(t, env.svc, "owner", "co", "co2", "m1", "w1")
}

func TestSetCoOwner(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.mustCreate(t, "owner", "Alpha")
	joinIsland(t, env, "owner", "m1", models.RoleMember)
	joinIsland(t, env, "owner", "w1", models.RoleWorker)

	promoted, err := env.svc.SetCoOwner(ctx, "owner", "m1", true)
	if err != nil {
		t.Fatalf("SetCoOwner() error = %v", err)
	}
	if promoted.RoleOf("m1") != models.RoleCoOwner {
		t.Errorf("RoleOf(m1) = %q, want CO_OWNER", promoted.RoleOf("m1"))
	}
	if env.svc.GetPlayerMembership(ctx, "m1").Role() != models.RoleCoOwner {
		t.Error("membership role not updated")
	}

	if _, err := env.svc.SetCoOwner(ctx, "m1", "owner", true); !errors.Is(err, errors.ErrCodeForbidden) {
		t.Errorf("SetCoOwner() by co-owner error = %v, want FORBIDDEN", err)
	}
	if _, err := env.svc.SetCoOwner(ctx, "owner", "w1", true); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("SetCoOwner() on worker error = %v, want NOT_FOUND", err)
	}

	demoted, err := env.svc.SetCoOwner(ctx, "owner", "m1", false)
	if err != nil || demoted.RoleOf("m1") != models.RoleMember {
		t.Errorf("demote = %v, %v", demoted, err)
	}
	if env.svc.GetPlayerMembership(ctx, "m1").Role() != models.RoleMember {
		t.Error("membership role not demoted")
	}
}
