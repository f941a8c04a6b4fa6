package island

import (
	"testing"

	"github.com/mroshb/islands/internal/models"
)

func TestMembership_JoinLeave(t *testing.T) {
	m := NewMembership("p1")
	if m.HasIsland() {
		t.Fatal("new membership should have no island")
	}

	joined := m.Join("isl-1", models.RoleMember, epoch)
	if !joined.HasIsland() || joined.IslandID() != "isl-1" || joined.Role() != models.RoleMember {
		t.Errorf("Join() = %+v", joined.Record())
	}
	if m.HasIsland() {
		t.Error("Join modified the original membership")
	}

	left := joined.Leave(epoch)
	if left.HasIsland() || left.Role() != models.RoleNone {
		t.Errorf("Leave() = %+v", left.Record())
	}
	if err := left.Record().BeforeSave(nil); err != nil {
		t.Errorf("left membership fails validation: %v", err)
	}
}

func TestMembership_ResetIsSpentOnce(t *testing.T) {
	m := NewMembership("p1").Join("isl-1", models.RoleOwner, epoch)
	if !m.CanReset() {
		t.Fatal("fresh player should be able to reset")
	}

	m = m.RecordReset(epoch)
	if m.CanReset() {
		t.Error("reset should be spent")
	}
	m = m.RecordReset(epoch)
	if m.TotalResets() != models.MaxIslandResets {
		t.Errorf("TotalResets() = %d, want %d", m.TotalResets(), models.MaxIslandResets)
	}
}

func TestMembership_AddContribution(t *testing.T) {
	m := NewMembership("p1").AddContribution(25, epoch).AddContribution(5, epoch)
	if m.TotalContribution() != 30 {
		t.Errorf("TotalContribution() = %d, want 30", m.TotalContribution())
	}
}
