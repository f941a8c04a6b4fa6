package island

import (
	"time"

	"github.com/mroshb/islands/internal/models"
)

// Membership wraps one player's island affiliation and reset eligibility.
type Membership struct {
	record *models.PlayerMembership
}

// NewMembership returns a membership for a player with no island.
func NewMembership(playerID string) *Membership {
	return &Membership{record: &models.PlayerMembership{PlayerID: playerID}}
}

func MembershipFromRecord(record *models.PlayerMembership) *Membership {
	if record == nil {
		return nil
	}
	return &Membership{record: record}
}

func (m *Membership) Record() *models.PlayerMembership {
	return m.record.Clone()
}

func (m *Membership) PlayerID() string         { return m.record.PlayerID }
func (m *Membership) IslandID() string         { return m.record.CurrentIslandID }
func (m *Membership) Role() models.Role        { return m.record.Role }
func (m *Membership) HasIsland() bool          { return m.record.CurrentIslandID != "" }
func (m *Membership) TotalResets() int         { return m.record.TotalIslandResets }
func (m *Membership) TotalContribution() int64 { return m.record.TotalContribution }

// CanReset reports whether the player still has their lifetime reset.
func (m *Membership) CanReset() bool {
	return m.record.TotalIslandResets < models.MaxIslandResets
}

func (m *Membership) with(fn func(r *models.PlayerMembership)) *Membership {
	next := m.record.Clone()
	fn(next)
	return &Membership{record: next}
}

// Join moves the player onto an island with the given role.
func (m *Membership) Join(islandID string, role models.Role, now time.Time) *Membership {
	return m.with(func(r *models.PlayerMembership) {
		r.CurrentIslandID = islandID
		r.Role = role
		r.LastJoined = now
		r.LastActivity = now
	})
}

// Leave clears the player's island affiliation.
func (m *Membership) Leave(now time.Time) *Membership {
	return m.with(func(r *models.PlayerMembership) {
		r.CurrentIslandID = ""
		r.Role = models.RoleNone
		r.LastActivity = now
	})
}

// WithRole changes the role on the current island.
func (m *Membership) WithRole(role models.Role) *Membership {
	return m.with(func(r *models.PlayerMembership) {
		r.Role = role
	})
}

// RecordReset spends the player's reset. The counter never exceeds MaxIslandResets.
func (m *Membership) RecordReset(now time.Time) *Membership {
	return m.with(func(r *models.PlayerMembership) {
		if r.TotalIslandResets < models.MaxIslandResets {
			r.TotalIslandResets++
		}
		r.LastActivity = now
	})
}

func (m *Membership) AddContribution(amount int64, now time.Time) *Membership {
	return m.with(func(r *models.PlayerMembership) {
		r.TotalContribution += amount
		r.LastActivity = now
	})
}
