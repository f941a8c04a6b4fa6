package models

import (
	"maps"
	"time"

	"gorm.io/gorm"
)

// Role is a player's relationship to an island.
type Role string

// Role constants
const (
	RoleNone    Role = ""
	RoleOwner   Role = "OWNER"
	RoleCoOwner Role = "CO_OWNER"
	RoleMember  Role = "MEMBER"
	RoleWorker  Role = "WORKER"
	RoleVisitor Role = "VISITOR"
)

func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleOwner, RoleCoOwner, RoleMember, RoleWorker, RoleVisitor:
		return true
	}
	return false
}

// Capability is a single permission bit granted to a role.
type Capability string

const (
	CapBuild      Capability = "BUILD"
	CapBreak      Capability = "BREAK"
	CapContainers Capability = "CONTAINERS"
	CapInvite     Capability = "INVITE"
	CapKick       Capability = "KICK"
	CapSetSpawn   Capability = "SET_SPAWN"
	CapUpgrade    Capability = "UPGRADE"
	CapSettings   Capability = "SETTINGS"
)

type Permissions map[Role][]Capability

// DefaultPermissions returns a fresh copy of the starter permission table.
func DefaultPermissions() Permissions {
	return Permissions{
		RoleOwner:   {CapBuild, CapBreak, CapContainers, CapInvite, CapKick, CapSetSpawn, CapUpgrade, CapSettings},
		RoleCoOwner: {CapBuild, CapBreak, CapContainers, CapInvite, CapKick, CapSetSpawn, CapUpgrade},
		RoleMember:  {CapBuild, CapBreak, CapContainers, CapSetSpawn},
		RoleWorker:  {CapBuild, CapBreak},
		RoleVisitor: {},
	}
}

type Member struct {
	PlayerID  string    `json:"player_id"`
	Name      string    `json:"name"`
	IsCoOwner bool      `json:"is_co_owner"`
	JoinedAt  time.Time `json:"joined_at"`
}

type Worker struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	AddedAt  time.Time `json:"added_at"`
}

type SpawnData struct {
	Default  Location            `json:"default"`
	Personal map[string]Location `json:"personal,omitempty"`
}

type UpgradeData struct {
	SizeLevel   int `json:"size_level"`
	MemberLevel int `json:"member_level"`
	WorkerLevel int `json:"worker_level"`
	MemberLimit int `json:"member_limit"`
	WorkerLimit int `json:"worker_limit"`
}

type Invite struct {
	PlayerID  string    `json:"player_id"`
	InvitedBy string    `json:"invited_by"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Visit struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	At       time.Time `json:"at"`
}

type Settings struct {
	Color       string `json:"color"`
	Biome       string `json:"biome"`
	Description string `json:"description,omitempty"`
}

// Island is the persisted island record. Values are treated as immutable once
// published: callers Clone, modify the copy, and publish the copy.
type Island struct {
	ID                  string           `gorm:"primaryKey;type:varchar(64)"`
	OwnerID             string           `gorm:"type:varchar(64);not null;index"`
	OwnerName           string           `gorm:"type:varchar(64)"`
	Name                string           `gorm:"type:varchar(64);not null"`
	Size                int              `gorm:"not null"`
	IsPublic            bool             `gorm:"default:false;index"`
	CreatedAt           time.Time        `gorm:"not null"`
	LastActivity        time.Time        `gorm:"index"`
	Members             []Member         `gorm:"type:text;serializer:json"`
	Workers             []Worker         `gorm:"type:text;serializer:json"`
	Contributions       map[string]int64 `gorm:"type:text;serializer:json"`
	Spawn               SpawnData        `gorm:"type:text;serializer:json"`
	Upgrades            UpgradeData      `gorm:"type:text;serializer:json"`
	Permissions         Permissions      `gorm:"type:text;serializer:json"`
	PendingInvites      []Invite         `gorm:"type:text;serializer:json"`
	RecentVisits        []Visit          `gorm:"type:text;serializer:json"`
	TotalResets         int              `gorm:"default:0;not null"`
	DeletionScheduledAt *time.Time
	Settings            Settings `gorm:"type:text;serializer:json"`
}

func (Island) TableName() string {
	return "islands"
}

// BeforeSave hook for validation
func (i *Island) BeforeSave(tx *gorm.DB) error {
	if i.ID == "" || i.OwnerID == "" {
		return gorm.ErrInvalidData
	}
	if i.Size <= 0 {
		return gorm.ErrInvalidData
	}
	return nil
}

// Clone returns a deep copy of the record.
func (i *Island) Clone() *Island {
	if i == nil {
		return nil
	}
	c := *i
	c.Members = append([]Member(nil), i.Members...)
	c.Workers = append([]Worker(nil), i.Workers...)
	c.Contributions = maps.Clone(i.Contributions)
	c.Spawn.Personal = maps.Clone(i.Spawn.Personal)
	c.PendingInvites = append([]Invite(nil), i.PendingInvites...)
	c.RecentVisits = append([]Visit(nil), i.RecentVisits...)
	if i.Permissions != nil {
		c.Permissions = make(Permissions, len(i.Permissions))
		for role, caps := range i.Permissions {
			c.Permissions[role] = append([]Capability(nil), caps...)
		}
	}
	if i.DeletionScheduledAt != nil {
		at := *i.DeletionScheduledAt
		c.DeletionScheduledAt = &at
	}
	return &c
}

// PlayerIDs returns the owner followed by every member and worker.
func (i *Island) PlayerIDs() []string {
	ids := make([]string, 0, 1+len(i.Members)+len(i.Workers))
	ids = append(ids, i.OwnerID)
	for _, m := range i.Members {
		ids = append(ids, m.PlayerID)
	}
	for _, w := range i.Workers {
		ids = append(ids, w.PlayerID)
	}
	return ids
}

// RoleOf reports the role a player holds on this island.
func (i *Island) RoleOf(playerID string) Role {
	if playerID == i.OwnerID {
		return RoleOwner
	}
	for _, m := range i.Members {
		if m.PlayerID == playerID {
			if m.IsCoOwner {
				return RoleCoOwner
			}
			return RoleMember
		}
	}
	for _, w := range i.Workers {
		if w.PlayerID == playerID {
			return RoleWorker
		}
	}
	return RoleNone
}

// ContributionTotal sums the contribution ledger.
func (i *Island) ContributionTotal() int64 {
	var total int64
	for _, v := range i.Contributions {
		total += v
	}
	return total
}
