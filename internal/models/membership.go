package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxIslandResets is the lifetime number of resets a player may perform.
const MaxIslandResets = 1

type PlayerMembership struct {
	PlayerID          string    `gorm:"primaryKey;type:varchar(64)"`
	CurrentIslandID   string    `gorm:"type:varchar(64);index"` // empty when the player has no island
	Role              Role      `gorm:"type:varchar(20)"`
	TotalIslandResets int       `gorm:"default:0;not null"`
	TotalContribution int64     `gorm:"default:0;not null"`
	LastJoined        time.Time
	LastActivity      time.Time
}

func (PlayerMembership) TableName() string {
	return "player_memberships"
}

// BeforeSave hook for validation
func (m *PlayerMembership) BeforeSave(tx *gorm.DB) error {
	if m.PlayerID == "" {
		return gorm.ErrInvalidData
	}
	if !m.Role.Valid() {
		return gorm.ErrInvalidData
	}
	if (m.CurrentIslandID == "") != (m.Role == RoleNone) {
		return gorm.ErrInvalidData
	}
	return nil
}

func (m *PlayerMembership) Clone() *PlayerMembership {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
