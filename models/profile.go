package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile tracks gamified progression for each diner (denormalized for performance).
// Created lazily on the first reward-producing action; XP and level are only
// ever written by the XP ledger, check-in counters only by the check-in flow.
type UserProfile struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // links to profile service

	// Core progression. Invariant: level == xp/100 + 1 (integer division).
	XP    int64 `gorm:"column:xp;default:0" json:"xp"`
	Level int   `gorm:"default:1" json:"level"`
	Rank  int   `gorm:"default:1" json:"rank"` // e.g., Taster(1)→Regular(2)→Local(3)→Gourmand(4)→Legend(5)

	// Check-in counters
	TotalCheckins   int64   `gorm:"default:0" json:"total_checkins"`
	StreakCheckins  int64   `gorm:"default:0" json:"streak_checkins"`
	LastCheckinDate *string `gorm:"type:varchar(10)" json:"last_checkin_date,omitempty"` // YYYY-MM-DD

	// Referral counters (inviter side)
	ReferralSignups int64 `gorm:"default:0" json:"referral_signups"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
