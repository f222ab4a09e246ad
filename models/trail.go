package models

import "time"

// Trail: an ordered list of restaurants to visit. Completing every step pays
// a one-time bonus and optionally grants a badge.
type Trail struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string  `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	BadgeID     *string `gorm:"index" json:"badge_id,omitempty"`
	BonusXP     int64   `gorm:"default:0" json:"bonus_xp"`
	Active      bool    `gorm:"default:true" json:"active"`

	Timestamps

	Steps []TrailStep `gorm:"foreignKey:TrailID" json:"steps,omitempty"`
}

type TrailStep struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	TrailID      string `gorm:"not null;uniqueIndex:ux_trail_step_position,priority:1" json:"trail_id"`
	RestaurantID string `gorm:"index;not null" json:"restaurant_id"`
	Position     int    `gorm:"not null;uniqueIndex:ux_trail_step_position,priority:2" json:"position"`
	Title        string `json:"title"`
}

// TrailStepCompletion: insert-once per (user, step). TrailID is denormalized
// so the per-trail completion count is a single filtered count.
type TrailStepCompletion struct {
	UserID      string    `gorm:"primaryKey" json:"user_id"`
	StepID      string    `gorm:"primaryKey" json:"step_id"`
	TrailID     string    `gorm:"index;not null" json:"trail_id"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

// TrailCompletion gates the one-time trail bonus.
type TrailCompletion struct {
	UserID      string    `gorm:"primaryKey" json:"user_id"`
	TrailID     string    `gorm:"primaryKey" json:"trail_id"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}
