package models

import (
	"time"
)

// Badge rule kinds. Each badge carries exactly one declarative threshold;
// adding a new kind means a new case in the evaluator's dispatcher, never a
// change to existing rules.
const (
	RuleMinCheckins       = "min_checkins"        // distinct restaurants stamped
	RuleMinDistinctCities = "min_distinct_cities" // distinct cities among stamps
	RuleMinTaggedStamps   = "min_tagged_stamps"   // stamps at restaurants carrying Tag
)

// BadgeRule is the declarative threshold stored on a badge.
type BadgeRule struct {
	Kind   string `json:"kind"`
	Target int64  `json:"target"`
	Tag    string `json:"tag,omitempty"` // only for min_tagged_stamps
}

// Badge: static catalog entry (admin-managed, read-only for the engine)
type Badge struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"` // e.g., "first-bite", "city-hopper"
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IconURL     string    `gorm:"type:text" json:"icon_url"`
	Rarity      string    `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Rule        BadgeRule `gorm:"type:jsonb;serializer:json" json:"rule"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge: awarded instance. The composite unique index makes every grant
// at-most-once regardless of how often the evaluator runs.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:ux_user_badge,priority:1" json:"user_id"`
	BadgeID   string    `gorm:"not null;uniqueIndex:ux_user_badge,priority:2" json:"badge_id"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// DefaultBadges seed the catalog on first boot (admins extend via CRUD).
var DefaultBadges = []Badge{
	{
		Slug:        "first-bite",
		Name:        "First Bite",
		Description: "Checked in at your first restaurant",
		Rarity:      "common",
		Rule:        BadgeRule{Kind: RuleMinCheckins, Target: 1},
	},
	{
		Slug:        "regular",
		Name:        "The Regular",
		Description: "Stamped 10 different restaurants",
		Rarity:      "rare",
		Rule:        BadgeRule{Kind: RuleMinCheckins, Target: 10},
	},
	{
		Slug:        "city-hopper",
		Name:        "City Hopper",
		Description: "Ate your way through 3 different cities",
		Rarity:      "rare",
		Rule:        BadgeRule{Kind: RuleMinDistinctCities, Target: 3},
	},
	{
		Slug:        "ramen-head",
		Name:        "Ramen Head",
		Description: "Stamped 5 ramen spots",
		Rarity:      "epic",
		Rule:        BadgeRule{Kind: RuleMinTaggedStamps, Tag: "ramen", Target: 5},
	},
}
