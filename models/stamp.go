package models

import "time"

// RestaurantStamp is the canonical "first visit" fact for a (user, restaurant)
// pair. Created once, immutable afterwards; every first-time-only reward is
// gated on whether this row was just inserted.
type RestaurantStamp struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"not null;uniqueIndex:ux_stamp_user_restaurant,priority:1" json:"user_id"`
	RestaurantID   string    `gorm:"not null;uniqueIndex:ux_stamp_user_restaurant,priority:2" json:"restaurant_id"`
	FirstStampedAt time.Time `gorm:"autoCreateTime" json:"first_stamped_at"`
}

// XpEvent is the append-only award log. The composite unique index on
// (user_id, type, ref_type, ref_id) is what makes every logical cause pay out
// at most once: the event insert is attempted first, and XP is only added to
// the profile when that insert actually lands.
type XpEvent struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:ux_xp_event_cause,priority:1" json:"user_id"`
	Type      string    `gorm:"not null;uniqueIndex:ux_xp_event_cause,priority:2" json:"type"`
	Points    int64     `gorm:"not null" json:"points"`
	RefType   string    `gorm:"not null;uniqueIndex:ux_xp_event_cause,priority:3" json:"ref_type"`
	RefID     string    `gorm:"not null;uniqueIndex:ux_xp_event_cause,priority:4" json:"ref_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// XP event types
const (
	XpEventCheckin    = "checkin"
	XpEventFirstVisit = "first_visit"
	XpEventDropClaim  = "drop_claim"
	XpEventTrailStep  = "trail_step"
	XpEventTrailBonus = "trail_bonus"
	XpEventVideoLike  = "video_like"
	XpEventQuest      = "quest"
	XpEventReferral   = "referral"
	XpEventAdminGrant = "admin_grant"
)
