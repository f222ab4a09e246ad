package models

import "time"

// DailyDrop is a limited-capacity, time-boxed offer at a restaurant.
// Admin-managed; the claim coordinator reads it and uses its row as the
// serialization point for competing claims.
type DailyDrop struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	RestaurantID string     `gorm:"index;not null" json:"restaurant_id"`
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `json:"description"`
	ImageURL     string     `gorm:"type:text" json:"image_url"`
	StartsAt     time.Time  `gorm:"not null" json:"starts_at"`
	EndsAt       time.Time  `gorm:"not null" json:"ends_at"`
	Capacity     int        `gorm:"not null;default:0" json:"capacity"`
	IsPublished  bool       `gorm:"default:false" json:"is_published"`
	PublishAt    *time.Time `gorm:"index" json:"publish_at,omitempty"` // scheduler flips IsPublished at this time

	Timestamps
}

// DailyDropClaim: one slot taken. The composite primary key makes re-claiming
// a no-op; the row count per drop must never exceed the drop's capacity.
type DailyDropClaim struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	DropID    string    `gorm:"primaryKey" json:"drop_id"`
	ClaimedAt time.Time `gorm:"autoCreateTime" json:"claimed_at"`
}
