package models

import "time"

// Video: an entry in the video feed, attached to a restaurant.
type Video struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	RestaurantID string `gorm:"index;not null" json:"restaurant_id"`
	Title        string `json:"title"`
	PlaybackURL  string `gorm:"type:text" json:"playback_url"`

	Timestamps
}

// VideoLike: composite key makes like/unlike a pure insert/delete toggle.
type VideoLike struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	VideoID   string    `gorm:"primaryKey" json:"video_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
