package models

import (
	"time"

	"gorm.io/gorm"
)

// DinerUser is a local snapshot of diner profile data. Owned solely by this
// service; populated by the sync worker from the profile service. Used for
// display (claim lists, referral stats), never for auth decisions.
type DinerUser struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string  `gorm:"index;not null" json:"username"`
	Email          string  `json:"email,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
	HomeCity       *string `json:"home_city,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	LastSeen *time.Time `json:"last_seen,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
