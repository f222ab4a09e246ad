package models

import "time"

// ReferralCode: one shareable code per inviter.
type ReferralCode struct {
	UserID  string `gorm:"primaryKey" json:"user_id"`
	Code    string `gorm:"uniqueIndex;not null" json:"code"`
	Clicks  int64  `gorm:"default:0" json:"clicks"`
	Signups int64  `gorm:"default:0" json:"signups"`

	Timestamps
}

// ReferralClaim: the referee is the primary key, so each new user can credit
// at most one inviter ever, no matter how often the attribution token is
// replayed.
type ReferralClaim struct {
	RefereeID  string    `gorm:"primaryKey" json:"referee_id"`
	ReferrerID string    `gorm:"index;not null" json:"referrer_id"`
	CodeUsed   string    `gorm:"not null" json:"code_used"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
