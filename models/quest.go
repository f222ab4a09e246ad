package models

import "time"

// Quest kinds: the event category that enrolls and advances a quest.
const (
	QuestKindCheckin   = "checkin"
	QuestKindDropClaim = "drop_claim"
	QuestKindTrailStep = "trail_step"
	QuestKindVideoLike = "video_like"
)

// Quest: catalog entity (admin-managed, read-only for the engine)
type Quest struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name      string    `gorm:"not null" json:"name"`
	Kind      string    `gorm:"index;not null" json:"kind"`
	Target    int64     `gorm:"not null" json:"target"`
	XPReward  int64     `gorm:"default:0" json:"xp_reward"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserQuest statuses. Progress never decreases and a completed quest is
// frozen — status never regresses.
const (
	QuestStatusActive    = "active"
	QuestStatusCompleted = "completed"
)

// UserQuest: per-user enrollment and progress. Composite primary key keeps
// the set-based enroll (INSERT ... SELECT ... ON CONFLICT DO NOTHING)
// portable — no per-row ID generation needed in SQL.
type UserQuest struct {
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	QuestID   string    `gorm:"primaryKey" json:"quest_id"`
	Progress  int64     `gorm:"default:0" json:"progress"`
	Status    string    `gorm:"type:varchar(16);default:'active'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Quest *Quest `gorm:"foreignKey:QuestID" json:"quest,omitempty"`
}
