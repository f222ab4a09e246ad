package models

import "time"

// IdempotencyKey is a write-once marker for client-supplied request tokens.
// If the key is already present when an operation starts, the request is a
// replay and the operation must report current state instead of re-applying
// effects.
type IdempotencyKey struct {
	Key       string    `gorm:"primaryKey;type:varchar(128)" json:"key"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
