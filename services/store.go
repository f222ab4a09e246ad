package services

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertIfAbsent creates the row unless one matching its primary key or a
// unique index already exists. Returns true when this call inserted the row.
// This is the engine's primary idempotency tool: every "exactly once" effect
// is gated on the boolean it returns.
func insertIfAbsent(tx *gorm.DB, value interface{}) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// leaseForUpdate turns the next query into an exclusive row lease for the
// duration of the surrounding transaction. Competing claimants for the same
// row serialize here; rows not selected stay fully concurrent. SQLite (used
// in tests) has a single writer, so the transaction itself is the lease there.
func leaseForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// dbNow returns the store's current time so that time-window checks never
// trust a caller-supplied clock. Falls back to the process clock on dialects
// without a server-side now().
func dbNow(tx *gorm.DB) time.Time {
	if tx.Dialector.Name() == "postgres" {
		var now time.Time
		if err := tx.Raw("SELECT now()").Scan(&now).Error; err == nil && !now.IsZero() {
			return now
		}
	}
	return time.Now()
}
