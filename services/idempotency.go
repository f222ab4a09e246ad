package services

import (
	"log"

	"tastetrail-rewards-system/models"

	"gorm.io/gorm"
)

type IdempotencyService struct {
	DB *gorm.DB
}

func NewIdempotencyService(db *gorm.DB) *IdempotencyService {
	return &IdempotencyService{DB: db}
}

// Consume records the key if it was never seen. Returns false when the key
// was already consumed — the caller must short-circuit and report current
// state instead of re-applying effects. An empty key means the client opted
// out of replay protection.
//
// Runs in a savepoint inside the caller's transaction: if the key store is
// unreachable the savepoint rolls back and the call reports "first use", so
// replay protection degrades to best-effort rather than blocking the primary
// operation.
func (s *IdempotencyService) Consume(tx *gorm.DB, key, userID string) bool {
	if key == "" {
		return true
	}
	inserted := true
	err := tx.Transaction(func(stx *gorm.DB) error {
		ok, err := insertIfAbsent(stx, &models.IdempotencyKey{Key: key, UserID: userID})
		if err != nil {
			return err
		}
		inserted = ok
		return nil
	})
	if err != nil {
		log.Printf("⚠️ [IDEMPOTENCY] key store unavailable, proceeding without replay protection: %v", err)
		return true
	}
	return inserted
}
