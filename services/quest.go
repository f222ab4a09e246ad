package services

import (
	"log"
	"time"

	"tastetrail-rewards-system/models"

	"gorm.io/gorm"
)

type QuestService struct {
	DB *gorm.DB
	XP *XPService
}

func NewQuestService(db *gorm.DB, xp *XPService) *QuestService {
	return &QuestService{DB: db, XP: xp}
}

// Bump is triggered by a reward-producing event of the given kind. It first
// enrolls the user in every active quest matching the kind, then advances
// all of the user's active matching quests by one, completing those that
// reach their target in the same statement. Both steps are set-based, so any
// number of matching quests stays correct without per-row loops.
func (s *QuestService) Bump(tx *gorm.DB, userID, kind string) ([]models.UserQuest, error) {
	now := time.Now()

	if err := tx.Exec(`
		INSERT INTO user_quests (user_id, quest_id, progress, status, created_at, updated_at)
		SELECT ?, id, 0, 'active', ?, ?
		FROM quests
		WHERE kind = ? AND active = ?
		ON CONFLICT (user_id, quest_id) DO NOTHING`,
		userID, now, now, kind, true).Error; err != nil {
		return nil, err
	}

	if err := tx.Exec(`
		UPDATE user_quests SET
			progress = progress + 1,
			status = CASE
				WHEN progress + 1 >= (SELECT target FROM quests WHERE quests.id = user_quests.quest_id)
				THEN 'completed' ELSE 'active'
			END,
			updated_at = ?
		WHERE user_id = ?
			AND status = 'active'
			AND quest_id IN (SELECT id FROM quests WHERE kind = ? AND active = ?)`,
		now, userID, kind, true).Error; err != nil {
		return nil, err
	}

	var progress []models.UserQuest
	if err := tx.Preload("Quest").
		Joins("INNER JOIN quests ON quests.id = user_quests.quest_id").
		Where("user_quests.user_id = ? AND quests.kind = ?", userID, kind).
		Find(&progress).Error; err != nil {
		return nil, err
	}

	// Quest completion payouts. AwardOnce is gated per quest, so quests that
	// completed on an earlier bump pay nothing here.
	for _, uq := range progress {
		if uq.Status != models.QuestStatusCompleted || uq.Quest == nil || uq.Quest.XPReward <= 0 {
			continue
		}
		res, err := s.XP.AwardOnce(tx, userID, models.XpEventQuest, uq.Quest.XPReward, "quest", uq.QuestID)
		if err != nil {
			return nil, err
		}
		if res.Awarded {
			log.Printf("🗺️ Quest completed: %s → %s (+%d XP)", uq.Quest.Slug, userID, uq.Quest.XPReward)
		}
	}

	return progress, nil
}

// QuestsOf lists a user's quest enrollments with catalog entries.
func (s *QuestService) QuestsOf(userID string) ([]models.UserQuest, error) {
	var out []models.UserQuest
	err := s.DB.Preload("Quest").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}
