package services

import (
	"errors"
	"log"

	"tastetrail-rewards-system/models"

	"gorm.io/gorm"
)

type TrailService struct {
	DB     *gorm.DB
	Idem   *IdempotencyService
	Stamps *StampService
	XP     *XPService
	Badges *BadgeService
	Quests *QuestService
}

func NewTrailService(db *gorm.DB, idem *IdempotencyService, stamps *StampService, xp *XPService, badges *BadgeService, quests *QuestService) *TrailService {
	return &TrailService{DB: db, Idem: idem, Stamps: stamps, XP: xp, Badges: badges, Quests: quests}
}

type TrailStepResult struct {
	StepCompleted      bool           `json:"step_completed"`
	TrailJustCompleted bool           `json:"trail_just_completed"`
	Replayed           bool           `json:"replayed,omitempty"`
	StepsDone          int64          `json:"steps_done"`
	StepsTotal         int64          `json:"steps_total"`
	BonusXP            int64          `json:"bonus_xp,omitempty"`
	TrailBadge         *models.Badge  `json:"trail_badge,omitempty"`
	BadgesAwarded      []models.Badge `json:"badges_awarded,omitempty"`
}

// CompleteStep marks one step of a trail done. The completion insert is the
// gate: a repeat attempt on an already-completed step is rejected with
// ErrAlreadyCompleted. When the user's completion count first reaches the
// trail's step count, an insert-if-absent TrailCompletion row gates the
// one-time trail bonus.
func (s *TrailService) CompleteStep(userID, trailRef, stepID, idemKey string) (*TrailStepResult, error) {
	res := &TrailStepResult{}
	var step models.TrailStep
	var trail models.Trail
	var firstStamp bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? OR slug = ?", trailRef, trailRef).First(&trail).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !trail.Active {
			return ErrNotAvailable
		}
		if err := tx.Where("id = ? AND trail_id = ?", stepID, trail.ID).First(&step).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if !s.Idem.Consume(tx, idemKey, userID) {
			res.Replayed = true
			return s.report(tx, userID, &trail, res)
		}

		inserted, err := insertIfAbsent(tx, &models.TrailStepCompletion{
			UserID:  userID,
			StepID:  step.ID,
			TrailID: trail.ID,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlreadyCompleted
		}
		res.StepCompleted = true

		firstStamp, err = s.Stamps.EnsureStamp(tx, userID, step.RestaurantID)
		if err != nil {
			return err
		}

		if err := s.report(tx, userID, &trail, res); err != nil {
			return err
		}

		if res.StepsTotal > 0 && res.StepsDone == res.StepsTotal {
			first, err := insertIfAbsent(tx, &models.TrailCompletion{UserID: userID, TrailID: trail.ID})
			if err != nil {
				return err
			}
			res.TrailJustCompleted = first
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return res, nil
	}

	s.cascade(userID, &trail, &step, firstStamp, res)
	return res, nil
}

// report fills the per-trail progress counters.
func (s *TrailService) report(tx *gorm.DB, userID string, trail *models.Trail, res *TrailStepResult) error {
	if err := tx.Model(&models.TrailStep{}).
		Where("trail_id = ?", trail.ID).
		Count(&res.StepsTotal).Error; err != nil {
		return err
	}
	return tx.Model(&models.TrailStepCompletion{}).
		Where("user_id = ? AND trail_id = ?", userID, trail.ID).
		Count(&res.StepsDone).Error
}

// cascade pays the per-step rewards and, when the trail just completed, the
// one-time bonus and optional trail badge, then sweeps the general badge
// rules. Everything is insert-if-absent gated; failures are logged, never
// rolled back into the completion.
func (s *TrailService) cascade(userID string, trail *models.Trail, step *models.TrailStep, firstStamp bool, res *TrailStepResult) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.XP.AwardOnce(tx, userID, models.XpEventTrailStep, DefaultXPWeights.TrailStepXP, "trail_step", step.ID); err != nil {
			return err
		}
		if firstStamp {
			if _, err := s.XP.AwardOnce(tx, userID, models.XpEventFirstVisit, DefaultXPWeights.FirstVisitXP, "restaurant", step.RestaurantID); err != nil {
				return err
			}
		}

		if res.TrailJustCompleted {
			bonus := trail.BonusXP
			if bonus <= 0 {
				bonus = DefaultXPWeights.TrailBonusXP
			}
			if _, err := s.XP.AwardOnce(tx, userID, models.XpEventTrailBonus, bonus, "trail", trail.ID); err != nil {
				return err
			}
			res.BonusXP = bonus

			if trail.BadgeID != nil {
				badge, err := s.Badges.GrantByID(tx, userID, *trail.BadgeID)
				if err != nil {
					return err
				}
				res.TrailBadge = badge
			}
			log.Printf("🏁 Trail completed: %s → %s (+%d XP)", trail.Slug, userID, bonus)
		}

		_, err := s.Quests.Bump(tx, userID, models.QuestKindTrailStep)
		return err
	})
	if err != nil {
		log.Printf("⚠️ [TRAIL] reward cascade failed for user=%s trail=%s (completion is committed, will self-heal): %v", userID, trail.Slug, err)
		return
	}

	badges, err := s.Badges.Recalculate(userID)
	if err != nil {
		log.Printf("⚠️ [TRAIL] badge recalculation failed for user=%s: %v", userID, err)
		return
	}
	res.BadgesAwarded = badges
}
