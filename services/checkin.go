package services

import (
	"errors"
	"log"
	"time"

	"tastetrail-rewards-system/models"

	"gorm.io/gorm"
)

type CheckinService struct {
	DB     *gorm.DB
	Stamps *StampService
	XP     *XPService
	Badges *BadgeService
	Quests *QuestService
}

func NewCheckinService(db *gorm.DB, stamps *StampService, xp *XPService, badges *BadgeService, quests *QuestService) *CheckinService {
	return &CheckinService{DB: db, Stamps: stamps, XP: xp, Badges: badges, Quests: quests}
}

// CheckinInput identifies the restaurant either directly or by
// (slug, country, city).
type CheckinInput struct {
	RestaurantID string `json:"restaurant_id"`
	Slug         string `json:"slug"`
	Country      string `json:"country"`
	City         string `json:"city"`
}

type CheckinResult struct {
	CheckedIn     bool               `json:"checked_in"` // false on the same-day repeat
	FirstVisit    bool               `json:"first_visit"`
	Profile       models.UserProfile `json:"profile"`
	QuestProgress []models.UserQuest `json:"quest_progress"`
	BadgesAwarded []models.Badge     `json:"badges_awarded"`
}

// CheckIn records a visit. The daily XpEvent insert is the gate: the second
// call on the same calendar date changes nothing and returns the existing
// profile. Consecutive-day check-ins grow the streak; a gap resets it to 1.
func (s *CheckinService) CheckIn(userID string, in CheckinInput) (*CheckinResult, error) {
	res := &CheckinResult{}
	var firstVisit, newDay bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		restaurant, err := s.resolveRestaurant(tx, in)
		if err != nil {
			return err
		}

		if _, err := s.XP.EnsureProfile(tx, userID); err != nil {
			return err
		}

		firstVisit, err = s.Stamps.EnsureStamp(tx, userID, restaurant.ID)
		if err != nil {
			return err
		}

		day := dbNow(tx).Format("2006-01-02")
		daily, err := s.XP.AwardOnce(tx, userID, models.XpEventCheckin, DefaultXPWeights.CheckinXP, "date", day)
		if err != nil {
			return err
		}
		newDay = daily.Awarded

		if newDay {
			streak := int64(1)
			if prev := daily.Before.LastCheckinDate; prev != nil && *prev == previousDay(day) {
				streak = daily.Before.StreakCheckins + 1
			}
			if err := tx.Model(&models.UserProfile{}).
				Where("user_id = ?", userID).
				UpdateColumns(map[string]interface{}{
					"total_checkins":    gorm.Expr("total_checkins + 1"),
					"streak_checkins":   streak,
					"last_checkin_date": day,
				}).Error; err != nil {
				return err
			}
		}

		return tx.Where("user_id = ?", userID).First(&res.Profile).Error
	})
	if err != nil {
		return nil, err
	}

	res.CheckedIn = newDay
	res.FirstVisit = firstVisit
	if !newDay && !firstVisit {
		return res, nil
	}

	// Post-commit cascade: first-visit bonus, quest progress, badge sweep.
	// All idempotent; failures are logged and heal on the next check-in.
	cascadeErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if firstVisit {
			restaurant, err := s.resolveRestaurant(tx, in)
			if err != nil {
				return err
			}
			if _, err := s.XP.AwardOnce(tx, userID, models.XpEventFirstVisit, DefaultXPWeights.FirstVisitXP, "restaurant", restaurant.ID); err != nil {
				return err
			}
		}
		if newDay {
			progress, err := s.Quests.Bump(tx, userID, models.QuestKindCheckin)
			if err != nil {
				return err
			}
			res.QuestProgress = progress
		}
		return tx.Where("user_id = ?", userID).First(&res.Profile).Error
	})
	if cascadeErr != nil {
		log.Printf("⚠️ [CHECKIN] reward cascade failed for user=%s (check-in is committed, will self-heal): %v", userID, cascadeErr)
		return res, nil
	}

	badges, err := s.Badges.Recalculate(userID)
	if err != nil {
		log.Printf("⚠️ [CHECKIN] badge recalculation failed for user=%s: %v", userID, err)
		return res, nil
	}
	res.BadgesAwarded = badges
	return res, nil
}

func (s *CheckinService) resolveRestaurant(tx *gorm.DB, in CheckinInput) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	switch {
	case in.RestaurantID != "":
		if err := tx.First(&restaurant, "id = ?", in.RestaurantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
	case in.Slug != "" && in.Country != "" && in.City != "":
		err := tx.
			Joins("INNER JOIN cities ON cities.id = restaurants.city_id").
			Where("restaurants.slug = ? AND cities.country = ? AND cities.slug = ?", in.Slug, in.Country, in.City).
			First(&restaurant).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
	default:
		return nil, ErrInvalidInput
	}
	return &restaurant, nil
}

// previousDay returns the calendar date one day before day (YYYY-MM-DD).
func previousDay(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format("2006-01-02")
}
