package services

import (
	"log"

	"tastetrail-rewards-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BadgeService struct {
	DB     *gorm.DB
	Stamps *StampService
}

func NewBadgeService(db *gorm.DB, stamps *StampService) *BadgeService {
	return &BadgeService{DB: db, Stamps: stamps}
}

// Recalculate evaluates every active badge rule against one consistent
// snapshot of the user's visit aggregates and grants whatever newly applies.
// Only badges actually inserted by this call are returned. Safe to run
// repeatedly and concurrently; a badge is never revoked.
func (s *BadgeService) Recalculate(userID string) ([]models.Badge, error) {
	var newly []models.Badge
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var badges []models.Badge
		if err := tx.Where("active = ?", true).Find(&badges).Error; err != nil {
			return err
		}

		var tags []string
		for _, b := range badges {
			if b.Rule.Kind == models.RuleMinTaggedStamps && b.Rule.Tag != "" {
				tags = append(tags, b.Rule.Tag)
			}
		}

		stats, err := s.Stamps.StatsFor(tx, userID, tags)
		if err != nil {
			return err
		}

		for _, b := range badges {
			if !ruleMet(b.Rule, stats) {
				continue
			}
			grant := models.UserBadge{
				ID:      uuid.NewString(),
				UserID:  userID,
				BadgeID: b.ID,
			}
			inserted, err := insertIfAbsent(tx, &grant)
			if err != nil {
				return err
			}
			if inserted {
				newly = append(newly, b)
				log.Printf("🎖️ Badge awarded: %s → %s", b.Slug, userID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newly, nil
}

// GrantBySlug awards a specific badge outside the threshold rules (e.g., a
// trail's completion badge). Insert-if-absent, so repeat grants are no-ops.
func (s *BadgeService) GrantBySlug(tx *gorm.DB, userID, slug string) (*models.Badge, error) {
	var badge models.Badge
	if err := tx.Where("slug = ?", slug).First(&badge).Error; err != nil {
		return nil, err
	}
	return s.grant(tx, userID, &badge)
}

// GrantByID is GrantBySlug for callers that already hold the badge ID.
func (s *BadgeService) GrantByID(tx *gorm.DB, userID, badgeID string) (*models.Badge, error) {
	var badge models.Badge
	if err := tx.Where("id = ?", badgeID).First(&badge).Error; err != nil {
		return nil, err
	}
	return s.grant(tx, userID, &badge)
}

func (s *BadgeService) grant(tx *gorm.DB, userID string, badge *models.Badge) (*models.Badge, error) {
	inserted, err := insertIfAbsent(tx, &models.UserBadge{
		ID:      uuid.NewString(),
		UserID:  userID,
		BadgeID: badge.ID,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, nil
	}
	log.Printf("🎖️ Badge awarded: %s → %s", badge.Slug, userID)
	return badge, nil
}

// ruleMet is the single dispatcher over the declarative rule variants. A new
// rule kind gets a new case here and nowhere else.
func ruleMet(rule models.BadgeRule, stats *VisitStats) bool {
	switch rule.Kind {
	case models.RuleMinCheckins:
		return stats.Stamps >= rule.Target
	case models.RuleMinDistinctCities:
		return stats.Cities >= rule.Target
	case models.RuleMinTaggedStamps:
		return stats.ByTag[rule.Tag] >= rule.Target
	default:
		return false
	}
}

// BadgesOf lists a user's badges with their catalog entries.
func (s *BadgeService) BadgesOf(userID string) ([]map[string]interface{}, error) {
	var rows []struct {
		models.UserBadge
		Slug        string
		Name        string
		Description string
		IconURL     string
		Rarity      string
	}
	err := s.DB.Raw(`
		SELECT ub.*, b.slug, b.name, b.description, b.icon_url, b.rarity
		FROM user_badges ub
		INNER JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = ?
		ORDER BY ub.awarded_at DESC`, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]interface{}{
			"id":          r.UserBadge.ID,
			"badge_id":    r.BadgeID,
			"slug":        r.Slug,
			"name":        r.Name,
			"description": r.Description,
			"icon_url":    r.IconURL,
			"rarity":      r.Rarity,
			"awarded_at":  r.AwardedAt,
		})
	}
	return out, nil
}
