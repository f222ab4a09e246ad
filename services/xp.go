package services

import (
	"log"
	"time"

	"tastetrail-rewards-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XPWeights define relative values (tunable via config/env later)
type XPWeights struct {
	CheckinXP    int64
	FirstVisitXP int64
	DropClaimXP  int64
	TrailStepXP  int64
	TrailBonusXP int64 // fallback when a trail doesn't set its own bonus
	VideoLikeXP  int64
	ReferralXP   int64
}

var DefaultXPWeights = XPWeights{
	CheckinXP:    10,
	FirstVisitXP: 25,
	DropClaimXP:  50,
	TrailStepXP:  25,
	TrailBonusXP: 200,
	VideoLikeXP:  5,
	ReferralXP:   250,
}

// XPPerLevel: level = xp/100 + 1, so every 100 XP is a level.
const XPPerLevel = 100

func levelFor(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// RankThresholds: levels required before rank-up.
var RankThresholds = map[int]int{ // rank → min level
	1: 1,  // Taster (start)
	2: 5,  // Regular
	3: 15, // Local
	4: 30, // Gourmand
	5: 60, // Legend
}

func determineRank(level int) int {
	for rank := 5; rank >= 1; rank-- {
		if level >= RankThresholds[rank] {
			return rank
		}
	}
	return 1
}

// RankName returns the display name for a rank tier.
func RankName(rank int) string {
	switch rank {
	case 2:
		return "Regular"
	case 3:
		return "Local"
	case 4:
		return "Gourmand"
	case 5:
		return "Legend"
	default:
		return "Taster"
	}
}

type XPService struct {
	DB *gorm.DB
}

func NewXPService(db *gorm.DB) *XPService {
	return &XPService{DB: db}
}

// XPResult reports the profile immediately before and after an award.
type XPResult struct {
	Before        models.UserProfile
	After         models.UserProfile
	Points        int64
	Awarded       bool // false when the cause was already rewarded
	JustLeveledUp bool
}

// EnsureProfile lazily creates the profile row (idempotent) and returns it.
func (s *XPService) EnsureProfile(tx *gorm.DB, userID string) (*models.UserProfile, error) {
	prof := models.UserProfile{
		ID:     uuid.NewString(),
		UserID: userID,
		Level:  1,
		Rank:   1,
	}
	if _, err := insertIfAbsent(tx, &prof); err != nil {
		return nil, err
	}
	var out models.UserProfile
	if err := tx.Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// AwardOnce pays out a logical cause at most once. The XpEvent insert is the
// gate: only when it lands is the profile touched, with a single atomic
// update keeping the level invariant (level = xp/100 + 1) inside the same
// statement. If the cause was already rewarded, the current profile is
// returned with Awarded=false and no state changes.
func (s *XPService) AwardOnce(tx *gorm.DB, userID, eventType string, points int64, refType, refID string) (*XPResult, error) {
	if _, err := s.EnsureProfile(tx, userID); err != nil {
		return nil, err
	}

	event := models.XpEvent{
		ID:      uuid.NewString(),
		UserID:  userID,
		Type:    eventType,
		Points:  points,
		RefType: refType,
		RefID:   refID,
	}
	inserted, err := insertIfAbsent(tx, &event)
	if err != nil {
		return nil, err
	}
	if !inserted {
		var cur models.UserProfile
		if err := tx.Where("user_id = ?", userID).First(&cur).Error; err != nil {
			return nil, err
		}
		return &XPResult{Before: cur, After: cur}, nil
	}

	return s.addXP(tx, userID, points)
}

func (s *XPService) addXP(tx *gorm.DB, userID string, points int64) (*XPResult, error) {
	res := tx.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"xp":    gorm.Expr("xp + ?", points),
			"level": gorm.Expr("(xp + ?) / ? + 1", points, XPPerLevel),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	var after models.UserProfile
	if err := tx.Where("user_id = ?", userID).First(&after).Error; err != nil {
		return nil, err
	}

	before := after
	before.XP = after.XP - points
	before.Level = levelFor(before.XP)

	out := &XPResult{
		Before:        before,
		After:         after,
		Points:        points,
		Awarded:       true,
		JustLeveledUp: after.Level > before.Level,
	}

	if out.JustLeveledUp {
		now := time.Now()
		updates := map[string]interface{}{"last_level_up_at": now}
		if newRank := determineRank(after.Level); newRank > after.Rank {
			updates["rank"] = newRank
			after.Rank = newRank
		}
		if err := tx.Model(&models.UserProfile{}).
			Where("user_id = ?", userID).
			UpdateColumns(updates).Error; err != nil {
			return nil, err
		}
		after.LastLevelUpAt = &now
		out.After = after
		log.Printf("🎉 Level up: %s → Lvl %d (rank %s)", userID, after.Level, RankName(after.Rank))
	}

	return out, nil
}
