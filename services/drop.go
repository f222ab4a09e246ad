package services

import (
	"errors"
	"log"

	"tastetrail-rewards-system/models"

	"gorm.io/gorm"
)

// DropService coordinates claims against limited-capacity, time-boxed drops.
// The drop row itself is the serialization point: every competing claim for
// the same drop contends on one row lease, which makes the capacity
// check-then-insert atomic, while claims on different drops run in parallel.
type DropService struct {
	DB     *gorm.DB
	Idem   *IdempotencyService
	Stamps *StampService
	XP     *XPService
	Badges *BadgeService
	Quests *QuestService
}

func NewDropService(db *gorm.DB, idem *IdempotencyService, stamps *StampService, xp *XPService, badges *BadgeService, quests *QuestService) *DropService {
	return &DropService{DB: db, Idem: idem, Stamps: stamps, XP: xp, Badges: badges, Quests: quests}
}

// DropClaimResult reports the outcome of a claim attempt. Claimed means the
// user holds a slot (whether or not this call took it); AlreadyClaimed marks
// the repeat case, Replayed the idempotency-key case.
type DropClaimResult struct {
	Claimed        bool           `json:"claimed"`
	AlreadyClaimed bool           `json:"already_claimed"`
	Replayed       bool           `json:"replayed,omitempty"`
	SlotsRemaining int            `json:"slots_remaining"`
	XP             *XPResult      `json:"-"`
	BadgesAwarded  []models.Badge `json:"badges_awarded,omitempty"`
}

// Claim executes the claim state machine in one short transaction:
//
//  1. consume the idempotency key (replay → read-only report)
//  2. lease the drop row exclusively
//  3. reject unknown / unpublished / out-of-window drops (store clock,
//     half-open [starts_at, ends_at))
//  4. repeat claim by the same user → success, already_claimed
//  5. count claims; at capacity → ErrSoldOut, nothing inserted
//  6. insert the claim, ensure the stamp, commit
//
// The reward cascade runs after commit, outside the lease, so the lock is
// held only for the capacity-critical work.
func (s *DropService) Claim(userID, dropID, idemKey string) (*DropClaimResult, error) {
	res := &DropClaimResult{}
	var firstStamp bool
	var restaurantID string

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if !s.Idem.Consume(tx, idemKey, userID) {
			res.Replayed = true
			return s.report(tx, userID, dropID, res)
		}

		var drop models.DailyDrop
		if err := leaseForUpdate(tx).First(&drop, "id = ?", dropID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		now := dbNow(tx)
		if !drop.IsPublished || now.Before(drop.StartsAt) || !now.Before(drop.EndsAt) {
			return ErrNotAvailable
		}

		var mine int64
		if err := tx.Model(&models.DailyDropClaim{}).
			Where("drop_id = ? AND user_id = ?", dropID, userID).
			Count(&mine).Error; err != nil {
			return err
		}
		var taken int64
		if err := tx.Model(&models.DailyDropClaim{}).
			Where("drop_id = ?", dropID).
			Count(&taken).Error; err != nil {
			return err
		}

		if mine > 0 {
			res.Claimed = true
			res.AlreadyClaimed = true
			res.SlotsRemaining = drop.Capacity - int(taken)
			return nil
		}

		if int(taken) >= drop.Capacity {
			return ErrSoldOut
		}

		claim := models.DailyDropClaim{UserID: userID, DropID: dropID}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}

		first, err := s.Stamps.EnsureStamp(tx, userID, drop.RestaurantID)
		if err != nil {
			return err
		}
		firstStamp = first
		restaurantID = drop.RestaurantID

		res.Claimed = true
		res.SlotsRemaining = drop.Capacity - int(taken) - 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Replayed || res.AlreadyClaimed {
		return res, nil
	}

	s.cascade(userID, dropID, restaurantID, firstStamp, res)
	return res, nil
}

// cascade applies the post-commit rewards. Every step is an idempotent
// insert-if-absent, so a failure is logged and heals the next time the user
// triggers anything — the claim itself is already durable.
func (s *DropService) cascade(userID, dropID, restaurantID string, firstStamp bool, res *DropClaimResult) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		xp, err := s.XP.AwardOnce(tx, userID, models.XpEventDropClaim, DefaultXPWeights.DropClaimXP, "drop", dropID)
		if err != nil {
			return err
		}
		res.XP = xp

		if firstStamp {
			visit, err := s.XP.AwardOnce(tx, userID, models.XpEventFirstVisit, DefaultXPWeights.FirstVisitXP, "restaurant", restaurantID)
			if err != nil {
				return err
			}
			if visit.Awarded {
				res.XP = mergeXP(xp, visit)
			}
		}

		_, err = s.Quests.Bump(tx, userID, models.QuestKindDropClaim)
		return err
	})
	if err != nil {
		log.Printf("⚠️ [DROP] reward cascade failed for user=%s drop=%s (claim is committed, will self-heal): %v", userID, dropID, err)
		return
	}

	badges, err := s.Badges.Recalculate(userID)
	if err != nil {
		log.Printf("⚠️ [DROP] badge recalculation failed for user=%s: %v", userID, err)
		return
	}
	res.BadgesAwarded = badges

	log.Printf("🎟️ Drop claimed: drop=%s user=%s slots_remaining=%d", dropID, userID, res.SlotsRemaining)
}

// report fills the result for a replayed request without side effects.
func (s *DropService) report(tx *gorm.DB, userID, dropID string, res *DropClaimResult) error {
	var drop models.DailyDrop
	if err := tx.First(&drop, "id = ?", dropID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	var mine, taken int64
	if err := tx.Model(&models.DailyDropClaim{}).
		Where("drop_id = ? AND user_id = ?", dropID, userID).
		Count(&mine).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.DailyDropClaim{}).
		Where("drop_id = ?", dropID).
		Count(&taken).Error; err != nil {
		return err
	}
	res.Claimed = mine > 0
	res.AlreadyClaimed = mine > 0
	res.SlotsRemaining = drop.Capacity - int(taken)
	return nil
}

// mergeXP folds two award results from the same cascade into one payload:
// the earliest before, the latest after.
func mergeXP(a, b *XPResult) *XPResult {
	if a == nil || !a.Awarded {
		return b
	}
	if b == nil || !b.Awarded {
		return a
	}
	return &XPResult{
		Before:        a.Before,
		After:         b.After,
		Points:        a.Points + b.Points,
		Awarded:       true,
		JustLeveledUp: b.After.Level > a.Before.Level,
	}
}

// ActiveDrops lists published drops currently inside their window, with
// remaining slots. Read-only; no lease needed.
func (s *DropService) ActiveDrops() ([]map[string]interface{}, error) {
	now := dbNow(s.DB)
	var drops []models.DailyDrop
	if err := s.DB.
		Where("is_published = ? AND starts_at <= ? AND ends_at > ?", true, now, now).
		Order("ends_at ASC").
		Find(&drops).Error; err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(drops))
	for _, d := range drops {
		var taken int64
		if err := s.DB.Model(&models.DailyDropClaim{}).
			Where("drop_id = ?", d.ID).
			Count(&taken).Error; err != nil {
			return nil, err
		}
		remaining := d.Capacity - int(taken)
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, map[string]interface{}{
			"drop":            d,
			"slots_remaining": remaining,
		})
	}
	return out, nil
}
