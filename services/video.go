package services

import (
	"errors"
	"log"

	"tastetrail-rewards-system/models"

	"gorm.io/gorm"
)

type VideoService struct {
	DB     *gorm.DB
	Idem   *IdempotencyService
	XP     *XPService
	Quests *QuestService
}

func NewVideoService(db *gorm.DB, idem *IdempotencyService, xp *XPService, quests *QuestService) *VideoService {
	return &VideoService{DB: db, Idem: idem, XP: xp, Quests: quests}
}

type LikeResult struct {
	Liked    bool  `json:"liked"`
	Replayed bool  `json:"replayed,omitempty"`
	Likes    int64 `json:"likes"`
}

// ToggleLike flips the like state for (user, video). With an idempotency key
// a replayed toggle becomes a pure read of current state instead of a second
// flip. The first-ever like of a video pays a small XP bonus exactly once —
// unlike-then-relike never pays again, because the XpEvent gate outlives the
// like row.
func (s *VideoService) ToggleLike(userID, videoID, idemKey string) (*LikeResult, error) {
	res := &LikeResult{}
	var likedNow bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var video models.Video
		if err := tx.First(&video, "id = ?", videoID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if !s.Idem.Consume(tx, idemKey, userID) {
			res.Replayed = true
			var mine int64
			if err := tx.Model(&models.VideoLike{}).
				Where("user_id = ? AND video_id = ?", userID, videoID).
				Count(&mine).Error; err != nil {
				return err
			}
			res.Liked = mine > 0
			return s.countLikes(tx, videoID, res)
		}

		inserted, err := insertIfAbsent(tx, &models.VideoLike{UserID: userID, VideoID: videoID})
		if err != nil {
			return err
		}
		if inserted {
			res.Liked = true
		} else {
			if err := tx.Where("user_id = ? AND video_id = ?", userID, videoID).
				Delete(&models.VideoLike{}).Error; err != nil {
				return err
			}
			res.Liked = false
		}
		likedNow = res.Liked
		return s.countLikes(tx, videoID, res)
	})
	if err != nil {
		return nil, err
	}

	if likedNow && !res.Replayed {
		// Post-commit cascade: first-like XP and quest progress, both gated.
		cascadeErr := s.DB.Transaction(func(tx *gorm.DB) error {
			if _, err := s.XP.AwardOnce(tx, userID, models.XpEventVideoLike, DefaultXPWeights.VideoLikeXP, "video", videoID); err != nil {
				return err
			}
			_, err := s.Quests.Bump(tx, userID, models.QuestKindVideoLike)
			return err
		})
		if cascadeErr != nil {
			log.Printf("⚠️ [VIDEO] reward cascade failed for user=%s video=%s (like is committed, will self-heal): %v", userID, videoID, cascadeErr)
		}
	}
	return res, nil
}

func (s *VideoService) countLikes(tx *gorm.DB, videoID string, res *LikeResult) error {
	return tx.Model(&models.VideoLike{}).
		Where("video_id = ?", videoID).
		Count(&res.Likes).Error
}
