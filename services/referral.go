package services

import (
	"errors"
	"log"
	"strings"

	"tastetrail-rewards-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralCookie carries the inbound attribution token from signup until the
// referee's first authenticated action.
const ReferralCookie = "tt_ref"

type ReferralService struct {
	DB *gorm.DB
	XP *XPService
}

func NewReferralService(db *gorm.DB, xp *XPService) *ReferralService {
	return &ReferralService{DB: db, XP: xp}
}

// EnsureCode returns the user's shareable code, generating one on first use.
func (s *ReferralService) EnsureCode(userID string) (*models.ReferralCode, error) {
	rc := models.ReferralCode{UserID: userID, Code: newReferralCode()}
	if _, err := insertIfAbsent(s.DB, &rc); err != nil {
		return nil, err
	}
	var out models.ReferralCode
	if err := s.DB.Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// Click counts a share-link visit. Monotonic counter; no dedupe needed.
func (s *ReferralService) Click(code string) error {
	res := s.DB.Model(&models.ReferralCode{}).
		Where("code = ?", code).
		UpdateColumn("clicks", gorm.Expr("clicks + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type ReferralResult struct {
	Credited   bool   `json:"credited"`
	ReferrerID string `json:"referrer_id,omitempty"`
}

// Attribute credits the inviter behind code for the referee's signup. The
// ReferralClaim row keyed by the referee is the sole gate: even if the token
// is replayed, at most one inviter is ever credited per referee.
func (s *ReferralService) Attribute(refereeID, code string) (*ReferralResult, error) {
	res := &ReferralResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var rc models.ReferralCode
		if err := tx.Where("code = ?", code).First(&rc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rc.UserID == refereeID {
			return ErrInvalidInput // self-referral
		}

		inserted, err := insertIfAbsent(tx, &models.ReferralClaim{
			RefereeID:  refereeID,
			ReferrerID: rc.UserID,
			CodeUsed:   rc.Code,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil // this referee already credited an inviter
		}

		res.Credited = true
		res.ReferrerID = rc.UserID

		if err := tx.Model(&models.ReferralCode{}).
			Where("user_id = ?", rc.UserID).
			UpdateColumn("signups", gorm.Expr("signups + 1")).Error; err != nil {
			return err
		}
		if _, err := s.XP.EnsureProfile(tx, rc.UserID); err != nil {
			return err
		}
		if err := tx.Model(&models.UserProfile{}).
			Where("user_id = ?", rc.UserID).
			UpdateColumn("referral_signups", gorm.Expr("referral_signups + 1")).Error; err != nil {
			return err
		}
		_, err = s.XP.AwardOnce(tx, rc.UserID, models.XpEventReferral, DefaultXPWeights.ReferralXP, "referee", refereeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Credited {
		log.Printf("🤝 Referral credited: %s invited %s (code %s)", res.ReferrerID, refereeID, code)
	}
	return res, nil
}

// Stats returns {code, clicks, signups} for the authenticated inviter,
// creating the code on first read.
func (s *ReferralService) Stats(userID string) (*models.ReferralCode, error) {
	return s.EnsureCode(userID)
}

// AttributionMiddleware runs referral attribution on the first authenticated
// request after signup: if the signed-up client still carries the referral
// cookie, credit the inviter and clear it. Attribution failures never fail
// the request — the claim gate makes a later retry safe.
func (s *ReferralService) AttributionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := strings.TrimSpace(c.Cookies(ReferralCookie))
		userID, _ := c.Locals("user_id").(string)
		if code != "" && userID != "" {
			if _, err := s.Attribute(userID, code); err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidInput) {
				log.Printf("⚠️ [REFERRAL] attribution failed for user=%s: %v", userID, err)
			} else {
				c.Cookie(&fiber.Cookie{Name: ReferralCookie, Value: "", MaxAge: -1})
			}
		}
		return c.Next()
	}
}

// newReferralCode derives a short shareable code. Collisions are caught by
// the unique index and would only matter at generation time, not claim time.
func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
}
