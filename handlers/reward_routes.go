// handlers/reward_routes.go
package handlers

import (
	"errors"

	"tastetrail-rewards-system/middleware"
	"tastetrail-rewards-system/models"
	"tastetrail-rewards-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardServices bundles the engine services the user-facing routes need.
type RewardServices struct {
	Drops     *services.DropService
	Checkins  *services.CheckinService
	Trails    *services.TrailService
	Videos    *services.VideoService
	Referrals *services.ReferralService
	XP        *services.XPService
	Badges    *services.BadgeService
	Quests    *services.QuestService
}

func SetupRewardRoutes(app *fiber.App, svc RewardServices) {
	// 🔓 Public routes — no user context, but still behind Gateway auth
	app.Get("/drops/active", func(c *fiber.Ctx) error {
		drops, err := svc.Drops.ActiveDrops()
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(drops)
	})

	app.Post("/referral/click", func(c *fiber.Ctx) error {
		var req struct {
			Code string `json:"code" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil || req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if err := svc.Referrals.Click(req.Code); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "OK"})
	})

	// 🔐 Secured routes — require user context; referral attribution runs on
	// the first authenticated request after signup (cookie token).
	secured := app.Group("/s", middleware.UserContextMiddleware(), svc.Referrals.AttributionMiddleware())

	secured.Post("/drops/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		dropID := c.Params("id")
		if _, err := uuid.Parse(dropID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid drop ID"})
		}

		var req struct {
			IdempotencyKey string `json:"idempotency_key"`
		}
		_ = c.BodyParser(&req) // body is optional

		res, err := svc.Drops.Claim(userID, dropID, req.IdempotencyKey)
		if err != nil {
			return serviceError(c, err)
		}

		out := fiber.Map{
			"claimed":         res.Claimed,
			"already_claimed": res.AlreadyClaimed,
			"slots_remaining": res.SlotsRemaining,
			"badges_awarded":  res.BadgesAwarded,
		}
		if res.XP != nil && res.XP.Awarded {
			out["xp"] = res.XP.After.XP
			out["level"] = res.XP.After.Level
			out["just_leveled_up"] = res.XP.JustLeveledUp
		}
		return c.JSON(out)
	})

	secured.Post("/checkin", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req services.CheckinInput
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		res, err := svc.Checkins.CheckIn(userID, req)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	})

	secured.Post("/trails/:trail/steps/:step/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			IdempotencyKey string `json:"idempotency_key"`
		}
		_ = c.BodyParser(&req)

		res, err := svc.Trails.CompleteStep(userID, c.Params("trail"), c.Params("step"), req.IdempotencyKey)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	})

	secured.Post("/videos/:id/like", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		videoID := c.Params("id")
		if _, err := uuid.Parse(videoID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid video ID"})
		}

		var req struct {
			IdempotencyKey string `json:"idempotency_key"`
		}
		_ = c.BodyParser(&req)

		res, err := svc.Videos.ToggleLike(userID, videoID, req.IdempotencyKey)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	})

	secured.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prof, err := svc.XP.EnsureProfile(svc.XP.DB, userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"id":                prof.ID,
			"xp":                prof.XP,
			"level":             prof.Level,
			"rank":              prof.Rank,
			"rank_name":         services.RankName(prof.Rank),
			"total_checkins":    prof.TotalCheckins,
			"streak_checkins":   prof.StreakCheckins,
			"last_checkin_date": prof.LastCheckinDate,
			"referral_signups":  prof.ReferralSignups,
			"last_level_up_at":  prof.LastLevelUpAt,
		})
	})

	secured.Get("/user/progress/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		badges, err := svc.Badges.BadgesOf(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(badges)
	})

	secured.Get("/user/progress/quests", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		quests, err := svc.Quests.QuestsOf(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get quests",
				"cause": err.Error(),
			})
		}
		return c.JSON(quests)
	})

	secured.Get("/referral/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		rc, err := svc.Referrals.Stats(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"code":    rc.Code,
			"clicks":  rc.Clicks,
			"signups": rc.Signups,
		})
	})

	// Admin endpoints
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			XP     int64  `json:"xp" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.UserID == "" || req.XP < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and positive xp required"})
		}

		var res *services.XPResult
		err := svc.XP.DB.Transaction(func(tx *gorm.DB) error {
			var txErr error
			res, txErr = svc.XP.AwardOnce(tx, req.UserID, models.XpEventAdminGrant, req.XP, "grant", uuid.NewString())
			return txErr
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP award failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message":         "XP granted successfully",
			"user_id":         req.UserID,
			"xp":              res.After.XP,
			"level":           res.After.Level,
			"just_leveled_up": res.JustLeveledUp,
		})
	})
}

// serviceError maps engine sentinel errors onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, services.ErrNotAvailable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "not available"})
	case errors.Is(err, services.ErrSoldOut):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "sold out"})
	case errors.Is(err, services.ErrAlreadyCompleted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already completed"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error", "cause": err.Error()})
	}
}
