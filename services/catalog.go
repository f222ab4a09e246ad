// services/catalog.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"tastetrail-rewards-system/models"
	"tastetrail-rewards-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CatalogService is the sole writer of the Badge/Quest/DailyDrop/Trail
// catalog rows. The claim engine only ever reads them.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// SeedBadges inserts the default badge catalog on boot (idempotent per slug).
func (s *CatalogService) SeedBadges() error {
	for _, b := range models.DefaultBadges {
		b.ID = uuid.NewString()
		var existing models.Badge
		err := s.DB.Where("slug = ?", b.Slug).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.DB.Create(&b).Error; err != nil {
				return err
			}
			log.Printf("🌱 Seeded badge: %s", b.Slug)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// --- Drops ---

// CreateDrop creates a new daily drop (Admin only)
func (s *CatalogService) CreateDrop(c *fiber.Ctx) error {
	var req struct {
		RestaurantID string     `json:"restaurant_id" validate:"required,uuid"`
		Title        string     `json:"title" validate:"required"`
		Description  string     `json:"description"`
		ImageURL     string     `json:"image_url"`
		StartsAt     time.Time  `json:"starts_at" validate:"required"`
		EndsAt       time.Time  `json:"ends_at" validate:"required"`
		Capacity     int        `json:"capacity" validate:"min=0"`
		IsPublished  bool       `json:"is_published"`
		PublishAt    *time.Time `json:"publish_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Capacity < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Capacity must be >= 0"})
	}
	if !req.EndsAt.After(req.StartsAt) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ends_at must be after starts_at"})
	}

	drop := &models.DailyDrop{
		ID:           uuid.NewString(),
		RestaurantID: req.RestaurantID,
		Title:        req.Title,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Capacity:     req.Capacity,
		IsPublished:  req.IsPublished,
		PublishAt:    req.PublishAt,
	}
	if err := s.DB.Create(drop).Error; err != nil {
		log.Printf("DB Error creating drop: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create drop"})
	}
	return c.Status(fiber.StatusCreated).JSON(drop)
}

// UpdateDrop updates an existing drop (Admin only). Capacity may only grow —
// shrinking below the claimed count would break the capacity invariant. The
// count-check-and-save runs under the same drop-row lease the claim path
// takes, so a claim committing mid-update can never slip past a stale count.
func (s *CatalogService) UpdateDrop(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid drop ID"})
	}

	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		ImageURL    *string    `json:"image_url"`
		StartsAt    *time.Time `json:"starts_at"`
		EndsAt      *time.Time `json:"ends_at"`
		Capacity    *int       `json:"capacity"`
		IsPublished *bool      `json:"is_published"`
		PublishAt   *time.Time `json:"publish_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var drop models.DailyDrop
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := leaseForUpdate(tx).First(&drop, "id = ?", id).Error; err != nil {
			return err
		}

		if req.Capacity != nil {
			var taken int64
			if err := tx.Model(&models.DailyDropClaim{}).Where("drop_id = ?", id).Count(&taken).Error; err != nil {
				return err
			}
			if int64(*req.Capacity) < taken {
				return fmt.Errorf("%w: capacity cannot drop below %d existing claims", ErrInvalidInput, taken)
			}
			drop.Capacity = *req.Capacity
		}
		if req.Title != nil {
			drop.Title = *req.Title
		}
		if req.Description != nil {
			drop.Description = *req.Description
		}
		if req.ImageURL != nil {
			drop.ImageURL = *req.ImageURL
		}
		if req.StartsAt != nil {
			drop.StartsAt = *req.StartsAt
		}
		if req.EndsAt != nil {
			drop.EndsAt = *req.EndsAt
		}
		if req.IsPublished != nil {
			drop.IsPublished = *req.IsPublished
		}
		if req.PublishAt != nil {
			drop.PublishAt = req.PublishAt
		}

		return tx.Save(&drop).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Drop not found"})
		}
		if errors.Is(err, ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("DB Error updating drop: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update drop"})
	}
	return c.JSON(drop)
}

// ListDrops fetches all drops (Admin only)
func (s *CatalogService) ListDrops(c *fiber.Ctx) error {
	var drops []models.DailyDrop
	if err := s.DB.Order("starts_at DESC").Find(&drops).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch drops"})
	}
	return c.JSON(drops)
}

// DeleteDrop soft-deletes a drop (Admin only)
func (s *CatalogService) DeleteDrop(c *fiber.Ctx) error {
	id := c.Params("id")
	var drop models.DailyDrop
	if err := s.DB.First(&drop, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Drop not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if err := s.DB.Delete(&drop).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete drop"})
	}
	return c.JSON(fiber.Map{"message": "Drop deleted successfully"})
}

// --- Quests ---

// CreateQuest creates a quest (Admin only)
func (s *CatalogService) CreateQuest(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name" validate:"required"`
		Kind     string `json:"kind" validate:"required,oneof=checkin drop_claim trail_step video_like"`
		Target   int64  `json:"target" validate:"required,min=1"`
		XPReward int64  `json:"xp_reward"`
		Active   *bool  `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Target < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Target must be >= 1"})
	}
	switch req.Kind {
	case models.QuestKindCheckin, models.QuestKindDropClaim, models.QuestKindTrailStep, models.QuestKindVideoLike:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown quest kind"})
	}

	quest := &models.Quest{
		ID:       uuid.NewString(),
		Slug:     slug.Make(req.Name),
		Name:     req.Name,
		Kind:     req.Kind,
		Target:   req.Target,
		XPReward: req.XPReward,
		Active:   true,
	}
	if req.Active != nil {
		quest.Active = *req.Active
	}
	if err := s.DB.Create(quest).Error; err != nil {
		log.Printf("DB Error creating quest: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create quest"})
	}
	return c.Status(fiber.StatusCreated).JSON(quest)
}

// UpdateQuest toggles quest fields (Admin only). Target changes only apply to
// future progress; completed enrollments stay frozen.
func (s *CatalogService) UpdateQuest(c *fiber.Ctx) error {
	id := c.Params("id")
	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quest not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name     *string `json:"name"`
		Target   *int64  `json:"target"`
		XPReward *int64  `json:"xp_reward"`
		Active   *bool   `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name != nil {
		quest.Name = *req.Name
	}
	if req.Target != nil && *req.Target >= 1 {
		quest.Target = *req.Target
	}
	if req.XPReward != nil {
		quest.XPReward = *req.XPReward
	}
	if req.Active != nil {
		quest.Active = *req.Active
	}
	if err := s.DB.Save(&quest).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update quest"})
	}
	return c.JSON(quest)
}

// ListQuests fetches all quests (Admin only)
func (s *CatalogService) ListQuests(c *fiber.Ctx) error {
	var quests []models.Quest
	if err := s.DB.Order("created_at DESC").Find(&quests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch quests"})
	}
	return c.JSON(quests)
}

// --- Badges ---

// CreateBadge creates a badge with its declarative rule (Admin only)
func (s *CatalogService) CreateBadge(c *fiber.Ctx) error {
	var req struct {
		Name        string           `json:"name" validate:"required"`
		Description string           `json:"description"`
		Rarity      string           `json:"rarity"`
		Rule        models.BadgeRule `json:"rule" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	switch req.Rule.Kind {
	case models.RuleMinCheckins, models.RuleMinDistinctCities:
	case models.RuleMinTaggedStamps:
		if req.Rule.Tag == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Tag is required for min_tagged_stamps rules"})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown rule kind"})
	}
	if req.Rule.Target < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rule target must be >= 1"})
	}

	badge := &models.Badge{
		ID:          uuid.NewString(),
		Slug:        slug.Make(req.Name),
		Name:        req.Name,
		Description: req.Description,
		Rarity:      req.Rarity,
		Rule:        req.Rule,
		Active:      true,
	}
	if badge.Rarity == "" {
		badge.Rarity = "common"
	}
	if err := s.DB.Create(badge).Error; err != nil {
		log.Printf("DB Error creating badge: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create badge"})
	}
	return c.Status(fiber.StatusCreated).JSON(badge)
}

// UploadBadgeIcon uploads the badge artwork to R2 and stores the CDN URL.
func (s *CatalogService) UploadBadgeIcon(c *fiber.Ctx) error {
	id := c.Params("id")
	var badge models.Badge
	if err := s.DB.First(&badge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Badge not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	fileHeader, err := c.FormFile("icon")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing icon file"})
	}

	key := fmt.Sprintf("badges/%s-%s", badge.Slug, fileHeader.Filename)
	url, err := utils.UploadFileToR2(fileHeader, key)
	if err != nil {
		log.Printf("R2 upload failed for badge %s: %v", badge.Slug, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload icon"})
	}

	badge.IconURL = url
	if err := s.DB.Save(&badge).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save badge"})
	}
	return c.JSON(badge)
}

// ListBadges fetches the badge catalog (public)
func (s *CatalogService) ListBadges(c *fiber.Ctx) error {
	var badges []models.Badge
	if err := s.DB.Where("active = ?", true).Order("created_at ASC").Find(&badges).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch badges"})
	}
	return c.JSON(badges)
}

// --- Trails ---

// CreateTrail creates a trail and its ordered steps (Admin only)
func (s *CatalogService) CreateTrail(c *fiber.Ctx) error {
	var req struct {
		Name        string  `json:"name" validate:"required"`
		Description string  `json:"description"`
		BadgeID     *string `json:"badge_id"`
		BonusXP     int64   `json:"bonus_xp"`
		Steps       []struct {
			RestaurantID string `json:"restaurant_id" validate:"required,uuid"`
			Title        string `json:"title"`
		} `json:"steps" validate:"required,min=1"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Steps) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A trail needs at least one step"})
	}

	trail := &models.Trail{
		ID:          uuid.NewString(),
		Slug:        slug.Make(req.Name),
		Name:        req.Name,
		Description: req.Description,
		BadgeID:     req.BadgeID,
		BonusXP:     req.BonusXP,
		Active:      true,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trail).Error; err != nil {
			return err
		}
		for i, st := range req.Steps {
			step := models.TrailStep{
				ID:           uuid.NewString(),
				TrailID:      trail.ID,
				RestaurantID: st.RestaurantID,
				Position:     i + 1,
				Title:        st.Title,
			}
			if err := tx.Create(&step).Error; err != nil {
				return err
			}
			trail.Steps = append(trail.Steps, step)
		}
		return nil
	})
	if err != nil {
		log.Printf("DB Error creating trail: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create trail"})
	}
	return c.Status(fiber.StatusCreated).JSON(trail)
}

// ListTrails fetches all trails with steps (public)
func (s *CatalogService) ListTrails(c *fiber.Ctx) error {
	var trails []models.Trail
	if err := s.DB.Preload("Steps").Where("active = ?", true).Find(&trails).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch trails"})
	}
	return c.JSON(trails)
}
