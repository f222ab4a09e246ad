// services/scheduler.go
package services

import (
	"log"
	"time"

	"tastetrail-rewards-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartDropScheduler publishes drops whose publish_at has passed. Runs every
// minute; the claim window itself is always evaluated against the store
// clock, so a late tick only delays visibility, never correctness.
func (s *CatalogService) StartDropScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(s.publishDueDrops),
	)
}

func (s *CatalogService) publishDueDrops() {
	var drops []models.DailyDrop
	now := time.Now()
	err := s.DB.Where("is_published = ? AND publish_at IS NOT NULL AND publish_at <= ?", false, now).
		Find(&drops).Error
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}

	for _, d := range drops {
		d.IsPublished = true
		d.PublishAt = nil
		if err := s.DB.Save(&d).Error; err != nil {
			log.Printf("[Scheduler] Failed to publish drop %s: %v", d.ID, err)
		} else {
			log.Printf("✅ Auto-published drop: %s", d.Title)
		}
	}
}
