package services

import (
	"fmt"
	"testing"
	"time"

	"tastetrail-rewards-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the full service graph against a fresh in-memory database.
type testEnv struct {
	DB        *gorm.DB
	Idem      *IdempotencyService
	Stamps    *StampService
	XP        *XPService
	Badges    *BadgeService
	Quests    *QuestService
	Drops     *DropService
	Checkins  *CheckinService
	Trails    *TrailService
	Videos    *VideoService
	Referrals *ReferralService
	Catalog   *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// The shared-cache memory DB lives as long as one connection holds it.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.UserProfile{},
		&models.RestaurantStamp{},
		&models.XpEvent{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Quest{},
		&models.UserQuest{},
		&models.DailyDrop{},
		&models.DailyDropClaim{},
		&models.Trail{},
		&models.TrailStep{},
		&models.TrailStepCompletion{},
		&models.TrailCompletion{},
		&models.ReferralCode{},
		&models.ReferralClaim{},
		&models.IdempotencyKey{},
		&models.City{},
		&models.Restaurant{},
		&models.RestaurantTag{},
		&models.Video{},
		&models.VideoLike{},
		&models.DinerUser{},
	))

	xp := NewXPService(db)
	stamps := NewStampService(db)
	idem := NewIdempotencyService(db)
	badges := NewBadgeService(db, stamps)
	quests := NewQuestService(db, xp)

	return &testEnv{
		DB:        db,
		Idem:      idem,
		Stamps:    stamps,
		XP:        xp,
		Badges:    badges,
		Quests:    quests,
		Drops:     NewDropService(db, idem, stamps, xp, badges, quests),
		Checkins:  NewCheckinService(db, stamps, xp, badges, quests),
		Trails:    NewTrailService(db, idem, stamps, xp, badges, quests),
		Videos:    NewVideoService(db, idem, xp, quests),
		Referrals: NewReferralService(db, xp),
		Catalog:   NewCatalogService(db),
	}
}

func (e *testEnv) profile(t *testing.T, userID string) models.UserProfile {
	t.Helper()
	var prof models.UserProfile
	require.NoError(t, e.DB.Where("user_id = ?", userID).First(&prof).Error)
	return prof
}

func (e *testEnv) seedCity(t *testing.T, slug, country string) models.City {
	t.Helper()
	city := models.City{ID: uuid.NewString(), Slug: slug, Name: slug, Country: country}
	require.NoError(t, e.DB.Create(&city).Error)
	return city
}

func (e *testEnv) seedRestaurant(t *testing.T, cityID, slug string, tags ...string) models.Restaurant {
	t.Helper()
	r := models.Restaurant{ID: uuid.NewString(), Slug: slug, Name: slug, CityID: cityID}
	require.NoError(t, e.DB.Create(&r).Error)
	for _, tag := range tags {
		require.NoError(t, e.DB.Create(&models.RestaurantTag{RestaurantID: r.ID, Tag: tag}).Error)
	}
	return r
}

func (e *testEnv) seedDrop(t *testing.T, restaurantID string, capacity int, startsIn, endsIn time.Duration, published bool) models.DailyDrop {
	t.Helper()
	now := time.Now()
	drop := models.DailyDrop{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		Title:        "Lunch special",
		StartsAt:     now.Add(startsIn),
		EndsAt:       now.Add(endsIn),
		Capacity:     capacity,
		IsPublished:  published,
	}
	require.NoError(t, e.DB.Create(&drop).Error)
	return drop
}

func (e *testEnv) seedQuest(t *testing.T, slug, kind string, target, xpReward int64) models.Quest {
	t.Helper()
	q := models.Quest{
		ID:       uuid.NewString(),
		Slug:     slug,
		Name:     slug,
		Kind:     kind,
		Target:   target,
		XPReward: xpReward,
		Active:   true,
	}
	require.NoError(t, e.DB.Create(&q).Error)
	return q
}

func (e *testEnv) seedBadge(t *testing.T, slug string, rule models.BadgeRule) models.Badge {
	t.Helper()
	b := models.Badge{
		ID:     uuid.NewString(),
		Slug:   slug,
		Name:   slug,
		Rarity: "common",
		Rule:   rule,
		Active: true,
	}
	require.NoError(t, e.DB.Create(&b).Error)
	return b
}

// seedTrail creates a trail with one step per restaurant, in order.
func (e *testEnv) seedTrail(t *testing.T, slug string, badgeID *string, bonusXP int64, restaurantIDs ...string) (models.Trail, []models.TrailStep) {
	t.Helper()
	trail := models.Trail{
		ID:      uuid.NewString(),
		Slug:    slug,
		Name:    slug,
		BadgeID: badgeID,
		BonusXP: bonusXP,
		Active:  true,
	}
	require.NoError(t, e.DB.Create(&trail).Error)

	steps := make([]models.TrailStep, 0, len(restaurantIDs))
	for i, rid := range restaurantIDs {
		step := models.TrailStep{
			ID:           uuid.NewString(),
			TrailID:      trail.ID,
			RestaurantID: rid,
			Position:     i + 1,
		}
		require.NoError(t, e.DB.Create(&step).Error)
		steps = append(steps, step)
	}
	return trail, steps
}

func (e *testEnv) seedVideo(t *testing.T, restaurantID string) models.Video {
	t.Helper()
	v := models.Video{ID: uuid.NewString(), RestaurantID: restaurantID, Title: "tour"}
	require.NoError(t, e.DB.Create(&v).Error)
	return v
}
