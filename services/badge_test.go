package services

import (
	"testing"

	"tastetrail-rewards-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (e *testEnv) stampMany(t *testing.T, userID string, restaurantIDs ...string) {
	t.Helper()
	require.NoError(t, e.DB.Transaction(func(tx *gorm.DB) error {
		for _, rid := range restaurantIDs {
			if _, err := e.Stamps.EnsureStamp(tx, userID, rid); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestRecalculateGrantsOnlyNewBadges(t *testing.T) {
	env := newTestEnv(t)
	env.seedBadge(t, "first-bite", models.BadgeRule{Kind: models.RuleMinCheckins, Target: 1})
	env.seedBadge(t, "regular", models.BadgeRule{Kind: models.RuleMinCheckins, Target: 3})

	city := env.seedCity(t, "tokyo", "jp")
	r1 := env.seedRestaurant(t, city.ID, "r1")
	r2 := env.seedRestaurant(t, city.ID, "r2")
	r3 := env.seedRestaurant(t, city.ID, "r3")

	env.stampMany(t, "u1", r1.ID)
	newly, err := env.Badges.Recalculate("u1")
	require.NoError(t, err)
	require.Len(t, newly, 1)
	assert.Equal(t, "first-bite", newly[0].Slug)

	// Nothing changed: the sweep is a no-op, not a re-grant.
	newly, err = env.Badges.Recalculate("u1")
	require.NoError(t, err)
	assert.Empty(t, newly)

	env.stampMany(t, "u1", r2.ID, r3.ID)
	newly, err = env.Badges.Recalculate("u1")
	require.NoError(t, err)
	require.Len(t, newly, 1)
	assert.Equal(t, "regular", newly[0].Slug)

	var grants int64
	require.NoError(t, env.DB.Model(&models.UserBadge{}).Where("user_id = ?", "u1").Count(&grants).Error)
	assert.EqualValues(t, 2, grants)
}

func TestRecalculateCityAndTagRules(t *testing.T) {
	env := newTestEnv(t)
	env.seedBadge(t, "city-hopper", models.BadgeRule{Kind: models.RuleMinDistinctCities, Target: 2})
	env.seedBadge(t, "ramen-head", models.BadgeRule{Kind: models.RuleMinTaggedStamps, Tag: "ramen", Target: 2})

	tokyo := env.seedCity(t, "tokyo", "jp")
	osaka := env.seedCity(t, "osaka", "jp")
	r1 := env.seedRestaurant(t, tokyo.ID, "ichiran", "ramen")
	r2 := env.seedRestaurant(t, osaka.ID, "kiji", "okonomiyaki")
	r3 := env.seedRestaurant(t, osaka.ID, "kinryu", "ramen")

	env.stampMany(t, "u1", r1.ID, r2.ID)
	newly, err := env.Badges.Recalculate("u1")
	require.NoError(t, err)
	require.Len(t, newly, 1)
	assert.Equal(t, "city-hopper", newly[0].Slug) // only 1 ramen stamp so far

	env.stampMany(t, "u1", r3.ID)
	newly, err = env.Badges.Recalculate("u1")
	require.NoError(t, err)
	require.Len(t, newly, 1)
	assert.Equal(t, "ramen-head", newly[0].Slug)
}

func TestInactiveBadgeNeverGranted(t *testing.T) {
	env := newTestEnv(t)
	badge := env.seedBadge(t, "retired", models.BadgeRule{Kind: models.RuleMinCheckins, Target: 1})
	require.NoError(t, env.DB.Model(&models.Badge{}).Where("id = ?", badge.ID).Update("active", false).Error)

	city := env.seedCity(t, "tokyo", "jp")
	r := env.seedRestaurant(t, city.ID, "r1")
	env.stampMany(t, "u1", r.ID)

	newly, err := env.Badges.Recalculate("u1")
	require.NoError(t, err)
	assert.Empty(t, newly)
}

func TestGrantByIDIsAtMostOnce(t *testing.T) {
	env := newTestEnv(t)
	badge := env.seedBadge(t, "trail-finisher", models.BadgeRule{Kind: models.RuleMinCheckins, Target: 999})

	require.NoError(t, env.DB.Transaction(func(tx *gorm.DB) error {
		granted, err := env.Badges.GrantByID(tx, "u1", badge.ID)
		require.NoError(t, err)
		require.NotNil(t, granted)
		assert.Equal(t, badge.ID, granted.ID)

		again, err := env.Badges.GrantByID(tx, "u1", badge.ID)
		require.NoError(t, err)
		assert.Nil(t, again)
		return nil
	}))

	var grants int64
	require.NoError(t, env.DB.Model(&models.UserBadge{}).Where("user_id = ?", "u1").Count(&grants).Error)
	assert.EqualValues(t, 1, grants)
}
