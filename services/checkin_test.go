package services

import (
	"testing"
	"time"

	"tastetrail-rewards-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetDailyGate rewinds the profile's check-in state so the next CheckIn in
// the same test behaves like a fresh day.
func (e *testEnv) resetDailyGate(t *testing.T, userID, lastCheckin string, streak int64) {
	t.Helper()
	require.NoError(t, e.DB.
		Where("user_id = ? AND type = ?", userID, models.XpEventCheckin).
		Delete(&models.XpEvent{}).Error)
	require.NoError(t, e.DB.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"last_checkin_date": lastCheckin,
			"streak_checkins":   streak,
		}).Error)
}

func TestCheckInFirstVisit(t *testing.T) {
	env := newTestEnv(t)
	city := env.seedCity(t, "tokyo", "jp")
	r := env.seedRestaurant(t, city.ID, "ichiran")

	res, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r.ID})
	require.NoError(t, err)
	assert.True(t, res.CheckedIn)
	assert.True(t, res.FirstVisit)
	assert.EqualValues(t, DefaultXPWeights.CheckinXP+DefaultXPWeights.FirstVisitXP, res.Profile.XP)
	assert.EqualValues(t, 1, res.Profile.TotalCheckins)
	assert.EqualValues(t, 1, res.Profile.StreakCheckins)
	require.NotNil(t, res.Profile.LastCheckinDate)
}

func TestCheckInSameDayIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	city := env.seedCity(t, "tokyo", "jp")
	r := env.seedRestaurant(t, city.ID, "ichiran")

	_, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r.ID})
	require.NoError(t, err)
	before := env.profile(t, "u1")

	res, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r.ID})
	require.NoError(t, err)
	assert.False(t, res.CheckedIn)
	assert.False(t, res.FirstVisit)

	after := env.profile(t, "u1")
	assert.Equal(t, before.XP, after.XP)
	assert.Equal(t, before.TotalCheckins, after.TotalCheckins)
	assert.Equal(t, before.StreakCheckins, after.StreakCheckins)
}

func TestCheckInSameDayNewRestaurantStillStamps(t *testing.T) {
	env := newTestEnv(t)
	city := env.seedCity(t, "tokyo", "jp")
	r1 := env.seedRestaurant(t, city.ID, "ichiran")
	r2 := env.seedRestaurant(t, city.ID, "afuri")

	_, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r1.ID})
	require.NoError(t, err)

	res, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r2.ID})
	require.NoError(t, err)
	assert.False(t, res.CheckedIn) // daily XP already paid
	assert.True(t, res.FirstVisit) // but the new stamp still lands

	prof := env.profile(t, "u1")
	assert.EqualValues(t, DefaultXPWeights.CheckinXP+2*DefaultXPWeights.FirstVisitXP, prof.XP)
	assert.EqualValues(t, 1, prof.TotalCheckins)
}

func TestCheckInStreak(t *testing.T) {
	env := newTestEnv(t)
	city := env.seedCity(t, "tokyo", "jp")
	r := env.seedRestaurant(t, city.ID, "ichiran")

	_, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r.ID})
	require.NoError(t, err)

	today := time.Now().Format("2006-01-02")

	t.Run("consecutive day grows the streak", func(t *testing.T) {
		env.resetDailyGate(t, "u1", previousDay(today), 3)

		res, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r.ID})
		require.NoError(t, err)
		assert.True(t, res.CheckedIn)
		assert.EqualValues(t, 4, res.Profile.StreakCheckins)
	})

	t.Run("a gap resets the streak", func(t *testing.T) {
		stale := time.Now().AddDate(0, 0, -3).Format("2006-01-02")
		env.resetDailyGate(t, "u1", stale, 7)

		res, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r.ID})
		require.NoError(t, err)
		assert.True(t, res.CheckedIn)
		assert.EqualValues(t, 1, res.Profile.StreakCheckins)
	})
}

func TestCheckInResolvesBySlug(t *testing.T) {
	env := newTestEnv(t)
	tokyo := env.seedCity(t, "tokyo", "jp")
	osaka := env.seedCity(t, "osaka", "jp")
	env.seedRestaurant(t, tokyo.ID, "ichiran")
	want := env.seedRestaurant(t, osaka.ID, "ichiran") // same slug, other city

	res, err := env.Checkins.CheckIn("u1", CheckinInput{Slug: "ichiran", Country: "jp", City: "osaka"})
	require.NoError(t, err)
	assert.True(t, res.CheckedIn)

	var stamp models.RestaurantStamp
	require.NoError(t, env.DB.Where("user_id = ?", "u1").First(&stamp).Error)
	assert.Equal(t, want.ID, stamp.RestaurantID)
}

func TestCheckInInputValidation(t *testing.T) {
	env := newTestEnv(t)
	city := env.seedCity(t, "tokyo", "jp")
	env.seedRestaurant(t, city.ID, "ichiran")

	_, err := env.Checkins.CheckIn("u1", CheckinInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: "00000000-0000-0000-0000-000000000000"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.Checkins.CheckIn("u1", CheckinInput{Slug: "nope", Country: "jp", City: "tokyo"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckInAdvancesQuestsAndBadges(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuest(t, "daily-diner", models.QuestKindCheckin, 1, 40)
	env.seedBadge(t, "first-bite", models.BadgeRule{Kind: models.RuleMinCheckins, Target: 1})

	city := env.seedCity(t, "tokyo", "jp")
	r := env.seedRestaurant(t, city.ID, "ichiran")

	res, err := env.Checkins.CheckIn("u1", CheckinInput{RestaurantID: r.ID})
	require.NoError(t, err)

	require.Len(t, res.QuestProgress, 1)
	assert.Equal(t, models.QuestStatusCompleted, res.QuestProgress[0].Status)
	require.Len(t, res.BadgesAwarded, 1)
	assert.Equal(t, "first-bite", res.BadgesAwarded[0].Slug)

	// checkin (10) + first visit (25) + quest reward (40)
	assert.EqualValues(t, 75, env.profile(t, "u1").XP)
}
