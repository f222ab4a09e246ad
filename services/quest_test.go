package services

import (
	"testing"

	"tastetrail-rewards-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (e *testEnv) bump(t *testing.T, userID, kind string) []models.UserQuest {
	t.Helper()
	var progress []models.UserQuest
	require.NoError(t, e.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		progress, err = e.Quests.Bump(tx, userID, kind)
		return err
	}))
	return progress
}

func TestBumpEnrollsAndAdvances(t *testing.T) {
	env := newTestEnv(t)
	quest := env.seedQuest(t, "week-of-checkins", models.QuestKindCheckin, 3, 100)

	progress := env.bump(t, "u1", models.QuestKindCheckin)
	require.Len(t, progress, 1)
	assert.Equal(t, quest.ID, progress[0].QuestID)
	assert.EqualValues(t, 1, progress[0].Progress)
	assert.Equal(t, models.QuestStatusActive, progress[0].Status)

	progress = env.bump(t, "u1", models.QuestKindCheckin)
	assert.EqualValues(t, 2, progress[0].Progress)
	assert.Equal(t, models.QuestStatusActive, progress[0].Status)
}

func TestBumpCompletesAtTargetAndPaysOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuest(t, "drop-hunter", models.QuestKindDropClaim, 2, 150)

	env.bump(t, "u1", models.QuestKindDropClaim)
	progress := env.bump(t, "u1", models.QuestKindDropClaim)
	require.Len(t, progress, 1)
	assert.EqualValues(t, 2, progress[0].Progress)
	assert.Equal(t, models.QuestStatusCompleted, progress[0].Status)

	prof := env.profile(t, "u1")
	assert.EqualValues(t, 150, prof.XP)

	// Further bumps leave the completed quest frozen and pay nothing.
	progress = env.bump(t, "u1", models.QuestKindDropClaim)
	assert.EqualValues(t, 2, progress[0].Progress)
	assert.Equal(t, models.QuestStatusCompleted, progress[0].Status)
	assert.EqualValues(t, 150, env.profile(t, "u1").XP)
}

func TestBumpIgnoresOtherKindsAndInactiveQuests(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuest(t, "checkin-quest", models.QuestKindCheckin, 5, 0)
	inactive := env.seedQuest(t, "old-quest", models.QuestKindVideoLike, 5, 0)
	require.NoError(t, env.DB.Model(&models.Quest{}).Where("id = ?", inactive.ID).Update("active", false).Error)

	progress := env.bump(t, "u1", models.QuestKindVideoLike)
	assert.Empty(t, progress)

	var enrolled int64
	require.NoError(t, env.DB.Model(&models.UserQuest{}).Where("user_id = ?", "u1").Count(&enrolled).Error)
	assert.EqualValues(t, 0, enrolled)
}

func TestBumpAdvancesAllMatchingQuests(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuest(t, "quick-liker", models.QuestKindVideoLike, 1, 20)
	env.seedQuest(t, "super-liker", models.QuestKindVideoLike, 3, 50)

	progress := env.bump(t, "u1", models.QuestKindVideoLike)
	require.Len(t, progress, 2)

	byStatus := map[string]int{}
	for _, uq := range progress {
		byStatus[uq.Status]++
		assert.EqualValues(t, 1, uq.Progress)
		require.NotNil(t, uq.Quest)
	}
	assert.Equal(t, 1, byStatus[models.QuestStatusCompleted])
	assert.Equal(t, 1, byStatus[models.QuestStatusActive])

	// Only the completed quest paid out.
	assert.EqualValues(t, 20, env.profile(t, "u1").XP)
}
