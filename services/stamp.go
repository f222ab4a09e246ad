package services

import (
	"tastetrail-rewards-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StampService struct {
	DB *gorm.DB
}

func NewStampService(db *gorm.DB) *StampService {
	return &StampService{DB: db}
}

// EnsureStamp records the first-ever visit of a user to a restaurant.
// Returns true only for the call that created the stamp; every first-visit
// reward in the engine is gated on that boolean.
func (s *StampService) EnsureStamp(tx *gorm.DB, userID, restaurantID string) (bool, error) {
	stamp := models.RestaurantStamp{
		ID:           uuid.NewString(),
		UserID:       userID,
		RestaurantID: restaurantID,
	}
	return insertIfAbsent(tx, &stamp)
}

// VisitStats are the aggregates badge rules are evaluated against.
type VisitStats struct {
	Stamps int64            // distinct restaurants stamped
	Cities int64            // distinct cities among those stamps
	ByTag  map[string]int64 // stamps at restaurants carrying each tag
}

// StatsFor reads every aggregate in one transaction-scoped snapshot so that
// all rules of a single recalculation see consistent numbers. Only the tags
// some rule actually references are counted.
func (s *StampService) StatsFor(tx *gorm.DB, userID string, tags []string) (*VisitStats, error) {
	stats := &VisitStats{ByTag: make(map[string]int64)}

	if err := tx.Model(&models.RestaurantStamp{}).
		Where("user_id = ?", userID).
		Count(&stats.Stamps).Error; err != nil {
		return nil, err
	}

	if err := tx.Raw(`
		SELECT COUNT(DISTINCT r.city_id)
		FROM restaurant_stamps rs
		INNER JOIN restaurants r ON r.id = rs.restaurant_id
		WHERE rs.user_id = ?`, userID).Scan(&stats.Cities).Error; err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		var rows []struct {
			Tag string
			N   int64
		}
		if err := tx.Raw(`
			SELECT rt.tag AS tag, COUNT(*) AS n
			FROM restaurant_stamps rs
			INNER JOIN restaurant_tags rt ON rt.restaurant_id = rs.restaurant_id
			WHERE rs.user_id = ? AND rt.tag IN ?
			GROUP BY rt.tag`, userID, tags).Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			stats.ByTag[row.Tag] = row.N
		}
	}

	return stats, nil
}
