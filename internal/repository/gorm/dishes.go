package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

func (s *Store) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Dish
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListDishesByCycle(ctx context.Context, cycleID string) ([]models.Dish, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Dish
	if err := s.db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ReplaceDishes(ctx context.Context, cycleID string, items []models.Dish) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cycle_id = ?", cycleID).Delete(&models.Dish{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].CycleID = cycleID
		}
		return createInBatches(tx, items, 50)
	})
}

func (s *Store) UpdateDishScores(ctx context.Context, dishID string, scores repository.DishScores) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Dish{}).
		Where("id = ?", dishID).
		Updates(map[string]any{
			"quality_prediction": scores.QualityPrediction,
			"freshness_score":    scores.FreshnessScore,
			"variety_score":      scores.VarietyScore,
			"waste_risk":         scores.WasteRisk,
			"optimization_score": scores.OptimizationScore,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("dish %s: %w", dishID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) ListRecentWinningDishes(ctx context.Context, zoneID, excludeCycleID string, limit int) ([]models.Dish, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Dish{}).
		Select("dishes.*").
		Joins("JOIN cycles ON cycles.winning_dish_id = dishes.id").
		Where("cycles.zone_id = ?", zoneID)
	if strings.TrimSpace(excludeCycleID) != "" {
		query = query.Where("cycles.id <> ?", excludeCycleID)
	}
	var items []models.Dish
	if err := query.Order("cycles.date desc").Limit(normalizeLimit(limit, 14)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

type cuisineQualityRow struct {
	Cuisine    string
	AvgOverall float64
}

func (s *Store) AverageQualityByCuisine(ctx context.Context, zoneID string) (map[string]float64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []cuisineQualityRow
	if err := s.db.WithContext(ctx).
		Table("quality_scores").
		Select("LOWER(dishes.cuisine) AS cuisine, AVG(quality_scores.overall) AS avg_overall").
		Joins("JOIN orders ON orders.id = quality_scores.order_id").
		Joins("JOIN cycles ON cycles.id = orders.cycle_id").
		Joins("JOIN dishes ON dishes.id = cycles.winning_dish_id").
		Where("cycles.zone_id = ?", zoneID).
		Where("orders.status = ?", models.OrderDelivered).
		Group("LOWER(dishes.cuisine)").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.Cuisine] = row.AvgOverall
	}
	return out, nil
}

const averageOrderCountSQL = `
SELECT COALESCE(AVG(recent.order_count), 0)
FROM (
	SELECT cycles.id, COUNT(orders.id) AS order_count
	FROM cycles
	LEFT JOIN orders ON orders.cycle_id = cycles.id AND orders.status <> ?
	WHERE cycles.zone_id = ? AND cycles.phase = ?
	GROUP BY cycles.id, cycles.date
	ORDER BY cycles.date DESC
	LIMIT ?
) AS recent`

func (s *Store) AverageOrderCount(ctx context.Context, zoneID string, limit int) (float64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var avg float64
	if err := s.db.WithContext(ctx).
		Raw(averageOrderCountSQL, models.OrderCancelled, zoneID, models.PhaseCompleted, normalizeLimit(limit, 14)).
		Scan(&avg).Error; err != nil {
		return 0, err
	}
	return avg, nil
}
