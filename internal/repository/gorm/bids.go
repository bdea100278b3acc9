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

func (s *Store) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Bid
	err := s.db.WithContext(ctx).Preload("Restaurant").Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBidsByCycle(ctx context.Context, cycleID string, status *string) ([]models.Bid, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Preload("Restaurant").Where("cycle_id = ?", cycleID)
	if status != nil && strings.TrimSpace(*status) != "" {
		query = query.Where("status = ?", strings.ToUpper(strings.TrimSpace(*status)))
	}
	var items []models.Bid
	if err := query.Order("created_at asc").Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateBidOutcomes writes every outcome or none of them.
func (s *Store) UpdateBidOutcomes(ctx context.Context, outcomes []repository.BidOutcome) error {
	if s == nil || s.db == nil || len(outcomes) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range outcomes {
			res := tx.Model(&models.Bid{}).
				Where("id = ?", o.BidID).
				Updates(map[string]any{
					"status":     o.Status,
					"score":      o.Score,
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("bid %s: %w", o.BidID, repository.ErrNotFound)
			}
		}
		return nil
	})
}

type restaurantCountRow struct {
	RestaurantID string
	Total        int64
}

func (s *Store) CountActiveOrdersByRestaurant(ctx context.Context, restaurantIDs []string) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ids := cleanStrings(restaurantIDs)
	out := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []restaurantCountRow
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("restaurant_id, COUNT(*) AS total").
		Where("restaurant_id IN ?", ids).
		Where("status IN ?", models.ActiveOrderStatuses).
		Group("restaurant_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.RestaurantID] = row.Total
	}
	return out, nil
}
