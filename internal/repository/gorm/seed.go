package gormrepository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

func (s *Store) CreateZone(ctx context.Context, item *models.Zone) error {
	return s.create(ctx, item)
}

func (s *Store) AddZoneMember(ctx context.Context, item *models.ZoneMember) error {
	return s.create(ctx, item)
}

func (s *Store) CreateRestaurant(ctx context.Context, item *models.Restaurant) error {
	return s.create(ctx, item)
}

func (s *Store) CreateSupplier(ctx context.Context, item *models.Supplier) error {
	return s.create(ctx, item)
}

func (s *Store) CreateInventoryItems(ctx context.Context, items []models.InventoryItem) error {
	if s == nil || s.db == nil {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx), items, 200)
}

func (s *Store) CreateBid(ctx context.Context, item *models.Bid) error {
	return s.create(ctx, item)
}

func (s *Store) CreateOrder(ctx context.Context, item *models.Order) error {
	return s.create(ctx, item)
}

func (s *Store) CreateQualityScore(ctx context.Context, item *models.QualityScore) error {
	return s.create(ctx, item)
}

func (s *Store) IncrementDishVotes(ctx context.Context, dishID string, delta int) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Dish{}).
		Where("id = ?", dishID).
		UpdateColumn("vote_count", gorm.Expr("vote_count + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("dish %s: %w", dishID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) create(ctx context.Context, item any) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	err := s.db.WithContext(ctx).Create(item).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%T: %w", item, repository.ErrDuplicate)
	}
	return err
}
