package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

func (s *Store) GetZone(ctx context.Context, id string) (*models.Zone, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Zone
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListZones(ctx context.Context, params repository.ListZonesParams) ([]models.Zone, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Zone{})
	if params.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	asc := params.Asc
	if asc == nil {
		asc = boolPtr(true)
	}
	query = applyOrder(query, params.OrderBy, asc, "name")
	var items []models.Zone
	if err := query.Limit(normalizeLimit(params.Limit, 500)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountZoneMembers(ctx context.Context, zoneID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.ZoneMember{}).Where("zone_id = ?", zoneID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListRestaurantsByZone(ctx context.Context, zoneID string) ([]models.Restaurant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Restaurant
	if err := s.db.WithContext(ctx).
		Where("zone_id = ?", zoneID).
		Where("active = ?", true).
		Order("name asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
