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

func (s *Store) GetCycle(ctx context.Context, id string) (*models.Cycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Cycle
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetCycleByZoneDate(ctx context.Context, zoneID, date string) (*models.Cycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Cycle
	err := s.db.WithContext(ctx).
		Where("zone_id = ?", zoneID).
		Where("date = ?", date).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCycles(ctx context.Context, params repository.ListCyclesParams) ([]models.Cycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Cycle{})
	if params.ZoneID != nil && strings.TrimSpace(*params.ZoneID) != "" {
		query = query.Where("zone_id = ?", strings.TrimSpace(*params.ZoneID))
	}
	if params.Phase != nil && strings.TrimSpace(*params.Phase) != "" {
		query = query.Where("phase = ?", strings.ToUpper(strings.TrimSpace(*params.Phase)))
	}
	if params.Since != nil && strings.TrimSpace(*params.Since) != "" {
		query = query.Where("date >= ?", strings.TrimSpace(*params.Since))
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "date")
	var items []models.Cycle
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateCycle(ctx context.Context, item *models.Cycle) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	err := s.db.WithContext(ctx).Create(item).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("cycle %s/%s: %w", item.ZoneID, item.Date, repository.ErrDuplicate)
	}
	return err
}

func (s *Store) UpdateCyclePhase(ctx context.Context, id, from, to string, at time.Time, updates map[string]any) error {
	if s == nil || s.db == nil {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	values := map[string]any{
		"phase":            to,
		"phase_changed_at": at,
		"updated_at":       at,
	}
	for k, v := range updates {
		values[k] = v
	}
	res := s.db.WithContext(ctx).
		Model(&models.Cycle{}).
		Where("id = ?", id).
		Where("phase = ?", from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cycle %s %s->%s: %w", id, from, to, repository.ErrPhaseConflict)
	}
	return nil
}

func (s *Store) SetWinningBid(ctx context.Context, cycleID, bidID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Cycle{}).
		Where("id = ?", cycleID).
		Updates(map[string]any{"winning_bid_id": bidID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cycle %s: %w", cycleID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) InsertPhaseTransition(ctx context.Context, item *models.PhaseTransition) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPhaseTransitions(ctx context.Context, cycleID string, limit int) ([]models.PhaseTransition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PhaseTransition
	if err := s.db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("created_at asc").
		Order("id asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
