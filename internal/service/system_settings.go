package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

const (
	FeatureSweepVoting    = "feature.sweep.voting"
	FeatureSweepBidding   = "feature.sweep.bidding"
	FeatureSweepSourcing  = "feature.sweep.sourcing"
	FeatureSweepOrdering  = "feature.sweep.ordering"
	FeatureSweepCompleted = "feature.sweep.completed"
	FeatureBroadcast      = "feature.broadcast"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureSweepVoting:    true,
		FeatureSweepBidding:   true,
		FeatureSweepSourcing:  true,
		FeatureSweepOrdering:  true,
		FeatureSweepCompleted: true,
		FeatureBroadcast:      true,
	}
}

// SweepFeature returns the switch that gates the daily sweep into phase.
func SweepFeature(phase string) string {
	return "feature.sweep." + strings.ToLower(strings.TrimSpace(phase))
}

type Switch struct {
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SystemSettingsService struct {
	Repo repository.SettingsRepository
}

// EnsureDefaultSwitches creates missing switches with their default value.
// Existing values are left alone so an operator's choice survives restarts.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil {
		return fallback
	}
	enabled, ok := item.Bool()
	if !ok {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		UpdatedAt:   time.Now().UTC(),
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}

// ListSwitches returns every stored feature switch, falling back to the
// defaults for switches that were never written.
func (s *SystemSettingsService) ListSwitches(ctx context.Context) ([]Switch, error) {
	defaults := DefaultFeatureSwitches()
	out := make(map[string]Switch, len(defaults))
	for name, enabled := range defaults {
		out[name] = Switch{Name: name, Enabled: enabled}
	}
	if s != nil && s.Repo != nil {
		prefix := "feature."
		items, err := s.Repo.ListSystemSettings(ctx, repository.ListSystemSettingsParams{Limit: 500, Prefix: &prefix})
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			enabled, ok := item.Bool()
			if !ok {
				continue
			}
			out[item.Key] = Switch{Name: item.Key, Enabled: enabled, UpdatedAt: item.UpdatedAt}
		}
	}
	list := make([]Switch, 0, len(out))
	for _, sw := range out {
		list = append(list, sw)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}
