package optimization

import (
	"github.com/mattdomit/dotted-sub000/internal/config"
	"github.com/mattdomit/dotted-sub000/internal/models"
)

// Weights are the five composite coefficients of the dish ranking.
type Weights struct {
	Quality   float64 `json:"quality"`
	Freshness float64 `json:"freshness"`
	Variety   float64 `json:"variety"`
	Cost      float64 `json:"cost"`
	Waste     float64 `json:"waste"`
}

func DefaultWeights() Weights {
	return Weights{Quality: 0.30, Freshness: 0.25, Variety: 0.20, Cost: 0.15, Waste: 0.10}
}

// WeightsFromConfig falls back to DefaultWeights when the configured set is
// all zero.
func WeightsFromConfig(cfg config.DishWeightsConfig) Weights {
	w := Weights{
		Quality:   cfg.Quality,
		Freshness: cfg.Freshness,
		Variety:   cfg.Variety,
		Cost:      cfg.Cost,
		Waste:     cfg.Waste,
	}
	if w == (Weights{}) {
		return DefaultWeights()
	}
	return w
}

// ResolveWeights returns the zone's overrides only when all five are set.
// Any missing override yields the full fallback set; sets are never mixed.
func ResolveWeights(zone *models.Zone, fallback Weights) (Weights, bool) {
	if zone == nil {
		return fallback, false
	}
	overrides := []*float64{
		zone.WeightQuality,
		zone.WeightFreshness,
		zone.WeightVariety,
		zone.WeightCost,
		zone.WeightWaste,
	}
	for _, v := range overrides {
		if v == nil {
			return fallback, false
		}
	}
	return Weights{
		Quality:   *zone.WeightQuality,
		Freshness: *zone.WeightFreshness,
		Variety:   *zone.WeightVariety,
		Cost:      *zone.WeightCost,
		Waste:     *zone.WeightWaste,
	}, true
}
