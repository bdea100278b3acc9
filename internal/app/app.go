// Package app wires the cycle services from configuration. cycled and
// cyclectl share it.
package app

import (
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/ai"
	"github.com/mattdomit/dotted-sub000/internal/bidding"
	"github.com/mattdomit/dotted-sub000/internal/config"
	"github.com/mattdomit/dotted-sub000/internal/events"
	"github.com/mattdomit/dotted-sub000/internal/lock"
	"github.com/mattdomit/dotted-sub000/internal/optimization"
	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
	"github.com/mattdomit/dotted-sub000/internal/repository"
	"github.com/mattdomit/dotted-sub000/internal/sourcing"
)

type Deps struct {
	Logger    *zap.Logger
	Suggester ai.Suggester
	Publisher events.Publisher
	Locker    lock.Locker
}

func NewOrchestrator(cfg config.Config, repo repository.Repository, deps Deps) *orchestrator.Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orchestrator.Orchestrator{
		Repo:      repo,
		Logger:    logger.Named("orchestrator"),
		Suggester: deps.Suggester,
		Publisher: deps.Publisher,
		Locker:    deps.Locker,
		Dishes: &optimization.Service{
			Repo:         repo,
			Logger:       logger.Named("dishes"),
			Defaults:     optimization.WeightsFromConfig(cfg.Scoring.Dish),
			RecentWindow: cfg.Scoring.RecentWindow,
		},
		Bids: &bidding.Service{
			Repo:             repo,
			Logger:           logger.Named("bids"),
			Weights:          bidding.WeightsFromConfig(cfg.Scoring.Bid),
			CapacityFraction: cfg.Scoring.CapacityFraction,
		},
		Sourcing: &sourcing.Service{
			Repo:          repo,
			Logger:        logger.Named("sourcing"),
			Suggester:     deps.Suggester,
			Weights:       sourcing.WeightsFromConfig(cfg.Scoring.Supplier),
			MaxDistanceKm: cfg.Scoring.MaxDistanceKm,
		},
		DishCount: cfg.AI.DishCount,
		Sweep: orchestrator.SweepOptions{
			Concurrency:     cfg.Sweep.Concurrency,
			DefaultTimezone: cfg.Sweep.DefaultTimezone,
			ZoneTimeout:     cfg.Sweep.ZoneTimeout,
		},
	}
}
