package bidding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

var ErrCycleNotFound = errors.New("bidding: cycle not found")

type Service struct {
	Repo             repository.Repository
	Logger           *zap.Logger
	Weights          Weights
	CapacityFraction float64
}

type Result struct {
	CycleID          string   `json:"cycle_id"`
	WinningBidID     string   `json:"winning_bid_id"`
	RestaurantID     string   `json:"restaurant_id"`
	RestaurantName   string   `json:"restaurant_name"`
	Score            float64  `json:"score"`
	RequiredCapacity int      `json:"required_capacity"`
	Scores           []Scored `json:"scores"`
}

// ScoreBids scores the pending bids of a cycle in its own transaction.
func (s *Service) ScoreBids(ctx context.Context, cycleID string) (Result, error) {
	if s == nil || s.Repo == nil {
		return Result{}, nil
	}
	var res Result
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		var err error
		res, err = s.ScoreBidsTx(ctx, tx, cycleID)
		return err
	})
	return res, err
}

// ScoreBidsTx marks exactly one pending bid WON and every other LOST, and
// records the winner on the cycle. repo is normally a transaction owned by
// the caller.
func (s *Service) ScoreBidsTx(ctx context.Context, repo repository.Repository, cycleID string) (Result, error) {
	cycle, err := repo.GetCycle(ctx, cycleID)
	if err != nil {
		return Result{}, err
	}
	if cycle == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrCycleNotFound, cycleID)
	}

	pending := models.BidPending
	bids, err := repo.ListBidsByCycle(ctx, cycleID, &pending)
	if err != nil {
		return Result{}, err
	}
	if len(bids) == 0 {
		return Result{}, fmt.Errorf("%w: cycle %s", ErrNoPendingBids, cycleID)
	}

	var required []string
	if cycle.WinningDishID != nil {
		dish, err := repo.GetDish(ctx, *cycle.WinningDishID)
		if err != nil {
			return Result{}, err
		}
		if dish != nil {
			required = dish.Equipment
		}
	} else {
		s.logger().Warn("scoring bids without a winning dish", zap.String("cycle_id", cycleID))
	}

	members, err := repo.CountZoneMembers(ctx, cycle.ZoneID)
	if err != nil {
		return Result{}, err
	}
	restaurantIDs := make([]string, 0, len(bids))
	for _, b := range bids {
		restaurantIDs = append(restaurantIDs, b.RestaurantID)
	}
	active, err := repo.CountActiveOrdersByRestaurant(ctx, restaurantIDs)
	if err != nil {
		return Result{}, err
	}

	in := Input{
		Bids:              make([]Candidate, 0, len(bids)),
		RequiredEquipment: required,
		MemberCount:       members,
		CapacityFraction:  s.CapacityFraction,
		Weights:           s.Weights,
	}
	names := make(map[string]string, len(bids))
	for _, b := range bids {
		in.Bids = append(in.Bids, CandidateFromModel(b, active[b.RestaurantID]))
		names[b.ID] = b.Restaurant.Name
	}

	out, err := Select(in)
	if err != nil {
		return Result{}, err
	}

	outcomes := make([]repository.BidOutcome, 0, len(out.Scores))
	for _, sc := range out.Scores {
		status := models.BidLost
		if sc.BidID == out.Winner.BidID {
			status = models.BidWon
		}
		outcomes = append(outcomes, repository.BidOutcome{BidID: sc.BidID, Status: status, Score: sc.Score})
	}
	if err := repo.UpdateBidOutcomes(ctx, outcomes); err != nil {
		return Result{}, err
	}
	if err := repo.SetWinningBid(ctx, cycleID, out.Winner.BidID); err != nil {
		return Result{}, err
	}

	if out.EquipmentFallback || out.CapacityFallback {
		s.logger().Info("bid filters relaxed",
			zap.String("cycle_id", cycleID),
			zap.Bool("equipment", out.EquipmentFallback),
			zap.Bool("capacity", out.CapacityFallback),
		)
	}
	s.logger().Info("bids scored",
		zap.String("cycle_id", cycleID),
		zap.Int("bids", len(bids)),
		zap.String("winning_bid_id", out.Winner.BidID),
		zap.Float64("score", out.Winner.Score),
	)

	return Result{
		CycleID:          cycleID,
		WinningBidID:     out.Winner.BidID,
		RestaurantID:     out.Winner.RestaurantID,
		RestaurantName:   names[out.Winner.BidID],
		Score:            out.Winner.Score,
		RequiredCapacity: out.RequiredCapacity,
		Scores:           out.Scores,
	}, nil
}

func CandidateFromModel(b models.Bid, activeOrders int64) Candidate {
	return Candidate{
		BidID:               b.ID,
		RestaurantID:        b.RestaurantID,
		RestaurantName:      b.Restaurant.Name,
		Price:               b.PricePerPlate.InexactFloat64(),
		PrepTimeMinutes:     b.PrepTimeMinutes,
		MaxCapacity:         b.MaxCapacity,
		Rating:              b.Restaurant.Rating,
		Equipment:           b.Restaurant.Equipment,
		MaxConcurrentOrders: b.Restaurant.MaxConcurrentOrders,
		ActiveOrders:        activeOrders,
		Tier:                b.Restaurant.PartnerTier,
		CreatedAt:           b.CreatedAt,
	}
}

func (s *Service) logger() *zap.Logger {
	if s == nil || s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
