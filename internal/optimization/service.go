package optimization

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

const defaultRecentWindow = 14

var ErrCycleNotFound = errors.New("optimization: cycle not found")

// Service loads a cycle's scoring inputs, ranks its dishes and writes the
// scores back dish by dish.
type Service struct {
	Repo         repository.Repository
	Logger       *zap.Logger
	Defaults     Weights
	RecentWindow int
}

// ComputeDishScores ranks the dishes of a cycle. zoneID may be empty, in
// which case the cycle's zone is used. A dish that fails validation or
// whose write fails is logged and left out of the result.
func (s *Service) ComputeDishScores(ctx context.Context, cycleID, zoneID string) ([]Result, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	if zoneID == "" {
		cycle, err := s.Repo.GetCycle(ctx, cycleID)
		if err != nil {
			return nil, err
		}
		if cycle == nil {
			return nil, fmt.Errorf("%w: %s", ErrCycleNotFound, cycleID)
		}
		zoneID = cycle.ZoneID
	}

	dishes, err := s.Repo.ListDishesByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if len(dishes) == 0 {
		return []Result{}, nil
	}

	results, err := s.Rank(ctx, cycleID, zoneID, dishes)
	if err != nil {
		return nil, err
	}

	written := make([]Result, 0, len(results))
	for _, r := range results {
		err := s.Repo.UpdateDishScores(ctx, r.DishID, repository.DishScores{
			QualityPrediction: r.Quality,
			FreshnessScore:    r.Freshness,
			VarietyScore:      r.Variety,
			WasteRisk:         r.WasteRisk,
			OptimizationScore: r.Composite,
		})
		if err != nil {
			s.logger().Warn("dish score write failed",
				zap.String("cycle_id", cycleID),
				zap.String("dish_id", r.DishID),
				zap.Error(err),
			)
			continue
		}
		written = append(written, r)
	}

	s.logger().Info("dish scores computed",
		zap.String("cycle_id", cycleID),
		zap.Int("dishes", len(dishes)),
		zap.Int("scored", len(written)),
	)
	return written, nil
}

// Rank scores dishes against the zone's history without writing anything.
// Dishes that fail validation are logged and left out.
func (s *Service) Rank(ctx context.Context, cycleID, zoneID string, dishes []models.Dish) ([]Result, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	in, err := s.loadInput(ctx, cycleID, zoneID, dishes)
	if err != nil {
		return nil, err
	}
	results, failures := Score(in)
	for _, f := range failures {
		s.logger().Warn("dish scoring skipped",
			zap.String("cycle_id", cycleID),
			zap.String("dish_id", f.DishID),
			zap.Error(f.Err),
		)
	}
	return results, nil
}

// ApplyScores copies each result onto the dish with the same id.
func ApplyScores(dishes []models.Dish, results []Result) {
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.DishID] = r
	}
	for i := range dishes {
		r, ok := byID[dishes[i].ID]
		if !ok {
			continue
		}
		quality, freshness, variety, waste, composite := r.Quality, r.Freshness, r.Variety, r.WasteRisk, r.Composite
		dishes[i].QualityPrediction = &quality
		dishes[i].FreshnessScore = &freshness
		dishes[i].VarietyScore = &variety
		dishes[i].WasteRisk = &waste
		dishes[i].OptimizationScore = &composite
	}
}

func (s *Service) loadInput(ctx context.Context, cycleID, zoneID string, dishes []models.Dish) (Input, error) {
	zone, err := s.Repo.GetZone(ctx, zoneID)
	if err != nil {
		return Input{}, err
	}
	defaults := s.Defaults
	if defaults == (Weights{}) {
		defaults = DefaultWeights()
	}
	weights, overridden := ResolveWeights(zone, defaults)
	if !overridden && zone != nil && hasAnyOverride(zone) {
		s.logger().Warn("incomplete zone weight overrides ignored", zap.String("zone_id", zoneID))
	}

	quality, err := s.Repo.AverageQualityByCuisine(ctx, zoneID)
	if err != nil {
		return Input{}, err
	}
	inventory, err := s.Repo.ListZoneInventory(ctx, zoneID)
	if err != nil {
		return Input{}, err
	}
	window := s.RecentWindow
	if window <= 0 {
		window = defaultRecentWindow
	}
	recent, err := s.Repo.ListRecentWinningDishes(ctx, zoneID, cycleID, window)
	if err != nil {
		return Input{}, err
	}
	expected, err := s.Repo.AverageOrderCount(ctx, zoneID, window)
	if err != nil {
		return Input{}, err
	}

	in := Input{
		Dishes:           make([]Candidate, 0, len(dishes)),
		Weights:          weights,
		QualityByCuisine: quality,
		FreshnessHours:   FreshnessWindows(inventory),
		RecentCuisines:   map[string]struct{}{},
		RecentNames:      map[string]struct{}{},
		ExpectedOrders:   expected,
	}
	for _, d := range recent {
		in.RecentCuisines[normalize(d.Cuisine)] = struct{}{}
		in.RecentNames[normalize(d.Name)] = struct{}{}
	}
	for _, d := range dishes {
		in.Dishes = append(in.Dishes, CandidateFromModel(d))
	}
	return in, nil
}

func CandidateFromModel(d models.Dish) Candidate {
	names := make([]string, 0, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		names = append(names, ing.Name)
	}
	return Candidate{
		ID:            d.ID,
		Name:          d.Name,
		Cuisine:       d.Cuisine,
		EstimatedCost: d.EstimatedCost.InexactFloat64(),
		Ingredients:   names,
	}
}

// FreshnessWindows keeps the longest freshness window per ingredient name.
func FreshnessWindows(items []models.InventoryItem) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		if it.FreshnessWindowHours == nil {
			continue
		}
		key := normalize(it.IngredientName)
		if cur, ok := out[key]; !ok || *it.FreshnessWindowHours > cur {
			out[key] = *it.FreshnessWindowHours
		}
	}
	return out
}

func hasAnyOverride(z *models.Zone) bool {
	return z.WeightQuality != nil || z.WeightFreshness != nil || z.WeightVariety != nil ||
		z.WeightCost != nil || z.WeightWaste != nil
}

func (s *Service) logger() *zap.Logger {
	if s == nil || s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
