package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/ai"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/optimization"
	"github.com/mattdomit/dotted-sub000/internal/repository"
	"github.com/mattdomit/dotted-sub000/internal/sourcing"
)

// enterVoting asks for dish suggestions, keeps the ones the zone can afford
// and cook, ranks them, and stores the scored dishes with the phase change in
// one transaction.
func (o *Orchestrator) enterVoting(ctx context.Context, cycle *models.Cycle, log *zap.Logger) error {
	zone, err := o.Repo.GetZone(ctx, cycle.ZoneID)
	if err != nil {
		return err
	}
	if zone == nil {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, cycle.ZoneID)
	}
	restaurants, err := o.Repo.ListRestaurantsByZone(ctx, zone.ID)
	if err != nil {
		return err
	}
	equipment := ZoneEquipment(restaurants)

	prompt, err := o.dishPrompt(ctx, cycle, zone, equipment)
	if err != nil {
		return err
	}
	if o.Suggester == nil {
		return fmt.Errorf("%w: no suggester configured", ErrSuggestionFailed)
	}
	suggestions, err := o.Suggester.SuggestDishes(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSuggestionFailed, err)
	}

	viable := FilterSuggestions(suggestions, zone, equipment)
	log.Info("dish suggestions received", zap.Int("suggested", len(suggestions)), zap.Int("viable", len(viable)))
	if len(viable) == 0 {
		return fmt.Errorf("%w: %d suggested", ErrNoViableDishes, len(suggestions))
	}
	if len(viable) > maxDishes {
		viable = viable[:maxDishes]
	}

	dishes := make([]models.Dish, 0, len(viable))
	for _, s := range viable {
		dishes = append(dishes, DishFromSuggestion(cycle.ID, s))
	}
	results, err := o.dishes().Rank(ctx, cycle.ID, cycle.ZoneID, dishes)
	if err != nil {
		return fmt.Errorf("rank dishes: %w", err)
	}
	optimization.ApplyScores(dishes, results)
	log.Info("dish suggestions ranked", zap.Int("scored", len(results)))

	return o.Repo.InTx(ctx, func(tx repository.Repository) error {
		if err := tx.ReplaceDishes(ctx, cycle.ID, dishes); err != nil {
			return err
		}
		return tx.UpdateCyclePhase(ctx, cycle.ID, cycle.Phase, models.PhaseVoting, o.now(), nil)
	})
}

func (o *Orchestrator) dishPrompt(ctx context.Context, cycle *models.Cycle, zone *models.Zone, equipment []string) (string, error) {
	inventory, err := o.Repo.ListZoneInventory(ctx, zone.ID)
	if err != nil {
		return "", err
	}
	recent, err := o.Repo.ListRecentWinningDishes(ctx, zone.ID, cycle.ID, recentPromptDishes)
	if err != nil {
		return "", err
	}
	in := ai.DishPromptInput{
		ZoneName:         zone.Name,
		Date:             cycle.Date,
		Count:            DishRequestCount(o.DishCount),
		MaxPricePerPlate: zone.MaxPricePerPlate,
		Equipment:        equipment,
	}
	seen := map[string]struct{}{}
	for _, it := range inventory {
		key := strings.ToLower(it.IngredientName)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		in.Ingredients = append(in.Ingredients, it.IngredientName)
	}
	for _, d := range recent {
		in.RecentDishes = append(in.RecentDishes, d.Name)
	}
	return ai.BuildDishPrompt(in), nil
}

// DishRequestCount clamps the configured count to [minDishes, maxDishes].
// Zero or negative asks for the maximum.
func DishRequestCount(n int) int {
	switch {
	case n <= 0 || n > maxDishes:
		return maxDishes
	case n < minDishes:
		return minDishes
	}
	return n
}

// ZoneEquipment is the sorted union of the restaurants' equipment tags,
// lower-cased.
func ZoneEquipment(restaurants []models.Restaurant) []string {
	set := map[string]struct{}{}
	for _, r := range restaurants {
		for _, e := range r.Equipment {
			if key := strings.ToLower(strings.TrimSpace(e)); key != "" {
				set[key] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// FilterSuggestions drops dishes above the zone's price ceiling and dishes
// needing equipment no restaurant in the zone has.
func FilterSuggestions(in []ai.DishSuggestion, zone *models.Zone, equipment []string) []ai.DishSuggestion {
	have := make(map[string]struct{}, len(equipment))
	for _, e := range equipment {
		have[strings.ToLower(e)] = struct{}{}
	}
	out := make([]ai.DishSuggestion, 0, len(in))
	for _, s := range in {
		if zone != nil && zone.MaxPricePerPlate != nil && s.EstimatedCost.GreaterThan(*zone.MaxPricePerPlate) {
			continue
		}
		ok := true
		for _, e := range s.Equipment {
			if _, found := have[strings.ToLower(strings.TrimSpace(e))]; !found {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, s)
		}
	}
	return out
}

func DishFromSuggestion(cycleID string, s ai.DishSuggestion) models.Dish {
	d := models.Dish{
		ID:            models.NewID(),
		CycleID:       cycleID,
		Name:          s.Name,
		Cuisine:       s.Cuisine,
		Description:   s.Description,
		EstimatedCost: s.EstimatedCost,
		Equipment:     append([]string{}, s.Equipment...),
	}
	for _, ing := range s.Ingredients {
		d.Ingredients = append(d.Ingredients, models.Ingredient{
			Name:     ing.Name,
			Quantity: ing.Quantity.Round(models.QuantityPlaces),
			Unit:     ing.Unit,
			Category: ing.Category,
		})
	}
	return d
}

// enterBidding closes voting and records the most voted dish.
func (o *Orchestrator) enterBidding(ctx context.Context, cycle *models.Cycle) error {
	dishes, err := o.Repo.ListDishesByCycle(ctx, cycle.ID)
	if err != nil {
		return err
	}
	winner, ok := TallyVotes(dishes)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoDishes, cycle.ID)
	}
	return o.Repo.UpdateCyclePhase(ctx, cycle.ID, cycle.Phase, models.PhaseBidding, o.now(),
		map[string]any{"winning_dish_id": winner.ID})
}

// TallyVotes returns the dish with the most votes. Ties go to the dish
// created first, then to the lowest id.
func TallyVotes(dishes []models.Dish) (models.Dish, bool) {
	if len(dishes) == 0 {
		return models.Dish{}, false
	}
	best := dishes[0]
	for _, d := range dishes[1:] {
		switch {
		case d.VoteCount > best.VoteCount:
			best = d
		case d.VoteCount < best.VoteCount:
		case d.CreatedAt.Before(best.CreatedAt):
			best = d
		case d.CreatedAt.Equal(best.CreatedAt) && d.ID < best.ID:
			best = d
		}
	}
	return best, true
}

// enterSourcing scores the bids, creates the purchase orders and commits the
// phase as one unit. Bids or orders produced by an earlier standalone run
// are kept. Substitutions are requested after commit.
func (o *Orchestrator) enterSourcing(ctx context.Context, cycle *models.Cycle, log *zap.Logger) error {
	var matched sourcing.Result
	err := o.Repo.InTx(ctx, func(tx repository.Repository) error {
		current, err := tx.GetCycle(ctx, cycle.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: %s", ErrCycleNotFound, cycle.ID)
		}
		if current.WinningBidID == nil {
			res, err := o.bids().ScoreBidsTx(ctx, tx, cycle.ID)
			if err != nil {
				return err
			}
			log.Info("winning bid selected", zap.String("bid_id", res.WinningBidID), zap.Float64("score", res.Score))
		} else {
			log.Info("bids already scored", zap.String("bid_id", *current.WinningBidID))
		}

		matched, err = o.sourcing().MatchSuppliersTx(ctx, tx, cycle.ID)
		switch {
		case errors.Is(err, sourcing.ErrAlreadySourced):
			log.Info("purchase orders already exist")
			matched = sourcing.Result{}
		case err != nil:
			return err
		}
		return tx.UpdateCyclePhase(ctx, cycle.ID, cycle.Phase, models.PhaseSourcing, o.now(), nil)
	})
	if err != nil {
		return err
	}
	o.sourcing().SuggestSubstitutions(ctx, matched)
	return nil
}
