package sourcing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/ai"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
	"github.com/mattdomit/dotted-sub000/internal/scoring"
)

var (
	ErrCycleNotFound  = errors.New("sourcing: cycle not found")
	ErrNoWinningDish  = errors.New("sourcing: cycle has no winning dish")
	ErrAlreadySourced = errors.New("sourcing: purchase orders already exist")
)

type Service struct {
	Repo          repository.Repository
	Logger        *zap.Logger
	Suggester     ai.Suggester
	Weights       Weights
	MaxDistanceKm float64
}

type Result struct {
	CycleID        string                 `json:"cycle_id"`
	DishID         string                 `json:"dish_id"`
	DishName       string                 `json:"dish_name"`
	Matches        []SupplierMatch        `json:"matches"`
	PurchaseOrders []models.PurchaseOrder `json:"purchase_orders"`
	Unmatched      []string               `json:"unmatched"`
	// Available lists the distinct inventory names offered in the zone.
	Available []string `json:"-"`
}

// MatchSuppliers sources the winning dish of a cycle in its own transaction
// and asks for substitutions once it has committed.
func (s *Service) MatchSuppliers(ctx context.Context, cycleID string) (Result, error) {
	if s == nil || s.Repo == nil {
		return Result{}, nil
	}
	var res Result
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		var err error
		res, err = s.MatchSuppliersTx(ctx, tx, cycleID)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	s.SuggestSubstitutions(ctx, res)
	return res, nil
}

// MatchSuppliersTx writes one purchase order per supplier through repo and
// leaves the substitution call to the caller.
func (s *Service) MatchSuppliersTx(ctx context.Context, repo repository.Repository, cycleID string) (Result, error) {
	cycle, err := repo.GetCycle(ctx, cycleID)
	if err != nil {
		return Result{}, err
	}
	if cycle == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrCycleNotFound, cycleID)
	}
	if cycle.WinningDishID == nil || *cycle.WinningDishID == "" {
		return Result{}, fmt.Errorf("%w: cycle %s", ErrNoWinningDish, cycleID)
	}
	dish, err := repo.GetDish(ctx, *cycle.WinningDishID)
	if err != nil {
		return Result{}, fmt.Errorf("load winning dish: %w", err)
	}
	if dish == nil {
		return Result{}, fmt.Errorf("%w: dish %s missing", ErrNoWinningDish, *cycle.WinningDishID)
	}

	existing, err := repo.ListPurchaseOrdersByCycle(ctx, cycleID)
	if err != nil {
		return Result{}, err
	}
	if len(existing) > 0 {
		return Result{}, fmt.Errorf("%w: cycle %s", ErrAlreadySourced, cycleID)
	}

	inventory, err := repo.ListZoneInventory(ctx, cycle.ZoneID)
	if err != nil {
		return Result{}, err
	}
	restaurant, err := s.restaurantLocation(ctx, repo, cycle)
	if err != nil {
		return Result{}, err
	}

	in := Input{
		Ingredients:   make([]Ingredient, 0, len(dish.Ingredients)),
		Inventory:     make([]Line, 0, len(inventory)),
		Restaurant:    restaurant,
		Weights:       s.Weights,
		MaxDistanceKm: s.MaxDistanceKm,
	}
	for _, ing := range dish.Ingredients {
		in.Ingredients = append(in.Ingredients, Ingredient{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit})
	}
	for _, it := range inventory {
		in.Inventory = append(in.Inventory, LineFromModel(it))
	}

	plan := Match(in)
	orders := PurchaseOrders(cycleID, plan.Orders)
	if len(orders) > 0 {
		if err := repo.CreatePurchaseOrders(ctx, orders); err != nil {
			return Result{}, err
		}
	}

	s.logger().Info("suppliers matched",
		zap.String("cycle_id", cycleID),
		zap.String("dish_id", dish.ID),
		zap.Int("ingredients", len(in.Ingredients)),
		zap.Int("matched", len(plan.Matches)),
		zap.Int("unmatched", len(plan.Unmatched)),
		zap.Int("purchase_orders", len(orders)),
	)
	return Result{
		CycleID:        cycleID,
		DishID:         dish.ID,
		DishName:       dish.Name,
		Matches:        plan.Matches,
		PurchaseOrders: orders,
		Unmatched:      plan.Unmatched,
		Available:      inventoryNames(inventory),
	}, nil
}

// SuggestSubstitutions makes one substitution call for the unmatched
// ingredients of res and logs the answer. Failures are logged only.
func (s *Service) SuggestSubstitutions(ctx context.Context, res Result) {
	if len(res.Unmatched) == 0 {
		return
	}
	log := s.logger().With(zap.String("cycle_id", res.CycleID), zap.Strings("unmatched", res.Unmatched))
	if s.Suggester == nil {
		log.Info("unmatched ingredients, no suggester configured")
		return
	}
	text, err := s.Suggester.SuggestSubstitution(ctx, ai.BuildSubstitutionPrompt(res.DishName, res.Unmatched, res.Available))
	if err != nil {
		log.Warn("substitution suggestion failed", zap.Error(err))
		return
	}
	log.Info("substitution suggestion", zap.String("suggestion", text))
}

func (s *Service) restaurantLocation(ctx context.Context, repo repository.Repository, cycle *models.Cycle) (*scoring.Point, error) {
	if cycle.WinningBidID == nil || *cycle.WinningBidID == "" {
		return nil, nil
	}
	bid, err := repo.GetBid(ctx, *cycle.WinningBidID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, nil
	}
	return point(bid.Restaurant.Latitude, bid.Restaurant.Longitude), nil
}

// PurchaseOrders converts planned orders into models ready to insert.
func PurchaseOrders(cycleID string, orders []Order) []models.PurchaseOrder {
	out := make([]models.PurchaseOrder, 0, len(orders))
	for _, o := range orders {
		po := models.PurchaseOrder{
			ID:         models.NewID(),
			CycleID:    cycleID,
			SupplierID: o.SupplierID,
			Status:     models.PurchaseOrderPending,
			TotalCost:  o.Total,
			Items:      make([]models.PurchaseOrderItem, 0, len(o.Matches)),
		}
		for _, m := range o.Matches {
			po.Items = append(po.Items, models.PurchaseOrderItem{
				ID:              models.NewID(),
				PurchaseOrderID: po.ID,
				InventoryItemID: m.Line.InventoryID,
				IngredientName:  m.Ingredient.Name,
				Unit:            m.Line.Unit,
				Quantity:        m.Ingredient.Quantity,
				UnitPrice:       m.Line.UnitPrice,
				LineTotal:       m.LineTotal,
				Score:           m.Score,
			})
		}
		out = append(out, po)
	}
	return out
}

func LineFromModel(it models.InventoryItem) Line {
	return Line{
		InventoryID:    it.ID,
		SupplierID:     it.SupplierID,
		SupplierName:   it.Supplier.Name,
		IngredientName: it.IngredientName,
		Unit:           it.Unit,
		UnitPrice:      it.PricePerUnit,
		Organic:        it.Organic,
		Rating:         it.Supplier.Rating,
		Location:       point(it.Supplier.Latitude, it.Supplier.Longitude),
	}
}

func point(lat, lng *float64) *scoring.Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &scoring.Point{Lat: *lat, Lng: *lng}
}

func inventoryNames(items []models.InventoryItem) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, it := range items {
		key := normalize(it.IngredientName)
		if _, ok := seen[key]; ok || key == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it.IngredientName)
	}
	sort.Strings(out)
	return out
}

func (s *Service) logger() *zap.Logger {
	if s == nil || s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
