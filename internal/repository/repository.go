package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mattdomit/dotted-sub000/internal/models"
)

// ErrPhaseConflict is returned by UpdateCyclePhase when the stored phase no
// longer matches the expected one.
var ErrPhaseConflict = errors.New("repository: cycle phase changed concurrently")

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("repository: duplicate record")

// ErrNotFound is returned by updates that target a missing record.
var ErrNotFound = errors.New("repository: record not found")

// Repository is the transactional store behind the cycle orchestrator and its
// scoring engines. Lookups return (nil, nil) when the record does not exist.
type Repository interface {
	// InTx runs fn against a repository bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	ZoneRepository
	CycleRepository
	DishRepository
	BidRepository
	SourcingRepository
	SettingsRepository
}

type ZoneRepository interface {
	GetZone(ctx context.Context, id string) (*models.Zone, error)
	ListZones(ctx context.Context, params ListZonesParams) ([]models.Zone, error)
	CountZoneMembers(ctx context.Context, zoneID string) (int64, error)
	ListRestaurantsByZone(ctx context.Context, zoneID string) ([]models.Restaurant, error)
}

type CycleRepository interface {
	GetCycle(ctx context.Context, id string) (*models.Cycle, error)
	GetCycleByZoneDate(ctx context.Context, zoneID, date string) (*models.Cycle, error)
	ListCycles(ctx context.Context, params ListCyclesParams) ([]models.Cycle, error)
	// CreateCycle returns ErrDuplicate when (zone, date) already exists.
	CreateCycle(ctx context.Context, item *models.Cycle) error
	// UpdateCyclePhase moves a cycle from one phase to another and applies
	// the extra column updates in the same statement. It returns
	// ErrPhaseConflict when the cycle is no longer in phase from.
	UpdateCyclePhase(ctx context.Context, id, from, to string, at time.Time, updates map[string]any) error
	SetWinningBid(ctx context.Context, cycleID, bidID string) error
	InsertPhaseTransition(ctx context.Context, item *models.PhaseTransition) error
	ListPhaseTransitions(ctx context.Context, cycleID string, limit int) ([]models.PhaseTransition, error)
}

type DishRepository interface {
	GetDish(ctx context.Context, id string) (*models.Dish, error)
	ListDishesByCycle(ctx context.Context, cycleID string) ([]models.Dish, error)
	// ReplaceDishes deletes every dish of the cycle and inserts items.
	ReplaceDishes(ctx context.Context, cycleID string, items []models.Dish) error
	UpdateDishScores(ctx context.Context, dishID string, scores DishScores) error
	// ListRecentWinningDishes returns the winning dishes of the zone's most
	// recent cycles, newest first, skipping excludeCycleID.
	ListRecentWinningDishes(ctx context.Context, zoneID, excludeCycleID string, limit int) ([]models.Dish, error)
	// AverageQualityByCuisine averages the overall quality of delivered
	// orders in the zone, keyed by lower-cased cuisine of the dish served.
	AverageQualityByCuisine(ctx context.Context, zoneID string) (map[string]float64, error)
	// AverageOrderCount averages the order count of the zone's last limit
	// COMPLETED cycles.
	AverageOrderCount(ctx context.Context, zoneID string, limit int) (float64, error)
}

type BidRepository interface {
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	// ListBidsByCycle preloads each bid's restaurant.
	ListBidsByCycle(ctx context.Context, cycleID string, status *string) ([]models.Bid, error)
	UpdateBidOutcomes(ctx context.Context, outcomes []BidOutcome) error
	CountActiveOrdersByRestaurant(ctx context.Context, restaurantIDs []string) (map[string]int64, error)
}

type SourcingRepository interface {
	// ListZoneInventory preloads each line's supplier. Only active suppliers
	// and lines with stock are returned.
	ListZoneInventory(ctx context.Context, zoneID string) ([]models.InventoryItem, error)
	// CreatePurchaseOrders inserts the orders with their items.
	CreatePurchaseOrders(ctx context.Context, items []models.PurchaseOrder) error
	ListPurchaseOrdersByCycle(ctx context.Context, cycleID string) ([]models.PurchaseOrder, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

// SeedRepository holds the write paths that live outside the cycle core
// (onboarding, ordering, voting). The demo CLI and tests use it to populate
// a store.
type SeedRepository interface {
	CreateZone(ctx context.Context, item *models.Zone) error
	AddZoneMember(ctx context.Context, item *models.ZoneMember) error
	CreateRestaurant(ctx context.Context, item *models.Restaurant) error
	CreateSupplier(ctx context.Context, item *models.Supplier) error
	CreateInventoryItems(ctx context.Context, items []models.InventoryItem) error
	CreateBid(ctx context.Context, item *models.Bid) error
	CreateOrder(ctx context.Context, item *models.Order) error
	CreateQualityScore(ctx context.Context, item *models.QualityScore) error
	IncrementDishVotes(ctx context.Context, dishID string, delta int) error
}

type DishScores struct {
	QualityPrediction float64
	FreshnessScore    float64
	VarietyScore      float64
	WasteRisk         float64
	OptimizationScore float64
}

type BidOutcome struct {
	BidID  string
	Status string
	Score  float64
}

type ListZonesParams struct {
	Limit      int
	Offset     int
	ActiveOnly bool
	OrderBy    string
	Asc        *bool
}

type ListCyclesParams struct {
	Limit   int
	Offset  int
	ZoneID  *string
	Phase   *string
	Since   *string
	OrderBy string
	Asc     *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
