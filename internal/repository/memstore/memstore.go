// Package memstore is an in-memory repository.Repository used by tests and
// by the demo commands of cyclectl. Transactions are serialized: InTx holds
// the store lock until fn returns and commits by swapping in the working copy.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

type Store struct {
	mu     *sync.Mutex
	st     *state
	inTx   bool
	faults *faults
}

type faults struct {
	mu  sync.Mutex
	fns map[string]func(key string) error
}

type state struct {
	zones          map[string]models.Zone
	members        map[string]models.ZoneMember
	restaurants    map[string]models.Restaurant
	suppliers      map[string]models.Supplier
	inventory      map[string]models.InventoryItem
	cycles         map[string]models.Cycle
	dishes         map[string]models.Dish
	bids           map[string]models.Bid
	orders         map[string]models.Order
	quality        map[string]models.QualityScore
	purchaseOrders map[string]models.PurchaseOrder
	settings       map[string]models.SystemSetting
	transitions    []models.PhaseTransition

	seq    int64
	seqs   map[string]int64
	nextID uint64
}

func New() *Store {
	return &Store{
		mu:     &sync.Mutex{},
		st:     newState(),
		faults: &faults{fns: map[string]func(string) error{}},
	}
}

func newState() *state {
	return &state{
		zones:          map[string]models.Zone{},
		members:        map[string]models.ZoneMember{},
		restaurants:    map[string]models.Restaurant{},
		suppliers:      map[string]models.Supplier{},
		inventory:      map[string]models.InventoryItem{},
		cycles:         map[string]models.Cycle{},
		dishes:         map[string]models.Dish{},
		bids:           map[string]models.Bid{},
		orders:         map[string]models.Order{},
		quality:        map[string]models.QualityScore{},
		purchaseOrders: map[string]models.PurchaseOrder{},
		settings:       map[string]models.SystemSetting{},
		seqs:           map[string]int64{},
	}
}

func (st *state) clone() *state {
	out := &state{
		zones:          cloneMap(st.zones),
		members:        cloneMap(st.members),
		restaurants:    cloneMap(st.restaurants),
		suppliers:      cloneMap(st.suppliers),
		inventory:      cloneMap(st.inventory),
		cycles:         cloneMap(st.cycles),
		dishes:         cloneMap(st.dishes),
		bids:           cloneMap(st.bids),
		orders:         cloneMap(st.orders),
		quality:        cloneMap(st.quality),
		purchaseOrders: cloneMap(st.purchaseOrders),
		settings:       cloneMap(st.settings),
		transitions:    append([]models.PhaseTransition(nil), st.transitions...),
		seq:            st.seq,
		seqs:           cloneMap(st.seqs),
		nextID:         st.nextID,
	}
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// InjectFault makes operation op fail whenever fn returns a non-nil error
// for the record key passed to it. Passing a nil fn clears the fault.
func (s *Store) InjectFault(op string, fn func(key string) error) {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	if fn == nil {
		delete(s.faults.fns, op)
		return
	}
	s.faults.fns[op] = fn
}

func (s *Store) fault(op, key string) error {
	s.faults.mu.Lock()
	fn := s.faults.fns[op]
	s.faults.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(key)
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	unlock := s.lock()
	defer unlock()
	work := s.st.clone()
	tx := &Store{mu: s.mu, st: work, inTx: true, faults: s.faults}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (st *state) touch(id string) {
	st.seq++
	st.seqs[id] = st.seq
}

func (st *state) before(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.Before(bAt)
	}
	if st.seqs[aID] != st.seqs[bID] {
		return st.seqs[aID] < st.seqs[bID]
	}
	return aID < bID
}

func stamp(at *time.Time) {
	if at.IsZero() {
		*at = time.Now().UTC()
	}
}

func ensureID(id *string) {
	if strings.TrimSpace(*id) == "" {
		*id = models.NewID()
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// --- zones ------------------------------------------------------------------

func (s *Store) GetZone(ctx context.Context, id string) (*models.Zone, error) {
	defer s.lock()()
	item, ok := s.st.zones[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListZones(ctx context.Context, params repository.ListZonesParams) ([]models.Zone, error) {
	defer s.lock()()
	items := make([]models.Zone, 0, len(s.st.zones))
	for _, z := range s.st.zones {
		if params.ActiveOnly && !z.Active {
			continue
		}
		items = append(items, z)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
	return page(items, params.Limit, params.Offset), nil
}

func (s *Store) CountZoneMembers(ctx context.Context, zoneID string) (int64, error) {
	defer s.lock()()
	var total int64
	for _, m := range s.st.members {
		if m.ZoneID == zoneID {
			total++
		}
	}
	return total, nil
}

func (s *Store) ListRestaurantsByZone(ctx context.Context, zoneID string) ([]models.Restaurant, error) {
	defer s.lock()()
	var items []models.Restaurant
	for _, r := range s.st.restaurants {
		if r.ZoneID == zoneID && r.Active {
			items = append(items, r)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// --- cycles -----------------------------------------------------------------

func (s *Store) GetCycle(ctx context.Context, id string) (*models.Cycle, error) {
	defer s.lock()()
	item, ok := s.st.cycles[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) GetCycleByZoneDate(ctx context.Context, zoneID, date string) (*models.Cycle, error) {
	defer s.lock()()
	for _, c := range s.st.cycles {
		if c.ZoneID == zoneID && c.Date == date {
			item := c
			return &item, nil
		}
	}
	return nil, nil
}

func (s *Store) ListCycles(ctx context.Context, params repository.ListCyclesParams) ([]models.Cycle, error) {
	defer s.lock()()
	var items []models.Cycle
	for _, c := range s.st.cycles {
		if params.ZoneID != nil && *params.ZoneID != "" && c.ZoneID != *params.ZoneID {
			continue
		}
		if params.Phase != nil && *params.Phase != "" && !strings.EqualFold(c.Phase, *params.Phase) {
			continue
		}
		if params.Since != nil && *params.Since != "" && c.Date < *params.Since {
			continue
		}
		items = append(items, c)
	}
	asc := params.Asc != nil && *params.Asc
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date == items[j].Date {
			return items[i].ID < items[j].ID
		}
		if asc {
			return items[i].Date < items[j].Date
		}
		return items[i].Date > items[j].Date
	})
	return page(items, params.Limit, params.Offset), nil
}

func (s *Store) CreateCycle(ctx context.Context, item *models.Cycle) error {
	defer s.lock()()
	if item == nil {
		return nil
	}
	if err := s.fault("CreateCycle", item.ZoneID); err != nil {
		return err
	}
	for _, c := range s.st.cycles {
		if c.ZoneID == item.ZoneID && c.Date == item.Date {
			return fmt.Errorf("cycle %s/%s: %w", item.ZoneID, item.Date, repository.ErrDuplicate)
		}
	}
	ensureID(&item.ID)
	if item.Phase == "" {
		item.Phase = models.PhaseSuggesting
	}
	stamp(&item.PhaseChangedAt)
	stamp(&item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	s.st.cycles[item.ID] = *item
	s.st.touch(item.ID)
	return nil
}

func (s *Store) UpdateCyclePhase(ctx context.Context, id, from, to string, at time.Time, updates map[string]any) error {
	defer s.lock()()
	if err := s.fault("UpdateCyclePhase", id); err != nil {
		return err
	}
	c, ok := s.st.cycles[id]
	if !ok || c.Phase != from {
		return fmt.Errorf("cycle %s %s->%s: %w", id, from, to, repository.ErrPhaseConflict)
	}
	stamp(&at)
	for k, v := range updates {
		switch k {
		case "winning_dish_id":
			c.WinningDishID = stringPtrValue(v)
		case "winning_bid_id":
			c.WinningBidID = stringPtrValue(v)
		default:
			return fmt.Errorf("memstore: unsupported cycle column %q", k)
		}
	}
	c.Phase = to
	c.PhaseChangedAt = at
	c.UpdatedAt = at
	s.st.cycles[id] = c
	return nil
}

func stringPtrValue(v any) *string {
	switch val := v.(type) {
	case string:
		return &val
	case *string:
		if val == nil {
			return nil
		}
		out := *val
		return &out
	default:
		return nil
	}
}

func (s *Store) SetWinningBid(ctx context.Context, cycleID, bidID string) error {
	defer s.lock()()
	c, ok := s.st.cycles[cycleID]
	if !ok {
		return fmt.Errorf("cycle %s: %w", cycleID, repository.ErrNotFound)
	}
	c.WinningBidID = &bidID
	c.UpdatedAt = time.Now().UTC()
	s.st.cycles[cycleID] = c
	return nil
}

func (s *Store) InsertPhaseTransition(ctx context.Context, item *models.PhaseTransition) error {
	defer s.lock()()
	if item == nil {
		return nil
	}
	s.st.nextID++
	item.ID = s.st.nextID
	stamp(&item.CreatedAt)
	s.st.transitions = append(s.st.transitions, *item)
	return nil
}

func (s *Store) ListPhaseTransitions(ctx context.Context, cycleID string, limit int) ([]models.PhaseTransition, error) {
	defer s.lock()()
	var items []models.PhaseTransition
	for _, t := range s.st.transitions {
		if t.CycleID == cycleID {
			items = append(items, t)
		}
	}
	return page(items, limit, 0), nil
}

// --- dishes -----------------------------------------------------------------

func (s *Store) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	defer s.lock()()
	item, ok := s.st.dishes[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListDishesByCycle(ctx context.Context, cycleID string) ([]models.Dish, error) {
	defer s.lock()()
	var items []models.Dish
	for _, d := range s.st.dishes {
		if d.CycleID == cycleID {
			items = append(items, d)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return s.st.before(items[i].ID, items[i].CreatedAt, items[j].ID, items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ReplaceDishes(ctx context.Context, cycleID string, items []models.Dish) error {
	defer s.lock()()
	if err := s.fault("ReplaceDishes", cycleID); err != nil {
		return err
	}
	for id, d := range s.st.dishes {
		if d.CycleID == cycleID {
			delete(s.st.dishes, id)
		}
	}
	for i := range items {
		items[i].CycleID = cycleID
		ensureID(&items[i].ID)
		stamp(&items[i].CreatedAt)
		items[i].UpdatedAt = items[i].CreatedAt
		s.st.dishes[items[i].ID] = items[i]
		s.st.touch(items[i].ID)
	}
	return nil
}

func (s *Store) UpdateDishScores(ctx context.Context, dishID string, scores repository.DishScores) error {
	defer s.lock()()
	if err := s.fault("UpdateDishScores", dishID); err != nil {
		return err
	}
	d, ok := s.st.dishes[dishID]
	if !ok {
		return fmt.Errorf("dish %s: %w", dishID, repository.ErrNotFound)
	}
	d.QualityPrediction = floatPtr(scores.QualityPrediction)
	d.FreshnessScore = floatPtr(scores.FreshnessScore)
	d.VarietyScore = floatPtr(scores.VarietyScore)
	d.WasteRisk = floatPtr(scores.WasteRisk)
	d.OptimizationScore = floatPtr(scores.OptimizationScore)
	d.UpdatedAt = time.Now().UTC()
	s.st.dishes[dishID] = d
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func (s *Store) ListRecentWinningDishes(ctx context.Context, zoneID, excludeCycleID string, limit int) ([]models.Dish, error) {
	defer s.lock()()
	var cycles []models.Cycle
	for _, c := range s.st.cycles {
		if c.ZoneID != zoneID || c.ID == excludeCycleID || c.WinningDishID == nil {
			continue
		}
		cycles = append(cycles, c)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Date > cycles[j].Date })
	var items []models.Dish
	for _, c := range cycles {
		d, ok := s.st.dishes[*c.WinningDishID]
		if !ok {
			continue
		}
		items = append(items, d)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) AverageQualityByCuisine(ctx context.Context, zoneID string) (map[string]float64, error) {
	defer s.lock()()
	if err := s.fault("AverageQualityByCuisine", zoneID); err != nil {
		return nil, err
	}
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, q := range s.st.quality {
		o, ok := s.st.orders[q.OrderID]
		if !ok || o.Status != models.OrderDelivered {
			continue
		}
		c, ok := s.st.cycles[o.CycleID]
		if !ok || c.ZoneID != zoneID || c.WinningDishID == nil {
			continue
		}
		d, ok := s.st.dishes[*c.WinningDishID]
		if !ok {
			continue
		}
		key := strings.ToLower(d.Cuisine)
		sums[key] += q.Overall
		counts[key]++
	}
	out := make(map[string]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out, nil
}

func (s *Store) AverageOrderCount(ctx context.Context, zoneID string, limit int) (float64, error) {
	defer s.lock()()
	var cycles []models.Cycle
	for _, c := range s.st.cycles {
		if c.ZoneID == zoneID && c.Phase == models.PhaseCompleted {
			cycles = append(cycles, c)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Date > cycles[j].Date })
	cycles = page(cycles, limit, 0)
	if len(cycles) == 0 {
		return 0, nil
	}
	total := 0
	for _, c := range cycles {
		for _, o := range s.st.orders {
			if o.CycleID == c.ID && o.Status != models.OrderCancelled {
				total++
			}
		}
	}
	return float64(total) / float64(len(cycles)), nil
}

// --- bids -------------------------------------------------------------------

func (s *Store) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	defer s.lock()()
	item, ok := s.st.bids[id]
	if !ok {
		return nil, nil
	}
	item.Restaurant = s.st.restaurants[item.RestaurantID]
	return &item, nil
}

func (s *Store) ListBidsByCycle(ctx context.Context, cycleID string, status *string) ([]models.Bid, error) {
	defer s.lock()()
	var items []models.Bid
	for _, b := range s.st.bids {
		if b.CycleID != cycleID {
			continue
		}
		if status != nil && *status != "" && !strings.EqualFold(b.Status, *status) {
			continue
		}
		b.Restaurant = s.st.restaurants[b.RestaurantID]
		items = append(items, b)
	}
	sort.Slice(items, func(i, j int) bool {
		return s.st.before(items[i].ID, items[i].CreatedAt, items[j].ID, items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) UpdateBidOutcomes(ctx context.Context, outcomes []repository.BidOutcome) error {
	defer s.lock()()
	for _, o := range outcomes {
		if err := s.fault("UpdateBidOutcomes", o.BidID); err != nil {
			return err
		}
		if _, ok := s.st.bids[o.BidID]; !ok {
			return fmt.Errorf("bid %s: %w", o.BidID, repository.ErrNotFound)
		}
	}
	now := time.Now().UTC()
	for _, o := range outcomes {
		b := s.st.bids[o.BidID]
		b.Status = o.Status
		b.Score = floatPtr(o.Score)
		b.UpdatedAt = now
		s.st.bids[o.BidID] = b
	}
	return nil
}

func (s *Store) CountActiveOrdersByRestaurant(ctx context.Context, restaurantIDs []string) (map[string]int64, error) {
	defer s.lock()()
	wanted := map[string]struct{}{}
	for _, id := range restaurantIDs {
		wanted[id] = struct{}{}
	}
	out := map[string]int64{}
	for _, o := range s.st.orders {
		if _, ok := wanted[o.RestaurantID]; !ok {
			continue
		}
		switch o.Status {
		case models.OrderPending, models.OrderConfirmed, models.OrderReady:
			out[o.RestaurantID]++
		}
	}
	return out, nil
}

// --- sourcing ---------------------------------------------------------------

func (s *Store) ListZoneInventory(ctx context.Context, zoneID string) ([]models.InventoryItem, error) {
	defer s.lock()()
	var items []models.InventoryItem
	for _, it := range s.st.inventory {
		sup, ok := s.st.suppliers[it.SupplierID]
		if !ok || sup.ZoneID != zoneID || !sup.Active || !it.QuantityAvailable.IsPositive() {
			continue
		}
		it.Supplier = sup
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].IngredientName != items[j].IngredientName {
			return items[i].IngredientName < items[j].IngredientName
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Store) CreatePurchaseOrders(ctx context.Context, items []models.PurchaseOrder) error {
	defer s.lock()()
	if err := s.fault("CreatePurchaseOrders", ""); err != nil {
		return err
	}
	for _, po := range items {
		for _, existing := range s.st.purchaseOrders {
			if existing.CycleID == po.CycleID && existing.SupplierID == po.SupplierID {
				return fmt.Errorf("purchase order %s/%s: %w", po.CycleID, po.SupplierID, repository.ErrDuplicate)
			}
		}
	}
	for i := range items {
		po := &items[i]
		ensureID(&po.ID)
		if po.Status == "" {
			po.Status = models.PurchaseOrderPending
		}
		stamp(&po.CreatedAt)
		po.UpdatedAt = po.CreatedAt
		lines := make([]models.PurchaseOrderItem, len(po.Items))
		for j := range po.Items {
			ensureID(&po.Items[j].ID)
			po.Items[j].PurchaseOrderID = po.ID
			lines[j] = po.Items[j]
		}
		stored := *po
		stored.Items = lines
		s.st.purchaseOrders[po.ID] = stored
		s.st.touch(po.ID)
	}
	return nil
}

func (s *Store) ListPurchaseOrdersByCycle(ctx context.Context, cycleID string) ([]models.PurchaseOrder, error) {
	defer s.lock()()
	var items []models.PurchaseOrder
	for _, po := range s.st.purchaseOrders {
		if po.CycleID == cycleID {
			po.Items = append([]models.PurchaseOrderItem(nil), po.Items...)
			items = append(items, po)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return s.st.before(items[i].ID, items[i].CreatedAt, items[j].ID, items[j].CreatedAt)
	})
	return items, nil
}

// --- settings ---------------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	defer s.lock()()
	if item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	now := time.Now().UTC()
	if existing, ok := s.st.settings[item.Key]; ok {
		existing.Value = item.Value
		existing.Description = item.Description
		existing.UpdatedAt = now
		s.st.settings[item.Key] = existing
		return nil
	}
	s.st.nextID++
	item.ID = s.st.nextID
	stamp(&item.CreatedAt)
	item.UpdatedAt = now
	s.st.settings[item.Key] = *item
	return nil
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	defer s.lock()()
	item, ok := s.st.settings[strings.TrimSpace(key)]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	defer s.lock()()
	return page(s.filterSettings(params), params.Limit, params.Offset), nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	defer s.lock()()
	return int64(len(s.filterSettings(params))), nil
}

func (s *Store) filterSettings(params repository.ListSystemSettingsParams) []models.SystemSetting {
	var items []models.SystemSetting
	for key, it := range s.st.settings {
		if params.Prefix != nil && !strings.HasPrefix(key, *params.Prefix) {
			continue
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}

var (
	_ repository.Repository     = (*Store)(nil)
	_ repository.SeedRepository = (*Store)(nil)
)
