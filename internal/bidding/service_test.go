package bidding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
	"github.com/mattdomit/dotted-sub000/internal/repository/memstore"
)

type fixture struct {
	store *memstore.Store
	cycle *models.Cycle
	bids  map[string]*models.Bid
}

type bidSpec struct {
	name      string
	price     float64
	equipment []string
}

func newFixture(t *testing.T, specs ...bidSpec) fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	zone := &models.Zone{Name: "Downtown", Active: true}
	require.NoError(t, store.CreateZone(ctx, zone))
	for i := 0; i < 10; i++ {
		require.NoError(t, store.AddZoneMember(ctx, &models.ZoneMember{ZoneID: zone.ID, UserID: models.NewID()}))
	}
	cycle := &models.Cycle{ZoneID: zone.ID, Date: "2026-10-14", Phase: models.PhaseBidding}
	require.NoError(t, store.CreateCycle(ctx, cycle))

	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	f := fixture{store: store, cycle: cycle, bids: map[string]*models.Bid{}}
	for i, spec := range specs {
		r := &models.Restaurant{ZoneID: zone.ID, Name: spec.name, Active: true, Rating: 4, Equipment: spec.equipment}
		require.NoError(t, store.CreateRestaurant(ctx, r))
		b := &models.Bid{
			CycleID:         cycle.ID,
			RestaurantID:    r.ID,
			PricePerPlate:   decimal.NewFromFloat(spec.price),
			PrepTimeMinutes: 30,
			MaxCapacity:     20,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.CreateBid(ctx, b))
		f.bids[spec.name] = b
	}
	return f
}

func TestScoreBids_ExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bidSpec{name: "Basil", price: 15}, bidSpec{name: "Clove", price: 12}, bidSpec{name: "Sage", price: 18})
	svc := &Service{Repo: f.store}

	res, err := svc.ScoreBids(ctx, f.cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bids["Clove"].ID, res.WinningBidID)
	assert.Equal(t, "Clove", res.RestaurantName)

	bids, err := f.store.ListBidsByCycle(ctx, f.cycle.ID, nil)
	require.NoError(t, err)
	won := 0
	for _, b := range bids {
		require.NotNil(t, b.Score)
		if b.Status == models.BidWon {
			won++
			assert.Equal(t, res.WinningBidID, b.ID)
		} else {
			assert.Equal(t, models.BidLost, b.Status)
		}
	}
	assert.Equal(t, 1, won)

	cycle, err := f.store.GetCycle(ctx, f.cycle.ID)
	require.NoError(t, err)
	require.NotNil(t, cycle.WinningBidID)
	assert.Equal(t, res.WinningBidID, *cycle.WinningBidID)
}

func TestScoreBids_NoPendingBids(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := &Service{Repo: f.store}

	_, err := svc.ScoreBids(ctx, f.cycle.ID)
	require.ErrorIs(t, err, ErrNoPendingBids)

	cycle, _ := f.store.GetCycle(ctx, f.cycle.ID)
	assert.Nil(t, cycle.WinningBidID)
}

func TestScoreBids_RollsBackWhenOutcomeWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bidSpec{name: "Basil", price: 15}, bidSpec{name: "Clove", price: 12})
	f.store.InjectFault("UpdateBidOutcomes", func(key string) error {
		if key == f.bids["Clove"].ID {
			return errors.New("write failed")
		}
		return nil
	})
	svc := &Service{Repo: f.store}

	_, err := svc.ScoreBids(ctx, f.cycle.ID)
	require.Error(t, err)

	pending := models.BidPending
	bids, err := f.store.ListBidsByCycle(ctx, f.cycle.ID, &pending)
	require.NoError(t, err)
	assert.Len(t, bids, 2)
}

func TestScoreBids_UnknownCycle(t *testing.T) {
	svc := &Service{Repo: memstore.New()}
	_, err := svc.ScoreBids(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCycleNotFound)
}

func TestScoreBidsTx_UsesWinningDishEquipment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		bidSpec{name: "Basil", price: 10},
		bidSpec{name: "Clove", price: 14, equipment: []string{"Wok"}},
	)
	require.NoError(t, f.store.ReplaceDishes(ctx, f.cycle.ID, []models.Dish{
		{ID: "d-1", Name: "Pad Thai", Cuisine: "Thai", Equipment: []string{"wok"}},
	}))
	require.NoError(t, f.store.UpdateCyclePhase(ctx, f.cycle.ID, models.PhaseBidding, models.PhaseBidding,
		time.Now(), map[string]any{"winning_dish_id": "d-1"}))

	svc := &Service{Repo: f.store}
	var res Result
	require.NoError(t, f.store.InTx(ctx, func(tx repository.Repository) error {
		var err error
		res, err = svc.ScoreBidsTx(ctx, tx, f.cycle.ID)
		return err
	}))
	assert.Equal(t, f.bids["Clove"].ID, res.WinningBidID)
}
