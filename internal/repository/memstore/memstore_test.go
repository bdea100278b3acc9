package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

func TestInTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	cycle := &models.Cycle{ZoneID: "z-1", Date: "2026-10-14"}
	require.NoError(t, s.CreateCycle(ctx, cycle))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Repository) error {
		if err := tx.UpdateCyclePhase(ctx, cycle.ID, models.PhaseSuggesting, models.PhaseVoting, cycle.CreatedAt, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetCycle(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseSuggesting, got.Phase)
}

func TestInTx_CommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	cycle := &models.Cycle{ZoneID: "z-1", Date: "2026-10-14"}
	require.NoError(t, s.CreateCycle(ctx, cycle))

	require.NoError(t, s.InTx(ctx, func(tx repository.Repository) error {
		return tx.UpdateCyclePhase(ctx, cycle.ID, models.PhaseSuggesting, models.PhaseVoting, cycle.CreatedAt, nil)
	}))

	got, _ := s.GetCycle(ctx, cycle.ID)
	assert.Equal(t, models.PhaseVoting, got.Phase)
}

func TestCreateCycle_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateCycle(ctx, &models.Cycle{ZoneID: "z-1", Date: "2026-10-14"}))
	err := s.CreateCycle(ctx, &models.Cycle{ZoneID: "z-1", Date: "2026-10-14"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestUpdateCyclePhase_Conflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	cycle := &models.Cycle{ZoneID: "z-1", Date: "2026-10-14"}
	require.NoError(t, s.CreateCycle(ctx, cycle))

	err := s.UpdateCyclePhase(ctx, cycle.ID, models.PhaseVoting, models.PhaseBidding, cycle.CreatedAt, nil)
	assert.ErrorIs(t, err, repository.ErrPhaseConflict)
}

func TestUpdateBidOutcomes_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	bid := &models.Bid{CycleID: "c-1", RestaurantID: "r-1"}
	require.NoError(t, s.CreateBid(ctx, bid))

	err := s.UpdateBidOutcomes(ctx, []repository.BidOutcome{
		{BidID: bid.ID, Status: models.BidWon, Score: 1},
		{BidID: "missing", Status: models.BidLost},
	})
	require.ErrorIs(t, err, repository.ErrNotFound)

	got, _ := s.GetBid(ctx, bid.ID)
	assert.Equal(t, models.BidPending, got.Status)
	assert.Nil(t, got.Score)
}

func TestInjectFault(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.ReplaceDishes(ctx, "c-1", []models.Dish{{ID: "d-1", Name: "Pad Thai"}}))

	s.InjectFault("UpdateDishScores", func(key string) error {
		if key == "d-1" {
			return errors.New("disk full")
		}
		return nil
	})
	assert.Error(t, s.UpdateDishScores(ctx, "d-1", repository.DishScores{}))

	s.InjectFault("UpdateDishScores", nil)
	assert.NoError(t, s.UpdateDishScores(ctx, "d-1", repository.DishScores{OptimizationScore: 0.5}))
}
