package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattdomit/dotted-sub000/internal/ai"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository/memstore"
)

func sweepWorld(t *testing.T, names ...string) (*Orchestrator, *memstore.Store, *fakeSuggester, map[string]*models.Zone) {
	t.Helper()
	store := memstore.New()
	zones := map[string]*models.Zone{}
	for _, name := range names {
		z := seedZone(t, store, name)
		seedRestaurants(t, store, z.ID)
		zones[name] = z
	}
	sug := &fakeSuggester{dishes: menu()}
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	o := &Orchestrator{
		Repo:      store,
		Suggester: sug,
		Now:       func() time.Time { return now },
		Sweep:     SweepOptions{Concurrency: 2},
	}
	return o, store, sug, zones
}

func resultFor(t *testing.T, report SweepReport, zoneID string) SweepResult {
	t.Helper()
	for _, r := range report.Results {
		if r.ZoneID == zoneID {
			return r
		}
	}
	t.Fatalf("no sweep result for zone %s", zoneID)
	return SweepResult{}
}

func TestRunDailySweep_VotingCreatesCycles(t *testing.T) {
	ctx := context.Background()
	o, store, _, zones := sweepWorld(t, "North", "South")

	report, err := o.RunDailySweep(ctx, "voting")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseVoting, report.Target)
	assert.Equal(t, 2, report.Advanced)
	assert.Zero(t, report.Failed)

	for _, z := range zones {
		c, err := store.GetCycleByZoneDate(ctx, z.ID, "2026-10-14")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, models.PhaseVoting, c.Phase)

		audit, _ := store.ListPhaseTransitions(ctx, c.ID, 0)
		require.Len(t, audit, 1)
		assert.Equal(t, TriggerSweep, audit[0].Trigger)
	}

	again, err := o.RunDailySweep(ctx, models.PhaseVoting)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped)
	assert.Zero(t, again.Advanced)
}

func TestRunDailySweep_LaterPhasesDoNotCreateCycles(t *testing.T) {
	ctx := context.Background()
	o, store, _, zones := sweepWorld(t, "North")

	report, err := o.RunDailySweep(ctx, models.PhaseBidding)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	c, err := store.GetCycleByZoneDate(ctx, zones["North"].ID, "2026-10-14")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRunDailySweep_FailureStaysInItsZone(t *testing.T) {
	ctx := context.Background()
	o, store, sug, zones := sweepWorld(t, "North", "South", "East")
	sug.failZone = "South"
	store.InjectFault("CreateCycle", func(zoneID string) error {
		if zoneID == zones["East"].ID {
			return errors.New("connection reset")
		}
		return nil
	})

	report, err := o.RunDailySweep(ctx, models.PhaseVoting)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Advanced)
	assert.Equal(t, 2, report.Failed)

	assert.Equal(t, SweepAdvanced, resultFor(t, report, zones["North"].ID).Status)
	south := resultFor(t, report, zones["South"].ID)
	assert.Equal(t, SweepFailed, south.Status)
	assert.Equal(t, models.PhaseSuggesting, south.Phase)
	assert.Contains(t, south.Reason, "suggestion")
	assert.Contains(t, resultFor(t, report, zones["East"].ID).Reason, "connection reset")
}

func TestRunDailySweep_SkipsUnreachablePhase(t *testing.T) {
	ctx := context.Background()
	o, store, _, zones := sweepWorld(t, "North")
	c := &models.Cycle{ZoneID: zones["North"].ID, Date: "2026-10-14"}
	require.NoError(t, store.CreateCycle(ctx, c))

	report, err := o.RunDailySweep(ctx, models.PhaseSourcing)
	require.NoError(t, err)
	r := resultFor(t, report, zones["North"].ID)
	assert.Equal(t, SweepSkipped, r.Status)
	assert.Equal(t, c.ID, r.CycleID)
	assert.Contains(t, r.Reason, models.PhaseSuggesting)
}

func TestRunDailySweep_UsesZoneTimezone(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ceiling := qty("15")
	zone := &models.Zone{Name: "Pacific", Active: true, Timezone: "America/Los_Angeles", MaxPricePerPlate: &ceiling}
	require.NoError(t, store.CreateZone(ctx, zone))
	fallback := &models.Zone{Name: "Tokyo", Active: true}
	require.NoError(t, store.CreateZone(ctx, fallback))

	o := &Orchestrator{
		Repo:      store,
		Suggester: &fakeSuggester{dishes: []ai.DishSuggestion{{Name: "Soup", Cuisine: "x", EstimatedCost: qty("5")}}},
		Now:       func() time.Time { return time.Date(2026, 10, 14, 2, 30, 0, 0, time.UTC) },
		Sweep:     SweepOptions{DefaultTimezone: "Asia/Tokyo"},
	}
	report, err := o.RunDailySweep(ctx, models.PhaseVoting)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-13", resultFor(t, report, zone.ID).Date)
	assert.Equal(t, "2026-10-14", resultFor(t, report, fallback.ID).Date)
}

func TestRunDailySweep_InvalidTarget(t *testing.T) {
	o, _, _, _ := sweepWorld(t)
	_, err := o.RunDailySweep(context.Background(), "LUNCH")
	assert.ErrorIs(t, err, ErrUnknownPhase)
}

func TestRunDailySweep_IgnoresInactiveZones(t *testing.T) {
	ctx := context.Background()
	o, store, _, _ := sweepWorld(t, "North")
	require.NoError(t, store.CreateZone(ctx, &models.Zone{Name: "Closed", Active: false}))

	report, err := o.RunDailySweep(ctx, models.PhaseVoting)
	require.NoError(t, err)
	assert.Len(t, report.Results, 1)
}
