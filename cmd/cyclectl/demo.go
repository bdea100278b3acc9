package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
	"github.com/mattdomit/dotted-sub000/internal/repository"
	"github.com/mattdomit/dotted-sub000/internal/repository/memstore"
	"github.com/mattdomit/dotted-sub000/internal/seed"
)

type demoZone struct {
	Zone              string `json:"zone"`
	CycleID           string `json:"cycle_id,omitempty"`
	Phase             string `json:"phase"`
	WinningDish       string `json:"winning_dish,omitempty"`
	Votes             int    `json:"votes"`
	Bids              int    `json:"bids"`
	WinningRestaurant string `json:"winning_restaurant,omitempty"`
	PurchaseOrders    int    `json:"purchase_orders"`
	SourcingCost      string `json:"sourcing_cost"`
}

type demoSweep struct {
	Target   string `json:"target"`
	Advanced int    `json:"advanced"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

type demoReport struct {
	Seed   seed.Summary `json:"seed"`
	Sweeps []demoSweep  `json:"sweeps"`
	Zones  []demoZone   `json:"zones"`
}

var demoPhases = []string{
	models.PhaseVoting,
	models.PhaseBidding,
	models.PhaseSourcing,
	models.PhaseOrdering,
	models.PhaseCompleted,
}

func (c *cli) demoCmd() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run one full day for seeded zones in memory with a canned menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := opts.fixture(c)
			if err != nil {
				return err
			}
			report, err := c.runDemo(cmd, fx, opts.generate.Seed, opts.quiet)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	opts.bind(cmd)
	return cmd
}

func (c *cli) runDemo(cmd *cobra.Command, fx seed.Fixture, randomSeed int64, quiet bool) (demoReport, error) {
	ctx := commandContext(cmd)
	repo := memstore.New()
	var report demoReport

	sum, err := applyFixture(cmd, repo, fx, quiet)
	if err != nil {
		return report, err
	}
	report.Seed = sum

	menu, err := fx.Suggestions()
	if err != nil {
		return report, err
	}
	orch := c.orchestrator(repo, seed.Suggester{Dishes: menu})
	fake := faker.NewWithSeed(rand.NewSource(randomSeed))

	for _, phase := range demoPhases {
		switch phase {
		case models.PhaseBidding:
			if err := castVotes(ctx, repo, fake); err != nil {
				return report, err
			}
		case models.PhaseSourcing:
			if err := placeBids(ctx, repo, fake); err != nil {
				return report, err
			}
		}
		sweep, err := orch.RunDailySweep(ctx, phase)
		if err != nil {
			return report, err
		}
		for _, r := range sweep.Results {
			if r.Status == orchestrator.SweepFailed {
				c.logger.Warn("demo zone failed", zap.String("zone", r.ZoneName), zap.String("target", phase), zap.String("reason", r.Reason))
			}
		}
		report.Sweeps = append(report.Sweeps, demoSweep{Target: sweep.Target, Advanced: sweep.Advanced, Skipped: sweep.Skipped, Failed: sweep.Failed})
	}

	zones, err := summarizeZones(ctx, repo)
	if err != nil {
		return report, err
	}
	report.Zones = zones
	return report, nil
}

// todaysCycles returns the latest cycle of every zone of the store.
func todaysCycles(ctx context.Context, repo store) ([]models.Cycle, error) {
	zones, err := repo.ListZones(ctx, zonesAll())
	if err != nil {
		return nil, err
	}
	var out []models.Cycle
	for _, z := range zones {
		cycles, err := repo.ListCycles(ctx, cyclesOf(z.ID))
		if err != nil {
			return nil, err
		}
		if len(cycles) > 0 {
			out = append(out, cycles[0])
		}
	}
	return out, nil
}

func castVotes(ctx context.Context, repo store, fake faker.Faker) error {
	cycles, err := todaysCycles(ctx, repo)
	if err != nil {
		return err
	}
	for _, cycle := range cycles {
		if cycle.Phase != models.PhaseVoting {
			continue
		}
		dishes, err := repo.ListDishesByCycle(ctx, cycle.ID)
		if err != nil {
			return err
		}
		if len(dishes) == 0 {
			continue
		}
		members, err := repo.CountZoneMembers(ctx, cycle.ZoneID)
		if err != nil {
			return err
		}
		for i := int64(0); i < members; i++ {
			pick := dishes[fake.IntBetween(0, len(dishes)-1)]
			if err := repo.IncrementDishVotes(ctx, pick.ID, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

func placeBids(ctx context.Context, repo store, fake faker.Faker) error {
	cycles, err := todaysCycles(ctx, repo)
	if err != nil {
		return err
	}
	for _, cycle := range cycles {
		if cycle.Phase != models.PhaseBidding || cycle.WinningDishID == nil {
			continue
		}
		dish, err := repo.GetDish(ctx, *cycle.WinningDishID)
		if err != nil {
			return err
		}
		if dish == nil {
			return fmt.Errorf("cycle %s: winning dish %s missing", cycle.ID, *cycle.WinningDishID)
		}
		restaurants, err := repo.ListRestaurantsByZone(ctx, cycle.ZoneID)
		if err != nil {
			return err
		}
		for _, r := range restaurants {
			markup := decimal.NewFromFloat(fake.Float64(2, 110, 180) / 100)
			bid := &models.Bid{
				CycleID:            cycle.ID,
				RestaurantID:       r.ID,
				PricePerPlate:      dish.EstimatedCost.Mul(markup).Round(2),
				PrepTimeMinutes:    fake.IntBetween(15, 60),
				MaxCapacity:        fake.IntBetween(10, 80),
				ServiceFeeAccepted: fake.Bool(),
			}
			if err := repo.CreateBid(ctx, bid); err != nil {
				return err
			}
		}
	}
	return nil
}

func summarizeZones(ctx context.Context, repo store) ([]demoZone, error) {
	zones, err := repo.ListZones(ctx, zonesAll())
	if err != nil {
		return nil, err
	}
	out := make([]demoZone, 0, len(zones))
	for _, z := range zones {
		row := demoZone{Zone: z.Name, Phase: "-", SourcingCost: "0"}
		cycles, err := repo.ListCycles(ctx, cyclesOf(z.ID))
		if err != nil {
			return nil, err
		}
		if len(cycles) == 0 {
			out = append(out, row)
			continue
		}
		cycle := cycles[0]
		row.CycleID = cycle.ID
		row.Phase = cycle.Phase

		if cycle.WinningDishID != nil {
			if dish, err := repo.GetDish(ctx, *cycle.WinningDishID); err == nil && dish != nil {
				row.WinningDish = dish.Name
				row.Votes = dish.VoteCount
			}
		}
		bids, err := repo.ListBidsByCycle(ctx, cycle.ID, nil)
		if err != nil {
			return nil, err
		}
		row.Bids = len(bids)
		for _, b := range bids {
			if b.Status == models.BidWon {
				row.WinningRestaurant = b.Restaurant.Name
			}
		}
		orders, err := repo.ListPurchaseOrdersByCycle(ctx, cycle.ID)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, po := range orders {
			total = total.Add(po.TotalCost)
		}
		row.PurchaseOrders = len(orders)
		row.SourcingCost = total.StringFixed(2)
		out = append(out, row)
	}
	return out, nil
}

func zonesAll() repository.ListZonesParams {
	return repository.ListZonesParams{Limit: 500}
}

// cyclesOf lists a zone's cycles newest first.
func cyclesOf(zoneID string) repository.ListCyclesParams {
	return repository.ListCyclesParams{Limit: 1, ZoneID: &zoneID}
}
