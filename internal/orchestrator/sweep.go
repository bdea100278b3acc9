package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

const (
	defaultSweepConcurrency = 4
	zonePageSize            = 200
	dateLayout              = "2006-01-02"
)

const (
	SweepAdvanced = "advanced"
	SweepSkipped  = "skipped"
	SweepFailed   = "failed"
)

type SweepOptions struct {
	Concurrency     int
	DefaultTimezone string
	// ZoneTimeout bounds the lookups done for a zone before its transition
	// starts. Zero means no bound.
	ZoneTimeout time.Duration
}

type SweepResult struct {
	ZoneID   string `json:"zone_id"`
	ZoneName string `json:"zone_name"`
	Date     string `json:"date"`
	CycleID  string `json:"cycle_id,omitempty"`
	Status   string `json:"status"`
	Phase    string `json:"phase,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type SweepReport struct {
	Target     string        `json:"target"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Advanced   int           `json:"advanced"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Results    []SweepResult `json:"results"`
}

// RunDailySweep advances today's cycle of every active zone to target. Each
// zone runs on its own and its failure never reaches the others. Only a
// VOTING sweep creates missing cycles.
func (o *Orchestrator) RunDailySweep(ctx context.Context, target string) (SweepReport, error) {
	report := SweepReport{StartedAt: o.now()}
	target, err := ParsePhase(target)
	if err != nil {
		return report, err
	}
	report.Target = target
	log := o.logger().With(zap.String("target", target))

	zones, err := o.activeZones(ctx)
	if err != nil {
		return report, err
	}

	limit := o.Sweep.Concurrency
	if limit <= 0 {
		limit = defaultSweepConcurrency
	}
	results := make([]SweepResult, len(zones))
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range zones {
		i, zone := i, zones[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("sweep zone panic", zap.String("zone_id", zone.ID), zap.Any("panic", r))
					results[i] = SweepResult{ZoneID: zone.ID, ZoneName: zone.Name, Status: SweepFailed, Reason: fmt.Sprintf("panic: %v", r)}
				}
			}()
			results[i] = o.sweepZone(ctx, zone, target)
			return nil
		})
	}
	_ = g.Wait()

	report.Results = results
	for _, r := range results {
		switch r.Status {
		case SweepAdvanced:
			report.Advanced++
		case SweepSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
		if r.Status == SweepFailed {
			log.Warn("sweep zone failed", zap.String("zone_id", r.ZoneID), zap.String("date", r.Date), zap.String("reason", r.Reason))
		}
	}
	report.FinishedAt = o.now()
	log.Info("daily sweep finished",
		zap.Int("zones", len(zones)),
		zap.Int("advanced", report.Advanced),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (o *Orchestrator) sweepZone(ctx context.Context, zone models.Zone, target string) SweepResult {
	res := SweepResult{ZoneID: zone.ID, ZoneName: zone.Name}
	loc := o.zoneLocation(zone)
	res.Date = o.now().In(loc).Format(dateLayout)

	lookupCtx := ctx
	if o.Sweep.ZoneTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, o.Sweep.ZoneTimeout)
		defer cancel()
	}
	cycle, err := o.findOrCreateCycle(lookupCtx, zone.ID, res.Date, target == models.PhaseVoting)
	if err != nil {
		res.Status, res.Reason = SweepFailed, err.Error()
		return res
	}
	if cycle == nil {
		res.Status, res.Reason = SweepSkipped, "no cycle for today"
		return res
	}
	res.CycleID = cycle.ID
	res.Phase = cycle.Phase
	if cycle.Phase == target {
		res.Status, res.Reason = SweepSkipped, "already in target phase"
		return res
	}
	if !CanTransition(cycle.Phase, target) {
		res.Status, res.Reason = SweepSkipped, fmt.Sprintf("cannot move from %s", cycle.Phase)
		return res
	}

	updated, err := o.advance(ctx, cycle.ID, target, TriggerSweep)
	switch {
	case errors.Is(err, ErrTransitionInProgress):
		res.Status, res.Reason = SweepSkipped, err.Error()
	case err != nil:
		res.Status, res.Reason = SweepFailed, err.Error()
	default:
		res.Status = SweepAdvanced
		res.Phase = updated.Phase
	}
	return res
}

func (o *Orchestrator) findOrCreateCycle(ctx context.Context, zoneID, date string, create bool) (*models.Cycle, error) {
	cycle, err := o.Repo.GetCycleByZoneDate(ctx, zoneID, date)
	if err != nil || cycle != nil || !create {
		return cycle, err
	}
	cycle = &models.Cycle{ZoneID: zoneID, Date: date, Phase: models.PhaseSuggesting, PhaseChangedAt: o.now()}
	err = o.Repo.CreateCycle(ctx, cycle)
	if errors.Is(err, repository.ErrDuplicate) {
		return o.Repo.GetCycleByZoneDate(ctx, zoneID, date)
	}
	if err != nil {
		return nil, err
	}
	o.logger().Info("cycle created", zap.String("zone_id", zoneID), zap.String("date", date), zap.String("cycle_id", cycle.ID))
	return cycle, nil
}

func (o *Orchestrator) zoneLocation(zone models.Zone) *time.Location {
	for _, name := range []string{zone.Timezone, o.Sweep.DefaultTimezone} {
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err == nil {
			return loc
		}
		o.logger().Warn("invalid zone timezone", zap.String("zone_id", zone.ID), zap.String("timezone", name), zap.Error(err))
	}
	return time.UTC
}

func (o *Orchestrator) activeZones(ctx context.Context) ([]models.Zone, error) {
	var zones []models.Zone
	for offset := 0; ; offset += zonePageSize {
		page, err := o.Repo.ListZones(ctx, repository.ListZonesParams{Limit: zonePageSize, Offset: offset, ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		zones = append(zones, page...)
		if len(page) < zonePageSize {
			return zones, nil
		}
	}
}
