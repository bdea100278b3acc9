package cronrunner

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/config"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
	"github.com/mattdomit/dotted-sub000/internal/service"
)

type Sweeper interface {
	RunDailySweep(ctx context.Context, target string) (orchestrator.SweepReport, error)
}

// FeatureGate reports whether a runtime switch is on.
type FeatureGate interface {
	IsEnabled(ctx context.Context, name string, defaultValue bool) bool
}

type SweepJob struct {
	Name   string
	Spec   string
	Target string
}

// SweepJobs returns the configured sweep schedules in phase order. Empty
// schedules are left out.
func SweepJobs(cfg config.CronConfig) []SweepJob {
	all := []SweepJob{
		{Spec: cfg.Voting, Target: models.PhaseVoting},
		{Spec: cfg.Bidding, Target: models.PhaseBidding},
		{Spec: cfg.Sourcing, Target: models.PhaseSourcing},
		{Spec: cfg.Ordering, Target: models.PhaseOrdering},
		{Spec: cfg.Completed, Target: models.PhaseCompleted},
	}
	out := make([]SweepJob, 0, len(all))
	for _, j := range all {
		j.Spec = strings.TrimSpace(j.Spec)
		if j.Spec == "" {
			continue
		}
		j.Name = "sweep." + strings.ToLower(j.Target)
		out = append(out, j)
	}
	return out
}

// RegisterSweeps schedules one daily sweep per configured target phase.
// Each run is skipped while the target's feature switch is off. A job whose
// schedule does not parse is logged and skipped.
func (r *Runner) RegisterSweeps(cfg config.CronConfig, sweeper Sweeper, gate FeatureGate) int {
	if !cfg.Enabled || sweeper == nil {
		r.logger.Info("sweep schedules disabled")
		return 0
	}
	registered := 0
	for _, job := range SweepJobs(cfg) {
		job := job
		_, err := r.AddNamed(job.Name, job.Spec, func(ctx context.Context) {
			runSweep(ctx, r.logger, job, sweeper, gate)
		})
		if err != nil {
			r.logger.Warn("cron register sweep failed", zap.String("job", job.Name), zap.String("spec", job.Spec), zap.Error(err))
			continue
		}
		registered++
	}
	return registered
}

func runSweep(ctx context.Context, logger *zap.Logger, job SweepJob, sweeper Sweeper, gate FeatureGate) {
	if gate != nil && !gate.IsEnabled(ctx, service.SweepFeature(job.Target), true) {
		logger.Info("cron sweep switched off", zap.String("job", job.Name))
		return
	}
	report, err := sweeper.RunDailySweep(ctx, job.Target)
	if err != nil {
		logger.Warn("cron sweep failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	logger.Info("cron sweep ok",
		zap.String("job", job.Name),
		zap.Int("advanced", report.Advanced),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
}
