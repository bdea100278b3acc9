// Package orchestrator drives each zone's daily cycle through its phases and
// runs the side effects bound to every transition.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/ai"
	"github.com/mattdomit/dotted-sub000/internal/bidding"
	"github.com/mattdomit/dotted-sub000/internal/events"
	"github.com/mattdomit/dotted-sub000/internal/lock"
	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/optimization"
	"github.com/mattdomit/dotted-sub000/internal/repository"
	"github.com/mattdomit/dotted-sub000/internal/sourcing"
)

const (
	TriggerManual = "manual"
	TriggerSweep  = "sweep"

	minDishes          = 3
	maxDishes          = 5
	recentPromptDishes = 14
)

type Orchestrator struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Suggester ai.Suggester
	// Publisher receives a PhaseChanged event after every committed
	// transition. It must not block; events.Dispatcher is the usual choice.
	Publisher events.Publisher
	// Locker serializes transitions per cycle. Nil uses an in-process lock.
	Locker lock.Locker

	Dishes   *optimization.Service
	Bids     *bidding.Service
	Sourcing *sourcing.Service

	// DishCount is how many dishes to ask the suggester for.
	DishCount int
	Sweep     SweepOptions
	Now       func() time.Time

	localOnce sync.Once
	local     *lock.Local
}

// AdvancePhase moves a cycle to target and runs the side effects of that
// transition. A rejected or failed transition leaves the cycle unchanged.
func (o *Orchestrator) AdvancePhase(ctx context.Context, cycleID, target string) (*models.Cycle, error) {
	return o.advance(ctx, cycleID, target, TriggerManual)
}

func (o *Orchestrator) advance(ctx context.Context, cycleID, target, trigger string) (*models.Cycle, error) {
	if o == nil || o.Repo == nil {
		return nil, errors.New("orchestrator: not configured")
	}
	target, err := ParsePhase(target)
	if err != nil {
		return nil, err
	}
	release, err := o.lockCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	defer release()

	// side effects run to completion once started
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	cycle, err := o.Repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, fmt.Errorf("%w: %s", ErrCycleNotFound, cycleID)
	}
	from := cycle.Phase
	if IsTerminal(from) {
		return nil, fmt.Errorf("%w: cycle is %s", ErrInvalidTransition, from)
	}
	if !CanTransition(from, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}

	log := o.logger().With(
		zap.String("cycle_id", cycle.ID),
		zap.String("zone_id", cycle.ZoneID),
		zap.String("from", from),
		zap.String("to", target),
		zap.String("trigger", trigger),
	)

	err = o.apply(ctx, cycle, target, log)
	if errors.Is(err, repository.ErrPhaseConflict) {
		err = fmt.Errorf("%w: %v", ErrTransitionInProgress, err)
	}
	o.audit(ctx, cycle, from, target, trigger, start, err, log)
	if err != nil {
		log.Warn("phase transition failed", zap.Error(err))
		return nil, err
	}

	updated, err := o.Repo.GetCycle(ctx, cycleID)
	if err != nil || updated == nil {
		log.Warn("reload cycle after transition failed", zap.Error(err))
		cycle.Phase = target
		updated = cycle
	}
	log.Info("phase advanced", zap.Duration("elapsed", time.Since(start)))
	o.broadcast(ctx, updated, from, log)
	return updated, nil
}

func (o *Orchestrator) apply(ctx context.Context, cycle *models.Cycle, target string, log *zap.Logger) error {
	switch target {
	case models.PhaseVoting:
		return o.enterVoting(ctx, cycle, log)
	case models.PhaseBidding:
		return o.enterBidding(ctx, cycle)
	case models.PhaseSourcing:
		return o.enterSourcing(ctx, cycle, log)
	default:
		return o.Repo.UpdateCyclePhase(ctx, cycle.ID, cycle.Phase, target, o.now(), nil)
	}
}

func (o *Orchestrator) audit(ctx context.Context, cycle *models.Cycle, from, to, trigger string, start time.Time, err error, log *zap.Logger) {
	row := &models.PhaseTransition{
		CycleID:    cycle.ID,
		ZoneID:     cycle.ZoneID,
		FromPhase:  from,
		ToPhase:    to,
		Trigger:    trigger,
		Success:    err == nil,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		row.Error = err.Error()
	}
	if werr := o.Repo.InsertPhaseTransition(ctx, row); werr != nil {
		log.Warn("phase transition audit failed", zap.Error(werr))
	}
}

func (o *Orchestrator) broadcast(ctx context.Context, cycle *models.Cycle, from string, log *zap.Logger) {
	if o.Publisher == nil {
		return
	}
	evt := events.PhaseChanged{
		CycleID:       cycle.ID,
		ZoneID:        cycle.ZoneID,
		Phase:         cycle.Phase,
		PreviousPhase: from,
		OccurredAt:    o.now(),
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("phase broadcast panic", zap.Any("panic", r))
		}
	}()
	if err := o.Publisher.Publish(ctx, evt); err != nil {
		log.Warn("phase broadcast failed", zap.Error(err))
	}
}

// ComputeDishScores reruns the dish ranking for a cycle.
func (o *Orchestrator) ComputeDishScores(ctx context.Context, cycleID string) ([]optimization.Result, error) {
	release, err := o.lockCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	defer release()
	res, err := o.dishes().ComputeDishScores(ctx, cycleID, "")
	if errors.Is(err, optimization.ErrCycleNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCycleNotFound, cycleID)
	}
	return res, err
}

// ScoreBids picks the winning bid of a cycle without changing its phase.
func (o *Orchestrator) ScoreBids(ctx context.Context, cycleID string) (bidding.Result, error) {
	release, err := o.lockCycle(ctx, cycleID)
	if err != nil {
		return bidding.Result{}, err
	}
	defer release()
	return o.bids().ScoreBids(context.WithoutCancel(ctx), cycleID)
}

// MatchSuppliers creates the purchase orders of a cycle without changing its
// phase.
func (o *Orchestrator) MatchSuppliers(ctx context.Context, cycleID string) (sourcing.Result, error) {
	release, err := o.lockCycle(ctx, cycleID)
	if err != nil {
		return sourcing.Result{}, err
	}
	defer release()
	return o.sourcing().MatchSuppliers(context.WithoutCancel(ctx), cycleID)
}

func (o *Orchestrator) lockCycle(ctx context.Context, cycleID string) (lock.Release, error) {
	cycleID = strings.TrimSpace(cycleID)
	if cycleID == "" {
		return nil, fmt.Errorf("%w: empty cycle id", ErrCycleNotFound)
	}
	locker := o.Locker
	if locker == nil {
		o.localOnce.Do(func() { o.local = lock.NewLocal() })
		locker = o.local
	}
	release, err := locker.TryLock(ctx, cycleID)
	if errors.Is(err, lock.ErrLocked) {
		return nil, fmt.Errorf("%w: cycle %s", ErrTransitionInProgress, cycleID)
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (o *Orchestrator) dishes() *optimization.Service {
	if o.Dishes != nil {
		return o.Dishes
	}
	return &optimization.Service{Repo: o.Repo, Logger: o.Logger}
}

func (o *Orchestrator) bids() *bidding.Service {
	if o.Bids != nil {
		return o.Bids
	}
	return &bidding.Service{Repo: o.Repo, Logger: o.Logger}
}

func (o *Orchestrator) sourcing() *sourcing.Service {
	if o.Sourcing != nil {
		return o.Sourcing
	}
	return &sourcing.Service{Repo: o.Repo, Logger: o.Logger, Suggester: o.Suggester}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
