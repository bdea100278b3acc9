package cronrunner

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/config"
	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
	"github.com/mattdomit/dotted-sub000/internal/service"
)

type recordingSweeper struct {
	mu      sync.Mutex
	targets []string
}

func (s *recordingSweeper) RunDailySweep(_ context.Context, target string) (orchestrator.SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, target)
	return orchestrator.SweepReport{Target: target, Advanced: 1}, nil
}

type gate map[string]bool

func (g gate) IsEnabled(_ context.Context, name string, def bool) bool {
	v, ok := g[name]
	if !ok {
		return def
	}
	return v
}

func TestSweepJobs_SkipsEmptySchedules(t *testing.T) {
	jobs := SweepJobs(config.CronConfig{Voting: "0 0 8 * * *", Sourcing: " ", Completed: "0 0 23 * * *"})
	require.Len(t, jobs, 2)
	assert.Equal(t, "sweep.voting", jobs[0].Name)
	assert.Equal(t, "VOTING", jobs[0].Target)
	assert.Equal(t, "sweep.completed", jobs[1].Name)
}

func TestRegisterSweeps(t *testing.T) {
	r := New(zap.NewNop(), context.Background(), nil)
	n := r.RegisterSweeps(config.CronConfig{
		Enabled: true,
		Voting:  "0 0 8 * * *",
		Bidding: "not a schedule",
	}, &recordingSweeper{}, nil)
	assert.Equal(t, 1, n)

	jobs := r.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "sweep.voting", jobs[0].Name)
	assert.Equal(t, "0 0 8 * * *", jobs[0].Spec)
}

func TestRegisterSweeps_Disabled(t *testing.T) {
	r := New(nil, nil, nil)
	assert.Zero(t, r.RegisterSweeps(config.CronConfig{Voting: "0 0 8 * * *"}, &recordingSweeper{}, nil))
	assert.Empty(t, r.Jobs())
}

func TestRunSweep_RespectsSwitch(t *testing.T) {
	sweeper := &recordingSweeper{}
	job := SweepJob{Name: "sweep.bidding", Target: "BIDDING"}

	runSweep(context.Background(), zap.NewNop(), job, sweeper, gate{service.FeatureSweepBidding: false})
	assert.Empty(t, sweeper.targets)

	runSweep(context.Background(), zap.NewNop(), job, sweeper, gate{})
	assert.Equal(t, []string{"BIDDING"}, sweeper.targets)
}
