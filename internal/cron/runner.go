package cronrunner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context

	mu    sync.Mutex
	named map[cron.EntryID]namedJob
}

type namedJob struct {
	name string
	spec string
}

// JobInfo describes a registered job and its next activation.
type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitempty"`
}

// New builds a seconds-enabled runner. Schedules are evaluated in loc, or in
// the server's local time when loc is nil. A job still running when its next
// activation fires skips that activation.
func New(logger *zap.Logger, baseCtx context.Context, loc *time.Location) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []cron.Option{
		cron.WithSeconds(),
		cron.WithLogger(zapCronLogger{logger}),
		cron.WithChain(
			cron.Recover(zapCronLogger{logger}),
			cron.SkipIfStillRunning(zapCronLogger{logger}),
		),
	}
	if loc != nil {
		opts = append(opts, cron.WithLocation(loc))
	}
	return &Runner{
		cron:    cron.New(opts...),
		logger:  logger,
		baseCtx: baseCtx,
		named:   map[cron.EntryID]namedJob{},
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.AddNamed("", spec, job)
}

// AddNamed registers job under a name reported by Jobs.
func (r *Runner) AddNamed(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		if r.baseCtx == nil {
			job(context.Background())
			return
		}
		job(r.baseCtx)
	})
	if err != nil {
		return 0, err
	}
	if name != "" {
		r.mu.Lock()
		r.named[id] = namedJob{name: name, spec: spec}
		r.mu.Unlock()
	}
	return id, nil
}

// Jobs lists the named jobs ordered by name.
func (r *Runner) Jobs() []JobInfo {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	named := make(map[cron.EntryID]namedJob, len(r.named))
	for id, j := range r.named {
		named[id] = j
	}
	r.mu.Unlock()

	out := make([]JobInfo, 0, len(named))
	for _, e := range r.cron.Entries() {
		j, ok := named[e.ID]
		if !ok {
			continue
		}
		out = append(out, JobInfo{Name: j.name, Spec: j.spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func (r *Runner) Start() {
	r.logger.Info("cron started", zap.Int("jobs", len(r.cron.Entries())))
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

type zapCronLogger struct {
	l *zap.Logger
}

func (z zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	z.l.Debug("cron: "+msg, zap.Any("kv", keysAndValues))
}

func (z zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	z.l.Error("cron: "+msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
