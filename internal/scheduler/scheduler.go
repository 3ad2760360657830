// Package scheduler refreshes tracked categories on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultRunTimeout = 5 * time.Minute

var (
	errMissingSchedule  = errors.New("scheduler: schedule is required")
	errMissingRefresher = errors.New("scheduler: refresher is required")
	errMissingCounter   = errors.New("scheduler: record counter is required")
)

// Refresher re-scans recent months for a category.
type Refresher interface {
	Refresh(ctx context.Context, category string) (drawsync.Result, error)
}

// Counter reports how many records a category holds.
type Counter interface {
	CountByCategory(ctx context.Context, category string) (int64, error)
}

// Config describes the scheduler dependencies.
type Config struct {
	Schedule   string
	Refresher  Refresher
	Counter    Counter
	Categories func() []draws.Category
	OnRefresh  func(result drawsync.Result)
	RunTimeout time.Duration
	Logger     *zap.Logger
}

// RefreshJob refreshes every category that already has local records.
// Empty categories are left for an explicit initial load.
type RefreshJob struct {
	refresher  Refresher
	counter    Counter
	categories func() []draws.Category
	onRefresh  func(result drawsync.Result)
	runTimeout time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	baseCtx context.Context
}

// Run is the cron.Job entry point.
func (job *RefreshJob) Run() {
	job.mu.Lock()
	baseCtx := job.baseCtx
	job.mu.Unlock()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(baseCtx, job.runTimeout)
	defer cancel()
	job.RunOnce(ctx)
}

// RunOnce performs one pass over the catalog and returns the number of
// categories refreshed.
func (job *RefreshJob) RunOnce(ctx context.Context) int {
	refreshed := 0
	for _, category := range job.categories() {
		if ctx.Err() != nil {
			break
		}
		count, err := job.counter.CountByCategory(ctx, category.APIName)
		if err != nil {
			job.logger.Warn("scheduled refresh count failed", zap.String("category", category.APIName), zap.Error(err))
			continue
		}
		if count == 0 {
			continue
		}
		result, err := job.refresher.Refresh(ctx, category.APIName)
		if err != nil {
			job.logger.Warn("scheduled refresh failed", zap.String("category", category.APIName), zap.Error(err))
			continue
		}
		refreshed++
		if job.onRefresh != nil {
			job.onRefresh(result)
		}
	}
	job.logger.Debug("scheduled refresh pass finished", zap.Int("refreshed", refreshed))
	return refreshed
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron     *cron.Cron
	job      *RefreshJob
	schedule string
	cancel   context.CancelFunc
	logger   *zap.Logger
}

// New validates the schedule and registers the refresh job.
func New(cfg Config) (*Scheduler, error) {
	schedule := strings.TrimSpace(cfg.Schedule)
	if schedule == "" {
		return nil, errMissingSchedule
	}
	if cfg.Refresher == nil {
		return nil, errMissingRefresher
	}
	if cfg.Counter == nil {
		return nil, errMissingCounter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	categories := cfg.Categories
	if categories == nil {
		categories = draws.Categories
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}

	job := &RefreshJob{
		refresher:  cfg.Refresher,
		counter:    cfg.Counter,
		categories: categories,
		onRefresh:  cfg.OnRefresh,
		runTimeout: runTimeout,
		logger:     logger,
	}
	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := runner.AddJob(schedule, job); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: runner, job: job, schedule: schedule, logger: logger}, nil
}

// Job exposes the registered job.
func (scheduler *Scheduler) Job() *RefreshJob {
	return scheduler.job
}

// Start begins running the job on its schedule. Runs are bound to ctx.
func (scheduler *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	scheduler.job.mu.Lock()
	scheduler.job.baseCtx = runCtx
	scheduler.job.mu.Unlock()
	scheduler.cancel = cancel
	scheduler.cron.Start()
	scheduler.logger.Info("refresh scheduler started", zap.String("schedule", scheduler.schedule))
}

// Stop halts the schedule, cancels an in-flight run and waits for it up to
// the deadline of ctx.
func (scheduler *Scheduler) Stop(ctx context.Context) error {
	if scheduler.cancel != nil {
		scheduler.cancel()
	}
	stopped := scheduler.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
