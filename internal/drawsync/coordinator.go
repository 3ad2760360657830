package drawsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/provider"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultInitialMonths is how many months a backfill walks when a category is empty.
	DefaultInitialMonths = 3
	// MaxInitialMonths caps the backfill depth.
	MaxInitialMonths = 24
	// DefaultRunTimeout bounds a run once it no longer follows its callers' contexts.
	DefaultRunTimeout = 5 * time.Minute

	modeInitialLoad = "initial_load"
	modeRefresh     = "refresh"
	modeForceReset  = "force_reset"
)

var (
	errMissingStore   = errors.New("drawsync: record store is required")
	errMissingFetcher = errors.New("drawsync: fetcher is required")
	errEmptyCategory  = errors.New("drawsync: category is required")
)

// Store is the slice of the record store the coordinator writes through.
type Store interface {
	InsertMany(ctx context.Context, records []draws.Draw) (draws.InsertSummary, error)
	DeleteByCategory(ctx context.Context, category string) (int64, error)
	GetByCategory(ctx context.Context, category string) ([]draws.Draw, error)
	CountByCategory(ctx context.Context, category string) (int64, error)
}

// Fetcher retrieves one monthly results page.
type Fetcher interface {
	FetchMonth(ctx context.Context, month *provider.MonthSelector) (provider.Page, error)
}

// Config describes the coordinator dependencies.
type Config struct {
	Store         Store
	Fetcher       Fetcher
	InitialMonths int
	RunTimeout    time.Duration
	Clock         func() time.Time
	Logger        *zap.Logger
}

// MonthOutcome reports what one month page contributed to a run.
type MonthOutcome struct {
	Month     provider.MonthSelector
	Fetched   int
	Inserted  int
	Skipped   int
	Malformed int
	Err       error
}

// Result is the combined outcome of a run: the category's records after the
// merge plus the last error encountered, if any.
type Result struct {
	RunID    string
	Category string
	Mode     string
	Records  []draws.Draw
	Months   []MonthOutcome
	Err      error
}

// Inserted sums the records the run added across all months.
func (result Result) Inserted() int {
	total := 0
	for _, month := range result.Months {
		total += month.Inserted
	}
	return total
}

// Coordinator keeps the record store current for a category by re-scanning
// recent provider months and letting the unique index absorb the overlap.
type Coordinator struct {
	store         Store
	fetcher       Fetcher
	initialMonths int
	runTimeout    time.Duration
	clock         func() time.Time
	logger        *zap.Logger
	flights       singleflight.Group

	callersMu sync.Mutex
	callers   map[string]int
}

// NewCoordinator validates the configuration and returns a Coordinator.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Fetcher == nil {
		return nil, errMissingFetcher
	}
	initialMonths := cfg.InitialMonths
	if initialMonths <= 0 {
		initialMonths = DefaultInitialMonths
	}
	if initialMonths > MaxInitialMonths {
		initialMonths = MaxInitialMonths
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:         cfg.Store,
		fetcher:       cfg.Fetcher,
		initialMonths: initialMonths,
		runTimeout:    runTimeout,
		clock:         clock,
		logger:        logger,
		callers:       map[string]int{},
	}, nil
}

// InitialLoad returns the category's records, backfilling the last
// InitialMonths months first when the category holds nothing locally.
func (coordinator *Coordinator) InitialLoad(ctx context.Context, category string) (Result, error) {
	return coordinator.shared(ctx, modeInitialLoad, category, coordinator.initialLoad)
}

// Refresh re-scans the current and previous months to pick up new and
// late-published results.
func (coordinator *Coordinator) Refresh(ctx context.Context, category string) (Result, error) {
	return coordinator.shared(ctx, modeRefresh, category, func(ctx context.Context, result *Result) error {
		current := provider.MonthOf(coordinator.clock())
		coordinator.mergeMonths(ctx, result, []provider.MonthSelector{current, current.AddMonths(-1)})
		return coordinator.readBack(ctx, result)
	})
}

// ForceReset wipes the category and runs an initial load.
func (coordinator *Coordinator) ForceReset(ctx context.Context, category string) (Result, error) {
	return coordinator.shared(ctx, modeForceReset, category, func(ctx context.Context, result *Result) error {
		removed, err := coordinator.store.DeleteByCategory(ctx, result.Category)
		if err != nil {
			return err
		}
		coordinator.logger.Info("category cleared",
			zap.String("run_id", result.RunID),
			zap.String("category", result.Category),
			zap.Int64("removed", removed))
		return coordinator.initialLoad(ctx, result)
	})
}

func (coordinator *Coordinator) initialLoad(ctx context.Context, result *Result) error {
	count, err := coordinator.store.CountByCategory(ctx, result.Category)
	if err != nil {
		return err
	}
	if count == 0 {
		coordinator.mergeMonths(ctx, result, coordinator.backfillMonths())
	}
	return coordinator.readBack(ctx, result)
}

func (coordinator *Coordinator) backfillMonths() []provider.MonthSelector {
	current := provider.MonthOf(coordinator.clock())
	months := make([]provider.MonthSelector, 0, coordinator.initialMonths)
	for offset := 0; offset < coordinator.initialMonths; offset++ {
		months = append(months, current.AddMonths(-offset))
	}
	return months
}

// mergeMonths fetches and merges months one after another. A failed month is
// recorded and the remaining months still run.
func (coordinator *Coordinator) mergeMonths(ctx context.Context, result *Result, months []provider.MonthSelector) {
	for _, month := range months {
		outcome := coordinator.mergeMonth(ctx, result, month)
		result.Months = append(result.Months, outcome)
		if outcome.Err != nil {
			result.Err = outcome.Err
		}
	}
}

func (coordinator *Coordinator) mergeMonth(ctx context.Context, result *Result, month provider.MonthSelector) MonthOutcome {
	outcome := MonthOutcome{Month: month}
	selector := month
	page, err := coordinator.fetcher.FetchMonth(ctx, &selector)
	if err != nil {
		outcome.Err = err
		coordinator.logger.Warn("month fetch failed",
			zap.String("run_id", result.RunID),
			zap.String("category", result.Category),
			zap.String("month", month.String()),
			zap.Error(err))
		return outcome
	}

	relevant := page.ForCategory(result.Category)
	outcome.Fetched = len(relevant)
	for _, entry := range page.Malformed {
		if entry.DrawName == result.Category {
			outcome.Malformed++
		}
	}
	if len(relevant) == 0 {
		return outcome
	}

	summary, err := coordinator.store.InsertMany(ctx, relevant)
	if err != nil {
		outcome.Err = err
		coordinator.logger.Warn("month merge failed",
			zap.String("run_id", result.RunID),
			zap.String("category", result.Category),
			zap.String("month", month.String()),
			zap.Error(err))
		return outcome
	}
	outcome.Inserted = summary.Inserted
	outcome.Skipped = summary.Skipped
	coordinator.logger.Debug("month merged",
		zap.String("run_id", result.RunID),
		zap.String("category", result.Category),
		zap.String("month", month.String()),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped))
	return outcome
}

func (coordinator *Coordinator) readBack(ctx context.Context, result *Result) error {
	records, err := coordinator.store.GetByCategory(ctx, result.Category)
	if err != nil {
		return err
	}
	result.Records = records
	return nil
}

// shared runs body at most once at a time per (mode, category); concurrent
// callers receive the same result. The run is detached from the caller that
// started it, so a caller leaving early only abandons its own wait.
func (coordinator *Coordinator) shared(ctx context.Context, mode, category string, body func(context.Context, *Result) error) (Result, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return Result{}, errEmptyCategory
	}

	key := mode + "|" + category
	outcomes := coordinator.flights.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), coordinator.runTimeout)
		defer cancel()

		result := Result{RunID: newRunID(), Category: category, Mode: mode}
		started := coordinator.clock()
		if runErr := body(runCtx, &result); runErr != nil {
			coordinator.logger.Error("sync run failed",
				zap.String("run_id", result.RunID),
				zap.String("mode", mode),
				zap.String("category", category),
				zap.Error(runErr))
			return result, runErr
		}
		coordinator.logger.Info("sync run finished",
			zap.String("run_id", result.RunID),
			zap.String("mode", mode),
			zap.String("category", category),
			zap.Int("records", len(result.Records)),
			zap.Int("months", len(result.Months)),
			zap.Bool("partial", result.Err != nil),
			zap.Duration("elapsed", coordinator.clock().Sub(started)))
		return result, nil
	})
	if waiting := coordinator.trackCaller(key, 1); waiting > 1 {
		coordinator.logger.Debug("joined sync run in progress",
			zap.String("mode", mode),
			zap.String("category", category),
			zap.Int("callers", waiting))
	}
	defer coordinator.trackCaller(key, -1)

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case outcome := <-outcomes:
		result, _ := outcome.Val.(Result)
		return result, outcome.Err
	}
}

// trackCaller adjusts and returns the number of callers waiting on key.
func (coordinator *Coordinator) trackCaller(key string, delta int) int {
	coordinator.callersMu.Lock()
	defer coordinator.callersMu.Unlock()
	coordinator.callers[key] += delta
	waiting := coordinator.callers[key]
	if waiting <= 0 {
		delete(coordinator.callers, key)
	}
	return waiting
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
