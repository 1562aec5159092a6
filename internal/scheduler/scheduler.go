package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/urlmedic/internal/checker"
	"github.com/hazz-dev/urlmedic/internal/config"
	"github.com/hazz-dev/urlmedic/internal/storage"
)

// Store defines the storage operations required by the scheduler.
type Store interface {
	SaveRun(ctx context.Context, run *storage.Run, results checker.Set) error
	LatestRun(ctx context.Context, target string) (*storage.Run, error)
	RunResults(ctx context.Context, runID string) (checker.Set, error)
}

// Runner checks a batch of URLs. *checker.Runner implements it.
type Runner interface {
	Run(ctx context.Context, req checker.Request) (checker.Set, error)
}

// Recorder receives per-run metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordRun(target string, results checker.Set, duration time.Duration, finishedAt time.Time)
	RecordChanges(target string, n int)
}

// ChangesFunc is called after a run whose statuses differ from the previous run.
type ChangesFunc func(target string, changes []checker.CompareEntry, checkedAt time.Time)

// Scheduler checks each target's URLs in its own goroutine. All targets share
// one Runner, so the connection limit applies across targets.
type Scheduler struct {
	targets   []config.Target
	store     Store
	runner    Runner
	recorder  Recorder
	onChanges ChangesFunc
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// New creates a new Scheduler. Pass nil logger to use the default logger.
func New(targets []config.Target, store Store, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		targets: targets,
		store:   store,
		runner:  runner,
		logger:  logger,
	}
}

// SetOnChanges sets the callback invoked when a run has status changes.
func (s *Scheduler) SetOnChanges(fn ChangesFunc) {
	s.onChanges = fn
}

// SetRecorder sets the metrics recorder.
func (s *Scheduler) SetRecorder(r Recorder) {
	s.recorder = r
}

// Start spawns one goroutine per target. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.targets {
		s.wg.Add(1)
		go s.runTarget(ctx, t)
	}
}

// Wait blocks until all target goroutines have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runTarget(ctx context.Context, t config.Target) {
	defer s.wg.Done()

	// Run immediately.
	s.RunOnce(ctx, t)

	ticker := time.NewTicker(t.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, t)
		}
	}
}

// RunOnce checks every URL of t, stores the run and reports changes against
// the previous run.
func (s *Scheduler) RunOnce(ctx context.Context, t config.Target) {
	// Fetch the previous run before storing the new one.
	prev, err := s.store.LatestRun(ctx, t.Name)
	if err != nil {
		s.logger.Warn("fetching previous run", "target", t.Name, "error", err)
	}

	started := time.Now()
	results, err := s.runner.Run(ctx, checker.Request{URLs: t.URLs, Cookies: t.Cookies})
	if err != nil {
		s.logger.Error("running checks", "target", t.Name, "error", err)
		return
	}
	finished := time.Now()

	// A run cut short by shutdown is all cancellation errors.
	if ctx.Err() != nil {
		s.logger.Info("run interrupted", "target", t.Name)
		return
	}

	if s.recorder != nil {
		s.recorder.RecordRun(t.Name, results, finished.Sub(started), finished)
	}

	run := &storage.Run{Target: t.Name, StartedAt: started, FinishedAt: finished}
	if err := s.store.SaveRun(ctx, run, results); err != nil {
		s.logger.Error("storing run", "target", t.Name, "error", err)
	}

	var changes []checker.CompareEntry
	if prev != nil {
		prevResults, err := s.store.RunResults(ctx, prev.ID)
		if err != nil {
			s.logger.Warn("loading previous results", "target", t.Name, "run", prev.ID, "error", err)
		} else {
			changes = checker.Compare(results, prevResults)
		}
	}

	s.logger.Info("run complete",
		"target", t.Name,
		"run", run.ID,
		"urls", len(results),
		"failed", results.Failed(),
		"changes", len(changes),
		"duration", finished.Sub(started),
	)

	if len(changes) == 0 {
		return
	}
	if s.recorder != nil {
		s.recorder.RecordChanges(t.Name, len(changes))
	}
	if s.onChanges != nil {
		s.onChanges(t.Name, changes, finished)
	}
}
