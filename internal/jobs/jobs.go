// Package jobs runs scheduled work on fixed intervals.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/yelinaung/subnest/internal/logger"
)

// DefaultTimeout bounds a single run when a Runner is created without one.
const DefaultTimeout = 10 * time.Minute

// Job is a unit of scheduled work. Run must be safe to call repeatedly.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

type entry struct {
	job      Job
	interval time.Duration
}

// Runner runs registered jobs once at start and then on their interval.
type Runner struct {
	timeout time.Duration
	now     func() time.Time
	entries []entry
}

// NewRunner creates a Runner bounding every run by timeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, now: time.Now}
}

// Register schedules job every interval. Non-positive intervals are
// ignored.
func (r *Runner) Register(job Job, interval time.Duration) {
	if interval <= 0 {
		logger.Log.Warn().Str("job", job.Name()).Msg("Job interval not positive, not scheduling")
		return
	}
	r.entries = append(r.entries, entry{job: job, interval: interval})
}

// Start runs every registered job until ctx is done and blocks until all
// loops have stopped.
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range r.entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx, e)
		}()
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, e entry) {
	logger.Log.Info().
		Str("job", e.job.Name()).
		Dur("interval", e.interval).
		Msg("Job loop started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		logger.Log.Info().Str("job", e.job.Name()).Msg("Job loop stopped")
		return
	default:
	}

	// First run happens immediately so a restart does not delay work by a
	// full interval.
	_ = r.RunOnce(ctx, e.job)

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Str("job", e.job.Name()).Msg("Job loop stopped")
			return
		case <-ticker.C:
			_ = r.RunOnce(ctx, e.job)
		}
	}
}

// RunOnce runs job a single time under the runner's timeout. The error is
// logged and returned.
func (r *Runner) RunOnce(ctx context.Context, job Job) error {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.now()
	err := safeRun(runCtx, job, start)
	if err != nil {
		logger.Log.Error().Err(err).
			Str("job", job.Name()).
			Dur("duration", time.Since(start)).
			Msg("Job run failed")
		return err
	}

	logger.Log.Debug().
		Str("job", job.Name()).
		Dur("duration", time.Since(start)).
		Msg("Job run finished")
	return nil
}

func safeRun(ctx context.Context, job Job, now time.Time) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), p)
		}
	}()
	return job.Run(ctx, now)
}
