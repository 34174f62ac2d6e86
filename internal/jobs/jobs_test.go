package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	mu       sync.Mutex
	runs     int
	err      error
	panics   bool
	deadline bool
	notify   chan struct{}
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context, _ time.Time) error {
	j.mu.Lock()
	j.runs++
	_, j.deadline = ctx.Deadline()
	j.mu.Unlock()

	if j.notify != nil {
		select {
		case j.notify <- struct{}{}:
		default:
		}
	}
	if j.panics {
		panic("boom")
	}
	return j.err
}

func (j *countingJob) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	t.Run("applies timeout", func(t *testing.T) {
		t.Parallel()
		job := &countingJob{}
		require.NoError(t, NewRunner(time.Second).RunOnce(context.Background(), job))
		require.Equal(t, 1, job.Runs())
		require.True(t, job.deadline)
	})

	t.Run("returns job error", func(t *testing.T) {
		t.Parallel()
		job := &countingJob{err: errors.New("db down")}
		err := NewRunner(time.Second).RunOnce(context.Background(), job)
		require.ErrorContains(t, err, "db down")
	})

	t.Run("recovers panics", func(t *testing.T) {
		t.Parallel()
		job := &countingJob{panics: true}
		err := NewRunner(time.Second).RunOnce(context.Background(), job)
		require.ErrorContains(t, err, "panicked")
	})
}

func TestRunnerStart(t *testing.T) {
	t.Parallel()

	t.Run("runs immediately and keeps running after failures", func(t *testing.T) {
		t.Parallel()
		job := &countingJob{err: errors.New("always fails"), notify: make(chan struct{}, 1)}

		r := NewRunner(time.Second)
		r.Register(job, 10*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			r.Start(ctx)
			close(done)
		}()

		for range 3 {
			select {
			case <-job.notify:
			case <-time.After(2 * time.Second):
				t.Fatal("job did not run")
			}
		}
		cancel()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("runner did not stop")
		}
		require.GreaterOrEqual(t, job.Runs(), 3)
	})

	t.Run("cancelled context runs nothing", func(t *testing.T) {
		t.Parallel()
		job := &countingJob{}
		r := NewRunner(time.Second)
		r.Register(job, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r.Start(ctx)
		require.Zero(t, job.Runs())
	})

	t.Run("ignores non-positive intervals", func(t *testing.T) {
		t.Parallel()
		r := NewRunner(0)
		r.Register(&countingJob{}, 0)
		require.Empty(t, r.entries)
		require.Equal(t, DefaultTimeout, r.timeout)
	})
}
