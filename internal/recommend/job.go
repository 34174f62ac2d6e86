package recommend

import (
	"context"
	"time"
)

// Job adapts the engine to the scheduled job interface.
type Job struct {
	Engine *Engine
}

// Name implements jobs.Job.
func (Job) Name() string { return "recommendations" }

// Run implements jobs.Job.
func (j Job) Run(ctx context.Context, _ time.Time) error {
	_, err := j.Engine.GenerateAll(ctx)
	return err
}
