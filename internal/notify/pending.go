package notify

import (
	"context"
	"time"

	"gitlab.com/yelinaung/subnest/internal/logger"
)

// PendingJob delivers notifications that were held back by quiet hours.
type PendingJob struct {
	Service *Service
}

// Name implements the job interface.
func (PendingJob) Name() string { return "pending-notifications" }

// Run delivers whatever is deliverable at now.
func (j PendingJob) Run(ctx context.Context, now time.Time) error {
	n, err := j.Service.DeliverPending(ctx, now)
	if n > 0 {
		logger.Log.Info().Int("notifications", n).Msg("Delivered deferred notifications")
	}
	return err
}
