package scheduler

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/determined-ai/jobsched/internal/config"
)

// newBackOff returns the retry schedule for placing one job. Neither policy ever gives up.
func newBackOff(cfg config.SchedulerConfig) backoff.BackOff {
	interval := time.Duration(cfg.BackoffInterval)
	switch cfg.BackoffPolicy {
	case config.ExponentialBackoff:
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = interval
		b.MaxInterval = time.Duration(cfg.MaxBackoffInterval)
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	default:
		return backoff.NewConstantBackOff(interval)
	}
}
