package config

import (
	"time"

	"github.com/determined-ai/jobsched/internal/cluster"
	"github.com/determined-ai/jobsched/pkg/check"
	"github.com/determined-ai/jobsched/pkg/model"
)

const (
	// ConstantBackoff retries placement after the same interval every time.
	ConstantBackoff = "constant"
	// ExponentialBackoff grows the retry interval up to the maximum.
	ExponentialBackoff = "exponential"

	defaultFittingPolicy        = cluster.FirstFit
	defaultBackoffInterval      = 100 * time.Millisecond
	defaultMaxBackoffInterval   = 5 * time.Second
	defaultPlacementHistorySize = 1024
)

// DefaultSchedulerConfig returns the default scheduler configuration: first-fit placement retried
// every 100ms, and sooner whenever a cluster frees resources.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		BackoffPolicy:        ConstantBackoff,
		BackoffInterval:      model.Duration(defaultBackoffInterval),
		MaxBackoffInterval:   model.Duration(defaultMaxBackoffInterval),
		FittingPolicy:        defaultFittingPolicy,
		WakeOnRelease:        true,
		PlacementHistorySize: defaultPlacementHistorySize,
	}
}

// SchedulerConfig holds the configuration of the scheduling loop.
type SchedulerConfig struct {
	BackoffPolicy        string         `json:"backoff_policy"`
	BackoffInterval      model.Duration `json:"backoff_interval"`
	MaxBackoffInterval   model.Duration `json:"max_backoff_interval"`
	FittingPolicy        string         `json:"fitting_policy"`
	WakeOnRelease        bool           `json:"wake_on_release"`
	PlacementHistorySize int            `json:"placement_history_size"`
}

// Validate implements the check.Validatable interface.
func (s SchedulerConfig) Validate() []error {
	return []error{
		check.Contains(s.BackoffPolicy, []interface{}{ConstantBackoff, ExponentialBackoff},
			"invalid backoff policy"),
		check.Contains(s.FittingPolicy, cluster.FittingPolicies, "invalid fitting policy"),
		check.True(s.BackoffInterval > 0, "backoff_interval must be positive"),
		check.True(s.MaxBackoffInterval >= s.BackoffInterval,
			"max_backoff_interval must not be less than backoff_interval"),
		check.GreaterThanOrEqualTo(int64(s.PlacementHistorySize), 1, "placement_history_size"),
	}
}
