package config

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/determined-ai/jobsched/pkg/check"
	"github.com/determined-ai/jobsched/pkg/logger"
)

// Config is the configuration of the scheduler daemon.
type Config struct {
	ConfigFile string          `json:"config_file"`
	Log        logger.Config   `json:"log"`
	Scheduler  SchedulerConfig `json:"scheduler"`
	Clusters   []ClusterConfig `json:"clusters"`
	HTTP       HTTPConfig      `json:"http"`
	JobsFile   string          `json:"jobs_file"`
}

// DefaultConfig returns the default configuration. It registers no clusters; at least one must be
// configured before the configuration validates.
func DefaultConfig() *Config {
	return &Config{
		Log:       *logger.DefaultConfig(),
		Scheduler: *DefaultSchedulerConfig(),
		HTTP:      *DefaultHTTPConfig(),
	}
}

// Printable returns a printable string.
func (c Config) Printable() ([]byte, error) {
	bs, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "unable to convert config to JSON")
	}
	return bs, nil
}

// Resolve resolves the values in the configuration.
func (c *Config) Resolve() error {
	for i := range c.Clusters {
		c.Clusters[i].ID = strings.TrimSpace(c.Clusters[i].ID)
	}
	if c.Scheduler.FittingPolicy == "" {
		c.Scheduler.FittingPolicy = defaultFittingPolicy
	}
	if c.Scheduler.BackoffPolicy == "" {
		c.Scheduler.BackoffPolicy = ConstantBackoff
	}
	if c.JobsFile != "" {
		path, err := filepath.Abs(c.JobsFile)
		if err != nil {
			return errors.Wrapf(err, "cannot resolve jobs file %s", c.JobsFile)
		}
		c.JobsFile = path
	}
	return nil
}

// Validate implements the check.Validatable interface.
func (c Config) Validate() []error {
	errs := []error{
		check.True(len(c.Clusters) > 0, "at least one cluster must be configured"),
	}
	seen := make(map[string]bool, len(c.Clusters))
	for _, cluster := range c.Clusters {
		if seen[cluster.ID] {
			errs = append(errs, errors.Errorf("duplicate cluster id %q", cluster.ID))
		}
		seen[cluster.ID] = true
	}
	return errs
}
