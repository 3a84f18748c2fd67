package config

import (
	"github.com/determined-ai/jobsched/pkg/check"
	"github.com/determined-ai/jobsched/pkg/model"
)

// ClusterConfig describes one cluster registered at startup.
type ClusterConfig struct {
	ID                string `json:"id"`
	RAM               int    `json:"ram"`
	CPU               int    `json:"cpu"`
	MaxConcurrentJobs int    `json:"max_concurrent_jobs"`
}

// Capacity returns the cluster's resource budget.
func (c ClusterConfig) Capacity() model.Resources {
	return model.Resources{RAM: c.RAM, CPU: c.CPU}
}

// Validate implements the check.Validatable interface.
func (c ClusterConfig) Validate() []error {
	return []error{
		check.NotEmpty(c.ID, "cluster id"),
		check.GreaterThanOrEqualTo(int64(c.RAM), 0, "cluster %s ram", c.ID),
		check.GreaterThanOrEqualTo(int64(c.CPU), 0, "cluster %s cpu", c.ID),
		check.GreaterThanOrEqualTo(int64(c.MaxConcurrentJobs), 0, "cluster %s max_concurrent_jobs", c.ID),
	}
}

// HTTPConfig configures the HTTP API. A zero port disables it.
type HTTPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DefaultHTTPConfig returns the default HTTP configuration.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{Port: 8080}
}

// Validate implements the check.Validatable interface.
func (h HTTPConfig) Validate() []error {
	return []error{
		check.True(h.Port >= 0 && h.Port <= 65535, "http port %d out of range", h.Port),
	}
}
