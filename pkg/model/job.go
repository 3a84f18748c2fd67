package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/determined-ai/jobsched/pkg/check"
)

// JobID is the unique identifier of a submitted job.
type JobID string

// NewJobID returns a new random job id.
func NewJobID() JobID {
	return JobID(uuid.New().String())
}

func (id JobID) String() string {
	return string(id)
}

// ClusterID is the unique identifier of a cluster.
type ClusterID string

func (id ClusterID) String() string {
	return string(id)
}

// Job describes a unit of work. Lower Priority values are scheduled first. A Job is a value and is
// never mutated after submission.
type Job struct {
	ID       JobID    `json:"id"`
	RAM      int      `json:"ram"`
	CPU      int      `json:"cpu"`
	Duration Duration `json:"duration"`
	Priority int      `json:"priority"`
}

// Demand returns the resources the job holds for the lifetime of its execution.
func (j Job) Demand() Resources {
	return Resources{RAM: j.RAM, CPU: j.CPU}
}

// RunTime returns the job duration as a time.Duration.
func (j Job) RunTime() time.Duration {
	return time.Duration(j.Duration)
}

// Validate implements the check.Validatable interface.
func (j Job) Validate() []error {
	return []error{
		check.NotEmpty(string(j.ID), "job id"),
		check.GreaterThanOrEqualTo(int64(j.RAM), 0, "job ram demand"),
		check.GreaterThanOrEqualTo(int64(j.CPU), 0, "job cpu demand"),
		check.GreaterThanOrEqualTo(int64(j.Duration), 0, "job duration"),
	}
}
