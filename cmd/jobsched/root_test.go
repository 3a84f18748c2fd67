package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gotest.tools/assert"

	"github.com/determined-ai/jobsched/internal/cluster"
	"github.com/determined-ai/jobsched/internal/config"
	"github.com/determined-ai/jobsched/internal/scheduler"
	"github.com/determined-ai/jobsched/pkg/model"
)

func TestUnmarshalConfigurationViaViper(t *testing.T) {
	raw := `
log:
  level: debug
scheduler:
  fitting_policy: best
  backoff_interval: 250ms
clusters:
  - id: gpu
    ram: 64
    cpu: 16
    max_concurrent_jobs: 4
  - id: cpu
    ram: 32
    cpu: 8
`
	expected := config.DefaultConfig()
	expected.Log.Level = "debug"
	expected.Scheduler.FittingPolicy = cluster.BestFit
	expected.Scheduler.BackoffInterval = model.Duration(250 * time.Millisecond)
	expected.Clusters = []config.ClusterConfig{
		{ID: "gpu", RAM: 64, CPU: 16, MaxConcurrentJobs: 4},
		{ID: "cpu", RAM: 32, CPU: 8},
	}
	err := expected.Resolve()
	assert.NilError(t, err)

	err = mergeConfigBytesIntoViper([]byte(raw))
	assert.NilError(t, err)
	cfg, err := getConfig(v.AllSettings())
	assert.NilError(t, err)
	assert.DeepEqual(t, cfg, expected)
}

func TestUnmarshalConfigurationFromEnv(t *testing.T) {
	t.Setenv("JOBSCHED_HTTP_PORT", "9090")
	t.Setenv("JOBSCHED_SCHEDULER_BACKOFF_POLICY", "exponential")

	cfg, err := getConfig(v.AllSettings())
	assert.NilError(t, err)
	assert.Equal(t, cfg.HTTP.Port, 9090)
	assert.Equal(t, cfg.Scheduler.BackoffPolicy, config.ExponentialBackoff)
}

func TestReadConfigFile(t *testing.T) {
	bs, err := readConfigFile("")
	assert.NilError(t, err, "a missing default config file is skipped")
	assert.Assert(t, bs == nil)

	_, err = readConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "error finding configuration file")

	path := filepath.Join(t.TempDir(), "jobsched.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("http:\n  port: 0\n"), 0o600))
	bs, err = readConfigFile(path)
	assert.NilError(t, err)
	assert.Equal(t, string(bs), "http:\n  port: 0\n")
}

func TestNewScheduler(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clusters = []config.ClusterConfig{
		{ID: "a", RAM: 10, CPU: 10},
		{ID: "b", RAM: 20, CPU: 5, MaxConcurrentJobs: 2},
	}
	sched, err := newScheduler(cfg)
	assert.NilError(t, err)
	defer func() {
		assert.NilError(t, sched.Close())
	}()

	var ids []model.ClusterID
	for _, s := range sched.Clusters().Summaries() {
		ids = append(ids, s.ID)
	}
	assert.DeepEqual(t, ids, []model.ClusterID{"a", "b"})

	cfg.Clusters = append(cfg.Clusters, config.ClusterConfig{ID: "a", RAM: 1, CPU: 1})
	_, err = newScheduler(cfg)
	assert.Assert(t, errors.Is(err, cluster.ErrDuplicateCluster), err)
}

func TestSubmitJobsReportsEveryRejection(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clusters = []config.ClusterConfig{{ID: "a", RAM: 10, CPU: 10}}
	sched, err := newScheduler(cfg)
	assert.NilError(t, err)
	defer func() {
		assert.NilError(t, sched.Close())
	}()

	err = submitJobs(sched, []model.Job{
		{ID: "ok", RAM: 1, CPU: 1},
		{ID: "ok", RAM: 1, CPU: 1},
		{ID: "bad", RAM: -1, CPU: 1},
	})
	assert.ErrorContains(t, err, "2 errors occurred")
	assert.ErrorContains(t, err, "job already pending")
	assert.ErrorContains(t, err, "invalid job")
	assert.Equal(t, sched.QueueLen(), 1)
}

func TestRunUntilCanceled(t *testing.T) {
	jobsFile := filepath.Join(t.TempDir(), "jobs.yaml")
	assert.NilError(t, os.WriteFile(jobsFile, []byte(`
jobs:
  - id: first
    ram: 2
    cpu: 1
    duration: 10ms
  - ram: 1
    cpu: 1
    priority: 2
`), 0o600))

	cfg := config.DefaultConfig()
	cfg.Clusters = []config.ClusterConfig{{ID: "a", RAM: 10, CPU: 10}}
	cfg.HTTP.Port = 0
	cfg.JobsFile = jobsFile

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestRunRejectsBadJobsFile(t *testing.T) {
	jobsFile := filepath.Join(t.TempDir(), "jobs.yaml")
	assert.NilError(t, os.WriteFile(jobsFile, []byte("jobs:\n  - id: neg\n    ram: -1\n"), 0o600))

	cfg := config.DefaultConfig()
	cfg.Clusters = []config.ClusterConfig{{ID: "a", RAM: 10, CPU: 10}}
	cfg.HTTP.Port = 0
	cfg.JobsFile = jobsFile

	err := run(context.Background(), cfg)
	assert.Assert(t, errors.Is(err, scheduler.ErrInvalidJob), err)
}
