package scheduler

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

const (
	promNamespace = "jobsched"
	promSubsystem = "scheduler"
)

var (
	pendingJobs = prom.NewGauge(prom.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "pending_jobs",
		Help:      "jobs submitted but not yet taken by the scheduling loop",
	})
	placementsTotal = prom.NewCounterVec(prom.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "placements_total",
		Help:      "jobs dispatched to a cluster",
	}, []string{"cluster"})
	placementRetries = prom.NewCounter(prom.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "placement_retries_total",
		Help:      "allocation attempts that found no cluster with room",
	})
	placementWaitSeconds = prom.NewHistogram(prom.HistogramOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "placement_wait_seconds",
		Help:      "time from submission to dispatch",
		Buckets:   prom.ExponentialBuckets(0.001, 4, 10),
	})
	rejectedJobs = prom.NewCounterVec(prom.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "rejected_jobs_total",
		Help:      "submissions refused by the scheduler",
	}, []string{"reason"})
)

func init() {
	prom.MustRegister(pendingJobs)
	prom.MustRegister(placementsTotal)
	prom.MustRegister(placementRetries)
	prom.MustRegister(placementWaitSeconds)
	prom.MustRegister(rejectedJobs)
}
