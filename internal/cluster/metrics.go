package cluster

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/determined-ai/jobsched/pkg/model"
)

const (
	promNamespace = "jobsched"
	promSubsystem = "cluster"
)

var (
	clusterLabels         = []string{"cluster"}
	clusterResourceLabels = []string{"cluster", "resource"}

	availableResources = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "available_resources",
		Help:      "resources not reserved by any job",
	}, clusterResourceLabels)
	capacityResources = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "capacity_resources",
		Help:      "total resources of the cluster",
	}, clusterResourceLabels)
	runningJobs = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "running_jobs",
		Help:      "jobs holding resources on the cluster",
	}, clusterLabels)
	jobSeconds = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "job_seconds",
		Help:      "time jobs held their resources",
		Buckets:   prom.DefBuckets,
	}, clusterLabels)
	interruptedJobs = prom.NewCounterVec(prom.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promSubsystem,
		Name:      "interrupted_jobs_total",
		Help:      "jobs that ended early because of an interruption, error or panic",
	}, clusterLabels)
)

func init() {
	prom.MustRegister(availableResources)
	prom.MustRegister(capacityResources)
	prom.MustRegister(runningJobs)
	prom.MustRegister(jobSeconds)
	prom.MustRegister(interruptedJobs)
}

func observeResources(id model.ClusterID, capacity, available model.Resources) {
	capacityResources.WithLabelValues(string(id), "ram").Set(float64(capacity.RAM))
	capacityResources.WithLabelValues(string(id), "cpu").Set(float64(capacity.CPU))
	availableResources.WithLabelValues(string(id), "ram").Set(float64(available.RAM))
	availableResources.WithLabelValues(string(id), "cpu").Set(float64(available.CPU))
}
