package cluster

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/determined-ai/jobsched/pkg/model"
)

// ErrDuplicateCluster is returned when a cluster id is registered twice.
var ErrDuplicateCluster = errors.New("cluster already registered")

// Manager owns the registered clusters and places jobs on them.
type Manager struct {
	mu       sync.Mutex
	clusters []*Cluster
	byID     map[model.ClusterID]*Cluster
	fit      FitFunction

	// released holds at most one pending wake-up; releases coalesce.
	released chan struct{}
}

// NewManager returns an empty manager that chooses clusters with the given fitting policy.
func NewManager(fittingPolicy string) *Manager {
	return &Manager{
		byID:     make(map[model.ClusterID]*Cluster),
		fit:      MakeFitFunction(fittingPolicy),
		released: make(chan struct{}, 1),
	}
}

// AddCluster registers a cluster. Clusters are scanned in the order they were added.
func (m *Manager) AddCluster(c *Cluster) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[c.ID()]; ok {
		return errors.Wrapf(ErrDuplicateCluster, "cluster %s", c.ID())
	}
	c.setReleaseHook(m.notifyRelease)
	m.clusters = append(m.clusters, c)
	m.byID[c.ID()] = c
	log.WithFields(log.Fields{
		"cluster-id": c.ID(),
		"ram":        c.Capacity().RAM,
		"cpu":        c.Capacity().CPU,
	}).Info("registered cluster")
	return nil
}

// Allocate finds a cluster with room for the job and reserves the job's demand on it, as one
// atomic step with respect to other allocations. It returns nil if no cluster has room now.
func (m *Manager) Allocate(job model.Job) *Cluster {
	demand := job.Demand()

	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		candidate := m.bestCandidate(demand)
		if candidate == nil {
			return nil
		}
		// Releases only ever grow availability, so this succeeds unless the cluster was reserved
		// directly, bypassing the manager. In that case scan again.
		if candidate.TryReserve(demand) {
			return candidate
		}
	}
}

func (m *Manager) bestCandidate(demand model.Resources) *Cluster {
	var (
		best      *Cluster
		bestScore float64
	)
	for _, c := range m.clusters {
		summary := c.Summary()
		if !resourcesSatisfied(demand, summary) {
			continue
		}
		if score := m.fit(demand, summary); best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// Feasible returns true if some cluster could hold the demand once it is otherwise idle.
func (m *Manager) Feasible(demand model.Resources) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.clusters {
		if demand.Fits(c.Capacity()) {
			return true
		}
	}
	return false
}

// Released returns a channel that receives after clusters release resources. Several releases
// may be reported by a single receive.
func (m *Manager) Released() <-chan struct{} {
	return m.released
}

// Wake fires the Released signal without a release, for callers that added capacity some other way.
func (m *Manager) Wake() {
	m.notifyRelease()
}

func (m *Manager) notifyRelease() {
	select {
	case m.released <- struct{}{}:
	default:
	}
}

// Cluster returns the cluster with the given id.
func (m *Manager) Cluster(id model.ClusterID) (*Cluster, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[id]
	return c, ok
}

// Clusters returns the registered clusters in registration order.
func (m *Manager) Clusters() []*Cluster {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*Cluster(nil), m.clusters...)
}

// Summaries returns a snapshot of every cluster in registration order.
func (m *Manager) Summaries() []Summary {
	clusters := m.Clusters()
	summaries := make([]Summary, 0, len(clusters))
	for _, c := range clusters {
		summaries = append(summaries, c.Summary())
	}
	return summaries
}

// Close interrupts the jobs running on every cluster and waits for their resources to return.
func (m *Manager) Close() {
	for _, c := range m.Clusters() {
		c.Close()
	}
}
