package cluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/determined-ai/jobsched/pkg/logger"
	"github.com/determined-ai/jobsched/pkg/model"
	"github.com/determined-ai/jobsched/pkg/syncx/waitgroupx"
)

var clusterContext = logger.ComponentContext("cluster")

// Executor runs a job that has been admitted to a cluster. The job keeps its reservation until
// the executor returns; whatever it returns, the reservation is then given back.
type Executor func(ctx context.Context, job model.Job) error

// Option configures a Cluster.
type Option func(*Cluster)

// WithClock sets the clock used to time job execution.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cluster) {
		c.clock = clock
	}
}

// WithExecutor replaces the default executor, which holds the job's resources for its duration.
func WithExecutor(execute Executor) Option {
	return func(c *Cluster) {
		c.execute = execute
	}
}

// WithMaxConcurrentJobs bounds the number of jobs executing at once. Zero means no bound.
func WithMaxConcurrentJobs(n int) Option {
	return func(c *Cluster) {
		if n > 0 {
			c.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// Summary is a point-in-time view of a cluster.
type Summary struct {
	ID        model.ClusterID `json:"id"`
	Capacity  model.Resources `json:"capacity"`
	Available model.Resources `json:"available"`
	Running   int             `json:"running"`
}

// Cluster is an execution site with a fixed resource budget and a worker pool. Its available
// resources are debited by TryReserve and credited back when a submitted job finishes; they never
// go below zero or above the capacity.
type Cluster struct {
	id       model.ClusterID
	capacity model.Resources

	mu        sync.Mutex
	available model.Resources
	onRelease func()

	clock   clockwork.Clock
	execute Executor
	slots   *semaphore.Weighted
	workers waitgroupx.Group
	log     *log.Entry
}

// New returns a cluster with all of its capacity available.
func New(id model.ClusterID, capacity model.Resources, opts ...Option) (*Cluster, error) {
	if id == "" {
		return nil, errors.New("cluster id must not be empty")
	}
	if capacity.IsNegative() {
		return nil, errors.Errorf("cluster %s has negative capacity (%s)", id, capacity)
	}

	c := &Cluster{
		id:        id,
		capacity:  capacity,
		available: capacity,
		clock:     clockwork.NewRealClock(),
		workers:   waitgroupx.WithContext(context.Background()),
		log:       logger.MergeContexts(clusterContext, logger.Context{"cluster-id": id}).Entry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.execute == nil {
		c.execute = c.hold
	}
	observeResources(c.id, c.capacity, c.available)
	runningJobs.WithLabelValues(string(c.id)).Set(0)
	return c, nil
}

// ID returns the cluster id.
func (c *Cluster) ID() model.ClusterID {
	return c.id
}

// Capacity returns the total resources of the cluster.
func (c *Cluster) Capacity() model.Resources {
	return c.capacity
}

// Available returns the resources not currently reserved.
func (c *Cluster) Available() model.Resources {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// Running returns the number of submitted jobs that have not released their resources yet.
func (c *Cluster) Running() int {
	return c.workers.Active()
}

// Summary returns a snapshot of the cluster.
func (c *Cluster) Summary() Summary {
	return Summary{
		ID:        c.id,
		Capacity:  c.capacity,
		Available: c.Available(),
		Running:   c.Running(),
	}
}

// TryReserve debits demand from the available resources if, and only if, both dimensions fit.
func (c *Cluster) TryReserve(demand model.Resources) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !demand.Fits(c.available) {
		return false
	}
	c.available = c.available.Sub(demand)
	observeResources(c.id, c.capacity, c.available)
	return true
}

// Submit hands a job, whose demand must already be reserved through TryReserve, to the worker
// pool and returns immediately.
func (c *Cluster) Submit(job model.Job) {
	runningJobs.WithLabelValues(string(c.id)).Inc()
	c.workers.Go(func(ctx context.Context) {
		c.run(ctx, job)
	})
}

// Wait blocks until every submitted job has released its resources.
func (c *Cluster) Wait() {
	c.workers.Wait()
}

// Close interrupts running jobs and waits for all of them to release their resources.
func (c *Cluster) Close() {
	c.workers.Close()
}

func (c *Cluster) setReleaseHook(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRelease = hook
}

func (c *Cluster) run(ctx context.Context, job model.Job) {
	jobLog := c.log.WithField("job-id", job.ID)
	start := c.clock.Now()

	defer func() {
		c.release(job.Demand())
		runningJobs.WithLabelValues(string(c.id)).Dec()
		jobSeconds.WithLabelValues(string(c.id)).Observe(c.clock.Since(start).Seconds())
		jobLog.Debug("job released its resources")
	}()
	defer func() {
		if rec := recover(); rec != nil {
			interruptedJobs.WithLabelValues(string(c.id)).Inc()
			jobLog.Errorf("job panicked: %v", rec)
		}
	}()

	if c.slots != nil {
		if err := c.slots.Acquire(ctx, 1); err != nil {
			interruptedJobs.WithLabelValues(string(c.id)).Inc()
			jobLog.WithError(err).Warn("job interrupted while waiting for a worker")
			return
		}
		defer c.slots.Release(1)
	}

	if err := c.execute(ctx, job); err != nil {
		interruptedJobs.WithLabelValues(string(c.id)).Inc()
		jobLog.WithError(err).Warn("job ended early")
	}
}

// hold is the default executor: the job occupies its resources for its duration.
func (c *Cluster) hold(ctx context.Context, job model.Job) error {
	if job.RunTime() <= 0 {
		return nil
	}
	select {
	case <-c.clock.After(job.RunTime()):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cluster) release(demand model.Resources) {
	c.mu.Lock()
	c.available = c.available.Add(demand)
	if !c.available.Fits(c.capacity) {
		available := c.available
		c.mu.Unlock()
		panic(fmt.Sprintf("cluster %s over capacity after release: available %s, capacity %s",
			c.id, available, c.capacity))
	}
	observeResources(c.id, c.capacity, c.available)
	hook := c.onRelease
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
}
