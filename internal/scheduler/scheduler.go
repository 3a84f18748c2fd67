package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/determined-ai/jobsched/internal/cluster"
	"github.com/determined-ai/jobsched/internal/config"
	"github.com/determined-ai/jobsched/pkg/check"
	"github.com/determined-ai/jobsched/pkg/logger"
	"github.com/determined-ai/jobsched/pkg/model"
	"github.com/determined-ai/jobsched/pkg/syncx/errgroupx"
	"github.com/determined-ai/jobsched/pkg/syncx/queue"
)

var (
	// ErrInvalidJob is returned for submissions that fail validation.
	ErrInvalidJob = errors.New("invalid job")
	// ErrDuplicateJob is returned when a job with the same id is still waiting to be placed.
	ErrDuplicateJob = errors.New("job already pending")
	// ErrAlreadyStarted is returned when the scheduling loop is started twice.
	ErrAlreadyStarted = errors.New("scheduler already started")
	// ErrClosed is returned by operations on a closed scheduler.
	ErrClosed = errors.New("scheduler closed")
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for backoff timers and wait times.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

type pendingJob struct {
	job       model.Job
	submitted time.Time
	// seq orders jobs of equal priority by submission, and survives a requeue.
	seq uint64
}

func byPriority(a, b pendingJob) int {
	switch {
	case a.job.Priority < b.job.Priority:
		return -1
	case a.job.Priority > b.job.Priority:
		return 1
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	default:
		return 0
	}
}

// Scheduler takes submitted jobs in priority order and places each one on a cluster with room
// for it. A single loop places one job at a time: the job at the head of the queue is retried
// until it fits, and nothing behind it is placed before it.
type Scheduler struct {
	config   config.SchedulerConfig
	clusters *cluster.Manager
	clock    clockwork.Clock
	log      *log.Entry

	queue      *queue.Queue[pendingJob]
	events     *eventManager
	stopEvents context.CancelFunc
	placements *lru.Cache[model.JobID, PlacementEvent]

	mu sync.Mutex
	// unplaced holds the ids of submitted jobs that have not been dispatched yet.
	unplaced map[model.JobID]struct{}
	seq      uint64
	state    State
	current  *model.Job
	attempts int
	group    *errgroupx.Group
	running  bool
	closed   bool
}

// New returns a scheduler placing jobs on the clusters of the given manager. The scheduler owns
// the manager from then on and closes it on Close.
func New(
	cfg config.SchedulerConfig, clusters *cluster.Manager, opts ...Option,
) (*Scheduler, error) {
	if err := check.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid scheduler config")
	}
	placements, err := lru.New[model.JobID, PlacementEvent](cfg.PlacementHistorySize)
	if err != nil {
		return nil, errors.Wrap(err, "creating placement history")
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := logger.ComponentContext("scheduler").Entry()
	s := &Scheduler{
		config:     cfg,
		clusters:   clusters,
		clock:      clockwork.NewRealClock(),
		log:        entry,
		queue:      queue.New(byPriority),
		events:     newEventManager(ctx, entry),
		stopEvents: cancel,
		placements: placements,
		unplaced:   make(map[model.JobID]struct{}),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddCluster registers another cluster. It may be called while the loop is running; the job
// being placed considers the new cluster on its next attempt.
func (s *Scheduler) AddCluster(c *cluster.Cluster) error {
	if err := s.clusters.AddCluster(c); err != nil {
		return err
	}
	s.clusters.Wake()
	return nil
}

// Clusters returns the cluster manager.
func (s *Scheduler) Clusters() *cluster.Manager {
	return s.clusters
}

// SubmitJob validates the job and queues it. It never waits for the job to be placed.
func (s *Scheduler) SubmitJob(job model.Job) error {
	if err := check.Validate(job); err != nil {
		rejectedJobs.WithLabelValues("invalid").Inc()
		return errors.Wrapf(ErrInvalidJob, "job %s: %s", job.ID, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		rejectedJobs.WithLabelValues("closed").Inc()
		return ErrClosed
	}
	if _, ok := s.unplaced[job.ID]; ok {
		s.mu.Unlock()
		rejectedJobs.WithLabelValues("duplicate").Inc()
		return errors.Wrapf(ErrDuplicateJob, "job %s", job.ID)
	}
	s.unplaced[job.ID] = struct{}{}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.queue.Put(pendingJob{job: job, submitted: s.clock.Now(), seq: seq})
	pendingJobs.Set(float64(s.queue.Len()))

	jobLog := s.log.WithFields(jobContext(job).Fields())
	jobLog.Debug("job submitted")
	if !s.clusters.Feasible(job.Demand()) {
		jobLog.Warn("job needs more than any registered cluster has; " +
			"it will block the queue until a large enough cluster is added")
	}
	return nil
}

// Start launches the scheduling loop. It returns immediately; the loop runs until the context
// is canceled or the scheduler is closed. A loop stopped by its context may be started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return ErrClosed
	case s.running:
		return ErrAlreadyStarted
	}
	s.running = true
	s.group = errgroupx.WithContext(ctx).WithRecover()
	s.group.Go(s.schedule)
	return nil
}

// Run starts the scheduling loop and blocks until it stops. If ctx is canceled while a job is
// being placed, that job goes back to the queue in its original position, so it is placed by
// the next Start or reported as dropped by Close.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Wait()
}

// Wait blocks until the scheduling loop stops. A loop stopped by cancellation is not an error.
func (s *Scheduler) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()

	if g == nil {
		return nil
	}
	err := ignoreCanceled(g.Wait())
	var perr *errgroupx.PanicError
	if errors.As(err, &perr) {
		s.log.WithField("panic", perr.Value).Errorf("scheduling loop panicked\n%s", perr.Stack)
	}
	return err
}

// Close stops the scheduling loop and the event fan-out, then closes every cluster, which
// interrupts running jobs and waits for their resources to be released. Jobs still queued are
// dropped. Close is idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	g := s.group
	s.mu.Unlock()

	var err error
	if g != nil {
		err = ignoreCanceled(g.Close())
	}
	s.stopEvents()
	s.clusters.Close()

	for {
		if _, ok := s.queue.TryGet(); !ok {
			break
		}
	}
	pendingJobs.Set(0)

	s.mu.Lock()
	s.state, s.current, s.attempts = StateStopped, nil, 0
	dropped := maps.Keys(s.unplaced)
	s.unplaced = map[model.JobID]struct{}{}
	s.mu.Unlock()

	if len(dropped) > 0 {
		slices.Sort(dropped)
		s.log.WithField("job-ids", dropped).Warnf("scheduler closed with %d unplaced jobs", len(dropped))
	}
	s.log.Info("scheduler closed")
	return err
}

// Subscribe returns a subscription to the events of jobs dispatched from now on.
func (s *Scheduler) Subscribe() *Subscription {
	return s.events.subscribe()
}

// Placement returns the placement of a recently dispatched job.
func (s *Scheduler) Placement(id model.JobID) (PlacementEvent, bool) {
	return s.placements.Get(id)
}

// State returns the phase of the scheduling loop.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the scheduling loop.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{State: s.state, Attempts: s.attempts, QueueLength: s.queue.Len()}
	if s.current != nil {
		current := *s.current
		status.Current = &current
	}
	return status
}

// QueueLen returns the number of jobs waiting behind the loop.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}

// Pending returns the queued jobs in the order they will be taken.
func (s *Scheduler) Pending() []model.Job {
	queued := s.queue.Values()
	jobs := make([]model.Job, 0, len(queued))
	for _, p := range queued {
		jobs = append(jobs, p.job)
	}
	return jobs
}

func (s *Scheduler) schedule(ctx context.Context) error {
	s.log.Info("scheduling loop started")
	defer func() {
		s.mu.Lock()
		s.running = false
		if !s.closed {
			s.state, s.current, s.attempts = StateIdle, nil, 0
		}
		s.mu.Unlock()
		s.log.Info("scheduling loop stopped")
	}()

	for {
		s.setState(StateWaitingForJob, nil, 0)
		next, err := s.queue.GetWithContext(ctx)
		if err != nil {
			return err
		}
		pendingJobs.Set(float64(s.queue.Len()))

		c, attempts, err := s.place(ctx, next.job)
		if err != nil {
			s.queue.Put(next)
			pendingJobs.Set(float64(s.queue.Len()))
			s.log.WithField("job-id", next.job.ID).
				Info("scheduling loop stopped before the job was placed; job requeued")
			return err
		}

		s.setState(StateDispatched, &next.job, attempts)
		c.Submit(next.job)
		s.dispatched(ctx, next, c, attempts)
	}
}

// place retries the allocation of one job until it succeeds. Between attempts it sleeps for the
// backoff interval, or less if a cluster releases resources in the meantime.
func (s *Scheduler) place(ctx context.Context, job model.Job) (*cluster.Cluster, int, error) {
	b := newBackOff(s.config)
	warned := false
	for attempt := 1; ; attempt++ {
		s.setState(StateSeekingPlacement, &job, attempt)
		if c := s.clusters.Allocate(job); c != nil {
			return c, attempt, nil
		}
		placementRetries.Inc()

		if !warned && !s.clusters.Feasible(job.Demand()) {
			s.log.WithFields(jobContext(job).Fields()).
				Warn("no cluster is large enough for the job; scheduling is blocked behind it")
			warned = true
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = time.Duration(s.config.MaxBackoffInterval)
		}
		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, ctx.Err()
		case <-s.released():
			timer.Stop()
		case <-timer.Chan():
		}
	}
}

// released returns the manager's release signal, or nil (which blocks forever) when waking on
// release is disabled.
func (s *Scheduler) released() <-chan struct{} {
	if !s.config.WakeOnRelease {
		return nil
	}
	return s.clusters.Released()
}

func (s *Scheduler) dispatched(
	ctx context.Context, p pendingJob, c *cluster.Cluster, attempts int,
) {
	waited := s.clock.Since(p.submitted)
	event := PlacementEvent{
		JobID:     p.job.ID,
		ClusterID: c.ID(),
		Priority:  p.job.Priority,
		Attempts:  attempts,
		Waited:    model.Duration(waited),
		Time:      s.clock.Now(),
	}

	s.mu.Lock()
	delete(s.unplaced, p.job.ID)
	s.mu.Unlock()

	s.placements.Add(p.job.ID, event)
	placementsTotal.WithLabelValues(string(c.ID())).Inc()
	placementWaitSeconds.Observe(waited.Seconds())
	s.log.WithFields(logger.MergeContexts(
		jobContext(p.job), logger.Context{"cluster-id": c.ID(), "attempts": attempts},
	).Fields()).Infof("job %s running on cluster %s", p.job.ID, c.ID())

	s.events.publish(ctx, event)
}

func (s *Scheduler) setState(state State, job *model.Job, attempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, s.current, s.attempts = state, job, attempts
}

func jobContext(job model.Job) logger.Context {
	return logger.Context{
		"job-id":   job.ID,
		"priority": job.Priority,
		"ram":      job.RAM,
		"cpu":      job.CPU,
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
