package scheduler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/determined-ai/jobsched/pkg/model"
)

const (
	mainBufferSize        = 1024
	perConsumerBufferSize = 64
)

// slowSubscriberTimeout is how long the fan-out waits on a subscriber whose buffer is full before
// disconnecting it.
var slowSubscriberTimeout = 100 * time.Millisecond

// PlacementEvent reports that a job was dispatched to a cluster.
type PlacementEvent struct {
	JobID     model.JobID     `json:"job_id"`
	ClusterID model.ClusterID `json:"cluster_id"`
	Priority  int             `json:"priority"`
	// Attempts is the number of allocation attempts made for the job, including the successful one.
	Attempts int `json:"attempts"`
	// Waited is the time between submission and dispatch.
	Waited model.Duration `json:"waited"`
	Time   time.Time      `json:"time"`
}

// Subscription receives every placement event published after it was created.
type Subscription struct {
	updates     <-chan PlacementEvent
	unsubscribe func()
	once        sync.Once
}

// Updates returns the channel of events. It is closed once the subscription is closed, the
// scheduler shuts down, or the subscriber falls too far behind.
func (s *Subscription) Updates() <-chan PlacementEvent {
	return s.updates
}

// Close unsubscribes. Undelivered events are discarded.
func (s *Subscription) Close() {
	s.once.Do(s.unsubscribe)
}

type subscribeRequest struct {
	id      int
	updates chan<- PlacementEvent
}

type unsubscribeRequest struct {
	id int
}

// eventManager fans placement events out to subscribers from a single goroutine, which owns the
// subscriber set.
type eventManager struct {
	id          sequence
	events      chan<- PlacementEvent
	subEvents   chan<- subscribeRequest
	unsubEvents chan<- unsubscribeRequest
	done        <-chan struct{}
}

func newEventManager(ctx context.Context, entry *log.Entry) *eventManager {
	in := make(chan PlacementEvent, mainBufferSize)
	// This channel is used to synchronize receipt of unsubscription
	// with draining our updates channel, do not buffer it.
	subs := make(chan subscribeRequest)
	unsubs := make(chan unsubscribeRequest)
	done := make(chan struct{})
	go fanOut(ctx, entry, in, subs, unsubs, done)
	return &eventManager{events: in, subEvents: subs, unsubEvents: unsubs, done: done}
}

func (m *eventManager) subscribe() *Subscription {
	id := m.id.next()
	updates := make(chan PlacementEvent, perConsumerBufferSize)
	select {
	case m.subEvents <- subscribeRequest{id: id, updates: updates}:
	case <-m.done:
		close(updates)
		return &Subscription{updates: updates, unsubscribe: func() {}}
	}

	return &Subscription{updates: updates, unsubscribe: func() {
		// fire off the unsub request asynchronously and drain the channel, in the event
		// we stopped consuming, our channel was full, and the fanOut routine is blocked
		// sending to us.
		done := make(chan struct{})
		go func() {
			select {
			case m.unsubEvents <- unsubscribeRequest{id: id}:
			case <-m.done:
			}
			close(done)
		}()
		var pending <-chan PlacementEvent = updates
		for {
			select {
			case _, ok := <-pending:
				if !ok {
					pending = nil
				}
			case <-done:
				return
			}
		}
	}}
}

// publish hands the event to the fan-out. It gives up if ctx ends or the fan-out has stopped.
func (m *eventManager) publish(ctx context.Context, event PlacementEvent) {
	select {
	case m.events <- event:
	case <-m.done:
	case <-ctx.Done():
	}
}

func fanOut(
	ctx context.Context,
	entry *log.Entry,
	in <-chan PlacementEvent,
	subs <-chan subscribeRequest,
	unsubs <-chan unsubscribeRequest,
	done chan<- struct{},
) {
	subsByID := map[int]chan<- PlacementEvent{}
	defer func() {
		for id := range subsByID {
			unsub(subsByID, unsubscribeRequest{id: id})
		}
		close(done)
	}()

	for {
		select {
		case msg := <-in:
			if !send(ctx, entry, subsByID, msg) {
				return
			}
		case msg := <-subs:
			subsByID[msg.id] = msg.updates
		case msg := <-unsubs:
			unsub(subsByID, msg)
		case <-ctx.Done():
			return
		}
	}
}

// send delivers the event to every subscriber. A subscriber whose buffer stays full for
// slowSubscriberTimeout is disconnected. It returns false if the context ended first.
func send(
	ctx context.Context,
	entry *log.Entry,
	subsByID map[int]chan<- PlacementEvent,
	event PlacementEvent,
) bool {
	for id, c := range subsByID {
		select {
		case c <- event:
			continue
		default:
		}

		timer := time.NewTimer(slowSubscriberTimeout)
		select {
		case c <- event:
			timer.Stop()
		case <-timer.C:
			entry.WithField("subscription-id", id).
				Warnf("disconnecting placement subscriber: %d events unread", cap(c))
			unsub(subsByID, unsubscribeRequest{id: id})
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}
	return true
}

func unsub(subsByID map[int]chan<- PlacementEvent, msg unsubscribeRequest) {
	updates, ok := subsByID[msg.id]
	if !ok {
		return
	}
	close(updates)
	delete(subsByID, msg.id)
}

type sequence struct {
	mu sync.Mutex
	i  int
}

func (s *sequence) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.i++
	return s.i
}
