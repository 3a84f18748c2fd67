package scheduler

import "github.com/determined-ai/jobsched/pkg/model"

// State is the phase of the scheduling loop.
type State string

const (
	// StateIdle means the loop is not running.
	StateIdle State = "Idle"
	// StateWaitingForJob means the loop is blocked on an empty queue.
	StateWaitingForJob State = "WaitingForJob"
	// StateSeekingPlacement means the loop holds a job and is looking for a cluster with room.
	StateSeekingPlacement State = "SeekingPlacement"
	// StateDispatched means the loop just handed a job to a cluster.
	StateDispatched State = "Dispatched"
	// StateStopped means the scheduler was closed.
	StateStopped State = "Stopped"
)

// Status is a snapshot of the scheduler.
type Status struct {
	State State `json:"state"`
	// Current is the job held by the loop, if any. While seeking a placement it blocks every
	// job behind it.
	Current     *model.Job `json:"current,omitempty"`
	Attempts    int        `json:"attempts"`
	QueueLength int        `json:"queue_length"`
}
