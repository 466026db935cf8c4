package job

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnyUserName/stitch-cli/internal/layout"
	"github.com/AnyUserName/stitch-cli/internal/render"
)

// State is the lifecycle of one job. Terminal states are final: a failed or
// cancelled job is resubmitted as a new job with a new identity.
type State string

const (
	StateSubmitted State = "submitted"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// InputImage is one ordered input, either raw encoded bytes or an
// already-decoded bitmap handle supplied by a collaborator.
type InputImage struct {
	Name    string
	Raw     []byte
	Decoded image.Image
}

// Output selects the encoded result format. Quality is a fraction in
// [0, 1]; lossless formats ignore it.
type Output struct {
	Format  string
	Quality float64
}

// Request is the immutable per-job snapshot of everything a composite
// needs. The engine never reads live external state mid-job.
type Request struct {
	Images []InputImage
	Layout layout.Options
	Style  render.Style
	Marks  []render.Watermark
	Output Output
}

// EventType tags messages flowing back to the requester.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventResult    EventType = "result"
	EventCancelled EventType = "cancelled"
	EventError     EventType = "error"
)

// Event is one message from the executor. Every event carries the job's
// identity so a requester juggling several jobs can demultiplex and drop
// stale messages.
type Event struct {
	JobID    string
	Type     EventType
	Progress float64 // set for EventProgress
	Blob     []byte  // set for EventResult
	MIME     string  // set for EventResult
	Message  string  // set for EventError
}

// ErrNoImages rejects a submission with an empty image list.
var ErrNoImages = errors.New("job has no images")

// Job is one compositing run. All mutation goes through the Runner; callers
// observe it via Events, Status and Result.
type Job struct {
	ID string

	req    Request
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event

	mu         sync.Mutex
	state      State
	progress   float64
	blob       []byte
	mime       string
	err        error
	finishedAt time.Time
}

func newJob(parent context.Context, req Request) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		ID:     uuid.NewString(),
		req:    req,
		ctx:    ctx,
		cancel: cancel,
		// One progress event per image plus the terminal event: emitting
		// never blocks, so a requester that only polls Status does not
		// wedge the worker.
		events: make(chan Event, len(req.Images)+1),
		state:  StateSubmitted,
	}
}

// Events returns the job's message stream. It is closed after the terminal
// event; the terminal event is always the last one.
func (j *Job) Events() <-chan Event { return j.events }

// Cancel requests cooperative cancellation. The job honors it at the next
// per-image boundary; a cancel arriving after the final check boundary does
// not suppress an already-earned result.
func (j *Job) Cancel() { j.cancel() }

// Status is a point-in-time snapshot of a job.
type Status struct {
	ID       string  `json:"id"`
	State    State   `json:"state"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Status{ID: j.ID, State: j.state, Progress: j.progress}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	return s
}

// Result returns the encoded blob and its MIME type once the job completed.
func (j *Job) Result() ([]byte, string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.state {
	case StateCompleted:
		return j.blob, j.mime, nil
	case StateFailed:
		return nil, "", j.err
	case StateCancelled:
		return nil, "", context.Canceled
	}
	return nil, "", errors.New("job still running")
}

func (j *Job) setRunning() {
	j.mu.Lock()
	j.state = StateRunning
	j.mu.Unlock()
}

func (j *Job) setProgress(p float64) {
	j.mu.Lock()
	if p > j.progress {
		j.progress = p
	}
	j.mu.Unlock()
}

func (j *Job) finish(state State, blob []byte, mime string, err error) {
	j.mu.Lock()
	j.state = state
	j.blob = blob
	j.mime = mime
	j.err = err
	if state == StateCompleted {
		j.progress = 1
	}
	j.finishedAt = time.Now()
	j.mu.Unlock()
	j.cancel() // release the context either way
}

func (j *Job) finishedBefore(cutoff time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.Terminal() && !j.finishedAt.IsZero() && j.finishedAt.Before(cutoff)
}
