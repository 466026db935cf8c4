package job

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AnyUserName/stitch-cli/internal/encoder"
	"github.com/AnyUserName/stitch-cli/internal/layout"
	"github.com/AnyUserName/stitch-cli/internal/render"
	"github.com/AnyUserName/stitch-cli/internal/source"
)

// Runner executes jobs on a pool of workers. Each job's drawing work is
// sequential on one worker; job-level parallelism comes from running
// several workers.
type Runner struct {
	registry *encoder.Registry
	logger   zerolog.Logger
	queue    chan *Job
	done     chan struct{}

	mu     sync.Mutex
	jobs   map[string]*Job
	closed bool

	// submits tracks Submit calls that passed the closed check, so Close
	// can wait for racing enqueues before draining the queue itself.
	submits sync.WaitGroup
	wg      sync.WaitGroup
}

// NewRunner starts a runner with the given number of workers
// (0 = NumCPU).
func NewRunner(workers int, logger zerolog.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	r := &Runner{
		registry: encoder.NewRegistry(),
		logger:   logger,
		queue:    make(chan *Job, workers*2),
		done:     make(chan struct{}),
		jobs:     make(map[string]*Job),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Submit snapshots the request as a new job and queues it. The returned
// job's Events channel delivers progress and exactly one terminal event.
func (r *Runner) Submit(req Request) (*Job, error) {
	if len(req.Images) == 0 {
		return nil, ErrNoImages
	}

	j := newJob(context.Background(), req)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		j.cancel()
		return nil, errors.New("runner is shut down")
	}
	r.jobs[j.ID] = j
	r.submits.Add(1)
	r.mu.Unlock()
	defer r.submits.Done()

	r.logger.Debug().Str("job", j.ID).Int("images", len(req.Images)).Msg("job submitted")

	// A shutdown racing a full queue must fail the submission, never
	// crash it: the queue is not closed, Close signals done instead.
	select {
	case r.queue <- j:
		return j, nil
	case <-r.done:
		r.mu.Lock()
		delete(r.jobs, j.ID)
		r.mu.Unlock()
		j.cancel()
		return nil, errors.New("runner is shut down")
	}
}

// Lookup finds a live (or retained terminal) job by identity.
func (r *Runner) Lookup(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// Cancel requests cancellation of the identified job. Unknown identities
// are ignored, matching the demultiplexing rule that stale messages are
// dropped.
func (r *Runner) Cancel(id string) bool {
	j, ok := r.Lookup(id)
	if !ok {
		return false
	}
	r.logger.Debug().Str("job", id).Msg("cancellation requested")
	j.Cancel()
	return true
}

// Evict forgets terminal jobs that finished before the retention window.
// Returns how many were dropped.
func (r *Runner) Evict(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.jobs {
		if j.finishedBefore(cutoff) {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}

// Close stops accepting jobs, cancels everything in flight and waits for
// the workers to drain.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, j := range r.jobs {
		j.Cancel()
	}
	r.mu.Unlock()

	close(r.done)
	r.submits.Wait()
	r.wg.Wait()

	// A submission racing the shutdown may have won its enqueue after the
	// workers drained; run any stragglers (cancelled above) so their
	// requesters still see a terminal event.
	for {
		select {
		case j := <-r.queue:
			r.run(j)
		default:
			return
		}
	}
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for {
		select {
		case j := <-r.queue:
			r.run(j)
		case <-r.done:
			// Drain what is already queued; those jobs were cancelled by
			// Close and terminate immediately, but their requesters still
			// get a terminal event.
			for {
				select {
				case j := <-r.queue:
					r.run(j)
				default:
					return
				}
			}
		}
	}
}

// run executes one job start to finish, emitting tagged events and exactly
// one terminal message.
func (r *Runner) run(j *Job) {
	defer close(j.events)
	j.setRunning()

	blob, mime, err := r.execute(j)
	switch {
	case err == nil:
		j.finish(StateCompleted, blob, mime, nil)
		j.events <- Event{JobID: j.ID, Type: EventResult, Blob: blob, MIME: mime}
		r.logger.Debug().Str("job", j.ID).Int("bytes", len(blob)).Msg("job completed")
	case errors.Is(err, context.Canceled):
		j.finish(StateCancelled, nil, "", nil)
		j.events <- Event{JobID: j.ID, Type: EventCancelled}
		r.logger.Debug().Str("job", j.ID).Msg("job cancelled")
	default:
		j.finish(StateFailed, nil, "", err)
		j.events <- Event{JobID: j.ID, Type: EventError, Message: err.Error()}
		r.logger.Warn().Str("job", j.ID).Err(err).Msg("job failed")
	}
}

func (r *Runner) execute(j *Job) ([]byte, string, error) {
	// The requester named the format; resolve it before doing any work.
	enc, err := r.registry.Resolve(j.req.Output.Format)
	if err != nil {
		return nil, "", err
	}

	// Decode and normalize inputs. A decode failure aborts the whole job;
	// there is no best-effort partial composite.
	images := make([]*source.Image, len(j.req.Images))
	sizes := make([]layout.Size, len(j.req.Images))
	for i, in := range j.req.Images {
		var img *source.Image
		if in.Decoded != nil {
			img = source.FromImage(in.Name, in.Decoded)
		} else {
			img, err = source.FromBytes(in.Name, in.Raw)
			if err != nil {
				return nil, "", err
			}
			if img.Format == "jpeg" && img.Orientation == source.OrientationUnspecified {
				// Advisory only; the image proceeds unrotated.
				r.logger.Debug().Str("job", j.ID).Str("image", in.Name).
					Msg("no usable EXIF orientation, using pixels as stored")
			}
		}
		images[i] = img
		sizes[i] = layout.Size{Width: img.Width, Height: img.Height}
	}

	// Cancellation that lands before any drawing yields a clean cancelled
	// terminal with zero progress events.
	if err := j.ctx.Err(); err != nil {
		return nil, "", err
	}

	plan := layout.Compute(sizes, j.req.Layout)

	canvas, err := render.Composite(j.ctx, plan, images, j.req.Layout, j.req.Style, j.req.Marks,
		func(drawn, total int) {
			p := float64(drawn) / float64(total)
			j.setProgress(p)
			j.events <- Event{JobID: j.ID, Type: EventProgress, Progress: p}
		})
	if err != nil {
		return nil, "", err
	}

	// The last check boundary has passed: a cancel arriving now no longer
	// suppresses the result.
	blob, err := enc.Encode(canvas, encoder.QualityScale(j.req.Output.Quality))
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", enc.Format(), err)
	}
	return blob, enc.MIME(), nil
}
