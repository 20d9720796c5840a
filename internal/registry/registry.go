package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/codebuildervaibhav/media-relay/internal/types"
)

// Registry errors
var (
	// ErrUnknownJob is returned when an id has never been claimed.
	ErrUnknownJob = errors.New("unknown job")

	// ErrInvalidTransition indicates an illegal state change. Under correct
	// use of the registry this never happens; treat it as a programming
	// defect, not an operational condition.
	ErrInvalidTransition = errors.New("invalid job transition")

	// ErrNotFailed is returned by Retrigger for jobs that are not failed.
	ErrNotFailed = errors.New("job is not failed")
)

// job is the registry-owned record of one fetch-transcode attempt. All fields
// are guarded by the registry mutex; done is closed exactly once, when the
// job reaches a terminal state.
type job struct {
	id        string
	title     string
	state     types.State
	outputRef string
	err       error
	createdAt time.Time
	updatedAt time.Time
	done      chan struct{}
}

// Snapshot is an immutable copy of a job, safe to hand out and serialize.
type Snapshot struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	State     types.State `json:"state"`
	OutputRef string      `json:"link,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Ready reports whether the final artifact exists and may be served.
func (s Snapshot) Ready() bool { return s.State == types.StateReady }

// Registry is the single owner of all job state. Every mutation goes through
// its mutex, which is what closes the check-then-act race between concurrent
// requests for the same id.
type Registry struct {
	mu     sync.Mutex
	jobs   map[string]*job
	notify func(Snapshot)
}

// New creates an empty registry. notify, if non-nil, is invoked after every
// state change (including creation) outside the registry lock.
func New(notify func(Snapshot)) *Registry {
	return &Registry{
		jobs:   make(map[string]*job),
		notify: notify,
	}
}

// ClaimOrJoin atomically creates a pending job for id or returns the existing
// one. Exactly one caller among any set of concurrent callers for the same id
// observes created == true; that caller owns the pipeline for the job.
func (r *Registry) ClaimOrJoin(id, title string) (Snapshot, bool) {
	r.mu.Lock()
	if j, ok := r.jobs[id]; ok {
		snap := j.snapshot()
		r.mu.Unlock()
		return snap, false
	}
	now := time.Now()
	j := &job{
		id:        id,
		title:     title,
		state:     types.StatePending,
		createdAt: now,
		updatedAt: now,
		done:      make(chan struct{}),
	}
	r.jobs[id] = j
	snap := j.snapshot()
	r.mu.Unlock()

	r.emit(snap)
	return snap, true
}

// MarkDownloading moves a pending job into the download stage.
func (r *Registry) MarkDownloading(id string) error {
	return r.transition(id, types.StateDownloading, "", nil)
}

// MarkConverting moves a downloading job into the conversion stage.
func (r *Registry) MarkConverting(id string) error {
	return r.transition(id, types.StateConverting, "", nil)
}

// Complete marks a job ready and records the final artifact location.
func (r *Registry) Complete(id, outputRef string) error {
	return r.transition(id, types.StateReady, outputRef, nil)
}

// Fail marks a job failed and records the cause.
func (r *Registry) Fail(id string, cause error) error {
	return r.transition(id, types.StateFailed, "", cause)
}

func (r *Registry) transition(id string, next types.State, outputRef string, cause error) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownJob
	}
	if !j.state.CanTransition(next) {
		r.mu.Unlock()
		return ErrInvalidTransition
	}
	j.state = next
	j.updatedAt = time.Now()
	j.outputRef = outputRef
	j.err = cause
	if next.Terminal() {
		close(j.done)
	}
	snap := j.snapshot()
	r.mu.Unlock()

	r.emit(snap)
	return nil
}

// Lookup returns a copy of the job for id without blocking on pipeline
// progress.
func (r *Registry) Lookup(id string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	return j.snapshot(), true
}

// Await blocks until the job for id reaches a terminal state or ctx expires,
// then returns its snapshot. Callers joining an in-flight job use this to
// wait for the owning pipeline.
func (r *Registry) Await(ctx context.Context, id string) (Snapshot, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return Snapshot{}, ErrUnknownJob
	}
	done := j.done
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-done:
	}

	snap, _ := r.Lookup(id)
	return snap, nil
}

// List returns snapshots of all jobs, newest first.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	snaps := make([]Snapshot, 0, len(r.jobs))
	for _, j := range r.jobs {
		snaps = append(snaps, j.snapshot())
	}
	r.mu.Unlock()

	sort.Slice(snaps, func(i, k int) bool {
		return snaps[i].CreatedAt.After(snaps[k].CreatedAt)
	})
	return snaps
}

// Retrigger removes a failed job so a fresh request may claim the id again.
// Failed jobs stay visible as failed until this is called; they are never
// retried silently.
func (r *Registry) Retrigger(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrUnknownJob
	}
	if j.state != types.StateFailed {
		return ErrNotFailed
	}
	delete(r.jobs, id)
	return nil
}

func (r *Registry) emit(snap Snapshot) {
	if r.notify != nil {
		r.notify(snap)
	}
}

func (j *job) snapshot() Snapshot {
	s := Snapshot{
		ID:        j.id,
		Title:     j.title,
		State:     j.state,
		OutputRef: j.outputRef,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	return s
}
