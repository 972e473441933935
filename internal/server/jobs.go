package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/tobias/adscout/internal/pipeline"
	"github.com/tobias/adscout/internal/types"
)

// JobStatus is the lifecycle state of an asynchronous discovery job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is the externally visible snapshot of one discovery job.
type Job struct {
	ID          uuid.UUID              `json:"id"`
	Brand       string                 `json:"brand"`
	Status      JobStatus              `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Report      *types.DiscoveryReport `json:"report,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt time.Time              `json:"completed_at,omitzero"`
}

// jobState is the registry-internal record. Only the owner goroutine touches
// it.
type jobState struct {
	job         Job
	subscribers map[int]chan pipeline.ProgressEvent
	nextSubID   int
}

// Registry keeps jobs in a single owner goroutine and serializes all access
// through a request channel. No locks; every operation is a closure executed
// by the owner.
type Registry struct {
	reqs chan func(jobs map[uuid.UUID]*jobState)
	quit chan struct{}
}

// NewRegistry starts the owner goroutine.
func NewRegistry() *Registry {
	r := &Registry{
		reqs: make(chan func(map[uuid.UUID]*jobState)),
		quit: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Registry) run() {
	jobs := make(map[uuid.UUID]*jobState)
	for {
		select {
		case fn := <-r.reqs:
			fn(jobs)
		case <-r.quit:
			for _, state := range jobs {
				for _, ch := range state.subscribers {
					close(ch)
				}
			}
			return
		}
	}
}

// Close stops the owner goroutine and closes all subscriber channels.
func (r *Registry) Close() {
	close(r.quit)
}

// do runs fn on the owner goroutine and waits for it to finish.
func (r *Registry) do(fn func(jobs map[uuid.UUID]*jobState)) {
	done := make(chan struct{})
	select {
	case r.reqs <- func(jobs map[uuid.UUID]*jobState) {
		fn(jobs)
		close(done)
	}:
		<-done
	case <-r.quit:
	}
}

// Create registers a new running job for brand and returns its snapshot.
func (r *Registry) Create(brand string) Job {
	job := Job{
		ID:        uuid.New(),
		Brand:     brand,
		Status:    JobRunning,
		CreatedAt: time.Now(),
	}
	r.do(func(jobs map[uuid.UUID]*jobState) {
		jobs[job.ID] = &jobState{
			job:         job,
			subscribers: make(map[int]chan pipeline.ProgressEvent),
		}
	})
	return job
}

// Get returns a job snapshot.
func (r *Registry) Get(id uuid.UUID) (Job, bool) {
	var job Job
	var ok bool
	r.do(func(jobs map[uuid.UUID]*jobState) {
		if state, found := jobs[id]; found {
			job = state.job
			ok = true
		}
	})
	return job, ok
}

// Complete marks a job finished with its report and closes its subscribers.
func (r *Registry) Complete(id uuid.UUID, report *types.DiscoveryReport) {
	r.finish(id, func(job *Job) {
		job.Status = JobCompleted
		job.Report = report
	})
}

// Fail marks a job failed and closes its subscribers.
func (r *Registry) Fail(id uuid.UUID, message string) {
	r.finish(id, func(job *Job) {
		job.Status = JobFailed
		job.Error = message
	})
}

func (r *Registry) finish(id uuid.UUID, update func(*Job)) {
	r.do(func(jobs map[uuid.UUID]*jobState) {
		state, ok := jobs[id]
		if !ok {
			return
		}
		update(&state.job)
		state.job.CompletedAt = time.Now()
		for subID, ch := range state.subscribers {
			close(ch)
			delete(state.subscribers, subID)
		}
	})
}

// Publish fans a progress event out to the job's subscribers. Slow consumers
// lose events instead of blocking the publisher.
func (r *Registry) Publish(id uuid.UUID, ev pipeline.ProgressEvent) {
	r.do(func(jobs map[uuid.UUID]*jobState) {
		state, ok := jobs[id]
		if !ok {
			return
		}
		for _, ch := range state.subscribers {
			select {
			case ch <- ev:
			default:
			}
		}
	})
}

// Subscribe returns a channel of progress events for the job plus an
// unsubscribe function. The channel is closed when the job finishes. The
// second return is false when the job does not exist or already finished.
func (r *Registry) Subscribe(id uuid.UUID) (<-chan pipeline.ProgressEvent, func(), bool) {
	var ch chan pipeline.ProgressEvent
	var subID int
	var ok bool
	r.do(func(jobs map[uuid.UUID]*jobState) {
		state, found := jobs[id]
		if !found || state.job.Status != JobRunning {
			return
		}
		ch = make(chan pipeline.ProgressEvent, 16)
		subID = state.nextSubID
		state.nextSubID++
		state.subscribers[subID] = ch
		ok = true
	})
	if !ok {
		return nil, func() {}, false
	}
	cancel := func() {
		r.do(func(jobs map[uuid.UUID]*jobState) {
			state, found := jobs[id]
			if !found {
				return
			}
			if sub, live := state.subscribers[subID]; live {
				close(sub)
				delete(state.subscribers, subID)
			}
		})
	}
	return ch, cancel, true
}
