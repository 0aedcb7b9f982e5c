// Package remotetest provides an in-memory remote.Store for tests.
package remotetest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/remote"
)

// Fake is an in-memory remote.Store. It applies writes with the same
// only-touch-provided-fields semantics as the real store, which makes it
// suitable for verifying partial-update and idempotence properties.
type Fake struct {
	mu      sync.Mutex
	jobs    map[string]model.Job
	workers map[string]model.Worker

	// Down simulates an unreachable store: every call fails.
	Down bool
	// FailNextUpsert makes the next UpsertJob return an error.
	FailNextUpsert bool

	PushedJobs int
}

var errDown = errors.New("remote store unreachable")

func New() *Fake {
	return &Fake{
		jobs:    make(map[string]model.Job),
		workers: make(map[string]model.Worker),
	}
}

// SeedJob places a job directly into the store.
func (f *Fake) SeedJob(job model.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

// SeedWorker places a worker directly into the store.
func (f *Fake) SeedWorker(w model.Worker) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workers[w.ID] = w
}

// Job returns the stored row and whether it exists.
func (f *Fake) Job(id string) (model.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	return j, ok
}

func (f *Fake) ReadJobs(ctx context.Context) ([]model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return nil, errDown
	}
	jobs := make([]model.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (f *Fake) ReadWorkers(ctx context.Context) ([]model.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return nil, errDown
	}
	workers := make([]model.Worker, 0, len(f.workers))
	for _, w := range f.workers {
		workers = append(workers, w)
	}
	return workers, nil
}

func (f *Fake) ReadWorker(ctx context.Context, id string) (model.Worker, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return model.Worker{}, false, errDown
	}
	w, ok := f.workers[id]
	return w, ok, nil
}

func (f *Fake) UpsertJob(ctx context.Context, id string, fields remote.JobFields) (model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return model.Job{}, errDown
	}
	if f.FailNextUpsert {
		f.FailNextUpsert = false
		return model.Job{}, errors.New("upsert rejected")
	}
	f.PushedJobs++

	if id == "" {
		id = uuid.NewString()
	}
	job := f.jobs[id]
	job.ID = id
	applyJobFields(&job, fields)
	f.jobs[id] = job
	return job, nil
}

func (f *Fake) PatchJobFields(ctx context.Context, id string, fields remote.JobFields) (model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return model.Job{}, errDown
	}
	job, ok := f.jobs[id]
	if !ok {
		return model.Job{}, remote.ErrJobNotFound
	}
	f.PushedJobs++
	applyJobFields(&job, fields)
	f.jobs[id] = job
	return job, nil
}

func (f *Fake) DeleteJob(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return errDown
	}
	delete(f.jobs, id)
	return nil
}

func (f *Fake) UpsertWorker(ctx context.Context, id string, fields remote.WorkerFields) (model.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return model.Worker{}, errDown
	}
	w := f.workers[id]
	w.ID = id
	if fields.Name != nil {
		w.Name = *fields.Name
	}
	if fields.Phone != nil {
		w.Phone = *fields.Phone
	}
	if fields.SMSOptIn != nil {
		w.SMSOptIn = *fields.SMSOptIn
	}
	f.workers[id] = w
	return w, nil
}

func (f *Fake) DeleteWorker(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return errDown
	}
	delete(f.workers, id)
	return nil
}

func (f *Fake) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return errDown
	}
	return nil
}

func applyJobFields(job *model.Job, fields remote.JobFields) {
	if fields.Name != nil {
		job.Name = *fields.Name
	}
	if fields.Date != nil {
		job.Date = *fields.Date
	}
	if fields.StartTime != nil {
		job.StartTime = *fields.StartTime
	}
	if fields.EndTime != nil {
		job.EndTime = *fields.EndTime
	}
	if fields.Location != nil {
		job.Location = *fields.Location
	}
	if fields.Booth != nil {
		job.Booth = *fields.Booth
	}
	if fields.Phase != nil {
		job.Phase = *fields.Phase
	}
	if fields.Notes != nil {
		job.Notes = *fields.Notes
	}
	if fields.RawText != nil {
		job.RawText = *fields.RawText
	}
	if fields.Assignments != nil {
		job.Assignments = *fields.Assignments
	}
	if fields.FinalizedWorkLog != nil {
		job.FinalizedWorkLog = *fields.FinalizedWorkLog
	}
	if fields.FinalizedNotes != nil {
		job.FinalizedNotes = *fields.FinalizedNotes
	}
	if fields.ReportCompleted != nil {
		job.ReportCompleted = *fields.ReportCompleted
	}
}
