// Package sync pushes local mutations to the remote store and pulls
// authoritative snapshots back into the local cache.
//
// Pull policy is RemoteAuthoritative: the remote snapshot always replaces
// the local one, even when the remote result is empty. This guarantees
// convergence across devices at the cost of not being able to create records
// purely offline without an eventual successful push. It is a deliberate
// choice, not an accident of the overwrite.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/crewtech/crewsync/pkg/cache"
	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/remote"
)

// ErrOffline is returned by push operations when the device is offline. The
// write stays in the local cache and is counted in SyncState.PendingWrites;
// there is no queued retry, the next explicit push clears the counter.
var ErrOffline = fmt.Errorf("device is offline")

// SyncState is the engine's observable state. It is an explicit value owned
// by the Syncer and handed out by copy; nothing mutates it through shared
// globals.
type SyncState struct {
	Online        bool
	Syncing       bool
	PendingWrites int
	LastSyncAt    time.Time
	LastError     string
}

// Cache is the slice of the local store the syncer needs.
type Cache interface {
	Load() cache.State
	Save(cache.State)
}

// Syncer coordinates the local cache with the remote system of record.
type Syncer struct {
	remote remote.Store
	cache  Cache
	logger *zap.Logger

	mu       gosync.Mutex
	state    SyncState
	onChange func(SyncState)
}

// New creates a Syncer. The device is assumed online until a probe or a
// failed call says otherwise.
func New(remoteStore remote.Store, cacheStore Cache, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		remote: remoteStore,
		cache:  cacheStore,
		logger: logger,
		state:  SyncState{Online: true},
	}
}

// State returns a copy of the current sync state.
func (s *Syncer) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnChange registers a callback invoked after every state change, for
// driving a status indicator. Only one subscriber is supported.
func (s *Syncer) OnChange(fn func(SyncState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetOnline records the device's connectivity as detected externally.
func (s *Syncer) SetOnline(online bool) {
	s.update(func(st *SyncState) { st.Online = online })
}

// CheckOnline probes the remote store and records the result.
func (s *Syncer) CheckOnline(ctx context.Context) bool {
	err := s.remote.Ping(ctx)
	online := err == nil
	if err != nil {
		s.logger.Debug("Remote store unreachable", zap.Error(err))
	}
	s.SetOnline(online)
	return online
}

// PushJob sends the minimal payload for the job to the remote store.
//
// Offline, the pending-write counter is incremented and ErrOffline returned
// without any network I/O. An assignments-only payload goes through the
// update-only path and surfaces remote.ErrJobNotFound when the row does not
// exist remotely; callers present that as "create the job first", not as a
// fatal error. On success the persisted row is returned and the pending
// counter resets.
func (s *Syncer) PushJob(ctx context.Context, job *model.Job, changed FieldSet) (model.Job, error) {
	payload := BuildJobPayload(job, changed)

	s.mu.Lock()
	if !s.state.Online {
		s.state.PendingWrites++
		pending := s.state.PendingWrites
		s.notifyLocked()
		s.mu.Unlock()
		s.logger.Info("Offline, job push deferred",
			zap.String("job_id", job.ID), zap.Int("pending_writes", pending))
		return model.Job{}, ErrOffline
	}
	s.state.Syncing = true
	s.notifyLocked()
	s.mu.Unlock()

	var (
		row model.Job
		err error
	)
	if payload.AssignmentsOnly() {
		if payload.ID == "" {
			// A non-UUID id cannot name an existing remote row, and an
			// assignments-only write must never create one.
			err = fmt.Errorf("assignments-only update for unsynced job %q: %w", job.ID, remote.ErrJobNotFound)
		} else {
			row, err = s.remote.PatchJobFields(ctx, payload.ID, payload.Fields)
		}
	} else {
		row, err = s.remote.UpsertJob(ctx, payload.ID, payload.Fields)
	}

	if err != nil {
		s.update(func(st *SyncState) {
			st.Syncing = false
			st.LastError = err.Error()
		})
		s.logger.Warn("Job push failed", zap.String("job_id", job.ID), zap.Error(err))
		return model.Job{}, fmt.Errorf("failed to push job %s: %w", job.ID, err)
	}

	s.update(func(st *SyncState) {
		st.Syncing = false
		st.PendingWrites = 0
		st.LastSyncAt = time.Now()
		st.LastError = ""
	})
	s.logger.Debug("Job pushed", zap.String("job_id", row.ID),
		zap.Bool("assignments_only", payload.AssignmentsOnly()))
	return row, nil
}

// PushWorker upserts the full worker record. Worker rows are small and the
// tri-state SMS consent must travel as-is, so all fields are sent.
func (s *Syncer) PushWorker(ctx context.Context, worker model.Worker) (model.Worker, error) {
	s.mu.Lock()
	if !s.state.Online {
		s.state.PendingWrites++
		s.notifyLocked()
		s.mu.Unlock()
		return model.Worker{}, ErrOffline
	}
	s.state.Syncing = true
	s.notifyLocked()
	s.mu.Unlock()

	fields := remote.WorkerFields{
		Name:     &worker.Name,
		Phone:    &worker.Phone,
		SMSOptIn: &worker.SMSOptIn,
	}
	row, err := s.remote.UpsertWorker(ctx, worker.ID, fields)
	if err != nil {
		s.update(func(st *SyncState) {
			st.Syncing = false
			st.LastError = err.Error()
		})
		s.logger.Warn("Worker push failed", zap.String("worker_id", worker.ID), zap.Error(err))
		return model.Worker{}, fmt.Errorf("failed to push worker %s: %w", worker.ID, err)
	}

	s.update(func(st *SyncState) {
		st.Syncing = false
		st.PendingWrites = 0
		st.LastSyncAt = time.Now()
		st.LastError = ""
	})
	return row, nil
}

// PullJobs fetches the authoritative job snapshot and replaces the cached
// job list with it. An empty remote result empties the local list too, per
// the RemoteAuthoritative policy.
func (s *Syncer) PullJobs(ctx context.Context) ([]model.Job, error) {
	s.update(func(st *SyncState) { st.Syncing = true })

	jobs, err := s.remote.ReadJobs(ctx)
	if err != nil {
		s.update(func(st *SyncState) {
			st.Syncing = false
			st.Online = false
			st.LastError = err.Error()
		})
		return nil, fmt.Errorf("failed to pull jobs: %w", err)
	}

	for i := range jobs {
		model.EnsureAssignments(&jobs[i])
	}

	state := s.cache.Load()
	state.Jobs = jobs
	s.cache.Save(state)

	s.update(func(st *SyncState) {
		st.Syncing = false
		st.Online = true
		st.LastSyncAt = time.Now()
		st.LastError = ""
	})
	s.logger.Debug("Pulled jobs", zap.Int("count", len(jobs)))
	return jobs, nil
}

// PullWorkers fetches the authoritative worker snapshot and replaces the
// cached worker list, under the same RemoteAuthoritative policy as PullJobs.
func (s *Syncer) PullWorkers(ctx context.Context) ([]model.Worker, error) {
	s.update(func(st *SyncState) { st.Syncing = true })

	workers, err := s.remote.ReadWorkers(ctx)
	if err != nil {
		s.update(func(st *SyncState) {
			st.Syncing = false
			st.Online = false
			st.LastError = err.Error()
		})
		return nil, fmt.Errorf("failed to pull workers: %w", err)
	}

	state := s.cache.Load()
	state.Workers = workers
	s.cache.Save(state)

	s.update(func(st *SyncState) {
		st.Syncing = false
		st.Online = true
		st.LastSyncAt = time.Now()
		st.LastError = ""
	})
	s.logger.Debug("Pulled workers", zap.Int("count", len(workers)))
	return workers, nil
}

// DeleteJob removes the job locally right away, then attempts the remote
// delete best-effort. Remote failures are logged, not retried and not
// surfaced as blocking errors; local state is the UI's source of truth
// between refreshes. Returns whether the remote delete succeeded.
func (s *Syncer) DeleteJob(ctx context.Context, id string) bool {
	state := s.cache.Load()
	kept := state.Jobs[:0]
	for _, j := range state.Jobs {
		if j.ID != id {
			kept = append(kept, j)
		}
	}
	state.Jobs = kept
	s.cache.Save(state)

	if !s.State().Online {
		s.update(func(st *SyncState) { st.PendingWrites++ })
		return false
	}
	if err := s.remote.DeleteJob(ctx, id); err != nil {
		s.logger.Warn("Remote job delete failed", zap.String("job_id", id), zap.Error(err))
		return false
	}
	return true
}

// DeleteWorker attempts the remote worker delete best-effort. The caller is
// expected to have already removed the worker (and its assignment entries)
// from the local cache.
func (s *Syncer) DeleteWorker(ctx context.Context, id string) bool {
	if !s.State().Online {
		s.update(func(st *SyncState) { st.PendingWrites++ })
		return false
	}
	if err := s.remote.DeleteWorker(ctx, id); err != nil {
		s.logger.Warn("Remote worker delete failed", zap.String("worker_id", id), zap.Error(err))
		return false
	}
	return true
}

func (s *Syncer) update(mutate func(*SyncState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.state)
	s.notifyLocked()
}

func (s *Syncer) notifyLocked() {
	if s.onChange != nil {
		s.onChange(s.state)
	}
}
