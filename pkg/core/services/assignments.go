package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/crewtech/crewsync/pkg/cache"
	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/core/status"
	"github.com/crewtech/crewsync/pkg/remote"
	"github.com/crewtech/crewsync/pkg/sync"
)

// ErrWorkerNotOnJob is returned when a status change targets a worker with
// no assignment entry on the job.
var ErrWorkerNotOnJob = errors.New("worker is not assigned to this job")

// AddWorkerToJob invites a worker onto a job. A worker who previously
// declined or was cancelled is reactivated to Invited; a worker already
// active on the job is left untouched. The job keeps exactly one assignment
// entry per worker either way.
func AddWorkerToJob(ctx context.Context, store StateStore, syncer *sync.Syncer, logger *zap.Logger, jobID, workerID string) (*model.Job, error) {
	state := store.Load()
	job := findJob(state.Jobs, jobID)
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}

	assignment := model.FindAssignment(job, workerID)
	if assignment == nil {
		job.Assignments = append(job.Assignments, model.Assignment{
			WorkerID: workerID,
			Status:   model.StatusInvited,
		})
		model.EnsureAssignments(job)
	} else {
		next, changedStatus := status.Apply(assignment.Status, status.ActionReAdd)
		if !changedStatus {
			logger.Debug("Worker already active on job",
				zap.String("job_id", jobID), zap.String("worker_id", workerID))
			return job, nil
		}
		assignment.Status = next
	}

	store.Save(state)
	logger.Info("Worker invited to job",
		zap.String("job_id", jobID), zap.String("worker_id", workerID))

	return job, pushAssignments(ctx, syncer, job)
}

// SetAssignmentStatus runs one worker's assignment through the
// reconciliation rules for the given action and pushes the resulting
// assignments-only update.
func SetAssignmentStatus(ctx context.Context, store StateStore, syncer *sync.Syncer, logger *zap.Logger, jobID, workerID string, action status.Action) (*model.Job, error) {
	state := store.Load()
	job := findJob(state.Jobs, jobID)
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}

	assignment := model.FindAssignment(job, workerID)
	if assignment == nil {
		return nil, fmt.Errorf("worker %s on job %s: %w", workerID, jobID, ErrWorkerNotOnJob)
	}

	next, changedStatus := status.Apply(assignment.Status, action)
	if !changedStatus {
		logger.Debug("Status action was a no-op",
			zap.String("job_id", jobID), zap.String("worker_id", workerID),
			zap.String("action", string(action)), zap.String("status", string(next)))
		return job, nil
	}

	assignment.Status = next
	store.Save(state)
	logger.Info("Assignment status changed",
		zap.String("job_id", jobID), zap.String("worker_id", workerID),
		zap.String("status", string(next)))

	return job, pushAssignments(ctx, syncer, job)
}

// AssignableWorkers returns the workers eligible for the "Add Worker" list
// on a job: everyone who is not currently active on it. Declined and
// Cancelled workers stay selectable for re-invitation.
func AssignableWorkers(state cache.State, job *model.Job) []model.Worker {
	active := make(map[string]bool)
	for _, a := range model.EnsureAssignments(job) {
		if status.Active(a.Status) {
			active[a.WorkerID] = true
		}
	}

	var assignable []model.Worker
	for _, w := range state.Workers {
		if !active[w.ID] {
			assignable = append(assignable, w)
		}
	}
	return assignable
}

// RemoveWorker deletes a worker and cascades: the worker's assignment entry
// is removed from every job, each touched job is pushed as an
// assignments-only update, and the remote worker row is deleted best-effort.
// Local deletion is unconditional and immediate.
func RemoveWorker(ctx context.Context, store StateStore, syncer *sync.Syncer, logger *zap.Logger, workerID string) error {
	state := store.Load()

	keptWorkers := state.Workers[:0]
	found := false
	for _, w := range state.Workers {
		if w.ID == workerID {
			found = true
			continue
		}
		keptWorkers = append(keptWorkers, w)
	}
	state.Workers = keptWorkers
	if !found {
		logger.Warn("Removing unknown worker, cascading anyway", zap.String("worker_id", workerID))
	}

	var touched []*model.Job
	for i := range state.Jobs {
		job := &state.Jobs[i]
		assignments := model.EnsureAssignments(job)
		kept := assignments[:0]
		for _, a := range assignments {
			if a.WorkerID != workerID {
				kept = append(kept, a)
			}
		}
		if len(kept) != len(assignments) {
			job.Assignments = kept
			model.EnsureAssignments(job)
			touched = append(touched, job)
		}
	}

	store.Save(state)
	logger.Info("Worker removed",
		zap.String("worker_id", workerID), zap.Int("jobs_touched", len(touched)))

	for _, job := range touched {
		if err := pushAssignments(ctx, syncer, job); err != nil {
			logger.Warn("Cascade push failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	syncer.DeleteWorker(ctx, workerID)
	return nil
}

// AssignmentLabel renders one assignment for admin history views. Unknown
// worker ids are kept with a placeholder label so audit history survives a
// worker deletion; cancelled entries carry the "(Cancelled)" suffix.
func AssignmentLabel(workers []model.Worker, a model.Assignment) string {
	name := fmt.Sprintf("Unknown worker (%s)", a.WorkerID)
	for _, w := range workers {
		if w.ID == a.WorkerID {
			name = w.Name
			break
		}
	}
	return name + status.HistoryAnnotation(a.Status)
}

// pushAssignments pushes an assignments-only update for the job. Offline is
// tolerated; a missing remote row is surfaced with a corrective hint since
// the local change is kept either way.
func pushAssignments(ctx context.Context, syncer *sync.Syncer, job *model.Job) error {
	_, err := syncer.PushJob(ctx, job, sync.Changed(sync.FieldAssignments))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sync.ErrOffline):
		return nil
	case errors.Is(err, remote.ErrJobNotFound):
		return fmt.Errorf("job %s does not exist remotely yet - create the job first, then change assignments: %w", job.ID, err)
	}
	return fmt.Errorf("assignments saved locally but push failed: %w", err)
}
