package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/crewtech/crewsync/pkg/cache"
	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/sync"
)

// ErrWorkerNotFound is returned when a worker id is known neither locally
// nor remotely.
var ErrWorkerNotFound = errors.New("worker not found")

// ErrInvalidPhone is returned when a phone number cannot be normalized.
var ErrInvalidPhone = errors.New("invalid US phone number")

// WorkerReader is the remote lookup the portal needs to recognize a
// personal link on a device that has never seen the worker.
type WorkerReader interface {
	ReadWorker(ctx context.Context, id string) (model.Worker, bool, error)
}

// LookupWorker resolves a worker id against the local cache first, then the
// remote store. A remotely-known worker is materialized into the cache so
// the device recognizes the link next time.
func LookupWorker(ctx context.Context, store StateStore, reader WorkerReader, logger *zap.Logger, workerID string) (*model.Worker, error) {
	state := store.Load()
	for i := range state.Workers {
		if state.Workers[i].ID == workerID {
			return &state.Workers[i], nil
		}
	}

	logger.Debug("Worker unknown locally, trying remote", zap.String("worker_id", workerID))
	remoteWorker, found, err := reader.ReadWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up worker %s remotely: %w", workerID, err)
	}
	if !found {
		return nil, fmt.Errorf("worker %s: %w", workerID, ErrWorkerNotFound)
	}

	state.Workers = append(state.Workers, remoteWorker)
	store.Save(state)
	logger.Info("Worker materialized from remote", zap.String("worker_id", workerID))
	return &state.Workers[len(state.Workers)-1], nil
}

// NeedsConsentPrompt reports whether the worker must be shown the SMS
// consent prompt. Only an undecided worker is prompted; an explicit "no" is
// an answer and never reverts to unset.
func NeedsConsentPrompt(w model.Worker) bool {
	return !w.SMSOptIn.Decided()
}

// SetSMSOptIn records the worker's SMS consent answer and pushes the worker
// record. Passing OptInUnset is rejected: consent can only move from unset
// to a decision, never back.
func SetSMSOptIn(ctx context.Context, store StateStore, syncer *sync.Syncer, logger *zap.Logger, workerID string, optIn model.OptIn) (*model.Worker, error) {
	if !optIn.Decided() {
		return nil, fmt.Errorf("consent for worker %s must be an explicit yes or no", workerID)
	}

	state := store.Load()
	worker := findWorker(state.Workers, workerID)
	if worker == nil {
		return nil, fmt.Errorf("worker %s: %w", workerID, ErrWorkerNotFound)
	}

	worker.SMSOptIn = optIn
	store.Save(state)
	logger.Info("SMS consent recorded",
		zap.String("worker_id", workerID), zap.String("opt_in", string(optIn)))

	if _, err := syncer.PushWorker(ctx, *worker); err != nil && !errors.Is(err, sync.ErrOffline) {
		return worker, fmt.Errorf("consent saved locally but push failed: %w", err)
	}
	return worker, nil
}

// SetWorkerPhone normalizes and stores the worker's phone number.
func SetWorkerPhone(ctx context.Context, store StateStore, syncer *sync.Syncer, logger *zap.Logger, workerID, rawPhone string) (*model.Worker, error) {
	phone, ok := model.NormalizePhoneE164(rawPhone)
	if !ok {
		return nil, fmt.Errorf("phone %q: %w", rawPhone, ErrInvalidPhone)
	}

	state := store.Load()
	worker := findWorker(state.Workers, workerID)
	if worker == nil {
		return nil, fmt.Errorf("worker %s: %w", workerID, ErrWorkerNotFound)
	}

	worker.Phone = phone
	store.Save(state)
	logger.Info("Worker phone updated", zap.String("worker_id", workerID))

	if _, err := syncer.PushWorker(ctx, *worker); err != nil && !errors.Is(err, sync.ErrOffline) {
		return worker, fmt.Errorf("phone saved locally but push failed: %w", err)
	}
	return worker, nil
}

// ShiftBuckets is the worker-facing view of their jobs: open invites to
// answer, confirmed upcoming shifts, and confirmed past shifts. Declined and
// cancelled assignments never appear here.
type ShiftBuckets struct {
	OpenInvites []model.Job
	Upcoming    []model.Job
	Completed   []model.Job
}

// WorkerShifts buckets the cached jobs for one worker as of the given day.
func WorkerShifts(state cache.State, workerID string, today time.Time) ShiftBuckets {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	var buckets ShiftBuckets
	for i := range state.Jobs {
		job := &state.Jobs[i]
		assignment := model.FindAssignment(job, workerID)
		if assignment == nil {
			continue
		}

		switch model.CanonicalStatus(string(assignment.Status)) {
		case model.StatusDeclined, model.StatusCancelled:
			continue
		case model.StatusConfirmed:
			start, ok := jobStart(job)
			if ok && start.Before(today) {
				buckets.Completed = append(buckets.Completed, *job)
			} else {
				buckets.Upcoming = append(buckets.Upcoming, *job)
			}
		default:
			// Invited, legacy empty and unknown statuses all read as an
			// open invite.
			buckets.OpenInvites = append(buckets.OpenInvites, *job)
		}
	}

	sortByStart(buckets.OpenInvites, false)
	sortByStart(buckets.Upcoming, false)
	sortByStart(buckets.Completed, true)
	return buckets
}

func findWorker(workers []model.Worker, id string) *model.Worker {
	for i := range workers {
		if workers[i].ID == id {
			return &workers[i]
		}
	}
	return nil
}

func jobStart(job *model.Job) (time.Time, bool) {
	if job.Date == "" {
		return time.Time{}, false
	}
	startTime := job.StartTime
	if startTime == "" {
		startTime = "00:00"
	}
	t, err := time.Parse("2006-01-02 15:04", job.Date+" "+startTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sortByStart(jobs []model.Job, newestFirst bool) {
	sort.SliceStable(jobs, func(i, j int) bool {
		ti, iok := jobStart(&jobs[i])
		tj, jok := jobStart(&jobs[j])
		if iok != jok {
			// Undated jobs always sort last.
			return iok
		}
		if newestFirst {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})
}
