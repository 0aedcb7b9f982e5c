package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crewtech/crewsync/pkg/cache"
	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/sync"
)

// ErrReportFinalized is returned when a mutation would touch a job whose
// time report has already been finalized. Finalization is one-directional.
var ErrReportFinalized = errors.New("job report is already finalized")

// ErrJobNotFound is returned when the job id is not in the local cache.
var ErrJobNotFound = errors.New("job not found")

// StateStore is the slice of the local cache the services need.
type StateStore interface {
	Load() cache.State
	Save(cache.State)
}

// JobInput carries the fields an admin provides when creating a job.
type JobInput struct {
	Name      string
	Date      string
	StartTime string
	EndTime   string
	Location  string
	Booth     string
	Phase     string
	Notes     string
	RawText   string
}

// JobUpdate names the descriptive fields an edit explicitly changes. Nil
// fields are untouched and stay out of the outgoing payload.
type JobUpdate struct {
	Name      *string
	Date      *string
	StartTime *string
	EndTime   *string
	Location  *string
	Booth     *string
	Phase     *string
	Notes     *string
}

// CreateJob creates a job locally and pushes it to the remote store. Being
// offline is not an error: the job stays in the cache and is counted as a
// pending write.
func CreateJob(ctx context.Context, store StateStore, syncer *sync.Syncer, logger *zap.Logger, input JobInput) (*model.Job, error) {
	job := model.Job{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Date:      input.Date,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Location:  input.Location,
		Booth:     input.Booth,
		Phase:     input.Phase,
		Notes:     input.Notes,
		RawText:   input.RawText,
	}
	model.EnsureAssignments(&job)

	state := store.Load()
	state.Jobs = append(state.Jobs, job)
	store.Save(state)

	logger.Info("Job created", zap.String("job_id", job.ID), zap.String("name", job.Name))

	changed := sync.Changed(
		sync.FieldName, sync.FieldDate, sync.FieldStartTime, sync.FieldEndTime,
		sync.FieldLocation, sync.FieldBooth, sync.FieldPhase, sync.FieldNotes,
		sync.FieldRawText, sync.FieldAssignments,
	)
	if _, err := syncer.PushJob(ctx, &job, changed); err != nil && !errors.Is(err, sync.ErrOffline) {
		return &job, fmt.Errorf("job saved locally but push failed: %w", err)
	}

	return &job, nil
}

// UpdateJobFields applies an edit to a cached job and pushes only the
// changed fields.
func UpdateJobFields(ctx context.Context, store StateStore, syncer *sync.Syncer, logger *zap.Logger, jobID string, update JobUpdate) (*model.Job, error) {
	state := store.Load()
	job := findJob(state.Jobs, jobID)
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}

	changed := sync.FieldSet{}
	apply := func(field sync.Field, dst *string, src *string) {
		if src != nil {
			*dst = *src
			changed[field] = true
		}
	}
	apply(sync.FieldName, &job.Name, update.Name)
	apply(sync.FieldDate, &job.Date, update.Date)
	apply(sync.FieldStartTime, &job.StartTime, update.StartTime)
	apply(sync.FieldEndTime, &job.EndTime, update.EndTime)
	apply(sync.FieldLocation, &job.Location, update.Location)
	apply(sync.FieldBooth, &job.Booth, update.Booth)
	apply(sync.FieldPhase, &job.Phase, update.Phase)
	apply(sync.FieldNotes, &job.Notes, update.Notes)

	if len(changed) == 0 {
		logger.Debug("Job edit changed nothing", zap.String("job_id", jobID))
		return job, nil
	}

	store.Save(state)
	logger.Info("Job updated", zap.String("job_id", jobID), zap.Int("fields", len(changed)))

	if _, err := syncer.PushJob(ctx, job, changed); err != nil && !errors.Is(err, sync.ErrOffline) {
		return job, fmt.Errorf("job saved locally but push failed: %w", err)
	}
	return job, nil
}

// FinalizeReport marks a job's time report complete with the actual-time
// rows and the notes snapshot. A finalized report can never be reopened.
func FinalizeReport(ctx context.Context, store StateStore, syncer *sync.Syncer, logger *zap.Logger, jobID string, workLog []model.WorkLogEntry, notes string) (*model.Job, error) {
	state := store.Load()
	job := findJob(state.Jobs, jobID)
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if job.ReportCompleted {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrReportFinalized)
	}

	job.ReportCompleted = true
	job.FinalizedWorkLog = workLog
	job.FinalizedNotes = notes
	store.Save(state)

	logger.Info("Job report finalized",
		zap.String("job_id", jobID), zap.Int("work_log_rows", len(workLog)))

	changed := sync.Changed(sync.FieldReportCompleted, sync.FieldFinalizedWorkLog, sync.FieldFinalizedNotes)
	if _, err := syncer.PushJob(ctx, job, changed); err != nil && !errors.Is(err, sync.ErrOffline) {
		return job, fmt.Errorf("report finalized locally but push failed: %w", err)
	}
	return job, nil
}

func findJob(jobs []model.Job, id string) *model.Job {
	for i := range jobs {
		if jobs[i].ID == id {
			return &jobs[i]
		}
	}
	return nil
}
