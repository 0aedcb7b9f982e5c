// Package remote defines the contract the sync engine holds against the
// system of record. Implementations translate between storage column naming
// and the in-memory model; the engine itself never sees wire formats.
package remote

import (
	"context"
	"errors"

	"github.com/crewtech/crewsync/pkg/core/model"
)

// ErrJobNotFound is returned by PatchJobFields when no row exists for the
// given id. Assignments-only updates must fail this way instead of creating
// a blank job row from a pure status-change event.
var ErrJobNotFound = errors.New("job not found in remote store")

// JobFields is the set of job columns a write explicitly touches. Nil fields
// are absent from the write entirely; they are never defaulted to empty
// values, so a partial update cannot null out columns it did not mean to
// change.
type JobFields struct {
	Name             *string
	Date             *string
	StartTime        *string
	EndTime          *string
	Location         *string
	Booth            *string
	Phase            *string
	Notes            *string
	RawText          *string
	Assignments      *[]model.Assignment
	FinalizedWorkLog *[]model.WorkLogEntry
	FinalizedNotes   *string
	ReportCompleted  *bool
}

// WorkerFields is the worker analogue of JobFields. SMSOptIn distinguishes
// "not provided" (nil) from an explicit unset answer.
type WorkerFields struct {
	Name     *string
	Phone    *string
	SMSOptIn *model.OptIn
}

// Store is the remote system of record. All calls fail closed: a
// non-success response is an error, never interpreted as success.
type Store interface {
	// ReadJobs returns the full authoritative job snapshot.
	ReadJobs(ctx context.Context) ([]model.Job, error)

	// ReadWorkers returns the full authoritative worker snapshot.
	ReadWorkers(ctx context.Context) ([]model.Worker, error)

	// ReadWorker fetches a single worker by id. found is false when the
	// worker does not exist remotely.
	ReadWorker(ctx context.Context, id string) (worker model.Worker, found bool, err error)

	// UpsertJob inserts or updates a job row, touching only the provided
	// fields. An empty id means "insert new row"; the store assigns the id
	// and returns it on the persisted row.
	UpsertJob(ctx context.Context, id string, fields JobFields) (model.Job, error)

	// PatchJobFields updates only the provided fields on an existing row.
	// Returns ErrJobNotFound when no row with that id exists; it never
	// creates one.
	PatchJobFields(ctx context.Context, id string, fields JobFields) (model.Job, error)

	// DeleteJob removes a job row. Deleting a missing row is not an error.
	DeleteJob(ctx context.Context, id string) error

	// UpsertWorker inserts or updates a worker row keyed by id.
	UpsertWorker(ctx context.Context, id string, fields WorkerFields) (model.Worker, error)

	// DeleteWorker removes a worker row. Deleting a missing row is not an
	// error.
	DeleteWorker(ctx context.Context, id string) error

	// Ping reports whether the store is reachable right now. Used for
	// online/offline detection before a push is attempted.
	Ping(ctx context.Context) error
}
