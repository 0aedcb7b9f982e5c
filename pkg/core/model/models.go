package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status is the state of one worker's assignment on one job.
type Status string

const (
	StatusInvited   Status = "Invited"
	StatusConfirmed Status = "Confirmed"
	StatusDeclined  Status = "Declined"
	StatusCancelled Status = "Cancelled"
)

func (s Status) IsValid() bool {
	return s == StatusInvited || s == StatusConfirmed || s == StatusDeclined || s == StatusCancelled
}

// CanonicalStatus maps a raw status string onto the four known statuses,
// case-insensitively. Unrecognized values are returned verbatim so that data
// written by a newer schema is never destroyed by an older client.
func CanonicalStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed":
		return StatusConfirmed
	case "declined":
		return StatusDeclined
	case "invited":
		return StatusInvited
	case "cancelled", "canceled":
		return StatusCancelled
	}
	return Status(raw)
}

// OptIn is a worker's SMS consent. Unset means the worker has never answered
// the consent prompt; it must never be silently collapsed to "no".
type OptIn string

const (
	OptInUnset OptIn = ""
	OptInYes   OptIn = "on"
	OptInNo    OptIn = "off"
)

func (o OptIn) Decided() bool {
	return o == OptInYes || o == OptInNo
}

// Worker represents a crew member who can be assigned to jobs.
type Worker struct {
	ID       string
	Name     string
	Phone    string // E.164 or empty
	SMSOptIn OptIn
}

// PersonalLink derives the worker's portal URL. The link is never stored; it
// is always recomputed from the worker id.
func (w Worker) PersonalLink(baseURL string) string {
	return fmt.Sprintf("%s/worker?workerId=%s", strings.TrimRight(baseURL, "/"), w.ID)
}

// Assignment is the relationship between one job and one worker.
type Assignment struct {
	WorkerID string `json:"workerId"`
	Status   Status `json:"status"`
}

// WorkLogEntry is one worker's actual hours on a finalized job.
type WorkLogEntry struct {
	WorkerID string `json:"workerId"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Notes    string `json:"notes,omitempty"`
}

// Job represents a single staffing shift.
//
// AssignedWorkerIDs is a derived projection of Assignments and is only ever
// written by EnsureAssignments. Callers must not edit it directly.
type Job struct {
	ID                string
	Name              string
	Date              string // YYYY-MM-DD
	StartTime         string // HH:MM
	EndTime           string // HH:MM
	Location          string
	Booth             string
	Phase             string
	Notes             string
	RawText           string
	Assignments       []Assignment
	AssignedWorkerIDs []string
	ReportCompleted   bool
	FinalizedWorkLog  []WorkLogEntry
	FinalizedNotes    string
	CreatedAt         string
	UpdatedAt         string
}

// IsUUID reports whether id is a UUID the remote store's upsert path will
// accept as a row identifier. Client-generated ids that are not UUIDs must be
// treated as "insert new row" and omitted from the outgoing payload.
func IsUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
