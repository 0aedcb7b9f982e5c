package sync

import (
	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/remote"
)

// Field names a job attribute a mutation explicitly touched.
type Field string

const (
	FieldName             Field = "name"
	FieldDate             Field = "date"
	FieldStartTime        Field = "startTime"
	FieldEndTime          Field = "endTime"
	FieldLocation         Field = "location"
	FieldBooth            Field = "booth"
	FieldPhase            Field = "phase"
	FieldNotes            Field = "notes"
	FieldRawText          Field = "rawText"
	FieldAssignments      Field = "assignments"
	FieldFinalizedWorkLog Field = "finalizedWorkLog"
	FieldFinalizedNotes   Field = "finalizedNotes"
	FieldReportCompleted  Field = "reportCompleted"
)

// FieldSet records which attributes a mutation changed.
type FieldSet map[Field]bool

// Changed builds a FieldSet from the given fields.
func Changed(fields ...Field) FieldSet {
	set := make(FieldSet, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// JobPayload is a minimal outgoing write. A field is present if and only if
// the calling mutation changed it; nothing is defaulted in to fill the
// payload, so a partial update can never null out unrelated columns on the
// remote row.
type JobPayload struct {
	// ID is the remote row identifier. Empty when the job carries a
	// client-generated non-UUID id, which the upsert path treats as
	// "insert new row".
	ID     string
	Fields remote.JobFields
}

// BuildJobPayload constructs the minimal payload for the given job and the
// set of fields the mutation touched. Statuses inside an assignments payload
// are re-canonicalized here regardless of what the caller did, as a guard
// against stale client code.
func BuildJobPayload(job *model.Job, changed FieldSet) JobPayload {
	var p JobPayload
	if model.IsUUID(job.ID) {
		p.ID = job.ID
	}

	if changed[FieldName] {
		p.Fields.Name = ptr(job.Name)
	}
	if changed[FieldDate] {
		p.Fields.Date = ptr(job.Date)
	}
	if changed[FieldStartTime] {
		p.Fields.StartTime = ptr(job.StartTime)
	}
	if changed[FieldEndTime] {
		p.Fields.EndTime = ptr(job.EndTime)
	}
	if changed[FieldLocation] {
		p.Fields.Location = ptr(job.Location)
	}
	if changed[FieldBooth] {
		p.Fields.Booth = ptr(job.Booth)
	}
	if changed[FieldPhase] {
		p.Fields.Phase = ptr(job.Phase)
	}
	if changed[FieldNotes] {
		p.Fields.Notes = ptr(job.Notes)
	}
	if changed[FieldRawText] {
		p.Fields.RawText = ptr(job.RawText)
	}
	if changed[FieldAssignments] {
		assignments := make([]model.Assignment, len(job.Assignments))
		for i, a := range job.Assignments {
			assignments[i] = model.Assignment{
				WorkerID: a.WorkerID,
				Status:   model.CanonicalStatus(string(a.Status)),
			}
		}
		p.Fields.Assignments = &assignments
	}
	if changed[FieldFinalizedWorkLog] {
		workLog := make([]model.WorkLogEntry, len(job.FinalizedWorkLog))
		copy(workLog, job.FinalizedWorkLog)
		p.Fields.FinalizedWorkLog = &workLog
	}
	if changed[FieldFinalizedNotes] {
		p.Fields.FinalizedNotes = ptr(job.FinalizedNotes)
	}
	if changed[FieldReportCompleted] {
		p.Fields.ReportCompleted = ptr(job.ReportCompleted)
	}

	return p
}

// AssignmentsOnly reports whether the payload carries nothing beyond the row
// identifier and the assignment list. Such writes are routed through the
// update-only path: they must land on an existing row, never create one,
// because pure status changes typically originate from a worker's device
// which should not be able to fabricate job metadata.
func (p JobPayload) AssignmentsOnly() bool {
	f := p.Fields
	return f.Assignments != nil &&
		f.Name == nil &&
		f.Date == nil &&
		f.StartTime == nil &&
		f.EndTime == nil &&
		f.Location == nil &&
		f.Booth == nil &&
		f.Phase == nil &&
		f.Notes == nil &&
		f.RawText == nil &&
		f.FinalizedWorkLog == nil &&
		f.FinalizedNotes == nil &&
		f.ReportCompleted == nil
}

func ptr[T any](v T) *T {
	return &v
}
