package model

// EnsureAssignments returns the canonical assignment list for a job,
// repairing legacy or malformed shapes in place.
//
// Jobs written by older clients carried only AssignedWorkerIDs; those are
// migrated into Assignment entries with status Invited. Duplicate entries for
// the same worker are collapsed (first entry wins). AssignedWorkerIDs is
// re-derived from the result, so after this call the job is self-consistent
// and the returned slice aliases job.Assignments for in-place mutation.
//
// Idempotent: a second call produces no further change.
func EnsureAssignments(job *Job) []Assignment {
	if job.Assignments == nil {
		job.Assignments = make([]Assignment, 0, len(job.AssignedWorkerIDs))
		for _, id := range job.AssignedWorkerIDs {
			job.Assignments = append(job.Assignments, Assignment{WorkerID: id, Status: StatusInvited})
		}
	}

	deduped := job.Assignments[:0]
	seen := make(map[string]bool, len(job.Assignments))
	for _, a := range job.Assignments {
		if seen[a.WorkerID] {
			continue
		}
		seen[a.WorkerID] = true
		deduped = append(deduped, a)
	}
	job.Assignments = deduped

	job.AssignedWorkerIDs = make([]string, len(job.Assignments))
	for i, a := range job.Assignments {
		job.AssignedWorkerIDs[i] = a.WorkerID
	}

	return job.Assignments
}

// FindAssignment returns a pointer into the job's canonical assignment list
// for the given worker, or nil if the worker is not on the job.
func FindAssignment(job *Job, workerID string) *Assignment {
	assignments := EnsureAssignments(job)
	for i := range assignments {
		if assignments[i].WorkerID == workerID {
			return &assignments[i]
		}
	}
	return nil
}
