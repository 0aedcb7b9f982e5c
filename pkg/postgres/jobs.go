package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/remote"
)

const jobSelectColumns = `
	id, name,
	COALESCE(date, ''), COALESCE(start_time, ''), COALESCE(end_time, ''),
	COALESCE(location, ''), COALESCE(booth, ''), COALESCE(phase, ''),
	COALESCE(notes, ''), COALESCE(raw_text, ''),
	worker_assignments, finalized_work_log, COALESCE(finalized_notes, ''),
	report_completed, created_at, updated_at`

// ReadJobs retrieves the full job snapshot mapped into the canonical shape.
func (db *DB) ReadJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+jobSelectColumns+` FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}

// UpsertJob inserts or updates a job row, touching only the provided fields.
// An empty id lets the database assign one.
func (db *DB) UpsertJob(ctx context.Context, id string, fields remote.JobFields) (model.Job, error) {
	cols, args, err := jobWriteColumns(fields)
	if err != nil {
		return model.Job{}, err
	}

	if id != "" {
		cols = append([]string{"id"}, cols...)
		args = append([]any{id}, args...)
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO jobs (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if id != "" {
		sb.WriteString(" ON CONFLICT (id) DO UPDATE SET updated_at = NOW()")
		for _, col := range cols {
			if col == "id" {
				continue
			}
			fmt.Fprintf(&sb, ", %s = EXCLUDED.%s", col, col)
		}
	}
	sb.WriteString(" RETURNING " + jobSelectColumns)

	row := db.pool.QueryRow(ctx, sb.String(), args...)
	job, err := scanJob(row)
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to upsert job: %w", err)
	}
	return job, nil
}

// PatchJobFields updates only the provided fields on an existing row. It
// never creates a row: remote.ErrJobNotFound is returned when no job with
// that id exists.
func (db *DB) PatchJobFields(ctx context.Context, id string, fields remote.JobFields) (model.Job, error) {
	cols, args, err := jobWriteColumns(fields)
	if err != nil {
		return model.Job{}, err
	}

	var sb strings.Builder
	sb.WriteString("UPDATE jobs SET updated_at = NOW()")
	for i, col := range cols {
		fmt.Fprintf(&sb, ", %s = $%d", col, i+1)
	}
	fmt.Fprintf(&sb, " WHERE id = $%d RETURNING %s", len(cols)+1, jobSelectColumns)
	args = append(args, id)

	row := db.pool.QueryRow(ctx, sb.String(), args...)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Job{}, fmt.Errorf("job %s: %w", id, remote.ErrJobNotFound)
		}
		return model.Job{}, fmt.Errorf("failed to patch job %s: %w", id, err)
	}
	return job, nil
}

// DeleteJob removes a job row. Deleting a missing row is not an error.
func (db *DB) DeleteJob(ctx context.Context, id string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return nil
}

// jobWriteColumns translates the provided fields into column names and
// arguments. Absent (nil) fields produce no column at all.
func jobWriteColumns(fields remote.JobFields) ([]string, []any, error) {
	var cols []string
	var args []any

	addText := func(col string, v *string) {
		if v != nil {
			cols = append(cols, col)
			args = append(args, *v)
		}
	}
	addText("name", fields.Name)
	addText("date", fields.Date)
	addText("start_time", fields.StartTime)
	addText("end_time", fields.EndTime)
	addText("location", fields.Location)
	addText("booth", fields.Booth)
	addText("phase", fields.Phase)
	addText("notes", fields.Notes)
	addText("raw_text", fields.RawText)
	addText("finalized_notes", fields.FinalizedNotes)

	if fields.Assignments != nil {
		raw, err := json.Marshal(*fields.Assignments)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode assignments: %w", err)
		}
		cols = append(cols, "worker_assignments")
		args = append(args, raw)
	}
	if fields.FinalizedWorkLog != nil {
		raw, err := json.Marshal(*fields.FinalizedWorkLog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode work log: %w", err)
		}
		cols = append(cols, "finalized_work_log")
		args = append(args, raw)
	}
	if fields.ReportCompleted != nil {
		cols = append(cols, "report_completed")
		args = append(args, *fields.ReportCompleted)
	}

	return cols, args, nil
}

func scanJob(row pgx.Row) (model.Job, error) {
	var (
		job             model.Job
		assignmentsRaw  []byte
		workLogRaw      []byte
		createdAt       time.Time
		updatedAt       time.Time
	)
	err := row.Scan(
		&job.ID, &job.Name,
		&job.Date, &job.StartTime, &job.EndTime,
		&job.Location, &job.Booth, &job.Phase,
		&job.Notes, &job.RawText,
		&assignmentsRaw, &workLogRaw, &job.FinalizedNotes,
		&job.ReportCompleted, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Job{}, err
	}

	if len(assignmentsRaw) > 0 {
		if err := json.Unmarshal(assignmentsRaw, &job.Assignments); err != nil {
			return model.Job{}, fmt.Errorf("failed to decode assignments for job %s: %w", job.ID, err)
		}
	}
	if len(workLogRaw) > 0 {
		if err := json.Unmarshal(workLogRaw, &job.FinalizedWorkLog); err != nil {
			return model.Job{}, fmt.Errorf("failed to decode work log for job %s: %w", job.ID, err)
		}
	}
	job.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	job.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return job, nil
}
