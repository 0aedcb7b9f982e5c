package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/remote"
)

// ReadWorkers retrieves the full worker snapshot.
func (db *DB) ReadWorkers(ctx context.Context) ([]model.Worker, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, name, COALESCE(phone, ''), sms_opt_in
		FROM workers
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []model.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workers: %w", err)
	}
	return workers, nil
}

// ReadWorker fetches a single worker by id.
func (db *DB) ReadWorker(ctx context.Context, id string) (model.Worker, bool, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(phone, ''), sms_opt_in
		FROM workers
		WHERE id = $1
	`, id)

	w, err := scanWorker(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Worker{}, false, nil
		}
		return model.Worker{}, false, fmt.Errorf("failed to read worker %s: %w", id, err)
	}
	return w, true, nil
}

// UpsertWorker inserts or updates a worker row keyed by id, touching only
// the provided fields.
func (db *DB) UpsertWorker(ctx context.Context, id string, fields remote.WorkerFields) (model.Worker, error) {
	name := ""
	if fields.Name != nil {
		name = *fields.Name
	}
	phone := ""
	if fields.Phone != nil {
		phone = *fields.Phone
	}

	// Tri-state consent travels as a nullable boolean: NULL means the
	// worker has not answered yet.
	var smsOptIn *bool
	if fields.SMSOptIn != nil && fields.SMSOptIn.Decided() {
		decided := *fields.SMSOptIn == model.OptInYes
		smsOptIn = &decided
	}

	row := db.pool.QueryRow(ctx, `
		INSERT INTO workers (id, name, phone, sms_opt_in)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			sms_opt_in = EXCLUDED.sms_opt_in,
			updated_at = NOW()
		RETURNING id, name, COALESCE(phone, ''), sms_opt_in
	`, id, name, phone, smsOptIn)

	w, err := scanWorker(row)
	if err != nil {
		return model.Worker{}, fmt.Errorf("failed to upsert worker %s: %w", id, err)
	}
	return w, nil
}

// DeleteWorker removes a worker row. Deleting a missing row is not an error.
func (db *DB) DeleteWorker(ctx context.Context, id string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM workers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete worker %s: %w", id, err)
	}
	return nil
}

func scanWorker(row pgx.Row) (model.Worker, error) {
	var (
		w        model.Worker
		smsOptIn *bool
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Phone, &smsOptIn); err != nil {
		return model.Worker{}, err
	}
	switch {
	case smsOptIn == nil:
		w.SMSOptIn = model.OptInUnset
	case *smsOptIn:
		w.SMSOptIn = model.OptInYes
	default:
		w.SMSOptIn = model.OptInNo
	}
	return w, nil
}
