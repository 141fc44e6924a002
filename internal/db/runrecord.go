package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// InsertRun stores a new update run record.
func (d *DB) InsertRun(ctx context.Context, r *trigbits.RunRecord) error {
	warningsJSON, _ := json.Marshal(r.Warnings)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO update_runs (id, tag, status, first_run, last_run, removed, added, renamed, warnings, error, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.Tag, string(r.Status), int64(r.FirstRun), r.LastRun,
		r.Removed, r.Added, r.Renamed, warningsJSON, r.Error,
		r.StartedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves an update run record by ID.
func (d *DB) GetRun(ctx context.Context, id string) (*trigbits.RunRecord, error) {
	r := &trigbits.RunRecord{}
	var status string
	var firstRun int64
	var warningsJSON []byte

	err := d.Pool.QueryRowContext(ctx,
		`SELECT id, tag, status, first_run, last_run, removed, added, renamed, warnings, error, started_at, completed_at
		 FROM update_runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.Tag, &status, &firstRun, &r.LastRun,
		&r.Removed, &r.Added, &r.Renamed, &warningsJSON, &r.Error,
		&r.StartedAt, &r.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	r.Status = trigbits.RunStatus(status)
	r.FirstRun = uint64(firstRun)
	json.Unmarshal(warningsJSON, &r.Warnings)
	return r, nil
}

// UpdateRun updates an existing update run record.
func (d *DB) UpdateRun(ctx context.Context, r *trigbits.RunRecord) error {
	warningsJSON, _ := json.Marshal(r.Warnings)

	_, err := d.Pool.ExecContext(ctx,
		`UPDATE update_runs SET status = $1, removed = $2, added = $3, renamed = $4, warnings = $5, error = $6, completed_at = $7
		 WHERE id = $8`,
		string(r.Status), r.Removed, r.Added, r.Renamed,
		warningsJSON, r.Error, r.CompletedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRunsByTag returns update runs for a specific tag with pagination.
func (d *DB) ListRunsByTag(ctx context.Context, tag string, limit, offset int) ([]*trigbits.RunRecord, int, error) {
	var total int
	err := d.Pool.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM update_runs WHERE tag = $1`, tag,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, tag, status, first_run, last_run, removed, added, renamed, warnings, error, started_at, completed_at
		 FROM update_runs WHERE tag = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		tag, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows, total)
}

// ListAllRuns returns all update runs with pagination. status filters
// by run status when non-empty ("" = all).
func (d *DB) ListAllRuns(ctx context.Context, limit, offset int, status string) ([]*trigbits.RunRecord, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	var total int
	err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM update_runs`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, tag, status, first_run, last_run, removed, added, renamed, warnings, error, started_at, completed_at
		 FROM update_runs%s ORDER BY started_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows, total)
}

func scanRuns(rows *sql.Rows, total int) ([]*trigbits.RunRecord, int, error) {
	var result []*trigbits.RunRecord
	for rows.Next() {
		r := &trigbits.RunRecord{}
		var status string
		var firstRun int64
		var warningsJSON []byte

		if err := rows.Scan(&r.ID, &r.Tag, &status, &firstRun, &r.LastRun,
			&r.Removed, &r.Added, &r.Renamed, &warningsJSON, &r.Error,
			&r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}

		r.Status = trigbits.RunStatus(status)
		r.FirstRun = uint64(firstRun)
		json.Unmarshal(warningsJSON, &r.Warnings)
		result = append(result, r)
	}
	return result, total, rows.Err()
}
