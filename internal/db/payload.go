package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// InsertPayload stores a new payload version. A (tag, since_run) pair
// that already exists returns ErrDuplicate.
func (d *DB) InsertPayload(ctx context.Context, p *trigbits.Payload) error {
	trigMapJSON, _ := json.Marshal(p.Bits.TrigMap)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO trigger_payloads (payload_id, tag, since_run, trig_map, inserted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.PayloadID.String(), p.Tag, int64(p.SinceRun), trigMapJSON, p.InsertedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s@%d", ErrDuplicate, p.Tag, p.SinceRun)
		}
		return fmt.Errorf("insert payload: %w", err)
	}
	return nil
}

// GetPayloadAt returns the payload version current at the given run:
// the one with the largest since_run not exceeding it.
func (d *DB) GetPayloadAt(ctx context.Context, tag string, run uint64) (*trigbits.Payload, error) {
	p := &trigbits.Payload{Bits: trigbits.NewBits()}
	var sinceRun int64
	var trigMapJSON []byte

	err := d.Pool.QueryRowContext(ctx,
		`SELECT payload_id, tag, since_run, trig_map, inserted_at
		 FROM trigger_payloads
		 WHERE tag = $1 AND since_run <= $2
		 ORDER BY since_run DESC LIMIT 1`,
		tag, int64(run),
	).Scan(&p.PayloadID, &p.Tag, &sinceRun, &trigMapJSON, &p.InsertedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no payload for tag %s at run %d", ErrNotFound, tag, run)
	}
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	p.SinceRun = uint64(sinceRun)
	if err := json.Unmarshal(trigMapJSON, &p.Bits.TrigMap); err != nil {
		return nil, fmt.Errorf("decode trig map: %w", err)
	}
	return p, nil
}

// ListIOVs returns all payload versions of a tag ordered by since_run
// ascending. A tag with no versions at all returns ErrNotFound.
func (d *DB) ListIOVs(ctx context.Context, tag string) ([]*trigbits.Payload, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT payload_id, tag, since_run, trig_map, inserted_at
		 FROM trigger_payloads
		 WHERE tag = $1 ORDER BY since_run ASC`,
		tag,
	)
	if err != nil {
		return nil, fmt.Errorf("list iovs: %w", err)
	}
	defer rows.Close()

	result, err := scanPayloads(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: tag %s", ErrNotFound, tag)
	}
	return result, nil
}

// ListTags returns the distinct tag names, sorted.
func (d *DB) ListTags(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT DISTINCT tag FROM trigger_payloads ORDER BY tag ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func scanPayloads(rows *sql.Rows) ([]*trigbits.Payload, error) {
	var result []*trigbits.Payload
	for rows.Next() {
		p := &trigbits.Payload{Bits: trigbits.NewBits()}
		var sinceRun int64
		var trigMapJSON []byte

		if err := rows.Scan(&p.PayloadID, &p.Tag, &sinceRun, &trigMapJSON, &p.InsertedAt); err != nil {
			return nil, fmt.Errorf("scan payload: %w", err)
		}

		p.SinceRun = uint64(sinceRun)
		if err := json.Unmarshal(trigMapJSON, &p.Bits.TrigMap); err != nil {
			return nil, fmt.Errorf("decode trig map: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
