package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/TrT-TOT/trigcond/internal/db"
	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// PersistentPayloadRepository stores payloads in PostgreSQL. The
// database is the system of record: when it cannot be reached,
// operations fail with ErrUnavailable instead of falling back to
// memory.
type PersistentPayloadRepository struct {
	db *db.DB
}

func NewPersistentPayloadRepository(database *db.DB) *PersistentPayloadRepository {
	return &PersistentPayloadRepository{db: database}
}

func (r *PersistentPayloadRepository) Save(ctx context.Context, p *trigbits.Payload) error {
	if err := r.db.InsertPayload(ctx, p); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("%w: %s@%d", ErrDuplicateIOV, p.Tag, p.SinceRun)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *PersistentPayloadRepository) CurrentAt(ctx context.Context, tag string, run uint64) (*trigbits.Payload, error) {
	p, err := r.db.GetPayloadAt(ctx, tag, run)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: no payload for tag %s at run %d", ErrNotFound, tag, run)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return p, nil
}

func (r *PersistentPayloadRepository) History(ctx context.Context, tag string) ([]*trigbits.Payload, error) {
	iovs, err := r.db.ListIOVs(ctx, tag)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: tag %s", ErrNotFound, tag)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return iovs, nil
}

func (r *PersistentPayloadRepository) Tags(ctx context.Context) ([]string, error) {
	tags, err := r.db.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tags, nil
}
