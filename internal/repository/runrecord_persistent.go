package repository

import (
	"context"
	"log/slog"

	"github.com/TrT-TOT/trigcond/internal/db"
	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// PersistentRunRepository wraps a MemoryRunRepository with a
// PostgreSQL backend. Run records are advisory audit data, so writes
// go to both stores and a DB failure is logged but non-fatal. Reads
// try memory first, falling back to the database.
type PersistentRunRepository struct {
	mem *MemoryRunRepository
	db  *db.DB
}

func NewPersistentRunRepository(mem *MemoryRunRepository, database *db.DB) *PersistentRunRepository {
	return &PersistentRunRepository{mem: mem, db: database}
}

func (r *PersistentRunRepository) Create(ctx context.Context, record *trigbits.RunRecord) error {
	_ = r.mem.Create(ctx, record)
	if err := r.db.InsertRun(ctx, record); err != nil {
		slog.Warn("db insert run failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PersistentRunRepository) Get(ctx context.Context, id string) (*trigbits.RunRecord, error) {
	rec, err := r.mem.Get(ctx, id)
	if err == nil {
		return rec, nil
	}

	dbRec, dbErr := r.db.GetRun(ctx, id)
	if dbErr != nil {
		return nil, err // return original ErrNotFound
	}

	_ = r.mem.Create(ctx, dbRec)
	return dbRec, nil
}

func (r *PersistentRunRepository) Update(ctx context.Context, record *trigbits.RunRecord) error {
	_ = r.mem.Update(ctx, record)
	if err := r.db.UpdateRun(ctx, record); err != nil {
		slog.Warn("db update run failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PersistentRunRepository) ListByTag(ctx context.Context, tag string, limit, offset int) ([]*trigbits.RunRecord, int, error) {
	runs, total, err := r.db.ListRunsByTag(ctx, tag, limit, offset)
	if err == nil {
		return runs, total, nil
	}
	slog.Warn("db list runs failed, falling back to in-memory", "err", err)
	return r.mem.ListByTag(ctx, tag, limit, offset)
}

func (r *PersistentRunRepository) ListAll(ctx context.Context, limit, offset int, status string) ([]*trigbits.RunRecord, int, error) {
	runs, total, err := r.db.ListAllRuns(ctx, limit, offset, status)
	if err == nil {
		return runs, total, nil
	}
	slog.Warn("db list all runs failed, falling back to in-memory", "err", err)
	return r.mem.ListAll(ctx, limit, offset, status)
}
