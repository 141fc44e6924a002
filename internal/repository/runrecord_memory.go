package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

const maxRunRecords = 1000

// MemoryRunRepository stores update run records in memory with FIFO
// eviction.
type MemoryRunRepository struct {
	mu      sync.RWMutex
	records map[string]*trigbits.RunRecord
	order   []string // insertion order for FIFO eviction
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{
		records: make(map[string]*trigbits.RunRecord),
	}
}

func (r *MemoryRunRepository) Create(_ context.Context, record *trigbits.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// FIFO eviction when at capacity.
	if len(r.order) >= maxRunRecords {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.records, oldest)
	}

	r.records[record.ID] = record
	r.order = append(r.order, record.ID)
	return nil
}

func (r *MemoryRunRepository) Get(_ context.Context, id string) (*trigbits.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRunRepository) Update(_ context.Context, record *trigbits.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.ID]; !ok {
		return ErrNotFound
	}
	r.records[record.ID] = record
	return nil
}

func (r *MemoryRunRepository) ListByTag(_ context.Context, tag string, limit, offset int) ([]*trigbits.RunRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []*trigbits.RunRecord
	for _, rec := range r.records {
		if rec.Tag == tag {
			filtered = append(filtered, rec)
		}
	}

	// Sort by started_at descending (newest first).
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].StartedAt.After(filtered[j].StartedAt)
	})

	total := len(filtered)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (r *MemoryRunRepository) ListAll(_ context.Context, limit, offset int, status string) ([]*trigbits.RunRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*trigbits.RunRecord, 0, len(r.records))
	for _, rec := range r.records {
		if status == "" || string(rec.Status) == status {
			all = append(all, rec)
		}
	}

	// Sort by started_at descending.
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}
