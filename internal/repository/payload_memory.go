package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// MemoryPayloadRepository stores payload versions in memory, grouped
// by tag and ordered by since-run.
type MemoryPayloadRepository struct {
	mu    sync.RWMutex
	byTag map[string][]*trigbits.Payload // sorted by SinceRun ascending
}

func NewMemoryPayloadRepository() *MemoryPayloadRepository {
	return &MemoryPayloadRepository{
		byTag: make(map[string][]*trigbits.Payload),
	}
}

func (r *MemoryPayloadRepository) Save(_ context.Context, p *trigbits.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.byTag[p.Tag] {
		if v.SinceRun == p.SinceRun {
			return fmt.Errorf("%w: %s@%d", ErrDuplicateIOV, p.Tag, p.SinceRun)
		}
	}

	// Store a detached copy so later edits to the caller's map never
	// reach a persisted version.
	stored := *p
	stored.Bits = p.Bits.Copy()

	versions := append(r.byTag[p.Tag], &stored)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].SinceRun < versions[j].SinceRun
	})
	r.byTag[p.Tag] = versions
	return nil
}

func (r *MemoryPayloadRepository) CurrentAt(_ context.Context, tag string, run uint64) (*trigbits.Payload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.byTag[tag]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].SinceRun <= run {
			return versions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no payload for tag %s at run %d", ErrNotFound, tag, run)
}

func (r *MemoryPayloadRepository) History(_ context.Context, tag string) ([]*trigbits.Payload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.byTag[tag]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: tag %s", ErrNotFound, tag)
	}
	out := make([]*trigbits.Payload, len(versions))
	copy(out, versions)
	return out, nil
}

func (r *MemoryPayloadRepository) Tags(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}
