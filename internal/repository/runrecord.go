package repository

import (
	"context"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// RunRepository abstracts persistence for update run records.
type RunRepository interface {
	Create(ctx context.Context, record *trigbits.RunRecord) error
	Get(ctx context.Context, id string) (*trigbits.RunRecord, error)
	Update(ctx context.Context, record *trigbits.RunRecord) error
	ListByTag(ctx context.Context, tag string, limit, offset int) ([]*trigbits.RunRecord, int, error)
	// ListAll returns all runs. status filters by run status when non-empty ("" = all).
	ListAll(ctx context.Context, limit, offset int, status string) ([]*trigbits.RunRecord, int, error)
}
