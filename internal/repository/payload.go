// Package repository defines storage interfaces for conditions data.
package repository

import (
	"context"
	"errors"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// ErrNotFound is returned when a requested payload or run does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the backing conditions store cannot
// be reached. It is fatal to an update run: nothing is retried.
var ErrUnavailable = errors.New("conditions store unavailable")

// ErrDuplicateIOV is returned when a payload for the same tag and
// since-run already exists. Stored versions are immutable.
var ErrDuplicateIOV = errors.New("payload already exists for this since run")

// PayloadRepository abstracts persistence for versioned trigger maps
// so callers don't need to know whether storage is in-memory,
// PostgreSQL, or a cached mix.
type PayloadRepository interface {
	// Save stores p as a new version of its tag, effective from
	// p.SinceRun onward.
	Save(ctx context.Context, p *trigbits.Payload) error
	// CurrentAt returns the version current at the given run: the one
	// with the largest SinceRun not exceeding it.
	CurrentAt(ctx context.Context, tag string, run uint64) (*trigbits.Payload, error)
	// History returns all versions of a tag ordered by SinceRun
	// ascending.
	History(ctx context.Context, tag string) ([]*trigbits.Payload, error)
	// Tags returns the distinct tag names, sorted.
	Tags(ctx context.Context) ([]string, error)
}
