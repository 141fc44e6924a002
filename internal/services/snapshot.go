package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/TrT-TOT/trigcond/internal/repository"
	"github.com/TrT-TOT/trigcond/internal/storage"
)

// SnapshotService exports stored payload versions as YAML files.
type SnapshotService struct {
	payloads repository.PayloadRepository
	store    *storage.SnapshotStore
	parallel int
}

// NewSnapshotService creates a SnapshotService. parallel bounds the
// number of tags exported concurrently.
func NewSnapshotService(payloads repository.PayloadRepository, store *storage.SnapshotStore, parallel int) *SnapshotService {
	if parallel < 1 {
		parallel = 1
	}
	return &SnapshotService{payloads: payloads, store: store, parallel: parallel}
}

// ExportTag writes every version of one tag and returns the number of
// files written.
func (s *SnapshotService) ExportTag(ctx context.Context, tag string) (int, error) {
	history, err := s.payloads.History(ctx, tag)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, p := range history {
		name, err := s.store.WritePayload(ctx, p)
		if err != nil {
			return written, err
		}
		slog.Debug("snapshot: wrote file", "tag", tag, "file", name)
		written++
	}
	return written, nil
}

// ExportAll exports every tag, a bounded number of them in parallel.
// It returns the number of files written; on error, files already
// written stay in place.
func (s *SnapshotService) ExportAll(ctx context.Context) (int, error) {
	tags, err := s.payloads.Tags(ctx)
	if err != nil {
		return 0, err
	}

	counts := make([]int, len(tags))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)

	for i, tag := range tags {
		g.Go(func() error {
			n, err := s.ExportTag(gCtx, tag)
			counts[i] = n
			return err
		})
	}

	err = g.Wait()
	total := 0
	for _, n := range counts {
		total += n
	}
	if err != nil {
		return total, err
	}

	slog.Info("snapshot: export finished", "tags", len(tags), "files", total)
	return total, nil
}
