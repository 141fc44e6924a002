package services

import (
	"context"
	"errors"
	"testing"

	"github.com/TrT-TOT/trigcond/internal/repository"
	"github.com/TrT-TOT/trigcond/internal/storage"
	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

func newSnapshotService(t *testing.T) (*SnapshotService, *repository.MemoryPayloadRepository, *storage.SnapshotStore) {
	t.Helper()
	payloads := repository.NewMemoryPayloadRepository()
	store, err := storage.NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	return NewSnapshotService(payloads, store, 2), payloads, store
}

func TestSnapshotService_ExportTag(t *testing.T) {
	svc, payloads, store := newSnapshotService(t)
	ctx := context.Background()

	seedPayload(t, payloads, "TestTbl", 1, trigbits.TriggerMap{"alca1": "p1"})
	seedPayload(t, payloads, "TestTbl", 100, trigbits.TriggerMap{"alca1": "p1", "alca2": "p2"})

	n, err := svc.ExportTag(ctx, "TestTbl")
	if err != nil {
		t.Fatalf("ExportTag: %v", err)
	}
	if n != 2 {
		t.Errorf("exported %d payloads, want 2", n)
	}

	files, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("snapshot files = %v, want 2", files)
	}

	doc, err := store.ReadPayload(ctx, "TestTbl-100.yaml")
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if doc.Bits.TrigMap["alca2"] != "p2" {
		t.Errorf("snapshot map = %v", doc.Bits.TrigMap)
	}
}

func TestSnapshotService_ExportTag_UnknownTag(t *testing.T) {
	svc, _, _ := newSnapshotService(t)
	if _, err := svc.ExportTag(context.Background(), "NoSuchTbl"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotService_ExportAll(t *testing.T) {
	svc, payloads, store := newSnapshotService(t)
	ctx := context.Background()

	seedPayload(t, payloads, "TagA", 1, trigbits.TriggerMap{"a": "p"})
	seedPayload(t, payloads, "TagA", 50, trigbits.TriggerMap{"a": "p,q"})
	seedPayload(t, payloads, "TagB", 1, trigbits.TriggerMap{"b": "r"})

	n, err := svc.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if n != 3 {
		t.Errorf("exported %d payloads, want 3", n)
	}

	files, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("snapshot files = %v, want 3", files)
	}
}

func TestSnapshotService_ExportAll_Empty(t *testing.T) {
	svc, _, _ := newSnapshotService(t)
	n, err := svc.ExportAll(context.Background())
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if n != 0 {
		t.Errorf("exported %d payloads, want 0", n)
	}
}
