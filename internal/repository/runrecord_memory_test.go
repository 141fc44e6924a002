package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

func TestMemoryRunRepo_CreateGetUpdate(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()

	rec := &trigbits.RunRecord{
		ID:        "run-0000000000000001",
		Tag:       "TestTbl",
		Status:    trigbits.RunStatusRunning,
		FirstRun:  100,
		LastRun:   -1,
		StartedAt: time.Now(),
	}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}

	got, err := repo.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	if got.Status != trigbits.RunStatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, trigbits.RunStatusRunning)
	}

	completed := time.Now()
	rec.Status = trigbits.RunStatusSuccess
	rec.Added = 1
	rec.CompletedAt = &completed
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("Update returned unexpected error: %v", err)
	}

	got, err = repo.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	if got.Status != trigbits.RunStatusSuccess {
		t.Errorf("Status after update = %q, want %q", got.Status, trigbits.RunStatusSuccess)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt is nil after update")
	}
}

func TestMemoryRunRepo_NotFound(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "run-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}

	err := repo.Update(ctx, &trigbits.RunRecord{ID: "run-missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRunRepo_ListByTag(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		rec := &trigbits.RunRecord{
			ID:        fmt.Sprintf("run-%016d", i),
			Tag:       "TestTbl",
			Status:    trigbits.RunStatusSuccess,
			FirstRun:  uint64(i + 1),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create(%d) returned unexpected error: %v", i, err)
		}
	}
	other := &trigbits.RunRecord{
		ID:        "run-other",
		Tag:       "OtherTbl",
		Status:    trigbits.RunStatusFailed,
		StartedAt: base,
	}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create(other) returned unexpected error: %v", err)
	}

	runs, total, err := repo.ListByTag(ctx, "TestTbl", 2, 0)
	if err != nil {
		t.Fatalf("ListByTag returned unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(runs) != 2 {
		t.Fatalf("ListByTag returned %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run-0000000000000002" {
		t.Errorf("runs[0].ID = %q, want the newest run", runs[0].ID)
	}

	runs, total, err = repo.ListByTag(ctx, "TestTbl", 2, 2)
	if err != nil {
		t.Fatalf("ListByTag with offset returned unexpected error: %v", err)
	}
	if total != 3 || len(runs) != 1 {
		t.Errorf("offset page: total = %d, len = %d, want 3 and 1", total, len(runs))
	}
}

func TestMemoryRunRepo_ListAll_StatusFilter(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()

	base := time.Now()
	statuses := []trigbits.RunStatus{
		trigbits.RunStatusSuccess,
		trigbits.RunStatusFailed,
		trigbits.RunStatusSuccess,
	}
	for i, status := range statuses {
		rec := &trigbits.RunRecord{
			ID:        fmt.Sprintf("run-%016d", i),
			Tag:       "TestTbl",
			Status:    status,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create(%d) returned unexpected error: %v", i, err)
		}
	}

	_, total, err := repo.ListAll(ctx, 10, 0, "")
	if err != nil {
		t.Fatalf("ListAll returned unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("ListAll total = %d, want 3", total)
	}

	runs, total, err := repo.ListAll(ctx, 10, 0, "failed")
	if err != nil {
		t.Fatalf("ListAll(failed) returned unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("ListAll(failed) total = %d, want 1", total)
	}
	if len(runs) != 1 || runs[0].Status != trigbits.RunStatusFailed {
		t.Errorf("ListAll(failed) returned %v", runs)
	}
}
