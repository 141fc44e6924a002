package services

import (
	"context"
	"time"

	"github.com/TrT-TOT/trigcond/internal/repository"
	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// RunHistoryService manages update run records.
type RunHistoryService struct {
	runRepo repository.RunRepository
}

// NewRunHistoryService creates a RunHistoryService.
func NewRunHistoryService(runRepo repository.RunRepository) *RunHistoryService {
	return &RunHistoryService{runRepo: runRepo}
}

// StartRun creates a new RunRecord in running state for the given spec.
func (s *RunHistoryService) StartRun(ctx context.Context, spec *trigbits.UpdateSpec) (*trigbits.RunRecord, error) {
	record := &trigbits.RunRecord{
		ID:        trigbits.GenerateID("run"),
		Tag:       spec.Tag,
		Status:    trigbits.RunStatusRunning,
		FirstRun:  spec.FirstRun,
		LastRun:   spec.LastRun,
		StartedAt: time.Now(),
	}

	if err := s.runRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// CompleteRun marks a run as successful with its edit counts and the
// warnings collected along the way.
func (s *RunHistoryService) CompleteRun(ctx context.Context, id string, removed, added, renamed int, warnings []string) error {
	record, err := s.runRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	record.Status = trigbits.RunStatusSuccess
	record.Removed = removed
	record.Added = added
	record.Renamed = renamed
	record.Warnings = warnings
	record.CompletedAt = &now
	return s.runRepo.Update(ctx, record)
}

// FailRun marks a run as failed with an error message.
func (s *RunHistoryService) FailRun(ctx context.Context, id string, errMsg string) error {
	record, err := s.runRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	record.Status = trigbits.RunStatusFailed
	record.Error = &errMsg
	record.CompletedAt = &now
	return s.runRepo.Update(ctx, record)
}

// GetRun retrieves a single run record.
func (s *RunHistoryService) GetRun(ctx context.Context, id string) (*trigbits.RunRecord, error) {
	return s.runRepo.Get(ctx, id)
}

// ListRuns returns runs for a specific tag with pagination.
func (s *RunHistoryService) ListRuns(ctx context.Context, tag string, limit, offset int) ([]*trigbits.RunRecord, int, error) {
	return s.runRepo.ListByTag(ctx, tag, limit, offset)
}

// ListAllRuns returns all runs with pagination. status filters by run
// status when non-empty.
func (s *RunHistoryService) ListAllRuns(ctx context.Context, limit, offset int, status string) ([]*trigbits.RunRecord, int, error) {
	return s.runRepo.ListAll(ctx, limit, offset, status)
}
