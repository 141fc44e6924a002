package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TrT-TOT/trigcond/internal/notify"
	"github.com/TrT-TOT/trigcond/internal/repository"
	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// ErrAlreadyApplied is returned when an update for the same tag is
// requested twice within one session. The second request is skipped;
// ResetGuard starts a fresh session.
var ErrAlreadyApplied = errors.New("update already applied for this tag in this session")

// UpdateService applies update specs to the conditions store: it reads
// the base map, runs the remove/add/rename passes, and persists the
// result as a new payload version with a full audit record.
type UpdateService struct {
	payloads repository.PayloadRepository
	history  *RunHistoryService
	notifier notify.Notifier

	mu    sync.Mutex
	calls map[string]int // per-tag invocation count within one session
}

// NewUpdateService creates an UpdateService.
func NewUpdateService(payloads repository.PayloadRepository, history *RunHistoryService, notifier notify.Notifier) *UpdateService {
	return &UpdateService{
		payloads: payloads,
		history:  history,
		notifier: notifier,
		calls:    make(map[string]int),
	}
}

// ResetGuard clears the once-per-session guard for all tags. Drivers
// call it at the start of a new processing session.
func (s *UpdateService) ResetGuard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

// Run applies one update spec. It returns the run record together
// with any fatal error: a ConfigError from the edit passes or an
// unavailable store both fail the run, and nothing is persisted.
//
// A second Run for the same tag in the same session does no work and
// returns ErrAlreadyApplied.
func (s *UpdateService) Run(ctx context.Context, spec *trigbits.UpdateSpec) (*trigbits.RunRecord, error) {
	if err := spec.Validate(ctx); err != nil {
		return nil, err
	}
	if spec.LastRun < 1 {
		spec.LastRun = -1
	}

	s.mu.Lock()
	calls := s.calls[spec.Tag]
	s.calls[spec.Tag] = calls + 1
	s.mu.Unlock()
	if calls > 0 {
		slog.Warn("update: tag already updated in this session, skipping", "tag", spec.Tag)
		return nil, ErrAlreadyApplied
	}

	record, err := s.history.StartRun(ctx, spec)
	if err != nil {
		return nil, err
	}
	slog.Info("update: run started",
		"run", record.ID, "tag", spec.Tag,
		"first_run", spec.FirstRun, "last_run", spec.LastRun)

	// Base map: an empty one, or a copy of the version current at the
	// first run of the new interval.
	var bits *trigbits.Bits
	if spec.StartEmpty {
		bits = trigbits.NewBits()
	} else {
		current, err := s.payloads.CurrentAt(ctx, spec.Tag, spec.FirstRun)
		if err != nil {
			return s.fail(ctx, record, err)
		}
		bits = current.Bits.Copy()
	}

	warnings, err := spec.ApplyTo(bits)
	if err != nil {
		return s.fail(ctx, record, err)
	}
	for _, w := range warnings {
		slog.Warn("update: rename skipped", "run", record.ID, "warning", w)
	}

	payload := &trigbits.Payload{
		PayloadID:  uuid.New(),
		Tag:        spec.Tag,
		SinceRun:   spec.FirstRun,
		Bits:       bits,
		InsertedAt: time.Now(),
	}
	if err := s.payloads.Save(ctx, payload); err != nil {
		return s.fail(ctx, record, err)
	}

	// The upper bound is advisory: the new version stays current until
	// the next version's since-run.
	slog.Info("update: wrote trigger bits",
		"run", record.ID, "tag", spec.Tag, "payload", payload.PayloadID,
		"first_run", spec.FirstRun, "last_run", spec.LastRun)

	renamed := len(spec.Rename) - len(warnings)
	if err := s.history.CompleteRun(ctx, record.ID, len(spec.Remove), len(spec.Add), renamed, warnings); err != nil {
		slog.Warn("update: failed to record completion", "run", record.ID, "err", err)
	}

	record, err = s.history.GetRun(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	s.notifyOutcome(ctx, record)
	return record, nil
}

// fail records the failure, notifies, and hands the error back.
func (s *UpdateService) fail(ctx context.Context, record *trigbits.RunRecord, cause error) (*trigbits.RunRecord, error) {
	if err := s.history.FailRun(ctx, record.ID, cause.Error()); err != nil {
		slog.Warn("update: failed to record failure", "run", record.ID, "err", err)
	}
	failed, err := s.history.GetRun(ctx, record.ID)
	if err != nil {
		failed = record
	}
	s.notifyOutcome(ctx, failed)
	return failed, cause
}

func (s *UpdateService) notifyOutcome(ctx context.Context, record *trigbits.RunRecord) {
	if err := s.notifier.NotifyRun(ctx, record); err != nil {
		slog.Warn("update: notification failed", "run", record.ID, "err", err)
	}
}
