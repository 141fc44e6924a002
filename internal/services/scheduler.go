package services

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// SchedulerService runs periodic snapshot exports on a cron schedule.
type SchedulerService struct {
	cron     *cron.Cron
	snapshot *SnapshotService
	schedule string
}

// NewSchedulerService creates a SchedulerService. An empty schedule
// disables periodic exports.
func NewSchedulerService(snapshot *SnapshotService, schedule string) *SchedulerService {
	return &SchedulerService{
		cron:     cron.New(cron.WithSeconds()),
		snapshot: snapshot,
		schedule: schedule,
	}
}

// parseCronExpr tries 6-field (with seconds) then 5-field (standard)
// parsing.
func parseCronExpr(expr string) (cron.Schedule, error) {
	parser6 := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser6.Parse(expr)
	if err == nil {
		return sched, nil
	}
	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser5.Parse(expr)
}

// Start registers the export job and begins the cron loop. With no
// schedule configured it logs and does nothing.
func (s *SchedulerService) Start() error {
	if s.schedule == "" {
		slog.Info("scheduler: no snapshot schedule configured, disabled")
		return nil
	}

	cronSched, err := parseCronExpr(s.schedule)
	if err != nil {
		return err
	}

	s.cron.Schedule(cronSched, cron.FuncJob(func() {
		n, err := s.snapshot.ExportAll(context.Background())
		if err != nil {
			slog.Error("scheduler: snapshot export failed", "files", n, "err", err)
			return
		}
		slog.Info("scheduler: snapshot export done", "files", n)
	}))

	s.cron.Start()
	slog.Info("scheduler: started", "cron", s.schedule)
	return nil
}

// Stop gracefully stops the cron scheduler, waiting for a running
// export to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler: stopped")
}
