// Package notify delivers update run outcomes to operators.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TrT-TOT/trigcond/internal/config"
	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// Notifier delivers the outcome of a finished update run.
type Notifier interface {
	NotifyRun(ctx context.Context, record *trigbits.RunRecord) error
}

// LogNotifier writes run outcomes to the structured log. It is the
// fallback when no external channel is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyRun(_ context.Context, record *trigbits.RunRecord) error {
	slog.Info("update run finished",
		"run", record.ID,
		"tag", record.Tag,
		"status", record.Status,
		"removed", record.Removed,
		"added", record.Added,
		"renamed", record.Renamed,
		"warnings", len(record.Warnings),
	)
	return nil
}

// NewFromConfig picks the notifier for the configured channel.
func NewFromConfig(cfg config.NotifyConfig) Notifier {
	if cfg.SlackWebhookURL != "" {
		return &SlackNotifier{WebhookURL: cfg.SlackWebhookURL}
	}
	return LogNotifier{}
}

// formatRunMessage renders a run record as a one-line human message.
func formatRunMessage(r *trigbits.RunRecord) string {
	switch r.Status {
	case trigbits.RunStatusSuccess:
		return fmt.Sprintf("conditions update %s succeeded: tag %s, %d removed, %d added, %d renamed, %d warning(s), for runs %d to %d (< 0 meaning infinity)",
			r.ID, r.Tag, r.Removed, r.Added, r.Renamed, len(r.Warnings), r.FirstRun, r.LastRun)
	case trigbits.RunStatusFailed:
		msg := fmt.Sprintf("conditions update %s FAILED: tag %s", r.ID, r.Tag)
		if r.Error != nil {
			msg += ": " + *r.Error
		}
		return msg
	default:
		return fmt.Sprintf("conditions update %s: tag %s, status %s", r.ID, r.Tag, r.Status)
	}
}
