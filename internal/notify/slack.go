package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// SlackNotifier posts run outcomes to a Slack incoming webhook URL.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client
}

func (s *SlackNotifier) NotifyRun(ctx context.Context, record *trigbits.RunRecord) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack notifier missing webhook URL")
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	payload := map[string]string{"text": formatRunMessage(record)}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack API returned %d", resp.StatusCode)
	}
	return nil
}
