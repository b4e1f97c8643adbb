package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/railjobs/auth"
	coremetrics "github.com/kilianp07/railjobs/core/metrics"
	"github.com/kilianp07/railjobs/infra/logger"
)

// WebhookSink posts every record as JSON to an HTTP endpoint, optionally
// authenticated with OAuth2 client credentials.
type WebhookSink struct {
	url    string
	client *http.Client
	log    logger.Logger
}

type webhookEvent struct {
	Kind    string                        `json:"kind"`
	Cycle   *coremetrics.CycleReport      `json:"cycle,omitempty"`
	Task    *coremetrics.TaskRecord       `json:"task,omitempty"`
	Dropped *coremetrics.DroppedRunRecord `json:"dropped,omitempty"`
}

// NewWebhookSink creates a sink posting to url.
func NewWebhookSink(url string, cred auth.Conf, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSink{
		url:    url,
		client: auth.Client(context.Background(), cred, &http.Client{Timeout: timeout}),
		log:    logger.New("webhook-sink"),
	}
}

func (s *WebhookSink) post(ev webhookEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", ev.Kind, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.log.Warnf("webhook %s rejected with status %d", ev.Kind, resp.StatusCode)
		return fmt.Errorf("webhook %s: status %d", ev.Kind, resp.StatusCode)
	}
	return nil
}

func (s *WebhookSink) RecordCycle(r coremetrics.CycleReport) error {
	return s.post(webhookEvent{Kind: "cycle", Cycle: &r})
}

func (s *WebhookSink) RecordTask(r coremetrics.TaskRecord) error {
	return s.post(webhookEvent{Kind: "task", Task: &r})
}

func (s *WebhookSink) RecordDroppedRun(r coremetrics.DroppedRunRecord) error {
	return s.post(webhookEvent{Kind: "dropped", Dropped: &r})
}
