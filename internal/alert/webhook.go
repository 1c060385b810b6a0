// File: internal/alert/webhook.go
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// WebhookChannelConfig holds webhook channel configuration
type WebhookChannelConfig struct {
	URL           string        `json:"url"`
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay"`
}

// WebhookChannel delivers alerts as JSON POST requests
type WebhookChannel struct {
	config     *WebhookChannelConfig
	httpClient *http.Client
	logger     *logrus.Entry
}

// webhookPayload is the wire format delivered to the webhook sink
type webhookPayload struct {
	Timestamp time.Time `json:"timestamp"`
	Network   string    `json:"network"`
	Severity  string    `json:"severity"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
}

// NewWebhookChannel creates a new webhook channel
func NewWebhookChannel(config *WebhookChannelConfig) *WebhookChannel {
	return &WebhookChannel{
		config: config,
		logger: utils.ComponentLogger("webhook_channel"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// Name returns the channel name
func (wc *WebhookChannel) Name() string {
	return "webhook"
}

// Send delivers one alert, retrying with exponential backoff
func (wc *WebhookChannel) Send(ctx context.Context, event models.AlertEvent, network string) error {
	payload := webhookPayload{
		Timestamp: event.Timestamp,
		Network:   network,
		Severity:  string(event.Severity),
		Subject:   event.Subject,
		Message:   event.Message,
		Source:    "rsk-readiness-orchestrator",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal webhook payload", err.Error())
	}

	var lastErr error
	for attempt := 1; attempt <= wc.config.RetryAttempts; attempt++ {
		if attempt > 1 {
			delay := wc.config.RetryDelay * time.Duration(1<<uint(attempt-2))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = wc.post(ctx, body)
		if lastErr == nil {
			wc.logger.WithField("subject", event.Subject).Debug("Webhook alert delivered")
			return nil
		}

		if attempt < wc.config.RetryAttempts {
			wc.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   lastErr,
			}).Warn("Webhook delivery failed, retrying")
		}
	}

	return lastErr
}

// post issues a single webhook request
func (wc *WebhookChannel) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.config.URL, bytes.NewReader(body))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create webhook request", err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RSK-Readiness-Orchestrator/1.0")
	if requestID, err := utils.GenerateID(); err == nil {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := wc.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeExternal, "Failed to send webhook", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.NewAppError(utils.ErrCodeExternal,
			"Webhook returned non-success status",
			fmt.Sprintf("status: %d", resp.StatusCode))
	}

	return nil
}

var _ Channel = (*WebhookChannel)(nil)
