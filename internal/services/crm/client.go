package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/models"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookClient pushes lead payloads to the configured CRM webhook.
type WebhookClient struct {
	url    string
	apiKey string
	client HTTPClient
	log    *zap.Logger
}

func NewWebhookClient(webhookURL, apiKey string, client HTTPClient, log *zap.Logger) *WebhookClient {
	return &WebhookClient{
		url:    webhookURL,
		apiKey: apiKey,
		client: client,
		log:    log.With(zap.String("component", "WebhookClient")),
	}
}

// Push sends one lead to the CRM. Failures are terminal for the attempt;
// there are no retries.
func (c *WebhookClient) Push(ctx context.Context, lead models.Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("failed to close CRM response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("CRM webhook error: status %s", resp.Status)
	}

	c.log.Info("lead pushed to CRM", zap.String("email", lead.Email))
	return nil
}
