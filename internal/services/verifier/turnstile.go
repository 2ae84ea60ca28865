package verifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// TurnstileClient verifies a client-supplied challenge token against the
// hosted siteverify endpoint. Any transport or decode error counts as a
// verification failure; nothing is retried.
type TurnstileClient struct {
	secret string
	url    string
	client HTTPClient
	log    *zap.Logger
}

func NewTurnstileClient(secret, verifyURL string, client HTTPClient, log *zap.Logger) *TurnstileClient {
	return &TurnstileClient{
		secret: secret,
		url:    verifyURL,
		client: client,
		log:    log.With(zap.String("component", "TurnstileClient")),
	}
}

// Verify reports whether the token passes the challenge, with a
// human-readable reason on failure.
func (c *TurnstileClient) Verify(ctx context.Context, token, remoteIP string) (bool, string) {
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	form.Set("remoteip", remoteIP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, "verification request could not be built"
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("siteverify call failed", zap.Error(err))
		return false, "verification service unreachable"
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("failed to close siteverify response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("siteverify returned non-200", zap.String("status", resp.Status))
		return false, "verification service error"
	}

	var raw siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.log.Warn("failed to decode siteverify response", zap.Error(err))
		return false, "verification response unreadable"
	}

	if !raw.Success {
		c.log.Info("challenge rejected", zap.Strings("error_codes", raw.ErrorCodes))
		return false, "challenge verification failed"
	}
	return true, ""
}
