//go:build integration
// +build integration

package integration

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, path, body string) (*http.Response, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		testServerURL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, string(raw)
}

func TestContactSubmission(t *testing.T) {
	require.NoError(t, resetState())

	body := `{
		"firstName": "Ada",
		"lastName": "Lovelace",
		"email": "ada@example.com",
		"company": "Analytical Engines Ltd",
		"services": ["web-development"],
		"budget": "10k-25k",
		"comments": "We need a new site.",
		"acceptTerms": true,
		"turnstileToken": "tok-integration-ok"
	}`

	resp, respBody := postJSON(t, "/api/contact", body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, respBody, "Thanks for reaching out")

	// customer confirmation plus internal lead alert
	assert.Equal(t, 2, mailbox.count())
	mails := mailbox.all()
	assert.Contains(t, mails[0].data, "Ada")
	assert.Contains(t, mails[1].data, "ada@example.com")

	assert.Equal(t, 1, crmInbox.count())
}

func TestContactSubmission_InvalidPayload(t *testing.T) {
	require.NoError(t, resetState())

	resp, respBody := postJSON(t, "/api/contact", `{"firstName":"Ada"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, respBody, "Validation failed")
	assert.Zero(t, mailbox.count())
}

func TestContactSubmission_ChallengeRejected(t *testing.T) {
	require.NoError(t, resetState())

	body := `{
		"firstName": "Ada",
		"lastName": "Lovelace",
		"email": "ada@example.com",
		"services": ["web-development"],
		"budget": "10k-25k",
		"acceptTerms": true,
		"turnstileToken": "` + rejectedChallengeToken + `"
	}`

	resp, respBody := postJSON(t, "/api/contact", body)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, respBody, "Bot challenge verification failed")
	assert.Zero(t, mailbox.count())
	assert.Zero(t, crmInbox.count())
}

func TestContactSubmission_NewsletterOptIn(t *testing.T) {
	require.NoError(t, resetState())

	body := `{
		"firstName": "Ada",
		"lastName": "Lovelace",
		"email": "ada@example.com",
		"services": ["web-development"],
		"budget": "10k-25k",
		"acceptTerms": true,
		"joinNewsletter": true,
		"turnstileToken": "tok-integration-ok"
	}`

	resp, respBody := postJSON(t, "/api/contact", body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, respBody, "Check your inbox to confirm your newsletter subscription")

	var status string
	err := db.QueryRow(`SELECT status FROM subscribers WHERE email = ?`, "ada@example.com").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "pending", status)

	// two pipeline emails plus the subscription confirmation
	assert.Equal(t, 3, mailbox.count())
}
