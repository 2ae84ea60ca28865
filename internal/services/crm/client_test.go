package crm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/models"
	"github.com/nordveil/site-api/internal/services/crm"
)

func lead() models.Lead {
	return models.Lead{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Source:    "contact-form",
	}
}

func TestPush_Success(t *testing.T) {
	var got models.Lead
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := crm.NewWebhookClient(srv.URL, "test-key", srv.Client(), zap.NewNop())

	err := client.Push(context.Background(), lead())

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "contact-form", got.Source)
}

func TestPush_NoAuthHeaderWithoutKey(t *testing.T) {
	var auth string
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, hasAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := crm.NewWebhookClient(srv.URL, "", srv.Client(), zap.NewNop())

	require.NoError(t, client.Push(context.Background(), lead()))
	assert.False(t, hasAuth, "unexpected Authorization header %q", auth)
}

func TestPush_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := crm.NewWebhookClient(srv.URL, "test-key", srv.Client(), zap.NewNop())

	err := client.Push(context.Background(), lead())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRM webhook error")
}

func TestPush_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	client := crm.NewWebhookClient(srv.URL, "test-key", http.DefaultClient, zap.NewNop())

	assert.Error(t, client.Push(context.Background(), lead()))
}
