package contact_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	handler "github.com/nordveil/site-api/internal/handlers/contact"
	"github.com/nordveil/site-api/internal/models"
	contactsvc "github.com/nordveil/site-api/internal/services/contact"
)

type mockService struct {
	result contactsvc.Result
	err    error
	calls  int
}

func (m *mockService) Submit(_ context.Context, _ models.ContactSubmission, _ string) (contactsvc.Result, error) {
	m.calls++
	return m.result, m.err
}

func setupRouter(svc *mockService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := handler.NewHandler(svc, zap.NewNop())
	r.POST("/contact", h.Submit)

	return r
}

const validBody = `{
	"firstName": "Ada",
	"lastName": "Lovelace",
	"email": "ada@example.com",
	"services": ["web-development"],
	"budget": "10k-25k",
	"acceptTerms": true,
	"turnstileToken": "tok-0123456789"
}`

func TestSubmitEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		mockErr   error
		result    contactsvc.Result
		wantCode  int
		wantInMsg string
		wantCalls int
	}{
		{
			name:     "missing fields",
			body:     `{"email": "ada@example.com"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "challenge rejected",
			body:     validBody,
			mockErr:  contactsvc.ErrChallengeFailed,
			wantCode: http.StatusBadRequest,

			wantCalls: 1,
		},
		{
			name:      "service error",
			body:      validBody,
			mockErr:   errors.New("smtp down"),
			wantCode:  http.StatusInternalServerError,
			wantCalls: 1,
		},
		{
			name:      "success",
			body:      validBody,
			wantCode:  http.StatusOK,
			wantInMsg: "Thanks for reaching out",
			wantCalls: 1,
		},
		{
			name:      "success with newsletter note",
			body:      validBody,
			result:    contactsvc.Result{NewsletterNote: "Check your inbox to confirm your newsletter subscription."},
			wantCode:  http.StatusOK,
			wantInMsg: "Check your inbox",
			wantCalls: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockService{result: tc.result, err: tc.mockErr}
			router := setupRouter(mock)

			req := httptest.NewRequest(http.MethodPost, "/contact",
				strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantCalls, mock.calls)
			if tc.wantInMsg != "" {
				assert.Contains(t, w.Body.String(), tc.wantInMsg)
			}
		})
	}
}

func TestSubmitEndpoint_ValidationDetails(t *testing.T) {
	mock := &mockService{}
	router := setupRouter(mock)

	req := httptest.NewRequest(http.MethodPost, "/contact",
		strings.NewReader(`{"firstName": "A", "email": "not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "details")
	assert.Contains(t, w.Body.String(), "Email")
	assert.Zero(t, mock.calls)
}
