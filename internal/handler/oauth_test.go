package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/crosspostme/crosspost-agent/internal/domain"
)

func TestHandleOAuthCallback_ConfirmsAwaitingAttempts(t *testing.T) {
	waiting := sampleAttempt(domain.PhaseAwaitingOAuthRedirect)
	entering := sampleAttempt(domain.PhaseAwaitingCredentials)
	entering.ID = "other-attempt"

	conn := new(MockConnectionService)
	conn.On("Attempts").Return([]domain.ConnectionAttempt{waiting, entering})
	conn.On("ConfirmOAuthCompletion", mock.Anything, waiting.ID).
		Return(sampleAttempt(domain.PhaseSucceeded), nil)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc&state=xyz", nil)
	w := httptest.NewRecorder()
	HandleOAuthCallback(conn)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "window.close()")
	conn.AssertCalled(t, "ConfirmOAuthCompletion", mock.Anything, waiting.ID)
	conn.AssertNotCalled(t, "ConfirmOAuthCompletion", mock.Anything, entering.ID)
}

func TestHandleOAuthCallback_NoAwaitingAttempts(t *testing.T) {
	conn := new(MockConnectionService)
	conn.On("Attempts").Return([]domain.ConnectionAttempt{})

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback", nil)
	w := httptest.NewRecorder()
	HandleOAuthCallback(conn)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	conn.AssertNotCalled(t, "ConfirmOAuthCompletion", mock.Anything, mock.Anything)
}
