package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testAPIKey = "test-api-key"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidKey(t *testing.T) {
	mw := AuthMiddleware(testAPIKey, nil, NewSuspiciousActivityDetector())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.Header.Set(HeaderAPIKey, testAPIKey)
	w := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_MissingKey(t *testing.T) {
	mw := AuthMiddleware(testAPIKey, nil, NewSuspiciousActivityDetector())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	w := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongKey(t *testing.T) {
	mw := AuthMiddleware(testAPIKey, nil, NewSuspiciousActivityDetector())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.Header.Set(HeaderAPIKey, "wrong-key")
	w := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_PublicPathsBypass(t *testing.T) {
	mw := AuthMiddleware(testAPIKey, nil, NewSuspiciousActivityDetector())

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/version", "/oauth/callback", "/swagger/index.html"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		mw(okHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "path %s should be public", path)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	mw := SecurityHeadersMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(w, req)

	assert.Equal(t, HeaderValueNoSniff, w.Header().Get(HeaderContentType))
	assert.Equal(t, HeaderValueSameOrigin, w.Header().Get(HeaderFrameOptions))
	assert.Equal(t, HeaderValueXSSBlock, w.Header().Get(HeaderXSSProtection))
	assert.Equal(t, HeaderValueReferrerStrictOrigin, w.Header().Get(HeaderReferrerPolicy))
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	mw := RequestSizeLimitMiddleware(16)

	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	small := httptest.NewRequest(http.MethodPost, "/api/v1/attempts/x/credentials", strings.NewReader("tiny"))
	w := httptest.NewRecorder()
	mw(readAll).ServeHTTP(w, small)
	assert.Equal(t, http.StatusOK, w.Code)

	big := httptest.NewRequest(http.MethodPost, "/api/v1/attempts/x/credentials", strings.NewReader(strings.Repeat("x", 64)))
	w = httptest.NewRecorder()
	mw(readAll).ServeHTTP(w, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestExtractIP_UntrustedProxyIgnoresForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:4242"
	req.Header.Set(HeaderForwardedFor, "1.2.3.4")

	assert.Equal(t, "10.0.0.9", extractIP(req, nil))
}

func TestExtractIP_TrustedProxyUsesForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:4242"
	req.Header.Set(HeaderForwardedFor, "1.2.3.4, 5.6.7.8")

	assert.Equal(t, "5.6.7.8", extractIP(req, []string{"10.0.0.9"}))
}
