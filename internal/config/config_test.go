package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("BACKEND_URL", "https://api.crosspostme.test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "https://api.crosspostme.test", cfg.BackendURL)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://localhost:8090", cfg.RedirectBaseURL)
	assert.Equal(t, "http://localhost:8090/oauth/callback", cfg.RedirectURI())
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("BACKEND_URL", "https://api.crosspostme.test")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY")
}

func TestLoad_MissingBackendURL(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("BACKEND_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_URL")
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestLoad_TimeoutBounds(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"below minimum", "5", true},
		{"at minimum", "15", false},
		{"at maximum", "30", false},
		{"above maximum", "60", true},
		{"not a number", "soon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("REQUEST_TIMEOUT_SECONDS", tt.value)

			_, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2 ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.TrustedProxies)
}

func TestLoad_NoTrustedProxiesByDefault(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoad_TrimsTrailingSlashes(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BACKEND_URL", "https://api.crosspostme.test/")
	t.Setenv("REDIRECT_BASE_URL", "https://app.crosspostme.test/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.crosspostme.test", cfg.BackendURL)
	assert.Equal(t, "https://app.crosspostme.test/oauth/callback", cfg.RedirectURI())
}
