package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Assistant.MaxRounds)
	assert.Equal(t, 10, cfg.Assistant.MaxExtractRounds)
	assert.Greater(t, cfg.Server.WriteTimeout, cfg.Assistant.ExtractTimeout+cfg.Assistant.TranslateTimeout)
	assert.Equal(t, "Asia/Jerusalem", cfg.App.Timezone)
	assert.False(t, cfg.RateLimitDisabled())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "write timeout shorter than a turn",
			body:    "server:\n  writeTimeout: 60\nassistant:\n  extractTimeout: 45\n  translateTimeout: 30\n",
			wantErr: "server.writeTimeout",
		},
		{
			name:    "negative daily limit",
			body:    "assistant:\n  dailyLimit: -1\n",
			wantErr: "assistant.dailyLimit",
		},
		{
			name:    "unknown timezone",
			body:    "app:\n  timezone: Mars/Olympus\n",
			wantErr: "app.timezone",
		},
		{
			name: "write timeout covers a turn",
			body: "server:\n  writeTimeout: 120\nassistant:\n  extractTimeout: 60\n  translateTimeout: 30\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := &Config{
		App:       AppConfig{Environment: "Development"},
		Assistant: AssistantConfig{RateLimitDisabledEnvironments: []string{"development"}},
	}
	assert.True(t, cfg.RateLimitDisabled())

	cfg.App.Environment = "production"
	assert.False(t, cfg.RateLimitDisabled())
}
