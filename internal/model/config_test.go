package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, string(RoleMember), cfg.User.Role)
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.Notifications.UnreadOnly)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  base_url: https://catalog.example.com
  timeout_sec: 5
user:
  id: alice
  role: moderator
notifications:
  poll_interval_sec: 0
  unread_only: true
preferences:
  access_rules:
    moderation: [admin]
server:
  tokens:
    tok-alice: alice
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://catalog.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "alice", cfg.User.ID)
	assert.Equal(t, "moderator", cfg.User.Role)
	assert.True(t, cfg.Notifications.UnreadOnly)
	assert.Equal(t, 30*time.Second, cfg.PollInterval(), "non-positive interval falls back")
	assert.Equal(t, map[string][]string{"moderation": {"admin"}}, cfg.Preferences.AccessRules)
	assert.Equal(t, map[string]string{"tok-alice": "alice"}, cfg.Server.Tokens)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("NOTIFYCTL_USER_ID", "bob")
	t.Setenv("NOTIFYCTL_API_BASE_URL", "http://api.internal")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.User.ID)
	assert.Equal(t, "http://api.internal", cfg.API.BaseURL)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultAppConfig()
	cfg.User.ID = "carol"
	cfg.Notifications.PollIntervalSec = 45

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "carol", loaded.User.ID)
	assert.Equal(t, 45*time.Second, loaded.PollInterval())
}
