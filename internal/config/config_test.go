package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray config.yaml or
// .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, "@every 1h", cfg.Server.PurgeSchedule)
	assert.False(t, cfg.Server.GitHub.Enabled())
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)
	file := filepath.Join(dir, "vibecoders.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  addr: ":9000"
  token_ttl: 2h
  cors_origins: ["https://vibecoders.dev"]
client:
  base_url: "http://file.example"
`), 0o600))

	t.Setenv("VIBECODERS_CLIENT_BASE_URL", "http://env.example")
	t.Setenv("VIBECODERS_SERVER_GITHUB_CLIENT_ID", "id")
	t.Setenv("VIBECODERS_SERVER_GITHUB_CLIENT_SECRET", "secret")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, []string{"https://vibecoders.dev"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "http://env.example", cfg.Client.BaseURL)
	assert.True(t, cfg.Server.GitHub.Enabled())
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"VIBECODERS_SERVER_DB_PATH=from-dotenv.db\nVIBECODERS_SERVER_ADDR=:7000\n"), 0o600))
	t.Setenv("VIBECODERS_SERVER_ADDR", ":6000")
	// godotenv sets variables for the whole process; make sure they go away.
	t.Cleanup(func() { os.Unsetenv("VIBECODERS_SERVER_DB_PATH") })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Server.Addr)
	assert.Equal(t, "from-dotenv.db", cfg.Server.DBPath)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	inTempDir(t)

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestServerConfigValidate(t *testing.T) {
	ok := ServerConfig{Addr: ":8080", JWTSecret: "0123456789abcdef", LoginRate: 1, LoginBurst: 1}
	assert.NoError(t, ok.Validate())

	short := ok
	short.JWTSecret = "short"
	assert.Error(t, short.Validate())

	noRate := ok
	noRate.LoginRate = 0
	assert.Error(t, noRate.Validate())
}

func TestClientConfigValidate(t *testing.T) {
	assert.NoError(t, ClientConfig{BaseURL: "http://x", Timeout: time.Second}.Validate())
	assert.Error(t, ClientConfig{Timeout: time.Second}.Validate())
	assert.Error(t, ClientConfig{BaseURL: "http://x"}.Validate())
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewLogger("nonsense", &buf).Info("info is the fallback")
	assert.Contains(t, buf.String(), "info is the fallback")
}
