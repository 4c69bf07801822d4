package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Redis.ResultTTL)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.LLM.Model)
	assert.True(t, cfg.Memory.Enabled)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  http_port: 9000
agent:
  parallel: true
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: taskforge
  name: taskforge
  ssl_mode: disable
llm:
  model: mixtral-8x7b-32768
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.True(t, cfg.Agent.Parallel)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "mixtral-8x7b-32768", cfg.LLM.Model)
	// Unset fields keep their defaults.
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o600))

	t.Setenv("TASKFORGE_SERVER_HTTP_PORT", "9100")
	t.Setenv("TASKFORGE_LLM_API_KEY", "test-key")
	t.Setenv("TASKFORGE_AGENT_REQUEST_TIMEOUT", "90s")
	t.Setenv("TASKFORGE_MEMORY_ENABLED", "false")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Agent.RequestTimeout)
	assert.False(t, cfg.Memory.Enabled)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad http port", func(c *Config) { c.Server.HTTPPort = -1 }},
		{"bad temperature", func(c *Config) { c.LLM.Temperature = 5 }},
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true; c.Auth.JWTSecret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432, User: "u", Password: "p", Name: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", pg.DSN())

	my := DatabaseConfig{Driver: "mysql", Host: "h", Port: 3306, User: "u", Password: "p", Name: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?parseTime=true", my.DSN())

	lite := DatabaseConfig{Driver: "sqlite", Name: "file.db"}
	assert.Equal(t, "file.db", lite.DSN())
}
