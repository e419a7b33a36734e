package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedVars = []string{
	"TUTORLY_LLM_PROVIDER", "TUTORLY_GEMINI_API_KEY", "TUTORLY_GEMINI_API_KEY_BACKUP_1",
	"TUTORLY_GEMINI_API_KEY_BACKUP_2", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	"OPENROUTER_API_KEY", "TUTORLY_ANTHROPIC_API_KEY", "TUTORLY_OPENAI_API_KEY",
	"TUTORLY_OPENROUTER_API_KEY", "TUTORLY_DB", "TUTORLY_ADDR", "TUTORLY_SMTP_PORT",
	"TUTORLY_SMTP_HOST", "TUTORLY_AUTH_ALLOWED_DOMAINS", "TUTORLY_BASE_URL",
	"TUTORLY_REDIS_URL", "TUTORLY_FIRESTORE_PROJECT", "TUTORLY_CORS_ORIGINS",
}

// clearEnv blanks every variable the loader reads, restoring them after
// the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()
	assert.False(t, cfg.LLMConfigured)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.SMTP.Configured())
	assert.Empty(t, cfg.Auth.AllowedDomains)
	assert.Equal(t, "http://localhost:8080", cfg.Auth.BaseURL)
}

func TestFromEnvValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TUTORLY_GEMINI_API_KEY_BACKUP_2", "backup")
	t.Setenv("TUTORLY_ADDR", ":9000")
	t.Setenv("TUTORLY_SMTP_PORT", "465")
	t.Setenv("TUTORLY_AUTH_ALLOWED_DOMAINS", "school.edu, , college.edu")
	t.Setenv("TUTORLY_BASE_URL", "https://tutorly.test")
	t.Setenv("TUTORLY_REDIS_URL", "redis://localhost:6379/0")

	cfg := FromEnv()
	assert.True(t, cfg.LLMConfigured)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "backup", cfg.LLM.Gemini.ActiveKey())
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, []string{"school.edu", "college.edu"}, cfg.Auth.AllowedDomains)
	assert.Equal(t, "https://tutorly.test", cfg.Auth.BaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("TUTORLY_GEMINI_API_KEY=from-file\nTUTORLY_ADDR=:7000\n"), 0o600))
	t.Setenv("TUTORLY_ADDR", ":7777")

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, ":7777", cfg.Addr, "real environment wins over .env")
}

func TestLoadMissingFileIsFine(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestSetEnvFileValue(t *testing.T) {
	clearEnv(t)
	env := filepath.Join(t.TempDir(), ".env")

	require.NoError(t, SetEnvFileValue(env, "TUTORLY_ADDR", ":7000"))
	require.NoError(t, SetEnvFileValue(env, "TUTORLY_GEMINI_API_KEY", "new-key"))

	assert.Equal(t, "new-key", os.Getenv("TUTORLY_GEMINI_API_KEY"))

	clearEnv(t)
	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "new-key", cfg.LLM.Gemini.APIKey)
}
