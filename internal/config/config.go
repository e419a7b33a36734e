// Package config assembles the application configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/abhisek/tutorly/internal/auth"
	"github.com/abhisek/tutorly/internal/llm"
)

// Config is everything the front ends need at startup.
type Config struct {
	// LLM is the provider configuration. LLMConfigured is false when no
	// credential was found, which routes the TUI to the setup view.
	LLM           llm.Config
	LLMConfigured bool

	// DBPath overrides the SQLite location when set.
	DBPath string

	// FirestoreProject switches document storage to Cloud Firestore.
	FirestoreProject     string
	FirestoreCredentials string

	// RedisURL enables the queued mailer and its worker.
	RedisURL string

	SMTP auth.SMTPConfig
	Auth auth.Config

	// Addr is the HTTP listen address for "tutorly serve".
	Addr        string
	CORSOrigins []string
}

// Load reads envFiles (".env" when none are given) into the process
// environment without overriding variables that are already set, then
// builds the Config. Missing files are not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

// FromEnv builds the Config from the current environment.
func FromEnv() Config {
	cfg := Config{
		DBPath:               os.Getenv("TUTORLY_DB"),
		FirestoreProject:     os.Getenv("TUTORLY_FIRESTORE_PROJECT"),
		FirestoreCredentials: os.Getenv("TUTORLY_FIRESTORE_CREDENTIALS"),
		RedisURL:             os.Getenv("TUTORLY_REDIS_URL"),
		Addr:                 envOr("TUTORLY_ADDR", ":8080"),
		CORSOrigins:          splitList(envOr("TUTORLY_CORS_ORIGINS", "*")),
		SMTP: auth.SMTPConfig{
			Host:     os.Getenv("TUTORLY_SMTP_HOST"),
			Port:     envInt("TUTORLY_SMTP_PORT", 587),
			Username: os.Getenv("TUTORLY_SMTP_USERNAME"),
			Password: os.Getenv("TUTORLY_SMTP_PASSWORD"),
			From:     envOr("TUTORLY_SMTP_FROM", "noreply@tutorly.local"),
			FromName: envOr("TUTORLY_SMTP_FROM_NAME", "Tutorly"),
		},
		Auth: auth.DefaultConfig(),
	}
	if u := os.Getenv("TUTORLY_BASE_URL"); u != "" {
		cfg.Auth.BaseURL = u
	}
	cfg.Auth.AllowedDomains = splitList(os.Getenv("TUTORLY_AUTH_ALLOWED_DOMAINS"))

	cfg.LLM, cfg.LLMConfigured = llm.Resolve()
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SetEnvFileValue writes key=value into the .env file at path, keeping the
// other entries. The file is created when missing. The value is also set in
// the process environment.
func SetEnvFileValue(path, key, value string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		values = map[string]string{}
	}
	values[key] = value
	if err := godotenv.Write(values, path); err != nil {
		return err
	}
	return os.Setenv(key, value)
}
