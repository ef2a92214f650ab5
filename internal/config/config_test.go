package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"UNOTES_AUTH_URL", "UNOTES_NOTE_URL", "UNOTES_AUTH_BASE_PATH", "UNOTES_DB",
		"UNOTES_LOG_LEVEL", "UNOTES_HTTP_TIMEOUT", "UNOTES_PERSIST_ACCESS_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.AuthBasePath != "/api/oauth2" {
		t.Errorf("expected default auth base path /api/oauth2, got %q", cfg.AuthBasePath)
	}
	if !cfg.PersistAccessToken {
		t.Error("expected persist_access_token default true")
	}
	if filepath.Base(cfg.DBPath) != "session.db" {
		t.Errorf("expected session.db default, got %q", cfg.DBPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("expected no error for missing default file, got %v", err)
	}
	if cfg.AuthURL != DefaultAuthURL {
		t.Errorf("expected default auth url, got %q", cfg.AuthURL)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), ""); err == nil {
		t.Fatal("expected error for missing --config file")
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
auth_url: https://auth.example.com
note_url: https://notes.example.com
auth_base_path: /api/auth/oauth2
persist_access_token: false
http_timeout: 5s
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AuthBaseURL() != "https://auth.example.com/api/auth/oauth2" {
		t.Errorf("unexpected auth base url %q", cfg.AuthBaseURL())
	}
	if cfg.NoteBaseURL() != "https://notes.example.com/api" {
		t.Errorf("unexpected note base url %q", cfg.NoteBaseURL())
	}
	if cfg.PersistAccessToken {
		t.Error("expected persist_access_token false from file")
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("expected unset field to keep default, got %q", cfg.LogLevel)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "auth_url: [")
	if _, err := Load(path, ""); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "auth_url: https://file.example.com\n")
	t.Setenv("UNOTES_AUTH_URL", "https://env.example.com")
	t.Setenv("UNOTES_HTTP_TIMEOUT", "2s")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AuthURL != "https://env.example.com" {
		t.Errorf("expected env to win, got %q", cfg.AuthURL)
	}
	if cfg.HTTPTimeout != 2*time.Second {
		t.Errorf("expected 2s, got %s", cfg.HTTPTimeout)
	}
}

func TestLoad_BadEnvDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("UNOTES_HTTP_TIMEOUT", "soon")
	if _, err := Load("", ""); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	writeFile(t, dir, ".env", "UNOTES_NOTE_URL=https://dotenv.example.com\nUNOTES_LOG_LEVEL=debug\n")
	// Already set variables are not overridden by .env. An empty value
	// counts as set, so give the override a real value.
	t.Setenv("UNOTES_LOG_LEVEL", "error")
	os.Unsetenv("UNOTES_NOTE_URL")

	cfg, err := Load("", dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NoteURL != "https://dotenv.example.com" {
		t.Errorf("expected .env value, got %q", cfg.NoteURL)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("expected environment to beat .env, got %q", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative auth url", func(c *Config) { c.AuthURL = "auth.example.com" }},
		{"ftp note url", func(c *Config) { c.NoteURL = "ftp://notes.example.com" }},
		{"base path", func(c *Config) { c.AuthBasePath = "api/oauth2" }},
		{"empty db", func(c *Config) { c.DBPath = "" }},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
