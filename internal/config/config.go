// Package config loads unotes configuration.
// Sources, lowest to highest priority:
//  1. built-in defaults
//  2. yaml file (--config, or ~/.unotes/config.yaml)
//  3. .env in the working directory (never overrides variables already set)
//  4. UNOTES_* environment variables
//  5. command-line flags, applied by the caller
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultAuthURL      = "http://localhost:8080"
	DefaultNoteURL      = "http://localhost:8081"
	DefaultAuthBasePath = "/api/oauth2"
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
)

// Config is the complete unotes configuration.
type Config struct {
	// AuthURL is the auth service origin, without the oauth2 path.
	AuthURL string `yaml:"auth_url"`
	// NoteURL is the note service origin, without /api.
	NoteURL string `yaml:"note_url"`
	// AuthBasePath is the oauth2 prefix. Older deployments use /api/auth/oauth2.
	AuthBasePath string `yaml:"auth_base_path"`

	// DBPath is the SQLite file holding the refresh token.
	DBPath string `yaml:"db"`
	// PersistAccessToken keeps the access token in DBPath too. When false
	// it lives in memory and each run starts with a refresh.
	PersistAccessToken bool `yaml:"persist_access_token"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// HTTPTimeout bounds each request. Zero means no timeout.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AuthURL:            DefaultAuthURL,
		NoteURL:            DefaultNoteURL,
		AuthBasePath:       DefaultAuthBasePath,
		DBPath:             defaultDBPath(),
		PersistAccessToken: true,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
	}
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".unotes", "session.db")
}

// DefaultPath is the config file read when no --config is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".unotes", "config.yaml")
}

// Load builds the configuration from path (or DefaultPath when empty), the
// .env file in dotenvDir and the environment. A missing file is not an
// error when path is empty.
func Load(path, dotenvDir string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if dotenvDir != "" {
		envFile := filepath.Join(dotenvDir, ".env")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("UNOTES_AUTH_URL"); v != "" {
		cfg.AuthURL = v
	}
	if v := os.Getenv("UNOTES_NOTE_URL"); v != "" {
		cfg.NoteURL = v
	}
	if v := os.Getenv("UNOTES_AUTH_BASE_PATH"); v != "" {
		cfg.AuthBasePath = v
	}
	if v := os.Getenv("UNOTES_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("UNOTES_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("UNOTES_PERSIST_ACCESS_TOKEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("UNOTES_PERSIST_ACCESS_TOKEN: %w", err)
		}
		cfg.PersistAccessToken = b
	}
	if v := os.Getenv("UNOTES_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("UNOTES_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	return nil
}

// Validate checks the fields that would otherwise fail on first request.
func (c *Config) Validate() error {
	for _, u := range []struct{ name, value string }{
		{"auth_url", c.AuthURL},
		{"note_url", c.NoteURL},
	} {
		parsed, err := url.Parse(u.value)
		if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", u.name, u.value)
		}
	}
	if !strings.HasPrefix(c.AuthBasePath, "/") {
		return fmt.Errorf("auth_base_path must start with /, got %q", c.AuthBasePath)
	}
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout)
	}
	return nil
}

// AuthBaseURL is the full base URL of the auth endpoints.
func (c *Config) AuthBaseURL() string {
	return strings.TrimRight(c.AuthURL, "/") + c.AuthBasePath
}

// NoteBaseURL is the full base URL of the note endpoints.
func (c *Config) NoteBaseURL() string {
	return strings.TrimRight(c.NoteURL, "/") + "/api"
}
