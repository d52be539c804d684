// Package config reads process configuration from CURSOS_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIURL        = "http://localhost:8000/api"
	defaultWebURL        = "http://localhost:5173"
	defaultDevServerAddr = "127.0.0.1:8000"
)

// Config is the resolved configuration of one cursos process.
type Config struct {
	APIURL  string
	WebURL  string
	DataDir string
	Token   string // bearer token for headless commands

	InactivityTimeout time.Duration
	LockoutWindow     time.Duration
	MaxLoginAttempts  int

	LogLevel slog.Level
	Debug    bool

	DevServerAddr string
}

// MirrorPath is the SQLite file holding offline records.
func (c Config) MirrorPath() string { return filepath.Join(c.DataDir, "mirror.db") }

// LogPath is where structured logs are written.
func (c Config) LogPath() string { return filepath.Join(c.DataDir, "cursos.log") }

func Load() (Config, error) {
	dataDir := os.Getenv("CURSOS_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".cursos")
	}

	cfg := Config{
		APIURL:  strings.TrimRight(getEnv("CURSOS_API_URL", defaultAPIURL), "/"),
		WebURL:  strings.TrimRight(getEnv("CURSOS_WEB_URL", defaultWebURL), "/"),
		DataDir: dataDir,
		Token:   os.Getenv("CURSOS_TOKEN"),

		MaxLoginAttempts: 5,
		LogLevel:         slog.LevelInfo,
		Debug:            envBool("CURSOS_DEBUG", false),
		DevServerAddr:    getEnv("CURSOS_DEVSERVER_ADDR", defaultDevServerAddr),
	}

	var err error
	if cfg.InactivityTimeout, err = envDuration("CURSOS_INACTIVITY_TIMEOUT", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LockoutWindow, err = envDuration("CURSOS_LOCKOUT_WINDOW", time.Hour); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("CURSOS_MAX_LOGIN_ATTEMPTS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("config: CURSOS_MAX_LOGIN_ATTEMPTS: want a positive integer, got %q", raw)
		}
		cfg.MaxLoginAttempts = n
	}
	if raw := os.Getenv("CURSOS_LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("config: CURSOS_LOG_LEVEL: %w", err)
		}
	}
	if cfg.Debug {
		cfg.LogLevel = slog.LevelDebug
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s: want a positive duration like 15m, got %q", name, raw)
	}
	return d, nil
}
