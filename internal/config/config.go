// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Database (optional — empty runs the workspace purely in memory)
	DatabaseURL string

	// Auth (optional — empty disables authentication)
	JWTSecret    string
	AuthUser     string
	AuthPassHash string // bcrypt hash of the login password

	// Workspace
	SeedWorkspace   bool
	TerminalHistory int
	AutoSaveDelay   time.Duration

	// Snapshot archive backend ("local" or "s3")
	SnapshotBackend   string
	LocalSnapshotPath string
	S3Endpoint        string
	S3Bucket          string
	S3AccessKey       string
	S3SecretKey       string
	S3Region          string
	S3UseSSL          bool
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr: envOr("METRICS_ADDR", ":9090"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		LogFormat:   envOr("LOG_FORMAT", "json"),
		DatabaseURL: envOr("DATABASE_URL", ""),

		JWTSecret:    envOr("JWT_SECRET", ""),
		AuthUser:     envOr("AUTH_USER", "admin"),
		AuthPassHash: envOr("AUTH_PASSWORD_HASH", ""),

		SeedWorkspace:   envBool("SEED_WORKSPACE", true),
		TerminalHistory: envInt("TERMINAL_HISTORY", 50),
		AutoSaveDelay:   time.Duration(envInt("AUTOSAVE_DELAY_MS", 2000)) * time.Millisecond,

		SnapshotBackend:   envOr("SNAPSHOT_BACKEND", "local"),
		LocalSnapshotPath: envOr("LOCAL_SNAPSHOT_PATH", "/data/snapshots"),
		S3Endpoint:        envOr("S3_ENDPOINT", "http://localhost:9000"),
		S3Bucket:          envOr("S3_BUCKET", "codebench"),
		S3AccessKey:       envOr("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:       envOr("S3_SECRET_KEY", "minioadmin"),
		S3Region:          envOr("S3_REGION", "us-east-1"),
		S3UseSSL:          envBool("S3_USE_SSL", false),
	}

	if cfg.JWTSecret != "" && cfg.AuthPassHash == "" {
		return nil, fmt.Errorf("AUTH_PASSWORD_HASH is required when JWT_SECRET is set")
	}
	if cfg.TerminalHistory <= 0 {
		return nil, fmt.Errorf("TERMINAL_HISTORY must be positive")
	}

	return cfg, nil
}

// AuthEnabled reports whether the API requires bearer tokens.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
