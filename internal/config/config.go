// Package config loads pipeline configuration from a YAML file, a .env
// file, and SNAPSYNC_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the capture-to-sync pipeline.
type Config struct {
	// DBPath is the SQLite file backing the durable store.
	DBPath string

	// RecognizerURL is the remote recognition endpoint.
	RecognizerURL string
	// RemoteTimeout bounds each recognition attempt.
	RemoteTimeout time.Duration

	// ProbeURL is checked to detect connectivity restoration.
	ProbeURL string
	// ProbeInterval is the connectivity check period.
	ProbeInterval time.Duration

	// CacheTTL and CacheMaxEntries bound the result cache.
	CacheTTL        time.Duration
	CacheMaxEntries int

	// HistoryLimit caps the scan history log.
	HistoryLimit int

	// MaxRetries is the drain attempt ceiling per queue item.
	MaxRetries int
	// DrainDelay spaces out queue items during a drain pass.
	DrainDelay time.Duration
	// ReconcileWindow is the timestamp tolerance when matching a remote
	// result back to its provisional history entry.
	ReconcileWindow time.Duration

	// Upload budgeting.
	TargetUploadBytes int64
	MaxWidth          int
	MaxHeight         int
	QualityStart      int
	QualityStep       int
	QualityFloor      int
}

// Default returns the configuration the capture app ships with.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DBPath:            filepath.Join(home, ".snapsync", "snapsync.db"),
		RecognizerURL:     "https://www.pic2nav.com/api/location-recognition-v2",
		RemoteTimeout:     30 * time.Second,
		ProbeURL:          "https://www.pic2nav.com/healthcheck",
		ProbeInterval:     15 * time.Second,
		CacheTTL:          24 * time.Hour,
		CacheMaxEntries:   100,
		HistoryLimit:      50,
		MaxRetries:        3,
		DrainDelay:        250 * time.Millisecond,
		ReconcileWindow:   5 * time.Second,
		TargetUploadBytes: 500 * 1024,
		MaxWidth:          1920,
		MaxHeight:         1080,
		QualityStart:      90,
		QualityStep:       10,
		QualityFloor:      10,
	}
}

// fileConfig is the YAML file shape. Pointer fields distinguish "absent"
// from "zero"; durations are Go duration strings ("24h", "250ms").
type fileConfig struct {
	DBPath            *string `yaml:"db_path"`
	RecognizerURL     *string `yaml:"recognizer_url"`
	RemoteTimeout     *string `yaml:"remote_timeout"`
	ProbeURL          *string `yaml:"probe_url"`
	ProbeInterval     *string `yaml:"probe_interval"`
	CacheTTL          *string `yaml:"cache_ttl"`
	CacheMaxEntries   *int    `yaml:"cache_max_entries"`
	HistoryLimit      *int    `yaml:"history_limit"`
	MaxRetries        *int    `yaml:"max_retries"`
	DrainDelay        *string `yaml:"drain_delay"`
	ReconcileWindow   *string `yaml:"reconcile_window"`
	TargetUploadBytes *int64  `yaml:"target_upload_bytes"`
	MaxWidth          *int    `yaml:"max_width"`
	MaxHeight         *int    `yaml:"max_height"`
	QualityStart      *int    `yaml:"quality_start"`
	QualityStep       *int    `yaml:"quality_step"`
	QualityFloor      *int    `yaml:"quality_floor"`
}

// Load builds the effective configuration. path may be empty; a missing
// config file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	// Load .env if present, like the rest of the tooling does.
	_ = godotenv.Load()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else {
			var fc fileConfig
			if err := yaml.Unmarshal(raw, &fc); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
			if err := applyFile(&cfg, fc); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig) error {
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.RecognizerURL, fc.RecognizerURL)
	setString(&cfg.ProbeURL, fc.ProbeURL)
	setInt(&cfg.CacheMaxEntries, fc.CacheMaxEntries)
	setInt(&cfg.HistoryLimit, fc.HistoryLimit)
	setInt(&cfg.MaxRetries, fc.MaxRetries)
	setInt(&cfg.MaxWidth, fc.MaxWidth)
	setInt(&cfg.MaxHeight, fc.MaxHeight)
	setInt(&cfg.QualityStart, fc.QualityStart)
	setInt(&cfg.QualityStep, fc.QualityStep)
	setInt(&cfg.QualityFloor, fc.QualityFloor)
	if fc.TargetUploadBytes != nil {
		cfg.TargetUploadBytes = *fc.TargetUploadBytes
	}

	for _, d := range []struct {
		dst  *time.Duration
		src  *string
		name string
	}{
		{&cfg.RemoteTimeout, fc.RemoteTimeout, "remote_timeout"},
		{&cfg.ProbeInterval, fc.ProbeInterval, "probe_interval"},
		{&cfg.CacheTTL, fc.CacheTTL, "cache_ttl"},
		{&cfg.DrainDelay, fc.DrainDelay, "drain_delay"},
		{&cfg.ReconcileWindow, fc.ReconcileWindow, "reconcile_window"},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SNAPSYNC_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SNAPSYNC_RECOGNIZER_URL"); v != "" {
		cfg.RecognizerURL = v
	}
	if v := os.Getenv("SNAPSYNC_PROBE_URL"); v != "" {
		cfg.ProbeURL = v
	}
	if v := os.Getenv("SNAPSYNC_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RemoteTimeout = d
		}
	}
	if v := os.Getenv("SNAPSYNC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	if v := os.Getenv("SNAPSYNC_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheMaxEntries = n
		}
	}
	if v := os.Getenv("SNAPSYNC_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryLimit = n
		}
	}
	if v := os.Getenv("SNAPSYNC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("SNAPSYNC_TARGET_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TargetUploadBytes = n
		}
	}
}
