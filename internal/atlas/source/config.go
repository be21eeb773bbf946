package source

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Common errors
var (
	ErrMissingDistrictURL = errors.New("district record base URL is required")
	ErrMissingBulkURL     = errors.New("bulk collection base URL is required")
	ErrMissingOutlineURL  = errors.New("state outline base URL is required")
)

// Default endpoints for the hosted shape mirror.
const (
	DefaultDistrictURL = "https://data.districtatlas.org/districts"
	DefaultBulkURL     = "https://data.districtatlas.org/archives"
	DefaultOutlineURL  = "https://data.districtatlas.org/states"
)

// Config holds endpoints and limits for the geometry source. The
// remote mirror throttles aggressive clients, so requests-per-second
// is part of the contract, not a tuning knob.
type Config struct {
	// DistrictURL serves individually addressed per-district records:
	// {DistrictURL}/{vintage}/{STATE}/{label}.geojson
	DistrictURL string

	// BulkURL serves legacy multi-district per-state collections:
	// {BulkURL}/{State_Name}_{from}_to_{to}.geojson
	BulkURL string

	// OutlineURL serves whole-state boundary records:
	// {OutlineURL}/{State_Name}.geojson
	OutlineURL string

	// Timeout bounds each upstream request.
	Timeout time.Duration

	// RequestsPerSecond and Burst feed the client rate limiter.
	RequestsPerSecond float64
	Burst             int
}

// fileConfig is the YAML shape of SHAPE_SOURCE_CONFIG. Zero-valued
// fields leave the defaults in place.
type fileConfig struct {
	DistrictURL       string  `yaml:"district_url"`
	BulkURL           string  `yaml:"bulk_url"`
	OutlineURL        string  `yaml:"outline_url"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoadFromEnv loads source configuration from environment variables,
// optionally layered under a YAML file.
//
// Environment variables:
//   - SHAPE_SOURCE_CONFIG: path to a YAML file with the fields above
//   - SHAPE_SOURCE_DISTRICT_URL, SHAPE_SOURCE_BULK_URL,
//     SHAPE_SOURCE_OUTLINE_URL: endpoint overrides
func LoadFromEnv() (Config, error) {
	cfg := Config{
		DistrictURL:       DefaultDistrictURL,
		BulkURL:           DefaultBulkURL,
		OutlineURL:        DefaultOutlineURL,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 8,
		Burst:             16,
	}

	if path := strings.TrimSpace(os.Getenv("SHAPE_SOURCE_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read source config: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parse source config %s: %w", path, err)
		}
		if fc.DistrictURL != "" {
			cfg.DistrictURL = fc.DistrictURL
		}
		if fc.BulkURL != "" {
			cfg.BulkURL = fc.BulkURL
		}
		if fc.OutlineURL != "" {
			cfg.OutlineURL = fc.OutlineURL
		}
		if fc.TimeoutSeconds > 0 {
			cfg.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
		}
		if fc.RequestsPerSecond > 0 {
			cfg.RequestsPerSecond = fc.RequestsPerSecond
		}
		if fc.Burst > 0 {
			cfg.Burst = fc.Burst
		}
	}

	if v := strings.TrimSpace(os.Getenv("SHAPE_SOURCE_DISTRICT_URL")); v != "" {
		cfg.DistrictURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SHAPE_SOURCE_BULK_URL")); v != "" {
		cfg.BulkURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SHAPE_SOURCE_OUTLINE_URL")); v != "" {
		cfg.OutlineURL = v
	}

	return cfg, nil
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.DistrictURL == "" {
		return ErrMissingDistrictURL
	}
	if c.BulkURL == "" {
		return ErrMissingBulkURL
	}
	if c.OutlineURL == "" {
		return ErrMissingOutlineURL
	}
	return nil
}
