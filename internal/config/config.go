// Package config loads and validates the two configuration sources
// spec.md §6 names: the tenant configuration file (targeting/client data)
// and the worker configuration (timeouts, retries, detector thresholds,
// resource-blocking rules). Structure and defaulting style are adapted from
// the teacher's internal/config/config.go (yaml.v3, nested struct-per-concern,
// DefaultConfig constructor).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkerConfig holds all per-worker tunables: retry counts, timeouts,
// multi-process sizing, detector thresholds, resource-blocking rules, and
// cookie-control options (spec.md §6).
type WorkerConfig struct {
	Timeouts      TimeoutConfig       `yaml:"timeouts"`
	Retry         RetryConfig         `yaml:"retry"`
	MultiProcess  MultiProcessConfig  `yaml:"multi_process"`
	Detectors     DetectorConfig      `yaml:"detectors"`
	ResourceBlock ResourceBlockConfig `yaml:"resource_blocking"`
	CookieControl CookieControlConfig `yaml:"cookie_control"`
	NamePolicy    NamePolicyConfig    `yaml:"name_policy"`
	ShardRotation ShardRotationConfig `yaml:"shard_rotation"`
}

// TimeoutConfig carries every bounded-wait duration used by the pipeline.
type TimeoutConfig struct {
	PageLoadMs         int `yaml:"page_load_ms"`
	ElementWaitMs      int `yaml:"element_wait_ms"`
	ClickTimeoutMs     int `yaml:"click_timeout_ms"`
	PreProcessingMaxMs int `yaml:"pre_processing_max_ms"`
	PostInputDelayMs   int `yaml:"post_input_delay_ms"`
	NetworkIdleMs      int `yaml:"network_idle_ms"`
	HardWatchdogSec    int `yaml:"hard_watchdog_sec"`
}

func (t TimeoutConfig) PageLoad() time.Duration         { return ms(t.PageLoadMs, 30_000) }
func (t TimeoutConfig) ElementWait() time.Duration      { return ms(t.ElementWaitMs, 5_000) }
func (t TimeoutConfig) ClickTimeout() time.Duration     { return ms(t.ClickTimeoutMs, 3_000) }
func (t TimeoutConfig) PreProcessingMax() time.Duration { return ms(t.PreProcessingMaxMs, 10_000) }
func (t TimeoutConfig) PostInputDelay() time.Duration   { return ms(t.PostInputDelayMs, 150) }
func (t TimeoutConfig) NetworkIdle() time.Duration      { return ms(t.NetworkIdleMs, 8_000) }
func (t TimeoutConfig) HardWatchdog() time.Duration {
	if t.HardWatchdogSec <= 0 {
		return 180 * time.Second
	}
	return time.Duration(t.HardWatchdogSec) * time.Second
}

func ms(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Millisecond
}

// RetryConfig bounds the single RETRY_INVALID pass and checkbox-group
// selection policy (spec.md §4.15).
type RetryConfig struct {
	MaxRetries                int  `yaml:"max_retries"`
	SelectAllRequiredCheckbox bool `yaml:"select_all_required_checkbox"`
}

// MultiProcessConfig bounds the worker fleet size (1-4 per spec.md §4.20).
type MultiProcessConfig struct {
	NumWorkers int `yaml:"num_workers"`
}

// ClampWorkers enforces the 1-4 bound.
func (m MultiProcessConfig) ClampWorkers() int {
	n := m.NumWorkers
	if n < 1 {
		n = 1
	}
	if n > 4 {
		n = 4
	}
	return n
}

// DetectorConfig thresholds the prohibition detector's early-abort rule and
// its shared cache sizing (spec.md §4.17).
type DetectorConfig struct {
	ProhibitionEarlyAbort ProhibitionThresholds `yaml:"prohibition_early_abort"`
	CacheMaxEntries       int                   `yaml:"cache_max_entries"`
	CacheTTLSeconds       int                   `yaml:"cache_ttl_seconds"`
}

// ProhibitionThresholds defines the early-abort rule: satisfying any one of
// these conditions triggers abort before submission (spec.md §4.17).
type ProhibitionThresholds struct {
	MinLevel      string  `yaml:"min_level" toml:"min_level"`           // ordinal level name, e.g. "moderate"
	MinConfidence string  `yaml:"min_confidence" toml:"min_confidence"` // "high"
	MinScore      float64 `yaml:"min_score" toml:"min_score"`
	MinMatches    int     `yaml:"min_matches" toml:"min_matches"`
}

// ResourceBlockConfig lists resource types the browser manager should block
// at the network layer (spec.md §4.18).
type ResourceBlockConfig struct {
	Images      bool `yaml:"images"`
	Fonts       bool `yaml:"fonts"`
	Stylesheets bool `yaml:"stylesheets"`
}

// CookieControlConfig configures the browser manager's cookie/CMP blackhole
// (spec.md §4.18).
type CookieControlConfig struct {
	BlockConsentScripts    bool `yaml:"block_consent_scripts"`
	StripThirdPartyCookie  bool `yaml:"strip_third_party_cookie"`
	OverrideDocumentCookie bool `yaml:"override_document_cookie"`
	AutoRejectBannerMs     int  `yaml:"auto_reject_banner_ms"`
}

// NamePolicyConfig lists company-name substrings that cause a worker to
// skip a company before any DOM work (spec.md §4.19).
type NamePolicyConfig struct {
	SkipKeywords []string `yaml:"skip_keywords"`
}

// ShardRotationConfig tunes the runner's shard-rotation behavior
// (spec.md §4.20).
type ShardRotationConfig struct {
	Enabled              bool `yaml:"enabled"`
	EmptyWindowSec       int  `yaml:"empty_window_sec"`
	Random               bool `yaml:"random"`
	StaleRequeueEveryMin int  `yaml:"stale_requeue_every_min"`
	StaleThresholdMin    int  `yaml:"stale_threshold_min"`
}

// DefaultWorkerConfig returns the baseline configuration, matching the
// numeric defaults the original system used.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Timeouts: TimeoutConfig{
			PageLoadMs:         30_000,
			ElementWaitMs:      5_000,
			ClickTimeoutMs:     3_000,
			PreProcessingMaxMs: 10_000,
			PostInputDelayMs:   150,
			NetworkIdleMs:      8_000,
			HardWatchdogSec:    180,
		},
		Retry: RetryConfig{
			MaxRetries:                1,
			SelectAllRequiredCheckbox: true,
		},
		MultiProcess: MultiProcessConfig{NumWorkers: 1},
		Detectors: DetectorConfig{
			ProhibitionEarlyAbort: ProhibitionThresholds{
				MinLevel:      "moderate",
				MinConfidence: "high",
				MinScore:      60,
				MinMatches:    1,
			},
			CacheMaxEntries: 256,
			CacheTTLSeconds: 120,
		},
		ResourceBlock: ResourceBlockConfig{Images: true, Fonts: true, Stylesheets: false},
		CookieControl: CookieControlConfig{
			BlockConsentScripts:    true,
			StripThirdPartyCookie: true,
			OverrideDocumentCookie: false,
			AutoRejectBannerMs:     1_500,
		},
		NamePolicy: NamePolicyConfig{},
		ShardRotation: ShardRotationConfig{
			Enabled:              true,
			EmptyWindowSec:       120,
			Random:               false,
			StaleRequeueEveryMin: 5,
			StaleThresholdMin:    15,
		},
	}
}

// LoadWorkerConfig reads a yaml worker-config file, falling back to defaults
// for any zero-valued field left unset on disk. An empty path returns the
// defaults untouched.
func LoadWorkerConfig(path string) (WorkerConfig, error) {
	cfg := DefaultWorkerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read worker config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse worker config %s: %w", path, err)
	}
	return applyDetectorsOverride(path, cfg)
}
