package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// detectorsOverride is the optional sibling file "detectors.toml" next to
// the worker config yaml. It lets operators tune detector thresholds
// without touching the main yaml file, grounded on five82-spindle's
// TOML-first configuration style (internal/config/config.go there uses
// `toml:"..."` struct tags for its on-disk settings).
type detectorsOverride struct {
	Prohibition *ProhibitionThresholds `toml:"prohibition_early_abort"`
	CacheMaxEntries *int `toml:"cache_max_entries"`
	CacheTTLSeconds *int `toml:"cache_ttl_seconds"`
}

// applyDetectorsOverride merges detectors.toml (if present next to the yaml
// worker config) on top of cfg.Detectors.
func applyDetectorsOverride(yamlPath string, cfg WorkerConfig) (WorkerConfig, error) {
	tomlPath := filepath.Join(filepath.Dir(yamlPath), "detectors.toml")
	data, err := os.ReadFile(tomlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read detectors override %s: %w", tomlPath, err)
	}

	var override detectorsOverride
	if err := toml.Unmarshal(data, &override); err != nil {
		return cfg, fmt.Errorf("parse detectors override %s: %w", tomlPath, err)
	}

	if override.Prohibition != nil {
		cfg.Detectors.ProhibitionEarlyAbort = *override.Prohibition
	}
	if override.CacheMaxEntries != nil {
		cfg.Detectors.CacheMaxEntries = *override.CacheMaxEntries
	}
	if override.CacheTTLSeconds != nil {
		cfg.Detectors.CacheTTLSeconds = *override.CacheTTLSeconds
	}
	return cfg, nil
}
