package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClampWorkersBounds(t *testing.T) {
	require.Equal(t, 1, MultiProcessConfig{NumWorkers: 0}.ClampWorkers())
	require.Equal(t, 1, MultiProcessConfig{NumWorkers: -3}.ClampWorkers())
	require.Equal(t, 2, MultiProcessConfig{NumWorkers: 2}.ClampWorkers())
	require.Equal(t, 4, MultiProcessConfig{NumWorkers: 9}.ClampWorkers())
}

func TestLoadWorkerConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadWorkerConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultWorkerConfig(), cfg)
}

func TestLoadWorkerConfigOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
multi_process:
  num_workers: 3
retry:
  max_retries: 2
`), 0o600))

	cfg, err := LoadWorkerConfig(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MultiProcess.NumWorkers)
	require.Equal(t, 2, cfg.Retry.MaxRetries)
	// Unset fields keep the default baseline.
	require.Equal(t, DefaultWorkerConfig().Timeouts, cfg.Timeouts)
	require.Equal(t, DefaultWorkerConfig().Detectors, cfg.Detectors)
}

func TestLoadWorkerConfigAppliesDetectorsTOMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "worker_config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("retry:\n  max_retries: 1\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "detectors.toml"), []byte(`
cache_max_entries = 512

[prohibition_early_abort]
min_level = "high"
min_matches = 3
`), 0o600))

	cfg, err := LoadWorkerConfig(yamlPath)
	require.NoError(t, err)
	require.Equal(t, 512, cfg.Detectors.CacheMaxEntries)
	require.Equal(t, "high", cfg.Detectors.ProhibitionEarlyAbort.MinLevel)
	require.Equal(t, 3, cfg.Detectors.ProhibitionEarlyAbort.MinMatches)
}

func TestTimeoutConfigDefaultsWhenUnset(t *testing.T) {
	var tc TimeoutConfig
	require.Equal(t, 180_000_000_000, int(tc.HardWatchdog()))
}
