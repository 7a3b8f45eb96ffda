package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStageConfigFileWritesReadableZeroSixHundredFile(t *testing.T) {
	dir := t.TempDir()
	path, err := StageConfigFile(dir, []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, dir))
	require.True(t, strings.Contains(path, "client_config_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"hello":"world"}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStageConfigFileLeavesNoTempSiblings(t *testing.T) {
	dir := t.TempDir()
	_, err := StageConfigFile(dir, []byte("data"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".tmp_"), "temp staging file %s was not cleaned up", e.Name())
	}
}

func TestStageConfigFileCreatesDirIfMissing(t *testing.T) {
	dir := t.TempDir() + "/nested/staging"
	path, err := StageConfigFile(dir, []byte("data"))
	require.NoError(t, err)
	require.FileExists(t, path)
}
