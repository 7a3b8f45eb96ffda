package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmdRequiresTargetingIDAndConfigFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return nil }
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err, "missing required flags should fail before RunE runs")
}

func TestParseTargetDateDefaultsToNow(t *testing.T) {
	before := time.Now()
	got, err := parseTargetDate("")
	require.NoError(t, err)
	require.WithinDuration(t, before, got, time.Second)
}

func TestParseTargetDateParsesISODate(t *testing.T) {
	got, err := parseTargetDate("2026-07-31")
	require.NoError(t, err)
	require.Equal(t, 2026, got.Year())
	require.Equal(t, time.July, got.Month())
	require.Equal(t, 31, got.Day())
}

func TestParseTargetDateRejectsMalformedInput(t *testing.T) {
	_, err := parseTargetDate("07/31/2026")
	require.Error(t, err)
}

func TestResolveHeadlessEnvOverrideWinsOverFlag(t *testing.T) {
	require.True(t, resolveHeadless("false", "true"))
	require.False(t, resolveHeadless("true", "false"))
}

func TestResolveHeadlessFlagUsedWhenNoEnvOverride(t *testing.T) {
	require.True(t, resolveHeadless("true", ""))
	require.False(t, resolveHeadless("false", ""))
	require.True(t, resolveHeadless("auto", ""), "auto defaults to headless")
}

func TestPinnedShardNilUnlessFlagSet(t *testing.T) {
	shardSet = false
	require.Nil(t, pinnedShard(0))

	shardSet = true
	shardIDFlag = 2
	require.Equal(t, 2, *pinnedShard(0))
	require.Equal(t, 3, *pinnedShard(1))
	shardSet = false
}
