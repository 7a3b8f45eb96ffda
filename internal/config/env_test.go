package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadEnvDefaultsTableNames(t *testing.T) {
	for _, key := range []string{"COMPANY_TABLE", "SEND_QUEUE_TABLE"} {
		old, had := os.LookupEnv(key)
		os.Unsetenv(key)
		if had {
			key, old := key, old
			t.Cleanup(func() { os.Setenv(key, old) })
		}
	}

	env := LoadEnv()
	require.Equal(t, "companies", env.CompanyTable)
	require.Equal(t, "send_queue", env.SendQueueTable)
}

func TestLoadEnvHonorsTableOverrides(t *testing.T) {
	withEnv(t, "COMPANY_TABLE", "companies_extra")
	withEnv(t, "SEND_QUEUE_TABLE", "send_queue_extra")

	env := LoadEnv()
	require.Equal(t, "companies_extra", env.CompanyTable)
	require.Equal(t, "send_queue_extra", env.SendQueueTable)
}

func TestRunIDPrefersGithubRunID(t *testing.T) {
	env := Env{GithubRunID: "gha-123"}
	require.Equal(t, "gha-123", env.RunID())
}

func TestRunIDFallsBackToLocalUUID(t *testing.T) {
	env := Env{}
	id := env.RunID()
	require.True(t, strings.HasPrefix(id, "local-"))
	require.NotEqual(t, env.RunID(), id, "two calls should never collide")
}

func TestTableSuffixSelectsExtraVariant(t *testing.T) {
	require.Equal(t, "_extra", Env{CompanyTable: "companies_extra"}.TableSuffix())
	require.Equal(t, "_extra", Env{SendQueueTable: "send_queue_extra"}.TableSuffix())
	require.Equal(t, "", Env{CompanyTable: "companies"}.TableSuffix())
}
