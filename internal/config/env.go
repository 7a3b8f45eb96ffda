package config

import (
	"os"

	"github.com/google/uuid"
)

// Env captures the environment variables spec.md §6 names, read once at
// startup into a value, matching the teacher's convention of centralizing
// environment access at the config layer. The one exception is
// logging.Init, which reads QUIET_MAPPING_LOGS itself.
type Env struct {
	CompanyTable     string // COMPANY_TABLE
	SendQueueTable   string // SEND_QUEUE_TABLE
	GithubRunID      string // GITHUB_RUN_ID
	PlaywrightHeadless string // PLAYWRIGHT_HEADLESS override: "true"|"false"|""
	QuietMappingLogs bool   // QUIET_MAPPING_LOGS
	DatabaseURL      string // credentials for the persistence layer
}

// LoadEnv reads the process environment into an Env value.
func LoadEnv() Env {
	return Env{
		CompanyTable:       envOr("COMPANY_TABLE", "companies"),
		SendQueueTable:     envOr("SEND_QUEUE_TABLE", "send_queue"),
		GithubRunID:        os.Getenv("GITHUB_RUN_ID"),
		PlaywrightHeadless: os.Getenv("PLAYWRIGHT_HEADLESS"),
		QuietMappingLogs:   os.Getenv("QUIET_MAPPING_LOGS") != "",
		DatabaseURL:        os.Getenv("DATABASE_URL"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// RunID returns GITHUB_RUN_ID when present, otherwise a local,
// process-unique identifier (spec.md §6), generated with uuid.New()
// rather than a timestamp so two runners started in the same instant
// never collide.
func (e Env) RunID() string {
	if e.GithubRunID != "" {
		return e.GithubRunID
	}
	return "local-" + uuid.New().String()
}

// TableSuffix returns "_extra" when the extra-table env vars select the
// extra variant, else "" (spec.md §6 RPC variant selection).
func (e Env) TableSuffix() string {
	if e.CompanyTable == "companies_extra" || e.SendQueueTable == "send_queue_extra" {
		return "_extra"
	}
	return ""
}
