// Package logging provides the category-scoped structured logger used
// across the form-submission pipeline. It is adapted from the teacher
// repo's file-based category logger (internal/logging/logger.go), replacing
// the ad hoc *log.Logger-per-category scheme with a single zap.Logger and
// named sub-loggers ("cores"), and replacing the JSON config file with the
// worker config already loaded by internal/config.
//
// Lifecycle logging policy (spec.md §4.19, §7): ProcessStart and
// ProcessDone emit the process_start and process_done lines at INFO.
// Whenever QUIET_MAPPING_LOGS is set, the mapping category drops every
// entry below ERROR. This package does not limit the levels other
// categories log at; callers elsewhere emit INFO and WARN lines too.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logical subsystem, mirroring the teacher's Category type.
type Category string

const (
	CategoryRunner      Category = "runner"
	CategoryWorker      Category = "worker"
	CategoryBrowser     Category = "browser"
	CategoryAnalyzer    Category = "analyzer"
	CategoryMapping     Category = "mapping"
	CategoryExecutor    Category = "executor"
	CategoryJudge       Category = "judge"
	CategoryProhibition Category = "prohibition"
	CategoryQueue       Category = "queue"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	quiet   bool
	initted bool
)

// Init builds the process-wide zap.Logger. verbose raises the level to
// debug; QUIET_MAPPING_LOGS suppresses the mapping
// category regardless of level, matching the source's CI behavior.
func Init(verbose bool) error {
	mu.Lock()
	defer mu.Unlock()
	if initted {
		return nil
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	base = l
	quiet = os.Getenv("QUIET_MAPPING_LOGS") != ""
	initted = true
	return nil
}

// Sync flushes buffered log entries. Call once at process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// For returns a named sub-logger for the given category. Mapping-category
// logs below Error are dropped when quiet mode is active.
func For(cat Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		// Fall back to a no-op logger if Init was never called (e.g. in tests).
		return zap.NewNop()
	}
	l := base.With(zap.String("category", string(cat)))
	if quiet && cat == CategoryMapping {
		return l.WithOptions(zap.IncreaseLevel(zapcore.ErrorLevel))
	}
	return l
}

// ProcessStart logs the single lifecycle-start line for a company task.
func ProcessStart(companyID, targetingID int64, runID string) {
	For(CategoryWorker).Info("process_start",
		zap.Int64("company_id", companyID),
		zap.Int64("targeting_id", targetingID),
		zap.String("run_id", runID),
	)
}

// ProcessDone logs the single lifecycle-end line for a company task.
func ProcessDone(companyID, targetingID int64, runID string, success bool, code string) {
	For(CategoryWorker).Info("process_done",
		zap.Int64("company_id", companyID),
		zap.Int64("targeting_id", targetingID),
		zap.String("run_id", runID),
		zap.Bool("success", success),
		zap.String("code", code),
	)
}
