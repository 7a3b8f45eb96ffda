// Package main is the formrunner CLI entry point (spec.md §6's CLI
// surface): wires the tenant/worker configuration, the persistence
// pool, the browser manager, and N worker goroutines into one
// runner.Runner and drives it to completion or graceful shutdown.
// Grounded on the teacher's cmd/nerd/main.go cobra+zap root-command
// idiom, reduced to this program's single command.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/form-sender/formrunner/internal/browser"
	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/companystore"
	"github.com/form-sender/formrunner/internal/config"
	"github.com/form-sender/formrunner/internal/executor"
	"github.com/form-sender/formrunner/internal/logging"
	"github.com/form-sender/formrunner/internal/metrics"
	"github.com/form-sender/formrunner/internal/model"
	"github.com/form-sender/formrunner/internal/prohibition"
	"github.com/form-sender/formrunner/internal/queue"
	"github.com/form-sender/formrunner/internal/runner"
	"github.com/form-sender/formrunner/internal/worker"
)

var (
	targetingID  int64
	configFile   string
	numWorkers   int
	headlessFlag string
	targetDate   string
	shardIDFlag  int
	shardSet     bool
	maxProcessed int
	companyID    int64
	companySet   bool
	verbose      bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "formrunner",
		Short: "Drains a tenant's daily form-submission queue across N workers",
		RunE:  run,
	}

	root.Flags().Int64Var(&targetingID, "targeting-id", 0, "tenant targeting id (required)")
	root.Flags().StringVar(&configFile, "config-file", "", "tenant config path or glob (required)")
	root.Flags().IntVar(&numWorkers, "num-workers", 1, "worker count, clamped to 1-4")
	root.Flags().StringVar(&headlessFlag, "headless", "auto", "auto|true|false")
	root.Flags().StringVar(&targetDate, "target-date", "", "YYYY-MM-DD, default today")
	root.Flags().IntVar(&shardIDFlag, "shard-id", 0, "pin worker i to shard shard-id+i")
	root.Flags().IntVar(&maxProcessed, "max-processed", 0, "cap companies processed across all workers, 0 = unbounded")
	root.Flags().Int64Var(&companyID, "company-id", 0, "bypass queue claim and process exactly this company")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")

	root.MarkFlagRequired("targeting-id")
	root.MarkFlagRequired("config-file")

	root.PreRun = func(cmd *cobra.Command, args []string) {
		shardSet = cmd.Flags().Changed("shard-id")
		companySet = cmd.Flags().Changed("company-id")
	}

	return root
}

func run(cmd *cobra.Command, args []string) error {
	if err := logging.Init(verbose); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	log := logging.For(logging.CategoryRunner)

	env := config.LoadEnv()
	runID := env.RunID()

	date, err := parseTargetDate(targetDate)
	if err != nil {
		return err
	}

	tenantPath, err := config.ResolveTenantConfigPath(configFile)
	if err != nil {
		return fmt.Errorf("resolve tenant config: %w", err)
	}
	zone, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		zone = time.UTC
	}
	targeting, err := config.LoadTenantConfig(tenantPath, zone)
	if err != nil {
		return fmt.Errorf("load tenant config: %w", err)
	}

	// Worker config is an optional sibling of the tenant config file;
	// its absence just means every tunable takes its default value.
	workerConfigPath := filepath.Join(filepath.Dir(tenantPath), "worker_config.yaml")
	workerCfg, err := config.LoadWorkerConfig(workerConfigPath)
	if err != nil {
		workerCfg = config.DefaultWorkerConfig()
	}

	if targetingJSON, err := json.Marshal(targeting); err != nil {
		log.Warn("marshal tenant config for staging failed", zap.Error(err))
	} else if _, err := config.StageConfigFile(os.TempDir(), targetingJSON); err != nil {
		log.Warn("stage tenant config failed", zap.Error(err))
	}

	ctx := context.Background()

	if env.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := queue.Connect(ctx, env.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer pool.Close()

	preferExtra := env.TableSuffix() == "_extra"
	queueClient := queue.New(pool, preferExtra)
	store := companystore.New(pool, env.CompanyTable, env.SendQueueTable)

	headless := resolveHeadless(headlessFlag, env.PlaywrightHeadless)
	browserCfg := browser.DefaultConfig()
	browserCfg.Headless = headless
	browserCfg.ResourceBlock = workerCfg.ResourceBlock
	browserCfg.CookieControl = workerCfg.CookieControl
	browserCfg.NavigationTimeout = workerCfg.Timeouts.PageLoad()
	browserCfg.ElementWaitTimeout = workerCfg.Timeouts.ElementWait()

	manager := browser.New(browserCfg)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer manager.Shutdown()

	n := config.MultiProcessConfig{NumWorkers: numWorkers}.ClampWorkers()
	if companySet {
		n = 1
	}

	detector := prohibition.New(workerCfg.Detectors.CacheMaxEntries, time.Duration(workerCfg.Detectors.CacheTTLSeconds)*time.Second)
	execCfg := executor.Config{
		ProhibitionThresholds: prohibition.EarlyAbortThresholds{
			MinLevel:      workerCfg.Detectors.ProhibitionEarlyAbort.MinLevel,
			MinConfidence: workerCfg.Detectors.ProhibitionEarlyAbort.MinConfidence,
			MinScore:      workerCfg.Detectors.ProhibitionEarlyAbort.MinScore,
			MinMatches:    workerCfg.Detectors.ProhibitionEarlyAbort.MinMatches,
		},
		Settings: catalog.DefaultSettings(),
	}

	counters := metrics.New()
	metricsStop := make(chan struct{})
	go counters.LogPeriodic(time.Minute, metricsStop)
	defer close(metricsStop)

	workers := make([]*worker.Worker, 0, n)
	specs := make([]runner.WorkerSpec, 0, n)
	for i := 0; i < n; i++ {
		wc, err := manager.NewContext(ctx)
		if err != nil {
			return fmt.Errorf("new browser context for worker %d: %w", i, err)
		}

		w := &worker.Worker{
			ID:          i,
			RunID:       runID,
			Queue:       queueClient,
			Companies:   store,
			Browser:     wc,
			NamePolicy:  worker.NamePolicy{SkipKeywords: workerCfg.NamePolicy.SkipKeywords},
			ExecCfg:     execCfg,
			Prohibition: detector,
			TargetingID: targetingID,
			Targeting:   targeting,
		}
		workers = append(workers, w)
		specs = append(specs, runner.WorkerSpec{Task: countingTask{w: w, counters: counters}, PinnedShard: pinnedShard(i)})
	}

	if companySet {
		result, err := workers[0].RunCompany(ctx, date, companyID)
		if err != nil {
			return fmt.Errorf("process company %d: %w", companyID, err)
		}
		log.Info("company processed", zap.Int64("company_id", companyID), zap.Bool("success", result.Success), zap.String("code", string(result.Code)))
		return nil
	}

	var maxDaily *int
	if targeting.MaxDailySends > 0 {
		md := targeting.MaxDailySends
		maxDaily = &md
	}

	successCache := runner.NewSuccessCache(store, 30*time.Second)
	rcfg := runner.Config{
		ShardRotation: workerCfg.ShardRotation,
		MaxDaily:      maxDaily,
		HardWatchdog:  workerCfg.Timeouts.HardWatchdog(),
	}
	r := runner.New(rcfg, specs, targetingID, date, queueClient, successCache, maxProcessed)

	shutdownCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		log.Info("shutdown requested, finishing in-flight companies")
		cancel()
	}()

	if err := r.Run(shutdownCtx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func pinnedShard(workerIdx int) *int {
	if !shardSet {
		return nil
	}
	s := shardIDFlag + workerIdx
	return &s
}

func parseTargetDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --target-date %q: %w", s, err)
	}
	return t, nil
}

func resolveHeadless(flag, envOverride string) bool {
	switch envOverride {
	case "true":
		return true
	case "false":
		return false
	}
	switch flag {
	case "true":
		return true
	case "false":
		return false
	default: // "auto"
		return true
	}
}

// countingTask adapts a *worker.Worker to runner.TaskRunner while
// feeding every outcome into the shared metrics counters.
type countingTask struct {
	w        *worker.Worker
	counters *metrics.Counters
}

func (t countingTask) RunOnce(ctx context.Context, targetDate time.Time, shardID, maxDaily *int) (worker.TaskResult, error) {
	result, err := t.w.RunOnce(ctx, targetDate, shardID, maxDaily)
	if err != nil {
		return result, err
	}
	if !result.Claimed {
		t.counters.IncClaimEmpty()
		return result, nil
	}
	t.counters.IncClaimed()
	if result.Success {
		t.counters.IncSucceeded()
	} else {
		t.counters.IncFailed(string(result.Code))
		if result.Code == model.ErrBotDetected {
			t.counters.IncBotDetected()
		}
		if result.Code == model.ErrProhibitionDetected {
			t.counters.IncProhibited()
		}
	}
	return result, nil
}
