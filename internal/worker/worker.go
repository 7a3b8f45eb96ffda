// Package worker implements the per-task worker runtime (spec.md
// §4.19): business-hours gating, atomic queue claim, company
// blacklist/name-policy skip, daily-duplicate fail-closed guard,
// analyzer+executor invocation, centrally-built classify_detail,
// mark-done, company-row mutation on certain outcomes, and
// lifecycle-only logging. Grounded on the teacher's per-task dispatch
// loop shape (claim -> guard checks -> do work -> report -> clear
// state) even though the teacher's own claim source was an in-process
// queue rather than a remote RPC.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/form-sender/formrunner/internal/executor"
	"github.com/form-sender/formrunner/internal/logging"
	"github.com/form-sender/formrunner/internal/model"
	"github.com/form-sender/formrunner/internal/prohibition"
	"github.com/form-sender/formrunner/internal/queue"
)

// QueueClient is the subset of *queue.Client the worker runtime calls,
// narrowed to an interface so tests can substitute a fake RPC layer.
type QueueClient interface {
	ClaimNextBatch(ctx context.Context, targetDate time.Time, targetingID int64, runID string, shardID *int, maxDaily *int) (model.ClaimResult, bool, error)
	MarkDone(ctx context.Context, a queue.MarkDoneArgs) error
}

// CompanyStore is the out-of-scope company-data collaborator (spec.md
// §1): fetches a company row and applies the two mutations the worker
// runtime triggers.
type CompanyStore interface {
	FetchCompany(ctx context.Context, companyID int64) (model.Company, error)
	SetProhibitionDetected(ctx context.Context, companyID int64) error
	SetBlacklisted(ctx context.Context, companyID int64) error
	HasSubmissionToday(ctx context.Context, targetingID, companyID int64, day time.Time) (bool, error)
}

// BrowserSession is what the worker needs from a worker-owned browser
// context: navigation and cookie clearing between companies, plus the
// full executor.Browser surface so the worker can drive an Executor
// directly over it.
type BrowserSession interface {
	executor.Browser
	Navigate(ctx context.Context, url string) error
	ClearCookies() error
}

// NamePolicy reports whether a company name matches a configured skip
// keyword (spec.md §4.19), checked before any DOM work.
type NamePolicy struct {
	SkipKeywords []string
}

func (p NamePolicy) Skips(name string) bool {
	for _, kw := range p.SkipKeywords {
		if kw != "" && containsFold(name, kw) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return len(substr) == 0 || indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	if len(substr) > len(s) {
		return -1
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if equalFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Worker runs one claim-to-mark-done task at a time against a single
// owned browser session.
type Worker struct {
	ID          int
	RunID       string
	Queue       QueueClient
	Companies   CompanyStore
	Browser     BrowserSession
	NamePolicy  NamePolicy
	ExecCfg     executor.Config
	Prohibition *prohibition.Detector
	TargetingID int64
	Targeting   model.Targeting
}

// TaskResult summarizes one RunOnce call for the runner's bookkeeping.
type TaskResult struct {
	Claimed bool
	Success bool
	Code    model.ErrorCode
}

// RunOnce executes exactly one claim-to-mark-done cycle (spec.md
// §4.19). A claim miss (no work available) returns TaskResult{Claimed:
// false} with a nil error so the runner's backoff loop can distinguish
// "empty queue" from "failure".
func (w *Worker) RunOnce(ctx context.Context, targetDate time.Time, shardID, maxDaily *int) (TaskResult, error) {
	if !w.Targeting.BusinessHours.Contains(time.Now()) {
		return TaskResult{Claimed: false}, nil
	}

	claim, ok, err := w.Queue.ClaimNextBatch(ctx, targetDate, w.TargetingID, w.RunID, shardID, maxDaily)
	if err != nil {
		return TaskResult{}, fmt.Errorf("claim: %w", err)
	}
	if !ok {
		return TaskResult{Claimed: false}, nil
	}

	logging.ProcessStart(claim.CompanyID, w.TargetingID, w.RunID)
	result, code := w.process(ctx, targetDate, claim.CompanyID)
	logging.ProcessDone(claim.CompanyID, w.TargetingID, w.RunID, result, string(code))

	_ = w.Browser.ClearCookies()

	return TaskResult{Claimed: true, Success: result, Code: code}, nil
}

// RunCompany processes exactly one company, bypassing the queue claim
// entirely (spec.md §6's --company-id mode). It still writes mark-done
// and clears cookies afterward, exactly like a claimed task.
func (w *Worker) RunCompany(ctx context.Context, targetDate time.Time, companyID int64) (TaskResult, error) {
	logging.ProcessStart(companyID, w.TargetingID, w.RunID)
	success, code := w.process(ctx, targetDate, companyID)
	logging.ProcessDone(companyID, w.TargetingID, w.RunID, success, string(code))

	_ = w.Browser.ClearCookies()

	return TaskResult{Claimed: true, Success: success, Code: code}, nil
}

func (w *Worker) process(ctx context.Context, targetDate time.Time, companyID int64) (bool, model.ErrorCode) {
	log := logging.For(logging.CategoryWorker)

	company, err := w.Companies.FetchCompany(ctx, companyID)
	if err != nil {
		w.finish(ctx, targetDate, companyID, false, model.ErrSystem, model.Evidence{})
		return false, model.ErrSystem
	}
	if company.Blacklisted {
		w.finish(ctx, targetDate, companyID, false, model.ErrSkippedByNamePolicy, model.Evidence{})
		return false, model.ErrSkippedByNamePolicy
	}
	if w.NamePolicy.Skips(company.Name) {
		w.finish(ctx, targetDate, companyID, false, model.ErrSkippedByNamePolicy, model.Evidence{})
		return false, model.ErrSkippedByNamePolicy
	}
	if !company.HasFormURL() {
		w.finish(ctx, targetDate, companyID, false, model.ErrNoFormURL, model.Evidence{})
		return false, model.ErrNoFormURL
	}

	alreadySent, err := w.Companies.HasSubmissionToday(ctx, w.TargetingID, companyID, targetDate)
	if err != nil || alreadySent {
		// Fail closed: requeue belongs to the caller's stale-requeue sweep;
		// here we simply decline to double-submit.
		w.finish(ctx, targetDate, companyID, false, model.ErrSkippedAlreadySent, model.Evidence{})
		return false, model.ErrSkippedAlreadySent
	}

	if err := w.Browser.Navigate(ctx, company.FormURL); err != nil {
		w.finish(ctx, targetDate, companyID, false, model.ErrAccess, model.Evidence{})
		return false, model.ErrAccess
	}

	exec := executor.New(w.Browser, w.Prohibition, w.ExecCfg)
	outcome := exec.Run(ctx, w.Targeting.Client, w.Targeting.Subject, w.Targeting.Message)

	evidence := evidenceFromOutcome(outcome)

	switch outcome.Code {
	case model.ErrProhibitionDetected:
		if err := w.Companies.SetProhibitionDetected(ctx, companyID); err != nil {
			log.Warn("failed to set prohibition_detected", zap.Int64("company_id", companyID), zap.Error(err))
		}
	case model.ErrNoMessageArea:
		if err := w.Companies.SetBlacklisted(ctx, companyID); err != nil {
			log.Warn("failed to blacklist company", zap.Int64("company_id", companyID), zap.Error(err))
		}
	}

	w.finish(ctx, targetDate, companyID, outcome.Success, outcome.Code, evidence)
	return outcome.Success, outcome.Code
}

func (w *Worker) finish(ctx context.Context, targetDate time.Time, companyID int64, success bool, code model.ErrorCode, evidence model.Evidence) {
	confidence := evidence.JudgeConfidence
	detail := model.BuildClassifyDetail(code, confidence, evidence)

	detailJSON, _ := json.Marshal(detail)

	err := w.Queue.MarkDone(ctx, queue.MarkDoneArgs{
		TargetDate:     targetDate,
		TargetingID:    w.TargetingID,
		CompanyID:      companyID,
		Success:        success,
		ErrorType:      string(code),
		ClassifyDetail: detailJSON,
		BotProtection:  code == model.ErrBotDetected,
		SubmittedAt:    time.Now(),
		RunID:          w.RunID,
	})
	if err != nil {
		logging.For(logging.CategoryWorker).Warn("mark_done failed", zap.Int64("company_id", companyID), zap.Error(err))
	}
}

func evidenceFromOutcome(o executor.Outcome) model.Evidence {
	ev := model.Evidence{
		JudgeStageID:    o.Trace.Verdict.Stage,
		JudgeConfidence: o.Trace.Verdict.Confidence,
	}
	for _, st := range o.Trace.Stages {
		if st.Stage == o.Trace.Verdict.Stage {
			ev.JudgeStageName = st.Name
		}
	}
	return ev
}
