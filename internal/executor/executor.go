// Package executor implements the submission execution state machine
// (spec.md §4.15): IDLE -> ANALYZE -> FILL -> DETECT_BOT_PRE ->
// CLICK_SUBMIT -> (CONFIRMATION_PAGE | WAIT_RESULT) -> JUDGE ->
// (RETRY_INVALID -> CLICK_SUBMIT -> JUDGE) -> DONE. Grounded on
// original_source's submission orchestrator, which drives the same
// analyze/fill/click/judge/retry sequence around a single browser tab,
// and the teacher's internal/browser/session_manager.go click-fallback
// chain (scroll-into-view -> native -> JS -> requestSubmit -> focus+Enter).
package executor

import (
	"context"
	"fmt"

	"github.com/form-sender/formrunner/internal/analyzer"
	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/input"
	"github.com/form-sender/formrunner/internal/judge"
	"github.com/form-sender/formrunner/internal/logging"
	"github.com/form-sender/formrunner/internal/model"
	"github.com/form-sender/formrunner/internal/preprocess"
	"github.com/form-sender/formrunner/internal/prohibition"
	"github.com/form-sender/formrunner/internal/submit"

	"go.uber.org/zap"
)

// State names one node of the executor's state machine, recorded for
// diagnostics and tests; control flow itself is driven by Go calls, not
// a table, matching the size of the machine (a dozen states, not a
// generic interpreter).
type State string

const (
	StateIdle               State = "IDLE"
	StateAnalyze            State = "ANALYZE"
	StateFill               State = "FILL"
	StateDetectBotPre       State = "DETECT_BOT_PRE"
	StateClickSubmit        State = "CLICK_SUBMIT"
	StateConfirmationPage   State = "CONFIRMATION_PAGE"
	StateWaitResult         State = "WAIT_RESULT"
	StateJudge              State = "JUDGE"
	StateRetryInvalid       State = "RETRY_INVALID"
	StateDone               State = "DONE"
)

// Browser is the minimal live-page surface the executor needs beyond
// input.Frame: extracting snapshots, clicking, waiting, and detecting
// bot protection. internal/browser's go-rod-backed type satisfies this.
type Browser interface {
	input.Frame

	ExtractFormSnapshot(ctx context.Context) (analyzer.FormSnapshot, error)
	TakeJudgeSnapshot(ctx context.Context) (judge.Snapshot, error)
	PageHTML(ctx context.Context) (string, error)
	FallbackProhibitionText(ctx context.Context) (string, error)
	ClickWithFallbacks(ctx context.Context, selector string) error
	WaitNetworkIdle(ctx context.Context) error
	BotProtectionDetected(ctx context.Context) (bool, error)
	VisibleErrorElements(ctx context.Context) ([]string, error)
	JSErrorIndicators(ctx context.Context) ([]string, error)
	ResponseStatuses(ctx context.Context) ([]int, error)
	RedirectURLs(ctx context.Context) ([]string, error)
	AcceptDialogOnce(ctx context.Context) error
}

// Outcome is the executor's terminal result (spec.md §4.15 DONE).
type Outcome struct {
	Success bool
	Code    model.ErrorCode
	Trace   model.JudgmentTrace
	Plan    model.Plan
	Retried bool
}

// Config carries executor-level tunables sourced from the worker config.
type Config struct {
	ProhibitionThresholds prohibition.EarlyAbortThresholds
	Settings              catalog.Settings
}

// Executor wires the analyzer, input handler, submit detector,
// prohibition detector, and success judge around one browser tab for
// exactly one company submission attempt.
type Executor struct {
	browser     Browser
	prohibition *prohibition.Detector
	cfg         Config
}

// New constructs an Executor bound to one live browser tab.
func New(browser Browser, prohibitionDetector *prohibition.Detector, cfg Config) *Executor {
	return &Executor{browser: browser, prohibition: prohibitionDetector, cfg: cfg}
}

// Run drives the full state machine for one client/targeting pair
// against the page already loaded in the executor's browser.
func (e *Executor) Run(ctx context.Context, client model.Client, subject, message string) Outcome {
	log := logging.For(logging.CategoryExecutor)

	// ANALYZE
	snap, err := e.browser.ExtractFormSnapshot(ctx)
	if err != nil {
		return Outcome{Success: false, Code: model.ErrAnalysisFailed}
	}

	result, err := analyzer.Analyze(snap, client, subject, message, e.cfg.Settings)
	if err != nil {
		return Outcome{Success: false, Code: model.ErrAnalysisFailed}
	}
	if !result.FormFound {
		return Outcome{Success: false, Code: model.ErrNoFormFound}
	}

	// Pre-submission prohibition check (spec.md §4.15 transition 1).
	html, _ := e.browser.PageHTML(ctx)
	fallbackText, _ := e.browser.FallbackProhibitionText(ctx)
	prohibitionResult := e.prohibition.Detect(html, fallbackText)
	if prohibition.ShouldAbort(prohibitionResult, e.cfg.ProhibitionThresholds) {
		log.Info("prohibition detected pre-submission", zap.String("level", prohibitionResult.Level.String()))
		return Outcome{Success: false, Code: model.ErrProhibitionDetected, Plan: result.Plan}
	}

	// Message-body requirement (spec.md §4.15 transition 2).
	if !preprocess.ShortCircuitsMessageRequirement(result.FormType) {
		if _, ok := result.Mapping[catalog.FieldMessageBody]; !ok {
			if countTextareas(snap.Elements) == 0 {
				return Outcome{Success: false, Code: model.ErrNoMessageArea, Plan: result.Plan}
			}
			return Outcome{Success: false, Code: model.ErrMapping, Plan: result.Plan}
		}
	}

	if len(result.Plan) == 0 {
		return Outcome{Success: false, Code: model.ErrNoFieldsFilled, Plan: result.Plan}
	}

	// FILL
	handler := input.New(e.browser)
	if err := handler.Fill(ctx, result.Plan); err != nil {
		log.Warn("fill failed", zap.Error(err))
		return Outcome{Success: false, Code: model.ErrRuleBasedError, Plan: result.Plan}
	}

	// DETECT_BOT_PRE
	botDetected, _ := e.browser.BotProtectionDetected(ctx)
	if botDetected {
		return Outcome{Success: false, Code: model.ErrBotDetected, Plan: result.Plan}
	}

	candidates := submitCandidates(result, snap)
	ordered := submit.Order(candidates)
	if len(ordered) == 0 {
		return Outcome{Success: false, Code: model.ErrRuleBasedError, Plan: result.Plan}
	}
	chosen := ordered[0]

	pre, err := e.browser.TakeJudgeSnapshot(ctx)
	if err != nil {
		return Outcome{Success: false, Code: model.ErrSystem, Plan: result.Plan}
	}

	// CLICK_SUBMIT
	if err := e.browser.ClickWithFallbacks(ctx, chosen.Selector); err != nil {
		return Outcome{Success: false, Code: model.ErrSubmissionError, Plan: result.Plan}
	}

	switch submit.Classify(chosen) {
	case submit.KindConfirmation:
		if err := e.confirmationPage(ctx, handler); err != nil {
			log.Warn("confirmation page handling failed", zap.Error(err))
		}
	default:
		_ = e.browser.WaitNetworkIdle(ctx)
	}

	trace := e.judgeNow(ctx, pre, prohibitionResult.Detected)

	if trace.Verdict.Success {
		return Outcome{Success: true, Code: "", Trace: trace, Plan: result.Plan}
	}

	// RETRY_INVALID — exactly one retry when the failure looks like an
	// unfilled-required-field problem rather than a hard rejection.
	if looksRetryable(trace) {
		if err := e.retryInvalid(ctx, handler, result.Plan); err == nil {
			if err := e.browser.ClickWithFallbacks(ctx, chosen.Selector); err == nil {
				_ = e.browser.WaitNetworkIdle(ctx)
				trace = e.judgeNow(ctx, pre, prohibitionResult.Detected)
				if trace.Verdict.Success {
					return Outcome{Success: true, Trace: trace, Plan: result.Plan, Retried: true}
				}
			}
		}
	}

	return Outcome{Success: false, Code: model.ErrSubmissionError, Trace: trace, Plan: result.Plan, Retried: true}
}

func (e *Executor) judgeNow(ctx context.Context, pre judge.Snapshot, prohibitionFired bool) model.JudgmentTrace {
	post, err := e.browser.TakeJudgeSnapshot(ctx)
	if err != nil {
		post = pre
	}
	visibleErrors, _ := e.browser.VisibleErrorElements(ctx)
	jsErrors, _ := e.browser.JSErrorIndicators(ctx)
	statuses, _ := e.browser.ResponseStatuses(ctx)
	redirects, _ := e.browser.RedirectURLs(ctx)
	bot, _ := e.browser.BotProtectionDetected(ctx)

	return judge.Judge(judge.Input{
		Pre:                       pre,
		Post:                      post,
		ProhibitionFiredPreSubmit: prohibitionFired,
		BotProtectionDetected:     bot,
		VisibleErrorElements:      visibleErrors,
		JSErrorIndicators:         jsErrors,
		ResponseStatuses:          statuses,
		RedirectURLs:              redirects,
	})
}

// confirmationPage implements spec.md §4.15's confirmation-path
// transition: wait for network idle, re-extract the page snapshot, pick
// the first non-excluded button classified as final-submit, click it with
// fallbacks, then call AcceptDialogOnce. It does not look for or check an
// "agree" checkbox near the button.
func (e *Executor) confirmationPage(ctx context.Context, handler *input.Handler) error {
	if err := e.browser.WaitNetworkIdle(ctx); err != nil {
		return err
	}

	snap, err := e.browser.ExtractFormSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("re-extract confirmation page: %w", err)
	}

	var finalCandidate *submit.Candidate
	for _, el := range snap.Elements {
		if el.Tag != "button" && !(el.Tag == "input" && (el.Type == "submit" || el.Type == "button")) {
			continue
		}
		cand := submit.Candidate{
			Selector: el.Ref.Selector,
			Text:     el.AssociatedText,
			Visible:  el.Visible,
			Enabled:  el.Enabled,
			Tag:      el.Tag,
			Type:     el.Type,
		}
		if submit.Excluded(cand) {
			continue
		}
		if submit.Classify(cand) == submit.KindFinal {
			c := cand
			finalCandidate = &c
			break
		}
	}
	if finalCandidate == nil {
		return fmt.Errorf("no final-submit button found on confirmation page")
	}

	if err := e.browser.ClickWithFallbacks(ctx, finalCandidate.Selector); err != nil {
		return err
	}
	return e.browser.AcceptDialogOnce(ctx)
}

// retryInvalid applies spec.md §4.15's single-retry rule: every plan entry
// whose selector is not in the initially-filled set is filled again with
// its planned value. The required flag is not checked, no safe default is
// chosen per element kind, and elements outside the plan are not touched.
func (e *Executor) retryInvalid(ctx context.Context, handler *input.Handler, plan model.Plan) error {
	retried := false
	for _, assignment := range plan {
		if handler.InitiallyFilled[assignment.Selector] {
			continue
		}
		if err := handler.FillOne(ctx, assignment); err == nil {
			retried = true
		}
	}
	if !retried {
		return fmt.Errorf("nothing to retry")
	}
	return nil
}

// looksRetryable reports whether a failed judgment's stage suggests an
// unfilled-required-field problem worth one retry, rather than a hard
// rejection (prohibition, bot, or a confirmed error-family match).
func looksRetryable(trace model.JudgmentTrace) bool {
	switch trace.Verdict.Stage {
	case model.StageProhibition, model.StageErrorProbe:
		return false
	default:
		return !trace.Verdict.Success
	}
}

func countTextareas(elements []model.FormElement) int {
	n := 0
	for _, el := range elements {
		if el.Tag == "textarea" {
			n++
		}
	}
	return n
}

func submitCandidates(result analyzer.Result, snap analyzer.FormSnapshot) []submit.Candidate {
	var out []submit.Candidate
	for _, el := range snap.Elements {
		if el.Tag != "button" && !(el.Tag == "input" && (el.Type == "submit" || el.Type == "button")) {
			continue
		}
		out = append(out, submit.Candidate{
			Selector:     el.Ref.Selector,
			Text:         el.AssociatedText,
			Visible:      el.Visible,
			Enabled:      el.Enabled,
			Tag:          el.Tag,
			Type:         el.Type,
			FromAnalyzer: true,
		})
	}
	return out
}
