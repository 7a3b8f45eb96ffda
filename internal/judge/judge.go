// Package judge implements the six-stage success judge (spec.md §4.16):
// a pre-submission prohibition gate, an early-failure gate (bot
// protection, visible errors, a strict text gate), then six ordered
// stages (URL change, success message, form disappearance, sibling
// analysis, error-pattern probe, final fallback), each recording matched
// patterns and duration into a JudgmentTrace. Grounded on spec.md §4.16;
// the stage ordering and confidence ranges are taken verbatim since
// spec.md is fully explicit about them.
package judge

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/form-sender/formrunner/internal/model"
)

// Snapshot is a point-in-time read of the page, taken both before
// submission (pre) and after (post). The browser layer is responsible
// for populating it from the live page/DOM.
type Snapshot struct {
	URL          string
	BodyText     string
	FormCount    int
	InputCount   int
	VisibleSubmitButtonCount int
	Title        string
}

// Input is everything the judge needs for one evaluation.
type Input struct {
	Pre  Snapshot
	Post Snapshot

	ProhibitionFiredPreSubmit bool

	BotProtectionDetected bool
	VisibleErrorElements  []string // text content of .error/[aria-invalid=true]/[role=alert]/etc.
	JSErrorIndicators     []string

	ResponseStatuses []int  // HTTP statuses observed during/after submission
	RedirectURLs     []string

	SuccessIndicators []string // config-driven extra success phrases
}

// successPatterns is the regex catalog for stage 2 (spec.md §4.16).
var successPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ありがとうございました`),
	regexp.MustCompile(`(?i)送信(が)?完了`),
	regexp.MustCompile(`(?i)受け付けました`),
	regexp.MustCompile(`(?i)thank you`),
	regexp.MustCompile(`(?i)submission (received|complete)`),
	regexp.MustCompile(`(?i)successfully (sent|submitted)`),
}

var successContainerClasses = []string{"success", "thanks", "complete", "done", "confirm-complete"}

var urlSuccessTokens = []string{"thanks", "complete", "confirm", "success", "done"}

var failureRequiredPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)必須項目`),
	regexp.MustCompile(`(?i)入力してください`),
	regexp.MustCompile(`(?i)this field is required`),
}
var failureInvalidPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)形式が正しくありません`),
	regexp.MustCompile(`(?i)invalid (format|input|email)`),
}
var failureRetryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)もう一度`),
	regexp.MustCompile(`(?i)再度お試し`),
	regexp.MustCompile(`(?i)please try again`),
}
var failureBotPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)recaptcha`),
	regexp.MustCompile(`(?i)cloudflare`),
	regexp.MustCompile(`(?i)bot と判定`),
}

var errorFamilies = map[string][]*regexp.Regexp{
	"recaptcha":    failureBotPatterns,
	"solicitation": {regexp.MustCompile(`(?i)営業.{0,6}お断り`), regexp.MustCompile(`(?i)セールス.{0,6}お断り`)},
	"email_format": failureInvalidPatterns,
	"required":     failureRequiredPatterns,
	"system":       {regexp.MustCompile(`(?i)system error`), regexp.MustCompile(`(?i)システムエラー`)},
	"retry":        failureRetryPatterns,
}

// Judge runs all stages in order and returns the full trace.
func Judge(in Input) model.JudgmentTrace {
	trace := model.JudgmentTrace{Metrics: map[string]float64{}}

	if in.ProhibitionFiredPreSubmit {
		trace.Add(model.StageTrace{Stage: model.StageProhibition, Name: "prohibition_pre_submit", Result: "failure", Confidence: 1.0})
		trace.Verdict = model.Verdict{Success: false, Stage: model.StageProhibition, Confidence: 1.0, Reason: "PROHIBITION_DETECTED"}
		return trace
	}

	if v, st, ok := earlyFailureGate(in); ok {
		trace.Add(st)
		trace.Verdict = v
		return trace
	}

	if v, st, ok := stageURLChange(in); ok {
		trace.Add(st)
		trace.Verdict = v
		return trace
	}
	if v, st, ok := stageSuccessMessage(in); ok {
		trace.Add(st)
		trace.Verdict = v
		return trace
	}
	if v, st, ok := stageFormGone(in); ok {
		trace.Add(st)
		trace.Verdict = v
		return trace
	}
	if v, st, ok := stageSiblings(in); ok {
		trace.Add(st)
		trace.Verdict = v
		return trace
	}
	if v, st, ok := stageErrorProbe(in); ok {
		trace.Add(st)
		trace.Verdict = v
		return trace
	}

	v, st := stageFinalFallback(in)
	trace.Add(st)
	trace.Verdict = v
	return trace
}

func matchAny(patterns []*regexp.Regexp, text string) []string {
	var matched []string
	for _, p := range patterns {
		if p.MatchString(text) {
			matched = append(matched, p.String())
		}
	}
	return matched
}

// earlyFailureGate implements spec.md §4.16 stage 0.5: strict bot
// detection and visible-error short-circuit, plus a strict text gate
// requiring ≥2 failure categories with no strong success phrases and a
// non-success URL.
func earlyFailureGate(in Input) (model.Verdict, model.StageTrace, bool) {
	start := time.Now()
	if in.BotProtectionDetected {
		return model.Verdict{Success: false, Stage: model.StageEarlyFailure, Confidence: 0.9, Reason: "BOT_DETECTED"},
			model.StageTrace{Stage: model.StageEarlyFailure, Name: "early_failure_bot", Result: "failure", Confidence: 0.9, Start: start, End: time.Now()}, true
	}
	if len(in.VisibleErrorElements) > 0 {
		return model.Verdict{Success: false, Stage: model.StageEarlyFailure, Confidence: 0.8, Reason: "VALIDATION_FORMAT"},
			model.StageTrace{Stage: model.StageEarlyFailure, Name: "early_failure_visible_error", Result: "failure", Confidence: 0.8, MatchedPatterns: in.VisibleErrorElements, Start: start, End: time.Now()}, true
	}

	categories := 0
	var matched []string
	for _, fam := range [][]*regexp.Regexp{failureRequiredPatterns, failureInvalidPatterns, failureRetryPatterns, failureBotPatterns} {
		m := matchAny(fam, in.Post.BodyText)
		if len(m) > 0 {
			categories++
			matched = append(matched, m...)
		}
	}
	if categories >= 2 && len(matchAny(successPatterns, in.Post.BodyText)) == 0 && !urlIndicatesSuccess(in.Pre.URL, in.Post.URL) {
		return model.Verdict{Success: false, Stage: model.StageEarlyFailure, Confidence: 0.78, Reason: "VALIDATION_FORMAT"},
			model.StageTrace{Stage: model.StageEarlyFailure, Name: "early_failure_text_gate", Result: "failure", Confidence: 0.78, MatchedPatterns: matched, Start: start, End: time.Now()}, true
	}
	return model.Verdict{}, model.StageTrace{}, false
}

func urlIndicatesSuccess(preURL, postURL string) bool {
	lower := strings.ToLower(postURL)
	for _, tok := range urlSuccessTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// stageURLChange is stage 1: pass only on path change; query/hash-only
// changes do not pass (spec.md §4.16).
func stageURLChange(in Input) (model.Verdict, model.StageTrace, bool) {
	start := time.Now()
	preU, errPre := url.Parse(in.Pre.URL)
	postU, errPost := url.Parse(in.Post.URL)
	if errPre != nil || errPost != nil || preU.Path == postU.Path {
		return model.Verdict{}, model.StageTrace{Stage: model.StageURLChange, Name: "url_change", Result: "continue", Start: start, End: time.Now()}, false
	}

	confidence := 0.85
	if urlIndicatesSuccess(in.Pre.URL, in.Post.URL) {
		confidence = 0.95
	}

	if in.BotProtectionDetected || len(in.VisibleErrorElements) > 0 {
		return model.Verdict{}, model.StageTrace{Stage: model.StageURLChange, Name: "url_change_guard_failed", Result: "continue", Start: start, End: time.Now()}, false
	}

	return model.Verdict{Success: true, Stage: model.StageURLChange, Confidence: confidence, Reason: "URL_CHANGED"},
		model.StageTrace{Stage: model.StageURLChange, Name: "url_change", Result: "success", Confidence: confidence, Start: start, End: time.Now()}, true
}

// stageSuccessMessage is stage 2.
func stageSuccessMessage(in Input) (model.Verdict, model.StageTrace, bool) {
	start := time.Now()
	matched := matchAny(successPatterns, in.Post.BodyText)
	matched = append(matched, matchContainerClasses(in.Post.BodyText)...)
	matched = append(matched, matchConfigured(in.SuccessIndicators, in.Post.BodyText)...)

	if len(matched) == 0 {
		return model.Verdict{}, model.StageTrace{Stage: model.StageSuccessMsg, Name: "success_message", Result: "continue", Start: start, End: time.Now()}, false
	}

	confidence := 0.85 + 0.02*float64(len(matched))
	if confidence > 0.95 {
		confidence = 0.95
	}
	return model.Verdict{Success: true, Stage: model.StageSuccessMsg, Confidence: confidence, Reason: "SUCCESS_MESSAGE"},
		model.StageTrace{Stage: model.StageSuccessMsg, Name: "success_message", Result: "success", Confidence: confidence, MatchedPatterns: matched, Start: start, End: time.Now()}, true
}

func matchContainerClasses(body string) []string {
	var matched []string
	lower := strings.ToLower(body)
	for _, c := range successContainerClasses {
		if strings.Contains(lower, c) {
			matched = append(matched, c)
		}
	}
	return matched
}

func matchConfigured(indicators []string, body string) []string {
	var matched []string
	for _, ind := range indicators {
		if ind != "" && strings.Contains(body, ind) {
			matched = append(matched, ind)
		}
	}
	return matched
}

// stageFormGone is stage 3.
func stageFormGone(in Input) (model.Verdict, model.StageTrace, bool) {
	start := time.Now()

	formsGone := in.Post.FormCount == 0
	inputsReduced := in.Pre.InputCount > 0 && float64(in.Post.InputCount) <= float64(in.Pre.InputCount)*0.5
	noSubmitButtons := in.Post.VisibleSubmitButtonCount == 0

	if !formsGone && !inputsReduced && !noSubmitButtons {
		return model.Verdict{}, model.StageTrace{Stage: model.StageFormGone, Name: "form_gone", Result: "continue", Start: start, End: time.Now()}, false
	}

	confidence := 0.75
	if formsGone {
		confidence = 0.85
	}
	return model.Verdict{Success: true, Stage: model.StageFormGone, Confidence: confidence, Reason: "FORM_DISAPPEARED"},
		model.StageTrace{Stage: model.StageFormGone, Name: "form_gone", Result: "success", Confidence: confidence, Start: start, End: time.Now()}, true
}

// stageSiblings is stage 4: new success-classed elements near original
// form containers, or mass-disabled controls. Since that requires live
// DOM proximity data the browser layer hasn't modeled generically here,
// this stage consults the same container-class signal as stage 2 scoped
// to elements that appeared only in the post snapshot.
func stageSiblings(in Input) (model.Verdict, model.StageTrace, bool) {
	start := time.Now()
	newText := strings.TrimPrefix(in.Post.BodyText, in.Pre.BodyText)
	matched := matchContainerClasses(newText)
	if len(matched) == 0 {
		return model.Verdict{}, model.StageTrace{Stage: model.StageSiblings, Name: "siblings", Result: "continue", Start: start, End: time.Now()}, false
	}
	return model.Verdict{Success: true, Stage: model.StageSiblings, Confidence: 0.78, Reason: "SIBLING_SUCCESS_ELEMENT"},
		model.StageTrace{Stage: model.StageSiblings, Name: "siblings", Result: "success", Confidence: 0.78, MatchedPatterns: matched, Start: start, End: time.Now()}, true
}

// stageErrorProbe is stage 5.
func stageErrorProbe(in Input) (model.Verdict, model.StageTrace, bool) {
	start := time.Now()
	for family, patterns := range errorFamilies {
		if m := matchAny(patterns, in.Post.BodyText); len(m) > 0 {
			return model.Verdict{Success: false, Stage: model.StageErrorProbe, Confidence: 0.72, Reason: family},
				model.StageTrace{Stage: model.StageErrorProbe, Name: "error_probe", Result: "failure", Confidence: 0.72, MatchedPatterns: m, Start: start, End: time.Now()}, true
		}
	}
	return model.Verdict{}, model.StageTrace{Stage: model.StageErrorProbe, Name: "error_probe", Result: "continue", Start: start, End: time.Now()}, false
}

// stageFinalFallback is stage 6: the last stage, always produces a
// verdict.
func stageFinalFallback(in Input) (model.Verdict, model.StageTrace) {
	start := time.Now()
	failureIndicators := 0

	for _, s := range in.ResponseStatuses {
		if s >= 400 || (s >= 300 && s < 400) {
			failureIndicators++
			break
		}
	}
	lowerTitle := strings.ToLower(in.Post.Title)
	for _, tok := range []string{"error", "404", "500", "forbidden"} {
		if strings.Contains(lowerTitle, tok) {
			failureIndicators++
			break
		}
	}
	if len(in.VisibleErrorElements) > 0 {
		failureIndicators++
	}
	if len(in.JSErrorIndicators) > 0 {
		failureIndicators++
	}

	if failureIndicators >= 2 {
		return model.Verdict{Success: false, Stage: model.StageFinalFallback, Confidence: 0.68, Reason: "SYSTEM"},
			model.StageTrace{Stage: model.StageFinalFallback, Name: "final_fallback", Result: "failure", Confidence: 0.68, Start: start, End: time.Now()}
	}

	confidence := 0.65
	if in.Post.URL != in.Pre.URL {
		confidence = 0.70
	}
	return model.Verdict{Success: true, Stage: model.StageFinalFallback, Confidence: confidence, Reason: "FALLBACK_SUCCESS"},
		model.StageTrace{Stage: model.StageFinalFallback, Name: "final_fallback", Result: "success", Confidence: confidence, Start: start, End: time.Now()}
}
