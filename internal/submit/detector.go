// Package submit implements the submit-button detector (spec.md §4.14):
// produces an ordered list of submit-button candidates, classifies each
// as confirmation or final-submit, and defines the narrowly-scoped
// disabled-button auto-enable fallback. Grounded on spec.md §4.14 and
// the Open Question decision in DESIGN.md preserving the safety boundary
// on the auto-enable fallback exactly as specified.
package submit

import (
	"strings"

	"github.com/form-sender/formrunner/internal/model"
)

// Kind classifies a detected submit button.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindFinal        Kind = "final"
	KindUnknown      Kind = "unknown"
)

var confirmationTokens = []string{"次へ", "確認", "confirm", "review", "check"}
var finalTokens = []string{"送信", "送る", "submit", "complete", "send", "申し込む", "登録する"}
var excludeTokens = []string{"back", "戻る", "cancel", "キャンセル", "reset", "リセット", "search", "検索"}

// Candidate is one discovered button, independent of any specific
// browser-automation library.
type Candidate struct {
	Selector      string
	Text          string
	Value         string
	Tag           string
	Type          string
	Visible       bool
	Enabled       bool
	FromAnalyzer  bool // analyzer-supplied candidates are prioritized over configured keyword selectors
}

// Classify decides whether a candidate is a confirmation step or the
// final submit action, per spec.md §4.14.
func Classify(c Candidate) Kind {
	text := strings.ToLower(c.Text + " " + c.Value)
	for _, tok := range finalTokens {
		if contains(text, c.Text, c.Value, tok) {
			return KindFinal
		}
	}
	for _, tok := range confirmationTokens {
		if contains(text, c.Text, c.Value, tok) {
			return KindConfirmation
		}
	}
	return KindUnknown
}

func contains(lowerJoined, rawText, rawValue, tok string) bool {
	if strings.Contains(lowerJoined, strings.ToLower(tok)) {
		return true
	}
	return strings.Contains(rawText, tok) || strings.Contains(rawValue, tok)
}

// Excluded reports whether the candidate should be dropped entirely by
// the configured negative-keyword list (back/cancel/reset/search).
func Excluded(c Candidate) bool {
	text := strings.ToLower(c.Text + " " + c.Value)
	for _, tok := range excludeTokens {
		if contains(text, c.Text, c.Value, tok) {
			return true
		}
	}
	return false
}

// Order ranks candidates for selection priority: analyzer-supplied
// candidates first (in their given order), then configured-keyword
// candidates, with excluded candidates dropped entirely.
func Order(candidates []Candidate) []Candidate {
	var analyzerFirst, rest []Candidate
	for _, c := range candidates {
		if Excluded(c) {
			continue
		}
		if c.FromAnalyzer {
			analyzerFirst = append(analyzerFirst, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(analyzerFirst, rest...)
}

// AutoEnableAllowed is the safety boundary on the last-resort
// force-enable fallback: only when no bot-protection markers are present
// (spec.md §4.14 and §9 Design Notes — this boundary must not be relaxed).
func AutoEnableAllowed(botProtectionPresent bool) bool {
	return !botProtectionPresent
}

// EnsureCheckedNearFinalButton takes the already-resolved FieldMapping
// for an "agree" checkbox found near the final-submit button, if any, and
// returns that checkbox's selector and true, or "" and false for nil. The
// executor's confirmation path does not call it.
func EnsureCheckedNearFinalButton(nearbyCheckbox *model.FieldMapping) (selector string, shouldCheck bool) {
	if nearbyCheckbox == nil {
		return "", false
	}
	return nearbyCheckbox.Element.Ref.Selector, true
}
