// Package preprocess implements the pre-processor (spec.md §4.8):
// progressive scroll decisions, unified-field suppression when split
// evidence is present, required-field analysis, and form-type
// classification. Grounded on spec.md §4.8; weighted form-type scoring
// mirrors the element-count/token scoring style used throughout the
// catalog-driven scorer.
package preprocess

import (
	"strings"

	"github.com/form-sender/formrunner/internal/model"
)

// NeedsScroll reports whether the page should be progressively scrolled
// before analysis, per spec.md §4.8: only when the page exposes many
// elements or is unusually tall.
func NeedsScroll(elementCount int, pageHeight, viewportHeight float64) bool {
	if elementCount > 40 {
		return true
	}
	return pageHeight > viewportHeight*2.5
}

// SuppressUnifiedIfSplitPresent drops a unified full-name/kana mapping
// when split evidence for the same logical field already exists,
// returning the (possibly modified) mapping.
func SuppressUnifiedIfSplitPresent(mapping model.Mapping, hasSplitName, hasSplitKana bool) model.Mapping {
	if hasSplitName {
		delete(mapping, "full_name")
	}
	if hasSplitKana {
		delete(mapping, "full_name_kana")
	}
	return mapping
}

// RequiredFieldAnalysis decides, given the set of elements found in the
// form, whether any carry an explicit required marker. If none do, every
// core field should be treated as required (spec.md §4.8).
func RequiredFieldAnalysis(elements []model.FormElement) (anyRequiredMarked bool) {
	for _, e := range elements {
		if e.Required {
			return true
		}
	}
	return false
}

// CoreFieldsRequired returns whether core fields should be treated as
// required, given the result of RequiredFieldAnalysis.
func CoreFieldsRequired(anyRequiredMarked bool) bool {
	return !anyRequiredMarked
}

// FormType enumerates the classifications spec.md §4.8 names.
type FormType string

const (
	TypeContact   FormType = "contact"
	TypeSearch    FormType = "search"
	TypeNewsletter FormType = "newsletter"
	TypeOrder     FormType = "order"
	TypeFeedback  FormType = "feedback"
	TypeAuth      FormType = "auth"
	TypeOther     FormType = "other"
)

// typeScore accumulates weighted hits for each FormType from element
// counts and recognized tokens.
type typeScore map[FormType]float64

var typeTokens = map[FormType][]string{
	TypeContact:    {"お問い合わせ", "contact", "inquiry", "message", "メッセージ"},
	TypeSearch:     {"search", "検索", "キーワード"},
	TypeNewsletter: {"newsletter", "メルマガ", "subscribe", "配信登録"},
	TypeOrder:      {"order", "注文", "cart", "カート", "購入"},
	TypeFeedback:   {"feedback", "survey", "アンケート", "評価"},
	TypeAuth:       {"login", "ログイン", "password", "signin", "register", "サインイン"},
}

// Classify scores a form by weighted element counts and token hits,
// returning the best-fitting FormType (spec.md §4.8).
func Classify(textareaCount, emailCount, passwordCount int, tokenText string) FormType {
	scores := typeScore{}
	lower := strings.ToLower(tokenText)

	for typ, tokens := range typeTokens {
		for _, tok := range tokens {
			if strings.Contains(lower, strings.ToLower(tok)) || strings.Contains(tokenText, tok) {
				scores[typ] += 10
			}
		}
	}

	if textareaCount > 0 {
		scores[TypeContact] += 15
	}
	if emailCount > 0 {
		scores[TypeContact] += 5
	}
	if passwordCount > 0 {
		scores[TypeAuth] += 25
	}

	best := TypeOther
	bestScore := 0.0
	for typ, s := range scores {
		if s > bestScore {
			best = typ
			bestScore = s
		}
	}
	return best
}

// ShortCircuitsMessageRequirement reports whether validation should skip
// the "message body" requirement for non-contact form types (spec.md §4.8).
func ShortCircuitsMessageRequirement(t FormType) bool {
	return t != TypeContact
}
