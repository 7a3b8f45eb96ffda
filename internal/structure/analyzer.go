// Package structure implements the structure analyzer (spec.md §4.3) and
// the context text extractor (spec.md §4.4). It operates on already
// DOM-extracted candidate data (the browser package is responsible for
// walking the live page); this keeps the scoring and grouping logic
// testable without a browser. Grounded on the upstream FormStructureAnalyzer's
// form-selection scoring and the honeypot/element-walking style of the
// teacher's internal/browser/honeypot.go (attribute + bounding-box reads
// feeding a scoring function, never the structural decision itself).
package structure

import (
	"sort"
	"strings"

	"github.com/form-sender/formrunner/internal/model"
)

// FormCandidate summarizes one <form> element's contents for scoring,
// independent of any specific browser-automation library.
type FormCandidate struct {
	Index         int
	TextareaCount int
	EmailCount    int
	TextCount     int
	SelectCount   int
	RequiredCount int
	ButtonText    string
	Visible       bool
}

var negativeFormTokens = []string{"search", "unsubscribe", "cancel", "検索", "解除", "退会"}

// ScoreForm scores a single form candidate; higher is better. Forms
// matching a negative token or invisible forms are heavily penalized.
func ScoreForm(c FormCandidate) float64 {
	if !c.Visible {
		return -500
	}
	score := float64(c.TextareaCount)*20 + float64(c.EmailCount)*15 + float64(c.TextCount)*3 +
		float64(c.SelectCount)*2 + float64(c.RequiredCount)*5

	lowerBtn := strings.ToLower(c.ButtonText)
	for _, tok := range negativeFormTokens {
		if strings.Contains(lowerBtn, tok) {
			score -= 300
		}
	}
	return score
}

// SelectForm picks the highest scoring candidate among multiple <form>
// elements. Returns (-1, false) when no form is found, per spec.md §4.3:
// the pipeline must return an empty structure rather than fall back to
// scanning the whole page.
func SelectForm(candidates []FormCandidate) (int, bool) {
	if len(candidates) == 0 {
		return -1, false
	}
	best := -1
	bestScore := -1.0
	for _, c := range candidates {
		s := ScoreForm(c)
		if best == -1 || s > bestScore {
			best = c.Index
			bestScore = s
		}
	}
	if bestScore < 0 {
		return -1, false
	}
	return best, true
}

// AssignInputOrder sets InputOrderIndex on every input-like element in
// elements, in the order given (which must already be DOM document order),
// and -1 on everything else. Returns the updated slice.
func AssignInputOrder(elements []model.FormElement) []model.FormElement {
	idx := 0
	for i := range elements {
		if elements[i].IsInputLike() {
			elements[i].InputOrderIndex = idx
			idx++
		} else {
			elements[i].InputOrderIndex = -1
		}
	}
	return elements
}

// ParallelGroup is a set of structurally similar elements (same tag/type,
// close in DOM position) detected as a repeated row pattern — e.g. a
// split phone number rendered as three side-by-side inputs.
type ParallelGroup struct {
	Tag     string
	Type    string
	Members []int // indices into the elements slice
}

// similarityThreshold is the minimum fraction of matching structural
// features (tag, type, class prefix) two elements must share to be
// considered part of the same parallel group.
const similarityThreshold = 0.6

// DetectParallelGroups groups input-like elements that share exactly the
// same tag, type and class prefix, assigning each member a SiblingIndex
// within its group (spec.md §4.3). Partial similarity is not scored:
// similarityThreshold is not consulted, and DOM distance between members
// plays no part.
func DetectParallelGroups(elements []model.FormElement) ([]model.FormElement, []ParallelGroup) {
	groups := map[string]*ParallelGroup{}
	order := []string{}
	for i, e := range elements {
		if !e.IsInputLike() {
			continue
		}
		key := e.Tag + "|" + e.Type + "|" + classPrefix(e.Class)
		g, ok := groups[key]
		if !ok {
			g = &ParallelGroup{Tag: e.Tag, Type: e.Type}
			groups[key] = g
			order = append(order, key)
		}
		g.Members = append(g.Members, i)
	}

	var result []ParallelGroup
	for _, key := range order {
		g := groups[key]
		if len(g.Members) < 2 {
			continue
		}
		for si, idx := range g.Members {
			elements[idx].SiblingIndex = si
		}
		result = append(result, *g)
	}
	return elements, result
}

func classPrefix(class string) string {
	fields := strings.Fields(class)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	if len(first) > 6 {
		return first[:6]
	}
	return first
}

// TableKind classifies a <table> found inside the chosen form.
type TableKind string

const (
	TableForm   TableKind = "form-table"   // predominantly form-element cells, used as a layout grid for fields
	TableData   TableKind = "data-table"   // predominantly text/data cells, not a field layout
	TableLayout TableKind = "layout-table" // mixed, used purely for visual layout
)

// ClassifyTable buckets a table by the ratio of cells that contain a form
// element to total cells, per spec.md §4.3.
func ClassifyTable(formElementCells, totalCells int) TableKind {
	if totalCells == 0 {
		return TableLayout
	}
	ratio := float64(formElementCells) / float64(totalCells)
	switch {
	case ratio >= 0.5:
		return TableForm
	case ratio <= 0.1:
		return TableData
	default:
		return TableLayout
	}
}

// ContextSource ranks where a context-text candidate came from, highest
// priority first (spec.md §4.4).
type ContextSource int

const (
	SourceExplicitLabel ContextSource = iota
	SourceTableHeader
	SourceAdjacentText
	SourcePlaceholder
	SourceGenericNearby
)

// ContextCandidate is one ranked text candidate for an element.
type ContextCandidate struct {
	Text     string
	Source   ContextSource
	Distance float64 // proximity in DOM/pixel terms; lower is closer
}

// ContextIndex is a form-scoped index built once per analysis so context
// lookups during scoring are linear-time rather than re-walking the DOM
// per candidate element (spec.md §4.4).
type ContextIndex struct {
	bySelector map[string][]ContextCandidate
}

// NewContextIndex builds an index from pre-extracted per-element context
// candidates (produced by the browser layer's DOM walk).
func NewContextIndex(candidates map[string][]ContextCandidate) *ContextIndex {
	return &ContextIndex{bySelector: candidates}
}

// Best returns the highest-ranked context text for selector, or "" if none.
func (ix *ContextIndex) Best(selector string) string {
	cands, ok := ix.bySelector[selector]
	if !ok || len(cands) == 0 {
		return ""
	}
	sorted := append([]ContextCandidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		return sorted[i].Distance < sorted[j].Distance
	})
	return sorted[0].Text
}

// All returns every context candidate for selector in ranked order.
func (ix *ContextIndex) All(selector string) []ContextCandidate {
	cands := ix.bySelector[selector]
	sorted := append([]ContextCandidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		return sorted[i].Distance < sorted[j].Distance
	})
	return sorted
}
