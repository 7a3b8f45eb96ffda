// Package mapper implements the field mapper (spec.md §4.9) and the
// unmapped-element handler (spec.md §4.10). The mapper picks the best
// scoring candidate per canonical field subject to thresholds and
// exclusion/claim rules, then post-processes mappings (drop redundant
// unified/split pairs, prune suspect name mappings, correct swapped
// last/first, normalize kana vs hiragana, auto-promote postal pairs).
// The unmapped handler sweeps leftover elements for auto-handled
// assignments. Grounded on spec.md §4.9/§4.10.
package mapper

import (
	"strings"

	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/combine"
	"github.com/form-sender/formrunner/internal/model"
	"github.com/form-sender/formrunner/internal/scoring"
)

// Candidate pairs a FormElement with its score against one field.
type Candidate struct {
	Element model.FormElement
	Score   float64
	Detail  model.ScoreDetail
}

// Map picks, for each canonical field, the best-scoring unclaimed
// candidate that clears the field's threshold (spec.md §4.9).
func Map(perField map[string][]Candidate, settings catalog.Settings) model.Mapping {
	claimed := map[string]bool{} // by element selector
	result := model.Mapping{}

	for _, p := range catalog.Catalog {
		cands := perField[p.Name]
		var best *Candidate
		for i := range cands {
			c := &cands[i]
			if c.Score <= scoring.Excluded {
				continue
			}
			if claimed[c.Element.Ref.Selector] {
				continue
			}
			if !scoring.Accepts(c.Score, p, settings, len(cands)) {
				continue
			}
			if best == nil || c.Score > best.Score {
				best = c
			}
		}
		if best == nil {
			continue
		}
		claimed[best.Element.Ref.Selector] = true
		result[p.Name] = model.FieldMapping{
			FieldName:   p.Name,
			Element:     best.Element,
			Score:       best.Score,
			ScoreDetail: best.Detail,
			InputType:   inputType(best.Element),
			Required:    best.Element.Required,
			Variant:     model.VariantPrimary,
		}
	}

	return result
}

func inputType(e model.FormElement) string {
	if e.Tag == "input" {
		if e.Type == "" {
			return "text"
		}
		return e.Type
	}
	return e.Tag
}

// PostProcess applies spec.md §4.9's cleanup passes in order.
func PostProcess(mapping model.Mapping, elements []model.FormElement) model.Mapping {
	dropRedundantUnifiedOrSplit(mapping)
	pruneSuspectNames(mapping)
	correctSwappedNames(mapping)
	normalizeKanaHiragana(mapping)
	autoPromotePostalPair(mapping, elements)
	return mapping
}

func dropRedundantUnifiedOrSplit(mapping model.Mapping) {
	_, hasLast := mapping[catalog.FieldLastName]
	_, hasFirst := mapping[catalog.FieldFirstName]
	_, hasUnified := mapping[catalog.FieldFullName]
	if hasUnified && (hasLast || hasFirst) {
		delete(mapping, catalog.FieldLastName)
		delete(mapping, catalog.FieldFirstName)
	} else if !hasUnified && hasLast && hasFirst {
		// splits alone are fine; nothing to drop.
		_ = hasLast
	}

	_, hasLastKana := mapping[catalog.FieldLastNameKana]
	_, hasFirstKana := mapping[catalog.FieldFirstNameKana]
	_, hasUnifiedKana := mapping[catalog.FieldFullNameKana]
	if hasUnifiedKana && (hasLastKana || hasFirstKana) {
		delete(mapping, catalog.FieldLastNameKana)
		delete(mapping, catalog.FieldFirstNameKana)
	}
}

var suspectNameNegativeTokens = []string{"address", "住所", "building", "建物", "kana", "カナ", "postal", "郵便", "department", "部署"}

func pruneSuspectNames(mapping model.Mapping) {
	for _, field := range []string{catalog.FieldLastName, catalog.FieldFirstName, catalog.FieldFullName} {
		fm, ok := mapping[field]
		if !ok {
			continue
		}
		text := strings.ToLower(strings.Join(fm.ContextTexts, " ") + " " + fm.Element.LabelText + " " + fm.Element.Placeholder)
		for _, neg := range suspectNameNegativeTokens {
			if strings.Contains(text, strings.ToLower(neg)) {
				delete(mapping, field)
				break
			}
		}
	}
}

// correctSwappedNames detects "姓/First Name" style placeholder-label
// mismatches and swaps the last/first assignments accordingly.
func correctSwappedNames(mapping model.Mapping) {
	last, hasLast := mapping[catalog.FieldLastName]
	first, hasFirst := mapping[catalog.FieldFirstName]
	if !hasLast || !hasFirst {
		return
	}
	lastLooksFirst := looksLikeFirst(last.Element.Placeholder) || looksLikeFirst(last.Element.LabelText)
	firstLooksLast := looksLikeLast(first.Element.Placeholder) || looksLikeLast(first.Element.LabelText)
	if lastLooksFirst && firstLooksLast {
		last.FieldName, first.FieldName = catalog.FieldFirstName, catalog.FieldLastName
		mapping[catalog.FieldLastName] = first
		mapping[catalog.FieldFirstName] = last
	}
}

func looksLikeFirst(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "first") || strings.Contains(s, "名")
}

func looksLikeLast(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "last") || strings.Contains(s, "姓")
}

// normalizeKanaHiragana re-keys a kana mapping to the hiragana field (or
// vice versa) when its attributes/placeholder content indicate the
// opposite reading was actually detected.
func normalizeKanaHiragana(mapping model.Mapping) {
	if fm, ok := mapping[catalog.FieldLastNameKana]; ok {
		if isHiraganaCued(fm) {
			delete(mapping, catalog.FieldLastNameKana)
			fm.FieldName = catalog.FieldLastNameHiragana
			mapping[catalog.FieldLastNameHiragana] = fm
		}
	}
	if fm, ok := mapping[catalog.FieldFirstNameKana]; ok {
		if isHiraganaCued(fm) {
			delete(mapping, catalog.FieldFirstNameKana)
			fm.FieldName = catalog.FieldFirstNameHiragana
			mapping[catalog.FieldFirstNameHiragana] = fm
		}
	}
}

// isHiraganaCued reports whether a "kana"-class field's label/placeholder
// actually indicates hiragana, deferring to combine.DetectKanaKind so
// field-combination and field-mapping agree on the same cue set instead
// of each maintaining its own.
func isHiraganaCued(fm model.FieldMapping) bool {
	text := strings.Join(append(fm.ContextTexts, fm.Element.Placeholder, fm.Element.LabelText), " ")
	return combine.DetectKanaKind(text) == combine.KanaHiragana
}

// autoPromotePostalPair promotes two near-consecutive zip-like text
// inputs to postal-1/postal-2, only when at least one carries a required
// flag (spec.md §4.9/§8).
func autoPromotePostalPair(mapping model.Mapping, elements []model.FormElement) {
	if _, ok := mapping[catalog.FieldPostal1]; ok {
		return
	}
	if _, ok := mapping[catalog.FieldPostalUnified]; ok {
		return
	}

	var zipCandidates []model.FormElement
	for _, e := range elements {
		if e.Tag != "input" || (e.Type != "text" && e.Type != "") {
			continue
		}
		lower := strings.ToLower(e.Name + " " + e.ID + " " + e.Placeholder + " " + e.LabelText)
		if strings.Contains(lower, "zip") || strings.Contains(lower, "postal") || strings.Contains(e.Name, "郵便") {
			zipCandidates = append(zipCandidates, e)
		}
	}
	if len(zipCandidates) != 2 {
		return
	}
	a, b := zipCandidates[0], zipCandidates[1]
	if a.InputOrderIndex < 0 || b.InputOrderIndex < 0 {
		return
	}
	diff := b.InputOrderIndex - a.InputOrderIndex
	if diff < 0 {
		diff = -diff
	}
	if diff > 2 {
		return
	}
	if !a.Required && !b.Required {
		return
	}
	mapping[catalog.FieldPostal1] = model.FieldMapping{FieldName: catalog.FieldPostal1, Element: a, InputType: "text", Required: a.Required}
	mapping[catalog.FieldPostal2] = model.FieldMapping{FieldName: catalog.FieldPostal2, Element: b, InputType: "text", Required: b.Required}
}
