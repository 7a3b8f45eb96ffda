// Package scoring implements the element scorer (spec.md §4.2): for a
// candidate DOM element and a candidate canonical field, it produces a
// total score plus a breakdown, combining tag/type fit, attribute-token
// hits, label/placeholder/context matches, a required-attribute bonus,
// and visibility/enabled gating. Grounded on the upstream rule-based
// analyzer's ElementScorer and the settings dict's weighting constants;
// generalized from Python's per-call attribute dict cache into a Go map
// keyed by selector.
package scoring

import (
	"strings"

	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/model"
)

// AttrCache memoizes an element's searchable text so repeated scoring
// passes (one per candidate field) avoid re-joining strings. Keyed by
// selector, matching the upstream "shared attribute cache" design.
type AttrCache struct {
	cache map[string]string
}

// NewAttrCache constructs an empty cache.
func NewAttrCache() *AttrCache {
	return &AttrCache{cache: make(map[string]string)}
}

func (c *AttrCache) searchable(e model.FormElement) string {
	if v, ok := c.cache[e.Ref.Selector]; ok {
		return v
	}
	v := strings.ToLower(strings.Join([]string{
		e.Name, e.ID, e.Class, e.Placeholder, e.LabelText, e.AssociatedText, e.NearbyText,
	}, " "))
	c.cache[e.Ref.Selector] = v
	return v
}

// Excluded is returned by Score when an element is structurally
// disqualified (invisible, disabled, or hit a strong negative token).
// Downstream code must drop these candidates entirely.
const Excluded = -1000.0

// Score computes the total score and breakdown for matching element e
// against the field pattern p. cache may be nil (no memoization).
func Score(e model.FormElement, p catalog.FieldPattern, settings catalog.Settings, cache *AttrCache) (float64, model.ScoreDetail) {
	detail := model.ScoreDetail{}

	if !e.Visible || !e.Enabled {
		detail.Notes = append(detail.Notes, "excluded: not visible/enabled")
		return Excluded, detail
	}

	var text string
	if cache != nil {
		text = cache.searchable(e)
	} else {
		text = strings.ToLower(strings.Join([]string{
			e.Name, e.ID, e.Class, e.Placeholder, e.LabelText, e.AssociatedText, e.NearbyText,
		}, " "))
	}

	for _, neg := range p.NegativeTokens {
		if strings.Contains(text, strings.ToLower(neg)) {
			detail.Notes = append(detail.Notes, "excluded: negative token "+neg)
			return Excluded, detail
		}
	}

	detail.TagTypeFit = tagTypeFit(e, p)

	hits := 0
	for _, tok := range p.RecognitionTokens {
		lt := strings.ToLower(tok)
		if strings.Contains(strings.ToLower(e.Name), lt) || strings.Contains(strings.ToLower(e.ID), lt) || strings.Contains(strings.ToLower(e.Class), lt) {
			hits++
		}
	}
	detail.AttributeTokens = float64(hits) * 8

	labelHits := 0
	for _, tok := range p.RecognitionTokens {
		lt := strings.ToLower(tok)
		if strings.Contains(strings.ToLower(e.LabelText), lt) {
			labelHits += 2
		} else if strings.Contains(strings.ToLower(e.Placeholder), lt) {
			labelHits++
		}
	}
	detail.LabelMatch = float64(labelHits) * 10

	ctxHits := 0
	for _, tok := range p.RecognitionTokens {
		lt := strings.ToLower(tok)
		if strings.Contains(strings.ToLower(e.AssociatedText), lt) {
			ctxHits += 2
		} else if strings.Contains(strings.ToLower(e.NearbyText), lt) {
			ctxHits++
		}
	}
	detail.ContextMatch = float64(ctxHits) * 5

	if e.Required {
		boost := settings.RequiredBoost
		if p.Name == catalog.FieldPhone1 || p.Name == catalog.FieldPhone2 || p.Name == catalog.FieldPhone3 || p.Name == catalog.FieldPhoneUnified {
			boost = settings.RequiredPhoneBoost
		}
		detail.RequiredBonus = boost
	}

	total := detail.TagTypeFit + detail.AttributeTokens + detail.LabelMatch + detail.ContextMatch + detail.RequiredBonus
	return total, detail
}

func tagTypeFit(e model.FormElement, p catalog.FieldPattern) float64 {
	switch p.Name {
	case catalog.FieldEmail, catalog.FieldEmailConfirm:
		if e.Tag == "input" && e.Type == "email" {
			return 50
		}
		if e.Tag == "input" && (e.Type == "text" || e.Type == "") {
			return 20
		}
	case catalog.FieldMessageBody:
		if e.Tag == "textarea" {
			return 50
		}
	case catalog.FieldPhoneUnified, catalog.FieldPhone1, catalog.FieldPhone2, catalog.FieldPhone3:
		if e.Tag == "input" && e.Type == "tel" {
			return 45
		}
		if e.Tag == "input" && (e.Type == "text" || e.Type == "") {
			return 15
		}
	case catalog.FieldGender:
		if e.Tag == "select" || e.Tag == "input" && (e.Type == "radio") {
			return 30
		}
	case catalog.FieldPrefecture:
		if e.Tag == "select" {
			return 30
		}
	case catalog.FieldPrivacyAgree:
		if e.Tag == "input" && e.Type == "checkbox" {
			return 50
		}
	default:
		if e.Tag == "input" && (e.Type == "text" || e.Type == "") {
			return 20
		}
	}
	return 0
}

// Accepts reports whether a score clears the field's floor, and the
// quality threshold that applies (floor boosted when quality boosting is
// configured and the candidate pool is crowded, capped by MaxQualityThreshold).
func Accepts(score float64, p catalog.FieldPattern, settings catalog.Settings, competingCandidates int) bool {
	if score <= Excluded {
		return false
	}
	floor := p.ScoreFloor
	if competingCandidates > 3 {
		floor += settings.QualityThresholdBoost
		if floor > settings.MaxQualityThreshold {
			floor = settings.MaxQualityThreshold
		}
	}
	return score >= floor
}
