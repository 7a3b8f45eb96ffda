// Package split implements the split-field detector (spec.md §4.7):
// given current mappings and the DOM input order, it groups mappings by
// type and validates candidate split groups using input-order contiguity
// as the sole go/no-go signal — per the Open Question decision recorded
// in DESIGN.md, this package never consults visual layout or DOM
// distance. Grounded on spec.md §4.7/§8 and the upstream split-field
// detector's reliance on input order alone.
package split

import (
	"sort"
	"strconv"
	"strings"

	"github.com/form-sender/formrunner/internal/model"
)

// MinConfidence is the rejection floor; groups scoring below this are
// dropped (spec.md §4.7).
const MinConfidence = 0.45

// typeGroups lists the canonical field names that belong to each
// SplitFieldType, in the order parts should appear.
var typeGroups = map[model.SplitFieldType][]string{
	model.SplitPhone:        {"phone_1", "phone_2", "phone_3"},
	model.SplitPostal:       {"postal_1", "postal_2"},
	model.SplitName:         {"last_name", "first_name"},
	model.SplitNameKana:     {"last_name_kana", "first_name_kana"},
	model.SplitNameHiragana: {"last_name_hiragana", "first_name_hiragana"},
	model.SplitEmail:        {"email_local", "email_domain"},
	model.SplitAddress:      {"address_1", "address_2", "address_3", "address_4"},
}

// combineIntentTokens and splitIntentTokens hint at whether a multi-field group should be
// filled with one combined value or distributed across the parts
// (spec.md §4.7).
var combineIntentTokens = []string{"まとめて", "一括", "enter together"}
var splitIntentTokens = []string{"分けて", "別々", "enter each"}

// Detect groups mapping entries by type and validates each candidate
// group, returning only those that pass contiguity and the confidence
// floor.
func Detect(mapping model.Mapping, designerIntentText string) []model.SplitFieldGroup {
	var groups []model.SplitFieldGroup

	for typ, fieldNames := range typeGroups {
		var members []model.FieldMapping
		for _, name := range fieldNames {
			if fm, ok := mapping[name]; ok {
				members = append(members, fm)
			}
		}
		if len(members) < 2 {
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			return members[i].Element.InputOrderIndex < members[j].Element.InputOrderIndex
		})

		contiguous := isContiguous(members)
		confidence := confidenceScore(typ, members, contiguous)
		if !contiguous || confidence < MinConfidence {
			continue
		}

		groups = append(groups, model.SplitFieldGroup{
			Type:           typ,
			Pattern:        patternName(typ, len(members)),
			Members:        members,
			Confidence:     confidence,
			ValidatedOrder: contiguous,
			Strategy:       inferStrategy(designerIntentText),
		})
	}

	return groups
}

// isContiguous reports whether members occupy consecutive input-order
// indices, the sole go/no-go signal for a split group (spec.md §4.7/§8).
func isContiguous(members []model.FieldMapping) bool {
	for i := 1; i < len(members); i++ {
		prev := members[i-1].Element.InputOrderIndex
		cur := members[i].Element.InputOrderIndex
		if prev < 0 || cur < 0 || cur != prev+1 {
			return false
		}
	}
	return true
}

// confidenceScore combines field-count fit, keyword match, and context
// quality into the 0..1 confidence spec.md §4.7 requires.
func confidenceScore(typ model.SplitFieldType, members []model.FieldMapping, contiguous bool) float64 {
	if !contiguous {
		return 0
	}
	expected := len(typeGroups[typ])
	countFit := float64(len(members)) / float64(expected)
	if countFit > 1 {
		countFit = 1
	}

	keywordScore := 0.0
	for _, m := range members {
		if m.Score > 0 {
			keywordScore += 0.1
		}
	}
	if keywordScore > 0.4 {
		keywordScore = 0.4
	}

	contextScore := 0.0
	for _, m := range members {
		if len(m.ContextTexts) > 0 {
			contextScore += 0.1
		}
	}
	if contextScore > 0.2 {
		contextScore = 0.2
	}

	return clamp(countFit*0.4+keywordScore+contextScore, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func patternName(typ model.SplitFieldType, n int) string {
	switch typ {
	case model.SplitAddress:
		return "address-" + strconv.Itoa(n) + "-split"
	case model.SplitPhone:
		return "phone-" + strconv.Itoa(n) + "-split"
	case model.SplitName, model.SplitNameKana, model.SplitNameHiragana:
		return "name-" + strconv.Itoa(n) + "-split"
	case model.SplitEmail:
		return "email-" + strconv.Itoa(n) + "-split"
	case model.SplitPostal:
		return "postal-" + strconv.Itoa(n) + "-split"
	}
	return string(typ) + "-split"
}

func inferStrategy(designerIntentText string) model.InputStrategy {
	lower := strings.ToLower(designerIntentText)
	for _, tok := range combineIntentTokens {
		if strings.Contains(lower, strings.ToLower(tok)) || strings.Contains(designerIntentText, tok) {
			return model.StrategyCombine
		}
	}
	for _, tok := range splitIntentTokens {
		if strings.Contains(lower, strings.ToLower(tok)) || strings.Contains(designerIntentText, tok) {
			return model.StrategySplit
		}
	}
	return model.StrategySplit
}

// AssignCombinedValue handles spec.md §4.7's special case: a single field
// matches but is conceptually multipart (a lone phone/postal/address
// field) — assign the full combined value rather than a partial one.
func AssignCombinedValue(fieldName, combinedValue string, mapping model.Mapping) {
	if fm, ok := mapping[fieldName]; ok {
		fm.Value = combinedValue
		mapping[fieldName] = fm
	}
}
