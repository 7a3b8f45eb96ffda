// Package analyzer orchestrates the form-understanding pipeline: field
// pattern catalog -> element scorer -> structure analyzer -> duplicate
// prevention + field combination + split-field detectors -> field mapper
// -> unmapped-element handler -> input-value assigner -> analysis
// validator (spec.md §2 "Control flow", §4.1-§4.12). It is the single
// entry point the worker calls per company. Grounded on the upstream
// RuleBasedAnalyzer's role as the orchestrator wiring every sub-component
// together behind one Analyze call.
package analyzer

import (
	"github.com/form-sender/formrunner/internal/assign"
	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/dedupe"
	"github.com/form-sender/formrunner/internal/mapper"
	"github.com/form-sender/formrunner/internal/model"
	"github.com/form-sender/formrunner/internal/preprocess"
	"github.com/form-sender/formrunner/internal/scoring"
	"github.com/form-sender/formrunner/internal/split"
	"github.com/form-sender/formrunner/internal/structure"
	"github.com/form-sender/formrunner/internal/validate"
)

// FormSnapshot is everything the browser layer extracts from the live
// page before any scoring happens: every candidate <form> on the page,
// plus the strictly-in-form element list, context candidates, and free
// text used for form-type classification and message-template selection.
type FormSnapshot struct {
	Candidates      []structure.FormCandidate
	ChosenFormIndex int // index into Candidates, or -1 if none chosen yet
	Elements        []model.FormElement
	Context         map[string][]structure.ContextCandidate
	SurroundingText string // page/footer text used for form-type + message-template inference
	DesignerIntentText string
}

// Result is the analyzer's full output: the resolved mapping, detected
// split groups, the final input plan, the classified form type, and any
// validation problems (a non-empty Problems list does not necessarily
// mean the pipeline must abort — the executor decides that per spec.md
// §4.15).
type Result struct {
	FormFound   bool
	Mapping     model.Mapping
	SplitGroups []model.SplitFieldGroup
	Plan        model.Plan
	FormType    preprocess.FormType
	Validation  validate.Result
	ContextIndex *structure.ContextIndex
}

// Analyze runs the full pipeline against one FormSnapshot for one
// client/targeting pair.
func Analyze(snap FormSnapshot, client model.Client, subject, message string, settings catalog.Settings) (Result, error) {
	if len(snap.Candidates) == 0 {
		return Result{FormFound: false}, nil
	}
	if snap.ChosenFormIndex < 0 {
		idx, ok := structure.SelectForm(snap.Candidates)
		if !ok {
			return Result{FormFound: false}, nil
		}
		snap.ChosenFormIndex = idx
	}

	elements := structure.AssignInputOrder(append([]model.FormElement(nil), snap.Elements...))
	elements, _ = structure.DetectParallelGroups(elements)
	ctxIndex := structure.NewContextIndex(snap.Context)

	cache := scoring.NewAttrCache()
	perField := scoreAllFields(elements, ctxIndex, settings, cache)

	mapping := mapper.Map(perField, settings)
	mapping = mapper.PostProcess(mapping, elements)
	mapping = mapper.HandleUnmapped(mapping, elements)

	groups := split.Detect(mapping, snap.DesignerIntentText)
	hasSplitName, hasSplitKana := false, false
	for _, g := range groups {
		switch g.Type {
		case model.SplitName:
			hasSplitName = true
		case model.SplitNameKana, model.SplitNameHiragana:
			hasSplitKana = true
		}
	}
	mapping = preprocess.SuppressUnifiedIfSplitPresent(mapping, hasSplitName, hasSplitKana)

	formType := preprocess.Classify(countTag(elements, "textarea"), countEmail(elements), countPassword(elements), snap.SurroundingText)

	asg := assign.New(client, subject, message, snap.SurroundingText)
	mapping = asg.Assign(mapping)

	mgr := dedupe.New()
	valResult := validate.Validate(mapping, elements, formType, mgr)

	plan := buildPlan(mapping)

	return Result{
		FormFound:    true,
		Mapping:      mapping,
		SplitGroups:  groups,
		Plan:         plan,
		FormType:     formType,
		Validation:   valResult,
		ContextIndex: ctxIndex,
	}, nil
}

func scoreAllFields(elements []model.FormElement, ctxIndex *structure.ContextIndex, settings catalog.Settings, cache *scoring.AttrCache) map[string][]mapper.Candidate {
	perField := make(map[string][]mapper.Candidate, len(catalog.Catalog))
	for _, p := range catalog.Catalog {
		var cands []mapper.Candidate
		for _, e := range elements {
			enriched := e
			if enriched.AssociatedText == "" {
				enriched.AssociatedText = ctxIndex.Best(e.Ref.Selector)
			}
			score, detail := scoring.Score(enriched, p, settings, cache)
			if score <= scoring.Excluded {
				continue
			}
			cands = append(cands, mapper.Candidate{Element: enriched, Score: score, Detail: detail})
		}
		if settings.QuickRankingEnabled {
			k := settings.QuickTopK
			if p.Essential {
				k = settings.QuickTopKEssential
			}
			cands = topK(cands, k)
		}
		perField[p.Name] = cands
	}
	return perField
}

func topK(cands []mapper.Candidate, k int) []mapper.Candidate {
	if len(cands) <= k {
		return cands
	}
	sorted := append([]mapper.Candidate(nil), cands...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Score > sorted[j-1].Score; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[:k]
}

func countTag(elements []model.FormElement, tag string) int {
	n := 0
	for _, e := range elements {
		if e.Tag == tag {
			n++
		}
	}
	return n
}

func countEmail(elements []model.FormElement) int {
	n := 0
	for _, e := range elements {
		if e.Tag == "input" && e.Type == "email" {
			n++
		}
	}
	return n
}

func countPassword(elements []model.FormElement) int {
	n := 0
	for _, e := range elements {
		if e.Tag == "input" && e.Type == "password" {
			n++
		}
	}
	return n
}

func buildPlan(mapping model.Mapping) model.Plan {
	plan := model.Plan{}
	for name, fm := range mapping {
		plan[name] = model.InputAssignment{
			Selector:   fm.Element.Ref.Selector,
			InputType:  fm.InputType,
			Value:      fm.Value,
			Required:   fm.Required,
			AutoAction: fm.AutoAction,
			CopyFrom:   fm.CopyFrom,
		}
	}
	return plan
}
