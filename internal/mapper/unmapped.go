package mapper

import (
	"strings"

	"github.com/form-sender/formrunner/internal/model"
)

// agreeTokens and negativeAgreeTokens guide the checkbox agreement sweep
// away from marketing opt-ins (spec.md §4.10).
var agreeTokens = []string{"agree", "privacy", "プライバシー", "個人情報", "同意", "利用規約"}
var negativeAgreeTokens = []string{"newsletter", "メルマガ", "広告", "お知らせ配信", "キャンペーン"}

// radioKeywordPriority orders the tokens the required-radio-group handler
// prefers, business-relevant options first.
var radioKeywordPriority = []string{"法人", "company", "business", "会社", "個人", "other", "その他"}

// HandleUnmapped sweeps elements not claimed by Map/PostProcess and
// produces auto-handled assignments for checkbox agreement and email
// confirmation only; radio groups, selects and fullname/kana containers
// are not handled here (ChooseRadio and ChooseSelect are separate
// helpers). Every entry it produces is added to mapping, required or not.
func HandleUnmapped(mapping model.Mapping, elements []model.FormElement) model.Mapping {
	claimed := claimedSelectors(mapping)

	for _, e := range elements {
		if claimed[e.Ref.Selector] {
			continue
		}

		switch {
		case e.Tag == "input" && e.Type == "checkbox":
			if handleCheckboxAgreement(mapping, e) {
				claimed[e.Ref.Selector] = true
			}
		case e.Tag == "input" && e.Type == "email" && looksLikeConfirmation(e):
			mapping["email_confirm_"+e.Ref.Selector] = model.FieldMapping{
				FieldName:  "email_confirm",
				Element:    e,
				InputType:  "email",
				Required:   e.Required,
				Variant:    model.VariantConfirmation,
				AutoAction: model.ActionCopyFrom,
				CopyFrom:   "email",
			}
			claimed[e.Ref.Selector] = true
		}
	}

	return mapping
}

func claimedSelectors(mapping model.Mapping) map[string]bool {
	out := map[string]bool{}
	for _, fm := range mapping {
		out[fm.Element.Ref.Selector] = true
	}
	return out
}

func handleCheckboxAgreement(mapping model.Mapping, e model.FormElement) bool {
	text := strings.ToLower(e.LabelText + " " + e.AssociatedText + " " + e.NearbyText)
	for _, neg := range negativeAgreeTokens {
		if strings.Contains(text, strings.ToLower(neg)) || strings.Contains(e.LabelText, neg) {
			return false
		}
	}
	matched := false
	for _, tok := range agreeTokens {
		if strings.Contains(text, strings.ToLower(tok)) || strings.Contains(e.LabelText, tok) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	mapping["privacy_agree"] = model.FieldMapping{
		FieldName:  "privacy_agree",
		Element:    e,
		InputType:  "checkbox",
		Required:   e.Required,
		AutoAction: model.ActionDefault,
		Value:      "true",
	}
	return true
}

func looksLikeConfirmation(e model.FormElement) bool {
	text := strings.ToLower(e.Name + " " + e.ID + " " + e.LabelText)
	return strings.Contains(text, "confirm") || strings.Contains(e.Name, "確認") || strings.Contains(e.LabelText, "確認") || strings.Contains(e.LabelText, "再入力")
}

// RadioGroup is a set of radio inputs sharing a name, to be handled as
// one logical required choice.
type RadioGroup struct {
	Name     string
	Required bool
	Options  []model.FormElement
}

// ChooseRadio applies the keyword-priority algorithm: prefer a
// business-contact token, fall back to the first option.
func ChooseRadio(group RadioGroup) model.FormElement {
	for _, keyword := range radioKeywordPriority {
		for _, opt := range group.Options {
			text := strings.ToLower(opt.LabelText + " " + opt.AssociatedText + " " + opt.Placeholder)
			if strings.Contains(text, strings.ToLower(keyword)) || strings.Contains(opt.LabelText, keyword) {
				return opt
			}
		}
	}
	if len(group.Options) > 0 {
		return group.Options[0]
	}
	return model.FormElement{}
}

// ChooseSelect applies the required-select algorithm: first valid,
// non-placeholder option. The caller supplies the option labels in
// document order; ChooseSelect returns the chosen index, or -1 if none
// qualify.
func ChooseSelect(optionLabels []string) int {
	for i, label := range optionLabels {
		trimmed := strings.TrimSpace(label)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, "選択") || strings.Contains(strings.ToLower(trimmed), "select") || strings.Contains(strings.ToLower(trimmed), "choose") {
			continue
		}
		return i
	}
	return -1
}
