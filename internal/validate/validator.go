// Package validate implements the analysis validator (spec.md §4.12):
// for contact-like forms it requires a "message body" mapping, requires
// "email" whenever the DOM exposes any email-capable input, and
// registers every assignment through the duplicate-prevention manager,
// surfacing its rejections. Grounded on spec.md §4.12.
package validate

import (
	"fmt"
	"strings"

	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/dedupe"
	"github.com/form-sender/formrunner/internal/model"
	"github.com/form-sender/formrunner/internal/preprocess"
)

// Result carries every validation complaint produced against a mapping.
type Result struct {
	Valid    bool
	Problems []string
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// emailTokens match against name/id/label text to detect an email-capable
// text input even when its type attribute is not literally "email".
var emailTokens = []string{"email", "mail", "メール"}

// hasEmailCapableInput reports whether any element in elements is either
// an email-typed input or a text input whose attributes/label contain an
// email token (spec.md §4.12).
func hasEmailCapableInput(elements []model.FormElement) bool {
	for _, e := range elements {
		if e.Tag != "input" {
			continue
		}
		if e.Type == "email" {
			return true
		}
		if e.Type == "text" || e.Type == "" {
			text := strings.ToLower(e.Name + " " + e.ID + " " + e.LabelText + " " + e.Placeholder)
			for _, tok := range emailTokens {
				if strings.Contains(text, tok) {
					return true
				}
			}
		}
	}
	return false
}

// Validate runs the spec.md §4.12 checks and registers every assignment
// with mgr, surfacing its conflicts as validation problems.
func Validate(mapping model.Mapping, elements []model.FormElement, formType preprocess.FormType, mgr *dedupe.Manager) Result {
	res := Result{Valid: true}

	if !preprocess.ShortCircuitsMessageRequirement(formType) {
		if _, ok := mapping[catalog.FieldMessageBody]; !ok {
			res.fail("contact-typed form missing required message body mapping")
		}
	}

	if hasEmailCapableInput(elements) {
		if _, ok := mapping[catalog.FieldEmail]; !ok {
			res.fail("form exposes an email-capable input but no email field was mapped")
		}
	}

	for name, fm := range mapping {
		if fm.Value != "" {
			mgr.Register(name, fm.Value, fm.Score)
		}
	}
	// A later claim can evict an earlier holder, so losses are read back
	// from the registry once every field has registered.
	for name, fm := range mapping {
		if dedupe.IsPlaceholder(fm.Value) {
			continue
		}
		held := false
		for _, h := range mgr.Holders(fm.Value) {
			held = held || h == name
		}
		if !held {
			res.fail("field %q lost a duplicate-value conflict and was rejected", name)
		}
	}

	return res
}
