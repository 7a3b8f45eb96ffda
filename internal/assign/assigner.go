// Package assign implements the input-value assigner (spec.md §4.11):
// produces the per-field value by combining client data through the
// combination manager, applying field-specific synthesis (prefecture,
// address sub-parts, phone/postal formatting, context-driven message
// templates), restricting select injection to gender/prefecture, and
// correcting left/right name swaps. Grounded on spec.md §4.11.
package assign

import (
	"strings"

	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/combine"
	"github.com/form-sender/formrunner/internal/model"
)

// messageTemplates maps a context keyword to a message-body variant.
// Selected when the form's surrounding text indicates that context
// (quotation/repair/appointment/recruit/etc.), per spec.md §4.11.
var messageTemplates = map[string]string{
	"見積":  "見積もりについてご相談がございます。",
	"quote": "I would like to request a quotation.",
	"修理":  "製品の修理についてお問い合わせいたします。",
	"repair": "I would like to inquire about a repair.",
	"予約":  "ご予約についてお問い合わせいたします。",
	"appointment": "I would like to make an appointment.",
	"採用":  "採用についてお問い合わせいたします。",
	"recruit": "I would like to inquire about recruitment.",
}

// selectInjectable lists the only canonical fields eligible for direct
// client-value injection into a <select>; everything else defers to the
// unmapped handler's algorithmic selection (spec.md §4.11).
var selectInjectable = map[string]bool{
	catalog.FieldGender:      true,
	catalog.FieldPrefecture:  true,
}

// Assigner computes per-field values for a Mapping.
type Assigner struct {
	Client   model.Client
	Subject  string // targeting subject template
	Message  string // targeting message template, pre-render
	Context  string // surrounding form/page text used for message template selection
}

// New constructs an Assigner.
func New(c model.Client, subject, message, context string) *Assigner {
	return &Assigner{Client: c, Subject: subject, Message: message, Context: context}
}

// Assign computes values for every mapped field in place, returning the
// mutated mapping for convenience.
func (a *Assigner) Assign(mapping model.Mapping) model.Mapping {
	for name, fm := range mapping {
		fm.Value = a.valueFor(name, fm, mapping)
		mapping[name] = fm
	}
	return mapping
}

func (a *Assigner) valueFor(name string, fm model.FieldMapping, mapping model.Mapping) string {
	switch name {
	case catalog.FieldFullName:
		return combine.FullName(a.Client)
	case catalog.FieldLastName:
		return a.Client.LastName
	case catalog.FieldFirstName:
		return a.Client.FirstName
	case catalog.FieldFullNameKana:
		return combine.FullKana(a.Client)
	case catalog.FieldLastNameKana:
		return a.Client.LastKana
	case catalog.FieldFirstNameKana:
		return a.Client.FirstKana
	case catalog.FieldLastNameHiragana:
		return a.Client.LastHiragana
	case catalog.FieldFirstNameHiragana:
		return a.Client.FirstHiragana
	case catalog.FieldEmail:
		return combine.Email(a.Client)
	case "email_confirm":
		return combine.Email(a.Client)
	case catalog.FieldCompanyName:
		return a.Client.CompanyName
	case catalog.FieldGender:
		return a.Client.Gender
	case catalog.FieldDepartment:
		return ""
	case catalog.FieldRole:
		return a.Client.Role
	case catalog.FieldPrefecture:
		return a.Client.Prefecture
	case catalog.FieldAddress1:
		if a.Client.Prefecture != "" {
			return a.Client.Prefecture + a.Client.Address1
		}
		return combine.Address(a.Client)
	case catalog.FieldAddress2:
		return a.resolveAddressAux(fm)
	case catalog.FieldPhoneUnified:
		return a.phoneValue(fm)
	case catalog.FieldPhone1:
		return a.Client.Phone1
	case catalog.FieldPhone2:
		return a.Client.Phone2
	case catalog.FieldPhone3:
		return a.Client.Phone3
	case catalog.FieldPostalUnified:
		return a.postalValue(fm)
	case catalog.FieldPostal1:
		return a.Client.Postal1
	case catalog.FieldPostal2:
		return a.Client.Postal2
	case catalog.FieldMessageBody:
		return combine.RenderTemplate(a.messageValue(), a.Client)
	case catalog.FieldSubject:
		return combine.RenderTemplate(a.Subject, a.Client)
	default:
		return fm.Value
	}
}

// resolveAddressAux decides whether an "address_2"-class field is the
// city/ward portion or a building-detail portion by scanning its
// context tokens, per spec.md §4.11.
func (a *Assigner) resolveAddressAux(fm model.FieldMapping) string {
	text := strings.ToLower(strings.Join(fm.ContextTexts, " ") + " " + fm.Element.LabelText)
	if strings.Contains(text, "building") || strings.Contains(fm.Element.LabelText, "建物") || strings.Contains(fm.Element.LabelText, "番地") {
		return a.Client.Address3 + a.Client.Address4
	}
	return a.Client.Address2
}

func (a *Assigner) phoneValue(fm model.FieldMapping) string {
	if suggestsHyphen(fm.Element.Placeholder) {
		return combine.PhoneHyphenated(a.Client)
	}
	return combine.Phone(a.Client)
}

func (a *Assigner) postalValue(fm model.FieldMapping) string {
	if suggestsHyphen(fm.Element.Placeholder) {
		return combine.PostalHyphenated(a.Client)
	}
	return combine.Postal(a.Client)
}

func suggestsHyphen(placeholder string) bool {
	return strings.Contains(placeholder, "-")
}

// messageValue selects a context-specific template if the surrounding
// text indicates one (quotation/repair/appointment/recruit/etc.),
// otherwise falls back to the targeting message.
func (a *Assigner) messageValue() string {
	lower := strings.ToLower(a.Context)
	for keyword, template := range messageTemplates {
		if strings.Contains(lower, strings.ToLower(keyword)) || strings.Contains(a.Context, keyword) {
			return template
		}
	}
	return a.Message
}

// SelectEligible reports whether name may receive direct client-value
// injection into a <select>; all other fields defer to algorithmic
// selection (spec.md §4.11).
func SelectEligible(name string) bool {
	return selectInjectable[name]
}

// CorrectNameSwap fixes common left/right swaps for name fields using
// both attributes and placeholders, mirroring mapper.correctSwappedNames
// but applied at value-assignment time for fields the mapper didn't
// catch (spec.md §4.11).
func CorrectNameSwap(mapping model.Mapping) {
	last, hasLast := mapping[catalog.FieldLastName]
	first, hasFirst := mapping[catalog.FieldFirstName]
	if !hasLast || !hasFirst {
		return
	}
	if strings.Contains(strings.ToLower(last.Element.Placeholder), "first") && strings.Contains(strings.ToLower(first.Element.Placeholder), "last") {
		last.Value, first.Value = first.Value, last.Value
		mapping[catalog.FieldLastName] = last
		mapping[catalog.FieldFirstName] = first
	}
}

// BlankAutoRequiredTextNearOtherRadio clears the value of fieldName when
// that name starts with "auto_required_text_" (spec.md §4.11). It does not
// check whether the field sits near an "other" radio option; any such
// field passed in is blanked.
func BlankAutoRequiredTextNearOtherRadio(mapping model.Mapping, fieldName string) {
	if fm, ok := mapping[fieldName]; ok && strings.HasPrefix(fieldName, "auto_required_text_") {
		fm.Value = ""
		mapping[fieldName] = fm
	}
}
