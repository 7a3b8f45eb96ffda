// Package combine implements the field combination manager (spec.md
// §4.6): rules for assembling a unified value from client data (full
// name, kana/hiragana, email, phone, postal, address), a legacy-key
// deprecation map, a japanese-label-to-client-key table, a unified
// kana/hiragana detector, and the subject/message placeholder renderer.
// Grounded on spec.md's combination rules and the client field names
// recorded in the tenant config loader (internal/config/tenant.go),
// themselves taken from the upstream save_client_config.py TypedDicts.
package combine

import (
	"regexp"
	"strings"

	"github.com/form-sender/formrunner/internal/logging"
	"github.com/form-sender/formrunner/internal/model"

	"go.uber.org/zap"
)

// FullName returns "last<ideographic space>first".
func FullName(c model.Client) string {
	return join(c.LastName, c.FirstName)
}

// FullKana returns the katakana full-name combination.
func FullKana(c model.Client) string {
	return join(c.LastKana, c.FirstKana)
}

// FullHiragana returns the hiragana full-name combination.
func FullHiragana(c model.Client) string {
	return join(c.LastHiragana, c.FirstHiragana)
}

func join(last, first string) string {
	if last == "" && first == "" {
		return ""
	}
	return last + "　" + first
}

// Email returns "local@domain" from the split client fields, or the
// unified Email field if the split parts are empty.
func Email(c model.Client) string {
	if c.Email1 != "" || c.Email2 != "" {
		return c.Email1 + "@" + c.Email2
	}
	return c.Email
}

// Phone returns the direct concatenation of the three phone parts.
func Phone(c model.Client) string {
	if c.Phone1 != "" || c.Phone2 != "" || c.Phone3 != "" {
		return c.Phone1 + c.Phone2 + c.Phone3
	}
	return c.Phone
}

// PhoneHyphenated returns the phone parts joined with hyphens, used only
// when the target input's placeholder suggests hyphenated formatting.
func PhoneHyphenated(c model.Client) string {
	parts := []string{c.Phone1, c.Phone2, c.Phone3}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "-")
}

// Postal returns the direct concatenation of the two postal parts.
func Postal(c model.Client) string {
	return c.Postal1 + c.Postal2
}

// PostalHyphenated returns "postal1-postal2", used when the target
// input's placeholder suggests hyphenated formatting (e.g. "123-4567").
func PostalHyphenated(c model.Client) string {
	if c.Postal1 == "" && c.Postal2 == "" {
		return ""
	}
	return c.Postal1 + "-" + c.Postal2
}

// Address returns parts 1-4 concatenated directly, then (if part 5 is
// present) an ideographic space followed by part 5, per spec.md §4.6.
func Address(c model.Client) string {
	base := c.Address1 + c.Address2 + c.Address3 + c.Address4
	if c.Address5 != "" {
		return base + "　" + c.Address5
	}
	return base
}

// DeprecationMap maps legacy client-data keys to their current canonical
// replacement, e.g. a historical "form_sender_name" column that should be
// read as the unified full name.
var DeprecationMap = map[string]string{
	"form_sender_name": "full_name",
}

// Resolve applies DeprecationMap, returning key unchanged if it is not a
// known legacy alias.
func Resolve(key string) string {
	if v, ok := DeprecationMap[key]; ok {
		return v
	}
	return key
}

// LabelTable maps common Japanese form-field labels to the client-data
// key that should fill them. No other package reads it.
var LabelTable = map[string]string{
	"お名前":    "full_name",
	"氏名":     "full_name",
	"フリガナ":   "full_name_kana",
	"ふりがな":   "full_name_hiragana",
	"会社名":    "company_name",
	"法人名":    "company_name",
	"部署":     "department",
	"部署名":    "department",
	"役職":     "role",
	"メールアドレス": "email",
	"電話番号":   "phone",
	"郵便番号":   "postal",
	"ご住所":    "address",
	"住所":     "address",
	"都道府県":   "prefecture",
	"性別":     "gender",
}

// KanaKind distinguishes katakana from hiragana readings.
type KanaKind string

const (
	KanaKatakana KanaKind = "katakana"
	KanaHiragana KanaKind = "hiragana"
	KanaUnknown  KanaKind = ""
)

var katakanaHints = []string{"カナ", "katakana", "kana"}
var hiraganaHints = []string{"ひらがな", "ふりがな", "hiragana"}

// DetectKanaKind inspects label/placeholder/context text to decide
// whether a "kana"-like field expects katakana or hiragana input,
// preferring an explicit hiragana cue over the generic "kana" token
// since ふりがな commonly appears alongside a katakana "カナ" header in
// the same form (spec.md §4.6).
func DetectKanaKind(labelPlaceholderContext string) KanaKind {
	lower := strings.ToLower(labelPlaceholderContext)
	for _, h := range hiraganaHints {
		if strings.Contains(lower, strings.ToLower(h)) || strings.Contains(labelPlaceholderContext, h) {
			return KanaHiragana
		}
	}
	for _, h := range katakanaHints {
		if strings.Contains(lower, strings.ToLower(h)) || strings.Contains(labelPlaceholderContext, h) {
			return KanaKatakana
		}
	}
	return KanaUnknown
}

var templatePlaceholder = regexp.MustCompile(`\{([^}]+)\}`)

// RenderTemplate substitutes "{client.field}"-style placeholders in a
// targeting subject/message template with client data, matching
// InstructionTemplateProcessor's table.field grammar. Placeholders
// outside the client table (e.g. per-company columns, handled by a
// separate company-placeholder mechanism) or naming an unknown field are
// left untouched and logged, mirroring the original's unknown-placeholder
// passthrough.
func RenderTemplate(tmpl string, c model.Client) string {
	return templatePlaceholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{"), "}")
		table, field, ok := strings.Cut(name, ".")
		if ok && table == "client" {
			if v, known := clientField(c, field); known {
				return v
			}
		}
		logging.For(logging.CategoryMapping).Warn("unknown template placeholder", zap.String("placeholder", name))
		return match
	})
}

// clientField resolves a single client.field placeholder, covering both
// the split source columns and their combined/unified forms.
func clientField(c model.Client, field string) (string, bool) {
	switch field {
	case "last_name":
		return c.LastName, true
	case "first_name":
		return c.FirstName, true
	case "full_name":
		return FullName(c), true
	case "last_name_kana":
		return c.LastKana, true
	case "first_name_kana":
		return c.FirstKana, true
	case "full_name_kana":
		return FullKana(c), true
	case "last_name_hiragana":
		return c.LastHiragana, true
	case "first_name_hiragana":
		return c.FirstHiragana, true
	case "full_name_hiragana":
		return FullHiragana(c), true
	case "email_1":
		return c.Email1, true
	case "email_2":
		return c.Email2, true
	case "email":
		return Email(c), true
	case "phone_1":
		return c.Phone1, true
	case "phone_2":
		return c.Phone2, true
	case "phone_3":
		return c.Phone3, true
	case "phone":
		return Phone(c), true
	case "postal_code_1":
		return c.Postal1, true
	case "postal_code_2":
		return c.Postal2, true
	case "address_1":
		return c.Address1, true
	case "address_2":
		return c.Address2, true
	case "address_3":
		return c.Address3, true
	case "address_4":
		return c.Address4, true
	case "address_5":
		return c.Address5, true
	case "prefecture":
		return c.Prefecture, true
	case "position", "role":
		return c.Role, true
	case "gender":
		return c.Gender, true
	case "company_name":
		return c.CompanyName, true
	default:
		return "", false
	}
}
