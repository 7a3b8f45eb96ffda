// Package catalog holds the static, ordered field-pattern tables the
// scorer and split detector consult. It is intentionally table-driven:
// every recognition rule is data, not code, so it can be audited and
// extended without touching the scoring algorithm itself. Numeric floors
// and field lists are grounded on the rule-based analyzer's settings
// dict in the upstream implementation.
package catalog

// FieldPattern describes one canonical field's recognition rules.
type FieldPattern struct {
	Name             string   // canonical field name, e.g. "email"
	RecognitionTokens []string // substrings checked against name/id/class/placeholder/label/context
	NegativeTokens   []string // substrings that disqualify a candidate
	UnifiedPatterns  []string // unified-field substrings, e.g. "fullname", "kana_unified"
	ScoreFloor       float64  // minimum total score required to accept a mapping
	Essential        bool     // essential fields get a wider quick-rank K and stricter validation
}

// Canonical field names. Which of them are essential is recorded by the
// Essential flag of each entry in Catalog.
const (
	FieldEmail        = "email"
	FieldMessageBody  = "message_body"
	FieldFullName     = "full_name"
	FieldFullNameKana = "full_name_kana"

	FieldLastName         = "last_name"
	FieldFirstName        = "first_name"
	FieldLastNameKana     = "last_name_kana"
	FieldFirstNameKana    = "first_name_kana"
	FieldLastNameHiragana = "last_name_hiragana"
	FieldFirstNameHiragana = "first_name_hiragana"

	FieldCompanyName     = "company_name"
	FieldCompanyNameKana = "company_name_kana"
	FieldSubject         = "subject"
	FieldPrefecture      = "prefecture"
	FieldAddress1        = "address_1"
	FieldAddress2        = "address_2"

	FieldPhoneUnified = "phone"
	FieldPhone1       = "phone_1"
	FieldPhone2       = "phone_2"
	FieldPhone3       = "phone_3"

	FieldPostalUnified = "postal"
	FieldPostal1       = "postal_1"
	FieldPostal2       = "postal_2"

	FieldEmailConfirm = "email_confirm"
	FieldGender       = "gender"
	FieldDepartment   = "department"
	FieldRole         = "role"
	FieldPrivacyAgree = "privacy_agree"
)

// Catalog is the ordered list of field patterns. Order matters for tie
// breaking in the scorer: earlier entries are preferred when two patterns
// score identically on the same element.
var Catalog = []FieldPattern{
	{
		Name:              FieldEmail,
		RecognitionTokens: []string{"email", "mail", "メール", "Eメール", "e-mail"},
		NegativeTokens:    []string{"confirm", "確認", "再入力"},
		UnifiedPatterns:   []string{"email_unified"},
		ScoreFloor:        60,
		Essential:         true,
	},
	{
		Name:              FieldEmailConfirm,
		RecognitionTokens: []string{"email", "mail", "メール", "confirm", "確認", "再入力", "もう一度"},
		ScoreFloor:        55,
	},
	{
		Name:              FieldMessageBody,
		RecognitionTokens: []string{"message", "inquiry", "content", "body", "お問い合わせ内容", "本文", "メッセージ", "ご相談内容", "comment"},
		NegativeTokens:    []string{"subject", "件名"},
		ScoreFloor:        65,
		Essential:         true,
	},
	{
		Name:              FieldFullName,
		RecognitionTokens: []string{"name", "fullname", "full_name", "お名前", "氏名", "担当者名"},
		NegativeTokens:    []string{"company", "会社", "kana", "カナ", "ふりがな"},
		UnifiedPatterns:   []string{"fullname"},
		ScoreFloor:        70,
		Essential:         true,
	},
	{
		Name:              FieldLastName,
		RecognitionTokens: []string{"last", "sei", "family", "姓", "苗字"},
		NegativeTokens:    []string{"kana", "カナ", "company", "会社"},
		ScoreFloor:        72,
	},
	{
		Name:              FieldFirstName,
		RecognitionTokens: []string{"first", "mei", "given", "名", "名前"},
		NegativeTokens:    []string{"kana", "カナ", "company", "会社", "件名"},
		ScoreFloor:        72,
	},
	{
		Name:              FieldFullNameKana,
		RecognitionTokens: []string{"kana", "カナ", "フリガナ", "ふりがな"},
		NegativeTokens:    []string{"company", "会社"},
		UnifiedPatterns:   []string{"kana_unified"},
		ScoreFloor:        70,
		Essential:         true,
	},
	{
		Name:              FieldLastNameKana,
		RecognitionTokens: []string{"sei_kana", "last_kana", "セイ", "姓カナ"},
		ScoreFloor:        70,
	},
	{
		Name:              FieldFirstNameKana,
		RecognitionTokens: []string{"mei_kana", "first_kana", "メイ", "名カナ"},
		ScoreFloor:        70,
	},
	{
		Name:              FieldLastNameHiragana,
		RecognitionTokens: []string{"sei_hiragana", "せい", "姓ひらがな", "ふりがな姓"},
		ScoreFloor:        68,
	},
	{
		Name:              FieldFirstNameHiragana,
		RecognitionTokens: []string{"mei_hiragana", "めい", "名ひらがな", "ふりがな名"},
		ScoreFloor:        68,
	},
	{
		Name:              FieldCompanyName,
		RecognitionTokens: []string{"company", "corp", "会社名", "法人名", "御社名", "貴社名"},
		ScoreFloor:        78,
	},
	{
		Name:              FieldCompanyNameKana,
		RecognitionTokens: []string{"company_kana", "会社名カナ", "会社名ふりがな"},
		ScoreFloor:        72,
	},
	{
		Name:              FieldSubject,
		RecognitionTokens: []string{"subject", "title", "件名", "タイトル", "ご用件"},
		ScoreFloor:        65,
	},
	{
		Name:              FieldPrefecture,
		RecognitionTokens: []string{"prefecture", "pref", "都道府県"},
		ScoreFloor:        75,
	},
	{
		Name:              FieldAddress1,
		RecognitionTokens: []string{"address", "addr", "住所", "所在地"},
		NegativeTokens:    []string{"email", "mail"},
		ScoreFloor:        65,
	},
	{
		Name:              FieldAddress2,
		RecognitionTokens: []string{"address2", "building", "建物", "丁目", "番地"},
		ScoreFloor:        60,
	},
	{
		Name:              FieldPhoneUnified,
		RecognitionTokens: []string{"phone", "tel", "電話", "TEL"},
		NegativeTokens:    []string{"fax"},
		UnifiedPatterns:   []string{"phone_unified"},
		ScoreFloor:        65,
	},
	{
		Name:              FieldPhone1,
		RecognitionTokens: []string{"tel1", "phone1", "電話1"},
		ScoreFloor:        65,
	},
	{
		Name:              FieldPhone2,
		RecognitionTokens: []string{"tel2", "phone2", "電話2"},
		ScoreFloor:        65,
	},
	{
		Name:              FieldPhone3,
		RecognitionTokens: []string{"tel3", "phone3", "電話3"},
		ScoreFloor:        65,
	},
	{
		Name:              FieldPostalUnified,
		RecognitionTokens: []string{"zip", "postal", "郵便番号", "〒"},
		UnifiedPatterns:   []string{"postal_unified"},
		ScoreFloor:        70,
	},
	{
		Name:              FieldPostal1,
		RecognitionTokens: []string{"zip1", "postal1", "郵便番号1"},
		ScoreFloor:        70,
	},
	{
		Name:              FieldPostal2,
		RecognitionTokens: []string{"zip2", "postal2", "郵便番号2"},
		ScoreFloor:        70,
	},
	{
		Name:              FieldGender,
		RecognitionTokens: []string{"gender", "sex", "性別"},
		ScoreFloor:        60,
	},
	{
		Name:              FieldDepartment,
		RecognitionTokens: []string{"department", "division", "部署", "部門"},
		ScoreFloor:        60,
	},
	{
		Name:              FieldRole,
		RecognitionTokens: []string{"position", "role", "title", "役職"},
		ScoreFloor:        60,
	},
	{
		Name:              FieldPrivacyAgree,
		RecognitionTokens: []string{"agree", "privacy", "プライバシー", "個人情報", "同意"},
		NegativeTokens:    []string{"newsletter", "メルマガ", "広告", "お知らせ配信"},
		ScoreFloor:        50,
	},
}

// ByName indexes Catalog for O(1) lookup.
var ByName = func() map[string]FieldPattern {
	m := make(map[string]FieldPattern, len(Catalog))
	for _, p := range Catalog {
		m[p.Name] = p
	}
	return m
}()

// ConfirmTokens mark a field as a "confirmation" variant of another field
// (e.g. email re-entry), matching the settings dict's confirm_tokens list.
var ConfirmTokens = []string{"confirm", "confirmation", "確認", "確認用", "再入力", "もう一度", "再度"}

// Settings carries the numeric thresholds the analyzer orchestrator
// threads through the pipeline, taken verbatim from the upstream settings
// dict (rule_based_analyzer.py's _load_settings) since spec.md names the
// mechanisms but not every constant.
type Settings struct {
	MaxElementsPerType    int
	MinScoreThreshold     float64
	QualityThresholdBoost float64
	MaxQualityThreshold   float64
	QuickRankingEnabled   bool
	QuickTopK             int
	QuickTopKEssential    int
	EarlyStopEnabled      bool
	EarlyStopScore        float64
	RequiredBoost         float64
	RequiredPhoneBoost    float64
	EmailFallbackMinScore float64
	MessageFallbackMinScore float64
}

// DefaultSettings returns the baseline thresholds.
func DefaultSettings() Settings {
	return Settings{
		MaxElementsPerType:      50,
		MinScoreThreshold:       70,
		QualityThresholdBoost:   15,
		MaxQualityThreshold:     90,
		QuickRankingEnabled:     true,
		QuickTopK:               15,
		QuickTopKEssential:      25,
		EarlyStopEnabled:        true,
		EarlyStopScore:          95,
		RequiredBoost:           40,
		RequiredPhoneBoost:      200,
		EmailFallbackMinScore:   60,
		MessageFallbackMinScore: 65,
	}
}

// IsEssential reports whether name is in the essential-fields list.
func IsEssential(name string) bool {
	p, ok := ByName[name]
	return ok && p.Essential
}
