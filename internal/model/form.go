package model

// ElementRef is a stable handle to a DOM node, borrowed from the
// browser-automation capability for the lifetime of one analysis session.
// Implementations must never persist or serialize the Handle field; the
// Selector is the only durable projection.
type ElementRef struct {
	Handle   interface{} // opaque browser-automation handle (e.g. *rod.Element)
	Selector string      // stable CSS selector, unique within the chosen form
}

// FormElement is the internal, enriched record the structure analyzer
// produces for every element strictly within the chosen form.
type FormElement struct {
	Ref ElementRef

	Tag         string
	Type        string // input type attribute, lowercased
	Name        string
	ID          string
	Class       string
	Placeholder string

	Visible bool
	Enabled bool
	Required bool

	X, Y, Width, Height float64

	AssociatedText string // label/table-header/adjacent text, see structure.ContextTextExtractor
	NearbyText     string
	LabelText      string

	SiblingIndex int // index within its parallel-group, -1 if none
	ParentTag    string

	InputOrderIndex int // position among input-only elements, in DOM order; -1 if not an input
}

// IsInputLike reports whether the element participates in input-order
// contiguity checks (text/email/tel/url/password/textarea/select/checkbox/radio).
func (e FormElement) IsInputLike() bool {
	switch e.Tag {
	case "textarea", "select":
		return true
	case "input":
		switch e.Type {
		case "submit", "button", "reset", "image", "hidden", "":
			return false
		default:
			return true
		}
	}
	return false
}

// ScoreDetail records the individual contributions the element scorer
// combined into a field's total score, for audit and debugging.
type ScoreDetail struct {
	TagTypeFit      float64
	AttributeTokens float64
	LabelMatch      float64
	ContextMatch    float64
	RequiredBonus   float64
	Notes           []string
}

// FieldVariant distinguishes the primary occurrence of a canonical field
// from a secondary confirmation occurrence (only "email" has a recognized
// confirmation variant).
type FieldVariant string

const (
	VariantPrimary      FieldVariant = "primary"
	VariantConfirmation FieldVariant = "confirmation"
)

// AutoAction is an auto-handled fill strategy assigned by the unmapped
// element handler or the input-value assigner when no direct client value
// applies.
type AutoAction string

const (
	ActionFill             AutoAction = "fill"
	ActionSelectByAlgorithm AutoAction = "select_by_algorithm"
	ActionSelectIndex      AutoAction = "select_index"
	ActionCopyFrom         AutoAction = "copy_from"
	ActionDefault          AutoAction = "default"
)

// FieldMapping is the mapping from a canonical field name to the element
// chosen to carry it, plus everything downstream stages need: score,
// context, input type, required flag, and an optional pre-computed value
// or auto-action. At most one FieldMapping exists per canonical name in a
// Mapping, except that one or more "email confirmation" mappings may share
// the primary email's value.
type FieldMapping struct {
	FieldName    string
	Element      FormElement
	Score        float64
	ScoreDetail  ScoreDetail
	ContextTexts []string
	InputType    string
	Required     bool
	Variant      FieldVariant

	Value      string // computed by assign.Assigner; empty until assigned
	AutoAction AutoAction
	CopyFrom   string // canonical field name, only set when AutoAction == ActionCopyFrom
}

// Mapping is the full analyzer output: canonical field name -> FieldMapping.
// Confirmation variants are keyed by "email_confirm_<selector>" so the
// primary keeps the bare canonical key; dedupe.Manager lets keys with the
// email_confirm prefix share the primary email's value.
type Mapping map[string]FieldMapping

// SplitFieldType enumerates the typed groups the split-field detector
// recognizes.
type SplitFieldType string

const (
	SplitAddress      SplitFieldType = "address"
	SplitPhone        SplitFieldType = "phone"
	SplitName         SplitFieldType = "name"
	SplitNameKana     SplitFieldType = "name-kana"
	SplitNameHiragana SplitFieldType = "name-hiragana"
	SplitEmail        SplitFieldType = "email"
	SplitPostal       SplitFieldType = "postal"
)

// InputStrategy decides whether the assigner should write one combined
// value into a single input or distribute the parts across the group's
// members.
type InputStrategy string

const (
	StrategyCombine InputStrategy = "combine"
	StrategySplit   InputStrategy = "split"
)

// SplitFieldGroup is a detected multi-input group for one logical value.
type SplitFieldGroup struct {
	Type            SplitFieldType
	Pattern         string // e.g. "address-2-split", "phone-3-split"
	Members         []FieldMapping // ordered by InputOrderIndex
	Confidence      float64
	ValidatedOrder  bool
	Strategy        InputStrategy
}

// InputAssignment is the final per-field plan handed to the input handler:
// selector, type, value, and how to apply it.
type InputAssignment struct {
	Selector   string
	InputType  string
	Value      string
	Required   bool
	AutoAction AutoAction
	CopyFrom   string
}

// Plan is the ordered set of assignments produced for one company, keyed by
// canonical field name.
type Plan map[string]InputAssignment
