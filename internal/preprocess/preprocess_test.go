package preprocess

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/model"
)

func TestNeedsScrollOnManyElements(t *testing.T) {
	require.True(t, NeedsScroll(41, 1000, 1000))
	require.False(t, NeedsScroll(10, 1000, 1000))
}

func TestNeedsScrollOnTallPage(t *testing.T) {
	require.True(t, NeedsScroll(5, 3000, 1000))
	require.False(t, NeedsScroll(5, 2000, 1000))
}

func TestSuppressUnifiedIfSplitPresentDropsOnlyWhenSplitFound(t *testing.T) {
	mapping := model.Mapping{
		"full_name":      model.FieldMapping{FieldName: "full_name"},
		"full_name_kana": model.FieldMapping{FieldName: "full_name_kana"},
	}
	out := SuppressUnifiedIfSplitPresent(mapping, true, false)
	_, hasName := out["full_name"]
	_, hasKana := out["full_name_kana"]
	require.False(t, hasName)
	require.True(t, hasKana)
}

func TestRequiredFieldAnalysisFindsAnyRequired(t *testing.T) {
	require.True(t, RequiredFieldAnalysis([]model.FormElement{{Required: false}, {Required: true}}))
	require.False(t, RequiredFieldAnalysis([]model.FormElement{{Required: false}}))
}

func TestCoreFieldsRequiredInvertsAnyRequiredMarked(t *testing.T) {
	require.True(t, CoreFieldsRequired(false))
	require.False(t, CoreFieldsRequired(true))
}

func TestClassifyPrefersContactOnTextareaAndTokens(t *testing.T) {
	got := Classify(1, 1, 0, "お問い合わせフォーム")
	require.Equal(t, TypeContact, got)
}

func TestClassifyAuthBeatsOthersOnPassword(t *testing.T) {
	got := Classify(0, 1, 1, "ログイン")
	require.Equal(t, TypeAuth, got)
}

func TestClassifyFallsBackToOtherWithNoSignal(t *testing.T) {
	got := Classify(0, 0, 0, "")
	require.Equal(t, TypeOther, got)
}

func TestShortCircuitsMessageRequirementOnlyForNonContact(t *testing.T) {
	require.False(t, ShortCircuitsMessageRequirement(TypeContact))
	require.True(t, ShortCircuitsMessageRequirement(TypeSearch))
}
