package submit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/model"
)

func TestClassifyFinalBeatsConfirmationWhenBothTokensPresent(t *testing.T) {
	require.Equal(t, KindFinal, Classify(Candidate{Text: "確認して送信する"}))
}

func TestClassifyConfirmationWhenOnlyConfirmTokenPresent(t *testing.T) {
	require.Equal(t, KindConfirmation, Classify(Candidate{Text: "次へ"}))
}

func TestClassifyUnknownWithNoRecognizedToken(t *testing.T) {
	require.Equal(t, KindUnknown, Classify(Candidate{Text: "Go"}))
}

func TestExcludedMatchesNegativeKeywords(t *testing.T) {
	require.True(t, Excluded(Candidate{Text: "キャンセル"}))
	require.True(t, Excluded(Candidate{Text: "Back"}))
	require.False(t, Excluded(Candidate{Text: "送信する"}))
}

func TestOrderDropsExcludedAndPrioritizesAnalyzerCandidates(t *testing.T) {
	cands := []Candidate{
		{Selector: "#keyword-submit", Text: "送信", FromAnalyzer: false},
		{Selector: "#cancel", Text: "キャンセル", FromAnalyzer: true},
		{Selector: "#analyzer-submit", Text: "送信する", FromAnalyzer: true},
	}
	ordered := Order(cands)
	require.Len(t, ordered, 2)
	require.Equal(t, "#analyzer-submit", ordered[0].Selector)
	require.Equal(t, "#keyword-submit", ordered[1].Selector)
}

func TestAutoEnableAllowedOnlyWithoutBotProtection(t *testing.T) {
	require.True(t, AutoEnableAllowed(false))
	require.False(t, AutoEnableAllowed(true))
}

func TestEnsureCheckedNearFinalButtonNilCheckbox(t *testing.T) {
	selector, should := EnsureCheckedNearFinalButton(nil)
	require.Empty(t, selector)
	require.False(t, should)
}

func TestEnsureCheckedNearFinalButtonResolvesSelector(t *testing.T) {
	fm := &model.FieldMapping{Element: model.FormElement{Ref: model.ElementRef{Selector: "#agree"}}}
	selector, should := EnsureCheckedNearFinalButton(fm)
	require.Equal(t, "#agree", selector)
	require.True(t, should)
}
