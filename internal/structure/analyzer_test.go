package structure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/model"
)

func TestScoreFormPenalizesInvisibleHeavily(t *testing.T) {
	invisible := ScoreForm(FormCandidate{Visible: false, TextareaCount: 5})
	visible := ScoreForm(FormCandidate{Visible: true, TextareaCount: 5})
	require.Less(t, invisible, visible)
	require.Equal(t, -500.0, invisible)
}

func TestScoreFormPenalizesNegativeButtonTokens(t *testing.T) {
	search := ScoreForm(FormCandidate{Visible: true, TextCount: 2, ButtonText: "Search"})
	submit := ScoreForm(FormCandidate{Visible: true, TextCount: 2, ButtonText: "Submit"})
	require.Less(t, search, submit)
}

func TestSelectFormReturnsHighestScoring(t *testing.T) {
	idx, ok := SelectForm([]FormCandidate{
		{Index: 0, Visible: true, TextCount: 1},
		{Index: 1, Visible: true, TextareaCount: 3, EmailCount: 1},
		{Index: 2, Visible: false, TextareaCount: 10},
	})
	require.True(t, ok)
	require.Equal(t, 1, idx)
}

func TestSelectFormNoneWhenEmpty(t *testing.T) {
	idx, ok := SelectForm(nil)
	require.False(t, ok)
	require.Equal(t, -1, idx)
}

func TestSelectFormNoneWhenAllNegative(t *testing.T) {
	idx, ok := SelectForm([]FormCandidate{
		{Index: 0, Visible: true, ButtonText: "検索"},
	})
	require.False(t, ok)
	require.Equal(t, -1, idx)
}

func TestAssignInputOrderSkipsNonInputElements(t *testing.T) {
	elements := []model.FormElement{
		{Tag: "input", Type: "text"},
		{Tag: "div"},
		{Tag: "input", Type: "email"},
		{Tag: "input", Type: "hidden"},
	}
	out := AssignInputOrder(elements)
	require.Equal(t, 0, out[0].InputOrderIndex)
	require.Equal(t, -1, out[1].InputOrderIndex)
	require.Equal(t, 1, out[2].InputOrderIndex)
	require.Equal(t, -1, out[3].InputOrderIndex)
}

func TestDetectParallelGroupsRequiresAtLeastTwoMembers(t *testing.T) {
	elements := []model.FormElement{
		{Tag: "input", Type: "tel", Class: "field-a"},
		{Tag: "input", Type: "tel", Class: "field-a"},
		{Tag: "input", Type: "tel", Class: "field-a"},
		{Tag: "input", Type: "email", Class: "field-b"},
	}
	out, groups := DetectParallelGroups(elements)
	require.Len(t, groups, 1)
	require.Equal(t, []int{0, 1, 2}, groups[0].Members)
	require.Equal(t, 0, out[0].SiblingIndex)
	require.Equal(t, 1, out[1].SiblingIndex)
	require.Equal(t, 2, out[2].SiblingIndex)
}

func TestClassifyTableBuckets(t *testing.T) {
	require.Equal(t, TableForm, ClassifyTable(6, 10))
	require.Equal(t, TableData, ClassifyTable(1, 10))
	require.Equal(t, TableLayout, ClassifyTable(3, 10))
	require.Equal(t, TableLayout, ClassifyTable(0, 0))
}

func TestContextIndexBestRanksBySourceThenDistance(t *testing.T) {
	ix := NewContextIndex(map[string][]ContextCandidate{
		"#email": {
			{Text: "nearby", Source: SourceGenericNearby, Distance: 1},
			{Text: "label", Source: SourceExplicitLabel, Distance: 50},
			{Text: "placeholder", Source: SourcePlaceholder, Distance: 0},
		},
	})
	require.Equal(t, "label", ix.Best("#email"))
	require.Equal(t, "", ix.Best("#missing"))
}

func TestContextIndexAllPreservesRankOrder(t *testing.T) {
	ix := NewContextIndex(map[string][]ContextCandidate{
		"#tel": {
			{Text: "far-header", Source: SourceTableHeader, Distance: 20},
			{Text: "near-header", Source: SourceTableHeader, Distance: 5},
		},
	})
	all := ix.All("#tel")
	require.Len(t, all, 2)
	require.Equal(t, "near-header", all[0].Text)
}
