package split

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/model"
)

func fm(name string, order int, score float64, ctx ...string) model.FieldMapping {
	return model.FieldMapping{
		FieldName:    name,
		Element:      model.FormElement{InputOrderIndex: order},
		Score:        score,
		ContextTexts: ctx,
	}
}

func TestDetectAcceptsContiguousGroup(t *testing.T) {
	mapping := model.Mapping{
		"last_name":  fm("last_name", 0, 80),
		"first_name": fm("first_name", 1, 80),
	}
	groups := Detect(mapping, "")
	require.Len(t, groups, 1)
	require.Equal(t, model.SplitName, groups[0].Type)
	require.True(t, groups[0].ValidatedOrder)
}

func TestDetectRejectsNonContiguousGroupRegardlessOfScore(t *testing.T) {
	mapping := model.Mapping{
		"last_name":  fm("last_name", 0, 100),
		"first_name": fm("first_name", 5, 100),
	}
	groups := Detect(mapping, "")
	require.Empty(t, groups, "a gap in input order must reject the group even with high scores")
}

func TestDetectRejectsWhenAnyMemberHasNoInputOrder(t *testing.T) {
	mapping := model.Mapping{
		"phone_1": fm("phone_1", -1, 80),
		"phone_2": fm("phone_2", 0, 80),
	}
	groups := Detect(mapping, "")
	require.Empty(t, groups)
}

func TestDetectRequiresAtLeastTwoMembers(t *testing.T) {
	mapping := model.Mapping{
		"phone_1": fm("phone_1", 0, 80),
	}
	groups := Detect(mapping, "")
	require.Empty(t, groups)
}

func TestDetectSortsMembersByInputOrderBeforeChecking(t *testing.T) {
	mapping := model.Mapping{
		"first_name": fm("first_name", 1, 80),
		"last_name":  fm("last_name", 0, 80),
	}
	groups := Detect(mapping, "")
	require.Len(t, groups, 1)
	require.Equal(t, "last_name", groups[0].Members[0].FieldName)
	require.Equal(t, "first_name", groups[0].Members[1].FieldName)
}

func TestConfidenceScoreZeroWhenNotContiguous(t *testing.T) {
	members := []model.FieldMapping{fm("a", 0, 80), fm("b", 9, 80)}
	require.Equal(t, 0.0, confidenceScore(model.SplitName, members, false))
}

func TestPatternNameByType(t *testing.T) {
	require.Equal(t, "address-3-split", patternName(model.SplitAddress, 3))
	require.Equal(t, "phone-2-split", patternName(model.SplitPhone, 2))
	require.Equal(t, "name-2-split", patternName(model.SplitName, 2))
}

func TestInferStrategyDefaultsToSplit(t *testing.T) {
	require.Equal(t, model.StrategySplit, inferStrategy(""))
}

func TestInferStrategyDetectsCombineIntent(t *testing.T) {
	require.Equal(t, model.StrategyCombine, inferStrategy("住所はまとめて入力してください"))
}

func TestInferStrategyDetectsSplitIntentExplicitly(t *testing.T) {
	require.Equal(t, model.StrategySplit, inferStrategy("please enter each part separately (enter each)"))
}

func TestAssignCombinedValueSetsExistingFieldOnly(t *testing.T) {
	mapping := model.Mapping{
		"address_1": model.FieldMapping{FieldName: "address_1"},
	}
	AssignCombinedValue("address_1", "東京都千代田区1-1-1", mapping)
	require.Equal(t, "東京都千代田区1-1-1", mapping["address_1"].Value)

	AssignCombinedValue("missing_field", "x", mapping)
	_, ok := mapping["missing_field"]
	require.False(t, ok)
}
