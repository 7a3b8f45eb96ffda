package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/model"
)

func TestScoreExcludesInvisibleElement(t *testing.T) {
	e := model.FormElement{Tag: "input", Type: "email", Name: "email", Visible: false, Enabled: true}
	score, _ := Score(e, catalog.ByName[catalog.FieldEmail], catalog.DefaultSettings(), nil)
	require.Equal(t, Excluded, score)
}

func TestScoreEmailInputScoresHighlyOnTypeAndName(t *testing.T) {
	e := model.FormElement{Tag: "input", Type: "email", Name: "email", Visible: true, Enabled: true}
	score, detail := Score(e, catalog.ByName[catalog.FieldEmail], catalog.DefaultSettings(), nil)
	require.Greater(t, score, catalog.ByName[catalog.FieldEmail].ScoreFloor)
	require.Greater(t, detail.TagTypeFit, 0.0)
	require.Greater(t, detail.AttributeTokens, 0.0)
}

func TestScoreExcludesConfirmationTokenForPrimaryEmail(t *testing.T) {
	e := model.FormElement{Tag: "input", Type: "email", Name: "email_confirm", Visible: true, Enabled: true}
	score, _ := Score(e, catalog.ByName[catalog.FieldEmail], catalog.DefaultSettings(), nil)
	require.Equal(t, Excluded, score)
}

func TestRequiredPhoneGetsLargeBoost(t *testing.T) {
	e := model.FormElement{Tag: "input", Type: "tel", Name: "tel1", Required: true, Visible: true, Enabled: true}
	_, detail := Score(e, catalog.ByName[catalog.FieldPhone1], catalog.DefaultSettings(), nil)
	require.Equal(t, catalog.DefaultSettings().RequiredPhoneBoost, detail.RequiredBonus)
}

func TestAttrCacheMemoizesSearchableText(t *testing.T) {
	cache := NewAttrCache()
	e := model.FormElement{Ref: model.ElementRef{Selector: "#a"}, Name: "email", Visible: true, Enabled: true}
	first := cache.searchable(e)
	e.Name = "changed"
	second := cache.searchable(e)
	require.Equal(t, first, second)
}

func TestAcceptsAppliesQualityBoostUnderCrowding(t *testing.T) {
	p := catalog.ByName[catalog.FieldEmail]
	settings := catalog.DefaultSettings()
	require.True(t, Accepts(p.ScoreFloor, p, settings, 1))
	require.False(t, Accepts(p.ScoreFloor, p, settings, 10))
}
