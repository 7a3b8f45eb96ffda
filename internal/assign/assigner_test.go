package assign

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/catalog"
	"github.com/form-sender/formrunner/internal/model"
)

func TestAssignRendersSubjectFromTargetingTemplateNotMessage(t *testing.T) {
	client := model.Client{LastName: "山田"}
	a := New(client, "{client.last_name}様への件名", "this is the message body", "")
	mapping := model.Mapping{
		catalog.FieldSubject:     model.FieldMapping{FieldName: catalog.FieldSubject},
		catalog.FieldMessageBody: model.FieldMapping{FieldName: catalog.FieldMessageBody},
	}
	out := a.Assign(mapping)
	require.Equal(t, "山田様への件名", out[catalog.FieldSubject].Value)
	require.Equal(t, "this is the message body", out[catalog.FieldMessageBody].Value)
}

func TestAssignMessageBodyPrefersContextTemplate(t *testing.T) {
	a := New(model.Client{}, "subject", "default message", "見積もりに関するお問い合わせ")
	mapping := model.Mapping{catalog.FieldMessageBody: model.FieldMapping{FieldName: catalog.FieldMessageBody}}
	out := a.Assign(mapping)
	require.Equal(t, "見積もりについてご相談がございます。", out[catalog.FieldMessageBody].Value)
}

func TestAssignMessageBodyFallsBackWithoutContextMatch(t *testing.T) {
	a := New(model.Client{}, "subject", "default message", "no matching keyword here")
	mapping := model.Mapping{catalog.FieldMessageBody: model.FieldMapping{FieldName: catalog.FieldMessageBody}}
	out := a.Assign(mapping)
	require.Equal(t, "default message", out[catalog.FieldMessageBody].Value)
}

func TestPhoneValueUsesHyphenatedWhenPlaceholderSuggestsIt(t *testing.T) {
	client := model.Client{Phone1: "03", Phone2: "1234", Phone3: "5678"}
	a := New(client, "", "", "")
	hyphenated := a.phoneValue(model.FieldMapping{Element: model.FormElement{Placeholder: "000-0000-0000"}})
	plain := a.phoneValue(model.FieldMapping{Element: model.FormElement{Placeholder: "00000000000"}})
	require.Equal(t, "03-1234-5678", hyphenated)
	require.Equal(t, "0312345678", plain)
}

func TestResolveAddressAuxPicksBuildingPortionOnContextCue(t *testing.T) {
	client := model.Client{Address2: "千代田区", Address3: "1-1", Address4: "ビル501"}
	a := New(client, "", "", "")
	building := a.resolveAddressAux(model.FieldMapping{Element: model.FormElement{LabelText: "建物名"}})
	ward := a.resolveAddressAux(model.FieldMapping{Element: model.FormElement{LabelText: "市区町村"}})
	require.Equal(t, "1-1ビル501", building)
	require.Equal(t, "千代田区", ward)
}

func TestSelectEligibleOnlyGenderAndPrefecture(t *testing.T) {
	require.True(t, SelectEligible(catalog.FieldGender))
	require.True(t, SelectEligible(catalog.FieldPrefecture))
	require.False(t, SelectEligible(catalog.FieldCompanyName))
}

func TestCorrectNameSwapFixesReversedPlaceholders(t *testing.T) {
	mapping := model.Mapping{
		catalog.FieldLastName:  model.FieldMapping{Value: "Taro", Element: model.FormElement{Placeholder: "First name"}},
		catalog.FieldFirstName: model.FieldMapping{Value: "Yamada", Element: model.FormElement{Placeholder: "Last name"}},
	}
	CorrectNameSwap(mapping)
	require.Equal(t, "Yamada", mapping[catalog.FieldLastName].Value)
	require.Equal(t, "Taro", mapping[catalog.FieldFirstName].Value)
}

func TestCorrectNameSwapNoOpWhenPlaceholdersMatchExpected(t *testing.T) {
	mapping := model.Mapping{
		catalog.FieldLastName:  model.FieldMapping{Value: "Yamada", Element: model.FormElement{Placeholder: "Last name"}},
		catalog.FieldFirstName: model.FieldMapping{Value: "Taro", Element: model.FormElement{Placeholder: "First name"}},
	}
	CorrectNameSwap(mapping)
	require.Equal(t, "Yamada", mapping[catalog.FieldLastName].Value)
	require.Equal(t, "Taro", mapping[catalog.FieldFirstName].Value)
}

func TestBlankAutoRequiredTextNearOtherRadioOnlyAffectsMatchingPrefix(t *testing.T) {
	mapping := model.Mapping{
		"auto_required_text_1": model.FieldMapping{Value: "placeholder text"},
		catalog.FieldCompanyName: model.FieldMapping{Value: "Acme"},
	}
	BlankAutoRequiredTextNearOtherRadio(mapping, "auto_required_text_1")
	BlankAutoRequiredTextNearOtherRadio(mapping, catalog.FieldCompanyName)
	require.Equal(t, "", mapping["auto_required_text_1"].Value)
	require.Equal(t, "Acme", mapping[catalog.FieldCompanyName].Value)
}
