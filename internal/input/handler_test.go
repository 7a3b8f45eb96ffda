package input

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/model"
)

type fakeElement struct {
	value          string
	checked        bool
	checkErr       error
	closestLabelOK bool
	jsSetCalled    bool
	options        []string
}

func (e *fakeElement) Fill(ctx context.Context, value string) error {
	e.value = value
	return nil
}
func (e *fakeElement) ReadValue(ctx context.Context) (string, error) { return e.value, nil }
func (e *fakeElement) Check(ctx context.Context, checked bool) error {
	if e.checkErr != nil {
		return e.checkErr
	}
	e.checked = checked
	return nil
}
func (e *fakeElement) IsChecked(ctx context.Context) (bool, error) { return e.checked, nil }
func (e *fakeElement) SelectByValue(ctx context.Context, value string) error {
	return errors.New("no matching value")
}
func (e *fakeElement) SelectByLabel(ctx context.Context, label string) error {
	return errors.New("no matching label")
}
func (e *fakeElement) SelectByIndex(ctx context.Context, index int) error {
	if index < 0 || index >= len(e.options) {
		return errors.New("index out of range")
	}
	e.value = e.options[index]
	return nil
}
func (e *fakeElement) OptionLabels(ctx context.Context) ([]string, error) { return e.options, nil }
func (e *fakeElement) JSSetChecked(ctx context.Context, checked bool) error {
	e.jsSetCalled = true
	e.checked = checked
	return nil
}
func (e *fakeElement) ClosestLabelClick(ctx context.Context) error {
	if e.closestLabelOK {
		e.checked = !e.checked
		return nil
	}
	return errors.New("no associated label")
}

type fakeFrame struct {
	elements map[string]*fakeElement
}

func (f *fakeFrame) Find(ctx context.Context, selector string) (Element, error) {
	el, ok := f.elements[selector]
	if !ok {
		return nil, errors.New("not found: " + selector)
	}
	return el, nil
}

func TestFillOneTextVerifiesWrittenValue(t *testing.T) {
	el := &fakeElement{}
	h := New(&fakeFrame{elements: map[string]*fakeElement{"#email": el}})
	err := h.FillOne(context.Background(), model.InputAssignment{Selector: "#email", InputType: "email", Value: "taro@example.com"})
	require.NoError(t, err)
	require.Equal(t, "taro@example.com", el.value)
	require.True(t, h.InitiallyFilled["#email"])
}

func TestFillOneCheckboxFallsBackThroughChain(t *testing.T) {
	el := &fakeElement{checkErr: errors.New("direct check unsupported"), closestLabelOK: false}
	h := New(&fakeFrame{elements: map[string]*fakeElement{"#agree": el}})
	err := h.FillOne(context.Background(), model.InputAssignment{Selector: "#agree", InputType: "checkbox", Value: "true"})
	require.NoError(t, err)
	require.True(t, el.jsSetCalled)
	require.True(t, el.checked)
}

func TestFillOneCheckboxSucceedsViaClosestLabelWhenDirectCheckFails(t *testing.T) {
	el := &fakeElement{checkErr: errors.New("direct check unsupported"), closestLabelOK: true, checked: false}
	h := New(&fakeFrame{elements: map[string]*fakeElement{"#agree": el}})
	err := h.FillOne(context.Background(), model.InputAssignment{Selector: "#agree", InputType: "checkbox", Value: "true"})
	require.NoError(t, err)
	require.False(t, el.jsSetCalled)
	require.True(t, el.checked)
}

func TestFillOneSelectPrefersBusinessContactTokenOverOther(t *testing.T) {
	el := &fakeElement{options: []string{"選択してください", "その他", "法人のお客様"}}
	h := New(&fakeFrame{elements: map[string]*fakeElement{"#type": el}})
	err := h.FillOne(context.Background(), model.InputAssignment{Selector: "#type", InputType: "select", AutoAction: model.ActionSelectByAlgorithm})
	require.NoError(t, err)
	require.Equal(t, "法人のお客様", el.value)
}

func TestFillOneSelectFallsBackToLastNonBlankOption(t *testing.T) {
	el := &fakeElement{options: []string{"選択してください", "　", "個人のお客様"}}
	h := New(&fakeFrame{elements: map[string]*fakeElement{"#type": el}})
	err := h.FillOne(context.Background(), model.InputAssignment{Selector: "#type", InputType: "select", AutoAction: model.ActionSelectByAlgorithm})
	require.NoError(t, err)
	require.Equal(t, "個人のお客様", el.value)
}

func TestFillOneRadioChecksDirectly(t *testing.T) {
	el := &fakeElement{}
	h := New(&fakeFrame{elements: map[string]*fakeElement{"#male": el}})
	err := h.FillOne(context.Background(), model.InputAssignment{Selector: "#male", InputType: "radio"})
	require.NoError(t, err)
	require.True(t, el.checked)
}

func TestFillOnePropagatesFindError(t *testing.T) {
	h := New(&fakeFrame{elements: map[string]*fakeElement{}})
	err := h.FillOne(context.Background(), model.InputAssignment{Selector: "#missing", InputType: "text"})
	require.Error(t, err)
}

func TestFillAppliesEveryPlanEntry(t *testing.T) {
	nameEl := &fakeElement{}
	emailEl := &fakeElement{}
	h := New(&fakeFrame{elements: map[string]*fakeElement{"#name": nameEl, "#email": emailEl}})
	plan := model.Plan{
		"last_name": model.InputAssignment{Selector: "#name", InputType: "text", Value: "Yamada"},
		"email":      model.InputAssignment{Selector: "#email", InputType: "email", Value: "taro@example.com"},
	}
	err := h.Fill(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, "Yamada", nameEl.value)
	require.Equal(t, "taro@example.com", emailEl.value)
}
