// DOM snapshot extraction: turns a live go-rod page into the plain data
// structures internal/analyzer and internal/judge operate on, so those
// packages stay free of any browser-automation dependency. Grounded on
// the teacher's internal/browser/honeypot.go DOM-walk style (one JS
// Eval collecting every candidate element's attributes in a single
// round trip, classified afterward in Go).
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"

	"github.com/form-sender/formrunner/internal/judge"
	"github.com/form-sender/formrunner/internal/model"
	"github.com/form-sender/formrunner/internal/structure"
)

// rawForm is the per-<form> summary the extraction script returns.
type rawForm struct {
	Index         int    `json:"index"`
	TextareaCount int    `json:"textareaCount"`
	EmailCount    int    `json:"emailCount"`
	TextCount     int    `json:"textCount"`
	SelectCount   int    `json:"selectCount"`
	RequiredCount int    `json:"requiredCount"`
	ButtonText    string `json:"buttonText"`
	Visible       bool   `json:"visible"`
}

// rawElement is one form-field descriptor the extraction script returns.
type rawElement struct {
	Selector       string  `json:"selector"`
	Tag            string  `json:"tag"`
	Type           string  `json:"type"`
	Name           string  `json:"name"`
	ID             string  `json:"id"`
	Class          string  `json:"class"`
	Placeholder    string  `json:"placeholder"`
	Visible        bool    `json:"visible"`
	Enabled        bool    `json:"enabled"`
	Required       bool    `json:"required"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	AssociatedText string  `json:"associatedText"`
	NearbyText     string  `json:"nearbyText"`
	LabelText      string  `json:"labelText"`
	ParentTag      string  `json:"parentTag"`
	InputOrder     int     `json:"inputOrder"`
}

// formsExtractionScript collects one summary record per <form> on the
// page, scored inputs by structure.ScoreForm in Go afterward.
const formsExtractionScript = `
() => {
  const forms = Array.from(document.querySelectorAll('form'));
  const visible = (el) => {
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };
  return forms.map((f, i) => {
    const inputs = Array.from(f.querySelectorAll('input, textarea, select'));
    let textareaCount = 0, emailCount = 0, textCount = 0, selectCount = 0, requiredCount = 0;
    for (const el of inputs) {
      const tag = el.tagName.toLowerCase();
      const type = (el.getAttribute('type') || 'text').toLowerCase();
      if (tag === 'textarea') textareaCount++;
      else if (tag === 'select') selectCount++;
      else if (type === 'email') emailCount++;
      else if (type === 'text' || type === '') textCount++;
      if (el.required) requiredCount++;
    }
    const btn = f.querySelector('button, input[type=submit]');
    return {
      index: i,
      textareaCount, emailCount, textCount, selectCount, requiredCount,
      buttonText: btn ? (btn.textContent || btn.value || '').trim() : '',
      visible: visible(f),
    };
  });
}
`

// elementsExtractionScript collects one descriptor per input-like
// element strictly within the form at formIndex, in DOM order.
const elementsExtractionScript = `
(formIndex) => {
  const forms = document.querySelectorAll('form');
  const form = forms[formIndex];
  if (!form) return [];
  const nodes = Array.from(form.querySelectorAll('input, textarea, select, button'));
  const textOf = (el) => (el.textContent || '').trim().slice(0, 200);
  const nearby = (el) => {
    const parent = el.parentElement;
    return parent ? textOf(parent).slice(0, 200) : '';
  };
  const labelFor = (el) => {
    if (el.id) {
      const lab = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
      if (lab) return textOf(lab);
    }
    const closest = el.closest('label');
    return closest ? textOf(closest) : '';
  };
  const selectorFor = (el, i) => {
    if (el.id) return '#' + CSS.escape(el.id);
    if (el.name) return '[name="' + CSS.escape(el.name) + '"]';
    return 'form:nth-of-type(' + (formIndex + 1) + ') *:nth-child(' + (i + 1) + ')';
  };
  let order = 0;
  return nodes.map((el, i) => {
    const rect = el.getBoundingClientRect();
    const tag = el.tagName.toLowerCase();
    const type = (el.getAttribute('type') || (tag === 'input' ? 'text' : tag)).toLowerCase();
    const isInputLike = ['text','email','tel','url','password','checkbox','radio'].includes(type) || tag === 'textarea' || tag === 'select';
    const inputOrder = isInputLike ? order++ : -1;
    return {
      selector: selectorFor(el, i),
      tag, type,
      name: el.getAttribute('name') || '',
      id: el.id || '',
      class: el.className || '',
      placeholder: el.getAttribute('placeholder') || '',
      visible: rect.width > 0 && rect.height > 0,
      enabled: !el.disabled,
      required: !!el.required,
      x: rect.x, y: rect.y, width: rect.width, height: rect.height,
      associatedText: labelFor(el),
      nearbyText: nearby(el),
      labelText: labelFor(el),
      parentTag: el.parentElement ? el.parentElement.tagName.toLowerCase() : '',
      inputOrder,
    };
  });
}
`

// TakeFormSnapshot builds the analyzer's FormSnapshot input from a live
// page: one FormCandidate per <form>, and the full element list for
// every form (the analyzer itself decides which form to commit to via
// structure.SelectForm, then only that form's elements matter).
func TakeFormSnapshot(ctx context.Context, page *rod.Page) (candidates []structure.FormCandidate, elementsByForm map[int][]model.FormElement, err error) {
	p := page.Context(ctx)

	res, err := p.Eval(formsExtractionScript)
	if err != nil {
		return nil, nil, fmt.Errorf("extract forms: %w", err)
	}
	var rawForms []rawForm
	if err := res.Value.Unmarshal(&rawForms); err != nil {
		return nil, nil, fmt.Errorf("unmarshal forms: %w", err)
	}

	elementsByForm = make(map[int][]model.FormElement, len(rawForms))
	for _, rf := range rawForms {
		candidates = append(candidates, structure.FormCandidate{
			Index:         rf.Index,
			TextareaCount: rf.TextareaCount,
			EmailCount:    rf.EmailCount,
			TextCount:     rf.TextCount,
			SelectCount:   rf.SelectCount,
			RequiredCount: rf.RequiredCount,
			ButtonText:    rf.ButtonText,
			Visible:       rf.Visible,
		})

		elRes, err := p.Eval(elementsExtractionScript, rf.Index)
		if err != nil {
			return nil, nil, fmt.Errorf("extract elements for form %d: %w", rf.Index, err)
		}
		var rawEls []rawElement
		if err := elRes.Value.Unmarshal(&rawEls); err != nil {
			return nil, nil, fmt.Errorf("unmarshal elements for form %d: %w", rf.Index, err)
		}

		elements := make([]model.FormElement, 0, len(rawEls))
		for _, re := range rawEls {
			handle, herr := p.Element(re.Selector)
			var ref model.ElementRef
			if herr == nil {
				ref = model.ElementRef{Handle: handle, Selector: re.Selector}
			} else {
				ref = model.ElementRef{Selector: re.Selector}
			}
			elements = append(elements, model.FormElement{
				Ref:             ref,
				Tag:             re.Tag,
				Type:            re.Type,
				Name:            re.Name,
				ID:              re.ID,
				Class:           re.Class,
				Placeholder:     re.Placeholder,
				Visible:         re.Visible,
				Enabled:         re.Enabled,
				Required:        re.Required,
				X:               re.X,
				Y:               re.Y,
				Width:           re.Width,
				Height:          re.Height,
				AssociatedText:  re.AssociatedText,
				NearbyText:      re.NearbyText,
				LabelText:       re.LabelText,
				SiblingIndex:    -1,
				ParentTag:       re.ParentTag,
				InputOrderIndex: re.InputOrder,
			})
		}
		elementsByForm[rf.Index] = elements
	}

	return candidates, elementsByForm, nil
}

// judgeSnapshotScript gathers the page-level counters the judge's
// stages compare pre- and post-submission.
const judgeSnapshotScript = `
() => {
  const visible = (el) => {
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };
  const forms = document.querySelectorAll('form').length;
  const inputs = document.querySelectorAll('input, textarea, select').length;
  const submits = Array.from(document.querySelectorAll('button, input[type=submit]')).filter(visible).length;
  return {
    bodyText: (document.body ? document.body.innerText : '').slice(0, 20000),
    formCount: forms,
    inputCount: inputs,
    visibleSubmitButtonCount: submits,
    title: document.title || '',
  };
}
`

type rawJudgeSnapshot struct {
	BodyText                 string `json:"bodyText"`
	FormCount                int    `json:"formCount"`
	InputCount                int    `json:"inputCount"`
	VisibleSubmitButtonCount int    `json:"visibleSubmitButtonCount"`
	Title                    string `json:"title"`
}

// TakeJudgeSnapshot captures the current page state as a judge.Snapshot.
func TakeJudgeSnapshot(ctx context.Context, page *rod.Page) (judge.Snapshot, error) {
	p := page.Context(ctx)
	res, err := p.Eval(judgeSnapshotScript)
	if err != nil {
		return judge.Snapshot{}, fmt.Errorf("extract judge snapshot: %w", err)
	}
	var raw rawJudgeSnapshot
	if err := res.Value.Unmarshal(&raw); err != nil {
		return judge.Snapshot{}, fmt.Errorf("unmarshal judge snapshot: %w", err)
	}

	info, err := p.Info()
	url := ""
	if err == nil && info != nil {
		url = info.URL
	}

	return judge.Snapshot{
		URL:                      url,
		BodyText:                 strings.TrimSpace(raw.BodyText),
		FormCount:                raw.FormCount,
		InputCount:               raw.InputCount,
		VisibleSubmitButtonCount: raw.VisibleSubmitButtonCount,
		Title:                    raw.Title,
	}, nil
}
