// Package input implements the input handler (spec.md §4.13): operates
// on a single frame context, filling text-like inputs with verification,
// selects via a multi-stage strategy, checkboxes/radios via fallback
// chains. Defined against a small Frame/Element interface so it is
// testable without a live browser; internal/browser supplies the
// go-rod-backed implementation. Grounded on spec.md §4.13 and the
// teacher's internal/browser/session_manager.go Click/Type helpers,
// which already establish the "try the direct API, then fall back to JS
// evaluation" idiom this package generalizes across every input type.
package input

import (
	"context"
	"fmt"
	"strings"

	"github.com/form-sender/formrunner/internal/model"
)

// Element is the minimal DOM element surface the input handler needs.
// internal/browser's rod-backed type satisfies this.
type Element interface {
	Fill(ctx context.Context, value string) error
	ReadValue(ctx context.Context) (string, error)
	Check(ctx context.Context, checked bool) error
	IsChecked(ctx context.Context) (bool, error)
	SelectByValue(ctx context.Context, value string) error
	SelectByLabel(ctx context.Context, label string) error
	SelectByIndex(ctx context.Context, index int) error
	OptionLabels(ctx context.Context) ([]string, error)
	JSSetChecked(ctx context.Context, checked bool) error
	ClosestLabelClick(ctx context.Context) error
}

// Frame resolves a selector to an Element within one frame (main page or
// a form-bearing iframe), chosen once at analysis time and reused
// through submission (spec.md §4.13).
type Frame interface {
	Find(ctx context.Context, selector string) (Element, error)
}

// Handler fills a Plan's assignments into a Frame, recording which
// selectors were successfully filled for the retry path.
type Handler struct {
	Frame           Frame
	InitiallyFilled map[string]bool
}

// New constructs a Handler bound to frame.
func New(frame Frame) *Handler {
	return &Handler{Frame: frame, InitiallyFilled: map[string]bool{}}
}

// Fill applies every assignment in plan, in map iteration order (callers
// needing a stable order should iterate plan deterministically before
// calling Fill per-field via FillOne).
func (h *Handler) Fill(ctx context.Context, plan model.Plan) error {
	for _, assignment := range plan {
		if err := h.FillOne(ctx, assignment); err != nil {
			return err
		}
	}
	return nil
}

// FillOne applies one assignment, dispatching by input type.
func (h *Handler) FillOne(ctx context.Context, a model.InputAssignment) error {
	el, err := h.Frame.Find(ctx, a.Selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", a.Selector, err)
	}

	switch a.InputType {
	case "text", "email", "tel", "url", "password", "textarea":
		if err := h.fillText(ctx, el, a); err != nil {
			return err
		}
	case "select", "select-one":
		if err := h.fillSelect(ctx, el, a); err != nil {
			return err
		}
	case "checkbox":
		if err := h.fillCheckbox(ctx, el, a); err != nil {
			return err
		}
	case "radio":
		if err := el.Check(ctx, true); err != nil {
			return fmt.Errorf("check radio %s: %w", a.Selector, err)
		}
	default:
		if err := h.fillText(ctx, el, a); err != nil {
			return err
		}
	}

	h.InitiallyFilled[a.Selector] = true
	return nil
}

func (h *Handler) fillText(ctx context.Context, el Element, a model.InputAssignment) error {
	if err := el.Fill(ctx, a.Value); err != nil {
		return fmt.Errorf("fill %s: %w", a.Selector, err)
	}
	got, err := el.ReadValue(ctx)
	if err != nil {
		return fmt.Errorf("verify %s: %w", a.Selector, err)
	}
	if got != a.Value {
		return fmt.Errorf("fill verification mismatch for %s: want %q got %q", a.Selector, a.Value, got)
	}
	return nil
}

// fillSelect applies spec.md §4.13's select strategy, in order:
// auto_action directives (by index or algorithm), then by value, then by
// label, then the three-stage algorithm.
func (h *Handler) fillSelect(ctx context.Context, el Element, a model.InputAssignment) error {
	switch a.AutoAction {
	case model.ActionSelectIndex:
		return el.SelectByIndex(ctx, 0)
	case model.ActionSelectByAlgorithm:
		return h.selectByAlgorithm(ctx, el)
	}

	if a.Value != "" {
		if err := el.SelectByValue(ctx, a.Value); err == nil {
			return nil
		}
		if err := el.SelectByLabel(ctx, a.Value); err == nil {
			return nil
		}
	}

	return h.selectByAlgorithm(ctx, el)
}

// businessContactTokens and otherTokens drive the three-stage select
// algorithm's preference order (spec.md §4.13).
var businessContactTokens = []string{"法人", "企業", "business", "会社", "商談", "お問い合わせ"}
var otherTokens = []string{"その他", "other", "none", "なし"}

func (h *Handler) selectByAlgorithm(ctx context.Context, el Element) error {
	labels, err := el.OptionLabels(ctx)
	if err != nil {
		return fmt.Errorf("read option labels: %w", err)
	}

	for i, label := range labels {
		for _, tok := range businessContactTokens {
			if strings.Contains(label, tok) {
				return el.SelectByIndex(ctx, i)
			}
		}
	}
	for i, label := range labels {
		for _, tok := range otherTokens {
			if strings.Contains(label, tok) {
				return el.SelectByIndex(ctx, i)
			}
		}
	}
	for i := len(labels) - 1; i >= 0; i-- {
		if strings.TrimSpace(strings.Trim(labels[i], "　")) != "" {
			return el.SelectByIndex(ctx, i)
		}
	}
	return fmt.Errorf("no selectable option found")
}

// fillCheckbox applies spec.md §4.13's checkbox fallback chain:
// check/uncheck, then label[for=], closest label, then JS checked+events.
func (h *Handler) fillCheckbox(ctx context.Context, el Element, a model.InputAssignment) error {
	want := a.Value == "true" || a.Value == "on" || a.Value == "1"

	if err := el.Check(ctx, want); err == nil {
		if got, err := el.IsChecked(ctx); err == nil && got == want {
			return nil
		}
	}

	if err := el.ClosestLabelClick(ctx); err == nil {
		if got, err := el.IsChecked(ctx); err == nil && got == want {
			return nil
		}
	}

	return el.JSSetChecked(ctx, want)
}
