// Adapter from a live go-rod page to the browser-agnostic interfaces
// internal/input depends on. Grounded on the teacher's
// internal/browser/session_manager.go element-interaction helpers
// (native-first, JS-fallback click/fill idiom).
package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	inputpkg "github.com/form-sender/formrunner/internal/input"
)

// PageFrame adapts a *rod.Page to input.Frame, resolving every
// selector against the page's top-level document.
type PageFrame struct {
	Page *rod.Page
}

// Find resolves selector to a rodElement, waiting up to ctx's deadline.
func (f PageFrame) Find(ctx context.Context, selector string) (inputpkg.Element, error) {
	el, err := f.Page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	return rodElement{page: f.Page, el: el}, nil
}

// rodElement adapts a *rod.Element to input.Element.
type rodElement struct {
	page *rod.Page
	el   *rod.Element
}

func (r rodElement) Fill(ctx context.Context, value string) error {
	el := r.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	if err := el.Input(""); err != nil {
		return err
	}
	return el.Input(value)
}

func (r rodElement) ReadValue(ctx context.Context) (string, error) {
	return r.el.Context(ctx).Property("value").String(), nil
}

func (r rodElement) Check(ctx context.Context, checked bool) error {
	el := r.el.Context(ctx)
	current, err := r.IsChecked(ctx)
	if err != nil {
		return err
	}
	if current == checked {
		return nil
	}
	return el.Click(input.MouseButtonLeft, 1)
}

func (r rodElement) IsChecked(ctx context.Context) (bool, error) {
	val, err := r.el.Context(ctx).Property("checked")
	if err != nil {
		return false, err
	}
	return val.Bool(), nil
}

func (r rodElement) SelectByValue(ctx context.Context, value string) error {
	return r.el.Context(ctx).Select([]string{value}, true, rod.SelectorTypeText)
}

func (r rodElement) SelectByLabel(ctx context.Context, label string) error {
	return r.el.Context(ctx).Select([]string{label}, true, rod.SelectorTypeText)
}

func (r rodElement) SelectByIndex(ctx context.Context, index int) error {
	labels, err := r.OptionLabels(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(labels) {
		return fmt.Errorf("select index %d out of range (%d options)", index, len(labels))
	}
	return r.SelectByLabel(ctx, labels[index])
}

func (r rodElement) OptionLabels(ctx context.Context) ([]string, error) {
	res, err := r.el.Context(ctx).Eval(`() => Array.from(this.options).map(o => o.textContent.trim())`)
	if err != nil {
		return nil, err
	}
	var labels []string
	if err := res.Value.Unmarshal(&labels); err != nil {
		return nil, fmt.Errorf("unmarshal option labels: %w", err)
	}
	return labels, nil
}

func (r rodElement) JSSetChecked(ctx context.Context, checked bool) error {
	_, err := r.el.Context(ctx).Eval(`(checked) => {
		this.checked = checked;
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, checked)
	return err
}

func (r rodElement) ClosestLabelClick(ctx context.Context) error {
	_, err := r.el.Context(ctx).Eval(`() => {
		const id = this.id;
		let label = id ? document.querySelector('label[for="' + CSS.escape(id) + '"]') : null;
		if (!label) { label = this.closest('label'); }
		if (label) { label.click(); return true; }
		return false;
	}`)
	return err
}
