// internal/browser/element.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// element is a node handle resolved on a Page.
type element struct {
	page *Page
	node *cdp.Node
}

var _ schemas.Element = (*element)(nil)

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *element) Clear(ctx context.Context) error {
	return e.page.run(ctx, chromedp.Clear(e.ids(), chromedp.ByNodeID))
}

func (e *element) SendKeys(ctx context.Context, keys string) error {
	return e.page.run(ctx, chromedp.SendKeys(e.ids(), keys, chromedp.ByNodeID))
}

func (e *element) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID))
}

const textJS = `function() {
	return (this.innerText || this.textContent || '').trim();
}`

// Text returns the rendered text of the element. Hidden elements report
// their text content instead of blocking until visible.
func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.call(ctx, textJS, &text); err != nil {
		return "", fmt.Errorf("failed to read element text: %w", err)
	}
	return text, nil
}

// selectJS picks an option on a <select> and fires the events a user
// selection would. It returns a JSON outcome string.
const selectJS = `function(mode, arg) {
	const out = (ok, reason) => JSON.stringify({ok: ok, reason: reason || '', options: this.options ? this.options.length : 0});
	if (this.tagName !== 'SELECT') {
		return out(false, 'element is a ' + this.tagName.toLowerCase() + ', not a select');
	}
	const opts = Array.from(this.options);
	let idx = -1;
	if (mode === 'value') {
		idx = opts.findIndex(o => o.value === arg);
	} else if (mode === 'index') {
		idx = (arg >= 0 && arg < opts.length) ? arg : -1;
	} else {
		idx = opts.findIndex(o => o.text.trim() === String(arg).trim());
	}
	if (idx < 0) {
		return out(false, 'no matching option');
	}
	this.selectedIndex = idx;
	this.dispatchEvent(new Event('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return out(true);
}`

type selectOutcome struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason"`
	Options int    `json:"options"`
}

func (e *element) selectOption(ctx context.Context, mode string, arg interface{}) error {
	var raw string
	if err := e.call(ctx, selectJS, &raw, mode, arg); err != nil {
		return fmt.Errorf("select by %s: %w", mode, err)
	}
	var res selectOutcome
	if err := json.UnmarshalFromString(raw, &res); err != nil {
		return fmt.Errorf("select by %s: unexpected script result %q: %w", mode, raw, err)
	}
	if !res.OK {
		// A missing option is reported like a missing element.
		return fmt.Errorf("select by %s %v (%d options): %s: %w",
			mode, arg, res.Options, res.Reason, schemas.ErrElementNotFound)
	}
	return nil
}

func (e *element) SelectByValue(ctx context.Context, value string) error {
	return e.selectOption(ctx, "value", value)
}

func (e *element) SelectByIndex(ctx context.Context, index int) error {
	return e.selectOption(ctx, "index", index)
}

func (e *element) SelectByVisibleText(ctx context.Context, text string) error {
	return e.selectOption(ctx, "visible", text)
}

// call invokes a function declaration with the element bound to this.
func (e *element) call(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	return e.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve node: %w", err)
		}
		return chromedp.CallFunctionOn(fn, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
	}))
}
