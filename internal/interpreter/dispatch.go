// internal/interpreter/dispatch.go
package interpreter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/script"
	"github.com/xkilldash9x/scriptwalk/internal/slicing"
)

// dispatch runs one operation node.
func (in *Interpreter) dispatch(ctx context.Context, state *RunState, node *script.Node, f frame) error {
	tag, ok := node.Scalar(script.KeyOperation)
	if !ok {
		opNode, _ := node.Get(script.KeyOperation)
		return in.wrap("", node, f, malformed("%s tag must be a scalar, got %s", script.KeyOperation, kindOf(opNode)))
	}
	op, err := script.ParseOperation(tag)
	if err != nil {
		return in.wrap(tag, node, f, malformed("%v", err))
	}

	in.logger.Debug("Executing operation",
		zap.String("operation", op.String()),
		zap.String("path", f.path),
		zap.Int("depth", f.depth),
		zap.Stringp("loop_value", f.loopValue))

	a := in.argsFor(node, f)
	switch op {
	case script.OpSelect:
		err = in.selectOption(ctx, a)
	case script.OpKeys:
		err = in.keys(ctx, a)
	case script.OpWait:
		err = in.wait(ctx, a)
	case script.OpCaptureList:
		err = in.captureList(ctx, state, a)
	case script.OpLoop:
		err = in.loop(ctx, state, a)
	case script.OpClick:
		err = in.click(ctx, a)
	case script.OpClickListItem:
		err = in.clickListItem(ctx, a)
	case script.OpSnapshot:
		err = in.snapshot(ctx, state, f)
	default:
		err = malformed("operation %s has no handler", op)
	}
	if err != nil {
		return in.wrap(op.String(), node, f, err)
	}
	return nil
}

func (in *Interpreter) selectOption(ctx context.Context, a args) error {
	loc, err := a.locator()
	if err != nil {
		return err
	}
	by, err := a.required(fieldSelectBy)
	if err != nil {
		return err
	}
	value, err := a.required(fieldValue)
	if err != nil {
		return err
	}

	// Resolve the mode before touching the page.
	var choose func(schemas.Element) error
	switch by {
	case "value":
		choose = func(el schemas.Element) error { return el.SelectByValue(ctx, value) }
	case "index":
		idx, err := a.integer(fieldValue)
		if err != nil {
			return err
		}
		choose = func(el schemas.Element) error { return el.SelectByIndex(ctx, idx) }
	case "visible":
		choose = func(el schemas.Element) error { return el.SelectByVisibleText(ctx, value) }
	default:
		return malformed("selectBy must be one of value, index, visible; got %q", by)
	}

	el, err := in.browser.FindElement(ctx, loc)
	if err != nil {
		return fmt.Errorf("locating %s: %w", loc, err)
	}
	return choose(el)
}

func (in *Interpreter) keys(ctx context.Context, a args) error {
	loc, err := a.locator()
	if err != nil {
		return err
	}
	value, err := a.required(fieldValue)
	if err != nil {
		return err
	}
	el, err := in.browser.FindElement(ctx, loc)
	if err != nil {
		return fmt.Errorf("locating %s: %w", loc, err)
	}
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("clearing %s: %w", loc, err)
	}
	return in.typeText(ctx, el, value)
}

// typeText sends text one character at a time, spaced by KeystrokeDelay.
func (in *Interpreter) typeText(ctx context.Context, el schemas.Element, text string) error {
	limit := rate.Inf
	if in.opts.KeystrokeDelay > 0 {
		limit = rate.Every(in.opts.KeystrokeDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, r := range text {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("keystroke pacing interrupted: %w", err)
		}
		if err := el.SendKeys(ctx, string(r)); err != nil {
			return fmt.Errorf("sending keystroke: %w", err)
		}
	}
	return nil
}

func (in *Interpreter) wait(ctx context.Context, a args) error {
	loc, err := a.locator()
	if err != nil {
		return err
	}
	timeout, err := a.timeout(in.opts.DefaultWaitTimeout)
	if err != nil {
		return err
	}
	if err := in.browser.WaitVisible(ctx, loc, timeout); err != nil {
		return fmt.Errorf("waiting %s for %s: %w", timeout, loc, err)
	}
	return nil
}

func (in *Interpreter) captureList(ctx context.Context, state *RunState, a args) error {
	loc, err := a.locator()
	if err != nil {
		return err
	}
	variable, err := a.required(fieldVariable)
	if err != nil {
		return err
	}
	expr, hasSlice, err := a.optional(fieldSlice)
	if err != nil {
		return err
	}

	elements, err := in.findAll(ctx, loc)
	if err != nil {
		return err
	}
	texts := make([]string, 0, len(elements))
	for i, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			return fmt.Errorf("reading text of %s[%d]: %w", loc, i, err)
		}
		texts = append(texts, text)
	}
	if hasSlice {
		if texts, err = slicing.Apply(expr, texts); err != nil {
			return malformed("%v", err)
		}
	}

	state.Captures.Put(variable, texts)
	in.logger.Debug("List captured",
		zap.String("variable", variable), zap.Stringer("locator", loc), zap.Int("count", len(texts)))
	return nil
}

func (in *Interpreter) click(ctx context.Context, a args) error {
	loc, err := a.locator()
	if err != nil {
		return err
	}
	el, err := in.browser.FindElement(ctx, loc)
	if err != nil {
		return fmt.Errorf("locating %s: %w", loc, err)
	}
	return el.Click(ctx)
}

func (in *Interpreter) clickListItem(ctx context.Context, a args) error {
	loc, err := a.locator()
	if err != nil {
		return err
	}
	item, err := a.integer(fieldItem)
	if err != nil {
		return err
	}
	elements, err := in.findAll(ctx, loc)
	if err != nil {
		return err
	}
	if item < 0 || item >= len(elements) {
		return fmt.Errorf("%w: item %d requested, %s matched %d", ErrIndexOutOfRange, item, loc, len(elements))
	}
	return elements[item].Click(ctx)
}

func (in *Interpreter) snapshot(ctx context.Context, state *RunState, f frame) error {
	source, err := in.browser.PageSource(ctx)
	if err != nil {
		return fmt.Errorf("reading page source: %w", err)
	}
	loopValue := ""
	if f.loopValue != nil {
		loopValue = *f.loopValue
	}
	state.Snapshots.Append(source, f.path, loopValue)
	return nil
}

// findAll looks up every match for loc. No match is an empty list.
func (in *Interpreter) findAll(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	elements, err := in.browser.FindElements(ctx, loc)
	if errors.Is(err, schemas.ErrElementNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", loc, err)
	}
	return elements, nil
}
