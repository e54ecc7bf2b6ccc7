// internal/interpreter/loop.go
package interpreter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/internal/script"
	"github.com/xkilldash9x/scriptwalk/internal/slicing"
)

const loopTypeVariable = "variable"

// loop re-enters the subscript once per captured value, in capture order.
// Iterations run one after another; each starts from depth zero.
func (in *Interpreter) loop(ctx context.Context, state *RunState, a args) error {
	kind, err := a.required(fieldType)
	if err != nil {
		return err
	}
	if kind != loopTypeVariable {
		return malformed("loop type must be %q, got %q", loopTypeVariable, kind)
	}
	variable, err := a.required(fieldVariable)
	if err != nil {
		return err
	}
	name, err := a.required(fieldSubscript)
	if err != nil {
		return err
	}
	expr, hasSlice, err := a.optional(fieldSlice)
	if err != nil {
		return err
	}

	body, err := in.subscript(state, name)
	if err != nil {
		return err
	}

	// Get returns a copy; captures made inside the body cannot change what
	// this loop visits.
	values, ok := state.Captures.Get(variable)
	if !ok {
		in.logger.Info("Loop variable has no captured values, skipping",
			zap.String("variable", variable), zap.String("subscript", name))
		return nil
	}
	if hasSlice {
		if values, err = slicing.Apply(expr, values); err != nil {
			return malformed("%v", err)
		}
	}

	in.logger.Debug("Loop starting",
		zap.String("variable", variable), zap.String("subscript", name), zap.Int("iterations", len(values)))

	path := script.Path(script.KeySubscripts, name)
	for i := range values {
		if err := ctx.Err(); err != nil {
			return err
		}
		index, value := i, values[i]
		f := frame{iteration: &index, loopValue: &value, path: path}

		var err error
		if body.Has(script.KeyOperation) {
			err = in.dispatch(ctx, state, body, f)
		} else {
			err = in.walk(ctx, state, body, f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) subscript(state *RunState, name string) (*script.Node, error) {
	subs, ok := state.Master.Get(script.KeySubscripts)
	if !ok || !subs.IsMapping() {
		return nil, fmt.Errorf("%w: %q (script has no %s mapping)", ErrSubscriptNotFound, name, script.KeySubscripts)
	}
	body, ok := subs.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSubscriptNotFound, name)
	}
	if !body.IsMapping() {
		return nil, malformed("subscript %q must be a mapping, got %s", name, kindOf(body))
	}
	return body, nil
}
