// internal/interpreter/args.go
package interpreter

import (
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/script"
)

// Operation field names.
const (
	fieldSelectorType = "selectorType"
	fieldSelector     = "selector"
	fieldValue        = "value"
	fieldSelectBy     = "selectBy"
	fieldTimeout      = "timeout"
	fieldVariable     = "variable"
	fieldSlice        = "slice"
	fieldType         = "type"
	fieldSubscript    = "subscript"
	fieldItem         = "item"
)

// args reads operation fields, substituting the bound loop value for the
// placeholder token.
type args struct {
	node        *script.Node
	placeholder string
	loopValue   *string
}

func (in *Interpreter) argsFor(node *script.Node, f frame) args {
	return args{node: node, placeholder: in.opts.Placeholder, loopValue: f.loopValue}
}

func (a args) optional(key string) (string, bool, error) {
	child, ok := a.node.Get(key)
	if !ok {
		return "", false, nil
	}
	if child == nil || child.Kind != script.ScalarNode {
		return "", false, malformed("field %q must be a scalar, got %s", key, kindOf(child))
	}
	v := child.Value
	if v == a.placeholder {
		if a.loopValue == nil {
			return "", false, malformed("field %q uses %s outside a loop", key, a.placeholder)
		}
		v = *a.loopValue
	}
	return v, true, nil
}

func (a args) required(key string) (string, error) {
	v, ok, err := a.optional(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", malformed("missing required field %q", key)
	}
	return v, nil
}

func (a args) integer(key string) (int, error) {
	v, err := a.required(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, malformed("field %q must be an integer, got %q", key, v)
	}
	return n, nil
}

func (a args) locator() (schemas.Locator, error) {
	kind, err := a.required(fieldSelectorType)
	if err != nil {
		return schemas.Locator{}, err
	}
	k, err := schemas.ParseSelectorKind(kind)
	if err != nil {
		return schemas.Locator{}, malformed("%v", err)
	}
	value, err := a.required(fieldSelector)
	if err != nil {
		return schemas.Locator{}, err
	}
	return schemas.Locator{Kind: k, Value: value}, nil
}

// timeout reads a whole-second timeout field, falling back to def.
func (a args) timeout(def time.Duration) (time.Duration, error) {
	v, ok, err := a.optional(fieldTimeout)
	if err != nil || !ok {
		return def, err
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0, malformed("field %q must be a non-negative number of seconds, got %q", fieldTimeout, v)
	}
	return time.Duration(secs) * time.Second, nil
}
