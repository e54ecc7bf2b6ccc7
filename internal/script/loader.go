// internal/script/loader.go
package script

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScript is returned when script text cannot be decoded or does not
// describe a script tree.
var ErrInvalidScript = errors.New("invalid script")

// Load reads and parses the script file at path. A leading "~" is expanded.
func Load(path string) (*Node, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand script path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	root, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expanded, err)
	}
	return root, nil
}

// Parse decodes YAML (or JSON, as YAML flow syntax) into a script tree. The
// document root must be a mapping.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode script: %w", ErrInvalidScript, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidScript)
	}

	root, err := new(converter).convert(doc.Content[0], 0)
	if err != nil {
		return nil, err
	}
	if root.Kind != MappingNode {
		return nil, fmt.Errorf("%w: document root must be a mapping, got %s at %s",
			ErrInvalidScript, root.Kind, root.Position())
	}
	return root, nil
}

// Aliases are expanded into copies. Chains of anchors that reference each
// other grow exponentially, so both the nesting and the total number of
// expansions are capped.
const (
	maxAliasDepth      = 64
	maxAliasExpansions = 10000
)

type converter struct {
	aliases int
}

func (cv *converter) convert(y *yaml.Node, aliasDepth int) (*Node, error) {
	switch y.Kind {
	case yaml.AliasNode:
		if aliasDepth >= maxAliasDepth {
			return nil, fmt.Errorf("%w: alias nesting too deep at line %d", ErrInvalidScript, y.Line)
		}
		cv.aliases++
		if cv.aliases > maxAliasExpansions {
			return nil, fmt.Errorf("%w: too many alias expansions at line %d", ErrInvalidScript, y.Line)
		}
		return cv.convert(y.Alias, aliasDepth+1)

	case yaml.ScalarNode:
		n := NewScalar(y.Value)
		n.Line, n.Column = y.Line, y.Column
		return n, nil

	case yaml.SequenceNode:
		n := &Node{Kind: SequenceNode, Line: y.Line, Column: y.Column}
		for _, item := range y.Content {
			c, err := cv.convert(item, aliasDepth)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, c)
		}
		return n, nil

	case yaml.MappingNode:
		n := NewMapping()
		n.Line, n.Column = y.Line, y.Column
		for i := 0; i+1 < len(y.Content); i += 2 {
			k, v := y.Content[i], y.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: mapping keys must be scalars (line %d)", ErrInvalidScript, k.Line)
			}
			if n.Has(k.Value) {
				return nil, fmt.Errorf("%w: duplicate key %q at line %d, column %d",
					ErrInvalidScript, k.Value, k.Line, k.Column)
			}
			c, err := cv.convert(v, aliasDepth)
			if err != nil {
				return nil, err
			}
			n.Set(k.Value, c)
		}
		return n, nil

	default:
		return nil, fmt.Errorf("%w: unsupported yaml node kind %d at line %d", ErrInvalidScript, y.Kind, y.Line)
	}
}
