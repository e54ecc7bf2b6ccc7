// internal/script/node.go
package script

import (
	"fmt"
	"strings"
)

// Reserved keys with structural meaning.
const (
	KeyOperation  = "operation"
	KeyIf         = "if"
	KeySubscripts = "subscripts"
)

// Kind distinguishes the three shapes a script node can take.
type Kind int

const (
	ScalarNode Kind = iota
	MappingNode
	SequenceNode
)

func (k Kind) String() string {
	switch k {
	case ScalarNode:
		return "scalar"
	case MappingNode:
		return "mapping"
	case SequenceNode:
		return "sequence"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one element of a script tree. Mappings keep their keys in authored
// order; every scalar is kept as its literal text.
type Node struct {
	Kind  Kind
	Value string
	Items []*Node

	keys     []string
	children map[string]*Node

	Line   int
	Column int
}

// NewMapping returns an empty mapping node.
func NewMapping() *Node {
	return &Node{Kind: MappingNode, children: make(map[string]*Node)}
}

// NewScalar returns a scalar node holding v.
func NewScalar(v string) *Node {
	return &Node{Kind: ScalarNode, Value: v}
}

// Set appends key to a mapping, or replaces its value in place if the key is
// already present.
func (n *Node) Set(key string, child *Node) *Node {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, exists := n.children[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.children[key] = child
	return n
}

// Keys returns the mapping keys in authored order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Get returns the child stored under key.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != MappingNode {
		return nil, false
	}
	c, ok := n.children[key]
	return c, ok
}

// Has reports whether a mapping carries key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// IsMapping reports whether n is a non-nil mapping.
func (n *Node) IsMapping() bool {
	return n != nil && n.Kind == MappingNode
}

// Scalar returns the text of the scalar child stored under key.
func (n *Node) Scalar(key string) (string, bool) {
	c, ok := n.Get(key)
	if !ok || c == nil || c.Kind != ScalarNode {
		return "", false
	}
	return c.Value, true
}

// Len returns the number of mapping keys or sequence items.
func (n *Node) Len() int {
	switch {
	case n == nil:
		return 0
	case n.Kind == MappingNode:
		return len(n.keys)
	case n.Kind == SequenceNode:
		return len(n.Items)
	default:
		return 0
	}
}

// Position renders the node's source location, or "" when unknown.
func (n *Node) Position() string {
	if n == nil || n.Line == 0 {
		return ""
	}
	return fmt.Sprintf("line %d, column %d", n.Line, n.Column)
}

// Path joins node keys into a dotted location such as "steps.search".
func Path(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case ScalarNode:
		return n.Value
	case MappingNode:
		return "{" + strings.Join(n.keys, ", ") + "}"
	default:
		return fmt.Sprintf("[%d items]", len(n.Items))
	}
}
