// internal/interpreter/errors.go
package interpreter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedScript marks a node whose fields are missing or mis-shaped.
	ErrMalformedScript = errors.New("malformed script")
	// ErrSubscriptNotFound is returned when a loop names a subscript the master
	// script does not define.
	ErrSubscriptNotFound = errors.New("subscript not found")
	// ErrIndexOutOfRange is returned when clickListItem asks for an item the
	// page does not have.
	ErrIndexOutOfRange = errors.New("list item index out of range")
)

// OperationError is the terminal failure of a run. It identifies the node
// that failed and the loop context it failed in.
type OperationError struct {
	Op        string
	Path      string
	Position  string
	Depth     int
	Iteration *int
	LoopValue *string
	Err       error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "operation %q at %s", e.Op, e.Path)
	if e.Position != "" {
		fmt.Fprintf(&b, " (%s)", e.Position)
	}
	fmt.Fprintf(&b, " [depth %d", e.Depth)
	if e.Iteration != nil {
		fmt.Fprintf(&b, ", iteration %d", *e.Iteration)
	}
	if e.LoopValue != nil {
		fmt.Fprintf(&b, ", loop value %q", *e.LoopValue)
	}
	b.WriteString("]")
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error { return e.Err }

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedScript, fmt.Sprintf(format, args...))
}
