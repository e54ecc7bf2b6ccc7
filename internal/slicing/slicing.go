// Package slicing trims ordered sequences with "start:stop" expressions.
// Either bound may be omitted or negative; negative bounds count back from
// the end of the sequence and out-of-range bounds are clamped, so "1:-1"
// drops the first and last items and ":" keeps everything.
package slicing

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a parsed slice expression. A nil bound means "omitted".
type Expr struct {
	Start *int
	Stop  *int
}

// Parse reads an expression of the form "start:stop".
func Parse(expr string) (Expr, error) {
	left, right, found := strings.Cut(strings.TrimSpace(expr), ":")
	if !found {
		return Expr{}, fmt.Errorf("slice expression %q must have the form start:stop", expr)
	}
	if strings.Contains(right, ":") {
		return Expr{}, fmt.Errorf("slice expression %q: steps are not supported", expr)
	}

	start, err := parseBound(left)
	if err != nil {
		return Expr{}, fmt.Errorf("slice expression %q: invalid start: %w", expr, err)
	}
	stop, err := parseBound(right)
	if err != nil {
		return Expr{}, fmt.Errorf("slice expression %q: invalid stop: %w", expr, err)
	}
	return Expr{Start: start, Stop: stop}, nil
}

func parseBound(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Bounds resolves the expression against a sequence of length n. The result
// always satisfies 0 <= start, stop <= n; start >= stop means empty.
func (e Expr) Bounds(n int) (start, stop int) {
	start, stop = 0, n
	if e.Start != nil {
		start = resolve(*e.Start, n)
	}
	if e.Stop != nil {
		stop = resolve(*e.Stop, n)
	}
	return start, stop
}

func resolve(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func (e Expr) String() string {
	var b strings.Builder
	if e.Start != nil {
		b.WriteString(strconv.Itoa(*e.Start))
	}
	b.WriteByte(':')
	if e.Stop != nil {
		b.WriteString(strconv.Itoa(*e.Stop))
	}
	return b.String()
}

// Select returns a new slice holding the selected range of in. The input is
// never modified or aliased.
func Select[T any](e Expr, in []T) []T {
	start, stop := e.Bounds(len(in))
	if start >= stop {
		return []T{}
	}
	out := make([]T, stop-start)
	copy(out, in[start:stop])
	return out
}

// Apply parses expr and selects the matching range of in.
func Apply[T any](expr string, in []T) ([]T, error) {
	e, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return Select(e, in), nil
}
