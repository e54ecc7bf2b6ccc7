package schemas

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// -- Browser Capability Schemas --

// ErrElementNotFound is returned by single-element lookups that matched nothing.
var ErrElementNotFound = errors.New("element not found")

// ErrWaitTimeout is returned when a visibility wait exceeds its deadline.
var ErrWaitTimeout = errors.New("timed out waiting for element")

// SelectorKind is the strategy used to locate elements on the page.
type SelectorKind string

const (
	SelectorID    SelectorKind = "id"
	SelectorClass SelectorKind = "class"
	SelectorCSS   SelectorKind = "cssSelector"
	SelectorXPath SelectorKind = "xpath"
	SelectorName  SelectorKind = "name"
)

// ParseSelectorKind validates a locator kind as written in a script.
func ParseSelectorKind(s string) (SelectorKind, error) {
	switch k := SelectorKind(s); k {
	case SelectorID, SelectorClass, SelectorCSS, SelectorXPath, SelectorName:
		return k, nil
	default:
		return "", fmt.Errorf("unknown selector type %q (supported: id, class, cssSelector, xpath, name)", s)
	}
}

// Locator pairs a selector kind with its value.
type Locator struct {
	Kind  SelectorKind `json:"kind"`
	Value string       `json:"value"`
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Kind, l.Value)
}

// Browser is the page-level capability the interpreter drives. Implementations
// own the underlying session; callers never create or destroy it through this
// interface.
type Browser interface {
	// FindElement returns the first element matching the locator, or an error
	// wrapping ErrElementNotFound.
	FindElement(ctx context.Context, loc Locator) (Element, error)
	// FindElements returns every matching element in document order. An empty
	// slice is a valid result.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
	// WaitVisible blocks until a matching element is visible, or returns an
	// error wrapping ErrWaitTimeout once the timeout elapses.
	WaitVisible(ctx context.Context, loc Locator, timeout time.Duration) error
	// PageSource returns the full serialized document.
	PageSource(ctx context.Context) (string, error)
}

// Element is a live handle to a DOM node.
type Element interface {
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
	Click(ctx context.Context) error
	Text(ctx context.Context) (string, error)

	// Select control operations. Index is zero-based.
	SelectByValue(ctx context.Context, value string) error
	SelectByIndex(ctx context.Context, index int) error
	SelectByVisibleText(ctx context.Context, text string) error
}
