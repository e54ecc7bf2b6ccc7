// internal/interpreter/helpers_test.go
package interpreter_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/interpreter"
	"github.com/xkilldash9x/scriptwalk/internal/script"
)

// fakeBrowser is an in-memory page. Each locator maps to the visible texts of
// the elements it matches; every interaction is appended to an event log.
type fakeBrowser struct {
	mu      sync.Mutex
	pages   map[string][]string
	events  []string
	source  string
	waitErr error
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		pages:  make(map[string][]string),
		source: "<html><head><title>Formulary</title></head><body></body></html>",
	}
}

// with registers the elements matched by a locator.
func (b *fakeBrowser) with(kind schemas.SelectorKind, value string, texts ...string) *fakeBrowser {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages[schemas.Locator{Kind: kind, Value: value}.String()] = texts
	return b
}

func (b *fakeBrowser) record(format string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, fmt.Sprintf(format, args...))
}

// Events returns the interaction log.
func (b *fakeBrowser) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	copy(out, b.events)
	return out
}

// EventsWithPrefix filters the log.
func (b *fakeBrowser) EventsWithPrefix(prefix string) []string {
	var out []string
	for _, e := range b.Events() {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}

func (b *fakeBrowser) matches(loc schemas.Locator) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pages[loc.String()]
}

func (b *fakeBrowser) FindElement(ctx context.Context, loc schemas.Locator) (schemas.Element, error) {
	texts := b.matches(loc)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, schemas.ErrElementNotFound)
	}
	return &fakeElement{b: b, loc: loc, index: 0, text: texts[0]}, nil
}

func (b *fakeBrowser) FindElements(ctx context.Context, loc schemas.Locator) ([]schemas.Element, error) {
	texts := b.matches(loc)
	out := make([]schemas.Element, 0, len(texts))
	for i, text := range texts {
		out = append(out, &fakeElement{b: b, loc: loc, index: i, text: text})
	}
	return out, nil
}

func (b *fakeBrowser) WaitVisible(ctx context.Context, loc schemas.Locator, timeout time.Duration) error {
	b.record("wait:%s:%s", loc, timeout)
	return b.waitErr
}

func (b *fakeBrowser) PageSource(ctx context.Context) (string, error) {
	b.record("snapshot")
	return b.source, nil
}

type fakeElement struct {
	b     *fakeBrowser
	loc   schemas.Locator
	index int
	text  string
}

func (e *fakeElement) Clear(ctx context.Context) error {
	e.b.record("clear:%s", e.loc)
	return nil
}

func (e *fakeElement) SendKeys(ctx context.Context, keys string) error {
	e.b.record("keys:%s:%s", e.loc, keys)
	return nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.b.record("click:%s[%d]", e.loc, e.index)
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.text, nil
}

func (e *fakeElement) SelectByValue(ctx context.Context, value string) error {
	e.b.record("select-value:%s:%s", e.loc, value)
	return nil
}

func (e *fakeElement) SelectByIndex(ctx context.Context, index int) error {
	e.b.record("select-index:%s:%d", e.loc, index)
	return nil
}

func (e *fakeElement) SelectByVisibleText(ctx context.Context, text string) error {
	e.b.record("select-visible:%s:%s", e.loc, text)
	return nil
}

// testOptions are the default options without keystroke pacing.
func testOptions() interpreter.Options {
	opts := interpreter.DefaultOptions()
	opts.KeystrokeDelay = 0
	return opts
}

func newTestInterpreter(t *testing.T, b schemas.Browser) *interpreter.Interpreter {
	t.Helper()
	return interpreter.New(b, zaptest.NewLogger(t), testOptions())
}

func mustParse(t *testing.T, src string) *script.Node {
	t.Helper()
	root, err := script.Parse([]byte(src))
	require.NoError(t, err)
	return root
}
