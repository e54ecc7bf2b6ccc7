// internal/interpreter/interpreter.go
package interpreter

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/capture"
	"github.com/xkilldash9x/scriptwalk/internal/config"
	"github.com/xkilldash9x/scriptwalk/internal/script"
)

// Options tunes a single Interpreter.
type Options struct {
	// MaxDepth bounds conditional nesting. A conditional reached at this depth
	// executes neither branch.
	MaxDepth int
	// KeystrokeDelay is the pause between characters sent by a keys
	// operation. Zero types without pausing.
	KeystrokeDelay time.Duration
	// DefaultWaitTimeout applies to wait operations without a timeout field.
	DefaultWaitTimeout time.Duration
	// Placeholder is the argument value replaced by the current loop value.
	Placeholder string
}

// DefaultOptions returns the reference execution settings.
func DefaultOptions() Options {
	return Options{
		MaxDepth:           2,
		KeystrokeDelay:     100 * time.Millisecond,
		DefaultWaitTimeout: 30 * time.Second,
		Placeholder:        "$loopValue",
	}
}

// OptionsFromConfig maps the interpreter config section onto Options.
func OptionsFromConfig(cfg config.InterpreterConfig) Options {
	return Options{
		MaxDepth:           cfg.MaxDepth,
		KeystrokeDelay:     cfg.KeystrokeDelay,
		DefaultWaitTimeout: cfg.DefaultWaitTimeout,
		Placeholder:        cfg.Placeholder,
	}
}

// Interpreter walks script trees against a browser. It holds no per-run
// state; everything a run accumulates lives in a RunState.
type Interpreter struct {
	browser schemas.Browser
	logger  *zap.Logger
	opts    Options
}

// New creates an Interpreter driving browser.
func New(browser schemas.Browser, logger *zap.Logger, opts Options) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.Placeholder == "" {
		opts.Placeholder = defaults.Placeholder
	}
	if opts.DefaultWaitTimeout <= 0 {
		opts.DefaultWaitTimeout = defaults.DefaultWaitTimeout
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.KeystrokeDelay < 0 {
		opts.KeystrokeDelay = 0
	}
	return &Interpreter{
		browser: browser,
		logger:  logger.Named("interpreter"),
		opts:    opts,
	}
}

// RunState is what one run accumulates. Master is recorded by the first
// Execute call that finds it unset.
type RunState struct {
	Master    *script.Node
	Captures  *capture.Store
	Snapshots *capture.SnapshotLog
}

// NewRunState creates empty run state.
func NewRunState(logger *zap.Logger) *RunState {
	return &RunState{
		Captures:  capture.NewStore(logger),
		Snapshots: capture.NewSnapshotLog(logger),
	}
}

// Result snapshots the state into a RunResult.
func (s *RunState) Result() *schemas.RunResult {
	return capture.Result(s.Captures, s.Snapshots)
}

// frame is the per-call context threaded through the recursive walk.
type frame struct {
	depth     int
	iteration *int
	loopValue *string
	path      string
}

func (f frame) child(key string) frame {
	f.path = script.Path(f.path, key)
	return f
}

// Run executes master from a fresh state. The result is never nil; on error
// it holds whatever was captured before the failure.
func (in *Interpreter) Run(ctx context.Context, master *script.Node) (*schemas.RunResult, error) {
	state := NewRunState(in.logger)
	start := time.Now()
	in.logger.Info("Script run started", zap.Int("top_level_nodes", master.Len()))

	err := in.Execute(ctx, state, master, nil, nil)
	res := state.Result()

	fields := []zap.Field{
		zap.Duration("duration", time.Since(start)),
		zap.Int("captures", len(res.Captures)),
		zap.Int("snapshots", len(res.Snapshots)),
	}
	if err != nil {
		in.logger.Error("Script run failed", append(fields, zap.Error(err))...)
		return res, err
	}
	in.logger.Info("Script run completed", fields...)
	return res, nil
}

// Execute walks node's children in authored order with the given loop
// binding. The first call on a state records node as the master script.
//
// Top-level calls pass a nil iteration. Loop re-entry always binds the
// zero-based iteration index alongside the loop value, so errors raised
// inside a loop carry both.
func (in *Interpreter) Execute(ctx context.Context, state *RunState, node *script.Node, iteration *int, loopValue *string) error {
	if state == nil {
		return errors.New("interpreter: nil run state")
	}
	if state.Captures == nil || state.Snapshots == nil {
		fresh := NewRunState(in.logger)
		if state.Captures == nil {
			state.Captures = fresh.Captures
		}
		if state.Snapshots == nil {
			state.Snapshots = fresh.Snapshots
		}
	}
	if state.Master == nil {
		state.Master = node
	}
	if !node.IsMapping() {
		return &OperationError{
			Op:       "walk",
			Position: node.Position(),
			Err:      malformed("script root must be a mapping, got %s", kindOf(node)),
		}
	}
	return in.walk(ctx, state, node, frame{iteration: iteration, loopValue: loopValue})
}

func (in *Interpreter) walk(ctx context.Context, state *RunState, node *script.Node, f frame) error {
	for _, key := range node.Keys() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if node == state.Master && key == script.KeySubscripts {
			continue
		}
		child, _ := node.Get(key)
		if !child.IsMapping() {
			// Scalars and lists at container level carry no behavior.
			continue
		}

		var err error
		switch {
		case child.Has(script.KeyOperation):
			err = in.dispatch(ctx, state, child, f.child(key))
		case key == script.KeyIf:
			err = in.conditional(ctx, state, child, f.child(key))
		default:
			next := f.child(key)
			next.depth++
			err = in.walk(ctx, state, child, next)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// conditional runs the then or else branch of an if node. Exactly the
// literal "true" selects then.
func (in *Interpreter) conditional(ctx context.Context, state *RunState, node *script.Node, f frame) error {
	if f.depth >= in.opts.MaxDepth {
		in.logger.Debug("Conditional skipped at depth bound",
			zap.String("path", f.path), zap.Int("depth", f.depth))
		return nil
	}

	a := in.argsFor(node, f)
	cond, err := a.required("condition")
	if err != nil {
		return in.wrap("if", node, f, err)
	}
	branchKey := "else"
	if cond == "true" {
		branchKey = "then"
	}
	branch, ok := node.Get(branchKey)
	if !ok || !branch.IsMapping() {
		return in.wrap("if", node, f, malformed("conditional is missing a %q mapping", branchKey))
	}

	next := f.child(branchKey)
	next.depth++
	in.logger.Debug("Conditional evaluated",
		zap.String("path", f.path), zap.String("condition", cond), zap.String("branch", branchKey))

	if branch.Has(script.KeyOperation) {
		return in.dispatch(ctx, state, branch, next)
	}
	return in.walk(ctx, state, branch, next)
}

// wrap attaches node context to err. Errors already carrying context from a
// deeper node pass through unchanged.
func (in *Interpreter) wrap(op string, node *script.Node, f frame, err error) error {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &OperationError{
		Op:        op,
		Path:      f.path,
		Position:  node.Position(),
		Depth:     f.depth,
		Iteration: f.iteration,
		LoopValue: f.loopValue,
		Err:       err,
	}
}

func kindOf(n *script.Node) string {
	if n == nil {
		return "nothing"
	}
	return n.Kind.String()
}
